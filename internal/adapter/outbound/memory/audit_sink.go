package memory

import (
	"context"
	"sync"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
)

// AuditSink is an in-memory audit.Sink, used by tests and by the health
// checker's wiring examples. Production deployments use the file-backed
// sink; this one never touches disk.
type AuditSink struct {
	mu     sync.RWMutex
	events []audit.AuditEvent
}

// NewAuditSink creates an empty in-memory audit sink.
func NewAuditSink() *AuditSink {
	return &AuditSink{}
}

// Emit appends events to the in-memory slice.
func (s *AuditSink) Emit(_ context.Context, events ...audit.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Flush is a no-op; there is nothing to sync for an in-memory sink.
func (s *AuditSink) Flush(_ context.Context) error { return nil }

// Close is a no-op.
func (s *AuditSink) Close() error { return nil }

// Events returns a copy of all emitted events, for test assertions.
func (s *AuditSink) Events() []audit.AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.AuditEvent, len(s.events))
	copy(out, s.events)
	return out
}

var _ audit.Sink = (*AuditSink)(nil)
