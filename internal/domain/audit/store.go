package audit

import (
	"context"
	"time"
)

// Sink persists AuditEvents. The async audit service is the only writer;
// Emit must be safe to call from many goroutines and must never block the
// service's worker loop on a slow disk -- batching and backpressure are the
// service's concern, durability is the sink's.
type Sink interface {
	// Emit appends a batch of events to storage.
	Emit(ctx context.Context, events ...AuditEvent) error

	// Flush forces any buffered writes to durable storage.
	Flush(ctx context.Context) error

	// Close releases resources held by the sink.
	Close() error
}

// Filter specifies query parameters for an administrative audit retrieval.
// Retrieval only reads recent log files -- it is not a general purpose
// query engine.
type Filter struct {
	// StartTime and EndTime bound the time window (both required).
	StartTime time.Time
	EndTime   time.Time
	// EventType restricts to a single event type, if set.
	EventType EventType
	// PrincipalID restricts to a single principal, if set.
	PrincipalID string
	// MinSeverity restricts to events at least this severe, if set.
	MinSeverity Severity
	// Limit caps the number of events returned (0 means the store's default).
	Limit int
}

// QueryStore provides read access to recently emitted events. Separate from
// Sink because most sink implementations (a daily-rotating log file) don't
// need to support arbitrary queries to satisfy Emit.
type QueryStore interface {
	Query(ctx context.Context, filter Filter) ([]AuditEvent, error)
}
