package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
)

// mockFastSink is a no-op sink for benchmarking.
// Simulates fastest possible backend to measure channel/service overhead.
type mockFastSink struct{}

func (m *mockFastSink) Emit(ctx context.Context, events ...audit.AuditEvent) error {
	return nil
}

func (m *mockFastSink) Flush(ctx context.Context) error { return nil }
func (m *mockFastSink) Close() error                    { return nil }

// BenchmarkAuditRecord measures audit event submission (fast path).
// Tests the hot path of submitting events to the channel.
func BenchmarkAuditRecord(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &mockFastSink{}

	svc := NewAuditService(sink, logger,
		WithChannelSize(10000), // Large buffer to avoid blocking
		WithBatchSize(100),
		WithFlushInterval(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	event := audit.AuditEvent{
		EventType:   audit.EventTypeQueryExecuted,
		PrincipalID: "bench-principal",
		Timestamp:   time.Now(),
	}

	b.ResetTimer()
	for b.Loop() {
		svc.Record(event)
	}

	b.StopTimer()
	cancel()
	svc.Stop()
}

// BenchmarkAuditRecordParallel measures concurrent audit submission.
// Tests channel send performance under multi-goroutine contention.
func BenchmarkAuditRecordParallel(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &mockFastSink{}

	svc := NewAuditService(sink, logger,
		WithChannelSize(100000), // Very large buffer for parallel
		WithBatchSize(100),
		WithFlushInterval(time.Second),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		event := audit.AuditEvent{
			EventType:   audit.EventTypeQueryExecuted,
			PrincipalID: "bench-principal",
			Timestamp:   time.Now(),
		}
		for pb.Next() {
			svc.Record(event)
		}
	})

	b.StopTimer()
	cancel()
	svc.Stop()
}

// BenchmarkAuditRecordWithBackpressure measures audit behavior under pressure.
// Uses a slow sink and small buffer to trigger backpressure handling.
func BenchmarkAuditRecordWithBackpressure(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Slow sink simulates real I/O latency
	sink := &mockSlowSink{delay: time.Microsecond}

	svc := NewAuditService(sink, logger,
		WithChannelSize(100), // Smaller buffer to create pressure
		WithBatchSize(10),
		WithFlushInterval(10*time.Millisecond),
		WithSendTimeout(time.Millisecond), // Quick timeout for benchmark
		WithAdaptiveFlushThreshold(50),    // Lower threshold for testing
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	event := audit.AuditEvent{
		EventType:   audit.EventTypeQueryExecuted,
		PrincipalID: "bench-principal",
		Timestamp:   time.Now(),
	}

	b.ResetTimer()
	for b.Loop() {
		svc.Record(event)
	}

	b.StopTimer()
	b.ReportMetric(float64(svc.DroppedRecords()), "drops")
	cancel()
	svc.Stop()
}

// BenchmarkAuditFlush measures batch flush performance.
// Tests the sink.Emit() call path without channel overhead.
func BenchmarkAuditFlush(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &mockFastSink{}

	svc := NewAuditService(sink, logger,
		WithChannelSize(10000),
		WithBatchSize(100),
		WithFlushInterval(time.Hour), // Disable timed flush
	)

	// Pre-fill batch data
	events := make([]audit.AuditEvent, 100)
	for i := range events {
		events[i] = audit.AuditEvent{
			EventType:   audit.EventTypeQueryExecuted,
			PrincipalID: "bench-principal",
			Timestamp:   time.Now(),
		}
	}

	ctx := context.Background()

	b.ResetTimer()
	for b.Loop() {
		svc.flush(ctx, events)
	}
}

// BenchmarkAuditChannelDepthCheck measures the overhead of depth warning check.
// This runs on every Record() call when warningThreshold > 0.
func BenchmarkAuditChannelDepthCheck(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &mockFastSink{}

	svc := NewAuditService(sink, logger,
		WithChannelSize(10000),
		WithWarningThreshold(80), // Enable depth checking
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)

	event := audit.AuditEvent{
		EventType:   audit.EventTypeQueryExecuted,
		PrincipalID: "bench-principal",
		Timestamp:   time.Now(),
	}

	b.ResetTimer()
	for b.Loop() {
		svc.Record(event)
	}

	b.StopTimer()
	cancel()
	svc.Stop()
}
