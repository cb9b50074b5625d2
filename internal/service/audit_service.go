package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
)

// AuditService provides async audit logging with a buffered channel and
// background worker, so emitting an event never blocks the request path
// that produced it.
type AuditService struct {
	sink          audit.Sink
	auditChan     chan audit.AuditEvent
	done          chan struct{}
	wg            sync.WaitGroup
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration

	// Phase 2 backpressure additions
	channelSize int           // Track capacity for monitoring
	sendTimeout time.Duration // 0 = drop immediately, >0 = block up to this duration
	dropCount   atomic.Int64  // Lock-free drop counter

	// criticalDropCount tracks drops specifically among error-or-worse
	// severity events (threat detections, security blocks, auth failures):
	// these are audited separately because losing one is a compliance gap,
	// not just a metrics blip.
	criticalDropCount atomic.Int64

	// Phase 2 channel depth warning
	warningThreshold int          // Percentage (0-100), e.g., 80
	lastWarning      atomic.Int64 // Rate-limit warning logs (Unix nanos)

	// Phase 5 adaptive flush
	adaptiveFlushThreshold int // Depth % that triggers faster flushing (default 80)
}

// AuditOption configures AuditService.
type AuditOption func(*AuditService)

// WithBatchSize sets the number of records to batch before writing.
func WithBatchSize(size int) AuditOption {
	return func(s *AuditService) {
		s.batchSize = size
	}
}

// WithFlushInterval sets the interval to flush pending records.
func WithFlushInterval(interval time.Duration) AuditOption {
	return func(s *AuditService) {
		s.flushInterval = interval
	}
}

// WithChannelSize sets the size of the audit channel buffer.
func WithChannelSize(size int) AuditOption {
	return func(s *AuditService) {
		s.auditChan = make(chan audit.AuditEvent, size)
		s.channelSize = size // Track capacity for monitoring
	}
}

// WithSendTimeout sets the backpressure timeout.
// 0 = drop immediately (no blocking), >0 = block up to this duration before dropping.
func WithSendTimeout(timeout time.Duration) AuditOption {
	return func(s *AuditService) {
		s.sendTimeout = timeout
	}
}

// WithWarningThreshold sets the channel depth warning percentage (0-100).
// A warning is logged when channel depth exceeds this percentage of capacity.
func WithWarningThreshold(percent int) AuditOption {
	return func(s *AuditService) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		s.warningThreshold = percent
	}
}

// WithAdaptiveFlushThreshold sets the channel depth % that triggers faster flushing.
// When channel depth exceeds this %, flush interval is reduced to 1/4 normal.
// Default is 80%. Set to 0 to disable adaptive flushing.
func WithAdaptiveFlushThreshold(percent int) AuditOption {
	return func(s *AuditService) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		s.adaptiveFlushThreshold = percent
	}
}

// NewAuditService creates a new AuditService with the given store and options.
func NewAuditService(sink audit.Sink, logger *slog.Logger, opts ...AuditOption) *AuditService {
	defaultChannelSize := 1000
	s := &AuditService{
		sink:                   sink,
		auditChan:              make(chan audit.AuditEvent, defaultChannelSize), // 10x burst for 10 seconds
		done:                   make(chan struct{}),
		logger:                 logger,
		batchSize:              100,
		flushInterval:          time.Second,
		channelSize:            defaultChannelSize,     // Track capacity for monitoring
		sendTimeout:            100 * time.Millisecond, // Default 100ms backpressure
		warningThreshold:       80,                     // Warn at 80% full
		adaptiveFlushThreshold: 80,                     // Speed up flush at 80% full
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start begins the background worker that batches and writes audit records.
func (s *AuditService) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.worker(ctx)
}

// Record sends an audit event to the background worker. Applies
// backpressure: attempts a fast non-blocking send, then blocks up to
// sendTimeout. Error-or-worse severity events always block up to
// sendTimeout even when it's configured as 0 (drop-immediately for
// everything else), since a dropped threat-detection or auth-failure
// event is a compliance gap, not just a metrics blip; they still drop if
// the channel stays full past the timeout.
func (s *AuditService) Record(event audit.AuditEvent) {
	// Check channel depth for early warning (rate-limited)
	if s.warningThreshold > 0 {
		depth := len(s.auditChan)
		threshold := s.channelSize * s.warningThreshold / 100
		if depth >= threshold {
			s.warnChannelDepth(depth)
		}
	}

	// Fast path: non-blocking send
	select {
	case s.auditChan <- event:
		return // Sent successfully
	default:
		// Channel full - apply backpressure
	}

	critical := event.Severity.AtLeast(audit.SeverityError)

	// If no timeout configured, drop immediately unless the event is
	// critical, in which case fall through to the bounded blocking send.
	if s.sendTimeout <= 0 && !critical {
		s.recordDrop(event)
		return
	}

	timeout := s.sendTimeout
	if critical && timeout <= 0 {
		timeout = defaultCriticalSendTimeout
	}

	// Slow path: block with timeout
	select {
	case s.auditChan <- event:
		return // Sent after waiting
	case <-time.After(timeout):
		s.recordDrop(event)
	}
}

// defaultCriticalSendTimeout bounds how long Record blocks for an
// error-or-worse severity event when sendTimeout is otherwise disabled.
const defaultCriticalSendTimeout = time.Second

// recordDrop increments the drop counters and logs the drop, at Error
// level for an error-or-worse severity event and Warn otherwise.
func (s *AuditService) recordDrop(event audit.AuditEvent) {
	drops := s.dropCount.Add(1)

	if event.Severity.AtLeast(audit.SeverityError) {
		criticalDrops := s.criticalDropCount.Add(1)
		s.logger.Error("critical audit event dropped",
			"event_type", event.EventType,
			"severity", event.Severity,
			"principal", event.PrincipalID,
			"total_drops", drops,
			"total_critical_drops", criticalDrops,
		)
		return
	}

	s.logger.Warn("audit event dropped",
		"event_type", event.EventType,
		"principal", event.PrincipalID,
		"total_drops", drops,
	)
}

// warnChannelDepth logs warning about channel capacity (rate-limited to once per second).
func (s *AuditService) warnChannelDepth(depth int) {
	now := time.Now().UnixNano()
	last := s.lastWarning.Load()

	// Only warn once per second
	if now-last < int64(time.Second) {
		return
	}

	// Try to claim this warning slot (CAS for thread safety)
	if s.lastWarning.CompareAndSwap(last, now) {
		s.logger.Warn("audit channel approaching capacity",
			"depth", depth,
			"capacity", s.channelSize,
			"percent", depth*100/s.channelSize,
		)
	}
}

// DroppedRecords returns total dropped records (for metrics/alerting).
func (s *AuditService) DroppedRecords() int64 {
	return s.dropCount.Load()
}

// DroppedCriticalEvents returns the count of dropped error-or-worse
// severity events specifically (for alerting that should page, not just
// log).
func (s *AuditService) DroppedCriticalEvents() int64 {
	return s.criticalDropCount.Load()
}

// ChannelDepth returns current channel usage (for monitoring).
func (s *AuditService) ChannelDepth() int {
	return len(s.auditChan)
}

// ChannelCapacity returns channel buffer size (for percentage calculation).
func (s *AuditService) ChannelCapacity() int {
	return s.channelSize
}

// Stop signals the worker to stop and waits for it to finish.
// Pending records are flushed before returning.
func (s *AuditService) Stop() {
	close(s.auditChan)
	s.wg.Wait()
}

// worker is the background goroutine that collects and flushes audit records.
func (s *AuditService) worker(ctx context.Context) {
	defer s.wg.Done()

	batch := make([]audit.AuditEvent, 0, s.batchSize)
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	// Track whether we're in fast-flush mode
	fastMode := false

	for {
		select {
		case event, ok := <-s.auditChan:
			if !ok {
				// Channel closed - final flush with bounded deadline
				if len(batch) > 0 {
					flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
					s.flush(flushCtx, batch)
					flushCancel()
				}
				return
			}
			batch = append(batch, event)

			// Check if we should flush (batch full, adaptive trigger, or a
			// critical-severity event that shouldn't sit in memory waiting
			// for the batch to fill)
			shouldFlush := len(batch) >= s.batchSize || event.Severity.AtLeast(audit.SeverityError)

			// Adaptive: check channel depth and flush early if under pressure
			if !shouldFlush && s.adaptiveFlushThreshold > 0 && len(batch) > 0 {
				depth := len(s.auditChan)
				depthPercent := depth * 100 / s.channelSize
				if depthPercent >= s.adaptiveFlushThreshold {
					shouldFlush = true
				}
			}

			if shouldFlush {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

			// Adaptive interval: adjust ticker based on channel pressure
			if s.adaptiveFlushThreshold > 0 {
				depth := len(s.auditChan)
				depthPercent := depth * 100 / s.channelSize

				if depthPercent >= s.adaptiveFlushThreshold && !fastMode {
					// Enter fast mode: 4x faster flush
					ticker.Reset(s.flushInterval / 4)
					fastMode = true
					s.logger.Debug("audit adaptive flush: entering fast mode",
						"depth_percent", depthPercent,
						"interval", s.flushInterval/4,
					)
				} else if depthPercent < s.adaptiveFlushThreshold && fastMode {
					// Return to normal mode
					ticker.Reset(s.flushInterval)
					fastMode = false
					s.logger.Debug("audit adaptive flush: returning to normal mode",
						"depth_percent", depthPercent,
						"interval", s.flushInterval,
					)
				}
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ctx.Done():
			// Context cancelled - drain channel and flush with bounded deadline
			for event := range s.auditChan {
				batch = append(batch, event)
			}
			if len(batch) > 0 {
				flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
				s.flush(flushCtx, batch)
				flushCancel()
			}
			return
		}
	}
}

// flush writes a batch of events to the sink.
// Errors are logged but not propagated - audit failures must not fail the request.
func (s *AuditService) flush(ctx context.Context, batch []audit.AuditEvent) {
	if err := s.sink.Emit(ctx, batch...); err != nil {
		s.logger.Error("failed to write audit batch",
			"error", err,
			"count", len(batch),
		)
	}
}
