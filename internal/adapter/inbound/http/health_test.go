package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/adapter/outbound/memory"
	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
	"github.com/boomi-gateway/datahub-gateway/internal/service"
)

// discardLogger returns a logger that discards all output (for tests)
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHealthChecker_Healthy(t *testing.T) {
	conversationStore := memory.NewConversationStore()
	rateLimiter := memory.NewRateLimiter()

	sink := memory.NewAuditSink()
	auditService := service.NewAuditService(sink, discardLogger(),
		service.WithChannelSize(100),
	)

	hc := NewHealthChecker(conversationStore, rateLimiter, auditService, "test-version")

	health := hc.Check()

	if health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", health.Status)
	}
	if health.Version != "test-version" {
		t.Errorf("Version = %q, want test-version", health.Version)
	}
	if health.Checks["conversation_store"] != "ok" {
		t.Errorf("conversation_store check = %q, want ok", health.Checks["conversation_store"])
	}
	if health.Checks["rate_limiter"] != "ok" {
		t.Errorf("rate_limiter check = %q, want ok", health.Checks["rate_limiter"])
	}
}

func TestHealthChecker_NilComponents(t *testing.T) {
	hc := NewHealthChecker(nil, nil, nil, "")
	health := hc.Check()

	if health.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", health.Status)
	}
	if health.Checks["conversation_store"] != "not configured" {
		t.Errorf("conversation_store = %q, want 'not configured'", health.Checks["conversation_store"])
	}
	if health.Checks["rate_limiter"] != "not configured" {
		t.Errorf("rate_limiter = %q, want 'not configured'", health.Checks["rate_limiter"])
	}
	if health.Checks["audit"] != "not configured" {
		t.Errorf("audit = %q, want 'not configured'", health.Checks["audit"])
	}
}

func TestHealthChecker_Handler_HTTP(t *testing.T) {
	conversationStore := memory.NewConversationStore()
	hc := NewHealthChecker(conversationStore, nil, nil, "1.0.0")

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	hc.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusOK)
	}

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", contentType)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("Response status = %q, want healthy", resp.Status)
	}
	if resp.Version != "1.0.0" {
		t.Errorf("Response version = %q, want 1.0.0", resp.Version)
	}
}

func TestHealthChecker_Unhealthy_AuditFull(t *testing.T) {
	sink := memory.NewAuditSink()
	auditService := service.NewAuditService(sink, discardLogger(),
		service.WithChannelSize(10),
		service.WithSendTimeout(0),
	)

	for i := 0; i < 10; i++ {
		auditService.Record(audit.AuditEvent{EventType: audit.EventTypeQueryExecuted})
	}

	hc := NewHealthChecker(nil, nil, auditService, "")
	health := hc.Check()

	if health.Status != "unhealthy" {
		t.Errorf("Status = %q, want unhealthy (audit channel >90%% full)", health.Status)
	}
}

func TestHealthChecker_Unhealthy_CriticalAuditDrop(t *testing.T) {
	sink := memory.NewAuditSink()
	// No Start() call: nothing drains the channel, so it fills immediately.
	auditService := service.NewAuditService(sink, discardLogger(),
		service.WithChannelSize(1),
		service.WithSendTimeout(5*time.Millisecond),
	)

	auditService.Record(audit.AuditEvent{EventType: audit.EventTypeQueryExecuted})
	auditService.Record(audit.AuditEvent{EventType: audit.EventTypeSecurityBlocked, Severity: audit.SeverityCritical})

	hc := NewHealthChecker(nil, nil, auditService, "")
	health := hc.Check()

	if health.Status != "unhealthy" {
		t.Errorf("Status = %q, want unhealthy (dropped critical audit event)", health.Status)
	}
	if health.Checks["audit_critical_drops"] == "" {
		t.Error("expected an audit_critical_drops check to be present")
	}
}

func TestHealthChecker_Handler_Unhealthy_503(t *testing.T) {
	sink := memory.NewAuditSink()
	auditService := service.NewAuditService(sink, discardLogger(),
		service.WithChannelSize(10),
		service.WithSendTimeout(0),
	)

	for i := 0; i < 10; i++ {
		auditService.Record(audit.AuditEvent{EventType: audit.EventTypeQueryExecuted})
	}

	hc := NewHealthChecker(nil, nil, auditService, "")

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()

	hc.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Status code = %d, want %d (503 Service Unavailable)", rec.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.Status != "unhealthy" {
		t.Errorf("Response status = %q, want unhealthy", resp.Status)
	}
}

func TestHealthChecker_GoroutineCount(t *testing.T) {
	hc := NewHealthChecker(nil, nil, nil, "")
	health := hc.Check()

	if health.Checks["goroutines"] == "" {
		t.Error("goroutines check should be present")
	}
	if health.Checks["goroutines"] == "0" {
		t.Error("goroutines count should be > 0")
	}
}
