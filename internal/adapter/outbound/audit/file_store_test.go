package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/audit"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// makeEvent creates a test AuditEvent with the given timestamp and principal.
func makeEvent(ts time.Time, principalID string) audit.AuditEvent {
	return audit.AuditEvent{
		EventID:     principalID,
		Timestamp:   ts,
		EventType:   audit.EventTypeQueryExecuted,
		Severity:    audit.SeverityInfo,
		PrincipalID: principalID,
		Success:     true,
	}
}

func TestNewFileStore_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "subdir", "audit")
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("Expected directory, got file")
	}
	if perm := info.Mode().Perm(); perm != 0700 {
		t.Errorf("Directory permissions = %o, want 0700", perm)
	}
}

func TestFileStore_EmitWritesJSONLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()

	events := []audit.AuditEvent{
		makeEvent(now, "principal-1"),
		makeEvent(now, "principal-2"),
		makeEvent(now, "principal-3"),
	}

	if err := store.Emit(ctx, events...); err != nil {
		t.Fatalf("Emit() error: %v", err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	dateStr := now.Format("2006-01-02")
	filename := filepath.Join(dir, fmt.Sprintf("audit-%s.log", dateStr))

	data, err := os.ReadFile(filename)
	if err != nil {
		t.Fatalf("Failed to read audit file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 lines, got %d", len(lines))
	}

	for i, line := range lines {
		var decoded audit.AuditEvent
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("Line %d is not valid JSON: %v", i, err)
			continue
		}
		expected := fmt.Sprintf("principal-%d", i+1)
		if decoded.PrincipalID != expected {
			t.Errorf("Line %d PrincipalID = %q, want %q", i, decoded.PrincipalID, expected)
		}
	}
}

func TestFileStore_DateRotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	ctx := context.Background()
	day1 := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	if err := store.Emit(ctx, makeEvent(day1, "day1")); err != nil {
		t.Fatalf("Emit() day1 error: %v", err)
	}
	if err := store.Emit(ctx, makeEvent(day2, "day2")); err != nil {
		t.Fatalf("Emit() day2 error: %v", err)
	}
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	_ = store.Close()

	file1 := filepath.Join(dir, "audit-2026-02-01.log")
	file2 := filepath.Join(dir, "audit-2026-02-02.log")

	if _, err := os.Stat(file1); err != nil {
		t.Errorf("Day 1 audit file not found: %v", err)
	}
	if _, err := os.Stat(file2); err != nil {
		t.Errorf("Day 2 audit file not found: %v", err)
	}

	data1, _ := os.ReadFile(file1)
	data2, _ := os.ReadFile(file2)

	if !strings.Contains(string(data1), "day1") {
		t.Error("Day 1 file should contain event for day1")
	}
	if !strings.Contains(string(data2), "day2") {
		t.Error("Day 2 file should contain event for day2")
	}
}

func TestFileStore_SizeRotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	store.maxFileSize = 500

	ctx := context.Background()
	now := time.Now().UTC()
	dateStr := now.Format("2006-01-02")

	for i := 0; i < 20; i++ {
		event := makeEvent(now, fmt.Sprintf("req-%03d", i))
		event.Details = map[string]any{"data": strings.Repeat("x", 50)}
		if err := store.Emit(ctx, event); err != nil {
			t.Fatalf("Emit() error at event %d: %v", i, err)
		}
	}

	_ = store.Close()

	baseFile := filepath.Join(dir, fmt.Sprintf("audit-%s.log", dateStr))
	suffixFile := filepath.Join(dir, fmt.Sprintf("audit-%s-1.log", dateStr))

	if _, err := os.Stat(baseFile); err != nil {
		t.Errorf("Base audit file not found: %v", err)
	}
	if _, err := os.Stat(suffixFile); err != nil {
		t.Errorf("Suffixed audit file not found: %v", err)
	}
}

func TestFileStore_RetentionCleanup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	oldDate := time.Now().UTC().AddDate(0, 0, -10)
	recentDate := time.Now().UTC().AddDate(0, 0, -3)

	oldFile := filepath.Join(dir, fmt.Sprintf("audit-%s.log", oldDate.Format("2006-01-02")))
	recentFile := filepath.Join(dir, fmt.Sprintf("audit-%s.log", recentDate.Format("2006-01-02")))

	if err := os.WriteFile(oldFile, []byte(`{"EventID":"old"}`+"\n"), 0600); err != nil {
		t.Fatalf("Failed to create old file: %v", err)
	}
	if err := os.WriteFile(recentFile, []byte(`{"EventID":"recent"}`+"\n"), 0600); err != nil {
		t.Fatalf("Failed to create recent file: %v", err)
	}

	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("Old file (10 days) should have been deleted by retention cleanup")
	}
	if _, err := os.Stat(recentFile); err != nil {
		t.Error("Recent file (3 days) should NOT have been deleted")
	}
}

func TestFileStore_RetentionCleanupExtendsForSecurityEvents(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Past the ordinary 7-day cutoff but within the 28-day security cutoff.
	securityDate := time.Now().UTC().AddDate(0, 0, -10)
	securityFile := filepath.Join(dir, fmt.Sprintf("audit-%s.log", securityDate.Format("2006-01-02")))
	securityEvent, err := json.Marshal(audit.AuditEvent{
		EventID:   "blocked-1",
		Timestamp: securityDate,
		EventType: audit.EventTypeSecurityBlocked,
		Severity:  audit.SeverityCritical,
	})
	if err != nil {
		t.Fatalf("marshal security event: %v", err)
	}
	if err := os.WriteFile(securityFile, append(securityEvent, '\n'), 0600); err != nil {
		t.Fatalf("failed to create security-event file: %v", err)
	}

	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := os.Stat(securityFile); err != nil {
		t.Error("file containing a critical security event should survive past the ordinary retention cutoff")
	}
}

func TestRecentCache_AddAndRecent(t *testing.T) {
	t.Parallel()

	cache := newRecentCache(5)

	for i := 0; i < 3; i++ {
		cache.Add(makeEvent(time.Now().UTC(), fmt.Sprintf("req-%d", i)))
	}

	if cache.Len() != 3 {
		t.Errorf("cache.Len() = %d, want 3", cache.Len())
	}

	recent := cache.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) returned %d entries, want 2", len(recent))
	}

	if recent[0].PrincipalID != "req-2" {
		t.Errorf("Recent[0].PrincipalID = %q, want %q", recent[0].PrincipalID, "req-2")
	}
	if recent[1].PrincipalID != "req-1" {
		t.Errorf("Recent[1].PrincipalID = %q, want %q", recent[1].PrincipalID, "req-1")
	}
}

func TestRecentCache_RingBufferOverflow(t *testing.T) {
	t.Parallel()

	cache := newRecentCache(3)

	for i := 0; i < 5; i++ {
		cache.Add(makeEvent(time.Now().UTC(), fmt.Sprintf("req-%d", i)))
	}

	if cache.Len() != 3 {
		t.Errorf("cache.Len() = %d, want 3", cache.Len())
	}

	recent := cache.Recent(5)
	if len(recent) != 3 {
		t.Fatalf("Recent(5) returned %d entries, want 3", len(recent))
	}

	if recent[0].PrincipalID != "req-4" {
		t.Errorf("Recent[0].PrincipalID = %q, want %q", recent[0].PrincipalID, "req-4")
	}
	if recent[2].PrincipalID != "req-2" {
		t.Errorf("Recent[2].PrincipalID = %q, want %q", recent[2].PrincipalID, "req-2")
	}
}

func TestFileStore_QueryFiltersBySeverityAndType(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	info := makeEvent(now, "p1")
	info.Severity = audit.SeverityInfo
	info.EventType = audit.EventTypeQueryExecuted

	critical := makeEvent(now, "p2")
	critical.Severity = audit.SeverityCritical
	critical.EventType = audit.EventTypeThreatDetected

	if err := store.Emit(ctx, info, critical); err != nil {
		t.Fatalf("Emit() error: %v", err)
	}

	results, err := store.Query(ctx, audit.Filter{MinSeverity: audit.SeverityWarning})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(results) != 1 || results[0].PrincipalID != "p2" {
		t.Fatalf("Query(MinSeverity=warning) = %+v, want only p2", results)
	}

	results, err = store.Query(ctx, audit.Filter{EventType: audit.EventTypeQueryExecuted})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(results) != 1 || results[0].PrincipalID != "p1" {
		t.Fatalf("Query(EventType) = %+v, want only p1", results)
	}
}

func TestFileStore_ConcurrentEmit(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 1000}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	errCh := make(chan error, 100)

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if err := store.Emit(ctx, makeEvent(now, fmt.Sprintf("concurrent-%d", idx))); err != nil {
				errCh <- err
			}
		}(i)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Concurrent Emit() error: %v", err)
	}

	if err := store.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
	_ = store.Close()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir error: %v", err)
	}

	totalLines := 0
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "audit-") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			t.Fatalf("ReadFile error: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if lines[0] != "" {
			totalLines += len(lines)
		}
	}

	if totalLines != 100 {
		t.Errorf("Expected 100 total lines, got %d", totalLines)
	}
}

func TestFileStore_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("Double Close() error: %v", err)
	}
}

func TestFileStore_FilePermissions(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}

	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.Emit(ctx, makeEvent(now, "perm")); err != nil {
		t.Fatalf("Emit() error: %v", err)
	}
	_ = store.Close()

	dateStr := now.Format("2006-01-02")
	filename := filepath.Join(dir, fmt.Sprintf("audit-%s.log", dateStr))

	info, err := os.Stat(filename)
	if err != nil {
		t.Fatalf("Stat error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("File permissions = %o, want 0600", perm)
	}
}

func TestFileStore_ImplementsSinkAndQueryStore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	var _ audit.Sink = store
	var _ audit.QueryStore = store
}

func TestFileStore_DefaultConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.retentionDays != 7 {
		t.Errorf("Default retentionDays = %d, want 7", store.retentionDays)
	}
	if store.maxFileSize != 100*1024*1024 {
		t.Errorf("Default maxFileSize = %d, want %d", store.maxFileSize, 100*1024*1024)
	}
	if store.cache.size != 1000 {
		t.Errorf("Default cache size = %d, want 1000", store.cache.size)
	}
}

func TestFileStore_EmitEmptyIsNoop(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Emit(context.Background()); err != nil {
		t.Errorf("Emit() with no events error: %v", err)
	}
}

func TestFileStore_PopulateCacheFromMostRecentFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	oldDate := time.Now().UTC().AddDate(0, 0, -2)
	recentDate := time.Now().UTC().AddDate(0, 0, -1)

	oldFile := filepath.Join(dir, fmt.Sprintf("audit-%s.log", oldDate.Format("2006-01-02")))
	recentFile := filepath.Join(dir, fmt.Sprintf("audit-%s.log", recentDate.Format("2006-01-02")))

	f1, _ := os.Create(oldFile)
	enc1 := json.NewEncoder(f1)
	for i := 0; i < 5; i++ {
		_ = enc1.Encode(makeEvent(oldDate, fmt.Sprintf("old-%d", i)))
	}
	_ = f1.Close()

	f2, _ := os.Create(recentFile)
	enc2 := json.NewEncoder(f2)
	for i := 0; i < 5; i++ {
		_ = enc2.Encode(makeEvent(recentDate, fmt.Sprintf("recent-%d", i)))
	}
	_ = f2.Close()

	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 3}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	recent, err := store.Query(context.Background(), audit.Filter{Limit: 10})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("Query(Limit=10) returned %d entries, want 3 (cache size)", len(recent))
	}
	if recent[0].PrincipalID != "recent-4" {
		t.Errorf("recent[0].PrincipalID = %q, want %q", recent[0].PrincipalID, "recent-4")
	}
}

func TestFileStore_PopulateCacheHandlesMalformedLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	now := time.Now().UTC()
	dateStr := now.Format("2006-01-02")
	filename := filepath.Join(dir, fmt.Sprintf("audit-%s.log", dateStr))

	f, _ := os.Create(filename)
	data, _ := json.Marshal(makeEvent(now, "valid-1"))
	_, _ = fmt.Fprintf(f, "%s\n", data)
	_, _ = fmt.Fprintf(f, "this is not json\n")
	data2, _ := json.Marshal(makeEvent(now, "valid-2"))
	_, _ = fmt.Fprintf(f, "%s\n", data2)
	_ = f.Close()

	cfg := FileStoreConfig{Dir: dir, RetentionDays: 7, MaxFileSizeMB: 100, CacheSize: 100}

	store, err := NewFileStore(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	defer func() { _ = store.Close() }()

	recent, err := store.Query(context.Background(), audit.Filter{Limit: 10})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("Query(Limit=10) returned %d entries, want 2", len(recent))
	}
}
