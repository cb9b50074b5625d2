package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/boomi-gateway/datahub-gateway/internal/domain/credential"
)

func TestTokenStore_IsRevoked_ByTokenID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTokenStore()

	rec := credential.RevocationRecord{
		TokenID:   "tok-1",
		RevokedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.Revoke(ctx, rec); err != nil {
		t.Fatalf("Revoke() unexpected error: %v", err)
	}

	revoked, err := store.IsRevoked(ctx, "tok-1", "")
	if err != nil {
		t.Fatalf("IsRevoked() unexpected error: %v", err)
	}
	if !revoked {
		t.Error("expected token to be revoked")
	}

	revoked, err = store.IsRevoked(ctx, "tok-unknown", "")
	if err != nil {
		t.Fatalf("IsRevoked() unexpected error: %v", err)
	}
	if revoked {
		t.Error("expected unknown token to not be revoked")
	}
}

func TestTokenStore_IsRevoked_ByContentHash(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTokenStore()

	rec := credential.RevocationRecord{
		ContentHash: "hash-1",
		RevokedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	if err := store.Revoke(ctx, rec); err != nil {
		t.Fatalf("Revoke() unexpected error: %v", err)
	}

	revoked, err := store.IsRevoked(ctx, "", "hash-1")
	if err != nil {
		t.Fatalf("IsRevoked() unexpected error: %v", err)
	}
	if !revoked {
		t.Error("expected content hash to be revoked")
	}
}

func TestTokenStore_ExpiredRecordNotRevoked(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTokenStore()

	rec := credential.RevocationRecord{
		TokenID:   "tok-expired",
		RevokedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := store.Revoke(ctx, rec); err != nil {
		t.Fatalf("Revoke() unexpected error: %v", err)
	}

	revoked, err := store.IsRevoked(ctx, "tok-expired", "")
	if err != nil {
		t.Fatalf("IsRevoked() unexpected error: %v", err)
	}
	if revoked {
		t.Error("expired revocation record should not report as revoked")
	}
}

func TestTokenStore_CleanupExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTokenStore()
	now := time.Now()

	_ = store.Revoke(ctx, credential.RevocationRecord{TokenID: "tok-expired", ExpiresAt: now.Add(-time.Minute)})
	_ = store.Revoke(ctx, credential.RevocationRecord{TokenID: "tok-live", ExpiresAt: now.Add(time.Hour)})
	_ = store.Revoke(ctx, credential.RevocationRecord{ContentHash: "hash-expired", ExpiresAt: now.Add(-time.Minute)})

	removed, err := store.CleanupExpired(ctx, now)
	if err != nil {
		t.Fatalf("CleanupExpired() unexpected error: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if store.Size() != 1 {
		t.Errorf("Size() after cleanup = %d, want 1", store.Size())
	}
}

func TestTokenStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewTokenStore()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Revoke(ctx, credential.RevocationRecord{
				TokenID:   "tok",
				ExpiresAt: time.Now().Add(time.Hour),
			})
			_, _ = store.IsRevoked(ctx, "tok", "")
		}(i)
	}
	wg.Wait()
}
