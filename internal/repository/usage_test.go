package repository

import (
	"context"
	"testing"
	"time"

	"github.com/kalori-makanan/kalori-api/internal/domain"
)

func appendAt(t *testing.T, log *InMemoryUsageLog, keyID int64, ts time.Time) {
	t.Helper()
	rec := domain.UsageRecord{KeyID: keyID, Endpoint: "/foods/search", Timestamp: ts}
	if err := log.Append(context.Background(), rec); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestInMemoryUsageLog_CountBetween(t *testing.T) {
	log := NewInMemoryUsageLog()
	now := time.Now()

	appendAt(t, log, 1, now.Add(-90*time.Second))
	appendAt(t, log, 1, now.Add(-30*time.Second))
	appendAt(t, log, 1, now.Add(-5*time.Second))
	appendAt(t, log, 2, now.Add(-10*time.Second))

	got, err := log.CountBetween(context.Background(), 1, now.Add(-time.Minute), now)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != 2 {
		t.Errorf("count = %d, want 2", got)
	}
}

func TestInMemoryUsageLog_CountBetween_HalfOpen(t *testing.T) {
	log := NewInMemoryUsageLog()
	now := time.Now()
	start := now.Add(-time.Minute)

	// A record exactly at the window start is outside; one exactly at the
	// window end is inside.
	appendAt(t, log, 1, start)
	appendAt(t, log, 1, now)

	got, err := log.CountBetween(context.Background(), 1, start, now)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != 1 {
		t.Errorf("count = %d, want 1 (interval is open at start, closed at end)", got)
	}
}

func TestInMemoryUsageLog_Purge(t *testing.T) {
	log := NewInMemoryUsageLog()
	now := time.Now()
	cutoff := now.Add(-7 * 24 * time.Hour)

	appendAt(t, log, 1, cutoff.Add(-time.Hour))
	appendAt(t, log, 1, cutoff.Add(-time.Minute))
	appendAt(t, log, 1, cutoff.Add(time.Minute))
	appendAt(t, log, 2, now)

	removed, err := log.Purge(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	if log.Len() != 2 {
		t.Errorf("remaining = %d, want 2", log.Len())
	}

	// Newer records still count after the purge.
	got, err := log.CountBetween(context.Background(), 2, now.Add(-time.Minute), now)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if got != 1 {
		t.Errorf("count after purge = %d, want 1", got)
	}
}

func TestInMemoryUsageLog_Purge_Idempotent(t *testing.T) {
	log := NewInMemoryUsageLog()
	cutoff := time.Now().Add(-7 * 24 * time.Hour)

	appendAt(t, log, 1, cutoff.Add(-time.Hour))

	if removed, _ := log.Purge(context.Background(), cutoff); removed != 1 {
		t.Fatalf("first purge removed %d, want 1", removed)
	}
	if removed, _ := log.Purge(context.Background(), cutoff); removed != 0 {
		t.Errorf("second purge removed %d, want 0", removed)
	}
}

func TestInMemoryKeyRepository_GetByHash(t *testing.T) {
	ctx := context.Background()
	users := NewInMemoryUserRepository()
	user := &domain.User{Email: "a@example.com", Name: "A"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	repo := NewInMemoryKeyRepository(users)
	key := &domain.APIKey{UserID: user.ID, KeyHash: "digest-1", Name: "k"}
	if err := repo.Create(ctx, key); err != nil {
		t.Fatalf("create key: %v", err)
	}

	info, err := repo.GetByHash(ctx, "digest-1")
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if info.KeyID != key.ID || info.UserEmail != "a@example.com" {
		t.Errorf("info = %+v", info)
	}

	if _, err := repo.GetByHash(ctx, "no-such-digest"); err != domain.ErrKeyNotFound {
		t.Errorf("unknown digest err = %v, want ErrKeyNotFound", err)
	}

	if err := repo.Deactivate(ctx, key.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := repo.GetByHash(ctx, "digest-1"); err != domain.ErrKeyNotFound {
		t.Errorf("deactivated key err = %v, want ErrKeyNotFound", err)
	}
}
