package session

import (
	"context"
	"os"
	"testing"
	"time"

	"restopos/backend/internal/domain"
)

func TestMemoryStoreKeepsFirstDaySession(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	first := domain.DaySession{StartTime: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC), StartedBy: "admin"}

	got, created, err := s.StartDaySession(ctx, first)
	if err != nil || !created {
		t.Fatalf("expected session to be created, got created=%v err=%v", created, err)
	}
	got, created, _ = s.StartDaySession(ctx, domain.DaySession{StartTime: first.StartTime.Add(time.Hour), StartedBy: "cashier"})
	if created {
		t.Fatalf("expected second start to be ignored")
	}
	if got.StartedBy != "admin" || !got.StartTime.Equal(first.StartTime) {
		t.Fatalf("expected existing session, got %+v", got)
	}

	if err := s.ClearDaySession(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if day, _ := s.GetDaySession(ctx); day != nil {
		t.Fatalf("expected no session after clear, got %+v", day)
	}
}

func TestMemoryStoreRevocationExpires(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.RevokeToken(ctx, "tok-1", time.Minute)
	if revoked, _ := s.IsRevoked(ctx, "tok-1"); !revoked {
		t.Fatalf("expected token to be revoked")
	}
	now = now.Add(2 * time.Minute)
	if revoked, _ := s.IsRevoked(ctx, "tok-1"); revoked {
		t.Fatalf("expected revocation to expire with the token")
	}
}

func TestRedisStoreDaySession(t *testing.T) {
	addr := os.Getenv("RESTOPOS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set RESTOPOS_TEST_REDIS_ADDR to run redis integration test")
	}
	s := NewRedisStore(addr, "", 0)
	ctx := context.Background()
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	t.Cleanup(func() {
		_ = s.ClearDaySession(ctx)
		_ = s.Close()
	})
	_ = s.ClearDaySession(ctx)

	day := domain.DaySession{StartTime: time.Now().UTC().Truncate(time.Second), StartedBy: "manager"}
	if _, created, err := s.StartDaySession(ctx, day); err != nil || !created {
		t.Fatalf("expected session to be created, got created=%v err=%v", created, err)
	}
	got, err := s.GetDaySession(ctx)
	if err != nil || got == nil {
		t.Fatalf("expected stored session, got %v err=%v", got, err)
	}
	if got.StartedBy != "manager" {
		t.Fatalf("expected started by manager, got %s", got.StartedBy)
	}
}
