package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestDeny_ThenIsDenied(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	denied, err := store.IsDenied(ctx, "token-1")
	if err != nil {
		t.Fatalf("IsDenied: %v", err)
	}
	if denied {
		t.Error("unknown token should not be denied")
	}

	if err := store.Deny(ctx, "token-1", "user-1", time.Minute); err != nil {
		t.Fatalf("Deny: %v", err)
	}

	denied, err = store.IsDenied(ctx, "token-1")
	if err != nil {
		t.Fatalf("IsDenied: %v", err)
	}
	if !denied {
		t.Error("denied token should be reported as denied")
	}
}

func TestDeny_EntryExpiresWithTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Deny(ctx, "token-1", "user-1", time.Minute); err != nil {
		t.Fatalf("Deny: %v", err)
	}

	mr.FastForward(time.Minute + time.Second)

	denied, err := store.IsDenied(ctx, "token-1")
	if err != nil {
		t.Fatalf("IsDenied: %v", err)
	}
	if denied {
		t.Error("denylist entry should expire with its TTL")
	}
}

func TestDeny_NonPositiveTTLIsNoOp(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Deny(ctx, "token-1", "user-1", 0); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if err := store.Deny(ctx, "token-2", "user-1", -time.Second); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if mr.Exists("denylist:token-1") || mr.Exists("denylist:token-2") {
		t.Error("expired tokens should not get denylist entries")
	}
}

func TestDeny_IsIdempotentAndRefreshesTTL(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Deny(ctx, "token-1", "user-1", 10*time.Second); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if err := store.Deny(ctx, "token-1", "user-1", time.Minute); err != nil {
		t.Fatalf("second Deny: %v", err)
	}

	if got := mr.TTL("denylist:token-1"); got != time.Minute {
		t.Errorf("TTL = %v, want %v", got, time.Minute)
	}
}

func TestDeny_StoresSubject(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Deny(ctx, "token-1", "user-1", time.Minute); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	got, err := mr.Get("denylist:token-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "user-1" {
		t.Errorf("denylist value = %q, want %q", got, "user-1")
	}
}

func TestStore_UnreachableRedisReturnsErrUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client)
	mr.Close()

	ctx := context.Background()
	if err := store.Deny(ctx, "token-1", "user-1", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Deny = %v, want ErrUnavailable", err)
	}

	denied, err := store.IsDenied(ctx, "token-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("IsDenied err = %v, want ErrUnavailable", err)
	}
	if denied {
		t.Error("IsDenied must not report denied=true on store failure")
	}
}

func TestStore_ContextCancellationStopsRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client)
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := store.Deny(ctx, "token-1", "user-1", time.Minute)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Deny = %v, want ErrUnavailable", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled context should stop retries quickly, took %v", elapsed)
	}
}
