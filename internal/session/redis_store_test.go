package session

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
	store := NewRedisStoreWithClient(client, time.Hour)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestSaveAndLookup(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	data := Data{ZohoID: "z-100", Email: "ines@example.com", Name: "Ines"}
	if err := store.Save(ctx, "tok-1", data); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Lookup(ctx, "tok-1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got.ZohoID != "z-100" || got.Email != "ines@example.com" || got.Name != "Ines" {
		t.Fatalf("Lookup returned %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("CreatedAt was not stamped on save")
	}
}

func TestLookupUnknownToken(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Lookup(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup(missing) err = %v, want ErrNotFound", err)
	}
}

func TestRevoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "tok-2", Data{ZohoID: "z-200"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Revoke(ctx, "tok-2"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := store.Lookup(ctx, "tok-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup after revoke err = %v, want ErrNotFound", err)
	}
}

func TestSessionExpiry(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "tok-3", Data{ZohoID: "z-300"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	if _, err := store.Lookup(ctx, "tok-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lookup after expiry err = %v, want ErrNotFound", err)
	}
}
