package kvstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreGetSet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.SetEX(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
	value, err := store.Get(ctx, "k")
	if err != nil || value != "v" {
		t.Fatalf("Get = (%q, %v)", value, err)
	}

	exists, err := store.Exists(ctx, "k")
	if err != nil || !exists {
		t.Fatalf("Exists = (%v, %v)", exists, err)
	}
	exists, err = store.Exists(ctx, "missing")
	if err != nil || exists {
		t.Fatalf("Exists(missing) = (%v, %v)", exists, err)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	if err := store.SetEX(ctx, "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}

	now = now.Add(59 * time.Second)
	if _, err := store.Get(ctx, "k"); err != nil {
		t.Fatalf("key expired early: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
	if exists, _ := store.Exists(ctx, "k"); exists {
		t.Fatal("Exists must see the expiry too")
	}
}

func TestMemoryStoreOverwriteRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	if err := store.SetEX(ctx, "k", "v1", time.Minute); err != nil {
		t.Fatal(err)
	}
	now = now.Add(50 * time.Second)
	if err := store.SetEX(ctx, "k", "v2", time.Minute); err != nil {
		t.Fatal(err)
	}
	now = now.Add(50 * time.Second)

	value, err := store.Get(ctx, "k")
	if err != nil || value != "v2" {
		t.Fatalf("Get = (%q, %v)", value, err)
	}
}
