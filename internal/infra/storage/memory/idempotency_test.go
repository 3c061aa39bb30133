package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dog52841/Rentify-sub001/internal/app/middleware"
)

func TestIdempotencyStoreEvictsExpiredRecords(t *testing.T) {
	store := NewIdempotencyStore(time.Minute)
	ctx := context.Background()

	stale := middleware.IdempotencyRecord{
		Key:        "k-old",
		Payload:    []byte(`{"status":"REQUESTED"}`),
		OccurredAt: time.Now().Add(-2 * time.Minute),
	}
	fresh := middleware.IdempotencyRecord{
		Key:        "k-new",
		Payload:    []byte(`{"status":"REQUESTED"}`),
		OccurredAt: time.Now(),
	}
	if err := store.Save(ctx, stale); err != nil {
		t.Fatalf("save stale: %v", err)
	}
	if err := store.Save(ctx, fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	if _, ok, err := store.Get(ctx, "k-old"); err != nil || ok {
		t.Fatalf("expired record must be a miss, ok=%v err=%v", ok, err)
	}
	rec, ok, err := store.Get(ctx, "k-new")
	if err != nil || !ok {
		t.Fatalf("fresh record lost, ok=%v err=%v", ok, err)
	}
	if rec.Key != "k-new" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestIdempotencyStoreZeroTTLKeepsEverything(t *testing.T) {
	store := NewIdempotencyStore(0)
	ctx := context.Background()
	rec := middleware.IdempotencyRecord{
		Key:        "k1",
		Payload:    []byte(`{}`),
		OccurredAt: time.Now().Add(-24 * time.Hour),
	}
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, ok, err := store.Get(ctx, "k1"); err != nil || !ok {
		t.Fatalf("record should survive without a ttl, ok=%v err=%v", ok, err)
	}
}
