package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE_MODE", "")
	t.Setenv("IDEMP_TTL", "")
	t.Setenv("RENTER_FEE_BPS", "")
	t.Setenv("LISTER_FEE_BPS", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageMode != StorageMemory {
		t.Fatalf("storage = %s, want memory", cfg.StorageMode)
	}
	if cfg.IdempotencyTTL != 168*time.Hour {
		t.Fatalf("idempotency ttl = %s, want 168h", cfg.IdempotencyTTL)
	}
	if cfg.RenterFeeBps != 700 || cfg.ListerFeeBps != 300 {
		t.Fatalf("fees = %d/%d, want 700/300", cfg.RenterFeeBps, cfg.ListerFeeBps)
	}
}

func TestLoadReadsListingFixtures(t *testing.T) {
	t.Setenv("LISTINGS_FIXTURES", "testdata/listings.json")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListingFixtures != "testdata/listings.json" {
		t.Fatalf("fixtures = %q", cfg.ListingFixtures)
	}
}

func TestLoadRejectsMongoWithoutURI(t *testing.T) {
	t.Setenv("STORAGE_MODE", "mongo")
	t.Setenv("MONGO_URI", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for mongo storage without MONGO_URI")
	}
}
