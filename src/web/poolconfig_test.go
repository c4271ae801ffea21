package web

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestPoolConfigStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "received_config.json")
	store := NewPoolConfigStore(path)

	if store.Raw() != nil {
		t.Fatal("expected no config before the first push")
	}
	if _, err := store.Load(); err == nil {
		t.Fatal("expected Load to fail before the first push")
	}

	pushed := json.RawMessage(`{"hostname":"pool.example.com","treasury":{"fee":1.25},"thresholdAmount":500000000}`)
	if err := store.Save(pushed); err != nil {
		t.Fatal(err)
	}

	cfg, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Hostname != "pool.example.com" || cfg.Treasury.Fee != 1.25 || cfg.ThresholdAmount != 500000000 {
		t.Fatalf("incorrect parsed config: %+v", cfg)
	}

	// a fresh store must pick the persisted file back up
	reopened := NewPoolConfigStore(path)
	if reopened.Raw() == nil {
		t.Fatal("expected the reopened store to load the persisted config")
	}
}

func TestPoolConfigStoreRejectsInvalidPayload(t *testing.T) {
	store := NewPoolConfigStore(filepath.Join(t.TempDir(), "received_config.json"))
	if err := store.Save(json.RawMessage(`{not json`)); err == nil {
		t.Fatal("expected invalid json to be rejected")
	}
}
