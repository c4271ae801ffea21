package web

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// PoolConfig is the slice of the pool's pushed configuration the stats
// endpoint cares about; the raw document is served as-is by /config.
type PoolConfig struct {
	Hostname string `json:"hostname"`
	Treasury struct {
		Fee float64 `json:"fee"`
	} `json:"treasury"`
	ThresholdAmount float64 `json:"thresholdAmount"` // in sompi
}

// PoolConfigStore persists the config document the pool pushes via
// /postconfig and serves it back to /config and the stats endpoint. The file
// survives restarts; the in-memory copy only saves a disk read.
type PoolConfigStore struct {
	path string

	mu  sync.RWMutex
	raw json.RawMessage
}

func NewPoolConfigStore(path string) *PoolConfigStore {
	s := &PoolConfigStore{path: path}
	if raw, err := os.ReadFile(path); err == nil && json.Valid(raw) {
		s.raw = raw
	}
	return s
}

func (s *PoolConfigStore) Save(raw json.RawMessage) error {
	if !json.Valid(raw) {
		return errors.New("invalid config payload")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "failed creating config directory")
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return errors.Wrap(err, "failed writing config file")
	}
	s.mu.Lock()
	s.raw = append(json.RawMessage{}, raw...)
	s.mu.Unlock()
	return nil
}

// Raw returns the last received document, nil if none was ever pushed.
func (s *PoolConfigStore) Raw() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

// Load parses the typed fields out of the stored document.
func (s *PoolConfigStore) Load() (*PoolConfig, error) {
	raw := s.Raw()
	if raw == nil {
		return nil, errors.New("no pool config received yet")
	}
	cfg := &PoolConfig{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, errors.Wrap(err, "failed parsing stored pool config")
	}
	return cfg, nil
}
