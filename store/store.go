package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// state is the persisted document. Plain JSON on disk; the key is the
// user's own and this service is self-hosted, so no at-rest encryption.
type state struct {
	APIKey      string    `json:"api_key"`
	InstalledAt time.Time `json:"installed_at"`
	Version     string    `json:"version"`
}

// Store is a file-backed credential store. All reads are served from memory;
// writes go through a temp-file rename so a crash never leaves a torn file.
type Store struct {
	mu      sync.RWMutex
	path    string
	version string
	st      state
}

// Open loads the store file at path, creating the initial state on first
// run. version is stamped into new files for later migrations.
func Open(path, version string) (*Store, error) {
	s := &Store{path: path, version: version}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.st = state{InstalledAt: time.Now().UTC(), Version: version}
		if err := s.flush(); err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
		slog.Info("store: initialized", "path", path)
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read store: %w", err)
	}

	if err := json.Unmarshal(data, &s.st); err != nil {
		return nil, fmt.Errorf("parse store %s: %w", path, err)
	}
	return s, nil
}

// APIKey returns the stored vision API key, empty when unset.
func (s *Store) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.APIKey
}

// SetAPIKey persists a new vision API key.
func (s *Store) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.APIKey = key
	return s.flush()
}

// KeyHint returns a display-safe fragment of the stored key: the first ten
// characters followed by an ellipsis, or the whole key when shorter. Empty
// when no key is stored.
func (s *Store) KeyHint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := s.st.APIKey
	if key == "" {
		return ""
	}
	if len(key) <= 10 {
		return key
	}
	return key[:10] + "..."
}

// InstalledAt reports when the store was first created.
func (s *Store) InstalledAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.InstalledAt
}

// flush writes the state atomically. Caller holds mu.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(s.st, "", "  ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
