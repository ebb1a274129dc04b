// Package settings persists the handful of values an operator can change at
// runtime (radio name, live-source and admin credentials) to a JSON file,
// mirroring the original station's settings.json (radio_logic.py).
package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// fileName is the settings file's name within a Catalog's data directory.
const fileName = "settings.json"

// filePerm restricts the settings file to the owner, since it carries
// plaintext credentials.
const filePerm = 0o600

// Settings is the persisted operator-configurable state.
type Settings struct {
	RadioName     string `json:"radio_name"`
	LiveUsername  string `json:"live_username"`
	LivePassword  string `json:"live_password"`
	AdminUsername string `json:"admin_username"`
	AdminPassword string `json:"admin_password"`
}

// defaults returns the settings a fresh install starts with.
func defaults() Settings {
	return Settings{
		RadioName:     "Radio Studio",
		LiveUsername:  "source",
		LivePassword:  "changeme",
		AdminUsername: "admin",
		AdminPassword: "changeme",
	}
}

// Store guards the in-memory Settings and persists every mutation to disk.
type Store struct {
	mu   sync.RWMutex
	path string
	cur  Settings
}

// Open loads settings.json from dataDir, creating it with defaults() if
// absent.
func Open(dataDir string) (*Store, error) {
	path := filepath.Join(dataDir, "config", fileName)
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s.cur = defaults()
		if err := s.persistLocked(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &s.cur); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// Update applies mutate to the current settings and persists the result.
func (s *Store) Update(mutate func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(&s.cur)
	return s.persistLocked()
}

func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.cur, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(s.path, data, filePerm)
}
