// Package state persists small user preferences between runs: the saved API
// credential and the last-viewed symbol.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Prefs is the stored preference set.
type Prefs struct {
	APIKey     string `json:"api_key,omitempty"`
	LastSymbol string `json:"last_symbol,omitempty"`
}

// Store reads and writes Prefs at a fixed path. Writes go through the whole
// file each time; the dataset is two strings.
type Store struct {
	path string

	mu    sync.Mutex
	prefs Prefs
}

// Open loads the store at path. A missing file is a fresh store, not an
// error.
func Open(path string) (*Store, error) {
	store := &Store{path: path}

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}
	if err := json.Unmarshal(b, &store.prefs); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return store, nil
}

// DefaultPath places the state file under the user config dir, falling back
// to the working directory when that is unavailable.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".stockboard.json"
	}
	return filepath.Join(dir, "stockboard", "state.json")
}

// Prefs returns a copy of the current preferences.
func (s *Store) Prefs() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SetAPIKey stores the credential and writes the file.
func (s *Store) SetAPIKey(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.APIKey = key
	return s.save()
}

// SetLastSymbol stores the last-viewed symbol and writes the file.
func (s *Store) SetLastSymbol(symbol string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs.LastSymbol = symbol
	return s.save()
}

// save writes the file. Mode 0600 because the file can hold the API key.
// Caller holds s.mu.
func (s *Store) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state dir: %w", err)
		}
	}
	b, err := json.MarshalIndent(s.prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}
