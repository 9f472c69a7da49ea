// ABOUTME: File-backed store for the exclusive-mode flag
// ABOUTME: Rewrites the config file, keeping every other field as loaded
package config

import "sync"

// Store persists the exclusive-mode flag
type Store interface {
	ExclusiveMode() (bool, error)
	SetExclusiveMode(enabled bool) error
}

// FileStore implements Store on top of the YAML config file
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store for path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// ExclusiveMode reads the flag from disk
func (s *FileStore) ExclusiveMode() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := Load(s.path)
	if err != nil {
		return false, err
	}
	return cfg.ExclusiveMode, nil
}

// SetExclusiveMode updates the flag and rewrites the file
func (s *FileStore) SetExclusiveMode(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	cfg.ExclusiveMode = enabled
	return Save(s.path, cfg)
}
