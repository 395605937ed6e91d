package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CredentialStore holds the API key, optionally persisted between runs
type CredentialStore interface {
	Get() (string, error)
	Set(key string, persist bool) error
	Clear() error
}

// Compile-time interface compliance check.
var _ CredentialStore = (*FileCredentialStore)(nil)

// FileCredentialStore keeps the key in memory and, when asked, in a 0600 file
type FileCredentialStore struct {
	mu     sync.Mutex
	path   string
	memory string
}

// NewFileCredentialStore creates a store backed by path. fallback (e.g. from the
// environment) is used when nothing was set or persisted.
func NewFileCredentialStore(path, fallback string) *FileCredentialStore {
	return &FileCredentialStore{path: path, memory: strings.TrimSpace(fallback)}
}

// Get returns the in-memory key, or the persisted one. A missing key is ErrMissingCredential.
func (s *FileCredentialStore) Get() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memory != "" {
		return s.memory, nil
	}
	if s.path == "" {
		return "", ErrMissingCredential
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrMissingCredential
		}
		return "", fmt.Errorf("reading credential file: %w", err)
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", ErrMissingCredential
	}
	s.memory = key
	return key, nil
}

// Set stores key for this session; persist also writes it to disk.
// Without persist a key saved earlier stays on disk for later runs.
func (s *FileCredentialStore) Set(key string, persist bool) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = key

	if s.path == "" || !persist {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(key+"\n"), 0600); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(s.path, 0600); err != nil {
		return fmt.Errorf("restricting credential file: %w", err)
	}
	return nil
}

// Clear forgets the key in memory and on disk
func (s *FileCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.memory = ""
	if s.path == "" {
		return nil
	}
	return s.removeFile()
}

// Persisted reports whether a key is saved on disk
func (s *FileCredentialStore) Persisted() bool {
	return s.path != "" && FileExists(s.path)
}

func (s *FileCredentialStore) removeFile() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credential file: %w", err)
	}
	return nil
}

// MaskKey shows only the last four characters of a key
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}
