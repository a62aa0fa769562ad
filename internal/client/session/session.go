// Package session handles reading and writing the saved session file. The
// file stores the bearer token alongside cached account metadata so the CLI
// can authenticate without prompting on every run.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FilePerms restricts session files to owner-only read/write.
const FilePerms = 0o600

// DirPerms is used when creating the session directory.
const DirPerms = 0o700

// ErrNoSession is returned when no session has been saved yet.
var ErrNoSession = errors.New("session: not logged in")

// File is the on-disk format of the session file.
type File struct {
	Token string            `json:"token"`
	Meta  map[string]string `json:"meta,omitempty"`
}

// Store loads and saves the session file and serves the current token to
// the API client. Safe for concurrent use.
type Store struct {
	path string

	mu   sync.RWMutex
	file *File
}

// NewStore creates a store backed by the session file at path. The file is
// not read until Load.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the saved session from disk. Returns ErrNoSession when the
// file does not exist.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNoSession
	}
	if err != nil {
		return fmt.Errorf("session: reading %s: %w", s.path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("session: decoding %s: %w", s.path, err)
	}
	if f.Token == "" {
		return fmt.Errorf("session: %s missing token field", s.path)
	}

	s.mu.Lock()
	s.file = &f
	s.mu.Unlock()
	return nil
}

// Save installs a new session and writes it to disk atomically
// (write-to-temp + rename) with 0600 permissions. Token values are never
// logged.
func (s *Store) Save(token string, meta map[string]string) error {
	f := &File{Token: token, Meta: meta}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encoding: %w", err)
	}

	dir := filepath.Dir(s.path)
	if mkErr := os.MkdirAll(dir, DirPerms); mkErr != nil {
		return fmt.Errorf("session: creating directory %s: %w", dir, mkErr)
	}

	// Atomic write: temp file in the same directory, then rename.
	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("session: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(FilePerms); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session: setting permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("session: writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("session: installing %s: %w", s.path, err)
	}

	s.mu.Lock()
	s.file = f
	s.mu.Unlock()
	return nil
}

// Clear removes the session from memory and disk. Clearing an absent
// session is a no-op.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.file = nil
	s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session: removing %s: %w", s.path, err)
	}
	return nil
}

// Token returns the current bearer token, implementing the client's
// TokenSource. Returns ErrNoSession when nothing is loaded.
func (s *Store) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.file == nil {
		return "", ErrNoSession
	}
	return s.file.Token, nil
}

// Meta returns the cached metadata value for key, or "".
func (s *Store) Meta(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.file == nil {
		return ""
	}
	return s.file.Meta[key]
}
