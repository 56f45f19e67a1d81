// Package storage provides the key-value snapshot store backing the portal.
// File: storage/filestore.go
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// keys are used as file names, so keep them to a safe charset
var validKey = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// FileStore persists each key as <dir>/<key>.json on an afero filesystem.
// Writes go through a temp file + rename so a crashed write never leaves a
// truncated snapshot behind. The last-write-wins contract of Store applies:
// the mutex only serialises writers within this process.
type FileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir on the OS filesystem.
func NewFileStore(dir string) (*FileStore, error) {
	return NewFileStoreFs(afero.NewOsFs(), dir)
}

// NewFileStoreFs creates a FileStore on an arbitrary afero filesystem.
// Tests use afero.NewMemMapFs() to avoid touching disk.
func NewFileStoreFs(fs afero.Fs, dir string) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	return &FileStore{fs: fs, dir: dir}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("storage: invalid key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Read implements Store.
func (s *FileStore) Read(key string, v interface{}) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("storage: read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return nil
}

// Write implements Store.
func (s *FileStore) Write(key string, v interface{}) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0600); err != nil {
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: write %s: %w", key, err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete %s: %w", key, err)
	}
	return nil
}

// Keys implements Store.
func (s *FileStore) Keys() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, fmt.Errorf("storage: list keys: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	return keys, nil
}
