package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned by Get for keys that were never set or were deleted.
var ErrNotFound = errors.New("key not found")

// KV is a small durable key-value store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	io.Closer
}

// JSONFileKV implements KV as a single JSON object on disk.
// Values must be valid JSON; they are embedded as-is.
type JSONFileKV struct {
	path string
	mu   sync.Mutex
}

// NewJSONFileKV creates a JSONFileKV backed by the file at path.
func NewJSONFileKV(path string) *JSONFileKV {
	return &JSONFileKV{path: path}
}

// Path returns the storage file path.
func (s *JSONFileKV) Path() string {
	return s.path
}

// Get returns the value stored under key.
func (s *JSONFileKV) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return nil, err
	}
	v, ok := data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// Set stores value under key, replacing the whole file atomically.
func (s *JSONFileKV) Set(_ context.Context, key string, value []byte) error {
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	data[key] = json.RawMessage(value)
	return s.write(data)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *JSONFileKV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.write(data)
}

// Close implements io.Closer. There is nothing to release.
func (s *JSONFileKV) Close() error {
	return nil
}

// read loads the file. A missing file is an empty store.
func (s *JSONFileKV) read() (map[string]json.RawMessage, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}

	data := map[string]json.RawMessage{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return data, nil
}

// write replaces the file via a temp file and rename.
func (s *JSONFileKV) write(data map[string]json.RawMessage) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Open opens the backend named by cfg.Backend inside dir.
func Open(cfg Config, dir string) (KV, error) {
	switch cfg.Backend {
	case BackendJSON:
		return NewJSONFileKV(filepath.Join(dir, "icons.json")), nil
	case BackendSQLite, "":
		return NewSQLiteKV(filepath.Join(dir, "icons.db"))
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
