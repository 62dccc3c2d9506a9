package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// FileKVStore persists entries as a single JSON object of string values. Every
// mutation rewrites the file through a temporary file and an atomic rename, so a
// crash never leaves a truncated store behind.
type FileKVStore struct {
	path    string
	mu      sync.RWMutex
	entries map[string]string
}

// NewFileKVStore opens the store at path, loading existing entries. A missing file
// is an empty store; it is created on the first write.
func NewFileKVStore(path string) (*FileKVStore, error) {
	f := &FileKVStore{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return f, nil
	case err != nil:
		return nil, apperrors.Wrap(err, "failed to read storage file")
	}

	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.entries); err != nil {
		return nil, apperrors.NewStorageParseError(filepath.Base(path), err)
	}
	return f, nil
}

// Get returns the value for key and whether it exists.
func (f *FileKVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.entries[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

// GetMany returns the values of the keys that exist.
func (f *FileKVStore) GetMany(_ context.Context, keys []string) (map[string][]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if v, ok := f.entries[key]; ok {
			out[key] = []byte(v)
		}
	}
	return out, nil
}

// Set stores value under key and flushes the file.
func (f *FileKVStore) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, existed := f.entries[key]
	f.entries[key] = string(value)
	if err := f.flush(); err != nil {
		if existed {
			f.entries[key] = prev
		} else {
			delete(f.entries, key)
		}
		return err
	}
	return nil
}

// Delete removes the keys and flushes the file.
func (f *FileKVStore) Delete(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	removed := make(map[string]string, len(keys))
	for _, key := range keys {
		if v, ok := f.entries[key]; ok {
			removed[key] = v
			delete(f.entries, key)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	if err := f.flush(); err != nil {
		for key, v := range removed {
			f.entries[key] = v
		}
		return err
	}
	return nil
}

// Keys returns every stored key in lexical order.
func (f *FileKVStore) Keys(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	keys := make([]string, 0, len(f.entries))
	for key := range f.entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// Close is a no-op; every write is synced to disk before it returns.
func (f *FileKVStore) Close() error {
	return nil
}

// flush must be called with f.mu held.
func (f *FileKVStore) flush() error {
	data, err := json.MarshalIndent(f.entries, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, "failed to encode storage file")
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return apperrors.Wrap(err, "failed to create storage directory")
	}

	tmp := f.path + ".tmp"
	if err := writeFileSync(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return apperrors.Wrap(err, "failed to write storage file")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return apperrors.Wrap(err, "failed to replace storage file")
	}
	if err := syncDir(filepath.Dir(f.path)); err != nil {
		return apperrors.Wrap(err, "failed to sync storage directory")
	}
	return nil
}

func writeFileSync(path string, data []byte) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// syncDir persists the rename. Platforms that cannot open a directory for
// syncing (Windows) skip it.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		if runtime.GOOS == "windows" {
			return nil
		}
		return err
	}
	defer func() { _ = d.Close() }()

	if err := d.Sync(); err != nil && runtime.GOOS != "windows" {
		return err
	}
	return nil
}
