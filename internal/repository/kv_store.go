package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// KVStore is the simple key-value backend: a single JSON document file
// holding every record, loaded on open and rewritten atomically on each
// mutation. It mirrors a mobile flat preferences store.
type KVStore struct {
	path string
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

// OpenKV opens (or creates) a key-value store at path.
func OpenKV(path string) (*KVStore, error) {
	s := &KVStore{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key-value store: %w", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("failed to parse key-value store: %w", err)
		}
	}
	return s, nil
}

// Path returns the file the store persists to.
func (s *KVStore) Path() string {
	return s.path
}

// persistLocked writes the whole map to disk via tmp-file rename.
// Caller must hold mu.
func (s *KVStore) persistLocked() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode key-value store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write key-value store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace key-value store: %w", err)
	}
	return nil
}

// Get unmarshals the value for key into out. Returns false when absent.
func (s *KVStore) Get(key string, out any) (bool, error) {
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("failed to decode value for %s: %w", key, err)
	}
	return true, nil
}

// Put stores a value under key and persists immediately.
func (s *KVStore) Put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value for %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return s.persistLocked()
}

// Delete removes a key and persists immediately. Returns whether it existed.
func (s *KVStore) Delete(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return false, nil
	}
	delete(s.data, key)
	if err := s.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Keys returns all keys with the given prefix, sorted for determinism.
func (s *KVStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
