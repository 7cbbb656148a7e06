// Package store persists JSON records as individual files under a root
// directory. The directory layout is the index: a key such as
// "sessions/abc/ralph-state" lives at <root>/sessions/abc/ralph-state.json.
//
// Writes replace the whole file through a temp file and rename, so readers
// in other processes see either the old or the new record, never a partial
// one. Reads are tolerant: a record that cannot be read or decoded is
// reported as absent and scans skip it.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const recordExt = ".json"

// Record is one raw entry returned by List.
type Record struct {
	Key  string
	Data []byte
}

// Store reads and writes records rooted at a fixed directory.
type Store struct {
	root string
}

// New creates a Store rooted at dir. The directory is created lazily on the
// first write.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// Path returns the file path backing key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key)+recordExt)
}

// Put marshals v and writes it under key.
func (s *Store) Put(key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", key, err)
	}
	return s.PutRaw(key, data)
}

// PutRaw writes data under key, replacing any existing record.
func (s *Store) PutRaw(key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	path := s.Path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	// Write atomically via temp file
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write record %s: %w", key, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename record %s: %w", key, err)
	}

	return nil
}

// GetRaw returns the bytes stored under key. Missing or unreadable records
// report found=false.
func (s *Store) GetRaw(key string) ([]byte, bool) {
	if validateKey(key) != nil {
		return nil, false
	}

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("warning: failed to read record %s: %v", key, err)
		}
		return nil, false
	}
	return data, true
}

// Get decodes the record under key into v. A record that fails to decode is
// treated as absent.
func (s *Store) Get(key string, v any) bool {
	data, ok := s.GetRaw(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Printf("warning: skipping malformed record %s: %v", key, err)
		return false
	}
	return true
}

// Delete removes the record under key. It reports whether a record existed.
func (s *Store) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	err := os.Remove(s.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return true, nil
}

// List returns every record directly under prefix, sorted by key. A missing
// prefix directory yields an empty list. Unreadable entries are skipped.
func (s *Store) List(prefix string) ([]Record, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(prefix))

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != recordExt || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}

		key := strings.TrimSuffix(name, recordExt)
		if prefix != "" {
			key = prefix + "/" + key
		}
		records = append(records, Record{Key: key, Data: data})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Key < records[j].Key
	})

	return records, nil
}

// Scan lists prefix and decodes each record into T. Records that fail to
// decode, or that validate rejects, are dropped.
func Scan[T any](s *Store, prefix string, validate func(*T) error) ([]T, error) {
	records, err := s.List(prefix)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			log.Printf("warning: skipping malformed record %s: %v", rec.Key, err)
			continue
		}
		if validate != nil {
			if err := validate(&v); err != nil {
				log.Printf("warning: skipping invalid record %s: %v", rec.Key, err)
				continue
			}
		}
		out = append(out, v)
	}

	return out, nil
}

var errBadKey = errors.New("invalid record key")

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("%w: %q", errBadKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("%w: %q", errBadKey, key)
		}
	}
	return nil
}
