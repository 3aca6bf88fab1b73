// Package cache persists fetched pages in a local bbolt file so a URL is
// downloaded at most once across runs.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Adda-Baaj/saptahik/internal/domain"
)

var pagesBucket = []byte("pages")

// ErrNotFound is returned by Get when the URL has no cached entry.
var ErrNotFound = errors.New("cache: entry not found")

// Store is a URL keyed key-value store backed by bbolt.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the bbolt file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pagesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure cache bucket: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the cached entry for url, or ErrNotFound.
func (s *Store) Get(url string) (domain.CacheEntry, error) {
	var entry domain.CacheEntry

	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(pagesBucket).Get([]byte(url))
		if raw == nil {
			return ErrNotFound
		}
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.CacheEntry{}, ErrNotFound
		}
		return domain.CacheEntry{}, fmt.Errorf("cache get %s: %w", url, err)
	}
	return entry, nil
}

// Put stores the entry under its URL, replacing any previous value.
func (s *Store) Put(entry domain.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", entry.URL, err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pagesBucket).Put([]byte(entry.URL), raw)
	})
	if err != nil {
		return fmt.Errorf("cache put %s: %w", entry.URL, err)
	}
	return nil
}

// Delete removes the entry for url. Deleting a missing entry is not an
// error.
func (s *Store) Delete(url string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pagesBucket).Delete([]byte(url))
	})
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", url, err)
	}
	return nil
}

// Len reports the number of cached entries.
func (s *Store) Len() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(pagesBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the underlying bbolt file.
func (s *Store) Close() error {
	return s.db.Close()
}
