package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/haneul/dcrawl/internal/model"
)

var galleriesBucket = []byte("galleries")

// boltStore persists GalleryState records in a single bbolt bucket,
// keyed by gallery id, JSON-encoded per record. bbolt's own
// transactions are the serialization point for concurrent updaters.
type boltStore struct {
	db *bolt.DB
}

// NewBolt opens (creating if absent) a bbolt database at path and
// ensures the galleries bucket exists.
func NewBolt(path string) (Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open bbolt at %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(galleriesBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create bucket: %w", err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) FetchAndUpdate(id string, fn UpdateFunc) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(galleriesBucket)

		var (
			existing    model.GalleryState
			existingPtr *model.GalleryState
			found       bool
		)
		if raw := bucket.Get([]byte(id)); raw != nil {
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("store: decode state for %q: %w", id, err)
			}
			existingPtr = &existing
			found = true
		}

		next, err := fn(existingPtr, found)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}

		encoded, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("store: encode state for %q: %w", id, err)
		}
		return bucket.Put([]byte(id), encoded)
	})
}

func (s *boltStore) ForEach(fn func(id string, state model.GalleryState) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(galleriesBucket)
		return bucket.ForEach(func(k, v []byte) error {
			var state model.GalleryState
			if err := json.Unmarshal(v, &state); err != nil {
				return fmt.Errorf("store: decode state for %q: %w", string(k), err)
			}
			return fn(string(k), state)
		})
	})
}

func (s *boltStore) BackfillRegisteredAt(now time.Time) error {
	// bbolt forbids mutating a bucket while a cursor walks it, so the
	// keys needing a backfill are collected in one pass and written in
	// a second.
	type pending struct {
		key   []byte
		state model.GalleryState
	}
	var todo []pending

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(galleriesBucket)
		return bucket.ForEach(func(k, v []byte) error {
			var state model.GalleryState
			if err := json.Unmarshal(v, &state); err != nil {
				return fmt.Errorf("store: decode state for %q: %w", string(k), err)
			}
			if state.RegisteredAt.IsZero() {
				key := append([]byte(nil), k...)
				todo = append(todo, pending{key: key, state: state})
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	if len(todo) == 0 {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(galleriesBucket)
		for _, p := range todo {
			p.state.RegisteredAt = now
			encoded, err := json.Marshal(p.state)
			if err != nil {
				return err
			}
			if err := bucket.Put(p.key, encoded); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStore) Close() error {
	return s.db.Close()
}
