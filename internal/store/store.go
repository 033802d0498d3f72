// Package store implements the directory's durable key-value store of
// per-gallery state: every mutation is an atomic fetch-and-update
// keyed by gallery id, backed either by an in-memory map (ephemeral,
// when STORE_PATH is empty) or by an embedded bbolt database.
package store

import (
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/haneul/dcrawl/internal/model"
)

// ErrNotFound is returned by FetchAndUpdate callers that require an
// existing key (report handling) when the id has never been seen.
var ErrNotFound = errors.New("store: gallery not found")

// UpdateFunc computes the next state of a gallery record given its
// current value (nil, found=false if the key is absent). Returning
// (nil, nil) leaves the record unchanged; returning an error aborts
// the mutation without writing anything.
type UpdateFunc func(existing *model.GalleryState, found bool) (*model.GalleryState, error)

// Store is the directory's per-gallery key-value store.
type Store interface {
	// FetchAndUpdate serializes concurrent updaters of the same key: it
	// reads the existing state (if any), calls fn, and writes back
	// whatever fn returns.
	FetchAndUpdate(id string, fn UpdateFunc) error

	// ForEach visits every stored record. Mutating the store from
	// within fn is not supported.
	ForEach(fn func(id string, state model.GalleryState) error) error

	// BackfillRegisteredAt is the one-time, idempotent "DB upgrade"
	// step: every record lacking RegisteredAt gets it backfilled to now.
	BackfillRegisteredAt(now time.Time) error

	Close() error
}

// Partition reports whether the gallery id hashes into the given
// shard, using a stable non-cryptographic hash so the result is
// deterministic across every worker process.
func Partition(id string, total, part uint64) bool {
	if total == 0 {
		return false
	}
	return xxhash.Sum64String(id)%total == part
}
