package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haneul/dcrawl/internal/model"
)

func TestMemoryFetchAndUpdateCreatesOnAbsence(t *testing.T) {
	s := NewMemory()
	now := time.Now().UTC()

	err := s.FetchAndUpdate("g1", func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		require.False(t, found)
		return &model.GalleryState{
			Index:        model.GalleryIndex{ID: "g1"},
			LastRanked:   now,
			RegisteredAt: now,
			Visible:      true,
		}, nil
	})
	require.NoError(t, err)

	var got model.GalleryState
	err = s.FetchAndUpdate("g1", func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		require.True(t, found)
		got = *existing
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, got.Visible)
}

func TestMemoryFetchAndUpdateErrorsOnMissingKeyWhenCallerRequiresIt(t *testing.T) {
	s := NewMemory()
	err := s.FetchAndUpdate("missing", func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		if !found {
			return nil, ErrNotFound
		}
		return existing, nil
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBackfillRegisteredAtIsIdempotent(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.FetchAndUpdate("g1", func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		return &model.GalleryState{Index: model.GalleryIndex{ID: "g1"}}, nil
	}))

	first := time.Now().UTC()
	require.NoError(t, s.BackfillRegisteredAt(first))

	second := first.Add(time.Hour)
	require.NoError(t, s.BackfillRegisteredAt(second))

	var state model.GalleryState
	require.NoError(t, s.FetchAndUpdate("g1", func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		state = *existing
		return nil, nil
	}))
	assert.Equal(t, first.Unix(), state.RegisteredAt.Unix())
}

// TestPartitionIsDisjointAndExhaustive mirrors S2: every id lands in
// exactly one of `total` shards, and every shard's members are unique.
func TestPartitionIsDisjointAndExhaustive(t *testing.T) {
	const total = 4
	counts := make([]int, total)
	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("gallery-%d", i)
		hits := 0
		for part := uint64(0); part < total; part++ {
			if Partition(id, total, part) {
				hits++
				counts[part]++
			}
		}
		require.Equal(t, 1, hits, "id %s must land in exactly one shard", id)
	}
	sum := 0
	for _, c := range counts {
		sum += c
	}
	assert.Equal(t, 100, sum)
}
