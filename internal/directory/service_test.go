package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/store"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	s := store.NewMemory()
	svc := New(s, nil, Params{
		GalleryKind:           model.GalleryKindMajor,
		DocsPerCrawl:          10,
		MinWaitSeconds:        10800,
		PubDurEstimateWeight1: 0.0999,
		PubDurEstimateWeight2: 0.0001,
	}, nil)
	return svc, s
}

func seedGallery(t *testing.T, s store.Store, id string, state model.GalleryState) {
	t.Helper()
	require.NoError(t, s.FetchAndUpdate(id, func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		return &state, nil
	}))
}

// S3: a terminal error report flips visibility off, and a later rank
// sighting restores it.
func TestErrorReportHidesGalleryAndRankSightingRestoresIt(t *testing.T) {
	svc, s := newTestService(t)
	now := time.Now().UTC()
	seedGallery(t, s, "g1", model.GalleryState{
		Index:        model.GalleryIndex{ID: "g1"},
		RegisteredAt: now,
		Visible:      true,
	})

	err := svc.HandleErrorReport(model.GalleryCrawlErrorReportForm{
		ID:            "g1",
		LastCrawledAt: now,
		Error:         model.CrawlerErrorMinorGalleryClosed,
	})
	require.NoError(t, err)

	list, err := svc.ListShard(0, 1)
	require.NoError(t, err)
	assert.Len(t, list, 0)

	require.NoError(t, svc.mergeGallery(model.GalleryIndex{ID: "g1"}, now.Add(time.Minute), true))

	list, err = svc.ListShard(0, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Visible)
}

// P4: reporting on an unknown id 404s (here: surfaces ErrNotFound) and
// leaves the store untouched.
func TestReportOnUnknownIDIsNotFound(t *testing.T) {
	svc, s := newTestService(t)
	err := svc.HandleReport(model.GalleryCrawlReportForm{ID: "ghost", LastCrawledAt: time.Now().UTC()})
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.ForEach(func(id string, state model.GalleryState) error {
		t.Fatalf("store should remain empty, found %s", id)
		return nil
	})
	require.NoError(t, err)
}

// S4: with w1=0.1, w2=0 and publish_duration starting at 0, two
// reports 100s/1 doc apart each yield 10 then 19.
func TestEWMASettlesPerScenarioS4(t *testing.T) {
	s := store.NewMemory()
	svc := New(s, nil, Params{
		DocsPerCrawl:          10,
		MinWaitSeconds:        10800,
		PubDurEstimateWeight1: 0.1,
		PubDurEstimateWeight2: 0,
	}, nil)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seedGallery(t, s, "g1", model.GalleryState{
		Index:        model.GalleryIndex{ID: "g1"},
		RegisteredAt: base,
		Visible:      true,
	})

	require.NoError(t, svc.HandleReport(model.GalleryCrawlReportForm{
		ID:                   "g1",
		LastCrawledAt:        base.Add(100 * time.Second),
		CrawledDocumentCount: 1,
	}))
	var state model.GalleryState
	require.NoError(t, s.FetchAndUpdate("g1", func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		state = *existing
		return nil, nil
	}))
	assert.InDelta(t, 10, state.PublishDurationInSeconds, 0.01)

	require.NoError(t, svc.HandleReport(model.GalleryCrawlReportForm{
		ID:                   "g1",
		LastCrawledAt:        base.Add(200 * time.Second),
		CrawledDocumentCount: 1,
	}))
	require.NoError(t, s.FetchAndUpdate("g1", func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		state = *existing
		return nil, nil
	}))
	assert.InDelta(t, 19, state.PublishDurationInSeconds, 0.01)
}

// S6: wait filter boundary at 600s with a 60s publish duration.
func TestWaitFilterScenarioS6(t *testing.T) {
	svc, s := newTestService(t)
	now := time.Now().UTC()

	lastPublished := now.Add(-500 * time.Second)
	seedGallery(t, s, "g1", model.GalleryState{
		Index:                    model.GalleryIndex{ID: "g1"},
		RegisteredAt:             now.Add(-time.Hour),
		LastPublishedAt:          &lastPublished,
		PublishDurationInSeconds: 60,
		Visible:                  true,
	})
	list, err := svc.ListShard(0, 1)
	require.NoError(t, err)
	assert.Len(t, list, 0, "500s elapsed against a 600s wait should be ineligible")

	lastPublished2 := now.Add(-700 * time.Second)
	seedGallery(t, s, "g1", model.GalleryState{
		Index:                    model.GalleryIndex{ID: "g1"},
		RegisteredAt:             now.Add(-time.Hour),
		LastPublishedAt:          &lastPublished2,
		PublishDurationInSeconds: 60,
		Visible:                  true,
	})
	list, err = svc.ListShard(0, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1, "700s elapsed against a 600s wait should be eligible")
}
