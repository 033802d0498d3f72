// Package directory implements the Live Directory: rank-feed
// ingestion, worker report handling, the EWMA publish-duration
// estimator, and shard listing with the adaptive wait-time filter.
package directory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/haneul/dcrawl/internal/crawler"
	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/store"
)

// Params configures the scheduling knobs spec.md's environment table
// names; all have the spec's defaults applied by internal/config.
type Params struct {
	GalleryKind           model.GalleryKind
	DocsPerCrawl          float64
	MinWaitSeconds        float64
	PubDurEstimateWeight1 float64
	PubDurEstimateWeight2 float64
}

// Service is the directory's in-process orchestrator over its store
// and the crawler it uses only for the two rank feeds.
type Service struct {
	store   store.Store
	crawler *crawler.Crawler
	params  Params
	logger  *zap.Logger
}

// New builds a Service.
func New(s store.Store, c *crawler.Crawler, params Params, logger *zap.Logger) *Service {
	return &Service{store: s, crawler: c, params: params, logger: logger}
}

// RunUpgrade runs the one-time, idempotent DB-upgrade step: backfill
// RegisteredAt on every record that predates the field.
func (s *Service) RunUpgrade(now time.Time) error {
	return s.store.BackfillRegisteredAt(now)
}

// IngestRank fetches the realtime-hot (configured kind) and
// weekly-hot (major only) feeds and merges every discovered gallery
// into the store.
func (s *Service) IngestRank(ctx context.Context) error {
	now := time.Now().UTC()

	hot, err := s.crawler.RealtimeHotGalleries(ctx, s.params.GalleryKind)
	if err != nil {
		return fmt.Errorf("directory: fetch realtime-hot galleries: %w", err)
	}
	for _, idx := range hot {
		if err := s.mergeGallery(idx, now, true); err != nil {
			return fmt.Errorf("directory: merge hot gallery %s: %w", idx.ID, err)
		}
	}

	weekly, err := s.crawler.WeeklyHotGalleries(ctx)
	if err != nil {
		return fmt.Errorf("directory: fetch weekly-hot galleries: %w", err)
	}
	for _, idx := range weekly {
		if err := s.mergeGallery(idx, now, false); err != nil {
			return fmt.Errorf("directory: merge weekly gallery %s: %w", idx.ID, err)
		}
	}

	return nil
}

// mergeGallery applies one rank sighting: create on first sighting, or
// update last_ranked/index and force visibility on a repeat sighting.
// A hot sighting additionally resets the publish-duration estimator so
// a freshly re-ranked gallery gets a fresh measurement; a weekly
// sighting of an already-present gallery otherwise leaves timing state
// untouched.
func (s *Service) mergeGallery(idx model.GalleryIndex, now time.Time, isHot bool) error {
	return s.store.FetchAndUpdate(idx.ID, func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		if !found {
			return &model.GalleryState{
				Index:        idx,
				LastRanked:   now,
				RegisteredAt: now,
				Visible:      true,
			}, nil
		}

		next := *existing
		next.LastRanked = now
		next.Index = idx
		next.Visible = true
		if isHot {
			next.LastPublishedAt = nil
			next.PublishDurationInSeconds = 0
		}
		return &next, nil
	})
}

// HandleReport applies a worker's success report: advances
// last_crawled_at and the monotone last_crawled_document_id, advances
// last_published_at only if any document was actually published, and
// recomputes the publish-duration EWMA.
func (s *Service) HandleReport(form model.GalleryCrawlReportForm) error {
	err := s.store.FetchAndUpdate(form.ID, func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		if !found {
			return nil, store.ErrNotFound
		}
		next := *existing

		anchor, anchorPresent := publishAnchor(next)
		elapsed := 0.0
		if anchorPresent {
			elapsed = form.LastCrawledAt.Sub(anchor).Seconds()
		}
		next.PublishDurationInSeconds = updatePublishDuration(
			next.PublishDurationInSeconds,
			s.params.PubDurEstimateWeight1,
			s.params.PubDurEstimateWeight2,
			elapsed,
			form.CrawledDocumentCount,
			anchorPresent,
		)

		if form.CrawledDocumentCount > 0 {
			t := form.LastCrawledAt
			next.LastPublishedAt = &t
		}

		crawledAt := form.LastCrawledAt
		next.LastCrawledAt = &crawledAt

		if form.LastCrawledDocumentID != nil {
			if next.LastCrawledDocumentID == nil || *form.LastCrawledDocumentID > *next.LastCrawledDocumentID {
				id := *form.LastCrawledDocumentID
				next.LastCrawledDocumentID = &id
			}
		}

		return &next, nil
	})
	if err != nil {
		return err
	}
	return nil
}

// HandleErrorReport applies a worker's classified error report: sets
// last_error, advances last_crawled_at, recomputes the EWMA with
// crawled_document_count treated as zero, and hides the gallery when
// the error is one of the four that indicate permanent unreachability.
func (s *Service) HandleErrorReport(form model.GalleryCrawlErrorReportForm) error {
	return s.store.FetchAndUpdate(form.ID, func(existing *model.GalleryState, found bool) (*model.GalleryState, error) {
		if !found {
			return nil, store.ErrNotFound
		}
		next := *existing

		anchor, anchorPresent := publishAnchor(next)
		elapsed := 0.0
		if anchorPresent {
			elapsed = form.LastCrawledAt.Sub(anchor).Seconds()
		}
		next.PublishDurationInSeconds = updatePublishDuration(
			next.PublishDurationInSeconds,
			s.params.PubDurEstimateWeight1,
			s.params.PubDurEstimateWeight2,
			elapsed,
			0,
			anchorPresent,
		)

		errKind := form.Error
		next.LastError = &errKind
		crawledAt := form.LastCrawledAt
		next.LastCrawledAt = &crawledAt
		if errKind.HidesGallery() {
			next.Visible = false
		}

		return &next, nil
	})
}

// ListShard returns every visible, eligible gallery whose id hashes
// into the given shard.
func (s *Service) ListShard(part, total uint64) ([]model.GalleryState, error) {
	now := time.Now().UTC()
	var result []model.GalleryState
	err := s.store.ForEach(func(id string, state model.GalleryState) error {
		if !store.Partition(id, total, part) {
			return nil
		}
		if !state.Visible {
			return nil
		}
		if !s.eligible(state, now) {
			return nil
		}
		result = append(result, state)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) eligible(state model.GalleryState, now time.Time) bool {
	anchor, anchorPresent := publishAnchor(state)
	if !anchorPresent {
		return true
	}
	elapsed := now.Sub(anchor).Seconds()
	waitTime := state.PublishDurationInSeconds * s.params.DocsPerCrawl
	if waitTime > s.params.MinWaitSeconds {
		waitTime = s.params.MinWaitSeconds
	}
	return elapsed >= waitTime
}

// publishAnchor is last_published_at if set, else registered_at if
// set; anchorPresent is false only for a record with neither (which
// the upgrade step should make unreachable in practice).
func publishAnchor(state model.GalleryState) (time.Time, bool) {
	if state.LastPublishedAt != nil {
		return *state.LastPublishedAt, true
	}
	if !state.RegisteredAt.IsZero() {
		return state.RegisteredAt, true
	}
	return time.Time{}, false
}
