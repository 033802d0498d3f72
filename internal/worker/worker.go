// Package worker implements the crawler's control loop: pull a shard
// from the directory, order galleries by staleness, drive the crawler
// per gallery, publish new documents, and report outcomes back.
package worker

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/haneul/dcrawl/internal/crawler"
	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/publisher"
)

// Config parameterizes one worker process's shard and cadence.
type Config struct {
	Part          int
	Total         int
	StartPage     int
	SleepDuration time.Duration
}

// Worker runs the per-shard crawl cycle forever, isolating any panic
// within a single cycle so it restarts the loop rather than the
// process.
type Worker struct {
	cfg       Config
	directory *directoryClient
	crawler   *crawler.Crawler
	publisher *publisher.Publisher
	metrics   *Metrics
	logger    *zap.Logger
}

// New builds a Worker.
func New(directoryURL string, c *crawler.Crawler, p *publisher.Publisher, metrics *Metrics, cfg Config, logger *zap.Logger) *Worker {
	return &Worker{
		cfg:       cfg,
		directory: newDirectoryClient(directoryURL),
		crawler:   c,
		publisher: p,
		metrics:   metrics,
		logger:    logger,
	}
}

// RunForever repeatedly runs one cycle, sleeping cfg.SleepDuration
// between cycles, until ctx is cancelled. A panic inside a cycle is
// recovered and logged; the loop itself is not torn down.
func (w *Worker) RunForever(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		w.runCycleIsolated(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.cfg.SleepDuration):
		}
	}
}

func (w *Worker) runCycleIsolated(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("crawl cycle panicked, restarting next tick", zap.Any("panic", r))
		}
	}()
	if err := w.RunCycle(ctx); err != nil {
		w.logger.Error("crawl cycle failed", zap.Error(err))
	}
}

// RunCycle executes exactly one pass over the worker's shard.
func (w *Worker) RunCycle(ctx context.Context) error {
	galleries, err := w.directory.fetchShard(ctx, w.cfg.Part, w.cfg.Total)
	if err != nil {
		return fmt.Errorf("worker: fetch shard: %w", err)
	}

	sortByStaleness(galleries)

	for _, gallery := range galleries {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.crawlOne(ctx, gallery)
	}
	return nil
}

// sortByStaleness orders galleries by last_crawled_at ascending, with
// never-crawled galleries (nil) sorted first, so they always take
// priority over any previously-seen gallery.
func sortByStaleness(galleries []model.GalleryState) {
	sort.SliceStable(galleries, func(i, j int) bool {
		a, b := galleries[i].LastCrawledAt, galleries[j].LastCrawledAt
		switch {
		case a == nil && b == nil:
			return false
		case a == nil:
			return true
		case b == nil:
			return false
		default:
			return a.Before(*b)
		}
	})
}

func (w *Worker) crawlOne(ctx context.Context, gallery model.GalleryState) {
	now := time.Now().UTC()

	lastID := 0
	if gallery.LastCrawledDocumentID != nil && *gallery.LastCrawledDocumentID > 0 {
		lastID = *gallery.LastCrawledDocumentID
	}

	var (
		outcomes []crawler.DocumentOutcome
		err      error
	)
	if lastID > 0 {
		outcomes, err = w.crawler.DocumentsAfter(ctx, gallery.Index, lastID, w.cfg.StartPage)
	} else {
		outcomes, err = w.crawler.Documents(ctx, gallery.Index, w.cfg.StartPage)
	}

	if err != nil {
		w.metrics.GalleryError.Inc()
		w.reportGalleryError(ctx, gallery.Index.ID, now, err)
		return
	}
	w.metrics.GallerySuccess.Inc()

	maxID := lastID
	published := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			w.metrics.CommentError.Inc()
			w.metrics.DocumentError.Inc()
			w.logger.Warn("document demoted to error",
				zap.String("gallery", gallery.Index.ID),
				zap.Int("document_id", outcome.Index.ID),
				zap.Error(outcome.Err),
			)
			continue
		}

		if outcome.Index.ID > maxID {
			maxID = outcome.Index.ID
		}
		if err := w.publisher.Publish(ctx, *outcome.Document); err != nil {
			w.logger.Error("publish failed",
				zap.String("gallery", gallery.Index.ID),
				zap.Int("document_id", outcome.Index.ID),
				zap.Error(err),
			)
			w.metrics.DocumentError.Inc()
			continue
		}
		w.metrics.DocumentSuccess.Inc()
		if outcome.Index.CommentCount > 0 {
			w.metrics.CommentSuccess.Inc()
		}
		published++
	}

	w.reportGallerySuccess(ctx, gallery.Index.ID, now, maxID, lastID, len(outcomes))
}

func (w *Worker) reportGallerySuccess(ctx context.Context, id string, now time.Time, maxID, oldID int, count int) {
	var lastCrawledDocumentID *int
	if maxID > 0 {
		id := maxID
		lastCrawledDocumentID = &id
	} else if oldID > 0 {
		id := oldID
		lastCrawledDocumentID = &id
	}

	form := model.GalleryCrawlReportForm{
		WorkerPart:            w.cfg.Part,
		ID:                    id,
		LastCrawledAt:         now,
		LastCrawledDocumentID: lastCrawledDocumentID,
		CrawledDocumentCount:  count,
	}
	if err := w.directory.reportSuccess(ctx, form); err != nil {
		w.logger.Error("report success failed", zap.String("gallery", id), zap.Error(err))
	}
}

func (w *Worker) reportGalleryError(ctx context.Context, id string, now time.Time, crawlErr error) {
	form := model.GalleryCrawlErrorReportForm{
		WorkerPart:    w.cfg.Part,
		ID:            id,
		LastCrawledAt: now,
		Error:         crawler.Classify(crawlErr),
	}
	if err := w.directory.reportError(ctx, form); err != nil {
		w.logger.Error("report error failed", zap.String("gallery", id), zap.Error(err))
	}
}
