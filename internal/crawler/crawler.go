// Package crawler composes the site client, the HTML/JSON parsers and
// the backoff kernel into the per-gallery pagination loop: listing
// enumeration, comment threading across pages, and document assembly.
package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/haneul/dcrawl/internal/backoff"
	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/parser"
	"github.com/haneul/dcrawl/internal/siteclient"
)

// ErrMiniUnsupported is returned before any fetch when asked to crawl
// a Mini gallery: Mini is a recognized kind but never crawled.
var ErrMiniUnsupported = errors.New("crawler: mini galleries are not crawled")

// maxPages bounds listing and comment pagination loops against
// pathological or adversarial page counts.
const maxPages = 1000

const (
	hotGalleriesPath    = "/json1/ranking_gallery.php"
	weeklyGalleriesPath = "/json1/ranking_gallery_week.php"
	jsonHost            = "https://json2.dcinside.com"
	galleryReferer      = "https://gall.dcinside.com/"
)

// Crawler drives one gallery's pagination loop. It caches the
// anti-CSRF e_s_n_o token harvested from listing pages, since the
// comment-POST endpoint requires it.
type Crawler struct {
	client *siteclient.Client

	mu    sync.Mutex
	esno  string

	delay      time.Duration
	backoffCfg backoff.Config
	logger     *zap.Logger
}

// Option configures a Crawler at construction time.
type Option func(*Crawler)

// WithDelay overrides the default 100ms inter-page delay.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) { c.delay = d }
}

// WithLogger attaches a logger used for retry diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Crawler) { c.logger = logger }
}

// New builds a Crawler over an already-configured site client.
func New(client *siteclient.Client, opts ...Option) *Crawler {
	c := &Crawler{
		client: client,
		delay:  100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.backoffCfg = backoff.Config{
		BaseDelay:          time.Second,
		MaxCumulativeDelay: 10 * time.Second,
		IsTerminal:         isTerminalCrawlError,
		Logger:             c.logger,
	}
	return c
}

func isTerminalCrawlError(err error) bool {
	return errors.Is(err, siteclient.ErrPageNotFound) ||
		errors.Is(err, parser.ErrAdultPage) ||
		errors.Is(err, parser.ErrMinorGalleryClosed) ||
		errors.Is(err, parser.ErrMinorGalleryPromoted) ||
		errors.Is(err, parser.ErrMinorGalleryAccessNotAllowed)
}

// Classify maps a crawl error onto the directory's closed scheduling
// signal, mirroring the original implementation's error classification.
func Classify(err error) model.CrawlerErrorReportKind {
	switch {
	case errors.Is(err, siteclient.ErrPageNotFound):
		return model.CrawlerErrorPageNotFound
	case errors.Is(err, parser.ErrAdultPage):
		return model.CrawlerErrorAdultPage
	case errors.Is(err, parser.ErrMinorGalleryClosed):
		return model.CrawlerErrorMinorGalleryClosed
	case errors.Is(err, parser.ErrMinorGalleryPromoted):
		return model.CrawlerErrorMinorGalleryPromoted
	case errors.Is(err, parser.ErrMinorGalleryAccessNotAllowed):
		return model.CrawlerErrorMinorGalleryAccessNotAllowed
	default:
		return model.CrawlerErrorUnknown
	}
}

func jsonpCallback() string {
	return fmt.Sprintf("jQuery%d_%d", time.Now().UnixNano()%1_000_000_000, time.Now().UnixMilli())
}

// RealtimeHotGalleries fetches the realtime-hot JSONP feed for the
// given kind (Major or Minor; Mini is rejected).
func (c *Crawler) RealtimeHotGalleries(ctx context.Context, kind model.GalleryKind) ([]model.GalleryIndex, error) {
	return c.fetchHotGalleries(ctx, hotGalleriesPath, kind)
}

// WeeklyHotGalleries fetches the weekly-hot JSONP feed, major only.
func (c *Crawler) WeeklyHotGalleries(ctx context.Context) ([]model.GalleryIndex, error) {
	return c.fetchHotGalleries(ctx, weeklyGalleriesPath, model.GalleryKindMajor)
}

func (c *Crawler) fetchHotGalleries(ctx context.Context, path string, kind model.GalleryKind) ([]model.GalleryIndex, error) {
	if kind == model.GalleryKindMini {
		return nil, ErrMiniUnsupported
	}
	cb := jsonpCallback()
	q := url.Values{}
	q.Set("jsoncallback", cb)
	q.Set("_", strconv.FormatInt(time.Now().UnixMilli(), 10))

	body, err := backoff.Retry(c.backoffCfg, func() ([]byte, error) {
		return c.client.Get(ctx, jsonHost+path+"?"+q.Encode(), galleryReferer)
	})
	if err != nil {
		return nil, fmt.Errorf("crawler: fetch hot galleries: %w", err)
	}

	stripped, err := siteclient.StripJSONP(body, cb)
	if err != nil {
		return nil, fmt.Errorf("crawler: strip jsonp: %w", err)
	}

	var galleries []model.GalleryIndex
	dec := json.NewDecoder(bytes.NewReader(stripped))
	if err := dec.Decode(&galleries); err != nil {
		return nil, fmt.Errorf("crawler: decode hot galleries: %w", err)
	}
	for i := range galleries {
		galleries[i].Kind = kind
	}
	return galleries, nil
}

func listingPath(gallery model.GalleryIndex, page int) (string, error) {
	switch gallery.Kind {
	case model.GalleryKindMajor:
		return fmt.Sprintf("/board/lists?id=%s&list_num=100&page=%d", gallery.ID, page), nil
	case model.GalleryKindMinor:
		return fmt.Sprintf("/mgallery/board/lists?id=%s&list_num=100&page=%d", gallery.ID, page), nil
	default:
		return "", ErrMiniUnsupported
	}
}

func galltype(kind model.GalleryKind) string {
	if kind == model.GalleryKindMinor {
		return "M"
	}
	return "G"
}
