package crawler

import (
	"context"
	"fmt"

	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/parser"
)

// DocumentIndexesAfter enumerates listing pages starting at startPage,
// stopping when the next page is empty, has no parseable rows, or the
// smallest accumulated id has fallen to or below lastID. It sleeps the
// configured delay between pages and returns only rows newer than
// lastID.
func (c *Crawler) DocumentIndexesAfter(ctx context.Context, gallery model.GalleryIndex, lastID int, startPage int) ([]model.DocumentIndex, error) {
	if gallery.Kind == model.GalleryKindMini {
		return nil, ErrMiniUnsupported
	}

	var all []model.DocumentIndex
	for page := startPage; page < startPage+maxPages; page++ {
		rows, err := c.fetchListingPage(ctx, gallery, page)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		all = append(all, rows...)

		smallest := rows[len(rows)-1].ID
		for _, r := range rows {
			if r.ID < smallest {
				smallest = r.ID
			}
		}
		if smallest <= lastID {
			break
		}

		if err := sleepCtx(ctx, c.delay); err != nil {
			return nil, err
		}
	}

	var fresh []model.DocumentIndex
	for _, r := range all {
		if r.ID > lastID {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}

func (c *Crawler) fetchListingPage(ctx context.Context, gallery model.GalleryIndex, page int) ([]model.DocumentIndex, error) {
	path, err := listingPath(gallery, page)
	if err != nil {
		return nil, err
	}

	body, err := backoffRetry(c, func() ([]byte, error) {
		return c.client.Get(ctx, c.client.Host()+path, galleryReferer)
	})
	if err != nil {
		return nil, fmt.Errorf("crawler: fetch listing page %d: %w", page, err)
	}

	if esno, ok := parser.ExtractESNO(body); ok {
		c.mu.Lock()
		c.esno = esno
		c.mu.Unlock()
	}

	rows, _, err := parser.ParseListing(body, gallery.ID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
