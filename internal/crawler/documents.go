package crawler

import (
	"context"
	"fmt"

	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/parser"
)

// DocumentOutcome pairs a listing row with either its assembled
// Document or the error that prevented assembly (most commonly a
// comment-fetch failure, which demotes the whole document without
// aborting the rest of the gallery).
type DocumentOutcome struct {
	Index    model.DocumentIndex
	Document *model.Document
	Err      error
}

// Documents assembles every document on or after startPage with no
// floor on id; equivalent to DocumentsAfter with lastID 0.
func (c *Crawler) Documents(ctx context.Context, gallery model.GalleryIndex, startPage int) ([]DocumentOutcome, error) {
	return c.DocumentsAfter(ctx, gallery, 0, startPage)
}

// DocumentsAfter enumerates new listing rows after lastID and, for
// each, fetches comments when comment_count > 0. The document body
// fetch is intentionally never invoked here: the interface preserves a
// slot for it (DocumentBody) but the site blocks high-volume body
// fetches, so it stays off by default.
func (c *Crawler) DocumentsAfter(ctx context.Context, gallery model.GalleryIndex, lastID int, startPage int) ([]DocumentOutcome, error) {
	indexes, err := c.DocumentIndexesAfter(ctx, gallery, lastID, startPage)
	if err != nil {
		return nil, err
	}

	outcomes := make([]DocumentOutcome, 0, len(indexes))
	for _, idx := range indexes {
		var comments []model.Comment
		if idx.CommentCount > 0 {
			fetched, err := c.Comments(ctx, gallery, idx.ID)
			if err != nil {
				outcomes = append(outcomes, DocumentOutcome{Index: idx, Err: err})
				continue
			}
			comments = fetched
		}
		doc := model.FromIndexes(gallery, idx, comments, nil)
		outcomes = append(outcomes, DocumentOutcome{Index: idx, Document: &doc})
	}
	return outcomes, nil
}

// DocumentBody fetches and extracts a single document's rendered body.
// Disabled by default in the worker's control loop; kept for callers
// that explicitly opt in.
func (c *Crawler) DocumentBody(ctx context.Context, gallery model.GalleryIndex, docID int) (string, error) {
	referer := c.client.Host() + "/board/lists?id=" + gallery.ID
	path := c.client.Host() + documentBodyPath(gallery, docID)

	body, err := backoffRetry(c, func() ([]byte, error) {
		return c.client.Get(ctx, path, referer)
	})
	if err != nil {
		return "", err
	}
	return parser.ParseDocumentBody(body)
}

func documentBodyPath(gallery model.GalleryIndex, docID int) string {
	return fmt.Sprintf("/board/view/?id=%s&no=%d&page=1", gallery.ID, docID)
}
