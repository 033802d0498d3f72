package crawler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/parser"
)

// Comments fetches every comment page for a document, threading parent
// ids across page boundaries and returning the whole thread in
// chronological order. The upstream returns newest-first from page 2
// onward but chronological on page 1; pages are accumulated reversed
// and the final list is reversed once more to restore chronology.
func (c *Crawler) Comments(ctx context.Context, gallery model.GalleryIndex, docID int) ([]model.Comment, error) {
	if err := c.ensureESNO(ctx, gallery); err != nil {
		return nil, err
	}

	var pages [][]model.Comment
	lastRootID := 0
	for page := 1; page <= maxPages; page++ {
		comments, maxPage, err := c.fetchCommentsPage(ctx, gallery, docID, page, lastRootID)
		if err != nil {
			return nil, err
		}
		if len(comments) == 0 {
			break
		}
		for i := range comments {
			if comments[i].Depth == 0 && comments[i].ID > 0 {
				lastRootID = comments[i].ID
			}
		}
		pages = append(pages, comments)
		if maxPage <= page {
			break
		}

		if err := sleepCtx(ctx, c.delay); err != nil {
			return nil, err
		}
	}

	var all []model.Comment
	for i := len(pages) - 1; i >= 0; i-- {
		all = append(all, pages[i]...)
	}
	reverseComments(all)
	return all, nil
}

func reverseComments(c []model.Comment) {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

func (c *Crawler) fetchCommentsPage(ctx context.Context, gallery model.GalleryIndex, docID, page, lastRootID int) ([]model.Comment, int, error) {
	c.mu.Lock()
	esno := c.esno
	c.mu.Unlock()

	sort := "D"
	if page == 1 {
		sort = ""
	}

	form := url.Values{}
	form.Set("id", gallery.ID)
	form.Set("no", strconv.Itoa(docID))
	form.Set("cmt_id", gallery.ID)
	form.Set("cmt_no", strconv.Itoa(docID))
	form.Set("e_s_n_o", esno)
	form.Set("comment_page", strconv.Itoa(page))
	form.Set("sort", sort)
	form.Set("prevCnt", "0")
	form.Set("_GALLTYPE_", galltype(gallery.Kind))

	referer := fmt.Sprintf("https://gall.dcinside.com/board/view/?id=%s&no=%d&_rk=tDl&page=1", gallery.ID, docID)

	body, err := backoffRetry(c, func() ([]byte, error) {
		return c.client.PostForm(ctx, c.client.Host()+"/board/comment", form, referer)
	})
	if err != nil {
		return nil, 0, fmt.Errorf("crawler: fetch comments page %d: %w", page, err)
	}

	return parser.ParseComments(body, lastRootID)
}

// ensureESNO harvests the anti-CSRF token from page 1 of the gallery's
// listing if the crawler has none cached yet.
func (c *Crawler) ensureESNO(ctx context.Context, gallery model.GalleryIndex) error {
	c.mu.Lock()
	have := c.esno != ""
	c.mu.Unlock()
	if have {
		return nil
	}
	_, err := c.fetchListingPage(ctx, gallery, 1)
	return err
}
