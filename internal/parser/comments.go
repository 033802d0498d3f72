package parser

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/haneul/dcrawl/internal/model"
)

// commentsResponse is the raw wire shape of a comment-page response:
// an array of raw comment objects and an HTML pagination fragment.
type commentsResponse struct {
	Comments   []rawComment `json:"comments"`
	Pagination *string      `json:"pagination"`
}

// rawComment mirrors the upstream's untidy field set: `no` arrives as
// either a JSON string or a JSON number, and the timestamp field name
// and format both vary by endpoint revision.
type rawComment struct {
	No          json.RawMessage `json:"no"`
	UserID      *string         `json:"user_id"`
	IP          *string         `json:"ip"`
	Name        string          `json:"name"`
	Depth       int             `json:"depth"`
	Memo        string          `json:"memo"`
	RegDate     *string         `json:"reg_date"`
	CommentDate *string         `json:"comment_date"`
}

func (c rawComment) toComment() (model.Comment, error) {
	id, err := parseStringOrInt(c.No)
	if err != nil {
		return model.Comment{}, fmt.Errorf("no: %w", err)
	}

	var idPtr, ipPtr *string
	if c.UserID != nil && *c.UserID != "" {
		idPtr = c.UserID
	}
	if c.IP != nil && *c.IP != "" {
		ipPtr = c.IP
	}

	author := model.User{
		ID:       idPtr,
		IP:       ipPtr,
		Nickname: c.Name,
		Kind:     model.DeriveUserKind(idPtr, ipPtr),
	}

	var createdAt *time.Time
	raw := c.RegDate
	if raw == nil {
		raw = c.CommentDate
	}
	if raw != nil && *raw != "" {
		t, err := parseCommentTimestamp(*raw)
		if err != nil {
			return model.Comment{}, fmt.Errorf("timestamp %q: %w", *raw, err)
		}
		createdAt = &t
	}

	return model.Comment{
		ID:        id,
		Author:    author,
		Depth:     c.Depth,
		Contents:  c.Memo,
		Kind:      model.CommentKindFromContents(c.Memo),
		CreatedAt: createdAt,
	}, nil
}

func parseStringOrInt(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("neither string nor int: %w", err)
	}
	return strconv.Atoi(s)
}

var commentTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
}

// parseCommentTimestamp handles both full `YYYY.MM.DD HH:MM:SS` (or
// dash-separated) timestamps and the short `MM.DD HH:MM:SS` form,
// which is interpreted in Asia/Seoul using the current local year.
func parseCommentTimestamp(s string) (time.Time, error) {
	for _, layout := range commentTimestampLayouts {
		if t, err := time.ParseInLocation(layout, s, seoulLocation); err == nil {
			return t.UTC(), nil
		}
	}

	year := time.Now().In(seoulLocation).Year()
	candidates := []struct {
		prefix string
		layout string
	}{
		{fmt.Sprintf("%d.", year), "2006.01.02 15:04:05"},
		{fmt.Sprintf("%d-", year), "2006-01-02 15:04:05"},
	}
	for _, c := range candidates {
		if t, err := time.ParseInLocation(c.layout, c.prefix+s, seoulLocation); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format")
}

// ParseComments decodes a comment-page response, threading parent ids
// and computing max_page from the pagination fragment. lastRootID
// seeds the threading walk for callers stitching together multiple
// pages (0 means no prior root comment is known).
func ParseComments(body []byte, lastRootID int) ([]model.Comment, int, error) {
	var resp commentsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("parser: decode comments response: %w", err)
	}

	comments := make([]model.Comment, 0, len(resp.Comments))
	for i, raw := range resp.Comments {
		c, err := raw.toComment()
		if err != nil {
			return nil, 0, fmt.Errorf("parser: comment %d: %w", i, err)
		}
		comments = append(comments, c)
	}

	ThreadComments(comments, lastRootID)

	maxPage := 0
	if resp.Pagination != nil {
		maxPage = maxPageFromPagination(*resp.Pagination)
	}

	return comments, maxPage, nil
}

// ThreadComments applies the parent-assignment rule in place: walking
// in order, a depth==0 comment with a positive id becomes the new
// root; any depth>0 comment inherits that root as its parent. Comments
// with id==0 at depth 0 are "deleted" placeholders and must not
// overwrite the threading context.
func ThreadComments(comments []model.Comment, lastRootID int) {
	for i := range comments {
		c := &comments[i]
		if c.Depth == 0 {
			if c.ID > 0 {
				lastRootID = c.ID
			}
			continue
		}
		if lastRootID > 0 {
			parent := lastRootID
			c.ParentID = &parent
		}
	}
}

func maxPageFromPagination(fragment string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return 0
	}
	max := 0
	doc.Find("em, a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if n, err := strconv.Atoi(text); err == nil && n > max {
			max = n
		}
	})
	return max
}
