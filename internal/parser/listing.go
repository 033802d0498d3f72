package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/haneul/dcrawl/internal/model"
)

const seoulDateLayout = "2006-01-02 15:04:05"

var seoulLocation = mustLoadSeoul()

func mustLoadSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("Asia/Seoul", 9*60*60)
	}
	return loc
}

// RowError is a single listing row that failed to parse. Row-level
// failures are collected, not fatal: the page still yields every row
// that did parse.
type RowError struct {
	Index int
	Err   error
}

func (e RowError) Error() string {
	return fmt.Sprintf("parser: row %d: %v", e.Index, e.Err)
}

// ParseListing extracts every DocumentIndex from a gallery listing
// page, or a terminal-state error if the body indicates the gallery is
// unreachable by design. Row-level failures are returned alongside the
// successfully parsed rows rather than aborting the page.
func ParseListing(body []byte, galleryID string) ([]model.DocumentIndex, []RowError, error) {
	if err := detectTerminalState(body); err != nil {
		return nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, nil, fmt.Errorf("parser: parse listing html: %w", err)
	}

	if sel := doc.Find(".migall_state"); sel.Length() > 0 {
		if class, _ := sel.Attr("class"); strings.Contains(class, "restriction") {
			return nil, nil, ErrMinorGalleryAccessNotAllowed
		}
	}

	var (
		rows   []model.DocumentIndex
		errs   []RowError
		rowIdx int
	)
	doc.Find(".us-post").Each(func(_ int, row *goquery.Selection) {
		rowIdx++
		idx, err := parseRow(row, galleryID)
		if err != nil {
			errs = append(errs, RowError{Index: rowIdx, Err: err})
			return
		}
		rows = append(rows, idx)
	})

	return rows, errs, nil
}

func parseRow(row *goquery.Selection, galleryID string) (model.DocumentIndex, error) {
	idText := strings.TrimSpace(row.Find(".gall_num").Text())
	id, err := strconv.Atoi(idText)
	if err != nil {
		return model.DocumentIndex{}, fmt.Errorf("gall_num %q: %w", idText, err)
	}

	title := strings.TrimSpace(row.Find(".gall_tit a").Text())

	var subject *string
	if s := strings.TrimSpace(row.Find(".gall_subject").Text()); s != "" {
		subject = &s
	}

	writer := row.Find(".gall_writer")
	nickname, _ := writer.Attr("data-nick")
	var idPtr, ipPtr *string
	if uid, ok := writer.Attr("data-uid"); ok && uid != "" {
		idPtr = &uid
	}
	if ip, ok := writer.Attr("data-ip"); ok && ip != "" {
		ipPtr = &ip
	}
	author := model.User{
		ID:       idPtr,
		IP:       ipPtr,
		Nickname: nickname,
		Kind:     model.DeriveUserKind(idPtr, ipPtr),
	}

	commentCount := 0
	if raw := strings.TrimSpace(row.Find(".reply_numbox").Text()); raw != "" {
		raw = strings.Trim(raw, "[]")
		raw = strings.TrimSpace(raw)
		if raw != "" {
			if n, err := strconv.Atoi(raw); err == nil {
				commentCount = n
			}
		}
	}

	likeCount, err := parseIntField(row.Find(".gall_recommend").Text())
	if err != nil {
		return model.DocumentIndex{}, fmt.Errorf("gall_recommend: %w", err)
	}
	viewCount, err := parseIntField(row.Find(".gall_count").Text())
	if err != nil {
		return model.DocumentIndex{}, fmt.Errorf("gall_count: %w", err)
	}

	kind := model.DocumentKindText
	switch {
	case row.Find(".icon_movie").Length() > 0:
		kind = model.DocumentKindVideo
	case row.Find(".icon_pic").Length() > 0:
		kind = model.DocumentKindPicture
	}

	isRecommend := row.Find(".icon_recom").Length() > 0

	createdAt, err := parseListingDate(row.Find(".gall_date"))
	if err != nil {
		return model.DocumentIndex{}, fmt.Errorf("gall_date: %w", err)
	}

	return model.DocumentIndex{
		GalleryID:    galleryID,
		ID:           id,
		Title:        title,
		Subject:      subject,
		Author:       author,
		CommentCount: commentCount,
		LikeCount:    likeCount,
		ViewCount:    viewCount,
		Kind:         kind,
		IsRecommend:  isRecommend,
		CreatedAt:    createdAt,
	}, nil
}

func parseIntField(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("missing field")
	}
	raw = strings.ReplaceAll(raw, ",", "")
	return strconv.Atoi(raw)
}

func parseListingDate(sel *goquery.Selection) (time.Time, error) {
	title, ok := sel.Attr("title")
	if !ok || title == "" {
		return time.Time{}, fmt.Errorf("missing title attribute")
	}
	local, err := time.ParseInLocation(seoulDateLayout, title, seoulLocation)
	if err != nil {
		return time.Time{}, err
	}
	return local.UTC(), nil
}

// ExtractESNO pulls the anti-CSRF token out of a listing page, per the
// glossary's `#e_s_n_o@value` locator.
func ExtractESNO(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", false
	}
	val, ok := doc.Find("#e_s_n_o").Attr("value")
	if !ok || val == "" {
		return "", false
	}
	return val, true
}

// ParseDocumentBody extracts the rendered post body from a view page.
// The crawler keeps a slot for this but does not call it by default;
// the site blocks high-volume body fetches.
func ParseDocumentBody(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parser: parse document body html: %w", err)
	}
	sel := doc.Find(".write_div")
	if sel.Length() == 0 {
		return "", fmt.Errorf("parser: .write_div not found")
	}
	html, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("parser: render .write_div: %w", err)
	}
	return html, nil
}
