// Package model holds the canonical record types shared by the crawler
// worker and the live directory: gallery discovery and state records,
// documents and comments, and the worker-to-directory report forms.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// GalleryKind distinguishes the three gallery shapes dcinside exposes.
// Mini galleries are recognized but never crawled.
type GalleryKind int

const (
	GalleryKindMajor GalleryKind = iota
	GalleryKindMinor
	GalleryKindMini
)

func (k GalleryKind) String() string {
	switch k {
	case GalleryKindMajor:
		return "major"
	case GalleryKindMinor:
		return "minor"
	case GalleryKindMini:
		return "mini"
	default:
		return "major"
	}
}

// ParseGalleryKind parses the lowercase wire form of a GalleryKind.
func ParseGalleryKind(s string) (GalleryKind, error) {
	switch s {
	case "major":
		return GalleryKindMajor, nil
	case "minor":
		return GalleryKindMinor, nil
	case "mini":
		return GalleryKindMini, nil
	default:
		return GalleryKindMajor, fmt.Errorf("model: unknown gallery kind %q", s)
	}
}

func (k GalleryKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *GalleryKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	kind, err := ParseGalleryKind(s)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// GalleryIndex is a discovery record produced by rank-feed ingestion.
type GalleryIndex struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Kind GalleryKind `json:"kind"`
	Rank *int        `json:"rank,omitempty"`
}

// GalleryState is the directory's durable per-gallery record.
type GalleryState struct {
	Index                    GalleryIndex           `json:"index"`
	LastRanked               time.Time              `json:"last_ranked"`
	LastCrawledAt            *time.Time             `json:"last_crawled_at,omitempty"`
	LastCrawledDocumentID    *int                   `json:"last_crawled_document_id,omitempty"`
	LastPublishedAt          *time.Time             `json:"last_published_at,omitempty"`
	PublishDurationInSeconds float64                `json:"publish_duration_in_seconds"`
	RegisteredAt             time.Time              `json:"registered_at"`
	Visible                  bool                   `json:"visible"`
	LastError                *CrawlerErrorReportKind `json:"last_error,omitempty"`
}

// UserKind is derived from the presence of a registered id vs a bare IP.
// It is never round-tripped as a stored discriminant: every caller
// reaches it through DeriveUserKind.
type UserKind int

const (
	UserKindUnknown UserKind = iota
	UserKindStatic
	UserKindDynamic
)

func (k UserKind) String() string {
	switch k {
	case UserKindStatic:
		return "static"
	case UserKindDynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

func (k UserKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// DeriveUserKind classifies a user from the emptiness of its id and ip.
// Static wins when an id is present regardless of ip; Dynamic requires
// an empty id and a non-empty ip; anything else is Unknown.
func DeriveUserKind(id, ip *string) UserKind {
	hasID := id != nil && *id != ""
	hasIP := ip != nil && *ip != ""
	switch {
	case hasID:
		return UserKindStatic
	case hasIP:
		return UserKindDynamic
	default:
		return UserKindUnknown
	}
}

// User is the author of a document or comment. Nickname is mandatory;
// id and ip are mutually informative but never both required.
type User struct {
	ID       *string  `json:"id,omitempty"`
	IP       *string  `json:"ip,omitempty"`
	Nickname string   `json:"nickname"`
	Kind     UserKind `json:"kind"`
}

// DocumentKind classifies the media attached to a listing row.
type DocumentKind int

const (
	DocumentKindText DocumentKind = iota
	DocumentKindPicture
	DocumentKindVideo
)

func (k DocumentKind) String() string {
	switch k {
	case DocumentKindPicture:
		return "picture"
	case DocumentKindVideo:
		return "video"
	default:
		return "text"
	}
}

func (k DocumentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// CommentKind classifies a comment's payload.
type CommentKind int

const (
	CommentKindText CommentKind = iota
	CommentKindCon
	CommentKindVoice
)

func (k CommentKind) String() string {
	switch k {
	case CommentKindCon:
		return "con"
	case CommentKindVoice:
		return "voice"
	default:
		return "text"
	}
}

func (k CommentKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// CommentKindFromContents derives a CommentKind from the raw payload
// prefix, matching the upstream's own markers.
func CommentKindFromContents(contents string) CommentKind {
	switch {
	case len(contents) >= 4 && contents[:4] == "<img":
		return CommentKindCon
	case len(contents) >= 3 && contents[:3] == "vr/":
		return CommentKindVoice
	default:
		return CommentKindText
	}
}

// DocumentIndex is a single listing-row record.
type DocumentIndex struct {
	GalleryID     string       `json:"gallery_id"`
	ID            int          `json:"id"`
	Title         string       `json:"title"`
	Subject       *string      `json:"subject,omitempty"`
	Author        User         `json:"author"`
	CommentCount  int          `json:"comment_count"`
	LikeCount     int          `json:"like_count"`
	ViewCount     int          `json:"view_count"`
	Kind          DocumentKind `json:"kind"`
	IsRecommend   bool         `json:"is_recommend"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Comment is one entry in a document's comment thread. ParentID is
// assigned after parsing by the threading rule, not by the wire format.
type Comment struct {
	ID        int        `json:"id"`
	Author    User       `json:"author"`
	Depth     int        `json:"depth"`
	Contents  string     `json:"contents"`
	Kind      CommentKind `json:"kind"`
	ParentID  *int       `json:"parent_id,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Document is the canonical record published downstream: gallery
// metadata plus every DocumentIndex field plus optional comments/body.
type Document struct {
	Gallery       GalleryIndex `json:"gallery"`
	GalleryID     string       `json:"gallery_id"`
	ID            int          `json:"id"`
	Title         string       `json:"title"`
	Subject       *string      `json:"subject,omitempty"`
	Author        User         `json:"author"`
	CommentCount  int          `json:"comment_count"`
	LikeCount     int          `json:"like_count"`
	ViewCount     int          `json:"view_count"`
	Kind          DocumentKind `json:"kind"`
	IsRecommend   bool         `json:"is_recommend"`
	CreatedAt     time.Time    `json:"created_at"`
	Comments      []Comment    `json:"comments,omitempty"`
	Body          *string      `json:"body,omitempty"`
}

// FromIndexes assembles a Document from a gallery, a listing row, its
// (possibly absent) comments and its (possibly absent) body.
func FromIndexes(gallery GalleryIndex, idx DocumentIndex, comments []Comment, body *string) Document {
	return Document{
		Gallery:      gallery,
		GalleryID:    idx.GalleryID,
		ID:           idx.ID,
		Title:        idx.Title,
		Subject:      idx.Subject,
		Author:       idx.Author,
		CommentCount: idx.CommentCount,
		LikeCount:    idx.LikeCount,
		ViewCount:    idx.ViewCount,
		Kind:         idx.Kind,
		IsRecommend:  idx.IsRecommend,
		CreatedAt:    idx.CreatedAt,
		Comments:     comments,
		Body:         body,
	}
}

// CrawlerErrorReportKind is the closed set of classified crawl errors
// the directory uses as its scheduling signal.
type CrawlerErrorReportKind int

const (
	CrawlerErrorUnknown CrawlerErrorReportKind = iota
	CrawlerErrorAdultPage
	CrawlerErrorMinorGalleryAccessNotAllowed
	CrawlerErrorMinorGalleryClosed
	CrawlerErrorMinorGalleryPromoted
	CrawlerErrorPageNotFound
)

func (k CrawlerErrorReportKind) String() string {
	switch k {
	case CrawlerErrorAdultPage:
		return "adult_page"
	case CrawlerErrorMinorGalleryAccessNotAllowed:
		return "minor_gallery_access_not_allowed"
	case CrawlerErrorMinorGalleryClosed:
		return "minor_gallery_closed"
	case CrawlerErrorMinorGalleryPromoted:
		return "minor_gallery_promoted"
	case CrawlerErrorPageNotFound:
		return "page_not_found"
	default:
		return "unknown"
	}
}

func (k CrawlerErrorReportKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

func (k *CrawlerErrorReportKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "adult_page":
		*k = CrawlerErrorAdultPage
	case "minor_gallery_access_not_allowed":
		*k = CrawlerErrorMinorGalleryAccessNotAllowed
	case "minor_gallery_closed":
		*k = CrawlerErrorMinorGalleryClosed
	case "minor_gallery_promoted":
		*k = CrawlerErrorMinorGalleryPromoted
	case "page_not_found":
		*k = CrawlerErrorPageNotFound
	default:
		*k = CrawlerErrorUnknown
	}
	return nil
}

// HidesGallery reports whether this error kind should flip a gallery's
// visibility off, per the directory's report-handling rule.
func (k CrawlerErrorReportKind) HidesGallery() bool {
	switch k {
	case CrawlerErrorPageNotFound, CrawlerErrorMinorGalleryClosed, CrawlerErrorMinorGalleryPromoted, CrawlerErrorAdultPage:
		return true
	default:
		return false
	}
}

// GalleryCrawlReportForm is the worker's success report to the directory.
type GalleryCrawlReportForm struct {
	WorkerPart             int       `json:"worker_part"`
	ID                     string    `json:"id"`
	LastCrawledAt          time.Time `json:"last_crawled_at"`
	LastCrawledDocumentID  *int      `json:"last_crawled_document_id,omitempty"`
	CrawledDocumentCount   int       `json:"crawled_document_count"`
}

// GalleryCrawlErrorReportForm is the worker's error report to the directory.
type GalleryCrawlErrorReportForm struct {
	WorkerPart    int                    `json:"worker_part"`
	ID            string                 `json:"id"`
	LastCrawledAt time.Time              `json:"last_crawled_at"`
	Error         CrawlerErrorReportKind `json:"error"`
}
