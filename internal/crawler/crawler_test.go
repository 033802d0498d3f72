package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/siteclient"
)

func TestListingPathRejectsMini(t *testing.T) {
	_, err := listingPath(model.GalleryIndex{ID: "x", Kind: model.GalleryKindMini}, 1)
	assert.ErrorIs(t, err, ErrMiniUnsupported)
}

func TestListingPathMajorVsMinor(t *testing.T) {
	major, err := listingPath(model.GalleryIndex{ID: "programming", Kind: model.GalleryKindMajor}, 2)
	assert.NoError(t, err)
	assert.Contains(t, major, "/board/lists?id=programming")

	minor, err := listingPath(model.GalleryIndex{ID: "programming", Kind: model.GalleryKindMinor}, 2)
	assert.NoError(t, err)
	assert.Contains(t, minor, "/mgallery/board/lists?id=programming")
}

func TestGalltype(t *testing.T) {
	assert.Equal(t, "G", galltype(model.GalleryKindMajor))
	assert.Equal(t, "M", galltype(model.GalleryKindMinor))
}

func TestClassifyMapsSentinelErrors(t *testing.T) {
	assert.Equal(t, model.CrawlerErrorPageNotFound, Classify(siteclient.ErrPageNotFound))
}

func TestDocumentBodyPathUsesGalleryIDNotDocID(t *testing.T) {
	path := documentBodyPath(model.GalleryIndex{ID: "programming"}, 12345)
	assert.Equal(t, "/board/view/?id=programming&no=12345&page=1", path)
}
