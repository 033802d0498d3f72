package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/haneul/dcrawl/internal/model"
)

func TestSortByStalenessPutsNeverCrawledFirst(t *testing.T) {
	older := time.Now().Add(-2 * time.Hour)
	newer := time.Now().Add(-time.Hour)

	galleries := []model.GalleryState{
		{Index: model.GalleryIndex{ID: "newer"}, LastCrawledAt: &newer},
		{Index: model.GalleryIndex{ID: "never"}},
		{Index: model.GalleryIndex{ID: "older"}, LastCrawledAt: &older},
	}

	sortByStaleness(galleries)

	assert.Equal(t, "never", galleries[0].Index.ID)
	assert.Equal(t, "older", galleries[1].Index.ID)
	assert.Equal(t, "newer", galleries[2].Index.ID)
}
