package publisher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/haneul/dcrawl/internal/model"
)

func TestDocumentRoundTripsThroughMsgpack(t *testing.T) {
	createdAt := time.Date(2021, 1, 10, 8, 20, 43, 0, time.UTC)
	subject := "subject line"
	id := "author-id"

	doc := model.Document{
		Gallery:   model.GalleryIndex{ID: "programming", Name: "programming gallery", Kind: model.GalleryKindMajor},
		GalleryID: "programming",
		ID:        12345,
		Title:     "hello world",
		Subject:   &subject,
		Author: model.User{
			ID:       &id,
			Nickname: "nick",
			Kind:     model.UserKindStatic,
		},
		CommentCount: 1,
		LikeCount:    7,
		ViewCount:    99,
		Kind:         model.DocumentKindText,
		IsRecommend:  true,
		CreatedAt:    createdAt,
		Comments: []model.Comment{
			{ID: 1, Contents: "hi", Kind: model.CommentKindText, CreatedAt: &createdAt},
		},
	}

	payload, err := msgpack.Marshal(doc)
	require.NoError(t, err)

	var decoded model.Document
	require.NoError(t, msgpack.Unmarshal(payload, &decoded))

	assert.Equal(t, doc, decoded)
}
