package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haneul/dcrawl/internal/model"
)

func TestThreadCommentsAssignsParentAcrossDeletedPlaceholder(t *testing.T) {
	comments := []model.Comment{
		{ID: 10, Depth: 0},
		{ID: 11, Depth: 1},
		{ID: 0, Depth: 0},
		{ID: 12, Depth: 1},
	}
	ThreadComments(comments, 0)

	require.NotNil(t, comments[1].ParentID)
	assert.Equal(t, 10, *comments[1].ParentID)
	require.NotNil(t, comments[3].ParentID)
	assert.Equal(t, 10, *comments[3].ParentID)
	assert.Nil(t, comments[0].ParentID)
	assert.Nil(t, comments[2].ParentID)
}

func TestParseCommentTimestampShortFormUsesSeoulYear(t *testing.T) {
	// can't pin "current year" without mocking time.Now, so just assert
	// the offset math: short form interpreted at +09:00 converts back
	// 9 hours to UTC on the same calendar day.
	t0, err := parseCommentTimestamp("01.15 10:00:00")
	require.NoError(t, err)
	assert.Equal(t, 1, int(t0.Month()))
	assert.Equal(t, 15, t0.Day())
	assert.Equal(t, 1, t0.Hour())
}

func TestParseCommentsDeserializesS5Scenario(t *testing.T) {
	body := []byte(`{"comments":[{"no":"13369033","user_id":"","ip":"119.195","name":"ㅇㅇ","depth":0,"memo":"hi","reg_date":"2021-01-10 17:20:43"}]}`)

	comments, _, err := ParseComments(body, 0)
	require.NoError(t, err)
	require.Len(t, comments, 1)

	c := comments[0]
	assert.Equal(t, 13369033, c.ID)
	assert.Nil(t, c.Author.ID)
	require.NotNil(t, c.Author.IP)
	assert.Equal(t, "119.195", *c.Author.IP)
	assert.Equal(t, "ㅇㅇ", c.Author.Nickname)
	assert.Equal(t, model.UserKindDynamic, c.Author.Kind)
	assert.Equal(t, 0, c.Depth)
	assert.Equal(t, "hi", c.Contents)
	assert.Equal(t, model.CommentKindText, c.Kind)
	require.NotNil(t, c.CreatedAt)
	assert.Equal(t, "2021-01-10T08:20:43Z", c.CreatedAt.Format("2006-01-02T15:04:05Z"))
	assert.Nil(t, c.ParentID)
}

func TestDetectTerminalStateAdultPage(t *testing.T) {
	body := []byte(`<script type="text/javascript">location.replace("/error/adult");</script>`)
	err := detectTerminalState(body)
	assert.ErrorIs(t, err, ErrAdultPage)
}

func TestDetectTerminalStateManagerClosed(t *testing.T) {
	body := []byte(`<script type="text/javascript">alert("매니저의 요청으로 폐쇄되었습니다");</script>`)
	err := detectTerminalState(body)
	assert.ErrorIs(t, err, ErrMinorGalleryClosed)
}

func TestDetectTerminalStatePolicyViolationClosed(t *testing.T) {
	body := []byte(`<script type="text/javascript">alert("운영원칙 위반으로 폐쇄되었습니다");</script>`)
	err := detectTerminalState(body)
	assert.ErrorIs(t, err, ErrMinorGalleryClosed)
}

func TestDetectTerminalStatePolicyViolationRestricted(t *testing.T) {
	body := []byte(`<script type="text/javascript">alert("운영원칙 위반으로 접근이 제한되었습니다");</script>`)
	err := detectTerminalState(body)
	assert.ErrorIs(t, err, ErrMinorGalleryAccessNotAllowed)
}

func TestDetectTerminalStatePromoted(t *testing.T) {
	body := []byte(`<script type="text/javascript">location.replace("https://gall.dcinside.com/board/lists?id=somewhere");</script>`)
	err := detectTerminalState(body)
	assert.ErrorIs(t, err, ErrMinorGalleryPromoted)
}

func TestParseListingRowTolerant(t *testing.T) {
	html := `
	<div class="us-post">
		<span class="gall_num">12345</span>
		<span class="gall_tit"><a>hello world</a></span>
		<span class="gall_writer" data-nick="nick" data-ip="1.2.3.4"></span>
		<span class="reply_numbox">[3]</span>
		<span class="gall_recommend">7</span>
		<span class="gall_count">99</span>
		<span class="gall_date" title="2021-01-10 17:20:43"></span>
	</div>
	<div class="us-post">
		<span class="gall_num">not-a-number</span>
	</div>
	`
	rows, errs, err := ParseListing([]byte(html), "programming")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, errs, 1)

	row := rows[0]
	assert.Equal(t, 12345, row.ID)
	assert.Equal(t, "hello world", row.Title)
	assert.Equal(t, 3, row.CommentCount)
	assert.Equal(t, 7, row.LikeCount)
	assert.Equal(t, 99, row.ViewCount)
	assert.Equal(t, model.UserKindDynamic, row.Author.Kind)
}

func TestParseDocumentBodyExtractsWriteDiv(t *testing.T) {
	html := `<html><body><div class="write_div">hello <b>world</b></div></body></html>`
	body, err := ParseDocumentBody([]byte(html))
	require.NoError(t, err)
	assert.Equal(t, "hello <b>world</b>", body)
}

func TestParseDocumentBodyMissingWriteDivErrors(t *testing.T) {
	_, err := ParseDocumentBody([]byte(`<html><body><div class="other">x</div></body></html>`))
	assert.Error(t, err)
}
