package parser

import (
	"bytes"
	"errors"
)

// Terminal page states: the gallery is unreachable by design rather
// than by a transient failure. These are the sentinel errors the
// backoff kernel treats as non-retryable and the worker classifies
// straight into a CrawlerErrorReport.
var (
	ErrAdultPage                     = errors.New("parser: adult content redirect")
	ErrMinorGalleryClosed            = errors.New("parser: minor gallery closed")
	ErrMinorGalleryPromoted          = errors.New("parser: minor gallery promoted to major")
	ErrMinorGalleryAccessNotAllowed  = errors.New("parser: minor gallery access not allowed")
)

var (
	adultRedirectPrefix    = []byte(`<script type="text/javascript">location.replace("/error/adult`)
	managerClosedPrefix    = []byte(`<script type="text/javascript">alert("매니저의 요청으로 폐쇄`)
	policyViolationPrefix  = []byte(`<script type="text/javascript">alert("운영원칙 위반`)
	promotedRedirectPrefix = []byte(`<script type="text/javascript">location.replace("https://gall.dcinside.com/board/lists?`)
	closedMarker           = []byte("폐쇄")
)

// detectTerminalState runs the ordered sentinel checks spec.md §4.3
// describes against the raw listing body, before any row is parsed.
func detectTerminalState(body []byte) error {
	trimmed := bytes.TrimSpace(body)

	switch {
	case bytes.HasPrefix(trimmed, adultRedirectPrefix):
		return ErrAdultPage
	case bytes.HasPrefix(trimmed, managerClosedPrefix):
		return ErrMinorGalleryClosed
	case bytes.HasPrefix(trimmed, policyViolationPrefix):
		if bytes.Contains(trimmed, closedMarker) {
			return ErrMinorGalleryClosed
		}
		return ErrMinorGalleryAccessNotAllowed
	case bytes.HasPrefix(trimmed, promotedRedirectPrefix):
		return ErrMinorGalleryPromoted
	}
	return nil
}
