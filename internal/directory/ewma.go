package directory

const (
	shortHorizonCapSeconds = 3600
	longHorizonCapSeconds  = 86400
)

// updatePublishDuration recomputes the publish-duration EWMA from the
// prior estimate and the latest report. If count is zero or no anchor
// timestamp is available, the Δ terms contribute zero and the old
// estimate only decays by the configured weights, it is not replaced.
// The output is always clamped to the 86400s long-horizon cap.
func updatePublishDuration(old, w1, w2 float64, elapsedSeconds float64, count int, anchorPresent bool) float64 {
	delta := 0.0
	if anchorPresent && count > 0 {
		delta = elapsedSeconds / float64(count)
	}

	next := (1-w1-w2)*old + w1*capAt(delta, shortHorizonCapSeconds) + w2*capAt(delta, longHorizonCapSeconds)
	if next > longHorizonCapSeconds {
		next = longHorizonCapSeconds
	}
	if next < 0 {
		next = 0
	}
	return next
}

func capAt(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}
