package trim

// Range is an inclusive frame range [Start, End].
type Range struct {
	Start int
	End   int
}

// Frames returns the number of frames covered by the range.
func (r Range) Frames() int {
	return r.End - r.Start + 1
}

// Full returns the full unclipped range for a source with frameCount
// frames. A zero-frame source yields the degenerate range [0, 0].
func Full(frameCount int) Range {
	if frameCount < 1 {
		return Range{0, 0}
	}
	return Range{0, frameCount - 1}
}

// ComputeFrames resolves the start/end trim values into a validated
// inclusive frame range for frame-based trimming.
//
// The start value is a frame offset from the beginning; the end value is
// an absolute end-frame index (zero meaning "through the last frame").
// An explicit positive per-item trim takes precedence; the global trims,
// expressed as frame counts removed from each side, apply only where the
// item carries no trim of its own. An invalid result (start at or past
// end, or an empty remaining span) falls back to the full unclipped range
// rather than failing the item: a bad trim must never poison the whole
// batch.
func ComputeFrames(start, end Value, fps float64, frameCount, globalStart, globalEnd int) Range {
	if frameCount < 2 {
		return Full(frameCount)
	}

	s := start.ToFrames(fps)
	if s <= 0 && globalStart > 0 {
		s = globalStart
	}

	e := end.ToFrames(fps)
	if e <= 0 && globalEnd > 0 {
		e = frameCount - 1 - globalEnd
	}

	if s < 0 {
		s = 0
	}
	if e <= 0 || e > frameCount-1 {
		e = frameCount - 1
	}

	if s >= e {
		return Full(frameCount)
	}
	return Range{Start: s, End: e}
}

// ComputeSeconds resolves the trim values for the legacy time-seek path.
// Both sides are amounts removed (start offset and trailing cut) in
// seconds; as with ComputeFrames, an explicit positive per-item trim
// wins over the global one. It returns the seek offset and the remaining
// output duration in seconds. When the trims would consume the whole
// file, both reset and the full duration is used.
func ComputeSeconds(start, end Value, fps, duration float64, globalStart, globalEnd int) (offset, newDuration float64) {
	s := start.ToSeconds(fps)
	if s <= 0 && globalStart > 0 && fps > 0 {
		s = float64(globalStart) / fps
	}

	e := end.ToSeconds(fps)
	if e <= 0 && globalEnd > 0 && fps > 0 {
		e = float64(globalEnd) / fps
	}

	if s < 0 {
		s = 0
	}
	if e < 0 {
		e = 0
	}

	remaining := duration - s - e
	if remaining <= 0 {
		return 0, duration
	}
	return s, remaining
}
