package ffmpeg

import (
	"regexp"
	"strconv"
)

// ffmpeg stderr status lines look like:
//
//	frame=  240 fps= 59 q=28.0 size=    1024kB time=00:00:08.01 bitrate=...
var timeRe = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)

// ParseProgressTime extracts the processed-media timestamp from an ffmpeg
// stderr line and returns it in seconds. ok is false for lines without a
// time field.
func ParseProgressTime(line string) (seconds float64, ok bool) {
	m := timeRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.ParseFloat(m[1], 64)
	min, _ := strconv.ParseFloat(m[2], 64)
	s, _ := strconv.ParseFloat(m[3], 64)
	return h*3600 + min*60 + s, true
}

// ProgressSink converts stderr lines into fractional progress against a
// known output duration. Use as the onLine callback on Execute.
func ProgressSink(totalSeconds float64, report func(fraction float64)) func(string) {
	if totalSeconds <= 0 || report == nil {
		return nil
	}
	return func(line string) {
		t, ok := ParseProgressTime(line)
		if !ok {
			return
		}
		frac := t / totalSeconds
		if frac > 1 {
			frac = 1
		}
		report(frac)
	}
}
