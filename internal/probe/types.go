package probe

// Properties holds the probed facts about one input. Immutable once
// computed; recomputed per run, never persisted.
type Properties struct {
	Width      int
	Height     int
	VideoCodec string // e.g. "h264"; empty when unknown.
	FPS        float64
	Duration   float64 // Seconds.

	FrameCount          int
	FrameCountEstimated bool // True when FrameCount came from duration*fps rather than metadata.

	HasAudio   bool
	SampleRate int // Hz; only meaningful when HasAudio.
}

// Valid reports whether the probe produced usable dimensions.
func (p *Properties) Valid() bool {
	return p != nil && p.Width > 0 && p.Height > 0
}

// Defaults returns the fallback properties callers apply when a probe
// yields nothing usable: 1920x1080 at 30 fps.
func Defaults() Properties {
	return Properties{Width: 1920, Height: 1080, FPS: 30.0}
}

// fallbackFPS is assumed whenever a source carries no parseable framerate.
const fallbackFPS = 30.0
