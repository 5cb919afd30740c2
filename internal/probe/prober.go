// Package probe provides ffprobe-based media inspection with typed
// results. One JSON call answers dimensions, framerate, duration, frame
// count, and audio presence; a second decode-and-count pass runs only when
// the container metadata forces an estimate.
package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stillpond/framefuse/internal/logging"
	"github.com/stillpond/framefuse/internal/media"
)

// Prober queries the engine's ffprobe binary for media properties.
type Prober struct {
	ffprobe string
	log     zerolog.Logger
}

// New returns a Prober bound to the given ffprobe binary.
func New(ffprobePath string) *Prober {
	return &Prober{
		ffprobe: ffprobePath,
		log:     logging.WithComponent("probe"),
	}
}

// Probe inspects path and returns its properties. Sequence patterns and
// directories are probed through their first frame file; concrete files go
// through a single ffprobe JSON call. An error means "properties unknown";
// callers apply [Defaults] or abort as appropriate.
func (p *Prober) Probe(ctx context.Context, path string) (Properties, error) {
	if media.IsSequencePattern(path) || isDir(path) {
		return p.probeSequence(ctx, path)
	}
	return p.probeFile(ctx, path)
}

func (p *Prober) probeFile(ctx context.Context, path string) (Properties, error) {
	out, err := p.runProbe(ctx, path)
	if err != nil {
		return Properties{}, fmt.Errorf("ffprobe %q: %w", path, err)
	}

	props, err := ParseJSON(out)
	if err != nil {
		return Properties{}, err
	}

	// Metadata frame counts are frequently absent or wrong, especially for
	// remuxed sources. When the first pass had to estimate, pay for an
	// exact decode-and-count and prefer its answer.
	if props.FrameCountEstimated {
		if exact, err := p.CountFrames(ctx, path); err == nil && exact > 0 {
			p.log.Debug().Str("path", path).
				Int("estimated", props.FrameCount).Int("exact", exact).
				Msg("replaced estimated frame count")
			props.FrameCount = exact
			props.FrameCountEstimated = false
		}
	}
	return props, nil
}

func (p *Prober) runProbe(ctx context.Context, path string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, p.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	return cmd.Output()
}

// CountFrames runs the exact decode-and-count probe pass. Slow on long
// inputs; only invoked when the metadata frame count is missing.
func (p *Prober) CountFrames(ctx context.Context, path string) (int, error) {
	cmd := exec.CommandContext(ctx, p.ffprobe,
		"-v", "quiet",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=nb_read_frames",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("count frames %q: %w", path, err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("count frames %q: unusable output %q", path, strings.TrimSpace(string(out)))
	}
	return n, nil
}

// ParseJSON converts raw ffprobe JSON output into Properties. Exported for
// testing without a real ffprobe binary.
func ParseJSON(data []byte) (Properties, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Properties{}, fmt.Errorf("parse ffprobe JSON: %w", err)
	}
	return buildProperties(&raw)
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeStream struct {
	CodecType    string         `json:"codec_type"`
	CodecName    string         `json:"codec_name"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Duration     string         `json:"duration"`
	NbFrames     string         `json:"nb_frames"`
	AvgFrameRate string         `json:"avg_frame_rate"`
	RFrameRate   string         `json:"r_frame_rate"`
	SampleRate   string         `json:"sample_rate"`
	Disposition  map[string]int `json:"disposition"`
}

// --- Conversion from wire types to domain types ---

func buildProperties(raw *ffprobeOutput) (Properties, error) {
	var video *ffprobeStream
	var props Properties

	for i := range raw.Streams {
		s := &raw.Streams[i]
		switch s.CodecType {
		case "video":
			if s.Disposition["attached_pic"] == 1 {
				continue
			}
			if video == nil {
				video = s
			}
		case "audio":
			props.HasAudio = true
			if props.SampleRate == 0 {
				props.SampleRate = parseInt(s.SampleRate)
			}
		}
	}

	if video == nil {
		return Properties{}, fmt.Errorf("no video stream found")
	}

	props.Width = video.Width
	props.Height = video.Height
	props.VideoCodec = video.CodecName
	props.FPS = parseRational(video.AvgFrameRate)
	if props.FPS <= 0 {
		props.FPS = parseRational(video.RFrameRate)
	}
	if props.FPS <= 0 {
		props.FPS = fallbackFPS
	}

	// Duration: stream-level, then format-level, then 0.
	props.Duration = parseFloat(video.Duration)
	if props.Duration <= 0 {
		props.Duration = parseFloat(raw.Format.Duration)
	}

	// Frame count: metadata when present and sane, otherwise estimate.
	if n := parseInt(video.NbFrames); n > 0 {
		props.FrameCount = n
	} else {
		props.FrameCount = int(props.Duration * props.FPS)
		props.FrameCountEstimated = true
	}

	return props, nil
}

// parseRational parses ffprobe's "num/den" framerate strings. Returns 0 on
// anything malformed so callers can chain fallbacks.
func parseRational(s string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return parseFloat(s)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d <= 0 {
		return 0
	}
	return n / d
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
