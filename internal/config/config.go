// Package config holds runtime configuration: defaults, validation, and the
// encoding defaults applied to every intermediate clip and the final output.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings. It is populated by [DefaultConfig] and
// then mutated by CLI flag binding before being passed (by pointer) to the
// packages that need it.
type Config struct {
	// Engine binaries. Bare names are resolved on PATH; absolute paths are
	// used verbatim.
	FFmpegPath  string // Default: "ffmpeg".
	FFprobePath string // Default: "ffprobe".

	// Output encoding defaults (H.264 / yuv420p / BT.709 / limited range).
	VideoCodec     string // Default: "libx264".
	PixelFormat    string // Default: "yuv420p".
	ColorSpace     string // Default: "bt709".
	ColorPrimaries string // Default: "bt709".
	ColorTransfer  string // Default: "bt709".
	ColorRange     string // Default: "limited".

	// Probe constants passed to the engine before each input.
	ProbeSize       string // Default: "100M".
	AnalyzeDuration string // Default: "100M".

	// Pipeline tuning.
	MaxThreads           int     // Encoder thread cap. Default: 16 (libx264 recommended max).
	QueueSize            int     // thread_queue_size / max_muxing_queue_size. Default: 4096.
	SequenceGapTolerance float64 // Missing-frame ratio tolerated in a numbered sequence. Default: 0.10.
	WebPShare            float64 // Share of the pre-merge progress budget claimed by WebP expansion. Default: 0.30.

	// Trimming. Global trims apply to items without their own trim; an
	// explicit per-item trim always wins.
	GlobalTrimStart int // Frames removed from the start of each item when > 0.
	GlobalTrimEnd   int // Frames removed from the end of each item when > 0.
	FrameBasedTrim  bool // Frame-accurate select-filter trimming instead of time seeking.

	// Output overrides.
	CustomFramerate float64 // Output framerate when > 0.
	CustomWidth     int     // Output width when both width and height > 0.
	CustomHeight    int
	KeepTempOnError bool // Leave intermediates behind for debugging failed runs.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		VideoCodec:     "libx264",
		PixelFormat:    "yuv420p",
		ColorSpace:     "bt709",
		ColorPrimaries: "bt709",
		ColorTransfer:  "bt709",
		ColorRange:     "limited",

		ProbeSize:       "100M",
		AnalyzeDuration: "100M",

		MaxThreads:           16,
		QueueSize:            4096,
		SequenceGapTolerance: 0.10,
		WebPShare:            0.30,

		ColorMode: ColorAuto,
	}
}

// Validate checks cross-field consistency. It is called once after flag
// binding, before any engine invocation.
func (c *Config) Validate() error {
	if c.FFmpegPath == "" {
		return errors.New("ffmpeg path must not be empty")
	}
	if c.FFprobePath == "" {
		return errors.New("ffprobe path must not be empty")
	}
	if c.MaxThreads < 1 {
		return fmt.Errorf("max threads must be >= 1, got %d", c.MaxThreads)
	}
	if c.SequenceGapTolerance < 0 || c.SequenceGapTolerance >= 1 {
		return fmt.Errorf("sequence gap tolerance must be in [0,1), got %g", c.SequenceGapTolerance)
	}
	if c.WebPShare <= 0 || c.WebPShare >= 1 {
		return fmt.Errorf("webp progress share must be in (0,1), got %g", c.WebPShare)
	}
	if c.GlobalTrimStart < 0 || c.GlobalTrimEnd < 0 {
		return errors.New("global trim values must not be negative")
	}
	if c.CustomFramerate < 0 {
		return fmt.Errorf("custom framerate must not be negative, got %g", c.CustomFramerate)
	}
	if (c.CustomWidth > 0) != (c.CustomHeight > 0) {
		return errors.New("custom resolution requires both width and height")
	}
	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color mode %q (want auto|always|never)", c.ColorMode)
	}
	return nil
}

// ParseResolution parses a "WxH" string into width and height.
func ParseResolution(s string) (int, int, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid resolution %q (want WxH)", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution height %q", h)
	}
	return width, height, nil
}
