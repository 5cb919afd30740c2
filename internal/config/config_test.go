package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "libx264", cfg.VideoCodec)
	assert.Equal(t, "yuv420p", cfg.PixelFormat)
	assert.Equal(t, 16, cfg.MaxThreads)
	assert.Equal(t, 4096, cfg.QueueSize)
	assert.Equal(t, 0.10, cfg.SequenceGapTolerance)
	assert.Equal(t, 0.30, cfg.WebPShare)
	assert.Equal(t, ColorAuto, cfg.ColorMode)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty ffmpeg path", func(c *Config) { c.FFmpegPath = "" }, "ffmpeg path"},
		{"empty ffprobe path", func(c *Config) { c.FFprobePath = "" }, "ffprobe path"},
		{"zero threads", func(c *Config) { c.MaxThreads = 0 }, "max threads"},
		{"gap tolerance too high", func(c *Config) { c.SequenceGapTolerance = 1.0 }, "gap tolerance"},
		{"negative gap tolerance", func(c *Config) { c.SequenceGapTolerance = -0.1 }, "gap tolerance"},
		{"webp share out of range", func(c *Config) { c.WebPShare = 1.0 }, "webp progress share"},
		{"negative global trim", func(c *Config) { c.GlobalTrimStart = -1 }, "global trim"},
		{"negative framerate", func(c *Config) { c.CustomFramerate = -1 }, "framerate"},
		{"width without height", func(c *Config) { c.CustomWidth = 1920 }, "custom resolution"},
		{"height without width", func(c *Config) { c.CustomHeight = 1080 }, "custom resolution"},
		{"bad color mode", func(c *Config) { c.ColorMode = "sometimes" }, "color mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidateAcceptsCustomTarget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomWidth = 1280
	cfg.CustomHeight = 720
	cfg.CustomFramerate = 24
	assert.NoError(t, cfg.Validate())
}

func TestParseResolution(t *testing.T) {
	w, h, err := ParseResolution("1920x1080")
	require.NoError(t, err)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	w, h, err = ParseResolution(" 1280X720 ")
	require.NoError(t, err)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	for _, bad := range []string{"1920", "x1080", "1920x", "0x720", "axb", "1920x-1080"} {
		_, _, err := ParseResolution(bad)
		assert.Error(t, err, "input %q", bad)
	}
}
