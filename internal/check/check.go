// Package check verifies that the host environment can actually run a
// batch: both engine binaries resolvable, and the encoders and demuxers
// the pipeline depends on present in the ffmpeg build.
package check

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/ffmpeg"
	"github.com/stillpond/framefuse/internal/logging"
)

// Sentinel errors for the two binary lookups, matchable with errors.Is.
var (
	ErrFFmpegNotFound  = errors.New("ffmpeg binary not found")
	ErrFFprobeNotFound = errors.New("ffprobe binary not found")
)

// Result is one diagnostic probe's outcome.
type Result struct {
	Name   string
	Detail string
	Err    error
}

// OK reports whether the probe passed.
func (r Result) OK() bool {
	return r.Err == nil
}

// Diagnostics is the full outcome of an environment check.
type Diagnostics struct {
	Results []Result
}

// OK reports whether every probe passed.
func (d *Diagnostics) OK() bool {
	for _, r := range d.Results {
		if !r.OK() {
			return false
		}
	}
	return true
}

// Checker runs environment diagnostics.
type Checker struct {
	cfg    *config.Config
	engine *ffmpeg.Engine
	log    zerolog.Logger
}

// New returns a Checker for cfg's configured binaries.
func New(cfg *config.Config) *Checker {
	return &Checker{
		cfg:    cfg,
		engine: ffmpeg.NewEngine(cfg.FFmpegPath, cfg.FFprobePath),
		log:    logging.WithComponent("check"),
	}
}

// Run executes all probes and returns the collected diagnostics. Probes
// after a failed binary lookup are skipped, since they could only fail
// with noise.
func (c *Checker) Run(ctx context.Context) *Diagnostics {
	d := &Diagnostics{}

	ffmpegPath, err := exec.LookPath(c.cfg.FFmpegPath)
	d.add("ffmpeg binary", ffmpegPath, wrapLookup(err, ErrFFmpegNotFound))

	ffprobePath, err := exec.LookPath(c.cfg.FFprobePath)
	d.add("ffprobe binary", ffprobePath, wrapLookup(err, ErrFFprobeNotFound))

	if !d.OK() {
		return d
	}

	d.add("ffmpeg version", c.version(ctx), nil)

	d.add("h264 encoder", c.cfg.VideoCodec,
		c.tryEncode(ctx, "color=c=black:s=64x64:d=0.1:r=30", "-c:v", c.cfg.VideoCodec))
	d.add("aac encoder", "aac",
		c.tryEncodeAudio(ctx))
	d.add("png demuxer", "image2/png",
		c.tryEncode(ctx, "color=c=white:s=16x16:d=0.1:r=10", "-c:v", "png"))

	return d
}

func (d *Diagnostics) add(name, detail string, err error) {
	d.Results = append(d.Results, Result{Name: name, Detail: detail, Err: err})
}

func wrapLookup(err, sentinel error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// version returns the first line of `ffmpeg -version`, or an empty string.
func (c *Checker) version(ctx context.Context) string {
	out, err := exec.CommandContext(ctx, c.cfg.FFmpegPath, "-version").Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimPrefix(line, "ffmpeg version ")
}

// tryEncode runs a tiny synthetic encode to the null muxer, proving the
// named codec exists in this build without touching the filesystem.
func (c *Checker) tryEncode(ctx context.Context, source string, codecArgs ...string) error {
	args := []string{"-v", "error", "-f", "lavfi", "-i", source}
	args = append(args, codecArgs...)
	args = append(args, "-f", "null", "-")
	return c.engine.Execute(ctx, args, nil)
}

func (c *Checker) tryEncodeAudio(ctx context.Context) error {
	return c.engine.Execute(ctx, []string{
		"-v", "error",
		"-f", "lavfi", "-i", "anullsrc=r=48000:cl=stereo",
		"-t", "0.1",
		"-c:a", "aac",
		"-f", "null", "-",
	}, nil)
}
