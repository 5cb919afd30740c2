package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/ffmpeg"
	"github.com/stillpond/framefuse/internal/media"
	"github.com/stillpond/framefuse/internal/probe"
	"github.com/stillpond/framefuse/internal/trim"
)

func newTestTranscoder(mutate func(*config.Config)) *Transcoder {
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return New(ffmpeg.NewEngine("ffmpeg", "ffprobe"), &cfg)
}

// failRunner always reports the scripted failure with its stderr tail.
type failRunner struct {
	stderr string
}

func (r failRunner) Run(context.Context, string, []string, func(string)) (string, error) {
	return r.stderr, errors.New("exit status 1")
}

func argValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, a := range args {
		if a == flag {
			require.Less(t, i+1, len(args), "flag %s has no value", flag)
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

func hasFlag(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func TestBuildVideoArgsFrameTrim(t *testing.T) {
	tr := newTestTranscoder(func(c *config.Config) { c.FrameBasedTrim = true })

	job := Job{
		Item: &media.Item{
			Path:      "clip.mp4",
			TrimStart: trim.Frames(10),
			TrimEnd:   trim.Frames(0),
		},
		Props: probe.Properties{
			Width: 1920, Height: 1080, FPS: 30, Duration: 10,
			FrameCount: 300, HasAudio: true, SampleRate: 48000,
		},
		Target: Target{Width: 1920, Height: 1080, FPS: 30},
		Output: "out.mp4",
	}

	args, outSeconds, err := tr.BuildVideoArgs(job)
	require.NoError(t, err)

	// Start offset 10, end 0 means frames [10, 299] survive.
	vf := argValue(t, args, "-vf")
	assert.Contains(t, vf, `select=between(n\,10\,299)`)
	assert.Contains(t, vf, "setpts=PTS-STARTPTS")
	assert.Contains(t, vf, "scale=1920:1080:force_original_aspect_ratio=decrease")
	assert.Contains(t, vf, "pad=1920:1080")

	af := argValue(t, args, "-af")
	assert.Contains(t, af, "atrim=start=0.333333")
	assert.Contains(t, af, "end=10.000000")
	assert.Contains(t, af, "asetpts=PTS-STARTPTS")
	assert.Equal(t, "aac", argValue(t, args, "-c:a"))

	assert.Equal(t, "100M", argValue(t, args, "-probesize"))
	assert.Equal(t, "libx264", argValue(t, args, "-c:v"))
	assert.Equal(t, "out.mp4", args[len(args)-1])
	assert.InDelta(t, 290.0/30.0, outSeconds, 0.001)
}

func TestBuildVideoArgsSecondsTrimAt30FPS(t *testing.T) {
	tr := newTestTranscoder(func(c *config.Config) { c.FrameBasedTrim = true })

	job := Job{
		Item: &media.Item{
			Path:      "clip.mp4",
			TrimStart: trim.Seconds(2.5),
		},
		Props: probe.Properties{
			Width: 1280, Height: 720, FPS: 30, Duration: 10, FrameCount: 300,
		},
		Target: Target{Width: 1280, Height: 720, FPS: 30},
		Output: "out.mp4",
	}

	args, _, err := tr.BuildVideoArgs(job)
	require.NoError(t, err)

	// 2.5 s at 30 fps rounds to 75 frames.
	assert.Contains(t, argValue(t, args, "-vf"), `select=between(n\,75\,299)`)
	// No audio stream, so the audio side is dropped outright.
	assert.True(t, hasFlag(args, "-an"))
	assert.False(t, hasFlag(args, "-af"))
}

func TestBuildVideoArgsInvalidTrimFallsBackToFullRange(t *testing.T) {
	tr := newTestTranscoder(func(c *config.Config) { c.FrameBasedTrim = true })

	job := Job{
		Item: &media.Item{
			Path:      "clip.mp4",
			TrimStart: trim.Frames(500), // Past the end of a 300-frame clip.
		},
		Props:  probe.Properties{Width: 640, Height: 480, FPS: 30, FrameCount: 300},
		Target: Target{Width: 640, Height: 480, FPS: 30},
		Output: "out.mp4",
	}

	args, _, err := tr.BuildVideoArgs(job)
	require.NoError(t, err)
	assert.Contains(t, argValue(t, args, "-vf"), `select=between(n\,0\,299)`)
}

func TestBuildVideoArgsSeekTrim(t *testing.T) {
	tr := newTestTranscoder(nil) // Seek mode is the default.

	job := Job{
		Item: &media.Item{
			Path:      "clip.mp4",
			TrimStart: trim.Seconds(1.5),
			TrimEnd:   trim.Seconds(2),
		},
		Props: probe.Properties{
			Width: 1920, Height: 1080, FPS: 30, Duration: 10,
			FrameCount: 300, HasAudio: true,
		},
		Target: Target{Width: 1920, Height: 1080, FPS: 30},
		Output: "out.mp4",
	}

	args, outSeconds, err := tr.BuildVideoArgs(job)
	require.NoError(t, err)

	assert.Equal(t, "1.500000", argValue(t, args, "-ss"))
	assert.Equal(t, "6.500000", argValue(t, args, "-t"))
	assert.NotContains(t, argValue(t, args, "-vf"), "select=")
	assert.InDelta(t, 6.5, outSeconds, 0.001)

	// Seek placement: -ss must precede -i for input seeking.
	ssIdx, iIdx := -1, -1
	for i, a := range args {
		switch a {
		case "-ss":
			ssIdx = i
		case "-i":
			iIdx = i
		}
	}
	assert.Less(t, ssIdx, iIdx)
}

func TestBuildVideoArgsGlobalTrimApplies(t *testing.T) {
	tr := newTestTranscoder(func(c *config.Config) {
		c.FrameBasedTrim = true
		c.GlobalTrimStart = 5
	})

	// An untrimmed item picks up the global start trim.
	job := Job{
		Item:   &media.Item{Path: "clip.mp4"},
		Props:  probe.Properties{Width: 640, Height: 480, FPS: 30, FrameCount: 300},
		Target: Target{Width: 640, Height: 480, FPS: 30},
		Output: "out.mp4",
	}

	args, _, err := tr.BuildVideoArgs(job)
	require.NoError(t, err)
	assert.Contains(t, argValue(t, args, "-vf"), `select=between(n\,5\,299)`)

	// An explicit item trim takes precedence over the global one.
	job.Item.TrimStart = trim.Frames(10)
	args, _, err = tr.BuildVideoArgs(job)
	require.NoError(t, err)
	assert.Contains(t, argValue(t, args, "-vf"), `select=between(n\,10\,299)`)
}

func TestTranscodeFailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "clip_000.mp4")
	require.NoError(t, os.WriteFile(output, []byte("partial"), 0o644))

	tr := newTestTranscoder(nil)
	tr.engine.Runner = failRunner{stderr: "Invalid data found when processing input"}

	err := tr.Transcode(context.Background(), Job{
		Item:   &media.Item{Path: "clip.mp4"},
		Props:  probe.Properties{Width: 640, Height: 480, FPS: 30, Duration: 5, FrameCount: 150},
		Target: Target{Width: 640, Height: 480, FPS: 30},
		Output: output,
	}, nil)

	require.ErrorContains(t, err, "clip.mp4")
	assert.ErrorContains(t, err, "Invalid data found")
	assert.NoFileExists(t, output)
}

func writeSequence(t *testing.T, dir string, numbers []int) {
	t.Helper()
	for _, n := range numbers {
		path := filepath.Join(dir, fmt.Sprintf("frame_%05d.png", n))
		require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))
	}
}

func TestBuildSequenceArgs(t *testing.T) {
	dir := t.TempDir()
	writeSequence(t, dir, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	tr := newTestTranscoder(nil)
	job := Job{
		Item:   &media.Item{Path: filepath.Join(dir, "frame_%05d.png")},
		Props:  probe.Properties{Width: 320, Height: 240, FPS: 30, FrameCount: 10},
		Target: Target{Width: 1920, Height: 1080, FPS: 30},
		Output: "out.mp4",
	}

	args, outSeconds, err := tr.BuildSequenceArgs(job)
	require.NoError(t, err)

	assert.Equal(t, "30", argValue(t, args, "-framerate"))
	assert.Equal(t, "1", argValue(t, args, "-start_number"))
	assert.Equal(t, "10", argValue(t, args, "-frames:v"))
	assert.Equal(t, "4096", argValue(t, args, "-thread_queue_size"))
	assert.True(t, hasFlag(args, "-an"))
	assert.InDelta(t, 10.0/30.0, outSeconds, 0.001)
}

func TestBuildSequenceArgsTrimMapsToDiskNumbering(t *testing.T) {
	dir := t.TempDir()
	// Numbering starts at 100, not 0.
	writeSequence(t, dir, []int{100, 101, 102, 103, 104, 105})

	tr := newTestTranscoder(nil)
	job := Job{
		Item: &media.Item{
			Path:      filepath.Join(dir, "frame_%05d.png"),
			TrimStart: trim.Frames(2),
		},
		Props:  probe.Properties{Width: 320, Height: 240, FPS: 30, FrameCount: 6},
		Target: Target{Width: 320, Height: 240, FPS: 30},
		Output: "out.mp4",
	}

	args, _, err := tr.BuildSequenceArgs(job)
	require.NoError(t, err)

	assert.Equal(t, "102", argValue(t, args, "-start_number"))
	assert.Equal(t, "4", argValue(t, args, "-frames:v"))
}

func TestBuildSequenceArgsRejectsGappySequence(t *testing.T) {
	dir := t.TempDir()
	// 5 of 10 frames missing: a 50% gap against a 10% tolerance.
	writeSequence(t, dir, []int{1, 3, 5, 7, 9})

	tr := newTestTranscoder(nil)
	job := Job{
		Item:   &media.Item{Path: filepath.Join(dir, "frame_%05d.png")},
		Props:  probe.Properties{Width: 320, Height: 240, FPS: 30, FrameCount: 5},
		Target: Target{Width: 320, Height: 240, FPS: 30},
		Output: "out.mp4",
	}

	_, _, err := tr.BuildSequenceArgs(job)
	assert.ErrorContains(t, err, "missing")
}

func TestBuildSequenceArgsDirectoryInput(t *testing.T) {
	dir := t.TempDir()
	writeSequence(t, dir, []int{1, 2, 3})

	tr := newTestTranscoder(nil)
	job := Job{
		Item:   &media.Item{Path: dir},
		Props:  probe.Properties{Width: 320, Height: 240, FPS: 30, FrameCount: 3},
		Target: Target{Width: 320, Height: 240, FPS: 30},
		Output: "out.mp4",
	}

	args, _, err := tr.BuildSequenceArgs(job)
	require.NoError(t, err)

	// The input pattern is rebuilt from the files on disk.
	assert.True(t, strings.HasSuffix(argValue(t, args, "-i"), "frame_%05d.png"))
}

func TestBuildSequenceArgsEmpty(t *testing.T) {
	tr := newTestTranscoder(nil)
	job := Job{
		Item:   &media.Item{Path: filepath.Join(t.TempDir(), "frame_%05d.png")},
		Target: Target{Width: 320, Height: 240, FPS: 30},
		Output: "out.mp4",
	}
	_, _, err := tr.BuildSequenceArgs(job)
	assert.ErrorContains(t, err, "matches no files")
}

func TestSequencePattern(t *testing.T) {
	got, err := sequencePattern([]string{"/tmp/seq/shot_0042.png", "/tmp/seq/shot_0043.png"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/seq", "shot_%04d.png"), got)

	// Mixed digit widths mean the numbering is unpadded.
	got, err = sequencePattern([]string{"/tmp/seq/frame_9.png", "/tmp/seq/frame_10.png"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/seq", "frame_%d.png"), got)

	_, err = sequencePattern([]string{"/tmp/seq/cover.png"})
	assert.Error(t, err)
}

func TestBuildSequenceArgsUnpaddedNumbering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame_9.png", "frame_10.png", "frame_11.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("png"), 0o644))
	}

	tr := newTestTranscoder(nil)
	job := Job{
		Item:   &media.Item{Path: dir},
		Props:  probe.Properties{Width: 320, Height: 240, FPS: 30, FrameCount: 3},
		Target: Target{Width: 320, Height: 240, FPS: 30},
		Output: "out.mp4",
	}

	args, _, err := tr.BuildSequenceArgs(job)
	require.NoError(t, err)

	// Lexicographic order would put frame_10 first and drop frame 9.
	assert.Equal(t, "9", argValue(t, args, "-start_number"))
	assert.Equal(t, "3", argValue(t, args, "-frames:v"))
	assert.True(t, strings.HasSuffix(argValue(t, args, "-i"), "frame_%d.png"))
}
