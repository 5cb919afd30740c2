// Package concat merges uniformly encoded intermediate clips into the final
// output. The fast path is the stream-copy concat demuxer; when the clips
// are found to be structurally incompatible, or the copy itself fails, the
// merge falls back to re-encoding through the concat filter.
package concat

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/encode"
	"github.com/stillpond/framefuse/internal/ffmpeg"
	"github.com/stillpond/framefuse/internal/logging"
	"github.com/stillpond/framefuse/internal/probe"
)

// fallbackSquare is the hard-coded frame size of the last-resort merge
// tier, used when the clips cannot even agree on a common geometry.
const fallbackSquare = 512

// Prober supplies per-clip properties for compatibility checks.
type Prober interface {
	Probe(ctx context.Context, path string) (probe.Properties, error)
}

// Concatenator merges finished clips.
type Concatenator struct {
	engine *ffmpeg.Engine
	prober Prober
	cfg    *config.Config
	log    zerolog.Logger
}

// New returns a Concatenator executing through engine and probing clips
// through prober.
func New(engine *ffmpeg.Engine, prober Prober, cfg *config.Config) *Concatenator {
	return &Concatenator{
		engine: engine,
		prober: prober,
		cfg:    cfg,
		log:    logging.WithComponent("concat"),
	}
}

// Report describes how a merge was (or would be) performed.
type Report struct {
	Clips      int
	StreamCopy bool   // True when the concat demuxer fast path applies.
	Reason     string // Why stream copy was ruled out; empty when it applies.
	AllAudio   bool   // Every clip carries an audio stream.
}

// Merge concatenates clips (in order) into output. A single clip is
// copied straight through; multiple clips go through the fast path or the
// re-encode fallback as decided by Plan. The returned report reflects the
// strategy that actually produced the output, so StreamCopy is cleared when
// a fallback tier had to run. Partial outputs are removed on failure.
func (c *Concatenator) Merge(ctx context.Context, clips []string, output string, onProgress func(float64)) (Report, error) {
	switch len(clips) {
	case 0:
		return Report{}, fmt.Errorf("no clips to merge")
	case 1:
		if err := c.copySingle(clips[0], output); err != nil {
			return Report{}, err
		}
		if onProgress != nil {
			onProgress(1)
		}
		return Report{Clips: 1, StreamCopy: true}, nil
	}

	plan, props, err := c.Plan(ctx, clips)
	if err != nil {
		return Report{}, err
	}

	totalSeconds := 0.0
	for _, p := range props {
		totalSeconds += p.Duration
	}

	if plan.StreamCopy {
		err = c.mergeStreamCopy(ctx, clips, output, ffmpeg.ProgressSink(totalSeconds, onProgress))
		if err == nil {
			if onProgress != nil {
				onProgress(1)
			}
			return plan, nil
		}
		if ctx.Err() != nil {
			return Report{}, ctx.Err()
		}
		c.log.Warn().Err(err).Stringer("class", ffmpeg.Classify(err)).
			Msg("stream-copy merge failed, re-encoding")
		removePartial(output, c.log)
		plan.StreamCopy = false
		plan.Reason = "stream copy failed"
	} else {
		c.log.Info().Str("reason", plan.Reason).Msg("stream copy ruled out, re-encoding")
	}

	err = c.mergeFilter(ctx, clips, output, plan.AllAudio, ffmpeg.ProgressSink(totalSeconds, onProgress))
	if err != nil {
		if ctx.Err() != nil {
			return Report{}, ctx.Err()
		}
		c.log.Warn().Err(err).Stringer("class", ffmpeg.Classify(err)).
			Msg("filter merge failed, trying fixed-size fallback")
		removePartial(output, c.log)
		err = c.mergeFilterFixedSize(ctx, clips, output, ffmpeg.ProgressSink(totalSeconds, onProgress))
	}
	if err != nil {
		removePartial(output, c.log)
		return Report{}, fmt.Errorf("merge: %w", err)
	}
	if onProgress != nil {
		onProgress(1)
	}
	return plan, nil
}

// Plan probes every clip and decides the merge strategy up front. Stream
// copy requires every clip to agree on geometry, framerate, and audio
// presence; any mismatch names the first offending clip in the reason.
func (c *Concatenator) Plan(ctx context.Context, clips []string) (Report, []probe.Properties, error) {
	props := make([]probe.Properties, len(clips))
	for i, clip := range clips {
		p, err := c.prober.Probe(ctx, clip)
		if err != nil {
			return Report{}, nil, fmt.Errorf("probe clip %q: %w", clip, err)
		}
		props[i] = p
	}

	report := Report{Clips: len(clips), StreamCopy: true, AllAudio: true}
	first := props[0]
	for i, p := range props {
		if !p.HasAudio {
			report.AllAudio = false
		}
		if p.Width != first.Width || p.Height != first.Height {
			report.StreamCopy = false
			report.Reason = fmt.Sprintf("clip %d is %dx%d, clip 0 is %dx%d",
				i, p.Width, p.Height, first.Width, first.Height)
			break
		}
		if p.VideoCodec != first.VideoCodec {
			report.StreamCopy = false
			report.Reason = fmt.Sprintf("clip %d is %s, clip 0 is %s", i, p.VideoCodec, first.VideoCodec)
			break
		}
		if !fpsClose(p.FPS, first.FPS) {
			report.StreamCopy = false
			report.Reason = fmt.Sprintf("clip %d runs at %.3f fps, clip 0 at %.3f fps", i, p.FPS, first.FPS)
			break
		}
		if p.HasAudio != first.HasAudio {
			report.StreamCopy = false
			report.Reason = fmt.Sprintf("clip %d and clip 0 disagree on audio presence", i)
			break
		}
	}
	return report, props, nil
}

func fpsClose(a, b float64) bool {
	d := a - b
	return d < 0.01 && d > -0.01
}

// copySingle moves a lone clip to the output path with a plain file copy.
// The clip is already fully encoded, so no engine invocation is needed.
func (c *Concatenator) copySingle(clip, output string) error {
	src, err := os.Open(clip)
	if err != nil {
		return fmt.Errorf("copy %q: %w", clip, err)
	}
	defer src.Close()

	dst, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("copy %q: %w", clip, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		removePartial(output, c.log)
		return fmt.Errorf("copy %q: %w", clip, err)
	}
	if err := dst.Close(); err != nil {
		removePartial(output, c.log)
		return fmt.Errorf("copy %q: %w", clip, err)
	}
	return nil
}

// mergeStreamCopy concatenates through the concat demuxer with a list
// file. The list file is removed when the merge returns.
func (c *Concatenator) mergeStreamCopy(ctx context.Context, clips []string, output string, onLine func(string)) error {
	list, err := writeListFile(clips)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		"-y", output,
	}
	return c.engine.Execute(ctx, args, onLine)
}

// mergeFilter concatenates through the concat filter, re-encoding. Audio
// is carried only when every clip has it; mixing would otherwise desync
// the output.
func (c *Concatenator) mergeFilter(ctx context.Context, clips []string, output string, withAudio bool, onLine func(string)) error {
	args := make([]string, 0, len(clips)*2+16)
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}

	var fc strings.Builder
	for i := range clips {
		fmt.Fprintf(&fc, "[%d:v]", i)
		if withAudio {
			fmt.Fprintf(&fc, "[%d:a]", i)
		}
	}
	if withAudio {
		fmt.Fprintf(&fc, "concat=n=%d:v=1:a=1[outv][outa]", len(clips))
	} else {
		fmt.Fprintf(&fc, "concat=n=%d:v=1:a=0[outv]", len(clips))
	}

	args = append(args, "-filter_complex", fc.String(), "-map", "[outv]")
	if withAudio {
		args = append(args, "-map", "[outa]", "-c:a", "aac", "-ar", "48000")
	}
	args = append(args, c.encodeArgs()...)
	args = append(args, "-y", output)
	return c.engine.Execute(ctx, args, onLine)
}

// mergeFilterFixedSize is the last-resort tier: drop audio, force every
// clip onto a fixed square canvas, then concatenate.
func (c *Concatenator) mergeFilterFixedSize(ctx context.Context, clips []string, output string, onLine func(string)) error {
	args := make([]string, 0, len(clips)*2+12)
	for _, clip := range clips {
		args = append(args, "-i", clip)
	}

	var fc strings.Builder
	for i := range clips {
		fmt.Fprintf(&fc, "[%d:v]%s[v%d];", i, encode.ScalePadFilter(fallbackSquare, fallbackSquare), i)
	}
	for i := range clips {
		fmt.Fprintf(&fc, "[v%d]", i)
	}
	fmt.Fprintf(&fc, "concat=n=%d:v=1:a=0[outv]", len(clips))

	args = append(args, "-filter_complex", fc.String(), "-map", "[outv]", "-an")
	args = append(args, c.encodeArgs()...)
	args = append(args, "-y", output)
	return c.engine.Execute(ctx, args, onLine)
}

func (c *Concatenator) encodeArgs() []string {
	return encode.FromConfig(c.cfg).
		WithPerformanceTuning(c.cfg.MaxThreads, c.cfg.QueueSize).
		Args()
}

// writeListFile writes the concat demuxer list next to the first clip.
// Paths are absolute so the list's own location never matters.
func writeListFile(clips []string) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(clips[0]), "concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}

	var b strings.Builder
	for _, clip := range clips {
		abs, err := filepath.Abs(clip)
		if err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", err
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}

	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write concat list: %w", err)
	}
	return f.Name(), f.Close()
}

func removePartial(path string, log zerolog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("could not remove partial output")
	}
}
