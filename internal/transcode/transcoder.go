// Package transcode re-encodes single inputs (video files and image
// sequences) into uniformly encoded intermediate clips that the merge stage
// can concatenate without re-encoding.
package transcode

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/encode"
	"github.com/stillpond/framefuse/internal/ffmpeg"
	"github.com/stillpond/framefuse/internal/logging"
	"github.com/stillpond/framefuse/internal/media"
	"github.com/stillpond/framefuse/internal/probe"
)

// Target is the shared output contract every intermediate clip is encoded
// to. Derived once per batch from the first valid input, then overridden by
// any custom resolution or framerate.
type Target struct {
	Width  int
	Height int
	FPS    float64
}

// Job is one item to transcode.
type Job struct {
	Item   *media.Item
	Props  probe.Properties
	Target Target
	Output string
}

// Transcoder builds and executes single-item encodes.
type Transcoder struct {
	engine *ffmpeg.Engine
	cfg    *config.Config
	log    zerolog.Logger
}

// New returns a Transcoder executing through engine.
func New(engine *ffmpeg.Engine, cfg *config.Config) *Transcoder {
	return &Transcoder{
		engine: engine,
		cfg:    cfg,
		log:    logging.WithComponent("transcode"),
	}
}

// Transcode encodes one item to job.Output. onProgress, when non-nil,
// receives the encode's completion fraction in [0, 1]. A failed encode
// removes any partial output before returning.
func (t *Transcoder) Transcode(ctx context.Context, job Job, onProgress func(float64)) error {
	var args []string
	var outSeconds float64
	var err error

	switch job.Item.Kind() {
	case media.KindImageSequence:
		args, outSeconds, err = t.BuildSequenceArgs(job)
	case media.KindVideo:
		args, outSeconds, err = t.BuildVideoArgs(job)
	default:
		err = fmt.Errorf("item %q not expanded before transcode", job.Item.Path)
	}
	if err != nil {
		return err
	}

	t.log.Info().Str("input", job.Item.Path).Str("output", job.Output).
		Stringer("kind", job.Item.Kind()).Msg("transcoding")

	if err := t.engine.Execute(ctx, args, ffmpeg.ProgressSink(outSeconds, onProgress)); err != nil {
		t.log.Error().Err(err).Stringer("class", ffmpeg.Classify(err)).
			Str("input", job.Item.Path).Msg("transcode failed")
		removePartial(job.Output, t.log)
		return fmt.Errorf("transcode %q: %w", job.Item.Path, err)
	}
	if onProgress != nil {
		onProgress(1)
	}
	return nil
}

// outputOptions assembles the encoder options shared by both paths.
func (t *Transcoder) outputOptions(target Target) *encode.Options {
	return encode.FromConfig(t.cfg).
		WithFramerate(target.FPS).
		WithPerformanceTuning(t.cfg.MaxThreads, t.cfg.QueueSize)
}

// removePartial deletes a possibly half-written output file. Failed items
// must not leave truncated clips behind for the merge stage to pick up.
func removePartial(path string, log zerolog.Logger) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", path).Msg("could not remove partial output")
	}
}
