// Package pipeline orchestrates a full batch run: WebP expansion, per-item
// transcoding to a shared contract, and the final merge, with weighted
// progress reporting and unconditional temp cleanup.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stillpond/framefuse/internal/concat"
	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/ffmpeg"
	"github.com/stillpond/framefuse/internal/logging"
	"github.com/stillpond/framefuse/internal/media"
	"github.com/stillpond/framefuse/internal/probe"
	"github.com/stillpond/framefuse/internal/transcode"
	"github.com/stillpond/framefuse/internal/webp"
)

// Prober supplies per-input properties.
type Prober interface {
	Probe(ctx context.Context, path string) (probe.Properties, error)
}

// Expander rewrites WebP items into image sequences.
type Expander interface {
	ExpandAll(ctx context.Context, items []*media.Item, report func(done, total int)) error
	Cleanup()
}

// Transcoder encodes one item to an intermediate clip.
type Transcoder interface {
	Transcode(ctx context.Context, job transcode.Job, onProgress func(float64)) error
}

// Merger concatenates finished clips into the final output, reporting the
// strategy that produced it.
type Merger interface {
	Merge(ctx context.Context, clips []string, output string, onProgress func(float64)) (concat.Report, error)
}

// Pipeline runs batches. Construct with New; the zero value is not usable.
type Pipeline struct {
	cfg        *config.Config
	prober     Prober
	expander   Expander
	transcoder Transcoder
	merger     Merger
	log        zerolog.Logger
}

// New wires a Pipeline from cfg with production components: a shared
// engine for ffmpeg/ffprobe, and prober, expander, transcoder, and merger
// built on it.
func New(cfg *config.Config) *Pipeline {
	engine := ffmpeg.NewEngine(cfg.FFmpegPath, cfg.FFprobePath)
	prober := probe.New(cfg.FFprobePath)
	return &Pipeline{
		cfg:        cfg,
		prober:     prober,
		expander:   webp.NewExpander(engine, cfg),
		transcoder: transcode.New(engine, cfg),
		merger:     concat.New(engine, prober, cfg),
		log:        logging.WithComponent("pipeline"),
	}
}

// Request describes one batch run.
type Request struct {
	Items  []media.Item
	Output string
	Status StatusFunc // Optional progress callback.
}

// Run executes the batch. Temp artifacts are cleaned up whether the run
// succeeds, fails, or is canceled (unless configured to keep them on
// error); a failed run also removes any partial final output.
func (p *Pipeline) Run(ctx context.Context, req Request) (stats *Stats, err error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("no input items")
	}
	if req.Output == "" {
		return nil, fmt.Errorf("no output path")
	}

	start := time.Now()
	runID := uuid.NewString()[:8]
	log := p.log.With().Str("run", runID).Logger()
	log.Info().Int("items", len(req.Items)).Str("output", req.Output).Msg("starting run")

	items := make([]*media.Item, len(req.Items))
	webpCount := 0
	for i := range req.Items {
		items[i] = &req.Items[i]
		if items[i].Kind() == media.KindAnimation {
			webpCount++
		}
	}

	workDir, err := os.MkdirTemp("", "framefuse-run-")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer func() {
		p.expander.Cleanup()
		if err != nil && p.cfg.KeepTempOnError {
			log.Warn().Str("dir", workDir).Msg("keeping work directory for inspection")
			return
		}
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warn().Err(rmErr).Str("dir", workDir).Msg("could not remove work directory")
		}
	}()
	defer func() {
		if err != nil {
			if rmErr := os.Remove(req.Output); rmErr != nil && !os.IsNotExist(rmErr) {
				log.Warn().Err(rmErr).Str("path", req.Output).Msg("could not remove partial output")
			}
		}
	}()

	budget := NewBudget(webpCount > 0, p.cfg.WebPShare)
	track := newTracker(req.Status)
	defer func() {
		// Failures surface through the same callback channel as progress,
		// so a caller driving a display needs no second error path.
		if err != nil && req.Status != nil {
			req.Status(Status{Percent: track.value(), Stage: "error", Detail: err.Error()})
		}
	}()

	// Phase 1: expand WebP inputs into frame sequences, in parallel.
	if webpCount > 0 {
		track.set(0, "expand", fmt.Sprintf("%d webp input(s)", webpCount))
		err = p.expander.ExpandAll(ctx, items, func(done, total int) {
			track.set(budget.WebP*float64(done)/float64(total), "expand",
				fmt.Sprintf("%d/%d", done, total))
		})
		if err != nil {
			return nil, fmt.Errorf("webp expansion: %w", err)
		}
	}

	// Phase 2: probe everything and fix the shared output contract.
	props := make([]probe.Properties, len(items))
	for i, it := range items {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		pr, perr := p.prober.Probe(ctx, it.Path)
		if perr != nil || !pr.Valid() {
			log.Warn().Err(perr).Str("path", it.Path).Msg("probe failed, using defaults")
			pr = probe.Defaults()
		}
		// Expanded animations know their real framerate; the frame files
		// on disk do not.
		if it.FPS > 0 {
			pr.FPS = it.FPS
			if pr.FrameCount > 0 {
				pr.Duration = float64(pr.FrameCount) / pr.FPS
			}
		}
		props[i] = pr
	}
	target := p.deriveTarget(props)
	log.Info().Int("width", target.Width).Int("height", target.Height).
		Float64("fps", target.FPS).Msg("output contract")

	// Phase 3: transcode each item to an intermediate clip, in order.
	clips := make([]string, len(items))
	stats = &Stats{RunID: runID, Items: len(items), WebPExpanded: webpCount, Output: req.Output}
	itemShare := budget.Transcode / float64(len(items))
	for i, it := range items {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		switch it.Kind() {
		case media.KindImageSequence:
			stats.Sequences++
		case media.KindVideo:
			stats.Videos++
		}

		clips[i] = filepath.Join(workDir, fmt.Sprintf("clip_%03d.mp4", i))
		base := budget.WebP + itemShare*float64(i)
		err = p.transcoder.Transcode(ctx, transcode.Job{
			Item:   it,
			Props:  props[i],
			Target: target,
			Output: clips[i],
		}, func(frac float64) {
			track.set(base+itemShare*frac, "transcode", it.Path)
		})
		if err != nil {
			return nil, err
		}
	}

	// Phase 4: merge.
	report, err := p.merger.Merge(ctx, clips, req.Output, func(frac float64) {
		track.set(budget.PreMerge()+budget.Concat*frac, "merge", req.Output)
	})
	if err != nil {
		return nil, err
	}
	stats.StreamCopied = report.StreamCopy && len(clips) > 1

	track.set(100, "done", req.Output)
	stats.Elapsed = time.Since(start)
	log.Info().Dur("elapsed", stats.Elapsed).Msg("run complete")
	return stats, nil
}

// deriveTarget picks the shared output contract: the first probed input's
// geometry and framerate, overridden by any configured custom values.
func (p *Pipeline) deriveTarget(props []probe.Properties) transcode.Target {
	t := transcode.Target{Width: 1920, Height: 1080, FPS: 30}
	for i := range props {
		if props[i].Valid() {
			t.Width = props[i].Width
			t.Height = props[i].Height
			if props[i].FPS > 0 {
				t.FPS = props[i].FPS
			}
			break
		}
	}
	if p.cfg.CustomWidth > 0 && p.cfg.CustomHeight > 0 {
		t.Width = p.cfg.CustomWidth
		t.Height = p.cfg.CustomHeight
	}
	if p.cfg.CustomFramerate > 0 {
		t.FPS = p.cfg.CustomFramerate
	}
	return t
}
