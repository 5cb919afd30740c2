package webp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/stillpond/framefuse/internal/config"
	"github.com/stillpond/framefuse/internal/encode"
	"github.com/stillpond/framefuse/internal/ffmpeg"
	"github.com/stillpond/framefuse/internal/logging"
	"github.com/stillpond/framefuse/internal/media"
)

// framePattern is the file name layout of extracted frames. Five digits
// covers any plausible sticker or loop length.
const framePattern = "frame_%05d.png"

// Expander converts WebP items into on-disk PNG sequences. Temp
// directories it creates stay registered until Cleanup runs, so a failed
// batch can still reclaim its disk.
type Expander struct {
	engine *ffmpeg.Engine
	cfg    *config.Config
	log    zerolog.Logger

	mu       sync.Mutex
	tempDirs []string
}

// NewExpander returns an Expander using the given engine for extraction.
func NewExpander(engine *ffmpeg.Engine, cfg *config.Config) *Expander {
	return &Expander{
		engine: engine,
		cfg:    cfg,
		log:    logging.WithComponent("webp"),
	}
}

// Result reports one completed expansion.
type Result struct {
	// Pattern is the printf-style sequence pattern replacing the WebP path.
	Pattern string
	Info    Info
}

// ExpandAll expands every WebP item in items concurrently, rewriting each
// item's path to its extracted sequence pattern. Items keep their slot in
// the slice, so batch ordering survives the parallel fan-out. Progress is
// reported as completed-file counts.
func (x *Expander) ExpandAll(ctx context.Context, items []*media.Item, report func(done, total int)) error {
	var targets []*media.Item
	for _, it := range items {
		if it.Kind() == media.KindAnimation {
			targets = append(targets, it)
		}
	}
	if len(targets) == 0 {
		return nil
	}

	workers := encode.OptimalThreads(x.cfg.MaxThreads)
	if workers > len(targets) {
		workers = len(targets)
	}
	x.log.Info().Int("files", len(targets)).Int("workers", workers).Msg("expanding webp inputs")

	var done int
	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, it := range targets {
		g.Go(func() error {
			res, err := x.Expand(ctx, it.Path)
			if err != nil {
				return fmt.Errorf("expand %q: %w", it.Path, err)
			}
			it.Path = res.Pattern
			it.FPS = res.Info.FPS
			mu.Lock()
			done++
			if report != nil {
				report(done, len(targets))
			}
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

// Expand extracts one WebP file into a fresh temp directory and returns
// the sequence pattern of the extracted frames. The directory is
// registered for Cleanup; on error it is removed immediately.
func (x *Expander) Expand(ctx context.Context, path string) (Result, error) {
	info, err := x.Inspect(ctx, path)
	if err != nil {
		return Result{}, err
	}

	dir, err := os.MkdirTemp("", "framefuse-webp-")
	if err != nil {
		return Result{}, fmt.Errorf("create frame directory: %w", err)
	}
	x.register(dir)

	if info.Animated {
		err = x.extractFrames(ctx, path, dir)
	} else {
		err = x.writeStaticFrame(path, dir)
	}
	if err != nil {
		x.removeDir(dir)
		return Result{}, err
	}

	frames, err := media.SequenceFiles(filepath.Join(dir, framePattern))
	if err == nil && len(frames) == 0 {
		err = fmt.Errorf("no frames extracted from %q", path)
	}
	if err != nil {
		x.removeDir(dir)
		return Result{}, err
	}

	if err := x.flattenFrames(ctx, frames); err != nil {
		x.removeDir(dir)
		return Result{}, err
	}

	x.log.Debug().Str("path", path).Int("frames", len(frames)).
		Float64("fps", info.FPS).Msg("expanded")
	return Result{
		Pattern: filepath.Join(dir, framePattern),
		Info:    info,
	}, nil
}

// extractFrames splits an animated WebP into numbered PNGs.
func (x *Expander) extractFrames(ctx context.Context, path, dir string) error {
	args := []string{
		"-y",
		"-i", path,
		"-vsync", "0",
		filepath.Join(dir, framePattern),
	}
	return x.engine.Execute(ctx, args, nil)
}

// writeStaticFrame decodes a single-frame WebP in process and writes it as
// frame 1 of a one-frame sequence.
func (x *Expander) writeStaticFrame(path, dir string) error {
	img, err := decodeStatic(path)
	if err != nil {
		return err
	}
	out := filepath.Join(dir, fmt.Sprintf(framePattern, 1))
	return writePNG(out, compositeOnWhite(img))
}

// flattenFrames composites extracted frames onto white in parallel. The
// pool is sized to the host but never below 4 for short sequences, and
// never wider than half the frame count.
func (x *Expander) flattenFrames(ctx context.Context, frames []string) error {
	workers := encode.OptimalThreads(x.cfg.MaxThreads)
	if workers < 4 {
		workers = 4
	}
	if half := len(frames) / 2; half > 0 && workers > half {
		workers = half
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, frame := range frames {
		g.Go(func() error {
			return flattenFrameFile(frame)
		})
	}
	return g.Wait()
}

func (x *Expander) register(dir string) {
	x.mu.Lock()
	x.tempDirs = append(x.tempDirs, dir)
	x.mu.Unlock()
}

func (x *Expander) removeDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		x.log.Warn().Err(err).Str("dir", dir).Msg("could not remove frame directory")
	}
	x.mu.Lock()
	for i, d := range x.tempDirs {
		if d == dir {
			x.tempDirs = append(x.tempDirs[:i], x.tempDirs[i+1:]...)
			break
		}
	}
	x.mu.Unlock()
}

// Cleanup removes every temp directory created by this expander. Safe to
// call multiple times and after partial failures.
func (x *Expander) Cleanup() {
	x.mu.Lock()
	dirs := x.tempDirs
	x.tempDirs = nil
	x.mu.Unlock()

	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			x.log.Warn().Err(err).Str("dir", dir).Msg("could not remove frame directory")
		}
	}
}
