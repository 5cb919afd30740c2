package probe

import (
	"context"
	"fmt"
	"image"
	"os"

	// Decoders registered for DecodeConfig on sequence frames.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/stillpond/framefuse/internal/media"
)

// sequenceFPS is the framerate assigned to image sequences, which carry no
// timing of their own.
const sequenceFPS = 30.0

// probeSequence inspects a numbered image sequence through its first frame.
// Dimensions come from an in-process image header decode; an unreadable
// header falls through to a full ffprobe call on the frame file. The frame
// count is the number of files on disk, and duration follows from the fixed
// sequence framerate.
func (p *Prober) probeSequence(ctx context.Context, path string) (Properties, error) {
	files, err := media.SequenceFiles(path)
	if err != nil {
		return Properties{}, fmt.Errorf("expand sequence %q: %w", path, err)
	}
	if len(files) == 0 {
		return Properties{}, fmt.Errorf("sequence %q matches no files", path)
	}

	props := Properties{
		FPS:        sequenceFPS,
		FrameCount: len(files),
		Duration:   float64(len(files)) / sequenceFPS,
	}

	if w, h, err := decodeDimensions(files[0]); err == nil {
		props.Width = w
		props.Height = h
		return props, nil
	}

	fileProps, err := p.probeFile(ctx, files[0])
	if err != nil {
		return Properties{}, fmt.Errorf("probe sequence frame %q: %w", files[0], err)
	}
	props.Width = fileProps.Width
	props.Height = fileProps.Height
	return props, nil
}

func decodeDimensions(file string) (w, h int, err error) {
	f, err := os.Open(file)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
