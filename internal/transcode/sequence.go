package transcode

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/stillpond/framefuse/internal/encode"
	"github.com/stillpond/framefuse/internal/media"
	"github.com/stillpond/framefuse/internal/trim"
)

// BuildSequenceArgs constructs the ffmpeg argument list for an
// image-sequence encode. The sequence's real frame numbering is read from
// disk so numbering gaps and non-zero starting indices are handled; a
// sequence missing more than the configured share of its frames is
// rejected rather than encoded with silent skips.
func (t *Transcoder) BuildSequenceArgs(job Job) ([]string, float64, error) {
	files, err := media.SequenceFiles(job.Item.Path)
	if err != nil {
		return nil, 0, fmt.Errorf("expand sequence %q: %w", job.Item.Path, err)
	}
	if len(files) == 0 {
		return nil, 0, fmt.Errorf("sequence %q matches no files", job.Item.Path)
	}

	numbers, err := frameNumbers(files)
	if err != nil {
		return nil, 0, err
	}

	span := numbers[len(numbers)-1] - numbers[0] + 1
	missing := span - len(numbers)
	if ratio := float64(missing) / float64(span); ratio > t.cfg.SequenceGapTolerance {
		return nil, 0, fmt.Errorf("sequence %q is missing %d of %d frames (%.0f%%, tolerance %.0f%%)",
			job.Item.Path, missing, span, ratio*100, t.cfg.SequenceGapTolerance*100)
	}

	fps := job.Props.FPS
	if fps <= 0 {
		fps = job.Target.FPS
	}
	if fps <= 0 {
		fps = 30
	}

	// Trims are resolved in logical frame space (position in the sorted
	// list), then mapped to the numbering actually on disk.
	r := trim.ComputeFrames(
		job.Item.TrimStart, job.Item.TrimEnd,
		fps, len(files),
		t.cfg.GlobalTrimStart, t.cfg.GlobalTrimEnd,
	)
	startNumber := numbers[r.Start]
	frameCount := r.Frames()

	pattern := job.Item.Path
	if !media.IsSequencePattern(pattern) {
		pattern, err = sequencePattern(files)
		if err != nil {
			return nil, 0, err
		}
	}

	args := []string{
		"-framerate", strconv.FormatFloat(fps, 'g', -1, 64),
		"-start_number", strconv.Itoa(startNumber),
		"-thread_queue_size", strconv.Itoa(t.cfg.QueueSize),
		"-i", pattern,
		"-frames:v", strconv.Itoa(frameCount),
		"-vf", encode.ScalePadFilter(job.Target.Width, job.Target.Height),
		"-an",
	}
	args = append(args, t.outputOptions(job.Target).Args()...)
	args = append(args, "-y", job.Output)

	return args, float64(frameCount) / fps, nil
}

// frameNumbers extracts the frame numbers from a numerically sorted file
// list (the order [media.SequenceFiles] guarantees), verifying the sort so
// downstream span and start-number math can rely on it.
func frameNumbers(files []string) ([]int, error) {
	numbers := make([]int, len(files))
	for i, f := range files {
		n, ok := media.FrameNumber(f)
		if !ok {
			return nil, fmt.Errorf("sequence file %q has no frame number", f)
		}
		if i > 0 && n < numbers[i-1] {
			return nil, fmt.Errorf("sequence files not in frame order at %q", f)
		}
		numbers[i] = n
	}
	return numbers, nil
}

// sequencePattern rebuilds the printf-style input pattern from the frame
// files on disk. The stem comes from the numerically first file; the
// placeholder is zero-padded only when every file shares the same digit
// width, since unpadded numbering (frame_9, frame_10) needs a bare %d to
// match.
func sequencePattern(files []string) (string, error) {
	stem, width, ext, err := splitFrameName(files[0])
	if err != nil {
		return "", err
	}

	uniform := true
	for _, f := range files[1:] {
		_, w, _, err := splitFrameName(f)
		if err != nil {
			return "", err
		}
		if w != width {
			uniform = false
			break
		}
	}

	placeholder := "%d"
	if uniform && width > 1 {
		placeholder = fmt.Sprintf("%%0%dd", width)
	}
	return filepath.Join(filepath.Dir(files[0]), stem+placeholder+ext), nil
}

// splitFrameName splits a frame file name into its stem, trailing digit
// width, and extension.
func splitFrameName(file string) (stem string, width int, ext string, err error) {
	base := filepath.Base(file)
	ext = filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return "", 0, "", fmt.Errorf("cannot derive sequence pattern from %q", file)
	}
	return name[:i], len(name) - i, ext, nil
}
