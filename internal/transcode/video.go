package transcode

import (
	"fmt"
	"strconv"

	"github.com/stillpond/framefuse/internal/encode"
	"github.com/stillpond/framefuse/internal/trim"
)

// BuildVideoArgs constructs the full ffmpeg argument list for a video-file
// encode and returns it with the expected output duration in seconds for
// progress estimation.
//
// With frame-based trimming enabled, the cut runs through a select filter
// in the frame domain and the matching audio cut through atrim in the time
// domain, both with their timestamps rebased to zero. Otherwise the item
// is trimmed with plain input seeking (-ss/-t), which is faster but only
// keyframe-accurate.
func (t *Transcoder) BuildVideoArgs(job Job) ([]string, float64, error) {
	if t.cfg.FrameBasedTrim {
		return t.buildFrameTrimArgs(job)
	}
	return t.buildSeekTrimArgs(job)
}

func (t *Transcoder) buildFrameTrimArgs(job Job) ([]string, float64, error) {
	props := job.Props
	r := trim.ComputeFrames(
		job.Item.TrimStart, job.Item.TrimEnd,
		props.FPS, props.FrameCount,
		t.cfg.GlobalTrimStart, t.cfg.GlobalTrimEnd,
	)

	args := t.inputArgs()
	args = append(args, "-i", job.Item.Path)

	vf := fmt.Sprintf(`select=between(n\,%d\,%d),setpts=PTS-STARTPTS,%s`,
		r.Start, r.End, encode.ScalePadFilter(job.Target.Width, job.Target.Height))
	args = append(args, "-vf", vf)

	if props.HasAudio && props.FPS > 0 {
		// Audio has no frame numbers; cut it over the same wall-clock
		// window the selected frames cover.
		startSec := float64(r.Start) / props.FPS
		endSec := float64(r.End+1) / props.FPS
		af := fmt.Sprintf("atrim=start=%s:end=%s,asetpts=PTS-STARTPTS",
			formatSeconds(startSec), formatSeconds(endSec))
		args = append(args, "-af", af)
		args = append(args, audioEncodeArgs()...)
	} else {
		args = append(args, "-an")
	}

	args = append(args, t.outputOptions(job.Target).Args()...)
	args = append(args, "-y", job.Output)

	outSeconds := 0.0
	if props.FPS > 0 {
		outSeconds = float64(r.Frames()) / props.FPS
	}
	return args, outSeconds, nil
}

func (t *Transcoder) buildSeekTrimArgs(job Job) ([]string, float64, error) {
	props := job.Props
	offset, outSeconds := trim.ComputeSeconds(
		job.Item.TrimStart, job.Item.TrimEnd,
		props.FPS, props.Duration,
		t.cfg.GlobalTrimStart, t.cfg.GlobalTrimEnd,
	)

	args := t.inputArgs()
	if offset > 0 {
		args = append(args, "-ss", formatSeconds(offset))
	}
	args = append(args, "-i", job.Item.Path)
	if outSeconds > 0 && outSeconds < props.Duration {
		args = append(args, "-t", formatSeconds(outSeconds))
	}

	args = append(args, "-vf", encode.ScalePadFilter(job.Target.Width, job.Target.Height))

	if props.HasAudio {
		args = append(args, audioEncodeArgs()...)
	} else {
		args = append(args, "-an")
	}

	args = append(args, t.outputOptions(job.Target).Args()...)
	args = append(args, "-y", job.Output)
	return args, outSeconds, nil
}

// inputArgs returns the probing arguments placed before every input. Large
// analyze windows keep ffmpeg from misdetecting streams in long files.
func (t *Transcoder) inputArgs() []string {
	return []string{
		"-probesize", t.cfg.ProbeSize,
		"-analyzeduration", t.cfg.AnalyzeDuration,
	}
}

// audioEncodeArgs is the audio half of the shared contract: AAC at 48 kHz
// stereo, matching what the merge stage expects from every clip.
func audioEncodeArgs() []string {
	return []string{"-c:a", "aac", "-ar", "48000", "-ac", "2"}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 6, 64)
}
