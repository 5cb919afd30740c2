// Package webp expands WebP inputs into numbered PNG frame sequences so the
// rest of the pipeline can treat them like any other image sequence.
// Animated files are split with the external engine; static files are
// decoded in process.
package webp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"

	chaiwebp "github.com/chai2010/webp"
)

// defaultFPS is assumed when a WebP carries no usable timing metadata.
const defaultFPS = 20.0

// Info describes one WebP input before expansion.
type Info struct {
	Width      int
	Height     int
	FrameCount int
	Duration   float64 // Seconds; 0 when unknown.
	FPS        float64
	Animated   bool
}

// Inspect reads the metadata of a WebP file. Frame count comes from an
// exact decode pass because WebP containers rarely expose it; the
// framerate is derived from frame count over duration and falls back to
// the format default of 20 fps.
func (x *Expander) Inspect(ctx context.Context, path string) (Info, error) {
	cmd := exec.CommandContext(ctx, x.engine.FFprobe,
		"-v", "quiet",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=width,height,nb_read_frames",
		"-show_entries", "format=duration",
		"-print_format", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("inspect webp %q: %w", path, err)
	}
	return parseInfo(out)
}

type webpProbeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		NbReadFrames string `json:"nb_read_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseInfo(data []byte) (Info, error) {
	var raw webpProbeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("parse webp probe output: %w", err)
	}
	if len(raw.Streams) == 0 {
		return Info{}, fmt.Errorf("webp probe output has no streams")
	}

	info := Info{
		Width:  raw.Streams[0].Width,
		Height: raw.Streams[0].Height,
	}
	info.FrameCount, _ = strconv.Atoi(strings.TrimSpace(raw.Streams[0].NbReadFrames))
	if info.FrameCount < 1 {
		info.FrameCount = 1
	}
	info.Animated = info.FrameCount > 1
	info.Duration, _ = strconv.ParseFloat(strings.TrimSpace(raw.Format.Duration), 64)

	if info.Animated && info.Duration > 0 {
		info.FPS = float64(info.FrameCount) / info.Duration
	} else {
		info.FPS = defaultFPS
	}
	return info, nil
}

// decodeStatic decodes a non-animated WebP file in process.
func decodeStatic(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := chaiwebp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode webp %q: %w", path, err)
	}
	return m, nil
}
