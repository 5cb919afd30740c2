// Package encode holds the shared output encoding contract. Every
// intermediate clip is written with the same codec, pixel format, and color
// metadata so the final merge can concatenate streams without re-encoding.
package encode

import (
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/stillpond/framefuse/internal/config"
)

// Options is the output-side ffmpeg argument set for one encode. Pairs are
// emitted in insertion order so the produced command lines stay stable
// across runs.
type Options struct {
	keys   []string
	values map[string]string
}

// NewOptions returns an empty option set.
func NewOptions() *Options {
	return &Options{values: make(map[string]string)}
}

// FromConfig builds the baseline encoding contract from cfg: codec, pixel
// format, and full color metadata.
func FromConfig(cfg *config.Config) *Options {
	o := NewOptions()
	o.Set("-c:v", cfg.VideoCodec)
	o.Set("-pix_fmt", cfg.PixelFormat)
	o.Set("-colorspace", cfg.ColorSpace)
	o.Set("-color_primaries", cfg.ColorPrimaries)
	o.Set("-color_trc", cfg.ColorTransfer)
	o.Set("-color_range", cfg.ColorRange)
	return o
}

// Set stores flag=value, replacing any earlier value while keeping the
// flag's original position.
func (o *Options) Set(flag, value string) *Options {
	if _, ok := o.values[flag]; !ok {
		o.keys = append(o.keys, flag)
	}
	o.values[flag] = value
	return o
}

// Get returns the value for flag and whether it is set.
func (o *Options) Get(flag string) (string, bool) {
	v, ok := o.values[flag]
	return v, ok
}

// Clone returns an independent copy. Per-item adjustments work on a clone
// so the baseline contract stays untouched.
func (o *Options) Clone() *Options {
	c := NewOptions()
	for _, k := range o.keys {
		c.Set(k, o.values[k])
	}
	return c
}

// Args flattens the option set into command-line arguments.
func (o *Options) Args() []string {
	args := make([]string, 0, len(o.keys)*2)
	for _, k := range o.keys {
		args = append(args, k, o.values[k])
	}
	return args
}

// WithFramerate forces the output framerate.
func (o *Options) WithFramerate(fps float64) *Options {
	return o.Set("-r", strconv.FormatFloat(fps, 'g', -1, 64))
}

// WithPerformanceTuning adds thread and muxing-queue settings sized for the
// host. Thread count is the logical CPU count capped at maxThreads; the
// queue size absorbs bursty demuxing on large inputs.
func (o *Options) WithPerformanceTuning(maxThreads, queueSize int) *Options {
	o.Set("-threads", strconv.Itoa(OptimalThreads(maxThreads)))
	o.Set("-max_muxing_queue_size", strconv.Itoa(queueSize))
	return o
}

// OptimalThreads returns the encode thread count for this host: logical CPU
// count capped at max. Falls back to 1 when the CPU count is unavailable.
func OptimalThreads(max int) int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = 1
	}
	if max > 0 && n > max {
		n = max
	}
	return n
}

// ScalePadFilter returns the filter pair that fits any input into the
// w x h target: scale preserving aspect ratio, then pad to exact size with
// centered black bars.
func ScalePadFilter(w, h int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black",
		w, h, w, h)
}
