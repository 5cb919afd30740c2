// Package trim converts heterogeneous trim inputs into validated,
// frame-accurate ranges for a given input's probed properties.
package trim

import (
	"fmt"
	"math"
)

// Unit identifies how a trim value is expressed.
type Unit int

const (
	UnitFrames  Unit = iota // Integer frame count / frame index.
	UnitSeconds             // Time offset in seconds.
)

// Value is a trim amount with an explicit unit. The zero Value means
// "no trim".
type Value struct {
	unit    Unit
	frames  int
	seconds float64
}

// Frames returns a frame-unit trim value.
func Frames(n int) Value {
	return Value{unit: UnitFrames, frames: n}
}

// Seconds returns a seconds-unit trim value.
func Seconds(s float64) Value {
	return Value{unit: UnitSeconds, seconds: s}
}

// Auto applies the legacy unit heuristic to an untagged number: a
// fractional value strictly between 0 and 100 is taken as seconds, any
// other value is truncated to a frame count. Callers that know the unit
// should use [Frames] or [Seconds] instead; this exists only for inputs
// that never carried a unit tag.
func Auto(v float64) Value {
	if v != math.Trunc(v) && v > 0 && v < 100 {
		return Seconds(v)
	}
	return Frames(int(v))
}

// IsZero reports whether the value represents no trim.
func (v Value) IsZero() bool {
	return v.frames == 0 && v.seconds == 0
}

// Positive reports whether the value trims a positive amount.
func (v Value) Positive() bool {
	if v.unit == UnitSeconds {
		return v.seconds > 0
	}
	return v.frames > 0
}

// ToFrames converts the value to a frame count at the given framerate.
// Seconds are rounded to the nearest frame.
func (v Value) ToFrames(fps float64) int {
	if v.unit == UnitSeconds {
		if fps <= 0 {
			return 0
		}
		return int(math.Round(v.seconds * fps))
	}
	return v.frames
}

// ToSeconds converts the value to seconds at the given framerate.
func (v Value) ToSeconds(fps float64) float64 {
	if v.unit == UnitSeconds {
		return v.seconds
	}
	if fps <= 0 {
		return 0
	}
	return float64(v.frames) / fps
}

func (v Value) String() string {
	if v.unit == UnitSeconds {
		return fmt.Sprintf("%gs", v.seconds)
	}
	return fmt.Sprintf("%df", v.frames)
}
