package ffmpeg

import (
	"context"
	"errors"
	"strings"
)

// Class buckets a failed invocation for reporting. Classification feeds
// log detail and user-facing hints only; control flow never branches on
// stderr text.
type Class int

const (
	ClassUnknown         Class = iota
	ClassInvalidArgument       // Bad option or filter string; the command itself was wrong.
	ClassOpenFailure           // Input or output path could not be opened.
	ClassUnsupported           // Codec, format, or feature not built into this binary.
	ClassCanceled              // Killed through context cancellation.
)

func (c Class) String() string {
	switch c {
	case ClassInvalidArgument:
		return "invalid argument"
	case ClassOpenFailure:
		return "open failure"
	case ClassUnsupported:
		return "unsupported"
	case ClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify inspects a failed invocation and buckets it.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ClassCanceled
	}

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		return ClassUnknown
	}
	stderr := strings.ToLower(execErr.Stderr)

	switch {
	case strings.Contains(stderr, "invalid argument") ||
		strings.Contains(stderr, "option not found") ||
		strings.Contains(stderr, "error parsing"):
		return ClassInvalidArgument
	case strings.Contains(stderr, "no such file or directory") ||
		strings.Contains(stderr, "permission denied") ||
		strings.Contains(stderr, "could not open"):
		return ClassOpenFailure
	case strings.Contains(stderr, "unknown encoder") ||
		strings.Contains(stderr, "unknown decoder") ||
		strings.Contains(stderr, "not supported"):
		return ClassUnsupported
	default:
		return ClassUnknown
	}
}
