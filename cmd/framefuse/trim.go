package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stillpond/framefuse/internal/trim"
)

// parseTrim parses a START:END trim spec. Either side may be empty, which
// means no trim on that side.
func parseTrim(spec string) (start, end trim.Value, err error) {
	s, e, ok := strings.Cut(spec, ":")
	if !ok {
		return start, end, fmt.Errorf("invalid trim %q (want START:END)", spec)
	}
	if start, err = parseTrimValue(s); err != nil {
		return start, end, fmt.Errorf("invalid trim start %q: %w", s, err)
	}
	if end, err = parseTrimValue(e); err != nil {
		return start, end, fmt.Errorf("invalid trim end %q: %w", e, err)
	}
	return start, end, nil
}

// parseTrimValue parses one side of a trim spec. A "f" suffix means
// frames, "s" means seconds, and a bare number falls back to the
// heuristic: fractional values under 100 read as seconds, everything else
// as frames.
func parseTrimValue(s string) (trim.Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return trim.Value{}, nil
	}

	switch {
	case strings.HasSuffix(s, "f"):
		n, err := strconv.Atoi(strings.TrimSuffix(s, "f"))
		if err != nil || n < 0 {
			return trim.Value{}, fmt.Errorf("bad frame count")
		}
		return trim.Frames(n), nil
	case strings.HasSuffix(s, "s"):
		sec, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
		if err != nil || sec < 0 {
			return trim.Value{}, fmt.Errorf("bad seconds value")
		}
		return trim.Seconds(sec), nil
	default:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return trim.Value{}, fmt.Errorf("bad number")
		}
		return trim.Auto(v), nil
	}
}
