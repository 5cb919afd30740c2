// Package media defines the input model for a batch run: one ordered list
// of items, each a video file, a numbered image sequence, or a WebP
// animation, with independent trim values.
package media

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/stillpond/framefuse/internal/trim"
)

// Kind classifies how an item is processed. Resolved once per item and
// dispatched with a closed switch; there is no runtime string tagging.
type Kind int

const (
	KindVideo         Kind = iota // A concrete video file.
	KindImageSequence             // A numbered-frame pattern or a directory of frames.
	KindAnimation                 // A WebP animation, expanded to a sequence before transcoding.
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindImageSequence:
		return "sequence"
	case KindAnimation:
		return "animation"
	default:
		return "unknown"
	}
}

// Item is one input to the batch. Paths may name a file, a sequence
// pattern containing a frame-number placeholder (e.g. frame_%05d.png), or
// a directory. Items are mutated in place during a run: expansion rewrites
// Path for WebP inputs, and trim normalization resolves the trim values
// into frame space.
type Item struct {
	Path      string
	TrimStart trim.Value
	TrimEnd   trim.Value

	// FPS is the item's known framerate when the path itself cannot carry
	// one. Set by WebP expansion, where the animation's own timing (often
	// 20 fps) must survive the rewrite into a frame sequence.
	FPS float64
}

// Kind resolves the processing kind from the item's path.
func (it *Item) Kind() Kind {
	if strings.EqualFold(filepath.Ext(it.Path), ".webp") {
		return KindAnimation
	}
	if IsSequencePattern(it.Path) {
		return KindImageSequence
	}
	if fi, err := os.Stat(it.Path); err == nil && fi.IsDir() {
		return KindImageSequence
	}
	return KindVideo
}

var seqPlaceholder = regexp.MustCompile(`%0?\d*d`)

// IsSequencePattern reports whether path contains a printf-style
// frame-number placeholder such as %05d.
func IsSequencePattern(path string) bool {
	return seqPlaceholder.MatchString(path)
}

// SequenceGlob converts a sequence pattern into a filesystem glob by
// replacing the frame-number placeholder with a wildcard. Directories
// become a glob over common frame image extensions' shared stem ("*").
func SequenceGlob(path string) string {
	if IsSequencePattern(path) {
		return seqPlaceholder.ReplaceAllString(filepath.ToSlash(path), "*")
	}
	return filepath.ToSlash(filepath.Join(path, "*"))
}

// SequenceFiles expands a sequence pattern or directory into the list of
// matching files on disk, sorted by frame number. Glob order is
// lexicographic, which misorders unpadded numbering (frame_10 before
// frame_9); callers index into this slice by logical frame position, so
// the sort must be numeric. Files without a frame number sort after
// numbered ones, by path.
func SequenceFiles(path string) ([]string, error) {
	matches, err := filepath.Glob(SequenceGlob(path))
	if err != nil {
		return nil, err
	}
	files := matches[:0]
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			files = append(files, m)
		}
	}
	sort.SliceStable(files, func(i, j int) bool {
		ni, iok := FrameNumber(files[i])
		nj, jok := FrameNumber(files[j])
		switch {
		case iok && jok && ni != nj:
			return ni < nj
		case iok != jok:
			return iok
		default:
			return files[i] < files[j]
		}
	})
	return files, nil
}

// FrameNumber extracts the trailing frame number from a sequence file name
// (digits immediately before the extension). Returns ok=false when the
// name carries no number.
func FrameNumber(file string) (int, bool) {
	base := filepath.Base(file)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	i := len(base)
	for i > 0 && base[i-1] >= '0' && base[i-1] <= '9' {
		i--
	}
	if i == len(base) {
		return 0, false
	}
	n := 0
	for _, c := range base[i:] {
		n = n*10 + int(c-'0')
	}
	return n, true
}
