// Package display renders user-facing terminal output: the in-place
// progress line and the end-of-run summary.
package display

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/stillpond/framefuse/internal/pipeline"
	"github.com/stillpond/framefuse/internal/term"
)

// FormatBytes renders a byte count with a binary-unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FormatDuration renders an elapsed time rounded to a readable precision.
func FormatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return d.Round(time.Second).String()
	case d >= time.Second:
		return d.Round(100 * time.Millisecond).String()
	default:
		return d.Round(time.Millisecond).String()
	}
}

// Progress writes an in-place progress line. On non-terminal writers it
// degrades to occasional plain lines so logs stay readable.
type Progress struct {
	w     io.Writer
	tty   bool
	last  int
	wrote bool
}

// NewProgress returns a Progress writing to w. tty selects in-place
// rewriting with \r.
func NewProgress(w io.Writer, tty bool) *Progress {
	return &Progress{w: w, tty: tty, last: -1}
}

// Update renders a status update. Repeated updates for the same whole
// percent are dropped.
func (p *Progress) Update(s pipeline.Status) {
	pct := int(s.Percent)
	if pct == p.last {
		return
	}
	p.last = pct
	p.wrote = true

	if p.tty {
		fmt.Fprintf(p.w, "\r%s[%3d%%]%s %-9s %s\x1b[K", term.Cyan, pct, term.NC, s.Stage, s.Detail)
		return
	}
	// Plain writers get a line every 10 points.
	if pct%10 == 0 || pct == 100 {
		fmt.Fprintf(p.w, "[%3d%%] %s %s\n", pct, s.Stage, s.Detail)
	}
}

// Finish terminates the in-place line so following output starts clean.
func (p *Progress) Finish() {
	if p.tty && p.wrote {
		fmt.Fprintln(p.w)
	}
}

// Summary prints the end-of-run report.
func Summary(w io.Writer, stats *pipeline.Stats) {
	fmt.Fprintf(w, "%sDone%s %s\n", term.Green, term.NC, stats.Output)
	fmt.Fprintf(w, "  items:    %d (%d video, %d sequence, %d webp)\n",
		stats.Items, stats.Videos, stats.Sequences, stats.WebPExpanded)

	merge := "re-encoded"
	if stats.StreamCopied {
		merge = "stream copy"
	}
	fmt.Fprintf(w, "  merge:    %s\n", merge)

	if fi, err := os.Stat(stats.Output); err == nil {
		fmt.Fprintf(w, "  size:     %s\n", FormatBytes(fi.Size()))
	}
	fmt.Fprintf(w, "  elapsed:  %s\n", FormatDuration(stats.Elapsed))
}
