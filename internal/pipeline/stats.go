package pipeline

import "time"

// Stats summarizes one completed run.
type Stats struct {
	RunID        string
	Items        int
	WebPExpanded int
	Sequences    int
	Videos       int
	StreamCopied bool // The final merge used the stream-copy fast path.
	Output       string
	Elapsed      time.Duration
}
