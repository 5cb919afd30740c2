package pipeline

import "sync"

// Status is one progress update delivered to the caller.
type Status struct {
	Percent float64 // Overall completion in [0, 100].
	Stage   string  // Phase name: "expand", "transcode", "merge", "done".
	Detail  string  // Human-readable detail, e.g. the current input path.
}

// StatusFunc receives progress updates. Called from the pipeline's own
// goroutine; implementations must not block for long.
type StatusFunc func(Status)

// tracker serializes status updates and enforces that the reported percent
// only ever moves forward within [0, 100]. Engine progress estimates can
// jitter backwards; callers never see that.
type tracker struct {
	mu      sync.Mutex
	percent float64
	report  StatusFunc
}

func newTracker(report StatusFunc) *tracker {
	return &tracker{report: report}
}

// set reports percent for the given stage, clamped and monotonic.
func (t *tracker) set(percent float64, stage, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if percent < t.percent {
		percent = t.percent
	}
	if percent > 100 {
		percent = 100
	}
	t.percent = percent

	if t.report != nil {
		t.report(Status{Percent: percent, Stage: stage, Detail: detail})
	}
}

// value returns the last reported percent.
func (t *tracker) value() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.percent
}
