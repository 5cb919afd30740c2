package pipeline

// Budget splits the 100-point progress scale across the run's phases. The
// merge always owns a fixed share; WebP expansion claims its configured
// share of the remainder only when WebP inputs exist, and transcoding gets
// whatever is left. The three shares always sum to exactly 100.
type Budget struct {
	WebP      float64
	Transcode float64
	Concat    float64
}

// concatShare is the fixed slice of the scale owned by the merge phase.
const concatShare = 30.0

// NewBudget computes the phase split. webpShare is the fraction of the
// pre-merge budget granted to WebP expansion when hasWebP is true.
func NewBudget(hasWebP bool, webpShare float64) Budget {
	pre := 100.0 - concatShare
	var w float64
	if hasWebP {
		w = pre * webpShare
	}
	return Budget{
		WebP:      w,
		Transcode: pre - w,
		Concat:    concatShare,
	}
}

// PreMerge returns the points consumed before the merge phase starts.
func (b Budget) PreMerge() float64 {
	return b.WebP + b.Transcode
}

// Total returns the full scale. Always 100.
func (b Budget) Total() float64 {
	return b.WebP + b.Transcode + b.Concat
}
