package domain

// ModerationPolicy decides whether a post has collected enough reports
// to be removed. It never acts on the decision itself.
type ModerationPolicy struct {
	Threshold int
}

const DefaultReportThreshold = 3

// NewModerationPolicy returns a policy with the given report threshold,
// falling back to the default when the threshold is not positive.
func NewModerationPolicy(threshold int) ModerationPolicy {
	if threshold <= 0 {
		threshold = DefaultReportThreshold
	}
	return ModerationPolicy{Threshold: threshold}
}

// ShouldRemove is true once the post's distinct report count reaches the
// threshold.
func (m ModerationPolicy) ShouldRemove(p *Post) bool {
	return p.Reports >= m.Threshold
}
