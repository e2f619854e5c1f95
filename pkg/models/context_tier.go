package models

// ContextTier represents how much conversation and file history is loaded
// into a renderer prompt. Tiers are ordered by the amount of context included.
type ContextTier string

const (
	// TierMinimal includes no prior history at all.
	TierMinimal ContextTier = "minimal"
	// TierPlanning includes a small recent window for explanatory questions.
	TierPlanning ContextTier = "planning"
	// TierExecution is the default for new-content generation.
	TierExecution ContextTier = "execution"
	// TierBrownfield includes a deep window for modification requests.
	TierBrownfield ContextTier = "brownfield"
	// TierFull includes the entire history and file content, untruncated.
	TierFull ContextTier = "full"
)

// Valid returns true if the tier is a known value.
func (t ContextTier) Valid() bool {
	switch t {
	case TierMinimal, TierPlanning, TierExecution, TierBrownfield, TierFull:
		return true
	default:
		return false
	}
}

// MessageLimit returns the maximum number of prior messages included for the
// tier. A negative value means unbounded (take all).
func (t ContextTier) MessageLimit() int {
	switch t {
	case TierMinimal:
		return 0
	case TierPlanning:
		return 3
	case TierExecution:
		return 6
	case TierBrownfield:
		return 10
	case TierFull:
		return -1
	default:
		return 6
	}
}
