package core

const (
	HealthExcellent HealthStatus = "excellent"
	HealthGood      HealthStatus = "good"
	HealthAttention HealthStatus = "attention"
	HealthConcern   HealthStatus = "concern"
)

const (
	Celebration   EncouragementLevel = "celebration"
	Encouragement EncouragementLevel = "encouragement"
	Guidance      EncouragementLevel = "guidance"
	Support       EncouragementLevel = "support"
)

type (
	// HealthStatus is the four-level budget-health classification.
	HealthStatus string

	// EncouragementLevel is the tone the impact previewer picks for its
	// narrative message. It is a pure function of HealthStatus.
	EncouragementLevel string

	// HealthPolicy holds the percentage-used cut points for the four-level
	// scale. A single policy value is injected wherever classification
	// happens so the breakpoints live in exactly one place.
	HealthPolicy struct {
		Excellent float64 // percentageUsed <= Excellent
		Good      float64 // percentageUsed <= Good
		Attention float64 // percentageUsed <= Attention, above is concern
	}
)

// StrictPolicy is the canonical table for per-category metrics and impact
// previews.
var StrictPolicy = HealthPolicy{Excellent: 50, Good: 75, Attention: 90}

// LenientPolicy is applied only to the dashboard's weighted overall score,
// which blends savings and net-worth components and tolerates higher usage.
var LenientPolicy = HealthPolicy{Excellent: 70, Good: 85, Attention: 100}

// Classify maps a percentage-used figure onto the four-level scale.
func (p HealthPolicy) Classify(percentageUsed float64) HealthStatus {
	switch {
	case percentageUsed <= p.Excellent:
		return HealthExcellent
	case percentageUsed <= p.Good:
		return HealthGood
	case percentageUsed <= p.Attention:
		return HealthAttention
	default:
		return HealthConcern
	}
}

// Rank orders statuses from best (0) to worst (3), used for monotonicity
// checks and for aggregating several statuses into a worst-of.
func (s HealthStatus) Rank() int {
	switch s {
	case HealthExcellent:
		return 0
	case HealthGood:
		return 1
	case HealthAttention:
		return 2
	default:
		return 3
	}
}

// Encouragement maps a health status to the previewer's message tone.
func (s HealthStatus) Encouragement() EncouragementLevel {
	switch s {
	case HealthExcellent:
		return Celebration
	case HealthGood:
		return Encouragement
	case HealthAttention:
		return Guidance
	default:
		return Support
	}
}
