package scoring

// RuleFallbackScorer is the deterministic amount-only heuristic used when
// no trained model can produce a probability. Submission must never block
// on model availability, so this scorer always answers.
type RuleFallbackScorer struct{}

// NewRuleFallbackScorer returns the fallback scorer.
func NewRuleFallbackScorer() *RuleFallbackScorer {
	return &RuleFallbackScorer{}
}

// Score maps an amount to a fraud probability. Very small amounts score
// high: the card-testing pattern probes stolen cards with tiny charges.
func (s *RuleFallbackScorer) Score(amount float64) float64 {
	switch {
	case amount > 2000:
		return 0.85
	case amount > 1000:
		return 0.65
	case amount < 10:
		return 0.80
	default:
		return 0.15
	}
}
