package scoring

import (
	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
)

// RiskClassifier maps a fraud probability onto a discrete tier. The
// thresholds partition [0, 1] with no gaps: probabilities below the low
// threshold are LOW, below the medium threshold MEDIUM, and everything
// else HIGH.
type RiskClassifier struct {
	low    float64
	medium float64
}

func NewRiskClassifier(cfg config.RiskConfig) *RiskClassifier {
	return &RiskClassifier{low: cfg.LowThreshold, medium: cfg.MediumThreshold}
}

func (c *RiskClassifier) Classify(probability float64) domain.RiskTier {
	switch {
	case probability < c.low:
		return domain.TierLow
	case probability < c.medium:
		return domain.TierMedium
	default:
		return domain.TierHigh
	}
}
