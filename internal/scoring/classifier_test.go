package scoring

import (
	"testing"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestRiskClassifier_Classify(t *testing.T) {
	c := NewRiskClassifier(config.RiskConfig{LowThreshold: 0.1, MediumThreshold: 0.3})

	tests := []struct {
		name string
		prob float64
		want domain.RiskTier
	}{
		{"zero", 0.0, domain.TierLow},
		{"just under low", 0.0999, domain.TierLow},
		{"low boundary is medium", 0.1, domain.TierMedium},
		{"mid band", 0.2, domain.TierMedium},
		{"medium boundary is high", 0.3, domain.TierHigh},
		{"well into high", 0.8, domain.TierHigh},
		{"certainty", 1.0, domain.TierHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.prob))
		})
	}
}
