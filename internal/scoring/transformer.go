package scoring

import (
	"fmt"
	"time"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
)

// FeatureTransformer builds the fixed-order feature vector consumed by the
// scorers. It is a pure function of its inputs: the observation time is
// passed explicitly so repeated calls with identical inputs produce
// identical vectors.
type FeatureTransformer struct {
	amountCenter  float64
	amountSpread  float64
	highRiskHours map[int]bool
	geo           *GeoClassifier
}

// NewFeatureTransformer builds a transformer with scaling constants frozen
// at model training time.
func NewFeatureTransformer(cfg config.FeaturesConfig, geo *GeoClassifier) *FeatureTransformer {
	hours := make(map[int]bool, len(cfg.HighRiskHours))
	for _, h := range cfg.HighRiskHours {
		hours[h] = true
	}
	return &FeatureTransformer{
		amountCenter:  cfg.AmountCenter,
		amountSpread:  cfg.AmountSpread,
		highRiskHours: hours,
		geo:           geo,
	}
}

// Transform encodes a transaction into the current feature schema.
// It rejects amounts <= 0 and categories outside the closed enum before any
// scoring happens; both are validation failures the caller must surface.
func (t *FeatureTransformer) Transform(tx *domain.Transaction, now time.Time) (*domain.FeatureVector, error) {
	if tx.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive, got %.2f", domain.ErrValidation, tx.Amount)
	}
	if !tx.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", domain.ErrValidation, tx.Category)
	}

	user := tx.SubmitterLocation
	merch := tx.MerchantLocation

	weekday := int(now.Weekday())
	isWeekend := 0.0
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		isWeekend = 1.0
	}
	highRiskHour := 0.0
	if t.highRiskHours[now.Hour()] {
		highRiskHour = 1.0
	}

	values := []float64{
		(tx.Amount - t.amountCenter) / t.amountSpread,
		float64(now.Hour()),
		float64(weekday),
		isWeekend,
		float64(now.Month()),
		highRiskHour,
		user.Lat,
		user.Lon,
		merch.Lat,
		merch.Lon,
		t.geo.Distance(user, merch),
	}
	for _, cat := range domain.Categories() {
		if tx.Category == cat {
			values = append(values, 1)
		} else {
			values = append(values, 0)
		}
	}

	return &domain.FeatureVector{
		SchemaVersion: domain.FeatureSchemaVersion,
		Values:        values,
	}, nil
}
