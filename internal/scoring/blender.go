package scoring

import (
	"context"
	"errors"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
	"go.uber.org/zap"
)

// Blend strategies, reported for observability.
const (
	StrategyFallback      = "fallback"
	StrategyRegionalOnly  = "regional_only"
	StrategyGlobalOnly    = "global_only"
	StrategyLocalOverride = "local_override"
	StrategyLocalWeighted = "local_weighted"
	StrategyMixed         = "mixed"
	StrategyForeign       = "foreign"
)

// HybridBlender combines the regional and global scorers using geographic
// context. The regional model is trained on home-region spending patterns
// and is unreliable cross-border; the global model is the inverse. Blending
// avoids the discontinuity a hard cutover would create at region
// boundaries. Scoring failures are absorbed here and never surface to the
// submission path.
type HybridBlender struct {
	regional Scorer
	global   Scorer
	fallback *RuleFallbackScorer
	geo      *GeoClassifier

	localThreshold float64
	overrideDelta  float64
	localWeight    float64
	mixedWeight    float64
	foreignWeight  float64

	logger *zap.Logger
}

// NewHybridBlender builds the blend policy from configuration constants.
func NewHybridBlender(regional, global Scorer, fallback *RuleFallbackScorer, geo *GeoClassifier, cfg config.ScoringConfig, logger *zap.Logger) *HybridBlender {
	return &HybridBlender{
		regional:       regional,
		global:         global,
		fallback:       fallback,
		geo:            geo,
		localThreshold: cfg.LocalDistanceThreshold,
		overrideDelta:  cfg.LocalOverrideDelta,
		localWeight:    cfg.LocalRegionalWeight,
		mixedWeight:    cfg.MixedRegionalWeight,
		foreignWeight:  cfg.ForeignRegionalWeight,
		logger:         logger,
	}
}

// Score runs both adapters and blends their results. It always returns a
// usable probability; the strategy identifies which policy branch applied.
func (b *HybridBlender) Score(ctx context.Context, vec *domain.FeatureVector, amount float64, userLoc, merchLoc domain.Coordinates) (float64, string) {
	regionalProb, regionalErr := b.regional.Score(ctx, vec)
	if regionalErr != nil {
		b.logScorerFailure(b.regional.Name(), regionalErr)
	}
	globalProb, globalErr := b.global.Score(ctx, vec)
	if globalErr != nil {
		b.logScorerFailure(b.global.Name(), globalErr)
	}

	// Degradation ladder before any geographic weighting.
	switch {
	case regionalErr != nil && globalErr != nil:
		return b.fallback.Score(amount), StrategyFallback
	case regionalErr != nil:
		return globalProb, StrategyGlobalOnly
	case globalErr != nil:
		return regionalProb, StrategyRegionalOnly
	}

	return b.blend(regionalProb, globalProb, userLoc, merchLoc)
}

// blend applies the geographic weighting to two live probabilities.
func (b *HybridBlender) blend(regional, global float64, userLoc, merchLoc domain.Coordinates) (float64, string) {
	userHome := b.geo.Classify(userLoc) == RegionHome
	merchHome := b.geo.Classify(merchLoc) == RegionHome
	localDistance := b.geo.Distance(userLoc, merchLoc)

	isLocalPair := userHome && merchHome && localDistance < b.localThreshold

	switch {
	case isLocalPair:
		// Strong disagreement on a local pair means the regional model
		// sees a pattern the global one cannot; trust it outright.
		if diff := regional - global; diff > b.overrideDelta || diff < -b.overrideDelta {
			return regional, StrategyLocalOverride
		}
		return b.localWeight*regional + (1-b.localWeight)*global, StrategyLocalWeighted
	case userHome || merchHome:
		// At least one home endpoint without local proximity: one mixed
		// endpoint, or a home pair too far apart to qualify as local.
		// Both models carry partial signal, so they weigh equally.
		return b.mixedWeight*regional + (1-b.mixedWeight)*global, StrategyMixed
	default:
		// Neither endpoint is home; the regional model is out of its
		// training distribution.
		return b.foreignWeight*regional + (1-b.foreignWeight)*global, StrategyForeign
	}
}

func (b *HybridBlender) logScorerFailure(name string, err error) {
	if errors.Is(err, domain.ErrScorerUnavailable) {
		// Permanent condition, already logged at startup. Keep quiet at
		// request rate.
		return
	}
	b.logger.Warn("Scorer inference failed, degrading blend",
		zap.String("scorer", name),
		zap.Error(err),
	)
}
