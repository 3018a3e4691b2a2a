package scoring

import (
	"context"
	"testing"

	"github.com/banking/fraud-risk/internal/config"
	"github.com/banking/fraud-risk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubScorer struct {
	name string
	prob float64
	err  error
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(_ context.Context, _ *domain.FeatureVector) (float64, error) {
	return s.prob, s.err
}

func testScoringConfig() config.ScoringConfig {
	return config.ScoringConfig{
		LocalDistanceThreshold: 0.1,
		LocalOverrideDelta:     0.3,
		LocalRegionalWeight:    0.7,
		MixedRegionalWeight:    0.5,
		ForeignRegionalWeight:  0.2,
	}
}

func testGeoConfig() config.GeoConfig {
	return config.GeoConfig{
		HomeMinLat: 5.5, HomeMaxLat: 10.0,
		HomeMinLon: 79.0, HomeMaxLon: 82.0,
		CentroidLat: 6.9271, CentroidLon: 79.8612,
	}
}

func newTestBlender(regional, global Scorer) *HybridBlender {
	geo := NewGeoClassifier(testGeoConfig())
	return NewHybridBlender(regional, global, NewRuleFallbackScorer(), geo, testScoringConfig(), zap.NewNop())
}

var (
	homeLoc        = domain.Coordinates{Lat: 6.93, Lon: 79.86}
	homeLocNearby  = domain.Coordinates{Lat: 6.931, Lon: 79.861}
	homeLocDistant = domain.Coordinates{Lat: 9.8, Lon: 81.5}
	foreignLoc     = domain.Coordinates{Lat: 51.5, Lon: -0.12}
	foreignLoc2    = domain.Coordinates{Lat: 40.7, Lon: -74.0}
)

func TestHybridBlender_LocalPairWeighted(t *testing.T) {
	regional := &stubScorer{name: "regional", prob: 0.05}
	global := &stubScorer{name: "global", prob: 0.20}
	b := newTestBlender(regional, global)

	prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, 25, homeLoc, homeLocNearby)
	assert.InDelta(t, 0.095, prob, 1e-9)
	assert.Equal(t, StrategyLocalWeighted, strategy)
}

func TestHybridBlender_LocalPairOverride(t *testing.T) {
	regional := &stubScorer{name: "regional", prob: 0.9}
	global := &stubScorer{name: "global", prob: 0.1}
	b := newTestBlender(regional, global)

	prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, 25, homeLoc, homeLocNearby)
	assert.Equal(t, 0.9, prob)
	assert.Equal(t, StrategyLocalOverride, strategy)
}

func TestHybridBlender_LocalPairOverrideNegativeDiff(t *testing.T) {
	regional := &stubScorer{name: "regional", prob: 0.1}
	global := &stubScorer{name: "global", prob: 0.9}
	b := newTestBlender(regional, global)

	prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, 25, homeLoc, homeLocNearby)
	assert.Equal(t, 0.1, prob)
	assert.Equal(t, StrategyLocalOverride, strategy)
}

func TestHybridBlender_MixedPair(t *testing.T) {
	regional := &stubScorer{name: "regional", prob: 0.4}
	global := &stubScorer{name: "global", prob: 0.6}
	b := newTestBlender(regional, global)

	prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, 100, homeLoc, foreignLoc)
	assert.InDelta(t, 0.5, prob, 1e-9)
	assert.Equal(t, StrategyMixed, strategy)
}

func TestHybridBlender_ForeignPair(t *testing.T) {
	regional := &stubScorer{name: "regional", prob: 0.40}
	global := &stubScorer{name: "global", prob: 0.90}
	b := newTestBlender(regional, global)

	prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, 2800, foreignLoc, foreignLoc2)
	assert.InDelta(t, 0.80, prob, 1e-9)
	assert.Equal(t, StrategyForeign, strategy)
}

func TestHybridBlender_DistantHomePairUsesMixedWeights(t *testing.T) {
	// Both endpoints inside the home region but several degrees apart do
	// not qualify as a local pair. The pair still has home signal, so it
	// blends evenly rather than with the foreign weights.
	regional := &stubScorer{name: "regional", prob: 0.40}
	global := &stubScorer{name: "global", prob: 0.90}
	b := newTestBlender(regional, global)

	prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, 100, homeLoc, homeLocDistant)
	assert.InDelta(t, 0.65, prob, 1e-9)
	assert.Equal(t, StrategyMixed, strategy)
}

func TestHybridBlender_RegionalUnavailable(t *testing.T) {
	regional := &stubScorer{name: "regional", err: domain.ErrScorerUnavailable}
	global := &stubScorer{name: "global", prob: 0.42}
	b := newTestBlender(regional, global)

	prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, 100, homeLoc, homeLocNearby)
	assert.Equal(t, 0.42, prob)
	assert.Equal(t, StrategyGlobalOnly, strategy)
}

func TestHybridBlender_GlobalUnavailable(t *testing.T) {
	regional := &stubScorer{name: "regional", prob: 0.33}
	global := &stubScorer{name: "global", err: domain.ErrInference}
	b := newTestBlender(regional, global)

	prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, 100, foreignLoc, foreignLoc2)
	assert.Equal(t, 0.33, prob)
	assert.Equal(t, StrategyRegionalOnly, strategy)
}

func TestHybridBlender_BothUnavailableFallsBack(t *testing.T) {
	regional := &stubScorer{name: "regional", err: domain.ErrScorerUnavailable}
	global := &stubScorer{name: "global", err: domain.ErrScorerUnavailable}
	b := newTestBlender(regional, global)

	tests := []struct {
		name   string
		amount float64
		want   float64
	}{
		{"card testing amount", 3, 0.80},
		{"large amount", 2800, 0.85},
		{"elevated amount", 1500, 0.65},
		{"ordinary amount", 120, 0.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prob, strategy := b.Score(context.Background(), &domain.FeatureVector{}, tt.amount, homeLoc, homeLocNearby)
			assert.Equal(t, tt.want, prob)
			assert.Equal(t, StrategyFallback, strategy)
		})
	}
}

func TestHybridBlender_Deterministic(t *testing.T) {
	regional := &stubScorer{name: "regional", prob: 0.37}
	global := &stubScorer{name: "global", prob: 0.62}
	b := newTestBlender(regional, global)

	first, _ := b.Score(context.Background(), &domain.FeatureVector{}, 100, homeLoc, foreignLoc)
	for i := 0; i < 10; i++ {
		again, _ := b.Score(context.Background(), &domain.FeatureVector{}, 100, homeLoc, foreignLoc)
		require.Equal(t, first, again)
	}
}
