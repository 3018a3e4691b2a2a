package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/banking/fraud-risk/internal/domain"
	"go.uber.org/zap"
)

// Scorer produces a fraud probability in [0,1] for a feature vector.
// Implementations return domain.ErrScorerUnavailable when the underlying
// model never loaded, and domain.ErrInference for per-call failures.
type Scorer interface {
	Name() string
	Score(ctx context.Context, vec *domain.FeatureVector) (float64, error)
}

// ModelAdapter wraps one trained model artifact behind the Scorer
// interface. The artifact is resolved exactly once at startup; there is no
// runtime branching on model shape. A load failure marks the adapter
// permanently unavailable without failing service startup - the blender
// degrades instead.
type ModelAdapter struct {
	name     string
	artifact *ModelArtifact
	timeout  time.Duration
	loadErr  error
	logger   *zap.Logger
}

// NewModelAdapter loads the artifact at path. On load failure the returned
// adapter reports ErrScorerUnavailable on every call.
func NewModelAdapter(name, path string, timeout time.Duration, logger *zap.Logger) *ModelAdapter {
	adapter := &ModelAdapter{
		name:    name,
		timeout: timeout,
		logger:  logger,
	}

	artifact, err := LoadArtifact(path)
	if err != nil {
		logger.Warn("Model artifact unavailable, adapter permanently disabled",
			zap.String("scorer", name),
			zap.String("path", path),
			zap.Error(err),
		)
		adapter.loadErr = err
		return adapter
	}

	adapter.artifact = artifact
	logger.Info("Model artifact loaded",
		zap.String("scorer", name),
		zap.Int("schema_version", artifact.SchemaVersion),
		zap.Int("features", len(artifact.Features)),
		zap.Time("trained_at", artifact.TrainedAt),
	)
	return adapter
}

// Name returns the adapter's identity (e.g. "regional", "global").
func (a *ModelAdapter) Name() string {
	return a.name
}

// Available reports whether the artifact loaded at startup.
func (a *ModelAdapter) Available() bool {
	return a.loadErr == nil
}

// Score runs inference within the configured deadline. A deadline expiry or
// schema mismatch is an inference error, not a permanent failure.
func (a *ModelAdapter) Score(ctx context.Context, vec *domain.FeatureVector) (float64, error) {
	if a.loadErr != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrScorerUnavailable, a.name, a.loadErr)
	}
	if vec.SchemaVersion != a.artifact.SchemaVersion {
		return 0, fmt.Errorf("%w: %s expects schema v%d, got v%d",
			domain.ErrInference, a.name, a.artifact.SchemaVersion, vec.SchemaVersion)
	}
	if len(vec.Values) != len(a.artifact.Weights) {
		return 0, fmt.Errorf("%w: %s expects %d features, got %d",
			domain.ErrInference, a.name, len(a.artifact.Weights), len(vec.Values))
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInference, a.name, err)
	}

	type result struct {
		prob float64
		err  error
	}
	done := make(chan result, 1)
	go func() {
		done <- result{prob: a.infer(vec.Values)}
	}()

	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInference, a.name, ctx.Err())
	case res := <-done:
		return res.prob, res.err
	}
}

// infer evaluates the logistic model.
func (a *ModelAdapter) infer(values []float64) float64 {
	z := a.artifact.Bias
	for i, w := range a.artifact.Weights {
		z += w * values[i]
	}
	prob := 1.0 / (1.0 + math.Exp(-z))
	return math.Min(1, math.Max(0, prob))
}
