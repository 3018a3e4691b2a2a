package scoring

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ModelArtifact is the on-disk representation of a trained classifier:
// a logistic model serialized with the feature schema it was trained
// against. Training happens offline; the artifact is opaque to everything
// outside the adapter that loads it.
type ModelArtifact struct {
	Name          string    `json:"name"`
	SchemaVersion int       `json:"schema_version"`
	Features      []string  `json:"features"`
	Weights       []float64 `json:"weights"`
	Bias          float64   `json:"bias"`
	TrainedAt     time.Time `json:"trained_at"`
}

// LoadArtifact reads and validates a model artifact from disk. Any failure
// here is permanent for the process lifetime - there is no artifact reload.
func LoadArtifact(path string) (*ModelArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}

	var artifact ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}

	if len(artifact.Features) == 0 {
		return nil, fmt.Errorf("model artifact %s has no features", path)
	}
	if len(artifact.Weights) != len(artifact.Features) {
		return nil, fmt.Errorf("model artifact %s: %d weights for %d features",
			path, len(artifact.Weights), len(artifact.Features))
	}

	return &artifact, nil
}
