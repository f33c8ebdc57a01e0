package prediction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Model is a fitted downtime-risk classifier. It serialises to JSON;
// encoding/json writes the shortest exact representation of each float,
// so a reloaded model predicts identically.
type Model struct {
	ID           string    `json:"id"`
	FeatureNames []string  `json:"feature_names"`
	Weights      []float64 `json:"weights"`
	Bias         float64   `json:"bias"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
	Lambda       float64   `json:"lambda"`
	Samples      int       `json:"samples"`
	Positives    int       `json:"positives"`
	TrainedAt    time.Time `json:"trained_at"`
}

// Probability scores a raw (unscaled) feature vector
func (m *Model) Probability(f Features) float64 {
	z := m.Bias
	for j, v := range scale(f, m.Means, m.Scales) {
		z += m.Weights[j] * v
	}
	return sigmoid(z)
}

// compatible reports whether the model was fitted on the current feature set
func (m *Model) compatible() error {
	if len(m.FeatureNames) != len(FeatureNames) {
		return fmt.Errorf("model has %d features, want %d", len(m.FeatureNames), len(FeatureNames))
	}
	for i, name := range FeatureNames {
		if m.FeatureNames[i] != name {
			return fmt.Errorf("model feature %d is %q, want %q", i, m.FeatureNames[i], name)
		}
	}
	n := len(FeatureNames)
	if len(m.Weights) != n || len(m.Means) != n || len(m.Scales) != n {
		return fmt.Errorf("model parameter vectors do not match %d features", n)
	}
	for _, s := range m.Scales {
		if s == 0 {
			return fmt.Errorf("model has a zero scale")
		}
	}
	return nil
}

// SaveModel writes m to path, replacing any previous model atomically
func SaveModel(path string, m *Model) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.json")
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// LoadModel reads a model written by SaveModel
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode model %s: %w", path, err)
	}
	if err := m.compatible(); err != nil {
		return nil, fmt.Errorf("model %s is unusable: %w", path, err)
	}
	return &m, nil
}
