package training

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"frauddetect/internal/evaluation"
	"frauddetect/internal/features"
	"frauddetect/internal/models"

	"github.com/AdguardTeam/golibs/errors"
)

// ErrIncompleteArtifact is returned when a loaded artifact has no model or no
// pipeline.
const ErrIncompleteArtifact errors.Error = "artifact has no model or no pipeline"

// Artifact is everything needed to score transactions: the fitted pipeline,
// the fitted model and its threshold.
type Artifact struct {
	TrainedAt time.Time
	Model     models.Model
	Pipeline  *features.Pipeline

	// Algorithm is the short name of the algorithm, like "rf".
	Algorithm string

	// Baseline is the mean feature vector of the training set.
	Baseline []float64

	Metrics   evaluation.Report
	Threshold float64
}

// Score returns the fraud probability of the feature vector x.
func (a *Artifact) Score(x []float64) (p float64) {
	return a.Model.PredictProba([][]float64{x})[0]
}

// Classify returns 1 if the probability p reaches the threshold.
func (a *Artifact) Classify(p float64) (class int) {
	if p >= a.Threshold {
		return 1
	}

	return 0
}

// SaveArtifact writes a to path with encoding/gob, creating the parent
// directory.
func SaveArtifact(path string, a *Artifact) (err error) {
	if err = os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating artifact: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	if err = gob.NewEncoder(f).Encode(a); err != nil {
		return fmt.Errorf("encoding artifact: %w", err)
	}

	return nil
}

// LoadArtifact reads the artifact stored at path.
func LoadArtifact(path string) (a *Artifact, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	defer func() { err = errors.WithDeferred(err, f.Close()) }()

	a = &Artifact{}
	if err = gob.NewDecoder(f).Decode(a); err != nil {
		return nil, fmt.Errorf("decoding artifact %q: %w", path, err)
	}

	if a.Model == nil || a.Pipeline == nil {
		return nil, ErrIncompleteArtifact
	}

	return a, nil
}
