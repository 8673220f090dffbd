// Package classifier loads the pre-trained page classifier and scores pages
// with it. The artifacts are produced offline by the training job; the gate
// must not start without them.
package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/sievesearch/sieve/internal/pipeline"
)

// modelArtifact is the on-disk export of the fitted logistic regression:
// one coefficient per vocabulary term plus the intercept. The positive class
// is the target content type.
type modelArtifact struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Model is the loaded vectorizer plus binary classifier. It is immutable
// after Load and safe for concurrent use.
type Model struct {
	vec       *vectorizer
	coef      []float64
	intercept float64
}

// Load reads both artifacts and validates that they agree on dimensionality.
// Any failure here is fatal to the caller: the gate cannot make admission
// decisions without a model.
func Load(modelPath, vectorizerPath string) (*Model, error) {
	vec, err := loadVectorizer(vectorizerPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}
	var artifact modelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse model artifact %s: %w", modelPath, err)
	}
	if len(artifact.Coefficients) != len(vec.idf) {
		return nil, fmt.Errorf("model artifact %s: %d coefficients for %d vocabulary terms",
			modelPath, len(artifact.Coefficients), len(vec.idf))
	}
	return &Model{
		vec:       vec,
		coef:      artifact.Coefficients,
		intercept: artifact.Intercept,
	}, nil
}

// Classify tokenizes and vectorizes the page, then returns the predicted
// probability pair: pReject that the page is not the target content type,
// pAccept that it is. The two always sum to one. No side effects.
func (m *Model) Classify(page pipeline.PageRecord) (pReject, pAccept float64, err error) {
	vec := m.vec.transform(page.Tokenize())

	z := m.intercept
	for idx, w := range vec {
		z += m.coef[idx] * w
	}

	pAccept = 1.0 / (1.0 + math.Exp(-z))
	return 1.0 - pAccept, pAccept, nil
}
