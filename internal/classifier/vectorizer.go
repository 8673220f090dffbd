package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// vectorizerArtifact is the on-disk export of the fitted TF-IDF vectorizer:
// the n-gram vocabulary, the per-term idf weights, and the analyzer settings
// the training job used.
type vectorizerArtifact struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
	NgramMin   int            `json:"ngram_min"`
	NgramMax   int            `json:"ngram_max"`
	StopWords  []string       `json:"stop_words"`
}

// vectorizer turns a token string into a sparse L2-normalized tf-idf vector.
type vectorizer struct {
	vocabulary map[string]int
	idf        []float64
	ngramMin   int
	ngramMax   int
	stopWords  map[string]struct{}
}

func loadVectorizer(path string) (*vectorizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vectorizer artifact: %w", err)
	}
	var artifact vectorizerArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("parse vectorizer artifact %s: %w", path, err)
	}
	if len(artifact.Vocabulary) == 0 {
		return nil, fmt.Errorf("vectorizer artifact %s: empty vocabulary", path)
	}
	if len(artifact.IDF) != len(artifact.Vocabulary) {
		return nil, fmt.Errorf("vectorizer artifact %s: %d idf weights for %d terms",
			path, len(artifact.IDF), len(artifact.Vocabulary))
	}
	if artifact.NgramMin < 1 || artifact.NgramMax < artifact.NgramMin {
		return nil, fmt.Errorf("vectorizer artifact %s: invalid ngram range (%d,%d)",
			path, artifact.NgramMin, artifact.NgramMax)
	}
	for term, idx := range artifact.Vocabulary {
		if idx < 0 || idx >= len(artifact.IDF) {
			return nil, fmt.Errorf("vectorizer artifact %s: term %q index %d out of range", path, term, idx)
		}
	}
	stop := make(map[string]struct{}, len(artifact.StopWords))
	for _, w := range artifact.StopWords {
		stop[w] = struct{}{}
	}
	return &vectorizer{
		vocabulary: artifact.Vocabulary,
		idf:        artifact.IDF,
		ngramMin:   artifact.NgramMin,
		ngramMax:   artifact.NgramMax,
		stopWords:  stop,
	}, nil
}

// transform vectorizes the token string: stop-word removal, n-gram expansion
// over the remaining token stream, vocabulary lookup, tf scaled by idf, then
// L2 normalization. Matches the training-side transform term for term.
func (v *vectorizer) transform(tokenString string) map[int]float64 {
	tokens := strings.Fields(tokenString)
	if len(v.stopWords) > 0 {
		kept := tokens[:0]
		for _, t := range tokens {
			if _, stopped := v.stopWords[t]; !stopped {
				kept = append(kept, t)
			}
		}
		tokens = kept
	}

	vec := make(map[int]float64)
	for n := v.ngramMin; n <= v.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if idx, ok := v.vocabulary[term]; ok {
				vec[idx]++
			}
		}
	}

	for idx := range vec {
		vec[idx] *= v.idf[idx]
	}

	var sumSquares float64
	for _, w := range vec {
		sumSquares += w * w
	}
	if sumSquares > 0 {
		norm := math.Sqrt(sumSquares)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}
