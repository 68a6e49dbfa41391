package tagger

import (
	"errors"
	"hash/fnv"
	"math"
	"strings"

	"classpulse/internal/model"
)

// ErrNoCandidates means Predict was called with an empty tag set. The
// caller keeps the question untagged instead of failing the submission.
var ErrNoCandidates = errors.New("no candidate tags")

// Tagger scores a question body against a course's tags and returns the
// id of the best match. Pure function, no side effects.
type Tagger interface {
	Predict(body string, candidates []model.Tag) (int64, error)
}

// CosineTagger maps texts into a fixed-size feature space with the
// hashing trick and ranks candidates by cosine similarity.
type CosineTagger struct {
	size int
}

const defaultFeatureSize = 1024

// NewCosineTagger creates a tagger with the given feature-space size.
// features() uses size as a modulus, so non-positive values fall back
// to the default.
func NewCosineTagger(size int) *CosineTagger {
	if size <= 0 {
		size = defaultFeatureSize
	}
	return &CosineTagger{size: size}
}

// Predict returns the id of the highest-scoring candidate. Ties keep the
// earliest candidate. Total over any non-empty candidate set: even with
// zero overlap some candidate id is returned.
func (t *CosineTagger) Predict(body string, candidates []model.Tag) (int64, error) {
	if len(candidates) == 0 {
		return 0, ErrNoCandidates
	}

	qv := t.features(body)
	best := candidates[0].ID
	bestScore := math.Inf(-1)
	for _, c := range candidates {
		score := cosine(qv, t.features(c.Name))
		if score > bestScore {
			bestScore = score
			best = c.ID
		}
	}
	return best, nil
}

// features transforms text into a fixed-size bag-of-words vector, mapping
// normalized words to indices by FNV hash. Binary features are more
// robust than counts for the short texts seen here. Punctuation is
// stripped so "polymorphism?" and "polymorphism" share a feature.
func (t *CosineTagger) features(text string) []float64 {
	normalized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return ' '
		}
	}, text)

	vec := make([]float64, t.size)
	for _, w := range strings.Fields(normalized) {
		h := fnv.New32a()
		h.Write([]byte(w))
		vec[int(h.Sum32())%t.size] = 1.0
	}
	return vec
}

func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
