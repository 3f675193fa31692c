package strategy

import (
	"crypto/rand"

	"github.com/kozaktomas/facial-recognition/internal/constants"
)

// Mock produces random embeddings. Two extractions of the same image almost never
// match; it exercises the enrollment pipeline, not recognition quality.
type Mock struct{}

// NewMock creates the mock strategy.
func NewMock() *Mock {
	return &Mock{}
}

// Name returns "mock".
func (m *Mock) Name() string {
	return constants.StrategyMock
}

// Extract returns MockEmbeddingSize random bytes for any non-empty input.
func (m *Mock) Extract(image []byte) []byte {
	if len(image) == 0 {
		return nil
	}
	embedding := make([]byte, constants.MockEmbeddingSize)
	_, _ = rand.Read(embedding)
	return embedding
}

// Match compares the leading MockCompareBytes bytes and requires at least
// MockSimilarityThreshold of them to be equal.
func (m *Mock) Match(a, b []byte) bool {
	if !comparableEmbeddings(a, b) {
		return false
	}
	return Similarity(a, b) >= constants.MockSimilarityThreshold
}

// Similarity returns the fraction of equal bytes among the first MockCompareBytes
// positions. The denominator is always MockCompareBytes, so shorter embeddings
// can never reach 1.0.
func Similarity(a, b []byte) float64 {
	n := min(constants.MockCompareBytes, len(a), len(b))
	matching := 0
	for i := range n {
		if a[i] == b[i] {
			matching++
		}
	}
	return float64(matching) / float64(constants.MockCompareBytes)
}
