// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

// Strategy names accepted by facial.recognition.strategy
const (
	// StrategyMock generates random embeddings; used when no strategy is configured
	StrategyMock = "mock"

	// StrategyOpenCV derives a deterministic embedding from decoded pixel data
	StrategyOpenCV = "opencv"
)

// Mock strategy constants
const (
	// MockEmbeddingSize is the number of random bytes produced per extraction
	MockEmbeddingSize = 128

	// MockCompareBytes is the number of leading bytes compared when matching
	MockCompareBytes = 10

	// MockSimilarityThreshold is the minimum fraction of equal leading bytes for a match
	MockSimilarityThreshold = 0.8
)

// Pixel-sum strategy constants
const (
	// PixelSumEmbeddingSize is two big-endian uint64 values
	PixelSumEmbeddingSize = 16

	// ColorChannels is the channel count of a decoded color image (BGR)
	ColorChannels = 3

	// DefaultMaxImagePixels bounds decoded image size (width * height)
	DefaultMaxImagePixels = 50_000_000
)
