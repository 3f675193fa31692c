// Package strategy implements the embedding extraction and comparison backends.
//
// A Strategy turns raw image bytes into an opaque fixed-length embedding and decides
// whether two embeddings belong to the same face. Exactly one strategy is active per
// process; embeddings from different strategies are never compared.
package strategy

import (
	"fmt"
	"strings"

	"github.com/kozaktomas/facial-recognition/internal/constants"
)

// Strategy defines the interface for embedding backends.
// Implementations must be safe for concurrent use.
type Strategy interface {
	// Name returns the configuration value selecting this strategy.
	Name() string
	// Extract returns the embedding for an image, or nil when the image is empty,
	// undecodable, or contains no usable face. It never panics.
	Extract(image []byte) []byte
	// Match reports whether two embeddings are considered the same face.
	// It returns false when either embedding is empty or their lengths differ.
	// Match is deterministic and symmetric.
	Match(a, b []byte) bool
}

// Options tunes strategy construction.
type Options struct {
	// MaxImagePixels bounds width*height of decoded images; zero uses the default.
	MaxImagePixels int
}

// New returns the strategy registered under name. An empty name selects the mock strategy.
func New(name string, opts Options) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", constants.StrategyMock:
		return NewMock(), nil
	case constants.StrategyOpenCV:
		return NewPixelSum(opts.MaxImagePixels), nil
	default:
		return nil, fmt.Errorf("unknown facial recognition strategy %q", name)
	}
}

// comparableEmbeddings reports whether two embeddings can be compared at all.
func comparableEmbeddings(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && len(a) == len(b)
}
