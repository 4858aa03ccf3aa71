package annotate

import (
	"github.com/pkg/errors"

	"github.com/annotext/go-bertvec/embed"
)

// Limits and defaults for Config. MaxModelLength is the position-embedding
// capacity of BERT-style models; longer sentences cannot be represented.
const (
	MaxModelLength = 512

	DefaultDimension         = 768
	DefaultBatchSize         = 32
	DefaultMaxSentenceLength = 128
	DefaultParallelism       = 1
)

// Config is the immutable annotator configuration, built once and validated
// eagerly at construction. Zero values mean "use the default".
type Config struct {
	// Dimension is the output vector length.
	Dimension int
	// BatchSize is the maximum number of sentences per inference batch.
	BatchSize int
	// MaxSentenceLength is the maximum wordpiece sequence length per
	// sentence, including the two marker positions. At most MaxModelLength.
	MaxSentenceLength int
	// Lowercase selects case-insensitive matching. Default is
	// case-sensitive.
	Lowercase bool
	// StripAccents drops combining marks before matching (uncased BERT
	// normalization).
	StripAccents bool
	// PoolingLayer selects the layer pooled into the output embedding:
	// 0 the embedding layer, -1 the last layer, -2 the second-to-last.
	PoolingLayer int
	// ModelRef is a caller-supplied reference string attached to every output
	// annotation for downstream consistency checks.
	ModelRef string
	// Parallelism bounds concurrent engine invocations. The engine must be
	// safe for concurrent use when > 1. Output order is preserved either way.
	Parallelism int
	// EngineConfig is opaque configuration passed through to the engine
	// constructor.
	EngineConfig []byte
}

func (c Config) withDefaults() Config {
	if c.Dimension == 0 {
		c.Dimension = DefaultDimension
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.MaxSentenceLength == 0 {
		c.MaxSentenceLength = DefaultMaxSentenceLength
	}
	if c.Parallelism == 0 {
		c.Parallelism = DefaultParallelism
	}
	return c
}

// Validate rejects invalid configurations synchronously, before any inference
// runs. Out-of-range values are never silently clamped.
func (c Config) Validate() error {
	if !embed.ValidPoolingLayer(c.PoolingLayer) {
		return errors.Errorf("invalid pooling layer %d, must be one of {0, -1, -2}", c.PoolingLayer)
	}
	if c.MaxSentenceLength > MaxModelLength {
		return errors.Errorf("max sentence length %d exceeds the model limit of %d", c.MaxSentenceLength, MaxModelLength)
	}
	// Room for the two markers plus at least one wordpiece.
	if c.MaxSentenceLength < 3 {
		return errors.Errorf("max sentence length %d is too small, need at least 3", c.MaxSentenceLength)
	}
	if c.Dimension < 1 {
		return errors.Errorf("dimension %d must be positive", c.Dimension)
	}
	if c.BatchSize < 1 {
		return errors.Errorf("batch size %d must be positive", c.BatchSize)
	}
	if c.Parallelism < 1 {
		return errors.Errorf("parallelism %d must be positive", c.Parallelism)
	}
	return nil
}
