// Package embed reduces the engine's per-layer, per-position activations back
// to one vector per upstream token: it selects the configured pooling layer,
// skips marker and padding positions, and averages the wordpiece vectors
// belonging to the same original token.
package embed

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/annotext/go-bertvec/annotations"
	"github.com/annotext/go-bertvec/batch"
	"github.com/annotext/go-bertvec/engine"
)

// Pooling-layer selectors. Any other value is a configuration error.
const (
	PoolEmbeddingLayer  = 0  // the input embedding layer
	PoolLastLayer       = -1 // the last transformer layer
	PoolSecondLastLayer = -2 // the second-to-last transformer layer
)

// ValidPoolingLayer reports whether layer is one of the recognized selectors.
func ValidPoolingLayer(layer int) bool {
	return layer == PoolEmbeddingLayer || layer == PoolLastLayer || layer == PoolSecondLastLayer
}

// Options configures a reduction. PoolingLayer must already have been
// validated at configuration time.
type Options struct {
	PoolingLayer int
	Dim          int
	ModelRef     string
	RunID        string
}

// Reduce converts one batch's activations into per-token embeddings.
//
// rows must be the batch the activations were produced from, and tokens the
// per-sentence upstream tokens (indexed by sentence index). The result is
// aligned with rows; the inner slices are aligned with the upstream token
// order and always have exactly row.TokenCount entries: a token whose
// wordpieces were all truncated away receives a zero vector rather than being
// dropped.
func Reduce(acts *engine.Activations, rows []batch.Row, tokens [][]annotations.Token, opts Options) ([][]annotations.TokenEmbedding, error) {
	layer, err := resolveLayer(opts.PoolingLayer, acts.NumLayers)
	if err != nil {
		return nil, err
	}
	if acts.Dim < opts.Dim {
		return nil, errors.Errorf("engine produced %d-dimensional vectors, configured dimension is %d", acts.Dim, opts.Dim)
	}
	if acts.Rows != len(rows) {
		return nil, errors.Errorf("activations carry %d rows, batch has %d", acts.Rows, len(rows))
	}

	out := make([][]annotations.TokenEmbedding, len(rows))
	for r, row := range rows {
		sentTokens := tokens[row.Sentence]
		if len(sentTokens) != row.TokenCount {
			return nil, errors.Errorf("sentence %d has %d tokens, batch row expects %d", row.Sentence, len(sentTokens), row.TokenCount)
		}
		embs := make([]annotations.TokenEmbedding, 0, row.TokenCount)

		// Positions 1..len(Parts) hold the wordpieces; position 0 is the
		// classification marker and len(Parts)+1 the separator. Consecutive
		// continuation-flagged parts attach to the preceding group.
		sum := make([]float64, opts.Dim)
		pieces := 0
		flush := func() {
			if pieces == 0 {
				return
			}
			vec := make([]float32, opts.Dim)
			for d := range vec {
				vec[d] = float32(sum[d] / float64(pieces))
				sum[d] = 0
			}
			embs = append(embs, newEmbedding(sentTokens[len(embs)], vec, opts))
			pieces = 0
		}
		for i, p := range row.Parts {
			if !p.Continuation && i > 0 {
				flush()
			}
			v := acts.Vector(layer, r, i+1)
			for d := 0; d < opts.Dim; d++ {
				sum[d] += float64(v[d])
			}
			pieces++
		}
		flush()

		// Trailing tokens fully lost to truncation get a defined zero-vector
		// fallback; the downstream token count stays intact.
		if dropped := row.TokenCount - len(embs); dropped > 0 {
			klog.Warningf("sentence %d: %d token(s) lost all wordpieces to truncation, emitting zero vectors", row.Sentence, dropped)
			for len(embs) < row.TokenCount {
				embs = append(embs, newEmbedding(sentTokens[len(embs)], make([]float32, opts.Dim), opts))
			}
		}
		out[r] = embs
	}
	return out, nil
}

func newEmbedding(tok annotations.Token, vec []float32, opts Options) annotations.TokenEmbedding {
	return annotations.TokenEmbedding{
		Token:    tok,
		Vector:   vec,
		Dim:      opts.Dim,
		ModelRef: opts.ModelRef,
		RunID:    opts.RunID,
	}
}

// resolveLayer maps a pooling-layer selector to a concrete layer index in
// [0, numLayers).
func resolveLayer(pooling, numLayers int) (int, error) {
	switch pooling {
	case PoolEmbeddingLayer:
		return 0, nil
	case PoolLastLayer:
		if numLayers < 1 {
			return 0, errors.Errorf("engine reported %d layers", numLayers)
		}
		return numLayers - 1, nil
	case PoolSecondLastLayer:
		if numLayers < 2 {
			return 0, errors.Errorf("pooling layer %d needs at least 2 layers, engine reported %d", pooling, numLayers)
		}
		return numLayers - 2, nil
	default:
		return 0, errors.Errorf("invalid pooling layer %d, must be one of {0, -1, -2}", pooling)
	}
}
