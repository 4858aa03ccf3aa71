// Package engine defines the narrow contract the annotator has with the
// numeric inference backend: given a batch's input tensors, return one
// activation vector per layer per position. The backend's internals (weights,
// computation graph, device placement) are opaque to this module.
package engine

import (
	"context"

	"github.com/pkg/errors"

	"github.com/annotext/go-bertvec/batch"
)

// Engine runs transformer inference over prepared batches.
//
// Engines are not retried by callers: any error aborts the enclosing
// annotator invocation. Infer is the only potentially long-running call in
// the module; callers needing cancellation pass a cancellable context.
type Engine interface {
	// Infer runs the model over the batch. When allLayers is true the result
	// carries every layer, including the input embedding layer as layer 0;
	// otherwise only the last layer is guaranteed.
	Infer(ctx context.Context, b *batch.Batch, allLayers bool) (*Activations, error)
}

// Activations holds the per-layer hidden states of one batch as a flat
// float32 buffer laid out [layer][row][position][dim].
type Activations struct {
	NumLayers int
	Rows      int
	Positions int
	Dim       int

	data []float32
}

// NewActivations allocates a zeroed activation container.
func NewActivations(numLayers, rows, positions, dim int) *Activations {
	return &Activations{
		NumLayers: numLayers,
		Rows:      rows,
		Positions: positions,
		Dim:       dim,
		data:      make([]float32, numLayers*rows*positions*dim),
	}
}

// FromFlatData wraps an engine-produced buffer without copying. The buffer
// length must be numLayers*rows*positions*dim.
func FromFlatData(data []float32, numLayers, rows, positions, dim int) (*Activations, error) {
	if len(data) != numLayers*rows*positions*dim {
		return nil, errors.Errorf("activation buffer has %d elements, want %d (%d layers x %d rows x %d positions x %d dim)",
			len(data), numLayers*rows*positions*dim, numLayers, rows, positions, dim)
	}
	return &Activations{
		NumLayers: numLayers,
		Rows:      rows,
		Positions: positions,
		Dim:       dim,
		data:      data,
	}, nil
}

// Vector returns the activation vector at (layer, row, pos) as a view into
// the backing buffer. Callers must not modify it.
func (a *Activations) Vector(layer, row, pos int) []float32 {
	off := ((layer*a.Rows+row)*a.Positions + pos) * a.Dim
	return a.data[off : off+a.Dim]
}

// SetVector copies v into the slot at (layer, row, pos).
func (a *Activations) SetVector(layer, row, pos int, v []float32) {
	copy(a.Vector(layer, row, pos), v)
}
