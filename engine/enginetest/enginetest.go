// Package enginetest provides a deterministic in-memory Engine for tests.
// Activation vectors are a pure function of (layer, token id, dimension
// index), so pooling and reassembly arithmetic can be asserted exactly.
package enginetest

import (
	"context"
	"sync"
	"time"

	"github.com/annotext/go-bertvec/batch"
	"github.com/annotext/go-bertvec/engine"
)

// Fake implements engine.Engine.
type Fake struct {
	// Layers is the number of layers reported, including the embedding layer
	// as layer 0. Must be >= 1.
	Layers int
	// Dim is the width of the produced vectors.
	Dim int
	// Err, when set, is returned by every Infer call.
	Err error
	// Delay, when set, is called with the 0-based call number and the result
	// is slept before returning, so tests can force out-of-order completion.
	Delay func(call int) time.Duration

	mu    sync.Mutex
	calls []*batch.Batch
}

var _ engine.Engine = &Fake{}

// VectorValue is the deterministic activation value at (layer, id, d).
func VectorValue(layer, id, d int) float32 {
	return float32(layer*1_000_000 + id*1_000 + d)
}

// Infer implements engine.Engine.
func (f *Fake) Infer(ctx context.Context, b *batch.Batch, allLayers bool) (*engine.Activations, error) {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, b)
	f.mu.Unlock()

	if f.Delay != nil {
		select {
		case <-time.After(f.Delay(call)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	layers := f.Layers
	if !allLayers {
		layers = 1
	}
	acts := engine.NewActivations(layers, len(b.Rows), b.SeqLen, f.Dim)
	for layer := 0; layer < layers; layer++ {
		// With allLayers off only the last layer is produced, in slot 0.
		valueLayer := layer
		if !allLayers {
			valueLayer = f.Layers - 1
		}
		for r := range b.Rows {
			for pos := 0; pos < b.SeqLen; pos++ {
				id := int(b.IDAt(r, pos))
				vec := make([]float32, f.Dim)
				for d := range vec {
					vec[d] = VectorValue(valueLayer, id, d)
				}
				acts.SetVector(layer, r, pos, vec)
			}
		}
	}
	return acts, nil
}

// Calls returns the batches seen so far, in call order.
func (f *Fake) Calls() []*batch.Batch {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*batch.Batch, len(f.calls))
	copy(out, f.calls)
	return out
}

