// Package annotate implements the embedding annotator: it consumes upstream
// sentence/token annotations, drives subword splitting, batching, inference
// and reduction, and produces one embedding annotation per input token.
package annotate

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	"github.com/annotext/go-bertvec/annotations"
	"github.com/annotext/go-bertvec/batch"
	"github.com/annotext/go-bertvec/embed"
	"github.com/annotext/go-bertvec/engine"
	"github.com/annotext/go-bertvec/subword"
)

// EngineConstructor builds the inference engine on first use. engineConfig is
// the opaque pass-through configuration from Config.EngineConfig.
type EngineConstructor func(engineConfig []byte) (engine.Engine, error)

// Annotator converts tokenized sentences into per-token embedding
// annotations. It is safe for concurrent use; the engine is constructed at
// most once, on the first invocation that reaches inference.
type Annotator struct {
	cfg      Config
	splitter subword.Splitter
	runID    string

	engineOnce func() (engine.Engine, error)
}

var _ annotations.Annotator = &Annotator{}

// New creates an Annotator. The configuration is validated eagerly and is
// immutable afterwards; the engine constructor is deferred until the first
// Annotate call that has tokens to process.
func New(cfg Config, splitter subword.Splitter, newEngine EngineConstructor) (*Annotator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if splitter == nil {
		return nil, errors.New("splitter is nil")
	}
	if newEngine == nil {
		return nil, errors.New("engine constructor is nil")
	}
	engineConfig := cfg.EngineConfig
	return &Annotator{
		cfg:      cfg,
		splitter: splitter,
		runID:    uuid.NewString(),
		engineOnce: sync.OnceValues(func() (engine.Engine, error) {
			return newEngine(engineConfig)
		}),
	}, nil
}

// RunID identifies this annotator instance in output provenance.
func (a *Annotator) RunID() string { return a.runID }

// Annotate implements annotations.Annotator.
//
// The result carries one TokenEmbedding per input token, grouped by sentence
// in submission order. A document without tokens yields an empty result and
// performs no inference. Any engine failure aborts the whole invocation;
// there is no partial-result contract.
func (a *Annotator) Annotate(ctx context.Context, doc *annotations.Document) ([]annotations.TokenEmbedding, error) {
	if err := doc.Validate(); err != nil {
		return nil, errors.WithMessage(err, "inconsistent input annotations")
	}
	if len(doc.Tokens) == 0 {
		return nil, nil
	}

	tokenized, err := a.splitter.Split(doc)
	if err != nil {
		return nil, err
	}
	cls, sep := a.splitter.SpecialIDs()
	builder := batch.Builder{
		ClsID:     cls,
		SepID:     sep,
		PadID:     0,
		BatchSize: a.cfg.BatchSize,
		MaxLen:    a.cfg.MaxSentenceLength,
	}
	batches := builder.Build(tokenized)
	klog.V(1).Infof("annotating %d sentences / %d tokens in %d batches", len(doc.Sentences), len(doc.Tokens), len(batches))

	eng, err := a.engineOnce()
	if err != nil {
		return nil, errors.WithMessage(err, "failed to construct inference engine")
	}

	// The last layer is always present; other pooling selectors need the full
	// layer stack.
	allLayers := a.cfg.PoolingLayer != embed.PoolLastLayer
	opts := embed.Options{
		PoolingLayer: a.cfg.PoolingLayer,
		Dim:          a.cfg.Dimension,
		ModelRef:     a.cfg.ModelRef,
		RunID:        a.runID,
	}
	tokens := doc.TokensBySentence()

	// Batches run in parallel up to cfg.Parallelism; each result lands in its
	// own slot so output stays in submission order regardless of completion
	// order.
	results := make([][][]annotations.TokenEmbedding, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Parallelism)
	for i, b := range batches {
		g.Go(func() error {
			klog.V(2).Infof("batch %d: %d rows, seq len %d", i, len(b.Rows), b.SeqLen)
			acts, err := eng.Infer(gctx, &b, allLayers)
			if err != nil {
				return errors.WithMessagef(err, "inference failed on batch %d", i)
			}
			reduced, err := embed.Reduce(acts, b.Rows, tokens, opts)
			if err != nil {
				return errors.WithMessagef(err, "reduction failed on batch %d", i)
			}
			results[i] = reduced
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]annotations.TokenEmbedding, 0, len(doc.Tokens))
	for _, perBatch := range results {
		for _, perSentence := range perBatch {
			out = append(out, perSentence...)
		}
	}
	return out, nil
}
