package annotate

import (
	"github.com/pkg/errors"

	"github.com/annotext/go-bertvec/bundle"
	"github.com/annotext/go-bertvec/subword"
	"github.com/annotext/go-bertvec/subword/sentencepiece"
	"github.com/annotext/go-bertvec/subword/wordpiece"
	"github.com/annotext/go-bertvec/vocab"
)

// NewFromBundle creates an Annotator configured from a model bundle: the
// splitter is built from the bundle's subword inventory, bundle settings fill
// in unset Config fields, and the configured dimension is cross-checked
// against the model's hidden size.
//
// A zero cfg.PoolingLayer counts as unset here, so a bundle's pooling_layer
// setting takes precedence over it. Callers that need the embedding layer
// against such a bundle should use SplitterFromBundle and New directly.
func NewFromBundle(cfg Config, b *bundle.Bundle, newEngine EngineConstructor) (*Annotator, error) {
	cfg = mergeSettings(cfg, b.Settings)
	if b.HiddenSize > 0 && cfg.Dimension > b.HiddenSize {
		return nil, errors.Errorf("configured dimension %d exceeds the model's hidden size %d", cfg.Dimension, b.HiddenSize)
	}
	splitter, err := SplitterFromBundle(cfg, b)
	if err != nil {
		return nil, err
	}
	return New(cfg, splitter, newEngine)
}

// SplitterFromBundle builds the subword splitter matching the bundle's
// inventory: WordPiece for vocab.txt bundles, SentencePiece for
// tokenizer.model bundles.
func SplitterFromBundle(cfg Config, b *bundle.Bundle) (subword.Splitter, error) {
	if path := b.VocabPath(); path != "" {
		v, err := vocab.Load(path)
		if err != nil {
			return nil, err
		}
		var opts []wordpiece.Option
		if cfg.Lowercase {
			opts = append(opts, wordpiece.WithLowercase())
		}
		if cfg.StripAccents {
			opts = append(opts, wordpiece.WithStripAccents())
		}
		return wordpiece.New(v, opts...), nil
	}
	if path := b.SentencePiecePath(); path != "" {
		return sentencepiece.NewFromPath(path)
	}
	return nil, errors.Errorf("bundle %q has no subword inventory", b.Dir)
}

// mergeSettings fills unset cfg fields from bundle settings. Explicit caller
// configuration always wins.
func mergeSettings(cfg Config, s bundle.Settings) Config {
	if cfg.Dimension == 0 {
		cfg.Dimension = s.Dimension
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = s.BatchSize
	}
	if cfg.MaxSentenceLength == 0 {
		cfg.MaxSentenceLength = s.MaxSentenceLength
	}
	if cfg.PoolingLayer == 0 && s.PoolingLayer != nil {
		cfg.PoolingLayer = *s.PoolingLayer
	}
	if cfg.ModelRef == "" {
		cfg.ModelRef = s.ModelRef
	}
	if !cfg.Lowercase && s.CaseSensitive != nil {
		cfg.Lowercase = !*s.CaseSensitive
	}
	if !cfg.StripAccents {
		cfg.StripAccents = s.StripAccents
	}
	return cfg
}
