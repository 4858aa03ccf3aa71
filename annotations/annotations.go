// Package annotations defines the record types exchanged with the enclosing
// pipeline: sentences and tokens coming in, per-token embeddings going out.
//
// Offsets are byte offsets into the original document text (not rune offsets),
// suitable for slicing Go strings directly: doc[begin:end]. Sentence and token
// boundaries are produced upstream; this module never invents them, it only
// subword-splits within token boundaries.
package annotations

import (
	"context"

	"github.com/pkg/errors"
)

// Sentence is one segmented sentence of the input document.
type Sentence struct {
	Index int    // position in the document, 0-based
	Begin int    // byte offset of the first byte (inclusive)
	End   int    // byte offset past the last byte (exclusive)
	Text  string // the sentence text, equal to doc[Begin:End]
}

// Token is one upstream-identified token. Its offsets must lie within the
// owning sentence.
type Token struct {
	Sentence int // index of the owning Sentence
	Begin    int
	End      int
	Text     string
}

// TokenEmbedding is the output record: one fixed-length vector per input
// token, with provenance for downstream consistency checks.
type TokenEmbedding struct {
	Token    Token
	Vector   []float32
	Dim      int
	ModelRef string // caller-supplied reference to the model that produced the vector
	RunID    string // identifies the annotator instance that produced the vector
}

// Document bundles the upstream annotations for one annotator invocation.
// Sentences must be ordered by Index and Tokens grouped by sentence in
// reading order.
type Document struct {
	Sentences []Sentence
	Tokens    []Token
}

// Annotator is the narrow capability contract an embedding stage exposes to
// the pipeline: consume annotations, produce annotations.
type Annotator interface {
	Annotate(ctx context.Context, doc *Document) ([]TokenEmbedding, error)
}

// Validate checks the internal consistency of the document: sentence indices
// are dense and ordered, every token is non-empty and its offsets lie within
// its sentence.
func (d *Document) Validate() error {
	for i, s := range d.Sentences {
		if s.Index != i {
			return errors.Errorf("sentence at position %d has index %d, want %d", i, s.Index, i)
		}
		if s.Begin > s.End {
			return errors.Errorf("sentence %d has inverted offsets [%d, %d)", i, s.Begin, s.End)
		}
	}
	for i, t := range d.Tokens {
		if t.Sentence < 0 || t.Sentence >= len(d.Sentences) {
			return errors.Errorf("token %d references unknown sentence %d", i, t.Sentence)
		}
		if t.Begin >= t.End {
			return errors.Errorf("token %d is empty or has inverted offsets [%d, %d)", i, t.Begin, t.End)
		}
		s := d.Sentences[t.Sentence]
		if t.Begin < s.Begin || t.End > s.End {
			return errors.Errorf("token %d offsets [%d, %d) fall outside sentence %d [%d, %d)",
				i, t.Begin, t.End, t.Sentence, s.Begin, s.End)
		}
	}
	return nil
}

// TokensBySentence partitions d.Tokens by owning sentence, preserving order.
// The returned slice is indexed by sentence index.
func (d *Document) TokensBySentence() [][]Token {
	out := make([][]Token, len(d.Sentences))
	for _, t := range d.Tokens {
		out[t.Sentence] = append(out[t.Sentence], t)
	}
	return out
}
