// Package wordpiece implements greedy longest-match subword splitting against
// a fixed vocabulary, the scheme used by BERT-style models. Each upstream
// token is consumed left to right, always taking the longest vocabulary entry
// that prefixes the remaining text; non-initial matches carry the "##"
// continuation prefix. A token with no decomposition maps to the single
// reserved unknown marker.
package wordpiece

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"

	"github.com/annotext/go-bertvec/annotations"
	"github.com/annotext/go-bertvec/subword"
	"github.com/annotext/go-bertvec/vocab"
)

// ContinuationPrefix marks vocabulary entries that may only continue a token.
const ContinuationPrefix = "##"

// maxWordBytes bounds the greedy scan per token; longer tokens map to the
// unknown marker outright. Matches the HuggingFace WordPiece default.
const maxWordBytes = 100

// Option configures a Splitter.
type Option func(*Splitter)

// WithLowercase enables lowercasing of token text before matching
// (case-insensitive vocabularies). Default is case-sensitive.
func WithLowercase() Option {
	return func(s *Splitter) { s.lowercase = true }
}

// WithStripAccents enables NFD accent stripping before matching, the
// normalization uncased BERT vocabularies were trained with.
func WithStripAccents() Option {
	return func(s *Splitter) { s.stripAccents = true }
}

// Splitter subword-splits upstream tokens against a Vocabulary.
type Splitter struct {
	vocab        *vocab.Vocabulary
	lowercase    bool
	stripAccents bool
}

// Compile time assert that Splitter implements subword.Splitter.
var _ subword.Splitter = &Splitter{}

// New creates a Splitter over the given vocabulary.
func New(v *vocab.Vocabulary, opts ...Option) *Splitter {
	s := &Splitter{vocab: v}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SpecialIDs implements subword.Splitter.
func (s *Splitter) SpecialIDs() (cls, sep int) {
	return s.vocab.ClassificationID(), s.vocab.SeparatorID()
}

// Split implements subword.Splitter.
func (s *Splitter) Split(doc *annotations.Document) ([]subword.TokenizedSentence, error) {
	out := make([]subword.TokenizedSentence, len(doc.Sentences))
	for i := range doc.Sentences {
		out[i].Sentence = i
	}
	for i, tok := range doc.Tokens {
		if tok.Text == "" {
			return nil, errors.Errorf("token %d (sentence %d) has empty text", i, tok.Sentence)
		}
		ts := &out[tok.Sentence]
		ts.Parts = append(ts.Parts, s.splitToken(tok)...)
		ts.TokenCount++
	}
	return out, nil
}

// splitToken returns the wordpiece decomposition of one token. It always
// returns at least one part.
func (s *Splitter) splitToken(tok annotations.Token) []subword.Part {
	text := s.normalize(tok.Text)

	// Piece offsets are computed in the normalized text. Normalization is
	// byte-length-preserving for the usual ASCII-dominated case; when it is
	// not, every piece falls back to the whole token span.
	exactSpans := len(text) == len(tok.Text)
	unknown := []subword.Part{{
		Piece: vocab.UnknownToken,
		ID:    s.vocab.UnknownID(),
		Begin: tok.Begin,
		End:   tok.End,
	}}

	if len(text) > maxWordBytes {
		return unknown
	}

	var parts []subword.Part
	start := 0
	for start < len(text) {
		end := len(text)
		found := false
		for start < end {
			piece := text[start:end]
			if start > 0 {
				piece = ContinuationPrefix + piece
			}
			if id, ok := s.vocab.ID(piece); ok {
				p := subword.Part{
					Piece:        piece,
					ID:           id,
					Continuation: start > 0,
					Begin:        tok.Begin,
					End:          tok.End,
				}
				if exactSpans {
					p.Begin = tok.Begin + start
					p.End = tok.Begin + end
				}
				parts = append(parts, p)
				found = true
				break
			}
			end--
		}
		if !found {
			// No decomposition: the whole token becomes a single unknown.
			return unknown
		}
		start = end
	}
	return parts
}

func (s *Splitter) normalize(text string) string {
	if s.stripAccents {
		text = removeAccents(norm.NFD.String(text))
	}
	if s.lowercase {
		text = strings.ToLower(text)
	}
	return text
}

// removeAccents drops nonspacing combining marks (Mn) from NFD-decomposed text.
func removeAccents(text string) string {
	var b strings.Builder
	for _, r := range text {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
