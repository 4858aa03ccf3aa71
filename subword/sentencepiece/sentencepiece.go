// Package sentencepiece implements a subword.Splitter backed by the
// SentencePiece tokenizer, for bundles that ship a tokenizer.model instead of
// a WordPiece vocab.txt. Each upstream token is encoded separately; the first
// piece of a token is the non-continuation piece, every further piece is a
// continuation, which preserves the reassembly contract of the reducer.
package sentencepiece

import (
	"strings"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/pkg/errors"

	"github.com/annotext/go-bertvec/annotations"
	"github.com/annotext/go-bertvec/subword"
)

// metaspace is the marker SentencePiece uses in place of a leading space.
const metaspace = "▁"

// Splitter implements subword.Splitter on top of a SentencePiece processor.
type Splitter struct {
	proc *esentencepiece.Processor
	info *esentencepiece.ModelInfo
}

var _ subword.Splitter = &Splitter{}

// NewFromPath creates a Splitter from a tokenizer.model file (a SentencePiece
// model proto).
func NewFromPath(path string) (*Splitter, error) {
	proc, err := esentencepiece.NewProcessorFromPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece processor from %q", path)
	}
	return &Splitter{proc: proc, info: proc.ModelInfo()}, nil
}

// SpecialIDs implements subword.Splitter. SentencePiece models use the
// beginning/end-of-sentence ids in the classification/separator roles.
func (s *Splitter) SpecialIDs() (cls, sep int) {
	return s.info.BeginningOfSentenceID, s.info.EndOfSentenceID
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

func (s *Splitter) splitToken(tok annotations.Token) []subword.Part {
	pieces := s.proc.Encode(tok.Text)
	if len(pieces) == 0 {
		return []subword.Part{{
			Piece: strings.TrimSpace(tok.Text),
			ID:    s.info.UnknownID,
			Begin: tok.Begin,
			End:   tok.End,
		}}
	}
	return partsFromPieces(tok, pieces)
}

// partsFromPieces maps an encoded piece sequence onto subword parts. The
// first piece of a token is the non-continuation one; offsets advance by the
// piece content without the metaspace marker and are clamped to the token.
func partsFromPieces(tok annotations.Token, pieces []esentencepiece.Token) []subword.Part {
	parts := make([]subword.Part, 0, len(pieces))
	pos := tok.Begin
	for i, p := range pieces {
		content := strings.TrimPrefix(p.Text, metaspace)
		begin := pos
		end := min(pos+len(content), tok.End)
		parts = append(parts, subword.Part{
			Piece:        p.Text,
			ID:           p.ID,
			Continuation: i > 0,
			Begin:        begin,
			End:          end,
		})
		pos = end
	}
	// The trailing piece absorbs any bytes the heuristic advance undershot.
	parts[len(parts)-1].End = tok.End
	return parts
}
