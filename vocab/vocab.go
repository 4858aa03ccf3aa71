// Package vocab loads WordPiece vocabularies from the line-oriented vocab.txt
// format used by BERT model bundles: the line number (0-based) is the token id,
// the line content is the subword string.
package vocab

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Well-known marker tokens. A usable vocabulary must contain the
// classification, separator and unknown markers.
const (
	ClassificationToken = "[CLS]"
	SeparatorToken      = "[SEP]"
	UnknownToken        = "[UNK]"
	PadToken            = "[PAD]"
)

// Vocabulary is an immutable mapping from subword string to integer id.
// Ids are dense and used directly as tensor indices.
type Vocabulary struct {
	ids    map[string]int
	tokens []string

	clsID int
	sepID int
	unkID int
	padID int
}

// Load reads a vocabulary from a vocab.txt file.
func Load(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open vocabulary %q", path)
	}
	defer f.Close()
	v, err := Parse(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "while loading vocabulary %q", path)
	}
	return v, nil
}

// Parse reads a line-oriented vocabulary from r.
func Parse(r io.Reader) (*Vocabulary, error) {
	var tokens []string
	ids := make(map[string]int)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tok := scanner.Text()
		ids[tok] = len(tokens)
		tokens = append(tokens, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read vocabulary")
	}
	return FromTokens(tokens)
}

// FromTokens builds a vocabulary from an ordered token list, where the slice
// index is the token id. The list must contain the [CLS], [SEP] and [UNK]
// markers.
func FromTokens(tokens []string) (*Vocabulary, error) {
	if len(tokens) == 0 {
		return nil, errors.New("vocabulary is empty")
	}
	v := &Vocabulary{
		ids:    make(map[string]int, len(tokens)),
		tokens: tokens,
		clsID:  -1,
		sepID:  -1,
		unkID:  -1,
		padID:  -1,
	}
	for id, tok := range tokens {
		v.ids[tok] = id
	}
	var ok bool
	if v.clsID, ok = v.ids[ClassificationToken]; !ok {
		return nil, errors.Errorf("vocabulary is missing the classification marker %q", ClassificationToken)
	}
	if v.sepID, ok = v.ids[SeparatorToken]; !ok {
		return nil, errors.Errorf("vocabulary is missing the separator marker %q", SeparatorToken)
	}
	if v.unkID, ok = v.ids[UnknownToken]; !ok {
		return nil, errors.Errorf("vocabulary is missing the unknown marker %q", UnknownToken)
	}
	// [PAD] is optional: padded positions are masked out anyway, so id 0 is
	// a safe default.
	if v.padID, ok = v.ids[PadToken]; !ok {
		v.padID = 0
	}
	return v, nil
}

// ID returns the id for the given subword, if present.
func (v *Vocabulary) ID(token string) (int, bool) {
	id, ok := v.ids[token]
	return id, ok
}

// Token returns the subword string for the given id, if present.
func (v *Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Size returns the number of entries.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// ClassificationID returns the id of the [CLS] marker.
func (v *Vocabulary) ClassificationID() int { return v.clsID }

// SeparatorID returns the id of the [SEP] marker.
func (v *Vocabulary) SeparatorID() int { return v.sepID }

// UnknownID returns the id of the [UNK] marker.
func (v *Vocabulary) UnknownID() int { return v.unkID }

// PadID returns the id used for padding positions.
func (v *Vocabulary) PadID() int { return v.padID }
