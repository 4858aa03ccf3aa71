// Package subword defines the subword-splitting API shared by the WordPiece
// and SentencePiece backends, and the transient types flowing between the
// splitter, the batch builder and the embedding reducer.
package subword

import "github.com/annotext/go-bertvec/annotations"

// Part is one subword unit of an input token.
type Part struct {
	// Piece is the vocabulary entry, including the continuation prefix for
	// non-initial pieces (e.g. "##llo").
	Piece string
	// ID is the vocabulary id of Piece.
	ID int
	// Continuation marks pieces that are not the first piece of their
	// originating token. Grouping consecutive parts at a continuation-flag
	// boundary reconstructs the original token sequence.
	Continuation bool
	// Begin and End are byte offsets into the document the piece derives from.
	Begin int
	End   int
}

// TokenizedSentence is the ordered wordpiece sequence of one input sentence.
type TokenizedSentence struct {
	// Sentence is the index of the originating annotations.Sentence.
	Sentence int
	Parts    []Part
	// TokenCount is the number of upstream tokens in the sentence. It is kept
	// separately from Parts so the reducer can restore token granularity even
	// after the batch builder truncated trailing parts.
	TokenCount int
}

// Splitter converts upstream sentence/token annotations into wordpiece
// sequences. Implementations are pure: no side effects, no I/O at split time.
type Splitter interface {
	// Split subword-splits every token of every sentence. The result is
	// aligned with doc.Sentences; every input token yields at least one Part.
	Split(doc *annotations.Document) ([]TokenizedSentence, error)

	// SpecialIDs returns the ids of the classification-start and
	// separator-end markers the batch builder must insert.
	SpecialIDs() (cls, sep int)
}
