package sentencepiece

import (
	"testing"

	esentencepiece "github.com/eliben/go-sentencepiece"

	"github.com/annotext/go-bertvec/annotations"
	"github.com/annotext/go-bertvec/subword"
)

func TestPartsFromPieces_ContinuationFlags(t *testing.T) {
	tok := annotations.Token{Sentence: 0, Begin: 0, End: 12, Text: "unbelievable"}
	pieces := []esentencepiece.Token{
		{ID: 10, Text: metaspace + "un"},
		{ID: 11, Text: "believ"},
		{ID: 12, Text: "able"},
	}

	parts := partsFromPieces(tok, pieces)
	if len(parts) != 3 {
		t.Fatalf("got %d parts, want 3", len(parts))
	}
	wantCont := []bool{false, true, true}
	for i, p := range parts {
		if p.Continuation != wantCont[i] {
			t.Errorf("part %d (%s) continuation = %v, want %v", i, p.Piece, p.Continuation, wantCont[i])
		}
	}
}

func TestPartsFromPieces_Offsets(t *testing.T) {
	// Token at a document offset; the metaspace marker must not count toward
	// the span advance.
	tok := annotations.Token{Sentence: 1, Begin: 20, End: 25, Text: "hello"}
	pieces := []esentencepiece.Token{
		{ID: 7, Text: metaspace + "he"},
		{ID: 8, Text: "llo"},
	}

	parts := partsFromPieces(tok, pieces)
	want := []subword.Part{
		{Piece: metaspace + "he", ID: 7, Continuation: false, Begin: 20, End: 22},
		{Piece: "llo", ID: 8, Continuation: true, Begin: 22, End: 25},
	}
	for i, p := range parts {
		if p != want[i] {
			t.Errorf("part %d = %+v, want %+v", i, p, want[i])
		}
	}
}

// TestPartsFromPieces_ClampAndAbsorb: when normalization makes the piece
// bytes exceed the token bytes, spans are clamped to the token, and the
// trailing piece always closes at the token end.
func TestPartsFromPieces_ClampAndAbsorb(t *testing.T) {
	tok := annotations.Token{Begin: 0, End: 4, Text: "cafe"}
	pieces := []esentencepiece.Token{
		{ID: 3, Text: metaspace + "caf"},
		{ID: 4, Text: "és"}, // 3 bytes of content against 1 remaining token byte
	}

	parts := partsFromPieces(tok, pieces)
	for i, p := range parts {
		if p.End > tok.End {
			t.Errorf("part %d end = %d, exceeds token end %d", i, p.End, tok.End)
		}
		if p.Begin > p.End {
			t.Errorf("part %d has inverted span [%d, %d)", i, p.Begin, p.End)
		}
	}
	last := parts[len(parts)-1]
	if last.End != tok.End {
		t.Errorf("trailing part end = %d, want the token end %d", last.End, tok.End)
	}
}

func TestPartsFromPieces_SinglePiece(t *testing.T) {
	tok := annotations.Token{Begin: 5, End: 10, Text: "world"}
	parts := partsFromPieces(tok, []esentencepiece.Token{{ID: 9, Text: metaspace + "world"}})
	if len(parts) != 1 {
		t.Fatalf("got %d parts, want 1", len(parts))
	}
	if parts[0].Continuation {
		t.Error("single piece flagged as continuation")
	}
	if parts[0].Begin != 5 || parts[0].End != 10 {
		t.Errorf("span = [%d, %d), want [5, 10)", parts[0].Begin, parts[0].End)
	}
}
