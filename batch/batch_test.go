package batch

import (
	"testing"

	"github.com/annotext/go-bertvec/subword"
)

const (
	clsID = 1
	sepID = 2
)

func testBuilder(batchSize, maxLen int) Builder {
	return Builder{ClsID: clsID, SepID: sepID, PadID: 0, BatchSize: batchSize, MaxLen: maxLen}
}

// sent builds a TokenizedSentence of single-piece tokens with the given ids.
func sent(index int, ids ...int) subword.TokenizedSentence {
	ts := subword.TokenizedSentence{Sentence: index, TokenCount: len(ids)}
	for _, id := range ids {
		ts.Parts = append(ts.Parts, subword.Part{ID: id})
	}
	return ts
}

func rowIDs(b *Batch, row int) []int32 {
	out := make([]int32, b.SeqLen)
	for pos := range out {
		out[pos] = b.IDAt(row, pos)
	}
	return out
}

func rowMask(b *Batch, row int) []int32 {
	out := make([]int32, b.SeqLen)
	for pos := range out {
		out[pos] = b.MaskAt(row, pos)
	}
	return out
}

func TestBuild_Empty(t *testing.T) {
	got := testBuilder(4, 16).Build(nil)
	if len(got) != 0 {
		t.Errorf("Build(nil) produced %d batches, want 0", len(got))
	}
}

func TestBuild_Grouping(t *testing.T) {
	sentences := []subword.TokenizedSentence{
		sent(0, 10), sent(1, 11), sent(2, 12), sent(3, 13), sent(4, 14),
	}
	got := testBuilder(2, 16).Build(sentences)
	if len(got) != 3 {
		t.Fatalf("Build produced %d batches, want 3", len(got))
	}
	wantRows := []int{2, 2, 1}
	for i, b := range got {
		if len(b.Rows) != wantRows[i] {
			t.Errorf("batch %d has %d rows, want %d", i, len(b.Rows), wantRows[i])
		}
	}
	// Input order preserved across batches.
	if got[1].Rows[0].Sentence != 2 || got[2].Rows[0].Sentence != 4 {
		t.Errorf("sentence order not preserved: got %d and %d", got[1].Rows[0].Sentence, got[2].Rows[0].Sentence)
	}
}

func TestBuild_MarkersAndPadding(t *testing.T) {
	sentences := []subword.TokenizedSentence{
		sent(0, 10, 11, 12),
		sent(1, 20),
	}
	got := testBuilder(4, 16).Build(sentences)
	if len(got) != 1 {
		t.Fatalf("Build produced %d batches, want 1", len(got))
	}
	b := got[0]

	// Padded to the longest row of the batch (3+2), not to MaxLen.
	if b.SeqLen != 5 {
		t.Fatalf("SeqLen = %d, want 5", b.SeqLen)
	}
	if want := []int32{clsID, 10, 11, 12, sepID}; !int32SliceEqual(rowIDs(&b, 0), want) {
		t.Errorf("row 0 ids = %v, want %v", rowIDs(&b, 0), want)
	}
	if want := []int32{clsID, 20, sepID, 0, 0}; !int32SliceEqual(rowIDs(&b, 1), want) {
		t.Errorf("row 1 ids = %v, want %v", rowIDs(&b, 1), want)
	}
	if want := []int32{1, 1, 1, 1, 1}; !int32SliceEqual(rowMask(&b, 0), want) {
		t.Errorf("row 0 mask = %v, want %v", rowMask(&b, 0), want)
	}
	if want := []int32{1, 1, 1, 0, 0}; !int32SliceEqual(rowMask(&b, 1), want) {
		t.Errorf("row 1 mask = %v, want %v", rowMask(&b, 1), want)
	}

	if b.TokenIDs.Shape().Dimensions[0] != 2 || b.TokenIDs.Shape().Dimensions[1] != 5 {
		t.Errorf("TokenIDs shape = %v, want [2 5]", b.TokenIDs.Shape().Dimensions)
	}
}

func TestBuild_Truncation(t *testing.T) {
	// 6 pieces + 2 markers > MaxLen 5: keep 3 pieces, markers survive.
	sentences := []subword.TokenizedSentence{sent(0, 10, 11, 12, 13, 14, 15)}
	got := testBuilder(4, 5).Build(sentences)
	b := got[0]

	if len(b.Rows[0].Parts) != 3 {
		t.Fatalf("kept %d parts, want 3", len(b.Rows[0].Parts))
	}
	if b.Rows[0].TokenCount != 6 {
		t.Errorf("TokenCount = %d, want the pre-truncation 6", b.Rows[0].TokenCount)
	}
	if want := []int32{clsID, 10, 11, 12, sepID}; !int32SliceEqual(rowIDs(&b, 0), want) {
		t.Errorf("row ids = %v, want %v", rowIDs(&b, 0), want)
	}
}

// TestBuild_Deterministic checks that identical inputs produce identical
// tensors.
func TestBuild_Deterministic(t *testing.T) {
	sentences := []subword.TokenizedSentence{
		sent(0, 10, 11), sent(1, 20, 21, 22), sent(2, 30),
	}
	a := testBuilder(2, 8).Build(sentences)
	b := testBuilder(2, 8).Build(sentences)
	if len(a) != len(b) {
		t.Fatalf("batch counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].SeqLen != b[i].SeqLen {
			t.Errorf("batch %d SeqLen differs: %d vs %d", i, a[i].SeqLen, b[i].SeqLen)
		}
		for r := range a[i].Rows {
			if !int32SliceEqual(rowIDs(&a[i], r), rowIDs(&b[i], r)) {
				t.Errorf("batch %d row %d ids differ", i, r)
			}
			if !int32SliceEqual(rowMask(&a[i], r), rowMask(&b[i], r)) {
				t.Errorf("batch %d row %d masks differ", i, r)
			}
		}
	}
}

func int32SliceEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
