// Package batch groups tokenized sentences into the fixed tensors a
// BERT-style inference engine consumes: token ids, segment ids and an
// attention mask, shaped [rows][seqLen].
//
// Sentences are grouped in input order, truncated to the configured maximum
// length and padded to the longest row of their own batch (not the global
// maximum), which bounds wasted computation on short batches.
package batch

import (
	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/annotext/go-bertvec/subword"
)

// Row describes one sentence of a batch, after truncation.
type Row struct {
	// Sentence is the original sentence index.
	Sentence int
	// Parts are the wordpieces kept after truncation, excluding the
	// classification and separator markers.
	Parts []subword.Part
	// TokenCount is the upstream token count of the sentence before any
	// truncation. The reducer uses it to restore token granularity.
	TokenCount int
}

// Batch is one bounded group of sentences with its input tensors.
// Tensors are int32 and shaped [len(Rows)][SeqLen].
type Batch struct {
	Rows   []Row
	SeqLen int // common row length, including the two marker positions

	TokenIDs   *tensors.Tensor
	SegmentIDs *tensors.Tensor // all zeros: single-segment usage
	Mask       *tensors.Tensor // 1 for real positions, 0 for padding

	// Flat copies of the tensor contents, kept for cheap inspection.
	ids  []int32
	mask []int32
}

// Builder groups tokenized sentences into batches.
type Builder struct {
	ClsID     int
	SepID     int
	PadID     int
	BatchSize int // maximum sentences per batch
	MaxLen    int // maximum row length, including the two marker positions
}

// Build partitions sentences into consecutive batches of at most BatchSize
// rows, preserving input order. An empty input yields zero batches.
func (b Builder) Build(sentences []subword.TokenizedSentence) []Batch {
	var out []Batch
	for start := 0; start < len(sentences); start += b.BatchSize {
		end := min(start+b.BatchSize, len(sentences))
		out = append(out, b.build(sentences[start:end]))
	}
	return out
}

func (b Builder) build(sentences []subword.TokenizedSentence) Batch {
	rows := make([]Row, len(sentences))
	seqLen := 0
	for i, ts := range sentences {
		parts := ts.Parts
		// Truncate trailing pieces so cls + parts + sep fits MaxLen exactly.
		// The markers are never dropped.
		if len(parts)+2 > b.MaxLen {
			parts = parts[:b.MaxLen-2]
		}
		rows[i] = Row{Sentence: ts.Sentence, Parts: parts, TokenCount: ts.TokenCount}
		seqLen = max(seqLen, len(parts)+2)
	}

	ids := make([]int32, len(rows)*seqLen)
	mask := make([]int32, len(rows)*seqLen)
	for i, row := range rows {
		off := i * seqLen
		ids[off] = int32(b.ClsID)
		for j, p := range row.Parts {
			ids[off+1+j] = int32(p.ID)
		}
		ids[off+1+len(row.Parts)] = int32(b.SepID)
		for j := len(row.Parts) + 2; j < seqLen; j++ {
			ids[off+j] = int32(b.PadID)
		}
		for j := 0; j < len(row.Parts)+2; j++ {
			mask[off+j] = 1
		}
	}

	return Batch{
		Rows:       rows,
		SeqLen:     seqLen,
		TokenIDs:   tensors.FromFlatDataAndDimensions(ids, len(rows), seqLen),
		SegmentIDs: tensors.FromFlatDataAndDimensions(make([]int32, len(rows)*seqLen), len(rows), seqLen),
		Mask:       tensors.FromFlatDataAndDimensions(mask, len(rows), seqLen),
		ids:        ids,
		mask:       mask,
	}
}

// IDAt returns the token id at (row, pos).
func (b *Batch) IDAt(row, pos int) int32 { return b.ids[row*b.SeqLen+pos] }

// MaskAt returns the attention mask at (row, pos): 1 real, 0 padding.
func (b *Batch) MaskAt(row, pos int) int32 { return b.mask[row*b.SeqLen+pos] }
