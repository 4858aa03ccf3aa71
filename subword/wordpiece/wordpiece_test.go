package wordpiece

import (
	"strings"
	"testing"

	"github.com/annotext/go-bertvec/annotations"
	"github.com/annotext/go-bertvec/subword"
	"github.com/annotext/go-bertvec/vocab"
)

func testVocab(t *testing.T, tokens ...string) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.FromTokens(append([]string{"[CLS]", "[SEP]", "[UNK]"}, tokens...))
	if err != nil {
		t.Fatalf("FromTokens failed: %v", err)
	}
	return v
}

// doc builds a single-sentence document with the given pre-tokenized words,
// separated by single spaces.
func doc(words ...string) *annotations.Document {
	text := strings.Join(words, " ")
	d := &annotations.Document{
		Sentences: []annotations.Sentence{{Index: 0, Begin: 0, End: len(text), Text: text}},
	}
	off := 0
	for _, w := range words {
		d.Tokens = append(d.Tokens, annotations.Token{Sentence: 0, Begin: off, End: off + len(w), Text: w})
		off += len(w) + 1
	}
	return d
}

func pieces(ts subword.TokenizedSentence) []string {
	out := make([]string, len(ts.Parts))
	for i, p := range ts.Parts {
		out[i] = p.Piece
	}
	return out
}

func TestSplit_GreedyLongestMatch(t *testing.T) {
	v := testVocab(t, "he", "##llo", "world", "hell", "##o")
	s := New(v)

	tests := []struct {
		name  string
		words []string
		want  []string
	}{
		{
			name:  "prefers longest first piece",
			words: []string{"hello"},
			want:  []string{"hell", "##o"}, // "hell" beats "he"
		},
		{
			name:  "whole word in vocab",
			words: []string{"world"},
			want:  []string{"world"},
		},
		{
			name:  "multiple words",
			words: []string{"world", "world"},
			want:  []string{"world", "world"},
		},
		{
			name:  "unknown word",
			words: []string{"xyzzy"},
			want:  []string{"[UNK]"},
		},
		{
			name:  "partial match still collapses to unknown",
			words: []string{"hezzz"}, // "he" matches but "zzz" has no continuation
			want:  []string{"[UNK]"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Split(doc(tt.words...))
			if err != nil {
				t.Fatalf("Split failed: %v", err)
			}
			if !strSliceEqual(pieces(got[0]), tt.want) {
				t.Errorf("Split(%v) = %v, want %v", tt.words, pieces(got[0]), tt.want)
			}
		})
	}
}

func TestSplit_ContinuationFlags(t *testing.T) {
	v := testVocab(t, "he", "##llo", "world")
	s := New(v)
	got, err := s.Split(doc("hello", "world"))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	parts := got[0].Parts
	wantCont := []bool{false, true, false}
	for i, p := range parts {
		if p.Continuation != wantCont[i] {
			t.Errorf("part %d (%s) continuation = %v, want %v", i, p.Piece, p.Continuation, wantCont[i])
		}
	}
	if got[0].TokenCount != 2 {
		t.Errorf("TokenCount = %d, want 2", got[0].TokenCount)
	}
}

// TestSplit_RoundTrip checks that concatenating the pieces' text spans
// reconstructs each token's original text.
func TestSplit_RoundTrip(t *testing.T) {
	v := testVocab(t, "he", "##llo", "un", "##believ", "##able", "world")
	s := New(v)
	d := doc("hello", "unbelievable", "world")
	got, err := s.Split(d)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	text := d.Sentences[0].Text
	var rebuilt strings.Builder
	lastEnd := -1
	for _, p := range got[0].Parts {
		if p.Begin > lastEnd && rebuilt.Len() > 0 {
			rebuilt.WriteString(" ")
		}
		rebuilt.WriteString(text[p.Begin:p.End])
		lastEnd = p.End
	}
	if rebuilt.String() != text {
		t.Errorf("reassembled %q, want %q", rebuilt.String(), text)
	}
}

func TestSplit_Lowercase(t *testing.T) {
	v := testVocab(t, "hello")
	caseSensitive := New(v)
	got, err := caseSensitive.Split(doc("Hello"))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(pieces(got[0]), []string{"[UNK]"}) {
		t.Errorf("case-sensitive Split(Hello) = %v, want [UNK]", pieces(got[0]))
	}

	lowercased := New(v, WithLowercase())
	got, err = lowercased.Split(doc("Hello"))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(pieces(got[0]), []string{"hello"}) {
		t.Errorf("lowercased Split(Hello) = %v, want [hello]", pieces(got[0]))
	}
}

func TestSplit_StripAccents(t *testing.T) {
	v := testVocab(t, "uber")
	s := New(v, WithStripAccents())
	got, err := s.Split(doc("über")) // ü decomposes to u + combining diaeresis
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(pieces(got[0]), []string{"uber"}) {
		t.Errorf("Split(über) = %v, want [uber]", pieces(got[0]))
	}
}

func TestSplit_EmptyToken(t *testing.T) {
	v := testVocab(t)
	s := New(v)
	d := &annotations.Document{
		Sentences: []annotations.Sentence{{Index: 0, Begin: 0, End: 1, Text: "x"}},
		Tokens:    []annotations.Token{{Sentence: 0, Begin: 0, End: 1, Text: ""}},
	}
	if _, err := s.Split(d); err == nil {
		t.Error("Split with an empty token succeeded, want error")
	}
}

func TestSplit_OverlongToken(t *testing.T) {
	v := testVocab(t, "a", "##a")
	s := New(v)
	got, err := s.Split(doc(strings.Repeat("a", maxWordBytes+1)))
	if err != nil {
		t.Fatal(err)
	}
	if !strSliceEqual(pieces(got[0]), []string{"[UNK]"}) {
		t.Errorf("overlong token split = %v, want [UNK]", pieces(got[0]))
	}
}

func TestSplit_MultipleSentences(t *testing.T) {
	v := testVocab(t, "hello", "world")
	s := New(v)
	d := &annotations.Document{
		Sentences: []annotations.Sentence{
			{Index: 0, Begin: 0, End: 5, Text: "hello"},
			{Index: 1, Begin: 6, End: 11, Text: "world"},
		},
		Tokens: []annotations.Token{
			{Sentence: 0, Begin: 0, End: 5, Text: "hello"},
			{Sentence: 1, Begin: 6, End: 11, Text: "world"},
		},
	}
	got, err := s.Split(d)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("Split produced %d sentences, want 2", len(got))
	}
	if got[0].Sentence != 0 || got[1].Sentence != 1 {
		t.Errorf("sentence indices = %d, %d, want 0, 1", got[0].Sentence, got[1].Sentence)
	}
	if !strSliceEqual(pieces(got[1]), []string{"world"}) {
		t.Errorf("sentence 1 pieces = %v, want [world]", pieces(got[1]))
	}
	// Offsets are document-level.
	if got[1].Parts[0].Begin != 6 || got[1].Parts[0].End != 11 {
		t.Errorf("sentence 1 part span = [%d, %d), want [6, 11)", got[1].Parts[0].Begin, got[1].Parts[0].End)
	}
}

func strSliceEqual(a, b []string) bool {
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
