package annotations

import "testing"

func validDoc() *Document {
	return &Document{
		Sentences: []Sentence{
			{Index: 0, Begin: 0, End: 11, Text: "hello world"},
			{Index: 1, Begin: 12, End: 15, Text: "bye"},
		},
		Tokens: []Token{
			{Sentence: 0, Begin: 0, End: 5, Text: "hello"},
			{Sentence: 0, Begin: 6, End: 11, Text: "world"},
			{Sentence: 1, Begin: 12, End: 15, Text: "bye"},
		},
	}
}

func TestValidate(t *testing.T) {
	if err := validDoc().Validate(); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Document)
	}{
		{"unordered sentence index", func(d *Document) { d.Sentences[1].Index = 5 }},
		{"token references missing sentence", func(d *Document) { d.Tokens[0].Sentence = 7 }},
		{"empty token", func(d *Document) { d.Tokens[1].End = d.Tokens[1].Begin }},
		{"token outside sentence", func(d *Document) { d.Tokens[2].End = 99 }},
		{"token before sentence", func(d *Document) { d.Tokens[2].Begin = 3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDoc()
			tt.mutate(d)
			if err := d.Validate(); err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}

func TestTokensBySentence(t *testing.T) {
	got := validDoc().TokensBySentence()
	if len(got) != 2 {
		t.Fatalf("got %d groups, want 2", len(got))
	}
	if len(got[0]) != 2 || len(got[1]) != 1 {
		t.Errorf("group sizes = %d, %d, want 2, 1", len(got[0]), len(got[1]))
	}
	if got[0][1].Text != "world" || got[1][0].Text != "bye" {
		t.Errorf("grouping order wrong: %+v", got)
	}
}

func TestValidate_Empty(t *testing.T) {
	d := &Document{}
	if err := d.Validate(); err != nil {
		t.Errorf("empty document rejected: %v", err)
	}
}
