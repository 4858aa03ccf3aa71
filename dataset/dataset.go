// Package dataset loads sentences from parquet or plain-text files and turns
// them into pipeline documents for the CLI. The library API proper always
// receives sentence and token boundaries from upstream; the simple
// whitespace/punctuation pre-tokenizer here exists only so command-line
// dry runs have tokens to work with.
package dataset

import (
	"bufio"
	"os"
	"strings"
	"unicode"

	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"

	"github.com/annotext/go-bertvec/annotations"
)

// Row is the parquet record layout: one sentence per row.
type Row struct {
	ID   int64  `parquet:"id"`
	Text string `parquet:"text"`
}

// ReadParquet loads sentence texts from a parquet file with {id, text} rows,
// ordered as stored.
func ReadParquet(path string) ([]string, error) {
	rows, err := parquet.ReadFile[Row](path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read parquet file %q", path)
	}
	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.Text
	}
	return texts, nil
}

// ReadLines loads sentence texts from a plain-text file, one sentence per
// line. Blank lines are skipped.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	var texts []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", path)
	}
	return texts, nil
}

// BuildDocument assembles a Document from sentence texts, pre-tokenizing each
// sentence on whitespace and punctuation. Offsets refer to the virtual
// document formed by joining the texts with newlines.
func BuildDocument(texts []string) *annotations.Document {
	doc := &annotations.Document{}
	offset := 0
	for i, text := range texts {
		doc.Sentences = append(doc.Sentences, annotations.Sentence{
			Index: i,
			Begin: offset,
			End:   offset + len(text),
			Text:  text,
		})
		doc.Tokens = append(doc.Tokens, preTokenize(text, i, offset)...)
		offset += len(text) + 1 // the joining newline
	}
	return doc
}

// preTokenize splits text on whitespace, and splits punctuation runes into
// their own tokens.
func preTokenize(text string, sentence, base int) []annotations.Token {
	var tokens []annotations.Token
	start := -1
	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, annotations.Token{
				Sentence: sentence,
				Begin:    base + start,
				End:      base + end,
				Text:     text[start:end],
			})
			start = -1
		}
	}
	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush(i)
		case isPunct(r):
			flush(i)
			tokens = append(tokens, annotations.Token{
				Sentence: sentence,
				Begin:    base + i,
				End:      base + i + len(string(r)),
				Text:     string(r),
			})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))
	return tokens
}

func isPunct(r rune) bool {
	// ASCII punctuation first, then the unicode category.
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}
