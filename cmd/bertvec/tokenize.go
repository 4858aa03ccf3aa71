package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/annotext/go-bertvec/annotate"
	"github.com/annotext/go-bertvec/batch"
	"github.com/annotext/go-bertvec/bundle"
	"github.com/annotext/go-bertvec/dataset"
)

var (
	tokenizeBundleDir string
	tokenizeInput     string
	tokenizeLowercase bool
	tokenizeMaxLen    int
	tokenizeBatchSize int

	pieceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	contStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headlineStyle = lipgloss.NewStyle().Bold(true)
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize",
	Short: "Dry-run the subword splitter and batch builder against a bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := tokenizeConfig()
		if err != nil {
			return err
		}
		b, err := bundle.Open(tokenizeBundleDir)
		if err != nil {
			return err
		}
		splitter, err := annotate.SplitterFromBundle(cfg, b)
		if err != nil {
			return err
		}

		texts, err := readInput(tokenizeInput)
		if err != nil {
			return err
		}
		doc := dataset.BuildDocument(texts)
		if err := doc.Validate(); err != nil {
			return err
		}
		tokenized, err := splitter.Split(doc)
		if err != nil {
			return err
		}

		for _, ts := range tokenized {
			fmt.Println(headlineStyle.Render(fmt.Sprintf("sentence %d (%d tokens, %d pieces):", ts.Sentence, ts.TokenCount, len(ts.Parts))))
			var sb strings.Builder
			for _, p := range ts.Parts {
				style := pieceStyle
				if p.Continuation {
					style = contStyle
				}
				fmt.Fprintf(&sb, "%s ", style.Render(fmt.Sprintf("%s/%d", p.Piece, p.ID)))
			}
			fmt.Println("  " + sb.String())
		}

		cls, sep := splitter.SpecialIDs()
		builder := batch.Builder{
			ClsID:     cls,
			SepID:     sep,
			BatchSize: cfg.BatchSize,
			MaxLen:    cfg.MaxSentenceLength,
		}
		for i, bt := range builder.Build(tokenized) {
			fmt.Println(headlineStyle.Render(fmt.Sprintf("batch %d:", i)) + fmt.Sprintf(" %d rows x %d positions", len(bt.Rows), bt.SeqLen))
		}
		return nil
	},
}

// tokenizeConfig turns the tokenize flags into a validated configuration, so
// out-of-range lengths are rejected before any batch is built.
func tokenizeConfig() (annotate.Config, error) {
	cfg := annotate.Config{
		Lowercase:         tokenizeLowercase,
		MaxSentenceLength: orDefault(tokenizeMaxLen, annotate.DefaultMaxSentenceLength),
		BatchSize:         orDefault(tokenizeBatchSize, annotate.DefaultBatchSize),
		Dimension:         annotate.DefaultDimension,
		Parallelism:       annotate.DefaultParallelism,
	}
	if err := cfg.Validate(); err != nil {
		return annotate.Config{}, err
	}
	return cfg, nil
}

func readInput(path string) ([]string, error) {
	if filepath.Ext(path) == ".parquet" {
		return dataset.ReadParquet(path)
	}
	return dataset.ReadLines(path)
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func init() {
	tokenizeCmd.Flags().StringVar(&tokenizeBundleDir, "bundle", "", "model bundle directory (required)")
	tokenizeCmd.Flags().StringVar(&tokenizeInput, "input", "", "input file, .parquet with {id, text} rows or plain text with one sentence per line (required)")
	tokenizeCmd.Flags().BoolVar(&tokenizeLowercase, "lowercase", false, "lowercase before matching")
	tokenizeCmd.Flags().IntVar(&tokenizeMaxLen, "max-length", 0, "max wordpiece sequence length incl. markers (default 128)")
	tokenizeCmd.Flags().IntVar(&tokenizeBatchSize, "batch-size", 0, "sentences per batch (default 32)")
	_ = tokenizeCmd.MarkFlagRequired("bundle")
	_ = tokenizeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(tokenizeCmd)
}
