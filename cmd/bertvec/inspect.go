package main

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/annotext/go-bertvec/bundle"
)

var (
	inspectBundleDir string
	inspectTensor    string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show bundle geometry and its tensor table",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := bundle.Open(inspectBundleDir)
		if err != nil {
			return err
		}

		fmt.Println(headlineStyle.Render("bundle: ") + b.Dir)
		fmt.Printf("  hidden size: %d\n  encoder layers: %d\n  tensors: %d\n", b.HiddenSize, b.NumLayers, len(b.Header.Tensors))
		if b.Settings.ModelRef != "" {
			fmt.Printf("  model ref: %s\n", b.Settings.ModelRef)
		}

		names := make([]string, 0, len(b.Header.Tensors))
		for name := range b.Header.Tensors {
			names = append(names, name)
		}
		sort.Strings(names)

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("TENSOR", "DTYPE", "SHAPE")
		for _, name := range names {
			info := b.Header.Tensors[name]
			t.Row(name, info.Dtype, shapeString(info.Shape))
		}
		fmt.Println(t.Render())

		if inspectTensor != "" {
			return printTensorStats(b, inspectTensor)
		}
		return nil
	},
}

func printTensorStats(b *bundle.Bundle, name string) error {
	data, shape, err := b.TensorData(name)
	if err != nil {
		return err
	}
	lo, hi := float32(math.Inf(1)), float32(math.Inf(-1))
	var sum float64
	for _, v := range data {
		lo = min(lo, v)
		hi = max(hi, v)
		sum += float64(v)
	}
	fmt.Println(headlineStyle.Render("tensor: ") + name)
	fmt.Printf("  shape: %s\n  min: %g\n  max: %g\n  mean: %g\n", shapeString(shape), lo, hi, sum/float64(len(data)))
	return nil
}

func shapeString(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func init() {
	inspectCmd.Flags().StringVar(&inspectBundleDir, "bundle", "", "model bundle directory (required)")
	inspectCmd.Flags().StringVar(&inspectTensor, "tensor", "", "also print basic stats of this tensor (F32 only)")
	_ = inspectCmd.MarkFlagRequired("bundle")
	rootCmd.AddCommand(inspectCmd)
}
