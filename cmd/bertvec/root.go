package main

import (
	"flag"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

var rootCmd = &cobra.Command{
	Use:   "bertvec",
	Short: "Tooling for BERT-style per-token embedding bundles",
	Long: `bertvec inspects model bundles and dry-runs the subword tokenizer and
batch builder against them, without loading an inference engine.`,
	SilenceUsage: true,
}

func init() {
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)
	rootCmd.PersistentFlags().AddGoFlagSet(klogFlags)
}
