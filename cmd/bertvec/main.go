// Package main provides the bertvec CLI, tooling around model bundles and the
// embedding annotator.
//
// Usage:
//
//	bertvec tokenize --bundle <dir> --input <file>   dry-run subword split + batch shapes
//	bertvec inspect  --bundle <dir>                  bundle geometry and tensor table
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
