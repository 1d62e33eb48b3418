// Package main implements the vtlower CLI.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"vtlower/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "vtlower",
	Short: "Vtable-to-index lowering for wasm-GC style modules",
	Long:  `vtlower rewrites struct fields that hold typed function references into plain i32 indices, and builds the dispatch tables those indices point into`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(printCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("jobs", 0, "max parallel workers for function-body rewriting (0=auto)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
