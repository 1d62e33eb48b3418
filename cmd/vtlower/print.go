package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vtlower/internal/modbin"
	"vtlower/internal/wasm"
)

var printCmd = &cobra.Command{
	Use:   "print <module.mp>",
	Short: "Dump a module file in human-readable form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := modbin.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to load module: %w", err)
		}
		return wasm.DumpModule(cmd.OutOrStdout(), m)
	},
}
