package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vtlower/internal/modbin"
	"vtlower/internal/observ"
	"vtlower/internal/vtable"
	"vtlower/internal/wasm"
)

var (
	runOutput string
	runCheck  bool
	runTables bool
)

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output module file (default: overwrite input)")
	runCmd.Flags().BoolVar(&runCheck, "check", false, "reject modules that violate the lowering preconditions")
	runCmd.Flags().BoolVar(&runTables, "tables", false, "build dispatch tables and rewrite construction-site operands")
}

var runCmd = &cobra.Command{
	Use:   "run [flags] <module.mp>",
	Short: "Lower vtable fields of a module file to indices",
	Args:  cobra.ExactArgs(1),
	RunE:  runExecution,
}

func runExecution(cmd *cobra.Command, args []string) error {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Flags().GetBool("timings")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	}

	input := args[0]
	cfg, err := loadToolConfig(filepath.Dir(input))
	if err != nil {
		return err
	}
	check := runCheck || cfg.Lower.Check
	tables := runTables || cfg.Lower.Tables
	showTimings = showTimings || cfg.Lower.Timings
	if jobs <= 0 {
		jobs = cfg.Lower.Jobs
	}

	output := runOutput
	if output == "" {
		output = input
	}

	timer := observ.NewTimer()

	phase := timer.Begin("load")
	m, err := modbin.ReadFile(input)
	if err != nil {
		return fmt.Errorf("failed to load module: %w", err)
	}
	timer.End(phase, input)

	if check {
		phase = timer.Begin("precheck")
		if err := vtable.Precheck(m); err != nil {
			return fmt.Errorf("module violates lowering preconditions:\n%w", err)
		}
		timer.End(phase, "")
	}

	phase = timer.Begin("lower")
	if err := vtable.Run(cmd.Context(), m, jobs); err != nil {
		return err
	}
	timer.End(phase, fmt.Sprintf("%d funcs", len(m.Funcs)))

	var builtTables int
	if tables {
		phase = timer.Begin("tables")
		d := vtable.BuildDispatchTables(m)
		builtTables = len(d.Fields)
		timer.End(phase, fmt.Sprintf("%d tables", builtTables))
	}

	phase = timer.Begin("validate")
	if err := wasm.Validate(m); err != nil {
		return fmt.Errorf("lowered module failed validation: %w", err)
	}
	timer.End(phase, "")

	phase = timer.Begin("write")
	if err := modbin.WriteFile(output, m); err != nil {
		return fmt.Errorf("failed to write module: %w", err)
	}
	timer.End(phase, output)

	if !quiet {
		msg := fmt.Sprintf("lowered %s -> %s", input, output)
		if tables {
			msg += fmt.Sprintf(" (%d dispatch tables)", builtTables)
		}
		color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), msg)
	}
	if showTimings {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	return nil
}
