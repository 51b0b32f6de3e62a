package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/autodoc/autodoc/pkg/analyzer"
	"github.com/autodoc/autodoc/pkg/parser"
	"github.com/autodoc/autodoc/pkg/tui"
)

var (
	inspectInput string
	inspectJSON  bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the KPIs of a data file without writing a report",
	Long: `Load and analyze a data file, then print its KPIs.

Charts are drawn into a temporary directory and discarded.

Examples:
  autodoc inspect -i vendas.csv
  autodoc inspect -i vendas.json --json | jq .sum_by_numeric`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectInput, "input", "i", "", "Input file (.csv, .xlsx, .xls, .json)")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the metrics as JSON")
	inspectCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	ds, err := parser.Load(cmd.Context(), inspectInput)
	if err != nil {
		return err
	}

	tmp, err := os.MkdirTemp("", "autodoc-inspect-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	m, _, err := analyzer.Analyze(ds, tmp)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if inspectJSON {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	tui.PrintHeader(out, version)
	tui.PrintKPIs(out, filepath.Base(inspectInput), m)
	return nil
}
