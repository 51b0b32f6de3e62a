package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Print the merged configuration and the files it was loaded from.

Secrets are masked. Files are read in this order, later ones winning:
  /etc/autodoc/config.yaml
  ~/.autodoc/config.yaml
  ./.autodoc.yaml
  --config <file>`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	paths := configManager.GetPaths()
	if len(paths) == 0 {
		fmt.Fprintln(out, "# no config files found, using defaults")
	}
	for _, p := range paths {
		fmt.Fprintf(out, "# loaded: %s\n", p)
	}

	data, err := configManager.Get().Redacted().YAML()
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
