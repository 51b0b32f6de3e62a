package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/autodoc/autodoc/pkg/tui"
	"github.com/autodoc/autodoc/pkg/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the report whenever the input changes",
	Long: `Watch an input file and regenerate the report every time it is saved.

Bursts of writes are collapsed into a single run, and runs never overlap.

Examples:
  autodoc watch -i vendas.csv
  autodoc watch -i vendas.xlsx --excel --no-pdf
  autodoc watch -i vendas.csv --debounce 2s`,
	RunE: runWatch,
}

func init() {
	addReportFlags(watchCmd)
	watchCmd.MarkFlagRequired("input")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "Quiet period before regenerating")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := configManager.Get()
	req := reportRequest(cmd, cfg)

	runner, err := newRunner(ctx, cfg, false)
	if err != nil {
		return err
	}

	w, err := watch.NewWatcher(watchDebounce)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(req.InputPath); err != nil {
		return err
	}

	generate := func() error {
		res, err := runner.Run(ctx, req)
		if err != nil {
			return err
		}
		tui.PrintResult(os.Stdout, res)
		return nil
	}

	tui.PrintHeader(os.Stderr, version)
	if err := generate(); err != nil {
		// Keep watching: the next save may fix the input.
		tui.PrintError(os.Stderr, err, verbose)
	}
	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", req.InputPath)

	w.OnChange = func(path string) error {
		fmt.Fprintf(os.Stderr, "[%s] Change detected, regenerating...\n", time.Now().Format("15:04:05"))
		return generate()
	}
	w.OnError = func(path string, err error) {
		tui.PrintError(os.Stderr, err, verbose)
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
