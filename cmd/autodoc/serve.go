package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/autodoc/autodoc/pkg/server"
)

//go:embed web/*
var webFS embed.FS

var (
	servePort      int
	serveHost      string
	serveNoBrowser bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI server",
	Long: `Start a local HTTP server with the AutoDoc upload form.

Upload a data file, pick a title and logo, and download the PDF or Excel report.
Each request runs in its own temporary directory, removed once the response is sent.

Examples:
  autodoc serve                    # Start on the configured port (8080)
  autodoc serve --port 3000        # Start on custom port
  autodoc serve --host 0.0.0.0     # Listen on all interfaces
  autodoc serve --no-browser       # Don't open browser automatically`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (default from config, 8080)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config, localhost)")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "Don't open browser")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := configManager.Get()

	host, port := cfg.Server.Host, cfg.Server.Port
	if cmd.Flags().Changed("host") {
		host = serveHost
	}
	if cmd.Flags().Changed("port") {
		port = servePort
	}

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		return fmt.Errorf("failed to load web UI: %w", err)
	}

	srv := server.NewServer(static, server.Options{
		Report:        cfg.Report,
		Summary:       cfg.Summary,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	})

	addr := net.JoinHostPort(host, fmt.Sprint(port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	url := fmt.Sprintf("http://%s:%d", host, port)
	if host == "0.0.0.0" || host == "" {
		url = fmt.Sprintf("http://localhost:%d", port)
	}

	fmt.Println()
	fmt.Println("  ╭─────────────────────────────────────╮")
	fmt.Println("  │          AUTODOC SERVER             │")
	fmt.Println("  ├─────────────────────────────────────┤")
	fmt.Printf("  │  Local:   %-25s │\n", url)
	fmt.Println("  │                                     │")
	fmt.Println("  │  Press Ctrl+C to stop               │")
	fmt.Println("  ╰─────────────────────────────────────╯")
	fmt.Println()

	if !serveNoBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			openBrowser(url)
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openBrowser opens URL in the default browser.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	cmd.Start()
}
