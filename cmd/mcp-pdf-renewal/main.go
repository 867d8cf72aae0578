package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/phuslu/log"

	"github.com/a3tai/mcp-pdf-renewal/internal/config"
	"github.com/a3tai/mcp-pdf-renewal/internal/mcp"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newLogger builds the process logger. Stdout carries the protocol in stdio
// mode, so logs always go to w and stay quiet unless debug is enabled.
func newLogger(cfg *config.Config, w io.Writer) *log.Logger {
	level := cfg.LogLevel
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		level = "warn"
	}
	return session.NewLogger(level, w)
}

// newServer wires the PDF service and the MCP server from cfg
func newServer(cfg *config.Config, logger *log.Logger) (*mcp.Server, error) {
	opts, err := cfg.WorkflowOptions()
	if err != nil {
		return nil, err
	}

	pdfService, err := pdf.NewService(pdf.ServiceOptions{
		MaxFileSize:     cfg.MaxFileSize,
		InputDirectory:  cfg.PDFDirectory,
		OutputDirectory: cfg.OutputDir(),
		Workflow:        opts,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF service: %w", err)
	}

	return mcp.NewServer(cfg, pdfService, logger)
}

func isVersionRequest(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

func main() {
	if isVersionRequest(os.Args[1:]) {
		printVersion(os.Stdout)
		return
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(2)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, os.Stderr)
	logger.Debug().Str("config", cfg.String()).Msg("starting")

	server, err := newServer(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create MCP server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server error")
		stop()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP PDF Renewal\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
