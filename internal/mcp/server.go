package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/phuslu/log"

	"github.com/a3tai/mcp-pdf-renewal/internal/config"
	"github.com/a3tai/mcp-pdf-renewal/internal/descriptions"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

// shutdownTimeout bounds the graceful stop of the HTTP transport
const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	mcpServer  *server.MCPServer
	logger     *log.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, logger *log.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}
	if logger == nil {
		logger = session.Discard()
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		mcpServer:  mcpServer,
		logger:     logger,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	pathParam := func(desc string) mcp.ToolOption {
		return mcp.WithString("path",
			mcp.Required(),
			mcp.Description(desc+" (absolute, or relative to the input directory)"),
		)
	}

	s.mcpServer.AddTool(mcp.NewTool("pdf_analyze_package",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_analyze_package")),
		pathParam("Old contract package PDF"),
	), s.handleAnalyzePackage)

	s.mcpServer.AddTool(mcp.NewTool("pdf_locate_text",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_locate_text")),
		pathParam("PDF to search"),
		mcp.WithArray("needles",
			mcp.Description("Phrases to look for; defaults to the configured clause. A string is split on commas."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("mode",
			mcp.Description("'any' (default) or 'all'"),
			mcp.Enum("any", "all"),
		),
	), s.handleLocateText)

	s.mcpServer.AddTool(mcp.NewTool("pdf_replace_text",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_replace_text")),
		pathParam("New order form PDF"),
		mcp.WithString("text",
			mcp.Description("Replacement clause; defaults to the configured text"),
		),
		mcp.WithString("output",
			mcp.Description("Output file name inside the output directory"),
		),
	), s.handleReplaceText)

	s.mcpServer.AddTool(mcp.NewTool("pdf_renew_package",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_renew_package")),
		mcp.WithString("new_form_path",
			mcp.Required(),
			mcp.Description("New order form PDF"),
		),
		mcp.WithString("old_package_path",
			mcp.Required(),
			mcp.Description("Previous signed contract package PDF"),
		),
		mcp.WithNumber("form_end_page",
			mcp.Description("1-based last page of the old order form; 0 keeps every page. Detected when omitted."),
			mcp.Min(0),
		),
		mcp.WithString("text",
			mcp.Description("Replacement clause; defaults to the configured text"),
		),
		mcp.WithString("output",
			mcp.Description("Output file name; defaults to 'Order Form - {company} - {date} - Renewal.pdf'"),
		),
	), s.handleRenewPackage)

	s.mcpServer.AddTool(mcp.NewTool("pdf_extract_company",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_extract_company")),
		pathParam("New order form PDF"),
	), s.handleExtractCompany)

	s.mcpServer.AddTool(mcp.NewTool("pdf_search_directory",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_search_directory")),
		mcp.WithString("directory",
			mcp.Description("Directory path to search (uses default if empty)"),
		),
		mcp.WithString("query",
			mcp.Description("Optional search query for fuzzy matching"),
		),
	), s.handleSearchDirectory)

	s.mcpServer.AddTool(mcp.NewTool("pdf_server_info",
		mcp.WithDescription(descriptions.GetToolDescription("pdf_server_info")),
	), s.handleServerInfo)
}

// toolError logs err and turns it into a tool level error result
func (s *Server) toolError(tool string, err error) *mcp.CallToolResult {
	s.logger.Warn().Str("tool", tool).Err(err).Msg("tool call failed")
	return mcp.NewToolResultError(err.Error())
}

// Handler functions
func (s *Server) handleAnalyzePackage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.AnalyzePackage(ctx, pdf.PDFAnalyzePackageRequest{Path: path})
	if err != nil {
		return s.toolError("pdf_analyze_package", err), nil
	}

	return mcp.NewToolResultText(formatAnalyzePackageResult(result)), nil
}

func (s *Server) handleLocateText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	needles, err := stringList(args, "needles")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	mode, _ := args["mode"].(string)

	result, err := s.pdfService.LocateText(ctx, pdf.PDFLocateTextRequest{Path: path, Needles: needles, Mode: mode})
	if err != nil {
		return s.toolError("pdf_locate_text", err), nil
	}

	return mcp.NewToolResultText(formatLocateTextResult(result)), nil
}

func (s *Server) handleReplaceText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	text, _ := args["text"].(string)
	output, _ := args["output"].(string)

	result, err := s.pdfService.ReplaceText(ctx, pdf.PDFReplaceTextRequest{Path: path, Text: text, Output: output})
	if err != nil {
		return s.toolError("pdf_replace_text", err), nil
	}

	return mcp.NewToolResultText(formatReplaceTextResult(result)), nil
}

func (s *Server) handleRenewPackage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	newForm, err := request.RequireString("new_form_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	oldPackage, err := request.RequireString("old_package_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	formEndPage, err := optionalInt(args, "form_end_page")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, _ := args["text"].(string)
	output, _ := args["output"].(string)

	result, err := s.pdfService.RenewPackage(ctx, pdf.PDFRenewPackageRequest{
		NewFormPath:    newForm,
		OldPackagePath: oldPackage,
		FormEndPage:    formEndPage,
		Text:           text,
		Output:         output,
	})
	if err != nil {
		return s.toolError("pdf_renew_package", err), nil
	}

	return mcp.NewToolResultText(formatRenewPackageResult(result)), nil
}

func (s *Server) handleExtractCompany(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.pdfService.ExtractCompany(ctx, pdf.PDFExtractCompanyRequest{Path: path})
	if err != nil {
		return s.toolError("pdf_extract_company", err), nil
	}

	text := fmt.Sprintf("Company: %s\n", result.Company)
	text += fmt.Sprintf("File: %s\n", result.Path)
	text += fmt.Sprintf("Renewal file name: %s\n", result.Filename)
	if !result.Found {
		text += "\n⚠️  WARNING: No company label matched; the renewal will be named with \"Unknown\".\n"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSearchDirectory(ctx context.Context, request mcp.CallToolRequest) (
	*mcp.CallToolResult, error,
) {
	args := request.GetArguments()

	directory := s.config.PDFDirectory // default
	if dir, ok := args["directory"].(string); ok && dir != "" {
		directory = dir
	}

	query := ""
	if q, ok := args["query"].(string); ok {
		query = q
	}

	result, err := s.pdfService.SearchDirectory(ctx, pdf.PDFSearchDirectoryRequest{
		Directory: directory,
		Query:     query,
	})
	if err != nil {
		return s.toolError("pdf_search_directory", err), nil
	}

	var responseText string
	if result.TotalCount == 0 {
		responseText = fmt.Sprintf("No PDF files found in directory: %s", result.Directory)
		if result.SearchQuery != "" {
			responseText += fmt.Sprintf(" (searched for: %s)", result.SearchQuery)
		}
	} else {
		responseText = formatSearchDirectoryResult(result)
	}

	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.pdfService.ServerInfo(ctx, s.config.ServerName, s.config.Version)
	if err != nil {
		return s.toolError("pdf_server_info", err), nil
	}

	return mcp.NewToolResultText(formatServerInfoResult(result)), nil
}

// stringList reads a list argument given either as an array of strings or
// as one comma separated string
func stringList(args map[string]any, key string) ([]string, error) {
	var out []string
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case string:
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	case []string:
		out = v
	case []any:
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s must contain only strings", key)
			}
			if str = strings.TrimSpace(str); str != "" {
				out = append(out, str)
			}
		}
	default:
		return nil, fmt.Errorf("%s must be a list of strings", key)
	}
	return out, nil
}

// optionalInt reads a non-negative whole number argument; nil means absent
func optionalInt(args map[string]any, key string) (*int, error) {
	var f float64
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case float64:
		f = v
	case int:
		f = float64(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s must be a whole number", key)
		}
		f = float64(n)
	default:
		return nil, fmt.Errorf("%s must be a number", key)
	}

	if f < 0 || f != math.Trunc(f) {
		return nil, fmt.Errorf("%s must be a non-negative whole number", key)
	}
	n := int(f)
	return &n, nil
}

// Run starts the MCP server in the configured mode and returns when ctx is
// cancelled or the transport stops
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx, os.Stdin, os.Stdout)
}

// runStdioMode serves JSON-RPC over the given streams
func (s *Server) runStdioMode(ctx context.Context, in io.Reader, out io.Writer) error {
	s.logger.Info().
		Str("dir", s.config.PDFDirectory).
		Str("outdir", s.config.OutputDir()).
		Msg("starting PDF renewal server in stdio mode")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(stdlog.New(logWriter{s.logger}, "", 0))

	if err := stdio.Listen(ctx, in, out); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// logWriter forwards transport error output to the structured logger
type logWriter struct {
	logger *log.Logger
}

func (w logWriter) Write(p []byte) (int, error) {
	w.logger.Error().Str("transport", "stdio").Msg(strings.TrimSpace(string(p)))
	return len(p), nil
}

// runServerMode serves the SSE transport on the configured address
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	s.logger.Info().
		Str("addr", addr).
		Str("dir", s.config.PDFDirectory).
		Str("outdir", s.config.OutputDir()).
		Msg("starting PDF renewal server in SSE mode")

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		s.logger.Info().Msg("server stopped")
		return nil
	}
}
