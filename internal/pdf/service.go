package pdf

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/a3tai/mcp-pdf-renewal/internal/intelligence"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/locate"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/security"
	"github.com/a3tai/mcp-pdf-renewal/internal/renewal"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

// timeNow dates generated file names
var timeNow = time.Now

// ServiceOptions configures a Service
type ServiceOptions struct {
	MaxFileSize     int64
	InputDirectory  string
	OutputDirectory string
	Workflow        renewal.Options
	Logger          *log.Logger
}

// Service handles file based renewal operations: it confines paths to the
// configured directories, validates and loads inputs, runs the renewal
// workflow and writes the results
type Service struct {
	maxFileSize int64
	outputDir   string
	reader      *Reader
	search      *Search
	paths       *security.PathValidator
	workflow    *renewal.Workflow
	logger      *log.Logger
	dirCache    *DirectoryCache
}

// NewService creates a new PDF service with all components
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = session.DefaultMaxFileSize
	}
	if opts.OutputDirectory == "" {
		opts.OutputDirectory = opts.InputDirectory
	}
	if opts.Logger == nil {
		opts.Logger = session.Discard()
	}

	paths, err := security.NewPathValidator(opts.InputDirectory, opts.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	workflow, err := renewal.New(opts.Workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to create renewal workflow: %w", err)
	}

	outputDir, err := filepath.Abs(opts.OutputDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	return &Service{
		maxFileSize: opts.MaxFileSize,
		outputDir:   outputDir,
		reader:      NewReader(opts.MaxFileSize),
		search:      NewSearch(opts.MaxFileSize),
		paths:       paths,
		workflow:    workflow,
		logger:      opts.Logger,
		dirCache:    NewDirectoryCache(serverInfoCacheTTL),
	}, nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// OutputDirectory returns where renewed files are written
func (s *Service) OutputDirectory() string {
	return s.outputDir
}

// Workflow returns the renewal workflow
func (s *Service) Workflow() *renewal.Workflow {
	return s.workflow
}

// begin opens a request session and attaches it to ctx
func (s *Service) begin(ctx context.Context, op string) (context.Context, *session.Session) {
	sess := session.New(s.logger, session.Limits{MaxFileSize: s.maxFileSize})
	sess.Logger.Debug().Str("op", op).Msg("request started")
	return session.NewContext(ctx, sess), sess
}

// load resolves path inside the configured directories and reads it
func (s *Service) load(path string) (string, *document.Document, error) {
	abs, err := s.paths.Resolve(path)
	if err != nil {
		return "", nil, fmt.Errorf("security validation failed: %w", err)
	}
	doc, err := s.reader.ReadDocument(abs)
	if err != nil {
		return abs, nil, err
	}
	return abs, doc, nil
}

// outputPath resolves name inside the output directory, defaulting to
// fallback and forcing a .pdf extension
func (s *Service) outputPath(name, fallback string) (string, error) {
	if name == "" {
		name = fallback
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	if !filepath.IsAbs(name) {
		name = filepath.Join(s.outputDir, name)
	}

	abs, err := s.paths.Resolve(name)
	if err != nil {
		return "", fmt.Errorf("security validation failed: %w", err)
	}
	return abs, nil
}

// AnalyzePackage reports how many leading pages of an old package are its
// order form
func (s *Service) AnalyzePackage(ctx context.Context, req PDFAnalyzePackageRequest) (*PDFAnalyzePackageResult, error) {
	ctx, sess := s.begin(ctx, "analyze_package")

	path, doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	analysis, err := s.workflow.Analyze(ctx, doc)
	if err != nil {
		return nil, err
	}

	sess.Logger.Info().
		Str("path", path).
		Int("total_pages", analysis.TotalPages).
		Int("suggested_form_pages", analysis.SuggestedFormPages).
		Bool("detected", analysis.Detected).
		Msg("package analyzed")

	return &PDFAnalyzePackageResult{
		Path:               path,
		TotalPages:         analysis.TotalPages,
		SuggestedFormPages: analysis.SuggestedFormPages,
		Detected:           analysis.Detected,
		Scores:             analysis.Scores,
	}, nil
}

// LocateText finds the text block matching the needles
func (s *Service) LocateText(ctx context.Context, req PDFLocateTextRequest) (*PDFLocateTextResult, error) {
	ctx, sess := s.begin(ctx, "locate_text")

	var mode locate.MatchMode
	if req.Mode != "" {
		var err error
		if mode, err = locate.ParseMatchMode(req.Mode); err != nil {
			return nil, err
		}
	}

	path, doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	needles := req.Needles
	if len(needles) == 0 {
		needles = s.workflow.Options().Needles
	}
	if mode == "" {
		mode = s.workflow.Options().MatchMode
	}

	region, found, err := s.workflow.Locate(ctx, doc, needles, mode)
	if err != nil {
		return nil, err
	}

	result := &PDFLocateTextResult{
		Path:    path,
		Needles: needles,
		Mode:    string(mode),
		Found:   found,
	}
	if found {
		result.Page = region.Page + 1
		result.Region = &region
	}

	sess.Logger.Info().Str("path", path).Bool("found", found).Int("page", result.Page).Msg("text located")
	return result, nil
}

// ReplaceText replaces the configured clause in a new form and writes the
// result to the output directory
func (s *Service) ReplaceText(ctx context.Context, req PDFReplaceTextRequest) (*PDFReplaceTextResult, error) {
	ctx, sess := s.begin(ctx, "replace_text")

	path, doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	outPath, err := s.outputPath(req.Output, stem+" - Updated.pdf")
	if err != nil {
		return nil, err
	}

	out, rep, err := s.workflow.ReplaceText(ctx, doc, req.Text)
	if err != nil {
		return nil, err
	}

	size, err := s.reader.WriteDocument(outPath, out)
	if err != nil {
		return nil, err
	}

	sess.Logger.Info().
		Str("path", path).
		Str("output", outPath).
		Bool("located", rep.Located).
		Bool("applied", rep.Applied).
		Msg("text replaced")

	return &PDFReplaceTextResult{
		Path:        path,
		OutputPath:  outPath,
		Pages:       out.PageCount(),
		Size:        size,
		Replacement: rep,
	}, nil
}

// RenewPackage renews a contract from a new form and an old package
func (s *Service) RenewPackage(ctx context.Context, req PDFRenewPackageRequest) (*PDFRenewPackageResult, error) {
	ctx, sess := s.begin(ctx, "renew_package")

	_, newForm, err := s.load(req.NewFormPath)
	if err != nil {
		return nil, fmt.Errorf("new form: %w", err)
	}
	_, oldPackage, err := s.load(req.OldPackagePath)
	if err != nil {
		return nil, fmt.Errorf("old package: %w", err)
	}

	res, err := s.workflow.Renew(ctx, renewal.Request{
		NewForm:     newForm,
		OldPackage:  oldPackage,
		Split:       req.FormEndPage,
		Replacement: req.Text,
	})
	if err != nil {
		return nil, err
	}

	outPath, err := s.outputPath(req.Output, res.Filename)
	if err != nil {
		return nil, err
	}
	size, err := s.reader.WriteDocument(outPath, res.Document)
	if err != nil {
		return nil, err
	}

	sess.Logger.Info().
		Str("output", outPath).
		Str("company", res.Company).
		Int("total_pages", res.TotalPages).
		Int("warnings", len(res.Warnings)).
		Dur("elapsed", sess.Elapsed()).
		Msg("package renewed")

	return &PDFRenewPackageResult{
		OutputPath: outPath,
		Size:       size,
		Result:     res,
	}, nil
}

// ExtractCompany reads the counterparty name from a form
func (s *Service) ExtractCompany(ctx context.Context, req PDFExtractCompanyRequest) (*PDFExtractCompanyResult, error) {
	ctx, _ = s.begin(ctx, "extract_company")

	path, doc, err := s.load(req.Path)
	if err != nil {
		return nil, err
	}

	company, err := s.workflow.ExtractCompany(ctx, doc)
	if err != nil {
		return nil, err
	}

	return &PDFExtractCompanyResult{
		Path:     path,
		Company:  company,
		Filename: renewal.OutputFilename(company, timeNow()),
		Found:    company != intelligence.UnknownLabel,
	}, nil
}

// SearchDirectory lists PDF files in a directory inside the input directory
func (s *Service) SearchDirectory(ctx context.Context, req PDFSearchDirectoryRequest) (*PDFSearchDirectoryResult, error) {
	if req.Directory == "" {
		req.Directory = s.paths.GetConfiguredDirectory()
	}

	dir, err := s.paths.Resolve(req.Directory)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}
	if err := s.paths.ValidateDirectory(dir); err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	req.Directory = dir
	return s.search.SearchDirectory(ctx, req)
}
