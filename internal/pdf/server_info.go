package pdf

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/a3tai/mcp-pdf-renewal/internal/descriptions"
)

const (
	// serverInfoFileLimit caps the directory listing in server info
	serverInfoFileLimit = 100
	// serverInfoScanTimeout bounds the directory walk
	serverInfoScanTimeout = 3 * time.Second
	// serverInfoCacheTTL is how long a listing is reused
	serverInfoCacheTTL = time.Minute
)

// DirectoryCache keeps recent directory listings
type DirectoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	files   []FileInfo
	updated time.Time
}

// NewDirectoryCache creates a cache whose entries expire after ttl
func NewDirectoryCache(ttl time.Duration) *DirectoryCache {
	return &DirectoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached listing of dir, if still fresh
func (c *DirectoryCache) Get(dir string) ([]FileInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[dir]
	if !ok || time.Since(e.updated) > c.ttl {
		return nil, false
	}
	return e.files, true
}

// Set stores the listing of dir
func (c *DirectoryCache) Set(dir string, files []FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[dir] = cacheEntry{files: files, updated: time.Now()}
}

// Clear drops every entry
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// ServerInfo renders the pdf_server_info response
func (s *Service) ServerInfo(ctx context.Context, serverName, version string) (*PDFServerInfoResult, error) {
	dir := s.paths.GetConfiguredDirectory()

	files, ok := s.dirCache.Get(dir)
	if !ok {
		scanCtx, cancel := context.WithTimeout(ctx, serverInfoScanTimeout)
		defer cancel()

		var err error
		files, err = s.search.FindPDFsInDirectoryLimited(scanCtx, dir, "", serverInfoFileLimit)
		if err != nil {
			s.logger.Warn().Err(err).Str("dir", dir).Msg("directory scan incomplete")
		}
		if err == nil {
			s.dirCache.Set(dir, files)
		}
	}

	return &PDFServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		DefaultDirectory:  dir,
		OutputDirectory:   s.outputDir,
		MaxFileSize:       s.maxFileSize,
		Needles:           s.workflow.Options().Needles,
		AvailableTools:    availableTools(),
		DirectoryContents: files,
		UsageGuidance:     s.usageGuidance(),
	}, nil
}

func availableTools() []ToolInfo {
	const pathParam = "(supports absolute paths and paths relative to the input directory)"
	return []ToolInfo{
		{
			Name:        "pdf_analyze_package",
			Description: descriptions.GetToolDescription("pdf_analyze_package"),
			Usage:       "Use this tool to see how many leading pages of an old package are its order form.",
			Parameters:  "path (required): old package PDF " + pathParam,
		},
		{
			Name:        "pdf_locate_text",
			Description: descriptions.GetToolDescription("pdf_locate_text"),
			Usage:       "Use this tool to find the page and bounding box of a clause.",
			Parameters: "path (required): PDF " + pathParam + ", needles (optional): comma separated phrases, " +
				"mode (optional): 'any' or 'all'",
		},
		{
			Name:        "pdf_replace_text",
			Description: descriptions.GetToolDescription("pdf_replace_text"),
			Usage:       "Use this tool to update the clause of a new form without splicing.",
			Parameters: "path (required): new form PDF " + pathParam + ", text (optional): replacement clause, " +
				"output (optional): output file name",
		},
		{
			Name:        "pdf_renew_package",
			Description: descriptions.GetToolDescription("pdf_renew_package"),
			Usage:       "Use this tool to produce the renewed contract.",
			Parameters: "new_form_path (required), old_package_path (required), form_end_page (optional): " +
				"1-based last page of the old form, text (optional), output (optional)",
		},
		{
			Name:        "pdf_extract_company",
			Description: descriptions.GetToolDescription("pdf_extract_company"),
			Usage:       "Use this tool to preview the company a renewal is named after.",
			Parameters:  "path (required): new form PDF " + pathParam,
		},
		{
			Name:        "pdf_search_directory",
			Description: descriptions.GetToolDescription("pdf_search_directory"),
			Usage:       "Use this tool to find input PDFs.",
			Parameters:  "directory (optional): defaults to the input directory, query (optional): fuzzy file name search",
		},
		{
			Name:        "pdf_server_info",
			Description: descriptions.GetToolDescription("pdf_server_info"),
			Usage:       "Use this tool first to learn the configuration.",
			Parameters:  "none",
		},
	}
}

func (s *Service) usageGuidance() string {
	var sb strings.Builder
	sb.WriteString("PDF Renewal Server Usage Guide:\n\n")
	sb.WriteString("1. FIND INPUTS:\n   - Use 'pdf_search_directory' to list new forms and old packages\n\n")
	sb.WriteString("2. CHECK BEFORE RENEWING:\n")
	sb.WriteString("   - Use 'pdf_extract_company' to preview the company name\n")
	sb.WriteString("   - Use 'pdf_analyze_package' to preview where the old order form ends\n")
	sb.WriteString("   - Use 'pdf_locate_text' to confirm the outdated clause is present\n\n")
	sb.WriteString("3. RENEW:\n")
	sb.WriteString("   - Use 'pdf_renew_package'; pass form_end_page to override detection\n")
	sb.WriteString("   - Use 'pdf_replace_text' when only the clause needs updating\n\n")
	sb.WriteString("IMPORTANT NOTES:\n")
	fmt.Fprintf(&sb, "- Input files must be PDFs inside %s of at most %dMB\n",
		s.paths.GetConfiguredDirectory(), s.maxFileSize/(1024*1024))
	fmt.Fprintf(&sb, "- Output is written to %s\n", s.outputDir)
	fmt.Fprintf(&sb, "- When the clause is not found the server applies its on-miss policy (%s)\n",
		s.workflow.Options().OnMiss)
	sb.WriteString("- Missing signature pages and clauses are reported as warnings, not errors")
	return sb.String()
}
