package pdf

import (
	"github.com/a3tai/mcp-pdf-renewal/internal/intelligence"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/locate"
	"github.com/a3tai/mcp-pdf-renewal/internal/renewal"
)

// FileInfo represents information about a PDF file
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// PDFAnalyzePackageRequest asks where the order form ends in an old package
type PDFAnalyzePackageRequest struct {
	Path string `json:"path"`
}

// PDFLocateTextRequest asks for the text block containing a needle.
// Empty Needles fall back to the configured clause.
type PDFLocateTextRequest struct {
	Path    string   `json:"path"`
	Needles []string `json:"needles,omitempty"`
	Mode    string   `json:"mode,omitempty"`
}

// PDFReplaceTextRequest replaces the configured clause in a new form
type PDFReplaceTextRequest struct {
	Path   string `json:"path"`
	Text   string `json:"text,omitempty"`
	Output string `json:"output,omitempty"`
}

// PDFRenewPackageRequest runs the whole renewal. FormEndPage, when set,
// is the 1-based last page of the old order form.
type PDFRenewPackageRequest struct {
	NewFormPath    string `json:"new_form_path"`
	OldPackagePath string `json:"old_package_path"`
	FormEndPage    *int   `json:"form_end_page,omitempty"`
	Text           string `json:"text,omitempty"`
	Output         string `json:"output,omitempty"`
}

// PDFExtractCompanyRequest asks for the counterparty name of a form
type PDFExtractCompanyRequest struct {
	Path string `json:"path"`
}

// PDFSearchDirectoryRequest represents a request to search for PDF files in a directory
type PDFSearchDirectoryRequest struct {
	Directory string `json:"directory"`
	Query     string `json:"query"`
}

// PDFServerInfoRequest represents a request to get server information and capabilities
type PDFServerInfoRequest struct{}

// Response Types

// PDFAnalyzePackageResult reports the detected order form boundary
type PDFAnalyzePackageResult struct {
	Path               string                   `json:"path"`
	TotalPages         int                      `json:"total_pages"`
	SuggestedFormPages int                      `json:"suggested_form_pages"`
	Detected           bool                     `json:"detected"`
	Scores             []intelligence.PageScore `json:"scores,omitempty"`
}

// PDFLocateTextResult reports where the needle was found. Region is nil
// when nothing matched.
type PDFLocateTextResult struct {
	Path    string         `json:"path"`
	Needles []string       `json:"needles"`
	Mode    string         `json:"mode"`
	Found   bool           `json:"found"`
	Page    int            `json:"page,omitempty"` // 1-based
	Region  *locate.Region `json:"region,omitempty"`
}

// PDFReplaceTextResult reports the written file and what was replaced
type PDFReplaceTextResult struct {
	Path        string               `json:"path"`
	OutputPath  string               `json:"output_path"`
	Pages       int                  `json:"pages"`
	Size        int64                `json:"size"`
	Replacement *renewal.Replacement `json:"replacement"`
}

// PDFRenewPackageResult reports the renewed package
type PDFRenewPackageResult struct {
	OutputPath string `json:"output_path"`
	Size       int64  `json:"size"`
	*renewal.Result
}

// PDFExtractCompanyResult holds the extracted counterparty name
type PDFExtractCompanyResult struct {
	Path     string `json:"path"`
	Company  string `json:"company"`
	Filename string `json:"filename"`
	Found    bool   `json:"found"`
}

// PDFSearchDirectoryResult represents the result of a directory search
type PDFSearchDirectoryResult struct {
	Files       []FileInfo `json:"files"`
	TotalCount  int        `json:"total_count"`
	Directory   string     `json:"directory"`
	SearchQuery string     `json:"search_query,omitempty"`
}

// PDFServerInfoResult represents server information and usage guidance
type PDFServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	DefaultDirectory  string     `json:"default_directory"`
	OutputDirectory   string     `json:"output_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	Needles           []string   `json:"needles"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	DirectoryContents []FileInfo `json:"directory_contents"`
	UsageGuidance     string     `json:"usage_guidance"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}
