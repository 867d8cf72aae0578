package mcp

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf"
	"github.com/a3tai/mcp-pdf-renewal/internal/renewal"
)

// serverInfoFileLimit is how many files pdf_server_info lists inline
const serverInfoFileLimit = 10

func formatAnalyzePackageResult(result *pdf.PDFAnalyzePackageResult) string {
	text := fmt.Sprintf("Package: %s\n", result.Path)
	text += fmt.Sprintf("Total pages: %d\n", result.TotalPages)
	text += fmt.Sprintf("Suggested order form pages: %d\n", result.SuggestedFormPages)
	text += fmt.Sprintf("Addenda after the form: %d\n", max(result.TotalPages-result.SuggestedFormPages, 0))

	if result.Detected {
		text += fmt.Sprintf("\nSignature page detected on page %d.\n", result.SuggestedFormPages)
	} else {
		text += "\n⚠️  WARNING: No signature page found; the suggestion is the fallback page count. " +
			"Confirm it before renewing.\n"
	}

	var hits []string
	for _, score := range result.Scores {
		switch {
		case score.Err != "":
			hits = append(hits, fmt.Sprintf("   Page %d: unreadable (%s)", score.Page, score.Err))
		case score.Matched():
			hits = append(hits, fmt.Sprintf("   Page %d: %s", score.Page, strings.Join(score.Hits, ", ")))
		}
	}
	if len(hits) > 0 {
		text += "\nSignature keywords:\n" + strings.Join(hits, "\n") + "\n"
	}

	return text
}

func formatLocateTextResult(result *pdf.PDFLocateTextResult) string {
	text := fmt.Sprintf("File: %s\n", result.Path)
	text += fmt.Sprintf("Needles (%s): %q\n", result.Mode, result.Needles)

	if !result.Found || result.Region == nil {
		return text + "\nNot found.\n"
	}

	r := result.Region
	text += fmt.Sprintf("\nFound on page %d\n", result.Page)
	text += fmt.Sprintf("Box: x0=%.1f y0=%.1f x1=%.1f y1=%.1f\n", r.Rect.X0, r.Rect.Y0, r.Rect.X1, r.Rect.Y1)
	if r.Font != nil {
		text += fmt.Sprintf("Font: %s\n", *r.Font)
	}
	if r.Size != nil {
		text += fmt.Sprintf("Size: %.1f\n", *r.Size)
	}
	text += fmt.Sprintf("Text: %s\n", r.Text)

	return text
}

func formatReplacement(rep *renewal.Replacement) string {
	if rep == nil {
		return ""
	}

	var text string
	switch {
	case rep.Located && rep.Applied:
		text = fmt.Sprintf("Clause replaced on page %d\n", rep.Page)
	case rep.Fallback && rep.Applied:
		text = fmt.Sprintf("Clause not found; replacement drawn at the fallback position on page %d\n", rep.Page)
	case rep.Error != "":
		text = fmt.Sprintf("Replacement failed, form left unchanged: %s\n", rep.Error)
	default:
		text = "Clause not found; form left unchanged\n"
	}

	if rep.Layout != nil && len(rep.Layout.Lines) > 0 {
		text += fmt.Sprintf("Drawn in %s %.1fpt over %d line(s)\n", rep.Layout.Family, rep.Layout.Size, len(rep.Layout.Lines))
	}
	return text
}

func formatReplaceTextResult(result *pdf.PDFReplaceTextResult) string {
	text := fmt.Sprintf("Input: %s\n", result.Path)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += fmt.Sprintf("Size: %d bytes\n\n", result.Size)
	text += formatReplacement(result.Replacement)
	return text
}

func formatRenewPackageResult(result *pdf.PDFRenewPackageResult) string {
	text := fmt.Sprintf("✅ Renewed package written to %s\n", result.OutputPath)
	text += fmt.Sprintf("Company: %s\n", result.Company)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += fmt.Sprintf("Total pages: %d (new form %d + addenda %d)\n",
		result.TotalPages, result.NewFormPages, result.AddendaPreserved)

	source := "fallback"
	switch {
	case result.SplitOverridden:
		source = "given"
	case result.SplitDetected:
		source = "detected"
	}
	text += fmt.Sprintf("Old order form pages removed: %d of %d (%s)\n",
		result.OldFormPages, result.OldTotalPages, source)

	text += "\n" + formatReplacement(result.Replacement)

	if len(result.Warnings) > 0 {
		text += "\n⚠️  Warnings:\n"
		for _, w := range result.Warnings {
			text += fmt.Sprintf("   - %s\n", w)
		}
	}

	return text
}

func formatSearchDirectoryResult(result *pdf.PDFSearchDirectoryResult) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.SearchQuery != "" {
		text += fmt.Sprintf("Search query: %s\n", result.SearchQuery)
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}

	return text
}

func formatServerInfoResult(result *pdf.PDFServerInfoResult) string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("📁 Input Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("📤 Output Directory: %s\n", result.OutputDirectory)
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", result.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("🔎 Clause: %q\n\n", result.Needles)

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("📂 Directory Contents (%d PDF files found):\n", len(result.DirectoryContents))
		for i, file := range result.DirectoryContents {
			if i >= serverInfoFileLimit {
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-serverInfoFileLimit)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "📂 Directory Contents: No PDF files found in input directory\n\n"
	}

	text += "🛠️  Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("\n• %s\n", tool.Name)
		text += fmt.Sprintf("  Usage: %s\n", tool.Usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.Parameters)
	}

	text += "\n" + result.UsageGuidance

	return text
}
