package descriptions

import (
	"maps"
	"slices"
)

// Tool descriptions with practical examples and use cases

const (
	// Renewal Tools
	PDFAnalyzePackageDescription = `Find where the order form ends in an old contract package.

**When to use:** Before renewing, to check how many leading pages of an old package belong to the superseded order form and how many addenda follow it.

**Why it's useful:** Scores the first pages for signature vocabulary ("signature", "date signed", "sign here", ...) and reports the first signature page as the end of the form, so the addenda can be carried over without the old form.

**Examples:**
• Preview a split: "How many pages of old-package.pdf are the old order form?"
• Check detection: "Which pages of acme-2024.pdf mention a signature?"

**Common workflows:**
1. Review: pdf_analyze_package → confirm suggested_form_pages → pdf_renew_package
2. Override: pdf_analyze_package → detection looks wrong → pdf_renew_package with form_end_page

**Best practices:** When detected is false the suggestion is the fallback page count; confirm it with the user before renewing.`

	PDFLocateTextDescription = `Locate a clause in a PDF and report its page, bounding box, font and size.

**When to use:** To check whether a form still carries the outdated clause, or to see exactly where replacement text will be drawn.

**Why it's useful:** Works on the visible layout of the page: text hidden under white boxes is ignored and wrapped lines are matched as one paragraph, case-insensitively.

**Examples:**
• Default clause: "Does new-form.pdf still mention the terms of use and sale for businesses?"
• Custom needles: "Find the block containing both 'governing law' and 'Delaware' in contract.pdf"

**Common workflows:**
1. Verify: pdf_locate_text → pdf_replace_text → pdf_locate_text on the output (no longer found)

**Best practices:** mode "any" returns the first block matching any needle; mode "all" requires every needle on the same page.`

	PDFReplaceTextDescription = `Cover the outdated clause of a new order form and draw the replacement clause in its place.

**When to use:** When only the clause needs updating, without splicing an old package.

**Why it's useful:** Paints an opaque box over the located text, writes the new clause in the same font and size wrapped to the same width, and drops links that sat on the old clause.

**Examples:**
• Default replacement: "Update the terms clause in new-form.pdf"
• Custom text: "Replace the terms clause in new-form.pdf with 'Governed by the Master Agreement.'"

**Common workflows:**
1. Standalone: pdf_replace_text → review output → send to customer

**Best practices:** If the clause is not found the server either draws at the fallback position or leaves the form unchanged, depending on its on-miss setting; the response says which.`

	PDFRenewPackageDescription = `Renew a contract: update the new order form and append the addenda of the old package.

**When to use:** To produce the renewed contract from a new order form and the customer's previous signed package.

**Why it's useful:** Extracts the company name, replaces the outdated clause, drops the old order form pages (detected or given) and appends the remaining addenda, writing "Order Form - {company} - {date} - Renewal.pdf".

**Examples:**
• Automatic split: "Renew with new-form.pdf and old-package.pdf"
• Manual split: "Renew with new-form.pdf and old-package.pdf, the old form ends on page 4"

**Common workflows:**
1. Guided: pdf_analyze_package → confirm → pdf_renew_package
2. One shot: pdf_renew_package → check warnings in the response

**Best practices:** Read the warnings in the response: a missing signature page or clause is reported, not treated as an error.`

	PDFExtractCompanyDescription = `Read the counterparty name from an order form.

**When to use:** To preview the name a renewal will be filed under.

**Why it's useful:** Applies ordered label patterns ("Company Name:", "Company:", "Bill To:") to the page text and returns the first capture, or "Unknown".

**Examples:**
• "Who is new-form.pdf addressed to?"

**Best practices:** If the result is Unknown, the renewal output is named with "Unknown"; rename the file or add a label pattern.`

	// Discovery Tools
	PDFSearchDirectoryDescription = `Find PDF files in the input directory with fuzzy file name search.

**When to use:** To discover new forms and old packages before renewing.

**Why it's useful:** Matches every word of the query against the words of each file name and skips files that are too large to process.

**Examples:**
• "List the PDFs available for renewal"
• "Find Acme's old package"

**Best practices:** Use the returned absolute paths as inputs to the renewal tools.`

	PDFServerInfoDescription = `Get server configuration, available tools, directory contents, and usage guidance.

**When to use:** At the start of a session to learn the directories, size limit and clause the server is configured for.

**Examples:**
• "What can this server do?"
• "Which directory are renewed files written to?"

**Best practices:** Call it first; the usage guide lists the recommended order of tools.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"pdf_analyze_package":  PDFAnalyzePackageDescription,
	"pdf_locate_text":      PDFLocateTextDescription,
	"pdf_replace_text":     PDFReplaceTextDescription,
	"pdf_renew_package":    PDFRenewPackageDescription,
	"pdf_extract_company":  PDFExtractCompanyDescription,
	"pdf_search_directory": PDFSearchDirectoryDescription,
	"pdf_server_info":      PDFServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	return slices.Sorted(maps.Keys(ToolDescriptions))
}
