// Package intelligence holds the heuristics of the renewal pipeline: finding
// the signature page that ends an order form and pulling labelled values such
// as the counterparty name out of page text.
package intelligence

import (
	"context"
	"strings"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

// PageExtractor renders a single 0-based page of PDF bytes
type PageExtractor interface {
	ExtractPage(ctx context.Context, data []byte, index int) (*extraction.PageText, error)
}

// SignatureClassifier finds the last page of an order form by looking for
// signature vocabulary in the leading pages of a package
type SignatureClassifier struct {
	keywords      []string
	scanWindow    int
	fallbackPages int
	extractor     PageExtractor
}

// NewSignatureClassifier creates a classifier from rules. Zero values in the
// signature rules fall back to the defaults.
func NewSignatureClassifier(rules SignatureRules, extractor PageExtractor) *SignatureClassifier {
	sc := &SignatureClassifier{
		keywords:      mergeKeywords(nil, rules.Keywords),
		scanWindow:    rules.ScanWindow,
		fallbackPages: rules.FallbackPages,
		extractor:     extractor,
	}
	if len(sc.keywords) == 0 {
		sc.keywords = DefaultSignatureKeywords()
	}
	if sc.scanWindow <= 0 {
		sc.scanWindow = DefaultScanWindow
	}
	if sc.fallbackPages <= 0 {
		sc.fallbackPages = DefaultFallbackPages
	}
	if sc.extractor == nil {
		sc.extractor = extraction.NewDefaultExtractor()
	}
	return sc
}

// NewDefaultSignatureClassifier uses the built-in lexicon and limits
func NewDefaultSignatureClassifier() *SignatureClassifier {
	return NewSignatureClassifier(DefaultRuleSet().Signature, nil)
}

// Keywords returns the lexicon in use
func (sc *SignatureClassifier) Keywords() []string {
	return append([]string(nil), sc.keywords...)
}

// ClassifySplit returns the 1-based number of the first page, within the
// scan window, that contains a signature keyword. When none does it returns
// min(fallback pages, total). A signature page beyond the window is not seen.
func (sc *SignatureClassifier) ClassifySplit(ctx context.Context, doc *document.Document) (int, error) {
	report, err := sc.Classify(ctx, doc)
	if err != nil {
		return 0, err
	}
	return report.Split, nil
}

// Classify is ClassifySplit with the per-page evidence
func (sc *SignatureClassifier) Classify(ctx context.Context, doc *document.Document) (*SplitReport, error) {
	logger := session.FromContext(ctx).Logger
	total := doc.PageCount()
	report := &SplitReport{TotalPages: total}

	window := min(sc.scanWindow, total)
	for i := 0; i < window; i++ {
		score, err := sc.scorePage(ctx, doc, i)
		if err != nil {
			return nil, err
		}
		report.Scores = append(report.Scores, score)

		if score.Matched() {
			report.Split = i + 1
			report.Detected = true
			logger.Info().Int("page", i+1).Strs("keywords", score.Hits).Msg("signature page detected")
			return report, nil
		}
	}

	report.Split = min(sc.fallbackPages, total)
	logger.Warn().Int("window", window).Int("split", report.Split).Msg("no signature page found, using fallback split")
	return report, nil
}

// ScorePages reports the keyword hits of every page in the scan window
func (sc *SignatureClassifier) ScorePages(ctx context.Context, doc *document.Document) ([]PageScore, error) {
	window := min(sc.scanWindow, doc.PageCount())
	scores := make([]PageScore, 0, window)
	for i := 0; i < window; i++ {
		score, err := sc.scorePage(ctx, doc, i)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}
	return scores, nil
}

// scorePage extracts one page and matches the lexicon. Extraction failures
// count as no match; only cancellation is returned.
func (sc *SignatureClassifier) scorePage(ctx context.Context, doc *document.Document, index int) (PageScore, error) {
	if err := ctx.Err(); err != nil {
		return PageScore{}, err
	}

	score := PageScore{Page: index + 1}
	page, err := sc.extractor.ExtractPage(ctx, doc.Bytes(), index)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PageScore{}, ctxErr
		}
		session.FromContext(ctx).Logger.Warn().Err(err).Int("page", index+1).Msg("page text unavailable, treating as no match")
		score.Err = err.Error()
		return score, nil
	}

	score.Hits = sc.Match(page.Text())
	return score, nil
}

// Match returns the keywords found in text, ignoring case
func (sc *SignatureClassifier) Match(text string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, k := range sc.keywords {
		if strings.Contains(lower, k) {
			hits = append(hits, k)
		}
	}
	return hits
}
