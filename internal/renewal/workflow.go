// Package renewal runs the contract renewal pipeline: it reads the
// counterparty name from a new order form, replaces the outdated clause on
// it, finds where the order form ends in an old package and appends the old
// package's addenda to the renewed form.
package renewal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/a3tai/mcp-pdf-renewal/internal/intelligence"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/assemble"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/locate"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/overlay"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

// MissPolicy decides what happens when the outdated clause is not found
type MissPolicy string

const (
	// MissFallback draws the replacement at the fixed fallback position
	MissFallback MissPolicy = "fallback"
	// MissSkip leaves the new form untouched
	MissSkip MissPolicy = "skip"
)

// DefaultNeedle identifies the outdated clause
const DefaultNeedle = "terms of use and sale for businesses"

// DefaultReplacement is the clause drawn over the outdated one
const DefaultReplacement = "By accepting this quote, you agree to the terms and conditions in our Service Subscription Agreement. " +
	"If you accept this quote on behalf of a company or other legal entity or person, your acceptance also represents that you " +
	"have the authority to bind such entity or person to the terms of this quote, including the Service Subscription Agreement. " +
	"Please refer to the Service Subscription Agreement that has been sent together with this order form."

// Options configures a Workflow
type Options struct {
	Needles      []string
	MatchMode    locate.MatchMode
	Replacement  string
	OnMiss       MissPolicy
	FallbackPage int // 1-based page of the new form used when the clause is not found
	Overlay      overlay.Options
	Rules        intelligence.RuleSet
	Layout       extraction.LayoutParams
}

// DefaultOptions returns the options of the standard renewal
func DefaultOptions() Options {
	return Options{
		Needles:      []string{DefaultNeedle},
		MatchMode:    locate.MatchAny,
		Replacement:  DefaultReplacement,
		OnMiss:       MissFallback,
		FallbackPage: 2,
		Overlay:      overlay.DefaultOptions(),
		Rules:        intelligence.DefaultRuleSet(),
		Layout:       extraction.DefaultLayoutParams(),
	}
}

// Workflow wires the pipeline components. It holds only immutable
// configuration and may serve concurrent requests.
type Workflow struct {
	opts       Options
	extractor  *extraction.Extractor
	classifier *intelligence.SignatureClassifier
	locator    *locate.Locator
	compositor *overlay.Compositor
	assembler  *assemble.Assembler
	labels     *intelligence.LabelExtractor
	now        func() time.Time
}

// New builds a workflow from opts
func New(opts Options) (*Workflow, error) {
	if err := opts.Rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules: %w", err)
	}
	labels, err := intelligence.NewLabelExtractor(opts.Rules.LabelPatterns())
	if err != nil {
		return nil, err
	}
	if opts.OnMiss == "" {
		opts.OnMiss = MissFallback
	}
	if opts.OnMiss != MissFallback && opts.OnMiss != MissSkip {
		return nil, fmt.Errorf("unknown miss policy %q", opts.OnMiss)
	}
	if opts.MatchMode == "" {
		opts.MatchMode = locate.MatchAny
	}
	if opts.FallbackPage <= 0 {
		opts.FallbackPage = 1
	}
	if opts.Layout == (extraction.LayoutParams{}) {
		opts.Layout = extraction.DefaultLayoutParams()
	}

	extractor := extraction.NewExtractor(opts.Layout)
	return &Workflow{
		opts:       opts,
		extractor:  extractor,
		classifier: intelligence.NewSignatureClassifier(opts.Rules.Signature, extractor),
		locator:    locate.NewLocator(extractor),
		compositor: overlay.NewCompositor(opts.Overlay),
		assembler:  assemble.NewAssembler(),
		labels:     labels,
		now:        time.Now,
	}, nil
}

// Options returns the effective options
func (w *Workflow) Options() Options {
	return w.opts
}

// Analysis is the report for an old package
type Analysis struct {
	TotalPages         int                      `json:"total_pages"`
	SuggestedFormPages int                      `json:"suggested_form_pages"`
	Detected           bool                     `json:"detected"`
	Scores             []intelligence.PageScore `json:"scores,omitempty"`
}

// Analyze suggests how many leading pages of old form an old package has
func (w *Workflow) Analyze(ctx context.Context, oldPackage *document.Document) (*Analysis, error) {
	report, err := w.classifier.Classify(ctx, oldPackage)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		TotalPages:         report.TotalPages,
		SuggestedFormPages: report.Split,
		Detected:           report.Detected,
		Scores:             report.Scores,
	}, nil
}

// ExtractCompany reads the counterparty name from a document's text
func (w *Workflow) ExtractCompany(ctx context.Context, doc *document.Document) (string, error) {
	pt, err := w.extractor.Extract(ctx, doc.Bytes(), nil)
	if err != nil {
		return intelligence.UnknownLabel, err
	}
	return w.labels.Extract(pt.Text()), nil
}

// Locate finds the block matching needles in doc. Empty needles or mode
// use the configured ones.
func (w *Workflow) Locate(ctx context.Context, doc *document.Document, needles []string, mode locate.MatchMode) (locate.Region, bool, error) {
	if len(needles) == 0 {
		needles = w.opts.Needles
	}
	if mode == "" {
		mode = w.opts.MatchMode
	}
	return w.locator.LocateAll(ctx, doc.Bytes(), needles, mode)
}

// Replacement describes what happened to the outdated clause
type Replacement struct {
	Located  bool            `json:"located"`
	Applied  bool            `json:"applied"`
	Fallback bool            `json:"fallback"`
	Page     int             `json:"page,omitempty"` // 1-based
	Region   *locate.Region  `json:"region,omitempty"`
	Layout   *overlay.Layout `json:"layout,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// ReplaceText locates the outdated clause in doc and draws the replacement
// over it. A missing clause or a failed overlay degrades to a best effort
// result; only structural errors are returned.
func (w *Workflow) ReplaceText(ctx context.Context, doc *document.Document, text string) (*document.Document, *Replacement, error) {
	logger := session.FromContext(ctx).Logger
	if text == "" {
		text = w.opts.Replacement
	}

	region, found, err := w.locator.LocateAll(ctx, doc.Bytes(), w.opts.Needles, w.opts.MatchMode)
	if err != nil {
		return nil, nil, err
	}

	rep := &Replacement{Located: found}
	instr := overlay.Instruction{Text: text}

	if found {
		instr.Page = region.Page
		instr.Target = &region.Rect
		if region.Font != nil {
			instr.FontName = *region.Font
		}
		if region.Size != nil {
			instr.FontSize = *region.Size
		}
		rep.Region = &region
	} else {
		logger.Warn().Strs("needles", w.opts.Needles).Str("policy", string(w.opts.OnMiss)).Msg("outdated clause not found")
		if w.opts.OnMiss == MissSkip {
			return doc, rep, nil
		}
		instr.Page = min(w.opts.FallbackPage, doc.PageCount()) - 1
		rep.Fallback = true
	}
	rep.Page = instr.Page + 1

	if layout, err := w.compositor.Plan(doc, instr); err == nil {
		rep.Layout = &layout
	}

	out, err := w.compositor.Compose(ctx, doc, instr)
	if err != nil {
		if pdferrors.IsRecoverable(err) {
			logger.Warn().Err(err).Int("page", rep.Page).Msg("replacement not applied")
			rep.Error = err.Error()
			return doc, rep, nil
		}
		return nil, nil, err
	}

	rep.Applied = true
	return out, rep, nil
}

// Request is one renewal. Split, when set, is the 1-based number of old
// form pages to drop from the old package and overrides detection.
type Request struct {
	NewForm     *document.Document
	OldPackage  *document.Document
	Split       *int
	Replacement string
}

// Result is the renewed document and what was done to produce it
type Result struct {
	Document         *document.Document `json:"-"`
	Filename         string             `json:"filename"`
	Company          string             `json:"company"`
	OldFormPages     int                `json:"old_form_pages_removed"`
	AddendaPreserved int                `json:"addenda_preserved"`
	OldTotalPages    int                `json:"old_total_pages"`
	NewFormPages     int                `json:"new_form_pages"`
	TotalPages       int                `json:"total_pages"`
	SplitDetected    bool               `json:"split_detected"`
	SplitOverridden  bool               `json:"split_overridden"`
	Replacement      *Replacement       `json:"replacement"`
	Warnings         []string           `json:"warnings,omitempty"`
}

// Renew runs the whole pipeline
func (w *Workflow) Renew(ctx context.Context, req Request) (*Result, error) {
	if req.NewForm == nil || req.OldPackage == nil {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidInput, "both the new form and the old package are required")
	}
	logger := session.FromContext(ctx).Logger

	total := req.OldPackage.PageCount()
	if req.Split != nil && (*req.Split < 0 || *req.Split > total) {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeInvalidSplitIndex,
			fmt.Sprintf("form end page %d outside [0, %d]", *req.Split, total))
	}

	res := &Result{
		OldTotalPages: total,
		NewFormPages:  req.NewForm.PageCount(),
	}

	company, err := w.ExtractCompany(ctx, req.NewForm)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Warn().Err(err).Msg("company name unavailable")
		res.Warnings = append(res.Warnings, "company name could not be read: "+err.Error())
	}
	res.Company = company
	logger.Info().Str("company", company).Msg("company name extracted")

	form, rep, err := w.ReplaceText(ctx, req.NewForm, req.Replacement)
	if err != nil {
		return nil, err
	}
	res.Replacement = rep
	switch {
	case rep.Error != "":
		res.Warnings = append(res.Warnings, "replacement text could not be applied: "+rep.Error)
	case !rep.Located && !rep.Applied:
		res.Warnings = append(res.Warnings, "outdated clause not found, new form left unchanged")
	case !rep.Located:
		res.Warnings = append(res.Warnings, "outdated clause not found, replacement drawn at the fallback position")
	}

	split := 0
	if req.Split != nil {
		split = *req.Split
		res.SplitOverridden = true
	} else {
		report, err := w.classifier.Classify(ctx, req.OldPackage)
		if err != nil {
			return nil, err
		}
		split = report.Split
		res.SplitDetected = report.Detected
		if !report.Detected {
			res.Warnings = append(res.Warnings, fmt.Sprintf("no signature page found, assuming %d form pages", split))
		}
	}

	out, err := w.assembler.Assemble(ctx, form, req.OldPackage, split)
	if err != nil {
		return nil, err
	}

	res.Document = out
	res.OldFormPages = split
	res.AddendaPreserved = total - split
	res.TotalPages = out.PageCount()
	res.Filename = OutputFilename(company, w.now())

	logger.Info().
		Str("filename", res.Filename).
		Int("old_form_pages", split).
		Int("addenda", res.AddendaPreserved).
		Dur("elapsed", session.FromContext(ctx).Elapsed()).
		Msg("renewal complete")
	return res, nil
}

// OutputFilename names the renewed document. The company name is reduced
// to letters, digits, spaces, dots, underscores and hyphens.
func OutputFilename(company string, date time.Time) string {
	name := sanitize(company)
	if name == "" {
		name = intelligence.UnknownLabel
	}
	return fmt.Sprintf("Order Form - %s - %s - Renewal.pdf", name, date.Format("20060102"))
}

func sanitize(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '.', r == '_', r == '-':
			sb.WriteRune(r)
		}
	}
	out := strings.Join(strings.Fields(sb.String()), " ")
	return strings.Trim(out, ". ")
}
