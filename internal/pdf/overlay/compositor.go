// Package overlay paints replacement text over a region of a PDF page. The
// overlay is drawn with fpdf as a one page PDF of the same size, covering the
// old text with an opaque white box, and stamped onto the page with pdfcpu.
package overlay

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

// MinPadding is the least margin painted around the covered text
const MinPadding = 2.0

// Color is an RGB fill colour with 0-255 components
type Color struct {
	R, G, B int
}

// White is the default cover colour
var White = Color{R: 255, G: 255, B: 255}

// Instruction describes one overlay. Page is 0-based. A nil Target places
// the text at the fallback position.
type Instruction struct {
	Page     int
	Target   *extraction.Rect
	Text     string
	FontName string
	FontSize float64
	Fill     *Color
}

// Options are the compositor defaults
type Options struct {
	FontName         string  `json:"font_name" validate:"required"`
	FontSize         float64 `json:"font_size" validate:"gt=0"`
	Leading          float64 `json:"leading" validate:"gte=0"`
	Padding          float64 `json:"padding" validate:"gte=0"`
	FallbackX        float64 `json:"fallback_x" validate:"gte=0"`
	FallbackBaseline float64 `json:"fallback_baseline" validate:"gte=0"`
	FallbackWidth    float64 `json:"fallback_width" validate:"gt=0"`
}

// DefaultOptions returns 9pt Helvetica on a 12pt line pitch with the
// fallback block at x=50, baseline 200, 550pt wide
func DefaultOptions() Options {
	return Options{
		FontName:         "Helvetica",
		FontSize:         9,
		Leading:          3,
		Padding:          MinPadding,
		FallbackX:        50,
		FallbackBaseline: 200,
		FallbackWidth:    550,
	}
}

// Compositor applies overlay instructions. It holds only immutable options.
type Compositor struct {
	opts Options
}

// NewCompositor creates a compositor; zero options take the defaults
func NewCompositor(opts Options) *Compositor {
	def := DefaultOptions()
	if opts.FontName == "" {
		opts.FontName = def.FontName
	}
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.Leading < 0 {
		opts.Leading = def.Leading
	}
	if opts.Padding < MinPadding {
		opts.Padding = MinPadding
	}
	if opts.FallbackWidth <= 0 {
		opts.FallbackWidth = def.FallbackWidth
		opts.FallbackX = def.FallbackX
		opts.FallbackBaseline = def.FallbackBaseline
	}
	return &Compositor{opts: opts}
}

// Options returns the effective options
func (c *Compositor) Options() Options {
	return c.opts
}

// Compose returns a copy of doc with instr applied. On any failure the
// original document is returned together with an OverlayFailure error, so a
// caller may carry on with the unmodified pages.
func (c *Compositor) Compose(ctx context.Context, doc *document.Document, instr Instruction) (*document.Document, error) {
	logger := session.FromContext(ctx).Logger

	out, layout, err := c.compose(ctx, doc, instr)
	if err != nil {
		logger.Warn().Err(err).Int("page", instr.Page+1).Msg("overlay failed, keeping original page")
		return doc, pdferrors.WrapError(pdferrors.ErrorTypeOverlayFailure, "overlay could not be applied", err).WithPage(instr.Page + 1)
	}

	logger.Info().
		Int("page", instr.Page+1).
		Int("lines", len(layout.Lines)).
		Bool("fallback", layout.Fallback).
		Str("font", layout.Family+layout.Style).
		Float64("size", layout.Size).
		Msg("overlay applied")
	return out, nil
}

// Plan returns the layout Compose would use, without touching the document
func (c *Compositor) Plan(doc *document.Document, instr Instruction) (Layout, error) {
	size, err := doc.PageSize(instr.Page)
	if err != nil {
		return Layout{}, err
	}
	return c.plan(instr, size, newFontMeasurer().measure), nil
}

func (c *Compositor) compose(ctx context.Context, doc *document.Document, instr Instruction) (*document.Document, Layout, error) {
	if doc == nil {
		return nil, Layout{}, fmt.Errorf("no document")
	}
	size, err := doc.PageSize(instr.Page)
	if err != nil {
		return nil, Layout{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Layout{}, err
	}

	layout := c.plan(instr, size, newFontMeasurer().measure)

	fill := White
	if instr.Fill != nil {
		fill = *instr.Fill
	}

	stamp, err := render(layout, size, fill)
	if err != nil {
		return nil, layout, fmt.Errorf("failed to render overlay: %w", err)
	}

	stamped, err := applyStamp(doc, instr.Page, stamp)
	if err != nil {
		return nil, layout, fmt.Errorf("failed to stamp overlay: %w", err)
	}

	cleaned, removed, err := removeCoveredAnnotations(stamped, instr.Page, layout.Cover)
	if err != nil {
		return nil, layout, fmt.Errorf("failed to remove covered annotations: %w", err)
	}
	if removed > 0 {
		session.FromContext(ctx).Logger.Debug().Int("annotations", removed).Msg("removed annotations under overlay")
	}

	out, err := document.Load(cleaned)
	if err != nil {
		return nil, layout, err
	}
	if out.PageCount() != doc.PageCount() {
		return nil, layout, fmt.Errorf("page count changed from %d to %d", doc.PageCount(), out.PageCount())
	}
	return out, layout, nil
}

// render draws the cover box and text lines as a one page PDF
func render(l Layout, page document.Size, fill Color) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddPageFormat("P", fpdf.SizeType{Wd: page.Width, Ht: page.Height})

	// fpdf measures from the top-left corner
	top := func(y float64) float64 { return page.Height - y }

	pdf.SetFillColor(fill.R, fill.G, fill.B)
	pdf.Rect(l.Cover.X0, top(l.Cover.Y1), l.Cover.Width(), l.Cover.Height(), "F")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(l.Family, l.Style, l.Size)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for i, line := range l.Lines {
		if line == "" {
			continue
		}
		baseline := l.FirstBaseline - float64(i)*l.Leading
		pdf.Text(l.X, top(baseline), tr(line))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// applyStamp merges the first page of stamp on top of the page at index
func applyStamp(doc *document.Document, index int, stamp []byte) ([]byte, error) {
	wm, err := api.PDFWatermarkForReadSeeker(bytes.NewReader(stamp), 1, "scalefactor:1 abs, rotation:0", true, false, types.POINTS)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := api.AddWatermarks(doc.Reader(), &buf, []string{strconv.Itoa(index + 1)}, wm, document.Config()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fontMeasurer measures strings with fpdf core font metrics
type fontMeasurer struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

type measurer func(family, style string, size float64, s string) float64

func newFontMeasurer() *fontMeasurer {
	pdf := fpdf.New("P", "pt", "Letter", "")
	return &fontMeasurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *fontMeasurer) measure(family, style string, size float64, s string) float64 {
	m.pdf.SetFont(family, style, size)
	return m.pdf.GetStringWidth(m.tr(s))
}
