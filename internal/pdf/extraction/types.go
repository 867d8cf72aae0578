package extraction

import (
	"math"
	"strings"
)

// Rect is an axis-aligned rectangle in PDF user space, origin bottom-left
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of r
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the vertical extent of r
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union returns the smallest rectangle containing r and o
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Intersects reports whether r and o share any area
func (r Rect) Intersects(o Rect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1 && r.Y0 < o.Y1 && o.Y0 < r.Y1
}

// Contains reports whether the point lies inside r
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Inset grows r by pad on every side; a negative pad shrinks it
func (r Rect) Inset(pad float64) Rect {
	return Rect{X0: r.X0 - pad, Y0: r.Y0 - pad, X1: r.X1 + pad, Y1: r.Y1 + pad}
}

// IsEmpty reports whether r has no area
func (r Rect) IsEmpty() bool {
	return r.X1 <= r.X0 || r.Y1 <= r.Y0
}

// Run is a sequence of characters sharing one font and size
type Run struct {
	Text     string  `json:"text"`
	FontName string  `json:"font_name,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`
	Rect     Rect    `json:"rect"`
}

// TextLine is a row of runs sharing a baseline
type TextLine struct {
	Text string `json:"text"`
	Rect Rect   `json:"rect"`
	Runs []Run  `json:"runs"`
}

// TextBox is a block of vertically adjacent, aligned lines
type TextBox struct {
	Text  string     `json:"text"`
	Rect  Rect       `json:"rect"`
	Lines []TextLine `json:"lines"`
}

// Font returns the font name of the box's first run, empty when unknown
func (b TextBox) Font() string {
	if r, ok := b.firstRun(); ok {
		return r.FontName
	}
	return ""
}

// Size returns the font size of the box's first run, zero when unknown
func (b TextBox) Size() float64 {
	if r, ok := b.firstRun(); ok {
		return r.FontSize
	}
	return 0
}

func (b TextBox) firstRun() (Run, bool) {
	for _, l := range b.Lines {
		if len(l.Runs) > 0 {
			return l.Runs[0], true
		}
	}
	return Run{}, false
}

// PageText is the layout of one page. Index is 0-based.
type PageText struct {
	Index  int       `json:"index"`
	Width  float64   `json:"width"`
	Height float64   `json:"height"`
	Boxes  []TextBox `json:"boxes"`
}

// Text returns the page's boxes in reading order, one per line
func (p PageText) Text() string {
	parts := make([]string, 0, len(p.Boxes))
	for _, b := range p.Boxes {
		parts = append(parts, b.Text)
	}
	return strings.Join(parts, "\n")
}

// PositionedText is the extractor's view of a document or a single page
type PositionedText struct {
	TotalPages int        `json:"total_pages"`
	Pages      []PageText `json:"pages"`
}

// Text returns the text of every extracted page. Each page ends with a
// newline and pages are separated by form feeds, so no line spans two pages.
func (pt *PositionedText) Text() string {
	parts := make([]string, 0, len(pt.Pages))
	for _, p := range pt.Pages {
		parts = append(parts, p.Text()+"\n")
	}
	return strings.Join(parts, "\f")
}

// LayoutParams controls how glyphs are grouped. Margins are expressed as
// multiples of the font size.
type LayoutParams struct {
	// LineOverlap is the baseline tolerance for two glyphs to share a line
	LineOverlap float64 `json:"line_overlap"`
	// CharMargin is the largest horizontal gap inside a line
	CharMargin float64 `json:"char_margin"`
	// WordMargin is the gap above which a space is inserted
	WordMargin float64 `json:"word_margin"`
	// LineMargin is the largest vertical gap between lines of one box
	LineMargin float64 `json:"line_margin"`
}

// DefaultLayoutParams returns the grouping thresholds used by the renewal pipeline
func DefaultLayoutParams() LayoutParams {
	return LayoutParams{
		LineOverlap: 0.5,
		CharMargin:  2.0,
		WordMargin:  0.1,
		LineMargin:  0.5,
	}
}
