package extraction

import (
	"strings"

	"github.com/go-pdf/fpdf"
)

// average advance, in text space units, for glyphs with no known metrics
const fallbackAdvance = 0.5

// CoreFont maps a PDF font name onto one of the standard core families
// known to fpdf, plus the fpdf style string ("", "B", "I" or "BI").
// Subset prefixes such as "ABCDEF+" are ignored. Names with no sensible
// mapping fall back to Helvetica.
func CoreFont(name string) (family, style string) {
	n := strings.ToLower(StripSubset(name))

	switch {
	case strings.Contains(n, "courier") || strings.Contains(n, "mono"):
		family = "Courier"
	case strings.Contains(n, "times") || strings.Contains(n, "serif") && !strings.Contains(n, "sans"):
		family = "Times"
	case strings.Contains(n, "symbol"):
		family = "Symbol"
	case strings.Contains(n, "dingbat"):
		family = "ZapfDingbats"
	default:
		family = "Helvetica"
	}

	if family == "Symbol" || family == "ZapfDingbats" {
		return family, ""
	}
	if strings.Contains(n, "bold") || strings.Contains(n, "black") || strings.Contains(n, "heavy") {
		style += "B"
	}
	if strings.Contains(n, "italic") || strings.Contains(n, "oblique") {
		style += "I"
	}
	return family, style
}

// StripSubset removes the six letter subset tag an embedded font name carries
func StripSubset(name string) string {
	if i := strings.IndexByte(name, '+'); i == 6 {
		return name[i+1:]
	}
	return name
}

// metrics answers glyph advances for fonts that carry no /Widths array,
// which is the case for the standard 14 fonts. Not safe for concurrent use.
type metrics struct {
	pdf     *fpdf.Fpdf
	current string
	cache   map[string]float64
}

func newMetrics() *metrics {
	return &metrics{
		pdf:   fpdf.New("P", "pt", "Letter", ""),
		cache: make(map[string]float64),
	}
}

// advance returns the width of s at a 1pt size of the named font, in text
// space units (thousandths of an em divided by 1000)
func (m *metrics) advance(fontName, s string) float64 {
	family, style := CoreFont(fontName)
	key := family + style + "\x00" + s
	if w, ok := m.cache[key]; ok {
		return w
	}

	if font := family + style; font != m.current {
		m.pdf.SetFont(family, style, 1000)
		m.current = font
	}

	w := m.pdf.GetStringWidth(s) / 1000
	if m.pdf.Err() || w <= 0 {
		m.pdf.ClearError()
		w = fallbackAdvance * float64(len([]rune(s)))
	}

	m.cache[key] = w
	return w
}
