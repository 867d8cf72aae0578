package overlay

import (
	"math"
	"strings"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
)

// ascent and descent of a line as fractions of the font size
const (
	ascent  = 0.8
	descent = 0.2
)

// Layout is where and how the replacement text will be drawn, in PDF user
// space with the origin at the bottom-left of the page
type Layout struct {
	Family        string          `json:"family"`
	Style         string          `json:"style"`
	Size          float64         `json:"size"`
	Leading       float64         `json:"leading"`
	X             float64         `json:"x"`
	FirstBaseline float64         `json:"first_baseline"`
	Lines         []string        `json:"lines"`
	Cover         extraction.Rect `json:"cover"`
	Fallback      bool            `json:"fallback"`
}

// Extent returns the box occupied by the drawn lines
func (l Layout) Extent(measure func(string) float64) extraction.Rect {
	width := 0.0
	for _, line := range l.Lines {
		width = math.Max(width, measure(line))
	}
	n := math.Max(float64(len(l.Lines)), 1)
	return extraction.Rect{
		X0: l.X,
		Y0: l.FirstBaseline - (n-1)*l.Leading - descent*l.Size,
		X1: l.X + width,
		Y1: l.FirstBaseline + ascent*l.Size,
	}
}

// plan works out the layout of instr on a page of the given size
func (c *Compositor) plan(instr Instruction, page document.Size, measure measurer) Layout {
	name := instr.FontName
	if name == "" {
		name = c.opts.FontName
	}
	family, style := extraction.CoreFont(name)

	size := instr.FontSize
	if size <= 0 {
		size = c.opts.FontSize
	}

	l := Layout{
		Family:  family,
		Style:   style,
		Size:    size,
		Leading: size + c.opts.Leading,
	}
	m := func(s string) float64 { return measure(family, style, size, s) }

	if instr.Target != nil && !instr.Target.IsEmpty() {
		t := *instr.Target
		l.X = t.X0
		l.FirstBaseline = t.Y1 - ascent*size
		l.Lines = wrap(m, instr.Text, t.Width())
		l.Cover = t.Inset(c.opts.Padding)
	} else {
		l.Fallback = true
		l.X = c.opts.FallbackX
		l.FirstBaseline = c.opts.FallbackBaseline
		l.Lines = wrap(m, instr.Text, math.Min(c.opts.FallbackWidth, page.Width-l.X))
		l.Cover = l.Extent(m).Inset(c.opts.Padding)
	}

	return l
}

// wrap breaks text into lines no wider than width. Blank lines separate
// paragraphs; other whitespace is collapsed. A word wider than width gets a
// line of its own.
func wrap(measure func(string) float64, text string, width float64) []string {
	var lines []string

	paragraphs := splitParagraphs(text)
	for i, para := range paragraphs {
		if i > 0 {
			lines = append(lines, "")
		}

		var current []string
		for _, word := range strings.Fields(para) {
			candidate := strings.Join(append(current, word), " ")
			if len(current) == 0 || measure(candidate) <= width {
				current = append(current, word)
				continue
			}
			lines = append(lines, strings.Join(current, " "))
			current = []string{word}
		}
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
		}
	}

	return lines
}

func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
