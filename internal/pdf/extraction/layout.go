package extraction

import (
	"math"
	"sort"
	"strings"
)

// line is a row of glyphs under construction
type line struct {
	glyphs []glyph
	rect   Rect
	size   float64
}

// groupLines joins visible glyphs into lines in paint order. A glyph
// continues the current line when its baseline is within LineOverlap of the
// line and the horizontal gap stays below CharMargin.
func groupLines(glyphs []glyph, params LayoutParams) []line {
	var lines []line
	var cur *line

	for _, g := range glyphs {
		if g.hidden {
			continue
		}
		if cur != nil && continuesLine(cur, g, params) {
			cur.glyphs = append(cur.glyphs, g)
			cur.rect = cur.rect.Union(g.rect())
			cur.size = math.Max(cur.size, g.size)
			continue
		}
		lines = append(lines, line{glyphs: []glyph{g}, rect: g.rect(), size: g.size})
		cur = &lines[len(lines)-1]
	}

	return lines
}

func continuesLine(l *line, g glyph, params LayoutParams) bool {
	last := l.glyphs[len(l.glyphs)-1]
	size := math.Max(math.Max(last.size, g.size), 1)

	if math.Abs(last.baseline-g.baseline) > params.LineOverlap*size {
		return false
	}
	gap := g.x0 - last.x1
	return gap <= params.CharMargin*size && gap >= -params.CharMargin*size
}

// render turns a line into its text and font runs, inserting a space where
// the gap between two glyphs exceeds WordMargin
func (l line) render(params LayoutParams) TextLine {
	var sb strings.Builder
	var runs []Run

	for i, g := range l.glyphs {
		text := g.text
		if i > 0 {
			prev := l.glyphs[i-1]
			gap := g.x0 - prev.x1
			if gap > params.WordMargin*math.Max(g.size, 1) && !strings.HasSuffix(sb.String(), " ") && !strings.HasPrefix(text, " ") {
				sb.WriteString(" ")
				if n := len(runs); n > 0 {
					runs[n-1].Text += " "
				}
			}
		}
		sb.WriteString(text)

		if n := len(runs); n > 0 && runs[n-1].FontName == g.font && runs[n-1].FontSize == g.size {
			runs[n-1].Text += text
			runs[n-1].Rect = runs[n-1].Rect.Union(g.rect())
			continue
		}
		runs = append(runs, Run{Text: text, FontName: g.font, FontSize: g.size, Rect: g.rect()})
	}

	for i := range runs {
		runs[i].Text = strings.TrimRight(runs[i].Text, " ")
	}

	return TextLine{
		Text: strings.TrimSpace(sb.String()),
		Rect: l.rect,
		Runs: runs,
	}
}

// groupBoxes clusters lines into boxes. Two lines belong together when they
// overlap horizontally or share a left edge, and the vertical gap between
// them is at most LineMargin times the larger line height.
func groupBoxes(lines []TextLine, sizes []float64, params LayoutParams) []TextBox {
	n := len(lines)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if sameBox(lines[i], lines[j], math.Max(sizes[i], sizes[j]), params) {
				parent[find(i)] = find(j)
			}
		}
	}

	groups := make(map[int][]int)
	var roots []int
	for i := 0; i < n; i++ {
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}

	boxes := make([]TextBox, 0, len(roots))
	for _, r := range roots {
		members := make([]TextLine, 0, len(groups[r]))
		for _, i := range groups[r] {
			members = append(members, lines[i])
		}
		sortLines(members)
		boxes = append(boxes, newBox(members))
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		a, b := boxes[i].Rect, boxes[j].Rect
		if math.Abs(a.Y1-b.Y1) > 1 {
			return a.Y1 > b.Y1
		}
		return a.X0 < b.X0
	})

	return boxes
}

func sameBox(a, b TextLine, size float64, params LayoutParams) bool {
	overlapX := math.Min(a.Rect.X1, b.Rect.X1) - math.Max(a.Rect.X0, b.Rect.X0)
	aligned := math.Abs(a.Rect.X0-b.Rect.X0) <= size
	if overlapX <= 0 && !aligned {
		return false
	}

	// vertical gap between the two line boxes, negative when they overlap
	gap := math.Max(a.Rect.Y0, b.Rect.Y0) - math.Min(a.Rect.Y1, b.Rect.Y1)
	height := math.Max(a.Rect.Height(), b.Rect.Height())
	return gap <= params.LineMargin*height
}

// sortLines orders lines top to bottom, then left to right
func sortLines(lines []TextLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		a, b := lines[i].Rect, lines[j].Rect
		if math.Abs(a.Y0-b.Y0) > 0.5*math.Min(a.Height(), b.Height()) {
			return a.Y0 > b.Y0
		}
		return a.X0 < b.X0
	})
}

func newBox(lines []TextLine) TextBox {
	box := TextBox{Lines: lines, Rect: lines[0].Rect}
	texts := make([]string, 0, len(lines))
	for _, l := range lines {
		box.Rect = box.Rect.Union(l.Rect)
		texts = append(texts, l.Text)
	}
	box.Text = strings.Join(texts, "\n")
	return box
}

// layout groups a page's glyphs into reading-order boxes
func layout(glyphs []glyph, params LayoutParams) []TextBox {
	raw := groupLines(glyphs, params)

	lines := make([]TextLine, 0, len(raw))
	sizes := make([]float64, 0, len(raw))
	for _, l := range raw {
		tl := l.render(params)
		if tl.Text == "" {
			continue
		}
		lines = append(lines, tl)
		sizes = append(sizes, l.size)
	}

	return groupBoxes(lines, sizes, params)
}
