// Package testutil builds small PDF fixtures with fpdf so tests never depend
// on binary files checked into the repository.
package testutil

import (
	"bytes"
	"testing"

	"github.com/go-pdf/fpdf"
)

// Line is a single line of text. X and Baseline are PDF user space
// coordinates with the origin at the bottom-left of the page.
type Line struct {
	Text     string
	X        float64
	Baseline float64
	Family   string
	Style    string
	Size     float64
}

// Box is a rectangle in PDF user space
type Box struct {
	X, Y, W, H float64
}

// Page describes one page. Covers are painted as opaque white rectangles
// after all lines.
type Page struct {
	Width  float64
	Height float64
	Lines  []Line
	Covers []Box
	Links  []Box
}

// Letter returns an empty US Letter page
func Letter() Page {
	return Page{Width: 612, Height: 792}
}

// TextPage returns a Letter page with each paragraph on its own line,
// starting near the top at 12pt Helvetica
func TextPage(lines ...string) Page {
	p := Letter()
	y := 720.0
	for _, s := range lines {
		p.Lines = append(p.Lines, Line{Text: s, X: 72, Baseline: y, Size: 12})
		y -= 40
	}
	return p
}

// Build renders pages into PDF bytes
func Build(pages ...Page) ([]byte, error) {
	doc := fpdf.New("P", "pt", "Letter", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetCompression(true)

	for _, p := range pages {
		w, h := p.Width, p.Height
		if w == 0 || h == 0 {
			w, h = 612, 792
		}
		doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})

		for _, l := range p.Lines {
			family := l.Family
			if family == "" {
				family = "Helvetica"
			}
			size := l.Size
			if size == 0 {
				size = 12
			}
			doc.SetFont(family, l.Style, size)
			doc.Text(l.X, h-l.Baseline, l.Text)
		}

		for _, c := range p.Covers {
			doc.SetFillColor(255, 255, 255)
			doc.Rect(c.X, h-c.Y-c.H, c.W, c.H, "F")
		}

		for _, lk := range p.Links {
			doc.LinkString(lk.X, h-lk.Y-lk.H, lk.W, lk.H, "https://example.com/terms")
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MustBuild is Build for tests
func MustBuild(tb testing.TB, pages ...Page) []byte {
	tb.Helper()
	data, err := Build(pages...)
	if err != nil {
		tb.Fatalf("building fixture PDF: %v", err)
	}
	return data
}

// TextPages builds a document with one single-line page per text
func TextPages(tb testing.TB, texts ...string) []byte {
	tb.Helper()
	pages := make([]Page, 0, len(texts))
	for _, s := range texts {
		pages = append(pages, TextPage(s))
	}
	return MustBuild(tb, pages...)
}
