// Package locate finds the first text box whose content contains a needle
// and reports where it sits on the page and how it is set.
package locate

import (
	"context"
	"fmt"
	"strings"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

// MatchMode decides how several needles combine
type MatchMode string

const (
	// MatchAny succeeds on the first box containing any needle
	MatchAny MatchMode = "any"
	// MatchAll succeeds only when every needle occurs somewhere in the document
	MatchAll MatchMode = "all"
)

// ParseMatchMode accepts "any" or "all", case-insensitively; empty means any
func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchAny:
		return MatchAny, nil
	case MatchAll:
		return MatchAll, nil
	default:
		return "", fmt.Errorf("unknown match mode %q (want any or all)", s)
	}
}

// Region is a located text box. Page is 0-based. Font and Size are nil when
// the box carries no font information.
type Region struct {
	Page int             `json:"page"`
	Rect extraction.Rect `json:"rect"`
	Text string          `json:"text"`
	Font *string         `json:"font,omitempty"`
	Size *float64        `json:"size,omitempty"`
}

// Extractor renders PDF bytes to positioned text
type Extractor interface {
	Extract(ctx context.Context, data []byte, page *int) (*extraction.PositionedText, error)
}

// Locator searches extracted text boxes
type Locator struct {
	extractor Extractor
}

// NewLocator creates a locator; a nil extractor uses the default one
func NewLocator(extractor Extractor) *Locator {
	if extractor == nil {
		extractor = extraction.NewDefaultExtractor()
	}
	return &Locator{extractor: extractor}
}

// Locate returns the first box, pages in order and boxes in reading order,
// whose text contains needle ignoring case and runs of whitespace. The bool
// is false when nothing matches; that is not an error.
func (l *Locator) Locate(ctx context.Context, data []byte, needle string) (Region, bool, error) {
	return l.LocateAll(ctx, data, []string{needle}, MatchAny)
}

// LocateAll searches for several needles. With MatchAny the first box
// containing any needle wins. With MatchAll every needle must be found
// somewhere; the region returned is the first needle's box, grown to cover
// the other needles' boxes on the same page.
func (l *Locator) LocateAll(ctx context.Context, data []byte, needles []string, mode MatchMode) (Region, bool, error) {
	keys := make([]string, 0, len(needles))
	for _, n := range needles {
		if k := normalize(n); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return Region{}, false, nil
	}

	pt, err := l.extractor.Extract(ctx, data, nil)
	if err != nil {
		return Region{}, false, err
	}

	logger := session.FromContext(ctx).Logger

	var region Region
	var found bool
	switch mode {
	case MatchAll:
		region, found = matchAll(pt, keys)
	default:
		region, found = matchAny(pt, keys)
	}

	if found {
		logger.Debug().Int("page", region.Page+1).Str("text", truncate(region.Text, 60)).Msg("target text located")
	} else {
		logger.Debug().Strs("needles", needles).Msg("target text not found")
	}
	return region, found, nil
}

func matchAny(pt *extraction.PositionedText, keys []string) (Region, bool) {
	for _, page := range pt.Pages {
		for _, box := range page.Boxes {
			text := normalize(box.Text)
			for _, k := range keys {
				if strings.Contains(text, k) {
					return newRegion(page.Index, box), true
				}
			}
		}
	}
	return Region{}, false
}

type hit struct {
	page int
	box  extraction.TextBox
}

func matchAll(pt *extraction.PositionedText, keys []string) (Region, bool) {
	first := make([]*hit, len(keys))
	for _, page := range pt.Pages {
		for _, box := range page.Boxes {
			text := normalize(box.Text)
			for i, k := range keys {
				if first[i] == nil && strings.Contains(text, k) {
					first[i] = &hit{page: page.Index, box: box}
				}
			}
		}
	}

	for _, h := range first {
		if h == nil {
			return Region{}, false
		}
	}

	region := newRegion(first[0].page, first[0].box)
	for _, h := range first[1:] {
		if h.page == region.Page {
			region.Rect = region.Rect.Union(h.box.Rect)
		}
	}
	return region, true
}

func newRegion(page int, box extraction.TextBox) Region {
	r := Region{Page: page, Rect: box.Rect, Text: box.Text}
	if f := box.Font(); f != "" {
		r.Font = &f
	}
	if s := box.Size(); s > 0 {
		r.Size = &s
	}
	return r
}

// normalize lower-cases s and collapses whitespace runs to single spaces
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
