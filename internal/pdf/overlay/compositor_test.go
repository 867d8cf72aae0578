package overlay

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/locate"
	"github.com/a3tai/mcp-pdf-renewal/internal/testutil"
)

const (
	oldClause   = "terms of use and sale for businesses"
	replacement = "By accepting this quote, you agree to the terms and conditions in our Service Subscription Agreement."
)

func formFixture(t *testing.T, withLinks bool) *document.Document {
	t.Helper()

	cover := testutil.TextPage("Order Form", "Company Name: Acme Corp")

	terms := testutil.Letter()
	terms.Lines = []testutil.Line{
		{Text: "Subscription details", X: 72, Baseline: 720, Size: 14},
		{Text: "By accepting this quote you agree to our Terms of Use and Sale", X: 72, Baseline: 300, Size: 9},
		{Text: "for Businesses which can be viewed below.", X: 72, Baseline: 288, Size: 9},
	}
	if withLinks {
		terms.Links = []testutil.Box{
			{X: 300, Y: 298, W: 60, H: 10},
			{X: 72, Y: 715, W: 80, H: 14},
		}
	}

	doc, err := document.Load(testutil.MustBuild(t, cover, terms))
	require.NoError(t, err)
	return doc
}

func TestCompose_ReplacesLocatedText(t *testing.T) {
	ctx := context.Background()
	doc := formFixture(t, false)
	loc := locate.NewLocator(nil)

	region, found, err := loc.Locate(ctx, doc.Bytes(), oldClause)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, region.Page)

	out, err := NewCompositor(DefaultOptions()).Compose(ctx, doc, Instruction{
		Page:   region.Page,
		Target: &region.Rect,
		Text:   replacement,
	})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, doc.PageCount(), out.PageCount())

	_, found, err = loc.Locate(ctx, out.Bytes(), oldClause)
	require.NoError(t, err)
	assert.False(t, found, "covered text must no longer be visible")

	newRegion, found, err := loc.Locate(ctx, out.Bytes(), "Service Subscription Agreement")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, region.Page, newRegion.Page)
	assert.InDelta(t, region.Rect.X0, newRegion.Rect.X0, 1)

	_, found, err = loc.Locate(ctx, out.Bytes(), "subscription details")
	require.NoError(t, err)
	assert.True(t, found, "text outside the cover is untouched")
}

func TestCompose_FallbackPosition(t *testing.T) {
	ctx := context.Background()
	doc := formFixture(t, false)

	out, err := NewCompositor(DefaultOptions()).Compose(ctx, doc, Instruction{Page: 1, Text: replacement})
	require.NoError(t, err)

	page, err := extraction.NewDefaultExtractor().ExtractPage(ctx, out.Bytes(), 1)
	require.NoError(t, err)

	var box *extraction.TextBox
	for i := range page.Boxes {
		if strings.Contains(page.Boxes[i].Text, "Service Subscription") {
			box = &page.Boxes[i]
		}
	}
	require.NotNil(t, box)
	assert.InDelta(t, 50, box.Rect.X0, 1)
	assert.InDelta(t, 200+0.8*9, box.Rect.Y1, 1)
	assert.Equal(t, "Helvetica", box.Font())
	assert.InDelta(t, 9, box.Size(), 0.01)
}

func TestApplyStamp(t *testing.T) {
	doc := formFixture(t, false)
	c := NewCompositor(DefaultOptions())

	layout, err := c.Plan(doc, Instruction{Page: 0, Text: "Service Subscription Agreement"})
	require.NoError(t, err)
	size, err := doc.PageSize(0)
	require.NoError(t, err)

	stamp, err := render(layout, size, White)
	require.NoError(t, err)

	stamped, err := applyStamp(doc, 0, stamp)
	require.NoError(t, err)

	out, err := document.Load(stamped)
	require.NoError(t, err)
	assert.Equal(t, doc.PageCount(), out.PageCount())

	region, found, err := locate.NewLocator(nil).Locate(context.Background(), out.Bytes(), "service subscription agreement")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 0, region.Page)
}

func TestCompose_FailsOpen(t *testing.T) {
	doc := formFixture(t, false)

	out, err := NewCompositor(DefaultOptions()).Compose(context.Background(), doc, Instruction{Page: 5, Text: replacement})
	require.Error(t, err)
	assert.ErrorIs(t, err, pdferrors.ErrOverlayFailure)
	assert.True(t, pdferrors.IsRecoverable(err))
	assert.Same(t, doc, out, "the original document comes back untouched")
}

func TestCompose_RemovesCoveredAnnotations(t *testing.T) {
	ctx := context.Background()
	doc := formFixture(t, true)

	before, err := PageAnnotations(doc.Bytes(), 1)
	require.NoError(t, err)
	require.Len(t, before, 2)

	region, found, err := locate.NewLocator(nil).Locate(ctx, doc.Bytes(), oldClause)
	require.NoError(t, err)
	require.True(t, found)

	out, err := NewCompositor(DefaultOptions()).Compose(ctx, doc, Instruction{Page: 1, Target: &region.Rect, Text: replacement})
	require.NoError(t, err)

	after, err := PageAnnotations(out.Bytes(), 1)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "Link", after[0].Subtype)
	assert.Greater(t, after[0].Rect.Y0, 700.0, "the link away from the clause survives")
}

func TestPlan(t *testing.T) {
	doc := formFixture(t, false)
	c := NewCompositor(DefaultOptions())

	target := extraction.Rect{X0: 72, Y0: 286, X1: 400, Y1: 307}
	l, err := c.Plan(doc, Instruction{Page: 1, Target: &target, Text: replacement, FontName: "Times-Bold", FontSize: 10})
	require.NoError(t, err)

	assert.Equal(t, "Times", l.Family)
	assert.Equal(t, "B", l.Style)
	assert.Equal(t, 10.0, l.Size)
	assert.Equal(t, 13.0, l.Leading)
	assert.Equal(t, 72.0, l.X)
	assert.InDelta(t, 299, l.FirstBaseline, 1e-9)
	assert.Equal(t, target.Inset(2), l.Cover)
	assert.False(t, l.Fallback)
	assert.Greater(t, len(l.Lines), 1)

	l, err = c.Plan(doc, Instruction{Page: 1, Text: replacement})
	require.NoError(t, err)
	assert.True(t, l.Fallback)
	assert.Equal(t, 50.0, l.X)
	assert.Equal(t, 200.0, l.FirstBaseline)
	assert.Equal(t, 12.0, l.Leading)
	assert.Equal(t, "Helvetica", l.Family)
	assert.LessOrEqual(t, l.Cover.X0, 48.0)

	_, err = c.Plan(doc, Instruction{Page: -1})
	assert.Error(t, err)
}

func TestNewCompositor_ClampsPadding(t *testing.T) {
	c := NewCompositor(Options{Padding: 0.5})
	opts := c.Options()

	assert.Equal(t, MinPadding, opts.Padding)
	assert.Equal(t, "Helvetica", opts.FontName)
	assert.Equal(t, 9.0, opts.FontSize)
	assert.Equal(t, 550.0, opts.FallbackWidth)
}

func TestWrap(t *testing.T) {
	// one unit per rune
	measure := func(s string) float64 { return float64(len([]rune(s))) }

	tests := []struct {
		name  string
		text  string
		width float64
		want  []string
	}{
		{"fits on one line", "alpha beta", 20, []string{"alpha beta"}},
		{"greedy break", "alpha beta gamma delta", 11, []string{"alpha beta", "gamma delta"}},
		{"collapses whitespace", "alpha\n  beta\tgamma", 100, []string{"alpha beta gamma"}},
		{"paragraph break", "alpha beta\n\ngamma", 100, []string{"alpha beta", "", "gamma"}},
		{"long word keeps its own line", "a supercalifragilistic b", 5, []string{"a", "supercalifragilistic", "b"}},
		{"empty", "   ", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, wrap(measure, tt.text, tt.width))
		})
	}
}

func TestWrap_RespectsFontWidth(t *testing.T) {
	m := newFontMeasurer()
	measure := func(s string) float64 { return m.measure("Helvetica", "", 9, s) }

	lines := wrap(measure, strings.Repeat("renewal agreement ", 40), 200)
	require.Greater(t, len(lines), 1)
	for _, l := range lines {
		assert.LessOrEqual(t, measure(l), 200.0)
	}
}
