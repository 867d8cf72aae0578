package intelligence

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/document"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf/extraction"
	"github.com/a3tai/mcp-pdf-renewal/internal/testutil"
)

func loadPages(t *testing.T, texts ...string) *document.Document {
	t.Helper()
	doc, err := document.Load(testutil.TextPages(t, texts...))
	require.NoError(t, err)
	return doc
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s %d", s, i+1)
	}
	return out
}

func TestClassifySplit(t *testing.T) {
	tests := []struct {
		name  string
		pages []string
		want  int
	}{
		{
			name:  "signature on second of five pages",
			pages: []string{"Order form overview", "Authorized Signature: ________", "Terms", "Addendum A", "Addendum B"},
			want:  2,
		},
		{
			name:  "keywords are case insensitive",
			pages: []string{"PLEASE SIGN HERE", "Terms", "More terms", "Appendix"},
			want:  1,
		},
		{
			name:  "two pages without keywords fall back to total",
			pages: []string{"Pricing", "Terms"},
			want:  2,
		},
		{
			name:  "no keywords in a long package falls back to three",
			pages: repeat("Plain page", 6),
			want:  3,
		},
		{
			name:  "single page without keywords",
			pages: []string{"Just one page"},
			want:  1,
		},
		{
			name:  "underscored signature line",
			pages: []string{"Pricing", "Terms", "x_____________ customer"},
			want:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := loadPages(t, tt.pages...)

			split, err := NewDefaultSignatureClassifier().ClassifySplit(context.Background(), doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, split)
		})
	}
}

func TestClassifySplit_SignatureBeyondWindowUsesFallback(t *testing.T) {
	pages := repeat("Plain page", 11)
	pages = append(pages, "Witness signature")
	doc := loadPages(t, pages...)

	report, err := NewDefaultSignatureClassifier().Classify(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Split)
	assert.False(t, report.Detected)
	assert.Equal(t, 12, report.TotalPages)
	assert.Len(t, report.Scores, DefaultScanWindow)
}

func TestClassifySplit_ResultRange(t *testing.T) {
	for total := 1; total <= 12; total++ {
		doc := loadPages(t, repeat("page", total)...)

		split, err := NewDefaultSignatureClassifier().ClassifySplit(context.Background(), doc)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, split, 1)
		assert.LessOrEqual(t, split, min(DefaultScanWindow, total))
	}
}

func TestClassifySplit_CustomRules(t *testing.T) {
	doc := loadPages(t, "intro", "intro", "Accepted by the customer", "addendum", "addendum")

	rules := SignatureRules{Keywords: []string{"Accepted By"}, ScanWindow: 2, FallbackPages: 4}
	split, err := NewSignatureClassifier(rules, nil).ClassifySplit(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 4, split, "page 3 lies outside a window of two")

	rules.ScanWindow = 5
	split, err = NewSignatureClassifier(rules, nil).ClassifySplit(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 3, split)
}

// flakyExtractor fails on selected pages and delegates otherwise
type flakyExtractor struct {
	failing map[int]bool
	inner   PageExtractor
}

func (f flakyExtractor) ExtractPage(ctx context.Context, data []byte, index int) (*extraction.PageText, error) {
	if f.failing[index] {
		return nil, errors.New("boom")
	}
	return f.inner.ExtractPage(ctx, data, index)
}

func TestClassify_ExtractionFailureIsNoMatch(t *testing.T) {
	doc := loadPages(t, "signature", "signature here too", "terms")

	ex := flakyExtractor{failing: map[int]bool{0: true}, inner: extraction.NewDefaultExtractor()}
	report, err := NewSignatureClassifier(DefaultRuleSet().Signature, ex).Classify(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Split)
	require.Len(t, report.Scores, 2)
	assert.NotEmpty(t, report.Scores[0].Err)
	assert.False(t, report.Scores[0].Matched())
	assert.True(t, report.Scores[1].Matched())
}

func TestClassify_Cancelled(t *testing.T) {
	doc := loadPages(t, "a", "b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDefaultSignatureClassifier().ClassifySplit(ctx, doc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScorePages(t *testing.T) {
	doc := loadPages(t, "Notary seal", "nothing", "date signed")

	scores, err := NewDefaultSignatureClassifier().ScorePages(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.ElementsMatch(t, []string{"notary", "seal"}, scores[0].Hits)
	assert.Empty(t, scores[1].Hits)
	assert.Equal(t, []string{"date signed"}, scores[2].Hits)
	assert.Equal(t, 3, scores[2].Page)
}

func TestMatch(t *testing.T) {
	sc := NewDefaultSignatureClassifier()

	assert.Empty(t, sc.Match("pricing and terms"))
	assert.Equal(t, []string{"sign below"}, sc.Match("Please SIGN BELOW"))
	assert.Contains(t, sc.Match("Authorized Signature"), "authorized signature")
	assert.Contains(t, sc.Match("Authorized Signature"), "signature")
}
