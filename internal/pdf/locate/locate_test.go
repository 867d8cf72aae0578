package locate

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pdferrors "github.com/a3tai/mcp-pdf-renewal/internal/pdf/errors"
	"github.com/a3tai/mcp-pdf-renewal/internal/testutil"
)

const needle = "terms of use and sale for businesses"

func packageFixture(t *testing.T) []byte {
	t.Helper()

	cover := testutil.TextPage("Order Form", "Company Name: Acme Corp")

	terms := testutil.Letter()
	terms.Lines = []testutil.Line{
		{Text: "Pricing summary", X: 72, Baseline: 720, Size: 14},
		{Text: "This order is governed by the Terms of Use and Sale", X: 72, Baseline: 300, Family: "Times", Size: 9},
		{Text: "for Businesses available online.", X: 72, Baseline: 288, Family: "Times", Size: 9},
	}

	again := testutil.TextPage("See terms of use and sale for businesses again")

	return testutil.MustBuild(t, cover, terms, again)
}

func TestLocate_FindsWrappedTextCaseInsensitively(t *testing.T) {
	data := packageFixture(t)

	region, found, err := NewLocator(nil).Locate(context.Background(), data, "Terms of Use and Sale for Businesses")
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, 1, region.Page, "first occurrence wins over the one on page 3")
	assert.Contains(t, normalize(region.Text), needle)

	require.NotNil(t, region.Font)
	assert.Equal(t, "Times-Roman", *region.Font)
	require.NotNil(t, region.Size)
	assert.InDelta(t, 9, *region.Size, 0.01)

	assert.InDelta(t, 72, region.Rect.X0, 0.5)
	assert.Less(t, region.Rect.Y0, 288.0)
	assert.Greater(t, region.Rect.Y1, 300.0)
	assert.False(t, region.Rect.IsEmpty())
}

func TestLocate_NotFound(t *testing.T) {
	data := packageFixture(t)

	region, found, err := NewLocator(nil).Locate(context.Background(), data, "master services agreement")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Region{}, region)
}

func TestLocate_EmptyNeedle(t *testing.T) {
	data := packageFixture(t)

	for _, n := range []string{"", "   ", "\n\t"} {
		_, found, err := NewLocator(nil).Locate(context.Background(), data, n)
		require.NoError(t, err)
		assert.False(t, found)
	}
}

func TestLocate_Malformed(t *testing.T) {
	_, found, err := NewLocator(nil).Locate(context.Background(), []byte("%PDF-garbage"), needle)
	require.Error(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, err, pdferrors.ErrMalformedDocument)
}

func TestLocateAll(t *testing.T) {
	data := packageFixture(t)
	loc := NewLocator(nil)

	tests := []struct {
		name     string
		needles  []string
		mode     MatchMode
		found    bool
		wantPage int
	}{
		{"any picks the first box holding any needle", []string{"not here", "company name"}, MatchAny, true, 0},
		{"any with no hits", []string{"nope", "nothing"}, MatchAny, false, 0},
		{"all with every needle present", []string{needle, "pricing summary"}, MatchAll, true, 1},
		{"all with a missing needle", []string{needle, "nope"}, MatchAll, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			region, found, err := loc.LocateAll(context.Background(), data, tt.needles, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.found, found)
			if tt.found {
				assert.Equal(t, tt.wantPage, region.Page)
			}
		})
	}
}

func TestLocateAll_UnionsSamePageHits(t *testing.T) {
	data := packageFixture(t)

	single, found, err := NewLocator(nil).Locate(context.Background(), data, needle)
	require.NoError(t, err)
	require.True(t, found)

	both, found, err := NewLocator(nil).LocateAll(context.Background(), data, []string{needle, "pricing summary"}, MatchAll)
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, single.Text, both.Text)
	assert.Greater(t, both.Rect.Y1, single.Rect.Y1, "region grows to cover the heading")
}

func TestParseMatchMode(t *testing.T) {
	for in, want := range map[string]MatchMode{"": MatchAny, "any": MatchAny, "ALL": MatchAll, " all ": MatchAll} {
		got, err := ParseMatchMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMatchMode("some")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "terms of use", normalize("  Terms\n of\tUSE "))
	assert.Equal(t, "", normalize(" \n "))
	assert.True(t, strings.HasSuffix(truncate(strings.Repeat("a", 100), 10), "..."))
}
