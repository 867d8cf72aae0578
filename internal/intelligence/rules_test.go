package intelligence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRuleSet(t *testing.T) {
	rules := DefaultRuleSet()

	require.NoError(t, rules.Validate())
	assert.Equal(t, DefaultScanWindow, rules.Signature.ScanWindow)
	assert.Equal(t, DefaultFallbackPages, rules.Signature.FallbackPages)
	assert.Len(t, rules.Signature.Keywords, 11)
	assert.Equal(t, DefaultLabelPatterns(), rules.LabelPatterns())
}

func TestParseRuleSet(t *testing.T) {
	data := []byte(`
version = "2.0"

[signature]
keywords = ["Accepted By", "signature"]
scan_window = 5

[[labels]]
name = "customer"
pattern = 'Customer:\s*([^\n]+)'
`)

	rules, err := ParseRuleSet(data)
	require.NoError(t, err)

	assert.Equal(t, "2.0", rules.Version)
	assert.Equal(t, 5, rules.Signature.ScanWindow)
	assert.Equal(t, DefaultFallbackPages, rules.Signature.FallbackPages)
	assert.Contains(t, rules.Signature.Keywords, "accepted by")
	assert.Contains(t, rules.Signature.Keywords, "notary", "custom keywords extend the defaults")
	assert.Len(t, rules.Signature.Keywords, 12, "duplicates are dropped")
	assert.Equal(t, []string{`Customer:\s*([^\n]+)`}, rules.LabelPatterns())
}

func TestParseRuleSet_ReplaceLexicon(t *testing.T) {
	rules, err := ParseRuleSet([]byte(`
[signature]
replace = true
keywords = ["firma"]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"firma"}, rules.Signature.Keywords)
}

func TestParseRuleSet_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad toml", "[signature\nkeywords = "},
		{"empty lexicon", "[signature]\nreplace = true\n"},
		{"bad label regex", "[[labels]]\nname = \"x\"\npattern = \"([\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRuleSet([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadRuleSet(t *testing.T) {
	rules, err := LoadRuleSet("")
	require.NoError(t, err)
	assert.Equal(t, DefaultRuleSet(), rules)

	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte("[signature]\nfallback_pages = 2\n"), 0o600))

	rules, err = LoadRuleSet(path)
	require.NoError(t, err)
	assert.Equal(t, 2, rules.Signature.FallbackPages)

	_, err = LoadRuleSet(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
