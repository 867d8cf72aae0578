package intelligence

// RuleSet is the on-disk form of the classification and labelling rules.
// It is read from TOML; any section left empty keeps the defaults.
type RuleSet struct {
	Version     string            `toml:"version" json:"version"`
	Description string            `toml:"description,omitempty" json:"description,omitempty"`
	Signature   SignatureRules    `toml:"signature" json:"signature"`
	Labels      []LabelRule       `toml:"labels" json:"labels,omitempty"`
	Metadata    map[string]string `toml:"metadata,omitempty" json:"metadata,omitempty"`
}

// SignatureRules configures signature page detection
type SignatureRules struct {
	// Keywords are matched as lower-case substrings of the page text
	Keywords []string `toml:"keywords" json:"keywords"`
	// Replace drops the default lexicon instead of extending it
	Replace bool `toml:"replace" json:"replace"`
	// ScanWindow is the number of leading pages examined
	ScanWindow int `toml:"scan_window" json:"scan_window"`
	// FallbackPages is the split used when no page matches
	FallbackPages int `toml:"fallback_pages" json:"fallback_pages"`
}

// LabelRule is one ordered label pattern. The first capture group is the value.
type LabelRule struct {
	Name    string `toml:"name" json:"name"`
	Pattern string `toml:"pattern" json:"pattern"`
}

// PageScore lists the signature keywords found on a page
type PageScore struct {
	Page int      `json:"page"` // 1-based
	Hits []string `json:"hits,omitempty"`
	// Err is set when the page text could not be extracted
	Err string `json:"error,omitempty"`
}

// Matched reports whether any keyword was found
func (p PageScore) Matched() bool {
	return len(p.Hits) > 0
}

// SplitReport is the outcome of classifying an old package
type SplitReport struct {
	Split      int         `json:"split"` // 1-based number of leading form pages
	TotalPages int         `json:"total_pages"`
	Detected   bool        `json:"detected"` // false when the fallback was used
	Scores     []PageScore `json:"scores"`
}
