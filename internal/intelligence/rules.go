package intelligence

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// DefaultScanWindow is how many leading pages are searched for a signature
	DefaultScanWindow = 10
	// DefaultFallbackPages is the form length assumed when none is found
	DefaultFallbackPages = 3

	// UnknownLabel is returned when no label pattern matches
	UnknownLabel = "Unknown"
)

// DefaultSignatureKeywords returns the built-in signature lexicon
func DefaultSignatureKeywords() []string {
	return []string{
		"signature", "sign here", "authorized signature",
		"date signed", "witness", "notary", "seal",
		"x_____", "x____", "____x____", "sign below",
	}
}

// DefaultLabelPatterns returns the ordered company name patterns. Labels are
// case sensitive.
func DefaultLabelPatterns() []string {
	return []string{
		`Company\s*Name\s*:\s*([^\n]+)`,
		`Company:\s*([^\n]+)`,
		`Bill\s*To:\s*([^\n]+)`,
	}
}

// DefaultRuleSet returns the built-in rules
func DefaultRuleSet() RuleSet {
	rules := RuleSet{
		Version:     "1.0",
		Description: "signature page lexicon and company label patterns",
		Signature: SignatureRules{
			Keywords:      DefaultSignatureKeywords(),
			ScanWindow:    DefaultScanWindow,
			FallbackPages: DefaultFallbackPages,
		},
	}
	for i, p := range DefaultLabelPatterns() {
		rules.Labels = append(rules.Labels, LabelRule{Name: fmt.Sprintf("company_%d", i+1), Pattern: p})
	}
	return rules
}

// ParseRuleSet decodes TOML rules and merges them over the defaults
func ParseRuleSet(data []byte) (RuleSet, error) {
	var custom RuleSet
	if err := toml.Unmarshal(data, &custom); err != nil {
		return RuleSet{}, fmt.Errorf("failed to parse rules: %w", err)
	}

	rules := DefaultRuleSet().Merge(custom)
	if err := rules.Validate(); err != nil {
		return RuleSet{}, err
	}
	return rules, nil
}

// LoadRuleSet reads a TOML rules file. An empty path yields the defaults.
func LoadRuleSet(path string) (RuleSet, error) {
	if path == "" {
		return DefaultRuleSet(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRuleSet(data)
}

// Merge overlays custom on r. Signature keywords extend the lexicon unless
// custom asks to replace it; label rules, when given, replace the defaults.
func (r RuleSet) Merge(custom RuleSet) RuleSet {
	out := r
	if custom.Version != "" {
		out.Version = custom.Version
	}
	if custom.Description != "" {
		out.Description = custom.Description
	}

	if custom.Signature.Replace {
		out.Signature.Keywords = nil
	}
	out.Signature.Keywords = mergeKeywords(out.Signature.Keywords, custom.Signature.Keywords)
	if custom.Signature.ScanWindow > 0 {
		out.Signature.ScanWindow = custom.Signature.ScanWindow
	}
	if custom.Signature.FallbackPages > 0 {
		out.Signature.FallbackPages = custom.Signature.FallbackPages
	}

	if len(custom.Labels) > 0 {
		out.Labels = append([]LabelRule(nil), custom.Labels...)
	}

	if len(custom.Metadata) > 0 {
		out.Metadata = make(map[string]string, len(r.Metadata)+len(custom.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
		for k, v := range custom.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// mergeKeywords appends extra to base, lower-cased and without duplicates
func mergeKeywords(base, extra []string) []string {
	seen := make(map[string]bool, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, k := range append(append([]string(nil), base...), extra...) {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// LabelPatterns returns the label patterns in order
func (r RuleSet) LabelPatterns() []string {
	out := make([]string, 0, len(r.Labels))
	for _, l := range r.Labels {
		out = append(out, l.Pattern)
	}
	return out
}

// Validate checks that the rules can drive the classifier
func (r RuleSet) Validate() error {
	if len(r.Signature.Keywords) == 0 {
		return fmt.Errorf("rules must define at least one signature keyword")
	}
	if r.Signature.ScanWindow <= 0 {
		return fmt.Errorf("scan_window must be positive, got %d", r.Signature.ScanWindow)
	}
	if r.Signature.FallbackPages <= 0 {
		return fmt.Errorf("fallback_pages must be positive, got %d", r.Signature.FallbackPages)
	}
	if _, err := NewLabelExtractor(r.LabelPatterns()); err != nil {
		return err
	}
	return nil
}
