package intelligence

import (
	"fmt"
	"regexp"
	"strings"
)

// LabelExtractor pulls a labelled value, such as a company name, out of
// page text using ordered patterns
type LabelExtractor struct {
	patterns []*regexp.Regexp
}

// NewLabelExtractor compiles patterns in order. Each pattern should have
// a capture group; patterns without one yield the whole match.
func NewLabelExtractor(patterns []string) (*LabelExtractor, error) {
	le := &LabelExtractor{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid label pattern %q: %w", p, err)
		}
		le.patterns = append(le.patterns, re)
	}
	return le, nil
}

// Extract returns the trimmed capture of the first pattern that matches
// text, or UnknownLabel. A match whose capture trims to nothing does not
// count, and the next pattern is tried.
func (le *LabelExtractor) Extract(text string) string {
	for _, re := range le.patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value := m[0]
		if len(m) > 1 {
			value = m[1]
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return UnknownLabel
}

// ExtractLabel is a one-shot Extract. Invalid patterns are skipped.
func ExtractLabel(text string, patterns []string) string {
	for _, p := range patterns {
		le, err := NewLabelExtractor([]string{p})
		if err != nil {
			continue
		}
		if v := le.Extract(text); v != UnknownLabel {
			return v
		}
	}
	return UnknownLabel
}
