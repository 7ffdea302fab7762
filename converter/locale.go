// Package linkconverter turns translated-content archive entries into
// editor URLs and aggregates them across archives.
package linkconverter

import (
	"strings"

	"github.com/go-i2p/linksgo/config"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Detector maps a path to a locale code using an ordered pattern list.
type Detector struct {
	patterns []config.LocalePattern
}

// NewDetector returns a Detector that evaluates patterns in the given order.
func NewDetector(patterns []config.LocalePattern) *Detector {
	return &Detector{patterns: append([]config.LocalePattern(nil), patterns...)}
}

// Detect returns the code of the first pattern contained in path. The second
// result is false when no pattern matches, which is the common case for
// entries that belong to no target locale.
func (d *Detector) Detect(path string) (string, bool) {
	for _, p := range d.patterns {
		if strings.Contains(path, p.Pattern) {
			return p.Code, true
		}
	}
	return "", false
}

// Matches returns the codes of every pattern contained in path, in pattern
// order. More than one result means Detect resolved an ambiguity by order.
func (d *Detector) Matches(path string) []string {
	var codes []string
	for _, p := range d.patterns {
		if strings.Contains(path, p.Pattern) {
			codes = append(codes, p.Code)
		}
	}
	return codes
}

// Codes returns the distinct locale codes in pattern order.
func (d *Detector) Codes() []string {
	seen := make(map[string]bool)
	var codes []string
	for _, p := range d.patterns {
		if !seen[p.Code] {
			seen[p.Code] = true
			codes = append(codes, p.Code)
		}
	}
	return codes
}

// LocaleName returns the English display name for a locale code, e.g.
// "Korean" for "ko". Codes that golang.org/x/text cannot parse or name are
// returned unchanged.
//
//	LocaleName("ko")    → "Korean"
//	LocaleName("pt_BR") → "Brazilian Portuguese"
//	LocaleName("xx-?")  → "xx-?"
func LocaleName(code string) string {
	tag, err := language.Parse(strings.ReplaceAll(code, "_", "-"))
	if err != nil {
		return code
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return code
}
