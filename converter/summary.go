package linkconverter

import (
	"strings"

	"github.com/go-i2p/linksgo/config"
)

// RootSection labels pages that sit directly under the locale marker.
const RootSection = "(root)"

// SectionCount is the number of Links below one top-level section.
type SectionCount struct {
	Section string `json:"section" yaml:"section"`
	Count   int    `json:"count" yaml:"count"`
}

// LocaleSummary aggregates one locale of a LinkSet.
type LocaleSummary struct {
	Code     string         `json:"code" yaml:"code"`
	Name     string         `json:"name" yaml:"name"`
	Count    int            `json:"count" yaml:"count"`
	Sections []SectionCount `json:"sections" yaml:"sections"`
}

// Summary aggregates a LinkSet per locale and section.
type Summary struct {
	Locales []LocaleSummary `json:"locales" yaml:"locales"`
	Total   int             `json:"total" yaml:"total"`
}

// Summarize counts the Links of set per locale, in set order, and per
// section, in first-seen order. The section of a Link is the path segment
// that follows its locale marker.
func Summarize(m config.Mapping, set *LinkSet) Summary {
	var s Summary
	for _, code := range set.Locales() {
		links := set.Links(code)
		ls := LocaleSummary{Code: code, Name: LocaleName(code), Count: len(links)}
		index := make(map[string]int)
		for _, l := range links {
			section := Section(m, l)
			i, ok := index[section]
			if !ok {
				i = len(ls.Sections)
				index[section] = i
				ls.Sections = append(ls.Sections, SectionCount{Section: section})
			}
			ls.Sections[i].Count++
		}
		s.Locales = append(s.Locales, ls)
		s.Total += ls.Count
	}
	return s
}

// Section returns the top-level section of l below its locale marker, or
// RootSection when the page is the marker's direct child. Paths that do not
// carry the marker fall back to their first segment.
func Section(m config.Mapping, l Link) string {
	marker := m.MarkerPath(m.TargetMarker(l.Locale)) + "/"
	p := strings.Trim(l.StoragePath, "/")
	if i := strings.Index(p, marker); i >= 0 {
		rest := p[i+len(marker):]
		if j := strings.Index(rest, "/"); j >= 0 {
			return rest[:j]
		}
		return RootSection
	}
	if j := strings.Index(p, "/"); j >= 0 {
		return p[:j]
	}
	return RootSection
}
