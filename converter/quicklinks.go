package linkconverter

import (
	"strings"

	"github.com/go-i2p/linksgo/config"
)

// QuickLink is a labelled shortcut to a sibling version of a page.
type QuickLink struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

// QuickLinks returns the shortcuts shown next to each report row: the source
// locale page, the page itself, and the SPAC page when a SPAC path is
// configured for the Link's locale.
//
// For a Korean Link ending in "/language-master/ko/products/x.html" these are
// "lm-en" (".../language-master/en/products/x.html"), "lm-ko" and "spac-ko"
// (".../spac/ko_KR/products/x.html").
func QuickLinks(m config.Mapping, l Link) []QuickLink {
	target := "/" + m.MarkerPath(m.TargetMarker(l.Locale)) + "/"
	source := "/" + m.MarkerPath(m.SourceMarker) + "/"
	links := []QuickLink{
		{Label: "lm-" + m.SourceLocale(), URL: strings.Replace(l.URL, target, source, 1)},
		{Label: "lm-" + l.Locale, URL: l.URL},
	}
	if spac, ok := m.SpacPaths[l.Locale]; ok && spac != "" {
		spac = "/" + strings.Trim(spac, "/") + "/"
		links = append(links, QuickLink{Label: "spac-" + l.Locale, URL: strings.Replace(l.URL, target, spac, 1)})
	}
	return links
}
