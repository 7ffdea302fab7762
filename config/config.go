// Package config holds the settings shared by every linksgo command.
//
// Conf is the flat structure viper unmarshals flags, environment variables and
// the optional config file into. Mapping is the validated, immutable view of
// the conversion settings that the converter packages consume.
package config

import (
	"net/url"
	"strings"

	"gitlab.com/tozd/go/errors"
)

type Conf struct {
	// conversion
	AemHost        string
	SourceMarker   string
	SourceLang     string
	LocalePatterns []string
	EditorPrefix   string
	SourceExt      string
	TargetExt      string
	ContentPrefix  string
	Exclude        []string
	SpacPaths      []string
	Policy         string
	Workers        int
	Verbose        bool

	// reports
	BuildDir   string
	Formats    []string
	Template   string
	JobID      string
	Submission string
	URLs       []string

	// serve / fetch
	ReportDir string
	StatsFile string
	Host      string
	Port      string
	I2P       bool
	SamAddr   string
	URL       string
	OutDir    string
}

// LocalePattern maps a path fragment (e.g. "ko-KR") to a locale code ("ko").
type LocalePattern struct {
	Pattern string `json:"pattern" yaml:"pattern"`
	Code    string `json:"code" yaml:"code"`
}

// Mapping is the immutable conversion configuration for one pipeline run.
type Mapping struct {
	Host          string
	SourceMarker  string
	Patterns      []LocalePattern
	EditorPrefix  string
	SourceExt     string
	TargetExt     string
	Sentinel      string
	Separator     string
	ContentPrefix string
	SpacPaths     map[string]string
}

const (
	DefaultHost          = "https://prod-author.illumina.com"
	DefaultSourceMarker  = "language-master#en"
	DefaultEditorPrefix  = "/editor.html/"
	DefaultSourceExt     = ".xml"
	DefaultTargetExt     = ".html"
	DefaultSentinel      = "#"
	DefaultContentPrefix = "#content"
)

// DefaultLocalePatterns returns the stock pattern list in evaluation order.
func DefaultLocalePatterns() []string {
	return []string{"ko-KR=ko", "ja-JP=ja"}
}

// DefaultSpacPaths returns the stock SPAC quick-link paths.
func DefaultSpacPaths() []string {
	return []string{"ko=/spac/ko_KR/", "ja=/spac/ja_JP/"}
}

// DefaultExclude returns glob patterns for archive noise that is never content.
func DefaultExclude() []string {
	return []string{"**/__MACOSX/**", "**/.DS_Store", "**/Thumbs.db"}
}

// Default returns a Conf holding every stock setting.
func Default() *Conf {
	return &Conf{
		AemHost:        DefaultHost,
		SourceMarker:   DefaultSourceMarker,
		LocalePatterns: DefaultLocalePatterns(),
		EditorPrefix:   DefaultEditorPrefix,
		SourceExt:      DefaultSourceExt,
		TargetExt:      DefaultTargetExt,
		ContentPrefix:  DefaultContentPrefix,
		Exclude:        DefaultExclude(),
		SpacPaths:      DefaultSpacPaths(),
		Policy:         "latest",
		Workers:        1,
		BuildDir:       "build",
		Formats:        []string{"html", "json"},
		ReportDir:      "build",
		StatsFile:      "build/stats.json",
		Host:           "127.0.0.1",
		Port:           "9797",
		OutDir:         "build",
	}
}

// DefaultMapping returns a validated Mapping built from the stock settings.
func DefaultMapping() Mapping {
	patterns, _ := ParseLocalePatterns(DefaultLocalePatterns())
	spac, _ := ParsePairs(DefaultSpacPaths())
	return Mapping{
		Host:          DefaultHost,
		SourceMarker:  DefaultSourceMarker,
		Patterns:      patterns,
		EditorPrefix:  DefaultEditorPrefix,
		SourceExt:     DefaultSourceExt,
		TargetExt:     DefaultTargetExt,
		Sentinel:      DefaultSentinel,
		Separator:     DefaultSentinel,
		ContentPrefix: DefaultContentPrefix,
		SpacPaths:     spac,
	}
}

// ParseLocalePatterns converts "pattern=code" strings into LocalePatterns,
// preserving order. A value may itself hold several comma-separated pairs, as
// happens when the list arrives through an environment variable.
func ParseLocalePatterns(raw []string) ([]LocalePattern, error) {
	var patterns []LocalePattern
	seen := make(map[string]bool)
	for _, item := range splitItems(raw) {
		pattern, code, ok := strings.Cut(item, "=")
		pattern, code = strings.TrimSpace(pattern), strings.TrimSpace(code)
		if !ok || pattern == "" || code == "" {
			return nil, errors.Errorf("locale pattern %q: want pattern=code", item)
		}
		if seen[pattern] {
			return nil, errors.Errorf("locale pattern %q: duplicate pattern", pattern)
		}
		seen[pattern] = true
		patterns = append(patterns, LocalePattern{Pattern: pattern, Code: code})
	}
	return patterns, nil
}

// ParsePairs converts "key=value" strings into a map. Later keys overwrite
// earlier ones.
func ParsePairs(raw []string) (map[string]string, error) {
	pairs := make(map[string]string)
	for _, item := range splitItems(raw) {
		key, value, ok := strings.Cut(item, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" {
			return nil, errors.Errorf("pair %q: want key=value", item)
		}
		pairs[key] = value
	}
	return pairs, nil
}

func splitItems(raw []string) []string {
	var items []string
	for _, r := range raw {
		for _, part := range strings.Split(r, ",") {
			if part = strings.TrimSpace(part); part != "" {
				items = append(items, part)
			}
		}
	}
	return items
}

// Mapping converts the flat settings into a validated Mapping.
func (c *Conf) Mapping() (Mapping, error) {
	patterns, err := ParseLocalePatterns(c.LocalePatterns)
	if err != nil {
		return Mapping{}, errors.Errorf("parsing locale patterns: %w", err)
	}
	spac, err := ParsePairs(c.SpacPaths)
	if err != nil {
		return Mapping{}, errors.Errorf("parsing spac paths: %w", err)
	}
	marker := c.SourceMarker
	if c.SourceLang != "" {
		// A bare source language replaces the locale segment of the marker.
		marker = Mapping{SourceMarker: marker, Separator: DefaultSentinel}.TargetMarker(c.SourceLang)
	}
	m := Mapping{
		Host:          c.AemHost,
		SourceMarker:  marker,
		Patterns:      patterns,
		EditorPrefix:  c.EditorPrefix,
		SourceExt:     c.SourceExt,
		TargetExt:     c.TargetExt,
		Sentinel:      DefaultSentinel,
		Separator:     DefaultSentinel,
		ContentPrefix: c.ContentPrefix,
		SpacPaths:     spac,
	}
	if err := m.Validate(); err != nil {
		return Mapping{}, errors.Errorf("validating config: %w", err)
	}
	return m, nil
}

// Validate reports the first setting that would make conversion meaningless.
func (m Mapping) Validate() error {
	u, err := url.Parse(m.Host)
	if err != nil {
		return errors.Errorf("aemhost %q: %w", m.Host, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.Errorf("aemhost %q: must be an absolute URL", m.Host)
	}
	if m.SourceMarker == "" {
		return errors.New("sourcemarker is required")
	}
	if len(m.Patterns) == 0 {
		return errors.New("at least one locale pattern is required")
	}
	if m.Sentinel == "" || m.Separator == "" {
		return errors.New("sentinel and separator are required")
	}
	if m.SourceExt == "" || m.TargetExt == "" {
		return errors.New("sourceext and targetext are required")
	}
	return nil
}

// TargetMarker substitutes code for the locale segment of SourceMarker. The
// locale segment is the part after the last separator, so with separator "#"
// the marker "language-master#en" becomes "language-master#ko" for "ko". A
// marker without a separator is replaced by the code itself.
func (m Mapping) TargetMarker(code string) string {
	i := strings.LastIndex(m.SourceMarker, m.Separator)
	if i < 0 || m.Separator == "" {
		return code
	}
	return m.SourceMarker[:i+len(m.Separator)] + code
}

// SourceLocale returns the locale segment of SourceMarker ("en").
func (m Mapping) SourceLocale() string {
	i := strings.LastIndex(m.SourceMarker, m.Separator)
	if i < 0 || m.Separator == "" {
		return m.SourceMarker
	}
	return m.SourceMarker[i+len(m.Separator):]
}

// MarkerPath renders a marker with path separators, as it appears inside a
// storage path ("language-master#ko" becomes "language-master/ko").
func (m Mapping) MarkerPath(marker string) string {
	return strings.ReplaceAll(marker, m.Separator, "/")
}
