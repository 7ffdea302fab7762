package linkreport

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/go-i2p/linksgo/config"
	linkconverter "github.com/go-i2p/linksgo/converter"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// LocaleLinks is the Links of one locale in LinkSet order.
type LocaleLinks struct {
	Code  string               `json:"code" yaml:"code"`
	Links []linkconverter.Link `json:"links" yaml:"links"`
}

// Export is the machine-readable form of a run.
type Export struct {
	Meta       Meta                         `json:"meta" yaml:"meta"`
	Success    bool                         `json:"success" yaml:"success"`
	Examined   int                          `json:"examined" yaml:"examined"`
	Failed     int                          `json:"failed" yaml:"failed"`
	Skipped    int                          `json:"skipped" yaml:"skipped"`
	Excluded   int                          `json:"excluded" yaml:"excluded"`
	Duplicates int                          `json:"duplicates" yaml:"duplicates"`
	Warnings   []string                     `json:"warnings" yaml:"warnings"`
	Archives   []linkconverter.ArchiveStats `json:"archives" yaml:"archives"`
	Summary    linkconverter.Summary        `json:"summary" yaml:"summary"`
	Locales    []LocaleLinks                `json:"locales" yaml:"locales"`
}

// NewExport captures outcome and meta.
func NewExport(m config.Mapping, outcome *linkconverter.Outcome, meta Meta) Export {
	e := Export{
		Meta:       meta,
		Success:    outcome.Success,
		Examined:   outcome.Examined,
		Failed:     outcome.Failed,
		Skipped:    outcome.Skipped,
		Excluded:   outcome.Excluded,
		Duplicates: outcome.Duplicates,
		Warnings:   append([]string{}, outcome.Warnings...),
		Archives:   outcome.Archives,
		Summary:    linkconverter.Summarize(m, outcome.Links),
	}
	for _, code := range outcome.Links.Locales() {
		e.Locales = append(e.Locales, LocaleLinks{Code: code, Links: outcome.Links.Links(code)})
	}
	return e
}

// JSON returns e as indented JSON.
func (e Export) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return nil, errors.Errorf("encoding json: %w", err)
	}
	return data, nil
}

// YAML returns e as YAML.
func (e Export) YAML() ([]byte, error) {
	data, err := yaml.Marshal(e)
	if err != nil {
		return nil, errors.Errorf("encoding yaml: %w", err)
	}
	return data, nil
}

// Write stores e in dir as links.json and/or links.yaml, depending on formats.
// Other format names are ignored.
func (e Export) Write(dir string, formats []string) ([]string, error) {
	var written []string
	for _, format := range formats {
		var (
			data []byte
			err  error
		)
		switch format {
		case "json":
			data, err = e.JSON()
		case "yaml":
			data, err = e.YAML()
		default:
			continue
		}
		if err != nil {
			return written, err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return written, errors.Errorf("creating %s: %w", dir, err)
		}
		file := filepath.Join(dir, "links."+format)
		if err := os.WriteFile(file, data, 0o644); err != nil {
			return written, errors.Errorf("writing %s: %w", file, err)
		}
		written = append(written, file)
	}
	return written, nil
}
