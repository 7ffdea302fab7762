// Package linkreport renders conversion outcomes as HTML pages and JSON/YAML
// exports, and reads generated pages back for directory listings.
package linkreport

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-i2p/linksgo/config"
	linkconverter "github.com/go-i2p/linksgo/converter"
	"github.com/yosssi/gohtml"
	"gitlab.com/tozd/go/errors"
)

//go:embed templates/report.html
var defaultTemplate string

// TimeFormat is used for the generation time shown on a page.
const TimeFormat = "2006-01-02 15:04:05"

// Meta describes one conversion run.
type Meta struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	JobID      string    `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Submission string    `json:"submission,omitempty" yaml:"submission,omitempty"`
	Sources    []string  `json:"sources" yaml:"sources"`
	Policy     string    `json:"policy" yaml:"policy"`
	Generated  time.Time `json:"generated" yaml:"generated"`
}

// SourceLabel names the run's input: the single archive's base name, or
// "N files" for a combined run.
func (m Meta) SourceLabel() string {
	switch len(m.Sources) {
	case 0:
		return "no archives"
	case 1:
		return filepath.Base(m.Sources[0])
	default:
		return fmt.Sprintf("%d files", len(m.Sources))
	}
}

// FileName returns the report file name for locale code:
// links_<code>_<stem>.html for a single archive and
// links_<code>_combined_<n>files.html otherwise.
func FileName(meta Meta, code string) string {
	if len(meta.Sources) == 1 {
		stem := linkconverter.ArchiveStem(filepath.Base(meta.Sources[0]))
		return fmt.Sprintf("links_%s_%s.html", safeName(code), safeName(stem))
	}
	return fmt.Sprintf("links_%s_combined_%dfiles.html", safeName(code), len(meta.Sources))
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

// PageRow is one table row with the quick links for its Link.
type PageRow struct {
	Cells      []linkconverter.Cell
	QuickLinks []linkconverter.QuickLink
	Link       linkconverter.Link
}

// Page is the data a report template is executed with.
type Page struct {
	Title      string
	Locale     string
	LocaleName string
	Meta       Meta
	Columns    []string
	Rows       []PageRow
	Warnings   []string
	Total      int
	Generated  string
}

// Renderer turns one locale of an Outcome into an HTML page.
type Renderer struct {
	m       config.Mapping
	grouper *linkconverter.Grouper
	tmpl    *template.Template
}

// NewRenderer parses templateFile, or the embedded template when templateFile
// is empty.
func NewRenderer(m config.Mapping, templateFile string) (*Renderer, error) {
	text := defaultTemplate
	if templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return nil, errors.Errorf("reading template: %w", err)
		}
		text = string(data)
	}
	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(text)
	if err != nil {
		return nil, errors.Errorf("parsing template: %w", err)
	}
	return &Renderer{m: m, grouper: linkconverter.NewGrouper(m), tmpl: tmpl}, nil
}

// Page builds the template data for locale code.
func (r *Renderer) Page(outcome *linkconverter.Outcome, code string, meta Meta) Page {
	links := outcome.Links.Links(code)
	table := r.grouper.Group(links)
	name := linkconverter.LocaleName(code)
	p := Page{
		Title:      fmt.Sprintf("AEM %s Links - %s", name, meta.SourceLabel()),
		Locale:     code,
		LocaleName: name,
		Meta:       meta,
		Columns:    table.Columns,
		Warnings:   outcome.Warnings,
		Total:      len(links),
		Generated:  meta.Generated.Format(TimeFormat),
	}
	for _, row := range table.Rows {
		p.Rows = append(p.Rows, PageRow{
			Cells:      row.Cells,
			QuickLinks: linkconverter.QuickLinks(r.m, row.Link),
			Link:       row.Link,
		})
	}
	return p
}

// Render executes the template for p and writes the formatted page to w.
// Nothing is written when the template fails.
func (r *Renderer) Render(w io.Writer, p Page) error {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, p); err != nil {
		return errors.Errorf("executing template: %w", err)
	}
	if _, err := io.WriteString(w, gohtml.Format(buf.String())); err != nil {
		return errors.Errorf("writing report: %w", err)
	}
	return nil
}

// RenderLocale renders locale code of outcome into memory.
func (r *Renderer) RenderLocale(outcome *linkconverter.Outcome, code string, meta Meta) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, r.Page(outcome, code, meta)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteReports writes one page per locale of outcome into dir and returns the
// written paths in locale order.
func (r *Renderer) WriteReports(dir string, outcome *linkconverter.Outcome, meta Meta) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Errorf("creating %s: %w", dir, err)
	}
	var written []string
	for _, code := range outcome.Links.Locales() {
		data, err := r.RenderLocale(outcome, code, meta)
		if err != nil {
			return written, errors.Errorf("rendering %s: %w", code, err)
		}
		file := filepath.Join(dir, FileName(meta, code))
		if err := os.WriteFile(file, data, 0o644); err != nil {
			return written, errors.Errorf("writing %s: %w", file, err)
		}
		written = append(written, file)
	}
	return written, nil
}
