package linkconverter

import (
	"fmt"
	"strings"

	"github.com/go-i2p/linksgo/config"
)

// Cell is one table cell. Only the deepest occupied cell of a row carries a
// URL.
type Cell struct {
	Text string `json:"text" yaml:"text"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// IsLink reports whether c is the navigable leaf cell of its row.
func (c Cell) IsLink() bool { return c.URL != "" }

// Row is one table row together with the Link it was built from.
type Row struct {
	Cells []Cell `json:"cells" yaml:"cells"`
	Link  Link   `json:"link" yaml:"link"`
}

// Table is the hierarchical view of one locale's Links.
type Table struct {
	Columns []string `json:"columns" yaml:"columns"`
	Rows    []Row    `json:"rows" yaml:"rows"`
}

// Grouper lays out Links as rows of path segments.
type Grouper struct {
	// TargetExt is stripped from the last segment.
	TargetExt string
	// StartLevel is the number of the first column; the dropped root
	// segment is level 1.
	StartLevel  int
	LevelPrefix string
}

// NewGrouper returns a Grouper for m's target extension.
func NewGrouper(m config.Mapping) *Grouper {
	return &Grouper{TargetExt: m.TargetExt, StartLevel: 2, LevelPrefix: "Level"}
}

// Segments splits a storage path into its levels below the root label:
// "content/language-master/ko/products/x.html" gives
// ["language-master", "ko", "products", "x"].
func (g *Grouper) Segments(storagePath string) []string {
	p := strings.Trim(storagePath, "/")
	if g.TargetExt != "" {
		p = strings.TrimSuffix(p, g.TargetExt)
	}
	parts := strings.Split(p, "/")
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

// Group builds one row per Link in input order. The table has one column per
// level of the deepest path; shorter paths leave trailing cells empty.
func (g *Grouper) Group(links []Link) Table {
	if len(links) == 0 {
		return Table{}
	}
	segments := make([][]string, len(links))
	depth := 0
	for i, l := range links {
		segments[i] = g.Segments(l.StoragePath)
		depth = max(depth, len(segments[i]))
	}

	t := Table{Columns: make([]string, depth), Rows: make([]Row, len(links))}
	for j := range depth {
		t.Columns[j] = fmt.Sprintf("%s %d", g.LevelPrefix, j+g.StartLevel)
	}
	for i, l := range links {
		parts := segments[i]
		cells := make([]Cell, depth)
		for j, seg := range parts {
			cells[j] = Cell{Text: seg}
		}
		if n := len(parts); n > 0 {
			cells[n-1].URL = l.URL
		}
		t.Rows[i] = Row{Cells: cells, Link: l}
	}
	return t
}
