package linkreport

import (
	"strconv"
	"strings"

	"github.com/anaskhan96/soup"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
)

// ErrNotReport is returned by Inspect for HTML that was not produced by a
// Renderer.
var ErrNotReport = errors.New("not a link report")

// Report is what Inspect reads back from a generated page.
type Report struct {
	Title  string
	Locale string
	RunID  string
	// Links is the count declared on the page body.
	Links  int
	Leaves []string
}

// Inspect parses a generated report page.
func Inspect(data []byte) (*Report, error) {
	doc := soup.HTMLParse(string(data))
	if doc.Error != nil {
		return nil, errors.Errorf("parsing report: %w", doc.Error)
	}
	body := doc.Find("body")
	if body.Error != nil {
		return nil, ErrNotReport
	}
	attrs := body.Attrs()
	locale, ok := attrs["data-locale"]
	if !ok {
		return nil, ErrNotReport
	}
	r := &Report{Locale: locale, RunID: attrs["data-run"]}
	if n, err := strconv.Atoi(attrs["data-links"]); err == nil {
		r.Links = n
	}
	if title := doc.Find("title"); title.Error == nil {
		r.Title = strings.TrimSpace(title.FullText())
	}
	r.Leaves = leafLinks(body.Pointer)
	return r, nil
}

// leafLinks walks n depth-first and collects the href of every anchor with
// class "leaf".
func leafLinks(n *html.Node) []string {
	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" && hasClass(n, "leaf") {
			for _, a := range n.Attr {
				if a.Key == "href" {
					hrefs = append(hrefs, a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return hrefs
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, f := range strings.Fields(a.Val) {
				if f == class {
					return true
				}
			}
		}
	}
	return false
}
