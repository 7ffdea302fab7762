package linkconverter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	m := testMapping()
	set := NewLinkSet()
	for _, l := range []Link{
		{StoragePath: "content/language-master/ko/products/a.html", Locale: "ko"},
		{StoragePath: "content/language-master/ko/support/b.html", Locale: "ko"},
		{StoragePath: "content/language-master/ko/products/c.html", Locale: "ko"},
		{StoragePath: "content/language-master/ko/index.html", Locale: "ko"},
		{StoragePath: "content/language-master/ja/products/a.html", Locale: "ja"},
	} {
		set.add(l, PolicyLatestWins)
	}

	s := Summarize(m, set)
	assert.Equal(t, 5, s.Total)
	assert.Equal(t, []LocaleSummary{
		{Code: "ko", Name: "Korean", Count: 4, Sections: []SectionCount{
			{Section: "products", Count: 2},
			{Section: "support", Count: 1},
			{Section: RootSection, Count: 1},
		}},
		{Code: "ja", Name: "Japanese", Count: 1, Sections: []SectionCount{
			{Section: "products", Count: 1},
		}},
	}, s.Locales)
}

func TestSection_WithoutMarker(t *testing.T) {
	m := testMapping()
	assert.Equal(t, "other", Section(m, Link{StoragePath: "other/page.html", Locale: "ko"}))
	assert.Equal(t, RootSection, Section(m, Link{StoragePath: "page.html", Locale: "ko"}))
}
