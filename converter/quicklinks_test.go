package linkconverter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuickLinks(t *testing.T) {
	m := testMapping()
	l := Link{
		URL:         "https://host.example/editor.html/content/language-master/ko/products/x.html",
		StoragePath: "content/language-master/ko/products/x.html",
		Locale:      "ko",
	}
	assert.Equal(t, []QuickLink{
		{Label: "lm-en", URL: "https://host.example/editor.html/content/language-master/en/products/x.html"},
		{Label: "lm-ko", URL: l.URL},
		{Label: "spac-ko", URL: "https://host.example/editor.html/content/spac/ko_KR/products/x.html"},
	}, QuickLinks(m, l))
}

func TestQuickLinks_NoSpacPath(t *testing.T) {
	m := testMapping()
	m.SpacPaths = map[string]string{}
	l := Link{URL: "https://host.example/editor.html/content/language-master/ja/x.html", Locale: "ja"}
	got := QuickLinks(m, l)
	assert.Len(t, got, 2)
	assert.Equal(t, "lm-en", got[0].Label)
	assert.Equal(t, "https://host.example/editor.html/content/language-master/en/x.html", got[0].URL)
	assert.Equal(t, "lm-ja", got[1].Label)
}
