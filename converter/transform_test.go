package linkconverter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransform_ContentPath(t *testing.T) {
	tr := NewTransformer(testMapping())
	url, path, ok := tr.Transform("#content#language-master#en#products#x.xml", "ko")
	assert.True(t, ok)
	assert.Equal(t, "content/language-master/ko/products/x.html", path)
	assert.Equal(t, "https://host.example/editor.html/content/language-master/ko/products/x.html", url)
}

func TestTransform_Gates(t *testing.T) {
	tr := NewTransformer(testMapping())
	tests := []struct {
		name  string
		entry string
	}{
		{name: "no sentinel file", entry: "notes.txt"},
		{name: "missing source marker", entry: "#content#language-master#de#x.xml"},
		{name: "marker case differs", entry: "#content#Language-Master#en#x.xml"},
		{name: "no leading sentinel", entry: "content#language-master#en#x.xml"},
		{name: "wrong extension", entry: "#content#language-master#en#x.json"},
		{name: "extension case differs", entry: "#content#language-master#en#x.XML"},
		{name: "empty", entry: ""},
		{name: "invalid utf8", entry: "#content#language-master#en#\xff\xfe.xml"},
		{name: "marker without extension", entry: "#language-master#en"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, path, ok := tr.Transform(tt.entry, "ko")
			assert.False(t, ok)
			assert.Empty(t, url)
			assert.Empty(t, path)
		})
	}
}

func TestTransform_ReplacesFirstMarkerOnly(t *testing.T) {
	tr := NewTransformer(testMapping())
	_, path, ok := tr.Transform("#content#language-master#en#docs#language-master#en#x.xml", "ja")
	assert.True(t, ok)
	assert.Equal(t, "content/language-master/ja/docs/language-master/en/x.html", path)
}

func TestTransform_OnlyTrailingExtensionRewritten(t *testing.T) {
	tr := NewTransformer(testMapping())
	_, path, ok := tr.Transform("#content#language-master#en#a.xml.d#b.xml", "ko")
	assert.True(t, ok)
	assert.Equal(t, "content/language-master/ko/a.xml.d/b.html", path)
}

func TestTransform_IsPure(t *testing.T) {
	tr := NewTransformer(testMapping())
	entry := "#content#language-master#en#products#x.xml"
	url1, path1, ok1 := tr.Transform(entry, "ko")
	url2, path2, ok2 := tr.Transform(entry, "ko")
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, url1, url2)
	assert.Equal(t, path1, path2)
}

func TestTransform_JoinsHostAndPrefix(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		prefix string
		want   string
	}{
		{name: "canonical", host: "https://h.example", prefix: "/editor.html/", want: "https://h.example/editor.html/content/language-master/ko/x.html"},
		{name: "trailing host slash", host: "https://h.example/", prefix: "/editor.html/", want: "https://h.example/editor.html/content/language-master/ko/x.html"},
		{name: "bare prefix", host: "https://h.example", prefix: "editor.html", want: "https://h.example/editor.html/content/language-master/ko/x.html"},
		{name: "empty prefix", host: "https://h.example", prefix: "", want: "https://h.example/content/language-master/ko/x.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMapping()
			m.Host = tt.host
			m.EditorPrefix = tt.prefix
			url, path, ok := NewTransformer(m).Transform("#content#language-master#en#x.xml", "ko")
			assert.True(t, ok)
			assert.Equal(t, tt.want, url)
			assert.Equal(t, "content/language-master/ko/x.html", path)
		})
	}
}

func TestTransform_MarkerMatchesInsideWord(t *testing.T) {
	// The marker is a plain substring, so a short one can hit inside an
	// earlier segment name.
	m := testMapping()
	m.SourceMarker = "en"
	_, path, ok := NewTransformer(m).Transform("#content#en#x.xml", "ko")
	assert.True(t, ok)
	assert.Equal(t, "contkot/en/x.html", path)
}

func TestTransform_EmptyLeadingSegmentDropped(t *testing.T) {
	_, path, ok := NewTransformer(testMapping()).Transform("##language-master#en#a.xml", "ko")
	assert.True(t, ok)
	assert.Equal(t, "language-master/ko/a.html", path)
}

func TestTransform_EmptyTargetLocale(t *testing.T) {
	_, _, ok := NewTransformer(testMapping()).Transform("#content#language-master#en#x.xml", "")
	assert.False(t, ok)
}
