package linkconverter

import (
	"strings"
	"unicode/utf8"

	"github.com/go-i2p/linksgo/config"
)

// Transformer converts a source-locale entry name into a target-locale
// editor URL and storage path.
type Transformer struct {
	m      config.Mapping
	prefix string
}

// NewTransformer returns a Transformer bound to m. The host and editor prefix
// are joined once here with exactly one slash at each seam.
func NewTransformer(m config.Mapping) *Transformer {
	prefix := strings.TrimRight(m.Host, "/") + "/"
	if route := strings.Trim(m.EditorPrefix, "/"); route != "" {
		prefix += route + "/"
	}
	return &Transformer{m: m, prefix: prefix}
}

// Transform runs the four eligibility gates in order and returns the editor
// URL and storage path for entryName in targetLocale. ok is false as soon as
// one gate fails:
//
//  1. entryName must contain the source marker;
//  2. the first occurrence of the marker is replaced by the target marker;
//  3. the result must start with the sentinel;
//  4. with the sentinel stripped and separators turned into "/", the path
//     must end in the source extension, which is rewritten to the target one.
//
// Leading slashes left by empty segments are dropped from the storage path.
//
// "#content#language-master#en#products#x.xml" in "ko" gives the storage path
// "content/language-master/ko/products/x.html".
func (t *Transformer) Transform(entryName, targetLocale string) (url, storagePath string, ok bool) {
	if entryName == "" || targetLocale == "" || !utf8.ValidString(entryName) {
		return "", "", false
	}
	if !strings.Contains(entryName, t.m.SourceMarker) {
		return "", "", false
	}
	name := strings.Replace(entryName, t.m.SourceMarker, t.m.TargetMarker(targetLocale), 1)
	if !strings.HasPrefix(name, t.m.Sentinel) {
		return "", "", false
	}
	p := strings.ReplaceAll(strings.TrimPrefix(name, t.m.Sentinel), t.m.Separator, "/")
	if !strings.HasSuffix(p, t.m.SourceExt) {
		return "", "", false
	}
	p = strings.TrimLeft(strings.TrimSuffix(p, t.m.SourceExt)+t.m.TargetExt, "/")
	if p == "" || p == t.m.TargetExt || strings.HasPrefix(p, t.m.Sentinel) {
		return "", "", false
	}
	return t.prefix + p, p, true
}
