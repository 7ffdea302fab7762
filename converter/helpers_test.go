package linkconverter

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/go-i2p/linksgo/config"
	"github.com/stretchr/testify/require"
)

// testMapping mirrors the stock settings with a test host.
func testMapping() config.Mapping {
	m := config.DefaultMapping()
	m.Host = "https://host.example"
	m.EditorPrefix = "/editor.html/"
	return m
}

// zipArchive builds an in-memory zip holding one small file per name, in
// the given order. Names ending in "/" become directory entries.
func zipArchive(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		if name[len(name)-1] != '/' {
			_, err = w.Write([]byte("<jcr:root/>"))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// tgzArchive builds an in-memory gzip-compressed tarball.
func tgzArchive(t *testing.T, names ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := []byte("<jcr:root/>")
	for _, name := range names {
		require.NoError(t, tw.WriteHeader(&tar.Header{Name: name, Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg}))
		_, err := tw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

// linkAt returns the Link stored for path in code.
func linkAt(s *LinkSet, code, path string) (Link, bool) {
	ll, ok := s.byCode[code]
	if !ok {
		return Link{}, false
	}
	i, ok := ll.index[path]
	if !ok {
		return Link{}, false
	}
	return ll.links[i], true
}
