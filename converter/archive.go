package linkconverter

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"

	"github.com/bmatcuk/doublestar/v4"
	"gitlab.com/tozd/go/errors"
)

// Archive is one named vendor delivery held in memory.
type Archive struct {
	Name string
	Data []byte
}

var (
	zipMagic      = []byte("PK\x03\x04")
	zipEmptyMagic = []byte("PK\x05\x06")
	gzipMagic     = []byte{0x1f, 0x8b}
)

// ErrUnknownFormat is returned by ListEntries for data that is neither a zip
// archive nor a gzip-compressed tarball.
var ErrUnknownFormat = errors.New("unrecognised archive format")

// ListEntries returns the names of the file entries in data in the
// container's own order. Only names are read; entry contents are never
// decompressed for zip archives.
func ListEntries(data []byte) ([]string, error) {
	switch {
	case bytes.HasPrefix(data, zipMagic), bytes.HasPrefix(data, zipEmptyMagic):
		return zipEntries(data)
	case bytes.HasPrefix(data, gzipMagic):
		return tarEntries(data)
	case len(data) == 0:
		return nil, errors.Errorf("empty archive: %w", ErrUnknownFormat)
	default:
		// Self-extracting or prefixed zips still carry a valid central
		// directory at the end of the data.
		names, err := zipEntries(data)
		if err != nil {
			return nil, errors.Errorf("%w: %s", ErrUnknownFormat, err)
		}
		return names, nil
	}
}

func zipEntries(data []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Errorf("opening zip: %w", err)
	}
	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		names = append(names, f.Name)
	}
	return names, nil
}

func tarEntries(data []byte) ([]string, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Errorf("opening gzip: %w", err)
	}
	defer gz.Close()
	tr := tar.NewReader(gz)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, errors.Errorf("reading tar: %w", err)
		}
		if hdr.FileInfo().Mode().IsRegular() {
			names = append(names, hdr.Name)
		}
	}
}

// EntryFilter drops archive entries that match any exclude glob.
type EntryFilter struct {
	patterns []string
}

// NewEntryFilter validates patterns with doublestar and returns a filter.
func NewEntryFilter(patterns []string) (*EntryFilter, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &EntryFilter{patterns: append([]string(nil), patterns...)}, nil
}

// Excluded reports whether name matches an exclude pattern.
func (f *EntryFilter) Excluded(name string) bool {
	if f == nil {
		return false
	}
	for _, p := range f.patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
