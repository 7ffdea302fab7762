// Package linkconverter: archive and output enumeration helpers.
package linkconverter

import "strings"

// KnownFormats returns the supported report output formats in a
// deterministic order.
func KnownFormats() []string {
	return []string{"html", "json", "yaml"}
}

// ArchiveExtensions returns the file name suffixes recognised as vendor
// archives when a directory is walked. Compound suffixes come first.
func ArchiveExtensions() []string {
	return []string{".tar.gz", ".tgz", ".zip"}
}

// IsArchiveName reports whether name ends in one of ArchiveExtensions.
func IsArchiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range ArchiveExtensions() {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ArchiveStem strips the archive extension from name: "batch-1.tar.gz"
// gives "batch-1". Names without a known extension are returned unchanged.
func ArchiveStem(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range ArchiveExtensions() {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
