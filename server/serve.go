// Package linkserver provides an http.Handler that serves generated link
// reports from a directory, with Markdown directory listings and a per-locale
// statistics chart.
package linkserver

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	linkreport "github.com/go-i2p/linksgo/converter/report"
	linkstats "github.com/go-i2p/linksgo/server/stats"
	"github.com/rs/zerolog"
	"gitlab.com/golang-commonmark/markdown"
	"gitlab.com/tozd/go/errors"
)

// statsGraphFilename is rendered on demand by LinkStats.Graph and never
// exists on disk.
const statsGraphFilename = "localestats.svg"

// entryInfo is what a directory listing shows for one file besides its name.
type entryInfo struct {
	modTime time.Time
	sum     string
	report  *linkreport.Report
}

// entryCache holds per-file digests and report metadata keyed by path. An
// entry is fresh only while the file's modification time is unchanged.
type entryCache struct {
	mu    sync.RWMutex
	items map[string]entryInfo
}

func (c *entryCache) get(path string, modTime time.Time) (entryInfo, bool) {
	c.mu.RLock()
	entry, ok := c.items[path]
	c.mu.RUnlock()
	if ok && entry.modTime.Equal(modTime) {
		return entry, true
	}
	return entryInfo{}, false
}

func (c *entryCache) set(path string, info entryInfo) {
	c.mu.Lock()
	c.items[path] = info
	c.mu.Unlock()
}

var globalEntryCache = &entryCache{items: make(map[string]entryInfo)}

// ReportServer serves ReportDir and renders Stats at localestats.svg.
type ReportServer struct {
	ReportDir string
	Stats     *linkstats.LinkStats
	Logger    *zerolog.Logger
}

var _ http.Handler = &ReportServer{}

func (s *ReportServer) log() *zerolog.Logger {
	if s.Logger == nil {
		l := zerolog.Nop()
		return &l
	}
	return s.Logger
}

// containsPath reports whether target is root or lies below it. Both paths
// must be clean and absolute.
func containsPath(root, target string) bool {
	if target == root {
		return true
	}
	return strings.HasPrefix(target, root+string(filepath.Separator))
}

// ServeHTTP resolves the request path against ReportDir, rejects traversal
// and delegates to ServeFile.
func (s *ReportServer) ServeHTTP(rw http.ResponseWriter, rq *http.Request) {
	file := filepath.Join(s.ReportDir, rq.URL.Path)
	if !containsPath(filepath.Clean(s.ReportDir), file) {
		s.log().Warn().Str("path", rq.URL.Path).Msg("path traversal rejected")
		http.Error(rw, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := fileCheck(file); err != nil {
		s.log().Debug().Err(err).Str("path", rq.URL.Path).Msg("not found")
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusNotFound)
		return
	}
	if err := s.ServeFile(file, rq, rw); err != nil {
		s.log().Error().Err(err).Str("path", rq.URL.Path).Msg("serve failed")
		rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rw.WriteHeader(http.StatusNotFound)
	}
}

func fileCheck(file string) error {
	if filepath.Base(file) == statsGraphFilename {
		return nil
	}
	if _, err := os.Stat(file); err != nil {
		return errors.Errorf("fileCheck: %w", err)
	}
	return nil
}

func fileType(file string) (string, error) {
	base := filepath.Base(file)
	if base == "" || base == "." {
		return "", errors.New("fileType: invalid file path")
	}
	extension := filepath.Ext(base)
	switch extension {
	case ".html":
		return "text/html; charset=utf-8", nil
	case ".json":
		return "application/json", nil
	case ".yaml", ".yml":
		return "application/yaml", nil
	case ".svg":
		return "image/svg+xml", nil
	default:
		if t := mime.TypeByExtension(extension); t != "" {
			return t, nil
		}
		return "application/octet-stream", nil
	}
}

// describe returns the SHA-256 digest of path and, for report pages, what
// linkreport.Inspect reads from it. Results are cached by modification time.
func describe(path string) (entryInfo, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return entryInfo{}, errors.Errorf("describe: stat %s: %w", path, err)
	}
	if info, ok := globalEntryCache.get(path, fi.ModTime()); ok {
		return info, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return entryInfo{}, errors.Errorf("describe: read %s: %w", path, err)
	}
	info := entryInfo{modTime: fi.ModTime(), sum: fmt.Sprintf("%x", sha256.Sum256(data))}
	if filepath.Ext(path) == ".html" {
		if rep, err := linkreport.Inspect(data); err == nil {
			info.report = rep
		}
	}
	globalEntryCache.set(path, info)
	return info, nil
}

func buildDirectoryHeader(wd string) string {
	base := filepath.Base(wd)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", base, strings.Repeat("=", len(base)))
	fmt.Fprintf(&b, "![links by locale](%s)\n\n", statsGraphFilename)
	b.WriteString("**Reports:**\n\n")
	return b.String()
}

func (s *ReportServer) formatEntryLine(wd string, entry os.DirEntry, info os.FileInfo) string {
	if entry.IsDir() {
		return fmt.Sprintf(" - [%s](%s/) : `%s`\n", entry.Name(), entry.Name(), info.Mode())
	}
	d, err := describe(filepath.Join(wd, entry.Name()))
	if err != nil {
		s.log().Warn().Err(err).Str("file", entry.Name()).Msg("listing")
		return fmt.Sprintf(" - [%s](%s) : `%d` - `(checksum unavailable)`\n", entry.Name(), entry.Name(), info.Size())
	}
	line := fmt.Sprintf(" - [%s](%s) : `%d` - `%s`", entry.Name(), entry.Name(), info.Size(), d.sum)
	if d.report != nil {
		line += fmt.Sprintf(" : **%s** `%s` %d links", d.report.Title, d.report.Locale, d.report.Links)
	}
	return line + "\n"
}

// openDirectory returns the Markdown listing for wd.
func (s *ReportServer) openDirectory(wd string) (string, error) {
	files, err := os.ReadDir(wd)
	if err != nil {
		return "", errors.Errorf("openDirectory: %w", err)
	}
	listing := buildDirectoryHeader(wd)
	for _, entry := range files {
		info, err := entry.Info()
		if err != nil {
			s.log().Warn().Err(err).Str("file", entry.Name()).Msg("listing: stat")
			continue
		}
		listing += s.formatEntryLine(wd, entry, info)
	}
	return listing, nil
}

func hTML(mdtxt string) []byte {
	md := markdown.New(markdown.XHTMLOutput(true))
	return []byte(md.RenderToString([]byte(mdtxt)))
}

func (s *ReportServer) serveDirectory(dir string, rw http.ResponseWriter) error {
	content, err := s.openDirectory(dir)
	if err != nil {
		return errors.Errorf("serveDirectory: %w", err)
	}
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	rw.Write(hTML(content)) //nolint:errcheck
	return nil
}

func (s *ReportServer) serveStaticFile(file string, rw http.ResponseWriter, rq *http.Request) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.Errorf("serveStaticFile: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return errors.Errorf("serveStaticFile: stat %s: %w", file, err)
	}
	s.log().Debug().Str("file", file).Msg("serving")
	http.ServeContent(rw, rq, filepath.Base(file), fi.ModTime(), f)
	return nil
}

// ServeFile writes the stats chart, a directory listing or the file itself.
func (s *ReportServer) ServeFile(file string, rq *http.Request, rw http.ResponseWriter) error {
	ftype, err := fileType(file)
	if err != nil {
		return errors.Errorf("ServeFile: %w", err)
	}
	if filepath.Base(file) == statsGraphFilename {
		rw.Header().Set("Content-Type", ftype)
		if err := s.graph(rw); err != nil {
			s.log().Error().Err(err).Msg("stats graph render failed")
			rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
			rw.WriteHeader(http.StatusInternalServerError)
			fmt.Fprintln(rw, "Internal Server Error")
		}
		return nil
	}
	fi, err := os.Stat(file)
	if err != nil {
		return errors.Errorf("ServeFile: stat %s: %w", file, err)
	}
	if fi.IsDir() {
		return s.serveDirectory(file, rw)
	}
	rw.Header().Set("Content-Type", ftype)
	return s.serveStaticFile(file, rw, rq)
}

func (s *ReportServer) graph(w io.Writer) error {
	if s.Stats == nil {
		return errors.New("no stats loaded")
	}
	return s.Stats.Graph(w)
}

// Serve returns a ReportServer for reportDir with stats loaded from
// statsFile. The logger is taken from ctx.
func Serve(ctx context.Context, reportDir, statsFile string) *ReportServer {
	st := &linkstats.LinkStats{StateFile: statsFile}
	st.Load()
	return &ReportServer{ReportDir: reportDir, Stats: st, Logger: zerolog.Ctx(ctx)}
}
