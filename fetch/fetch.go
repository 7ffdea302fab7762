// Package linkfetch downloads vendor archives over HTTP(S) or I2P so they can
// be converted like local files.
//
// I2P fetchers share one onramp.Garlic session per process.
package linkfetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	linkconverter "github.com/go-i2p/linksgo/converter"
	"github.com/go-i2p/onramp"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultMaxBytes bounds a single download.
const DefaultMaxBytes int64 = 1 << 30

var (
	garlicOnce   sync.Once
	garlicMu     sync.Mutex
	sharedGarlic *onramp.Garlic
	garlicErr    error
	garlicClosed bool
	// garlicOwned is set when sharedGarlic holds a live SAM session.
	garlicOwned bool
)

// ErrGarlicClosed is returned by NewI2PFetcher once CloseSharedGarlic has run.
var ErrGarlicClosed = errors.New("garlic session closed; cannot create new fetcher")

// ErrTooLarge is returned when a download exceeds the Fetcher's limit.
var ErrTooLarge = errors.New("download exceeds size limit")

func initSharedGarlic(samAddr string) (*onramp.Garlic, error) {
	garlicOnce.Do(func() {
		garlicMu.Lock()
		closed := garlicClosed
		garlicMu.Unlock()
		if closed {
			return
		}
		var g *onramp.Garlic
		var err error
		owned := false
		if samAddr != "" {
			g, err = onramp.NewGarlic("linksgo", samAddr, onramp.OPT_DEFAULTS)
			owned = err == nil && g != nil
		} else {
			g = &onramp.Garlic{}
		}
		garlicMu.Lock()
		defer garlicMu.Unlock()
		if garlicClosed {
			if owned {
				g.Close()
			}
			return
		}
		sharedGarlic, garlicErr, garlicOwned = g, err, owned
	})
	garlicMu.Lock()
	defer garlicMu.Unlock()
	if garlicClosed {
		return nil, ErrGarlicClosed
	}
	return sharedGarlic, garlicErr
}

// CloseSharedGarlic closes the shared session. It is safe to call more than
// once and before any session was opened.
func CloseSharedGarlic() {
	garlicMu.Lock()
	defer garlicMu.Unlock()
	if sharedGarlic != nil && garlicOwned {
		sharedGarlic.Close()
	}
	sharedGarlic = nil
	garlicOwned = false
	garlicClosed = true
	garlicErr = ErrGarlicClosed
}

// Fetcher downloads archives with an http.Client.
type Fetcher struct {
	client   *http.Client
	MaxBytes int64
}

func transportFromGarlic(g *onramp.Garlic) *http.Transport {
	return &http.Transport{
		DialContext:           g.DialContext,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   30 * time.Second,
		ResponseHeaderTimeout: 120 * time.Second,
	}
}

// NewFetcher returns a Fetcher for clearnet HTTP(S) downloads.
func NewFetcher(timeout time.Duration) *Fetcher {
	return NewFetcherFromClient(&http.Client{Timeout: timeout})
}

// NewI2PFetcher returns a Fetcher that dials through the shared Garlic
// session. samAddr may be empty to use the onramp default.
func NewI2PFetcher(samAddr string) (*Fetcher, error) {
	g, err := initSharedGarlic(samAddr)
	if err != nil {
		return nil, errors.Errorf("linkfetch: init garlic: %w", err)
	}
	return NewFetcherFromGarlic(g), nil
}

// NewFetcherFromGarlic returns a Fetcher bound to g. The caller keeps
// ownership of g.
func NewFetcherFromGarlic(g *onramp.Garlic) *Fetcher {
	return NewFetcherFromClient(&http.Client{
		Transport: transportFromGarlic(g),
		Timeout:   10 * time.Minute,
	})
}

// NewFetcherFromClient returns a Fetcher that uses c as is.
func NewFetcherFromClient(c *http.Client) *Fetcher {
	return &Fetcher{client: c, MaxBytes: DefaultMaxBytes}
}

// Fetch GETs rawURL and returns the body.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Errorf("linkfetch: request %s: %w", rawURL, err)
	}
	resp, err := f.client.Do(rq)
	if err != nil {
		return nil, errors.Errorf("linkfetch: GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("linkfetch: GET %s: unexpected status %s", rawURL, resp.Status)
	}
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, errors.Errorf("linkfetch: read body %s: %w", rawURL, err)
	}
	if int64(len(data)) > limit {
		return nil, errors.Errorf("linkfetch: GET %s: %w", rawURL, ErrTooLarge)
	}
	zerolog.Ctx(ctx).Debug().Str("url", rawURL).Int("bytes", len(data)).Msg("fetched")
	return data, nil
}

// FetchArchive downloads rawURL as an Archive named after the URL's last path
// segment.
func (f *Fetcher) FetchArchive(ctx context.Context, rawURL string) (linkconverter.Archive, error) {
	data, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return linkconverter.Archive{}, err
	}
	return linkconverter.Archive{Name: ArchiveName(rawURL), Data: data}, nil
}

// ArchiveName derives a file name from rawURL: the unescaped last path
// segment, or the host with ".zip" appended when the path is empty.
func ArchiveName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "download.zip"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		host := strings.ReplaceAll(u.Hostname(), ".", "_")
		if host == "" {
			host = "download"
		}
		return host + ".zip"
	}
	return name
}

// Verify checks data against a hex SHA-256 digest. An empty sum always
// passes.
func Verify(data []byte, sum string) error {
	if sum == "" {
		return nil
	}
	got := sha256.Sum256(data)
	if !strings.EqualFold(hex.EncodeToString(got[:]), strings.TrimSpace(sum)) {
		return errors.Errorf("linkfetch: checksum mismatch: got %x, want %s", got, sum)
	}
	return nil
}

// Save writes a into dir and returns the file path.
func Save(dir string, a linkconverter.Archive) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Errorf("linkfetch: create %s: %w", dir, err)
	}
	file := filepath.Join(dir, filepath.Base(a.Name))
	if err := os.WriteFile(file, a.Data, 0o644); err != nil {
		return "", errors.Errorf("linkfetch: write %s: %w", file, err)
	}
	return file, nil
}
