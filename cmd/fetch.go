package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-i2p/linksgo/config"
	linkfetch "github.com/go-i2p/linksgo/fetch"
	"github.com/go-i2p/onramp"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download vendor archives for later conversion",
	Long: `fetch downloads one or more archives over HTTP(S), or over I2P with --i2p,
and saves them in the output directory under the last segment of their URL.

Examples:
  linksgo fetch --url https://vendor.example/out/1042.zip --outdir deliveries

  # Check the download against a digest:
  linksgo fetch --url https://vendor.example/out/1042.zip --sha256 3f0c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(c); err != nil {
			return errors.Errorf("reading config: %w", err)
		}
		urls := collectURLs(c.URL, c.URLs)
		if len(urls) == 0 {
			return errors.New("no URL supplied; use --url or --urls")
		}
		fetcher, done, err := newFetcher(c)
		if err != nil {
			return errors.Errorf("creating fetcher: %w", err)
		}
		defer done()
		return fetchURLs(cmd.Context(), fetcher, urls, viper.GetString("sha256"), c.OutDir)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	d := config.Default()

	fetchCmd.Flags().String("url", "", "archive URL to download")
	fetchCmd.Flags().StringSlice("urls", nil, "additional archive URLs")
	fetchCmd.Flags().String("outdir", d.OutDir, "directory to save archives in")
	fetchCmd.Flags().String("sha256", "", "expected SHA-256 digest; only valid with a single URL")
	fetchCmd.Flags().Bool("i2p", false, "download over I2P using SAMv3")
	fetchCmd.Flags().String("samaddr", onramp.SAM_ADDR, "advanced: SAMv3 gateway address when --i2p is enabled")
}

// collectURLs merges primary with the extra URLs, dropping blanks and
// repeats while preserving order.
func collectURLs(primary string, extra []string) []string {
	seen := make(map[string]bool)
	var result []string
	add := func(u string) {
		u = strings.TrimSpace(u)
		if u != "" && !seen[u] {
			seen[u] = true
			result = append(result, u)
		}
	}
	add(primary)
	for _, u := range extra {
		// Env and config values may hold a raw comma-separated list.
		for _, part := range strings.Split(u, ",") {
			add(part)
		}
	}
	return result
}

// fetchURLs downloads every URL into outDir. All URLs are attempted; the
// failures are returned together.
func fetchURLs(ctx context.Context, f *linkfetch.Fetcher, urls []string, sum, outDir string) error {
	if sum != "" && len(urls) != 1 {
		return errors.New("--sha256 needs exactly one URL")
	}
	logger := zerolog.Ctx(ctx)
	var errs []string
	for _, u := range urls {
		a, err := f.FetchArchive(ctx, u)
		if err == nil {
			err = linkfetch.Verify(a.Data, sum)
		}
		if err != nil {
			logger.Warn().Err(err).Str("url", u).Msg("fetch failed")
			errs = append(errs, fmt.Sprintf("%s: %v", u, err))
			continue
		}
		file, err := linkfetch.Save(outDir, a)
		if err != nil {
			return err
		}
		pterm.Success.Printfln("saved %d bytes to %s", len(a.Data), file)
	}
	if len(errs) > 0 {
		return errors.Errorf("%d of %d downloads failed: %s", len(errs), len(urls), strings.Join(errs, "; "))
	}
	return nil
}
