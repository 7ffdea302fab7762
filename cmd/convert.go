package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-i2p/linksgo/config"
	linkconverter "github.com/go-i2p/linksgo/converter"
	linkreport "github.com/go-i2p/linksgo/converter/report"
	linkfetch "github.com/go-i2p/linksgo/fetch"
	linkstats "github.com/go-i2p/linksgo/server/stats"
	"github.com/go-i2p/onramp"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"
)

// convertCmd represents the convert command
var convertCmd = &cobra.Command{
	Use:   "convert [archive|dir ...]",
	Short: "Convert translation archives into per-locale link reports",
	Long: `convert reads every archive named on the command line (directories are
walked for .zip, .tar.gz and .tgz files) plus any --urls, merges their links
and writes the reports to --builddir.

Examples:
  # One delivery:
  linksgo convert delivery-1042.zip

  # Every archive in a folder, keeping the first copy of a duplicate page:
  linksgo convert ./deliveries --policy first --workers 4

  # Remote archives, with job metadata on the report:
  linksgo convert --urls https://vendor.example/out/1042.zip --jobid 1042 --submission "Spring release"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := viper.Unmarshal(c); err != nil {
			return errors.Errorf("reading config: %w", err)
		}
		return runConvert(cmd.Context(), c, args)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	d := config.Default()

	convertCmd.Flags().String("aemhost", d.AemHost, "author host the editor URLs point at")
	convertCmd.Flags().String("sourcemarker", d.SourceMarker, "marker of the source-locale content tree")
	convertCmd.Flags().String("sourcelang", "", "source language; replaces the locale segment of --sourcemarker")
	convertCmd.Flags().StringSlice("localepatterns", d.LocalePatterns, "ordered pattern=code list; the first pattern found in an entry path wins")
	convertCmd.Flags().String("editorprefix", d.EditorPrefix, "editor route between host and content path")
	convertCmd.Flags().String("sourceext", d.SourceExt, "extension of source entries")
	convertCmd.Flags().String("targetext", d.TargetExt, "extension of editor pages")
	convertCmd.Flags().String("contentprefix", d.ContentPrefix, "base-name prefix of structured content entries")
	convertCmd.Flags().StringSlice("exclude", d.Exclude, "glob patterns of archive entries to ignore")
	convertCmd.Flags().StringSlice("spacpaths", d.SpacPaths, "code=path list for SPAC quick links")
	convertCmd.Flags().String("policy", d.Policy, "duplicate path policy: latest or first")
	convertCmd.Flags().Int("workers", d.Workers, "archives scanned in parallel")
	convertCmd.Flags().Bool("verbose", false, "add a warning for every ineligible entry")
	convertCmd.Flags().String("builddir", d.BuildDir, "directory to write reports to")
	convertCmd.Flags().StringSlice("formats", d.Formats, "report formats: html, json, yaml")
	convertCmd.Flags().String("template", "", "HTML report template (default is the built-in one)")
	convertCmd.Flags().String("jobid", "", "translation job ID shown on the report")
	convertCmd.Flags().String("submission", "", "submission name shown on the report")
	convertCmd.Flags().StringSlice("urls", nil, "archive URLs to download and convert")
	convertCmd.Flags().String("statsfile", d.StatsFile, "file accumulating link counts per locale (empty to disable)")
	convertCmd.Flags().Bool("i2p", false, "download --urls over I2P using SAMv3")
	convertCmd.Flags().String("samaddr", onramp.SAM_ADDR, "advanced: SAMv3 gateway address when --i2p is enabled")
}

// parseFormats validates the requested report formats, dropping repeats.
func parseFormats(raw []string) ([]string, error) {
	var formats []string
	for _, r := range raw {
		for _, f := range strings.Split(r, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			if f == "" || slices.Contains(formats, f) {
				continue
			}
			if !slices.Contains(linkconverter.KnownFormats(), f) {
				return nil, errors.Errorf("unknown format %q: want one of %s", f, strings.Join(linkconverter.KnownFormats(), ", "))
			}
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return nil, errors.New("no report format selected")
	}
	return formats, nil
}

// collectArchivePaths expands args into archive files. Files are kept as
// given; directories are walked for names with a known archive extension, in
// lexical order.
func collectArchivePaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		fi, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Errorf("archive %s: %w", arg, err)
		}
		if !fi.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && linkconverter.IsArchiveName(d.Name()) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}

func readArchives(paths []string) ([]linkconverter.Archive, error) {
	archives := make([]linkconverter.Archive, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Errorf("reading %s: %w", p, err)
		}
		archives = append(archives, linkconverter.Archive{Name: filepath.Base(p), Data: data})
	}
	return archives, nil
}

func newFetcher(conf *config.Conf) (*linkfetch.Fetcher, func(), error) {
	if !conf.I2P {
		return linkfetch.NewFetcher(5 * time.Minute), func() {}, nil
	}
	f, err := linkfetch.NewI2PFetcher(conf.SamAddr)
	if err != nil {
		return nil, nil, err
	}
	return f, linkfetch.CloseSharedGarlic, nil
}

// fetchArchives downloads urls. A failed download becomes an empty Archive so
// the run reports it alongside unreadable local files.
func fetchArchives(ctx context.Context, f *linkfetch.Fetcher, urls []string) []linkconverter.Archive {
	logger := zerolog.Ctx(ctx)
	var archives []linkconverter.Archive
	for _, u := range urls {
		a, err := f.FetchArchive(ctx, u)
		if err != nil {
			logger.Warn().Err(err).Str("url", u).Msg("download failed")
			a = linkconverter.Archive{Name: linkfetch.ArchiveName(u)}
		}
		archives = append(archives, a)
	}
	return archives
}

// runConvert is the whole convert command once flags and config are merged.
func runConvert(ctx context.Context, conf *config.Conf, args []string) error {
	logger := zerolog.Ctx(ctx)
	m, err := conf.Mapping()
	if err != nil {
		return err
	}
	policy, err := linkconverter.ParsePolicy(conf.Policy)
	if err != nil {
		return err
	}
	filter, err := linkconverter.NewEntryFilter(conf.Exclude)
	if err != nil {
		return err
	}
	formats, err := parseFormats(conf.Formats)
	if err != nil {
		return err
	}

	paths, err := collectArchivePaths(args)
	if err != nil {
		return err
	}
	archives, err := readArchives(paths)
	if err != nil {
		return err
	}
	if urls := collectURLs("", conf.URLs); len(urls) > 0 {
		fetcher, done, err := newFetcher(conf)
		if err != nil {
			return errors.Errorf("creating fetcher: %w", err)
		}
		defer done()
		archives = append(archives, fetchArchives(ctx, fetcher, urls)...)
	}
	if len(archives) == 0 {
		return errors.New("no archives to convert; pass files, directories or --urls")
	}
	logger.Info().Int("archives", len(archives)).Stringer("policy", policy).Int("workers", conf.Workers).Msg("converting")

	outcome := linkconverter.NewAggregator(m, linkconverter.Options{
		Policy:  policy,
		Workers: conf.Workers,
		Verbose: conf.Verbose,
		Exclude: filter,
	}).Process(ctx, archives)

	meta := linkreport.Meta{
		RunID:      uuid.NewString(),
		JobID:      conf.JobID,
		Submission: conf.Submission,
		Policy:     policy.String(),
		Generated:  time.Now().UTC(),
	}
	for _, a := range archives {
		meta.Sources = append(meta.Sources, a.Name)
	}

	summary := linkconverter.Summarize(m, outcome.Links)
	if err := printSummary(outcome, summary, linkconverter.NewDetector(m.Patterns).Codes()); err != nil {
		logger.Warn().Err(err).Msg("printing summary")
	}
	if !outcome.Success {
		return errors.New("conversion produced no links")
	}

	written, err := writeOutputs(conf, m, formats, outcome, meta)
	for _, f := range written {
		pterm.Success.Printfln("wrote %s", f)
	}
	if err != nil {
		return err
	}
	if conf.StatsFile != "" {
		if err := updateStats(conf.StatsFile, summary); err != nil {
			logger.Warn().Err(err).Str("file", conf.StatsFile).Msg("stats not saved")
		}
	}
	return nil
}

func writeOutputs(conf *config.Conf, m config.Mapping, formats []string, outcome *linkconverter.Outcome, meta linkreport.Meta) ([]string, error) {
	var written []string
	if slices.Contains(formats, "html") {
		r, err := linkreport.NewRenderer(m, conf.Template)
		if err != nil {
			return nil, err
		}
		files, err := r.WriteReports(conf.BuildDir, outcome, meta)
		written = append(written, files...)
		if err != nil {
			return written, err
		}
	}
	files, err := linkreport.NewExport(m, outcome, meta).Write(conf.BuildDir, formats)
	return append(written, files...), err
}

func updateStats(file string, summary linkconverter.Summary) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return errors.Errorf("creating stats dir: %w", err)
	}
	st := &linkstats.LinkStats{StateFile: file}
	st.Load()
	for _, l := range summary.Locales {
		st.Record(l.Code, l.Count)
	}
	st.RecordRun()
	return st.Save()
}

func printSummary(outcome *linkconverter.Outcome, summary linkconverter.Summary, codes []string) error {
	data := pterm.TableData{{"Locale", "Name", "Links", "Sections"}}
	for _, l := range summary.Locales {
		data = append(data, []string{l.Code, l.Name, fmt.Sprint(l.Count), fmt.Sprint(len(l.Sections))})
	}
	data = append(data, []string{"total", "", fmt.Sprint(summary.Total), ""})
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		return err
	}
	pterm.Info.Printfln("examined %d entries: %d skipped, %d excluded, %d ineligible, %d duplicates",
		outcome.Examined, outcome.Skipped, outcome.Excluded, outcome.Failed, outcome.Duplicates)
	for _, w := range outcome.Warnings {
		pterm.Warning.Println(w)
	}
	for _, code := range missingLocales(outcome.Links, codes) {
		pterm.Warning.Printfln("no links for %s (%s)", code, linkconverter.LocaleName(code))
	}
	if !outcome.Success {
		pterm.Error.Println("no links were produced")
	}
	return nil
}

// missingLocales returns the configured codes that produced no Links.
func missingLocales(set *linkconverter.LinkSet, codes []string) []string {
	var missing []string
	for _, code := range codes {
		if set.Count(code) == 0 {
			missing = append(missing, code)
		}
	}
	return missing
}
