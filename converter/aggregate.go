package linkconverter

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/go-i2p/linksgo/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options tune an Aggregator. The zero value processes archives one at a time
// with PolicyLatestWins and no exclusions.
type Options struct {
	Policy  Policy
	Workers int
	Verbose bool
	Exclude *EntryFilter
}

// ArchiveStats describes what one archive contributed to a run.
type ArchiveStats struct {
	Name     string `json:"name" yaml:"name"`
	Readable bool   `json:"readable" yaml:"readable"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	Entries  int    `json:"entries" yaml:"entries"`
	Links    int    `json:"links" yaml:"links"`
	Failed   int    `json:"failed" yaml:"failed"`
}

// Outcome is the result of one Process call. It is not modified after
// Process returns.
type Outcome struct {
	Links *LinkSet
	// Examined counts every file entry of every readable archive.
	Examined int
	// Failed counts entries that matched a locale and the content prefix
	// but did not pass the Transformer.
	Failed int
	// Skipped counts entries without a locale match or content prefix.
	Skipped int
	// Excluded counts entries dropped by the exclude globs.
	Excluded   int
	Duplicates int
	Warnings   []string
	Archives   []ArchiveStats
	Success    bool
}

// Aggregator runs the Detector and Transformer over every entry of a set of
// archives and merges the resulting Links.
type Aggregator struct {
	m           config.Mapping
	detector    *Detector
	transformer *Transformer
	opts        Options
}

// NewAggregator returns an Aggregator for m.
func NewAggregator(m config.Mapping, opts Options) *Aggregator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Aggregator{
		m:           m,
		detector:    NewDetector(m.Patterns),
		transformer: NewTransformer(m),
		opts:        opts,
	}
}

// scan is the per-archive result produced before merging.
type scan struct {
	stats    ArchiveStats
	links    []Link
	skipped  int
	excluded int
	warnings []string
	// ambiguous holds entries matched by more than one locale pattern.
	ambiguous []string
}

// Process converts archives and merges the Links in archive order, then in
// each archive's entry order. With PolicyLatestWins the Link from the archive
// processed last wins a storage path conflict. Process never fails; unreadable
// archives and ineligible entries are reported in the Outcome.
func (a *Aggregator) Process(ctx context.Context, archives []Archive) *Outcome {
	logger := zerolog.Ctx(ctx)
	out := &Outcome{Links: NewLinkSet()}
	if len(archives) == 0 {
		out.Warnings = append(out.Warnings, "no archives supplied")
		return out
	}
	tag := len(archives) > 1

	// Archives may be scanned concurrently; each result lands in its own slot
	// so the merge below always sees them in caller order.
	scans := make([]scan, len(archives))
	var g errgroup.Group
	g.SetLimit(a.opts.Workers)
	for i := range archives {
		g.Go(func() error {
			scans[i] = a.scan(archives[i], tag)
			return nil
		})
	}
	_ = g.Wait()

	readable := 0
	dupByLocale := make(map[string]int)
	for _, s := range scans {
		out.Archives = append(out.Archives, s.stats)
		out.Warnings = append(out.Warnings, s.warnings...)
		if !s.stats.Readable {
			logger.Warn().Str("archive", s.stats.Name).Str("error", s.stats.Error).Msg("archive unreadable")
			continue
		}
		readable++
		for _, full := range s.ambiguous {
			logger.Debug().Str("archive", s.stats.Name).Str("entry", full).Strs("locales", a.detector.Matches(full)).Msg("entry matches several locale patterns")
		}
		out.Examined += s.stats.Entries
		out.Failed += s.stats.Failed
		out.Skipped += s.skipped
		out.Excluded += s.excluded
		for _, l := range s.links {
			if out.Links.add(l, a.opts.Policy) {
				out.Duplicates++
				dupByLocale[l.Locale]++
				logger.Debug().Str("path", l.StoragePath).Str("source", l.Source).Stringer("policy", a.opts.Policy).Msg("duplicate path resolved")
			}
		}
		logger.Debug().Str("archive", s.stats.Name).Int("entries", s.stats.Entries).Int("links", s.stats.Links).Int("failed", s.stats.Failed).Msg("archive processed")
	}

	if out.Duplicates > 0 {
		var parts []string
		for _, code := range out.Links.Locales() {
			parts = append(parts, fmt.Sprintf("%s: %d", code, dupByLocale[code]))
		}
		out.Warnings = append(out.Warnings, fmt.Sprintf("resolved %d duplicate paths (%s)", out.Duplicates, strings.Join(parts, ", ")))
	}
	if readable == 0 {
		out.Warnings = append(out.Warnings, "no archive could be read")
	}
	out.Success = readable > 0 && out.Links.Len() > 0

	logger.Info().
		Int("archives", len(archives)).
		Int("readable", readable).
		Int("examined", out.Examined).
		Int("links", out.Links.Len()).
		Int("failed", out.Failed).
		Int("duplicates", out.Duplicates).
		Bool("success", out.Success).
		Msg("conversion complete")
	return out
}

func (a *Aggregator) scan(ar Archive, tag bool) scan {
	s := scan{stats: ArchiveStats{Name: ar.Name}}
	names, err := ListEntries(ar.Data)
	if err != nil {
		s.stats.Error = err.Error()
		s.warnings = append(s.warnings, fmt.Sprintf("archive %q unreadable: %v", ar.Name, err))
		return s
	}
	s.stats.Readable = true
	s.stats.Entries = len(names)
	for _, full := range names {
		if a.opts.Exclude.Excluded(full) {
			s.excluded++
			continue
		}
		code, ok := a.detector.Detect(full)
		if !ok {
			s.skipped++
			continue
		}
		if len(a.detector.Matches(full)) > 1 {
			s.ambiguous = append(s.ambiguous, full)
		}
		base := path.Base(full)
		if !strings.HasPrefix(base, a.m.ContentPrefix) {
			s.skipped++
			continue
		}
		url, storagePath, ok := a.transformer.Transform(base, code)
		if !ok {
			s.stats.Failed++
			if a.opts.Verbose {
				s.warnings = append(s.warnings, fmt.Sprintf("entry %q in %q is not eligible for conversion", full, ar.Name))
			}
			continue
		}
		l := Link{URL: url, StoragePath: storagePath, Locale: code}
		if tag {
			l.Source = ar.Name
		}
		s.links = append(s.links, l)
	}
	s.stats.Links = len(s.links)
	return s
}
