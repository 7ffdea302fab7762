// Package linkstats keeps a persisted tally of converted links per locale and
// renders it as an SVG bar chart.
package linkstats

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/wcharczuk/go-chart/v2"
	"gitlab.com/tozd/go/errors"
)

// LinkStats accumulates link counts across conversion runs.
type LinkStats struct {
	LinksByLocale map[string]int
	Runs          int
	StateFile     string
	mu            sync.RWMutex
}

type state struct {
	Runs   int            `json:"runs"`
	Locale map[string]int `json:"locales"`
}

// Record adds n links for locale code.
func (s *LinkStats) Record(code string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LinksByLocale == nil {
		s.LinksByLocale = make(map[string]int)
	}
	s.LinksByLocale[code] += n
}

// RecordRun counts one conversion run.
func (s *LinkStats) RecordRun() {
	s.mu.Lock()
	s.Runs++
	s.mu.Unlock()
}

// Snapshot returns a copy of the per-locale counts.
func (s *LinkStats) Snapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.LinksByLocale))
	for k, v := range s.LinksByLocale {
		out[k] = v
	}
	return out
}

// Graph renders the counts as an SVG bar chart, sorted by locale, followed by
// a total bar. The chart is rendered into a buffer first so w receives
// nothing when rendering fails.
func (s *LinkStats) Graph(w io.Writer) error {
	counts := s.Snapshot()
	codes := make([]string, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	// The leading zero bar anchors the y axis at zero.
	bars := []chart.Value{{Value: 0, Label: "baseline"}}
	total := 0
	for _, code := range codes {
		total += counts[code]
		bars = append(bars, chart.Value{Value: float64(counts[code]), Label: code})
	}
	bars = append(bars, chart.Value{Value: float64(total), Label: "Total links"})

	graph := chart.BarChart{
		Title: "Links by locale",
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 10},
		},
		Height:   256,
		BarWidth: 20,
		Bars:     bars,
	}
	var buf bytes.Buffer
	if err := graph.Render(chart.SVG, &buf); err != nil {
		return errors.Errorf("rendering stats graph: %w", err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return errors.Errorf("writing stats graph: %w", err)
	}
	return nil
}

// Save writes the counts to StateFile.
func (s *LinkStats) Save() error {
	s.mu.RLock()
	data, err := json.Marshal(state{Runs: s.Runs, Locale: s.LinksByLocale})
	s.mu.RUnlock()
	if err != nil {
		return errors.Errorf("encoding stats: %w", err)
	}
	if err := os.WriteFile(s.StateFile, data, 0o644); err != nil {
		return errors.Errorf("writing stats: %w", err)
	}
	return nil
}

// Load reads StateFile. A missing, malformed or "null" file leaves the stats
// empty and ready for Record.
func (s *LinkStats) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LinksByLocale = make(map[string]int)
	s.Runs = 0
	data, err := os.ReadFile(s.StateFile)
	if err != nil {
		return
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return
	}
	s.Runs = st.Runs
	for k, v := range st.Locale {
		s.LinksByLocale[k] = v
	}
}
