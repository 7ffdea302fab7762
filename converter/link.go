package linkconverter

import (
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Link is one converted entry. Source names the archive that produced it and
// is empty when the run had a single archive.
type Link struct {
	URL         string `json:"url" yaml:"url"`
	StoragePath string `json:"path" yaml:"path"`
	Locale      string `json:"locale" yaml:"locale"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Policy decides which Link survives when two share a storage path.
type Policy int

const (
	// PolicyLatestWins replaces the accepted Link with the newcomer.
	PolicyLatestWins Policy = iota
	// PolicyFirstWins keeps the accepted Link and drops the newcomer.
	PolicyFirstWins
)

func (p Policy) String() string {
	switch p {
	case PolicyFirstWins:
		return "first"
	default:
		return "latest"
	}
}

// ParsePolicy accepts "latest" (or "") and "first".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return PolicyLatestWins, nil
	case "first":
		return PolicyFirstWins, nil
	default:
		return PolicyLatestWins, errors.Errorf("unknown dedup policy %q: want latest or first", s)
	}
}

type localeLinks struct {
	index map[string]int
	links []Link
}

// LinkSet groups Links by locale. Within a locale storage paths are unique
// and Links keep the position at which their path was first inserted.
type LinkSet struct {
	locales []string
	byCode  map[string]*localeLinks
}

// NewLinkSet returns an empty LinkSet.
func NewLinkSet() *LinkSet {
	return &LinkSet{byCode: make(map[string]*localeLinks)}
}

// add inserts l under policy and reports whether its storage path was
// already present.
func (s *LinkSet) add(l Link, policy Policy) bool {
	ll, ok := s.byCode[l.Locale]
	if !ok {
		ll = &localeLinks{index: make(map[string]int)}
		s.byCode[l.Locale] = ll
		s.locales = append(s.locales, l.Locale)
	}
	if i, dup := ll.index[l.StoragePath]; dup {
		if policy == PolicyLatestWins {
			ll.links[i] = l
		}
		return true
	}
	ll.index[l.StoragePath] = len(ll.links)
	ll.links = append(ll.links, l)
	return false
}

// Locales returns the locale codes in first-seen order.
func (s *LinkSet) Locales() []string {
	return append([]string(nil), s.locales...)
}

// Links returns a copy of the Links for code.
func (s *LinkSet) Links(code string) []Link {
	ll, ok := s.byCode[code]
	if !ok {
		return nil
	}
	return append([]Link(nil), ll.links...)
}

// Count returns the number of Links stored for code.
func (s *LinkSet) Count(code string) int {
	if ll, ok := s.byCode[code]; ok {
		return len(ll.links)
	}
	return 0
}

// Len returns the number of Links across all locales.
func (s *LinkSet) Len() int {
	n := 0
	for _, ll := range s.byCode {
		n += len(ll.links)
	}
	return n
}
