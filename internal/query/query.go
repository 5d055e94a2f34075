// Package query derives ordered views from an inventory snapshot. It is
// stateless: the same snapshot and config always produce the same
// sequence.
package query

import (
	"sort"
	"strings"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

// KindFilter selects which application kinds pass the view.
type KindFilter int

const (
	KindAll KindFilter = iota
	KindGUIOnly
	KindCLIOnly
)

func (f KindFilter) Next() KindFilter {
	switch f {
	case KindAll:
		return KindGUIOnly
	case KindGUIOnly:
		return KindCLIOnly
	}
	return KindAll
}

func (f KindFilter) Label() string {
	switch f {
	case KindGUIOnly:
		return "GUI Only"
	case KindCLIOnly:
		return "CLI Only"
	}
	return "All"
}

func (f KindFilter) matches(k pkgs.Kind) bool {
	switch f {
	case KindGUIOnly:
		return k == pkgs.KindGUI
	case KindCLIOnly:
		return k == pkgs.KindCLI
	}
	return true
}

// SortKey is the primary ordering of the view.
type SortKey int

const (
	SortBySize SortKey = iota
	SortByName
	SortBySource
)

func (k SortKey) Label() string {
	switch k {
	case SortByName:
		return "Name"
	case SortBySource:
		return "Source"
	}
	return "Size"
}

// Config is the ephemeral view configuration. It never mutates the
// store; the zero value of Sources means "all".
type Config struct {
	// Sources restricts the view to these managers; empty passes all.
	Sources map[pkgs.Source]bool
	Kind    KindFilter
	Search  string
	SortKey SortKey
	// Descending is the sort direction; the default view is size
	// descending.
	Descending bool
}

// DefaultConfig matches the view at application start: no filters,
// empty search, size descending.
func DefaultConfig() Config {
	return Config{SortKey: SortBySize, Descending: true}
}

// Apply runs the fixed pipeline: source filter, kind filter, fuzzy
// search, then a stable sort with an ascending-name tie-break.
func Apply(snapshot []pkgs.Package, cfg Config) []pkgs.Package {
	out := make([]pkgs.Package, 0, len(snapshot))
	for _, p := range snapshot {
		if len(cfg.Sources) > 0 && !cfg.Sources[p.ID.Source] {
			continue
		}
		if !cfg.Kind.matches(p.Kind) {
			continue
		}
		out = append(out, p)
	}

	if q := strings.TrimSpace(cfg.Search); q != "" {
		out = rankMatches(out, q)
	}

	sortView(out, cfg)
	return out
}

// rankMatches drops packages whose name does not fuzzy-match the query
// and pre-orders the survivors by descending score.
func rankMatches(in []pkgs.Package, q string) []pkgs.Package {
	type scored struct {
		p     pkgs.Package
		score int
	}
	matches := make([]scored, 0, len(in))
	for _, p := range in {
		if s, ok := Score(q, p.Name); ok {
			matches = append(matches, scored{p: p, score: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return rankTie(q, matches[i].p.Name, matches[j].p.Name)
	})
	out := make([]pkgs.Package, len(matches))
	for i, m := range matches {
		out[i] = m.p
	}
	return out
}

func sortView(view []pkgs.Package, cfg Config) {
	sort.SliceStable(view, func(i, j int) bool {
		a, b := view[i], view[j]
		var less, equal bool
		switch cfg.SortKey {
		case SortByName:
			an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
			less, equal = an < bn, an == bn
		case SortBySource:
			less = a.ID.Source.Rank() < b.ID.Source.Rank()
			equal = a.ID.Source == b.ID.Source
		default:
			less, equal = a.SizeBytes < b.SizeBytes, a.SizeBytes == b.SizeBytes
		}
		if equal {
			// fixed tie-break, independent of direction
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
		if cfg.Descending {
			return !less
		}
		return less
	})
}
