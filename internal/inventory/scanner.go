package inventory

import (
	"context"
	"sync"

	"github.com/khurrambhutto/scope/internal/managers"
	"github.com/khurrambhutto/scope/internal/pkgs"
)

// Event reports scan progress so the UI can show per-source activity
// and stop its scanning indicator once the refresh settles.
type Event struct {
	Kind   EventKind
	Source pkgs.Source
	Gen    uint64
	Err    error
	// Stale is set on Settled when a newer refresh superseded this one
	// while it was in flight.
	Stale bool
}

type EventKind int

const (
	// SourceStarted: one adapter began enumerating.
	SourceStarted EventKind = iota
	// SourceDone: one adapter finished (Err holds an unavailable or
	// enumeration failure; either way the other sources continue).
	SourceDone
	// Settled: every adapter signalled end-of-sequence for this
	// generation.
	Settled
)

// Scanner coordinates full-inventory refreshes: it runs every adapter
// concurrently, tags each emitted package with the generation current
// at launch, and streams them into the store's merge point.
type Scanner struct {
	store    *Store
	managers []managers.Manager
}

func NewScanner(store *Store, mgrs []managers.Manager) *Scanner {
	return &Scanner{store: store, managers: mgrs}
}

// Refresh starts a new scan generation and returns its event stream.
// Starting another refresh before this one completes supersedes it:
// the running adapters are not interrupted, but every late result they
// emit carries the stale generation and is dropped at the merge point,
// and the superseded refresh finalizes nothing.
//
// The event channel is buffered for the whole refresh and always
// closed, so callers may drain it lazily or abandon it.
func (s *Scanner) Refresh(ctx context.Context) (uint64, <-chan Event) {
	gen := s.store.BeginGeneration()
	events := make(chan Event, 2*len(s.managers)+1)

	var wg sync.WaitGroup
	for _, mgr := range s.managers {
		wg.Add(1)
		go func(m managers.Manager) {
			defer wg.Done()
			events <- Event{Kind: SourceStarted, Source: m.Source(), Gen: gen}
			err := m.Enumerate(ctx, func(p pkgs.Package) {
				s.store.Merge(p, gen)
			})
			events <- Event{Kind: SourceDone, Source: m.Source(), Gen: gen, Err: err}
		}(mgr)
	}

	go func() {
		wg.Wait()
		stale := s.store.Generation() != gen
		if !stale {
			s.store.FinalizeGeneration(gen)
		}
		events <- Event{Kind: Settled, Gen: gen, Stale: stale}
		close(events)
	}()

	return gen, events
}
