// Package inventory holds the authoritative package store, the scan
// coordinator that fills it, and the executor that mutates it.
package inventory

import (
	"sort"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

// record pairs a package with the scan generation that produced it,
// so stale results can be pruned once a newer scan settles.
type record struct {
	pkg pkgs.Package
	gen uint64
}

// Store is the single authoritative inventory, keyed by package
// identity. All mutation is applied serially by one consumer goroutine
// fed through an operation channel; concurrent producers (adapters,
// the executor) never touch the map directly, so no locking is needed
// and two merges can never interleave at the record level.
type Store struct {
	ops     chan func()
	quit    chan struct{}
	records map[pkgs.Identity]record
	gen     uint64
}

func NewStore() *Store {
	s := &Store{
		ops:     make(chan func()),
		quit:    make(chan struct{}),
		records: make(map[pkgs.Identity]record),
	}
	go s.loop()
	return s
}

func (s *Store) loop() {
	for {
		select {
		case op := <-s.ops:
			op()
		case <-s.quit:
			return
		}
	}
}

// do submits an operation and waits for the consumer to apply it.
// After Close it becomes a no-op.
func (s *Store) do(op func()) {
	done := make(chan struct{})
	select {
	case s.ops <- func() { op(); close(done) }:
		<-done
	case <-s.quit:
	}
}

// Close stops the consumer goroutine. Subsequent operations are no-ops.
func (s *Store) Close() {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
}

// BeginGeneration starts a new scan generation and returns it. Results
// tagged with any older generation are dropped by Merge from this point
// on.
func (s *Store) BeginGeneration() uint64 {
	var gen uint64
	s.do(func() {
		s.gen++
		gen = s.gen
	})
	return gen
}

// Generation returns the currently active scan generation.
func (s *Store) Generation() uint64 {
	var gen uint64
	s.do(func() { gen = s.gen })
	return gen
}

// Merge inserts or replaces a record when its generation is current;
// results from a superseded generation are silently discarded. It
// reports whether the record was accepted.
func (s *Store) Merge(p pkgs.Package, gen uint64) bool {
	accepted := false
	s.do(func() {
		if gen != s.gen {
			return
		}
		s.records[p.ID] = record{pkg: p, gen: gen}
		accepted = true
	})
	return accepted
}

// FinalizeGeneration removes every record that was not re-confirmed
// under gen: packages uninstalled outside this tool, or sources that
// stopped reporting them. A superseded generation finalizes nothing.
func (s *Store) FinalizeGeneration(gen uint64) {
	s.do(func() {
		if gen != s.gen {
			return
		}
		for id, rec := range s.records {
			if rec.gen < gen {
				delete(s.records, id)
			}
		}
	})
}

// Remove deletes one record, used after a confirmed uninstall.
func (s *Store) Remove(id pkgs.Identity) {
	s.do(func() { delete(s.records, id) })
}

// Mutate applies fn to the record with the given identity, if present.
// The identity itself must not be changed.
func (s *Store) Mutate(id pkgs.Identity, fn func(*pkgs.Package)) bool {
	ok := false
	s.do(func() {
		rec, found := s.records[id]
		if !found {
			return
		}
		fn(&rec.pkg)
		rec.pkg.ID = id
		s.records[id] = rec
		ok = true
	})
	return ok
}

// Get returns a copy of one record.
func (s *Store) Get(id pkgs.Identity) (pkgs.Package, bool) {
	var (
		p  pkgs.Package
		ok bool
	)
	s.do(func() {
		var rec record
		rec, ok = s.records[id]
		p = rec.pkg
	})
	return p, ok
}

// Snapshot returns a copy of all records in deterministic identity
// order, so identical store contents always yield identical sequences.
func (s *Store) Snapshot() []pkgs.Package {
	var out []pkgs.Package
	s.do(func() {
		out = make([]pkgs.Package, 0, len(s.records))
		for _, rec := range s.records {
			out = append(out, rec.pkg)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID.Source != out[j].ID.Source {
			return out[i].ID.Source.Rank() < out[j].ID.Source.Rank()
		}
		return out[i].ID.LocalID < out[j].ID.LocalID
	})
	return out
}

// Len reports the number of live records.
func (s *Store) Len() int {
	n := 0
	s.do(func() { n = len(s.records) })
	return n
}
