package inventory

import (
	"testing"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	t.Cleanup(s.Close)
	return s
}

func aptPkg(name, version string) pkgs.Package {
	return pkgs.Package{
		ID:      pkgs.Identity{Source: pkgs.SourceApt, LocalID: name},
		Name:    name,
		Version: version,
	}
}

func TestStoreMergeReplacesByIdentity(t *testing.T) {
	s := newTestStore(t)
	gen := s.BeginGeneration()

	if !s.Merge(aptPkg("htop", "3.2.2"), gen) {
		t.Fatal("current-generation merge should be accepted")
	}
	if !s.Merge(aptPkg("htop", "3.3.0"), gen) {
		t.Fatal("re-merge of the same identity should be accepted")
	}
	if s.Len() != 1 {
		t.Fatalf("identity must be unique, got %d records", s.Len())
	}
	p, ok := s.Get(pkgs.Identity{Source: pkgs.SourceApt, LocalID: "htop"})
	if !ok || p.Version != "3.3.0" {
		t.Fatalf("latest merge should win, got %+v", p)
	}
}

func TestStoreMergeRejectsStaleGeneration(t *testing.T) {
	s := newTestStore(t)
	old := s.BeginGeneration()
	s.BeginGeneration()

	if s.Merge(aptPkg("htop", "3.2.2"), old) {
		t.Fatal("merge tagged with a superseded generation must be dropped")
	}
	if s.Len() != 0 {
		t.Fatalf("store should stay empty, got %d", s.Len())
	}
}

func TestStoreFinalizePrunesUnconfirmed(t *testing.T) {
	s := newTestStore(t)

	gen1 := s.BeginGeneration()
	s.Merge(aptPkg("htop", "3.2.2"), gen1)
	s.Merge(aptPkg("curl", "8.5.0"), gen1)
	s.FinalizeGeneration(gen1)

	// curl was uninstalled outside the tool; only htop reappears
	gen2 := s.BeginGeneration()
	s.Merge(aptPkg("htop", "3.2.2"), gen2)
	s.FinalizeGeneration(gen2)

	if s.Len() != 1 {
		t.Fatalf("unconfirmed record should be pruned, got %d", s.Len())
	}
	if _, ok := s.Get(pkgs.Identity{Source: pkgs.SourceApt, LocalID: "curl"}); ok {
		t.Fatal("curl should be gone after finalize")
	}
}

func TestStoreSupersededGenerationFinalizesNothing(t *testing.T) {
	s := newTestStore(t)

	gen1 := s.BeginGeneration()
	s.Merge(aptPkg("htop", "3.2.2"), gen1)
	s.FinalizeGeneration(gen1)

	gen2 := s.BeginGeneration()
	gen3 := s.BeginGeneration()
	s.Merge(aptPkg("htop", "3.3.0"), gen3)

	// the superseded refresh settles late; it must not prune gen3 state
	s.FinalizeGeneration(gen2)

	if s.Len() != 1 {
		t.Fatalf("late finalize of a stale generation must be a no-op, got %d records", s.Len())
	}
}

func TestStoreMutatePreservesIdentity(t *testing.T) {
	s := newTestStore(t)
	gen := s.BeginGeneration()
	s.Merge(aptPkg("htop", "3.2.2"), gen)

	id := pkgs.Identity{Source: pkgs.SourceApt, LocalID: "htop"}
	ok := s.Mutate(id, func(p *pkgs.Package) {
		p.Update = pkgs.UpdateState{Phase: pkgs.UpdateAvailable, Version: "3.3.0"}
		p.ID = pkgs.Identity{Source: pkgs.SourceSnap, LocalID: "hijack"}
	})
	if !ok {
		t.Fatal("mutate of an existing record should succeed")
	}

	p, ok := s.Get(id)
	if !ok {
		t.Fatal("record should still be reachable under its identity")
	}
	if p.ID != id {
		t.Fatalf("identity must survive mutation, got %v", p.ID)
	}
	if p.Update.Version != "3.3.0" {
		t.Fatal("the rest of the mutation should apply")
	}

	if s.Mutate(pkgs.Identity{Source: pkgs.SourceApt, LocalID: "absent"}, func(*pkgs.Package) {}) {
		t.Fatal("mutate of a missing record should report false")
	}
}

func TestStoreSnapshotDeterministicOrder(t *testing.T) {
	s := newTestStore(t)
	gen := s.BeginGeneration()
	s.Merge(pkgs.Package{ID: pkgs.Identity{Source: pkgs.SourceSnap, LocalID: "firefox"}}, gen)
	s.Merge(aptPkg("zsh", "5.9"), gen)
	s.Merge(aptPkg("curl", "8.5.0"), gen)
	s.Merge(pkgs.Package{ID: pkgs.Identity{Source: pkgs.SourceFlatpak, LocalID: "org.gimp.GIMP"}}, gen)

	first := s.Snapshot()
	second := s.Snapshot()
	if len(first) != 4 || len(second) != 4 {
		t.Fatalf("expected 4 records, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatal("snapshots of identical content must have identical order")
		}
	}
	want := []string{"curl", "zsh", "firefox", "org.gimp.GIMP"}
	for i, name := range want {
		if first[i].ID.LocalID != name {
			t.Fatalf("position %d: got %s, want %s", i, first[i].ID.LocalID, name)
		}
	}
}

func TestStoreOpsAfterClose(t *testing.T) {
	s := NewStore()
	gen := s.BeginGeneration()
	s.Close()
	s.Close() // idempotent

	if s.Merge(aptPkg("htop", "3.2.2"), gen) {
		t.Fatal("merge after close should be a dropped no-op")
	}
	if s.Len() != 0 {
		t.Fatal("closed store reports empty")
	}
}

func TestStoreConcurrentMerges(t *testing.T) {
	s := newTestStore(t)
	gen := s.BeginGeneration()

	done := make(chan struct{})
	for w := 0; w < 8; w++ {
		go func(w int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 50; i++ {
				s.Merge(aptPkg("htop", "3.2.2"), gen)
				s.Merge(pkgs.Package{ID: pkgs.Identity{Source: pkgs.SourceSnap, LocalID: "firefox"}}, gen)
			}
		}(w)
	}
	for w := 0; w < 8; w++ {
		<-done
	}
	if s.Len() != 2 {
		t.Fatalf("concurrent merges of two identities must yield two records, got %d", s.Len())
	}
}
