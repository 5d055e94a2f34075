package query

import (
	"testing"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

func pkg(src pkgs.Source, name string, size uint64, kind pkgs.Kind) pkgs.Package {
	return pkgs.Package{
		ID:        pkgs.Identity{Source: src, LocalID: name},
		Name:      name,
		SizeBytes: size,
		Kind:      kind,
	}
}

func names(view []pkgs.Package) []string {
	out := make([]string, len(view))
	for i, p := range view {
		out[i] = p.Name
	}
	return out
}

func equalNames(t *testing.T, view []pkgs.Package, want ...string) {
	t.Helper()
	got := names(view)
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %v, want %v", i, got, want)
		}
	}
}

func TestApplyDefaultSizeDescending(t *testing.T) {
	snapshot := []pkgs.Package{
		pkg(pkgs.SourceApt, "docker.io", 104<<20, pkgs.KindCLI),
		pkg(pkgs.SourceSnap, "code", 710<<20, pkgs.KindGUI),
		pkg(pkgs.SourceFlatpak, "gimp", 636<<20, pkgs.KindGUI),
	}
	equalNames(t, Apply(snapshot, DefaultConfig()), "code", "gimp", "docker.io")
}

func TestApplySortAscending(t *testing.T) {
	snapshot := []pkgs.Package{
		pkg(pkgs.SourceApt, "big", 300, 0),
		pkg(pkgs.SourceApt, "small", 100, 0),
	}
	cfg := Config{SortKey: SortBySize}
	equalNames(t, Apply(snapshot, cfg), "small", "big")
}

func TestApplyTieBreakIsAscendingNameBothDirections(t *testing.T) {
	snapshot := []pkgs.Package{
		pkg(pkgs.SourceApt, "zeta", 100, 0),
		pkg(pkgs.SourceApt, "alpha", 100, 0),
		pkg(pkgs.SourceApt, "mid", 100, 0),
	}
	equalNames(t, Apply(snapshot, Config{SortKey: SortBySize, Descending: true}),
		"alpha", "mid", "zeta")
	equalNames(t, Apply(snapshot, Config{SortKey: SortBySize}),
		"alpha", "mid", "zeta")
}

func TestApplySourceFilter(t *testing.T) {
	snapshot := []pkgs.Package{
		pkg(pkgs.SourceApt, "curl", 100, 0),
		pkg(pkgs.SourceSnap, "firefox", 200, 0),
		pkg(pkgs.SourceFlatpak, "gimp", 300, 0),
	}
	cfg := DefaultConfig()
	cfg.Sources = map[pkgs.Source]bool{pkgs.SourceSnap: true}
	equalNames(t, Apply(snapshot, cfg), "firefox")

	cfg.Sources = nil
	if len(Apply(snapshot, cfg)) != 3 {
		t.Fatal("empty source set must pass everything")
	}
}

func TestApplyKindFilter(t *testing.T) {
	snapshot := []pkgs.Package{
		pkg(pkgs.SourceApt, "curl", 100, pkgs.KindCLI),
		pkg(pkgs.SourceSnap, "firefox", 200, pkgs.KindGUI),
		pkg(pkgs.SourceApt, "mystery", 300, pkgs.KindUnknown),
	}
	cfg := Config{Kind: KindGUIOnly, SortKey: SortByName}
	equalNames(t, Apply(snapshot, cfg), "firefox")

	cfg.Kind = KindCLIOnly
	equalNames(t, Apply(snapshot, cfg), "curl")

	cfg.Kind = KindAll
	if len(Apply(snapshot, cfg)) != 3 {
		t.Fatal("KindAll must pass unknown kinds too")
	}
}

func TestApplySearchFiltersNonMatches(t *testing.T) {
	snapshot := []pkgs.Package{
		pkg(pkgs.SourceApt, "google-chrome", 500, 0),
		pkg(pkgs.SourceApt, "docker.io", 100, 0),
		pkg(pkgs.SourceSnap, "chromium", 400, 0),
	}
	cfg := DefaultConfig()
	cfg.Search = "chr"
	got := names(Apply(snapshot, cfg))
	if len(got) != 2 {
		t.Fatalf("expected chrome and chromium only, got %v", got)
	}
	for _, n := range got {
		if n == "docker.io" {
			t.Fatal("docker.io has no 'h' and must not survive the search")
		}
	}
}

func TestApplyIsPureAndIdempotent(t *testing.T) {
	snapshot := []pkgs.Package{
		pkg(pkgs.SourceApt, "b", 200, 0),
		pkg(pkgs.SourceApt, "a", 100, 0),
	}
	cfg := DefaultConfig()

	first := Apply(snapshot, cfg)
	second := Apply(snapshot, cfg)
	equalNames(t, first, "b", "a")
	equalNames(t, second, "b", "a")

	if snapshot[0].Name != "b" || snapshot[1].Name != "a" {
		t.Fatal("Apply must not reorder the input snapshot")
	}
}

func TestApplySortBySourceRank(t *testing.T) {
	snapshot := []pkgs.Package{
		pkg(pkgs.SourceAppImage, "krita", 10, 0),
		pkg(pkgs.SourceApt, "curl", 20, 0),
		pkg(pkgs.SourceFlatpak, "gimp", 30, 0),
		pkg(pkgs.SourceSnap, "firefox", 40, 0),
	}
	cfg := Config{SortKey: SortBySource}
	equalNames(t, Apply(snapshot, cfg), "curl", "firefox", "gimp", "krita")
}

func TestKindFilterCycle(t *testing.T) {
	f := KindAll
	seen := map[KindFilter]bool{f: true}
	for i := 0; i < 2; i++ {
		f = f.Next()
		seen[f] = true
	}
	if len(seen) != 3 || f.Next() != KindAll {
		t.Fatal("Next must cycle through all three filters")
	}
}
