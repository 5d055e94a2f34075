// Package managers wraps the external package managers (APT, Snap,
// Flatpak, AppImage) behind one capability contract. Each adapter
// isolates one manager's command syntax, output parsing, and failure
// modes; the rest of the application depends only on Manager.
package managers

import (
	"context"
	"fmt"
	"sync"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

// Manager is the capability contract every backend satisfies.
//
// Enumerate streams each discovered package through emit, in the
// manager's native listing order, and is restartable by calling it
// again. A manager that is absent on the host returns a
// pkgs.FailUnavailable error without emitting anything; individual
// malformed records are skipped and recorded as diagnostics instead of
// aborting the pass.
//
// Uninstall, CheckUpdate and Update act on a single package and return
// a typed *pkgs.Error on failure. They may require elevated privilege;
// adapters never retry internally.
type Manager interface {
	Source() pkgs.Source
	Available(ctx context.Context) bool
	Enumerate(ctx context.Context, emit func(pkgs.Package)) error
	Uninstall(ctx context.Context, p pkgs.Package) error
	// CheckUpdate returns the candidate version and whether it differs
	// from the installed one.
	CheckUpdate(ctx context.Context, p pkgs.Package) (string, bool, error)
	Update(ctx context.Context, p pkgs.Package) error
}

// All constructs the four production adapters sharing one runner.
// appImageDirs lists the file-drop directories the AppImage adapter
// scans.
func All(r Runner, appImageDirs []string) []Manager {
	return []Manager{
		NewApt(r),
		NewSnap(r),
		NewFlatpak(r),
		NewAppImage(appImageDirs),
	}
}

// BySource indexes managers for action routing.
func BySource(all []Manager) map[pkgs.Source]Manager {
	m := make(map[pkgs.Source]Manager, len(all))
	for _, mgr := range all {
		m[mgr.Source()] = mgr
	}
	return m
}

// diagnostics accumulates per-record enumeration problems. Adapters
// record instead of failing so one bad line never loses the rest of a
// listing.
type diagnostics struct {
	mu      sync.Mutex
	entries []string
}

func (d *diagnostics) record(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, fmt.Sprintf(format, args...))
}

// Take returns and clears the collected diagnostics.
func (d *diagnostics) Take() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.entries
	d.entries = nil
	return out
}
