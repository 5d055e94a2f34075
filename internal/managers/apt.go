package managers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

// dpkg-query listing format: name, version, installed size in KiB,
// one-line summary, tab separated.
const dpkgListFormat = "${Package}\t${Version}\t${Installed-Size}\t${binary:Summary}\n"

// Apt manages Debian packages through dpkg-query/apt. Mutations go
// through pkexec because apt holds a root-only dpkg lock.
type Apt struct {
	run   Runner
	diags diagnostics
	// desktopDirs are probed for NAME.desktop when classifying a
	// package as GUI.
	desktopDirs []string
}

func NewApt(r Runner) *Apt {
	return &Apt{run: r, desktopDirs: []string{"/usr/share/applications"}}
}

func (a *Apt) Source() pkgs.Source { return pkgs.SourceApt }

func (a *Apt) Available(ctx context.Context) bool { return a.run.Look("dpkg-query") }

// Diagnostics returns and clears per-record parse problems from the
// last enumeration.
func (a *Apt) Diagnostics() []string { return a.diags.Take() }

func (a *Apt) Enumerate(ctx context.Context, emit func(pkgs.Package)) error {
	if !a.Available(ctx) {
		return pkgs.NewError(pkgs.FailUnavailable, pkgs.SourceApt, "enumerate", nil)
	}

	out, err := a.run.Output(ctx, pkgs.SourceApt, "enumerate", "dpkg-query", "-W", "-f="+dpkgListFormat)
	if err != nil {
		return err
	}

	manual := a.manualSet(ctx)

	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		p, ok := a.parseListLine(line)
		if !ok {
			continue
		}
		// apt-mark filters out pure dependencies; an empty set means the
		// probe failed, in which case everything is kept.
		if len(manual) > 0 && !manual[p.Name] {
			continue
		}
		p.Kind = a.detectKind(ctx, p.Name)
		emit(p)
	}
	return nil
}

func (a *Apt) parseListLine(line string) (pkgs.Package, bool) {
	parts := strings.Split(line, "\t")
	if len(parts) < 4 {
		a.diags.record("apt: malformed dpkg-query record %q", line)
		return pkgs.Package{}, false
	}
	sizeKiB, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		a.diags.record("apt: bad installed-size for %s: %v", parts[0], err)
		sizeKiB = 0
	}
	return pkgs.Package{
		ID:          pkgs.Identity{Source: pkgs.SourceApt, LocalID: parts[0]},
		Name:        parts[0],
		Version:     parts[1],
		SizeBytes:   sizeKiB * 1024,
		Description: strings.Join(parts[3:], " "),
	}, true
}

// manualSet returns apt-mark showmanual output as a set; failure of the
// probe is non-fatal and yields an empty set.
func (a *Apt) manualSet(ctx context.Context) map[string]bool {
	out, err := a.run.Output(ctx, pkgs.SourceApt, "enumerate", "apt-mark", "showmanual")
	if err != nil {
		return nil
	}
	set := make(map[string]bool)
	for _, name := range strings.Fields(out) {
		set[name] = true
	}
	return set
}

var guiDepMarkers = []string{"libgtk", "libqt", "libx11", "wayland", "libgl"}

var cliNameAffixes = []string{"lib", "dev", "doc", "data", "common", "core", "base", "utils"}

func (a *Apt) detectKind(ctx context.Context, name string) pkgs.Kind {
	for _, dir := range a.desktopDirs {
		for _, candidate := range []string{name, strings.ToLower(name)} {
			if _, err := os.Stat(fmt.Sprintf("%s/%s.desktop", dir, candidate)); err == nil {
				return pkgs.KindGUI
			}
		}
	}

	if deps, err := a.run.Output(ctx, pkgs.SourceApt, "enumerate", "dpkg-query", "-W", "-f=${Depends}", name); err == nil {
		deps = strings.ToLower(deps)
		for _, marker := range guiDepMarkers {
			if strings.Contains(deps, marker) {
				return pkgs.KindGUI
			}
		}
	}

	for _, affix := range cliNameAffixes {
		if strings.HasPrefix(name, affix) || strings.HasSuffix(name, affix) {
			return pkgs.KindCLI
		}
	}
	return pkgs.KindUnknown
}

func (a *Apt) Uninstall(ctx context.Context, p pkgs.Package) error {
	return a.run.Run(ctx, pkgs.SourceApt, "uninstall", "pkexec", "apt", "remove", "-y", p.ID.LocalID)
}

// CheckUpdate compares the installed and candidate versions reported by
// apt-cache policy.
func (a *Apt) CheckUpdate(ctx context.Context, p pkgs.Package) (string, bool, error) {
	out, err := a.run.Output(ctx, pkgs.SourceApt, "check-update", "apt-cache", "policy", p.ID.LocalID)
	if err != nil {
		return "", false, err
	}

	var installed, candidate string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Installed:"):
			installed = strings.TrimSpace(strings.TrimPrefix(line, "Installed:"))
		case strings.HasPrefix(line, "Candidate:"):
			candidate = strings.TrimSpace(strings.TrimPrefix(line, "Candidate:"))
		}
	}
	if candidate == "" || candidate == "(none)" {
		return "", false, nil
	}
	return candidate, installed != candidate, nil
}

func (a *Apt) Update(ctx context.Context, p pkgs.Package) error {
	return a.run.Run(ctx, pkgs.SourceApt, "update", "pkexec", "apt", "install", "-y", "--only-upgrade", p.ID.LocalID)
}
