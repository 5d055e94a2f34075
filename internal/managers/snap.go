package managers

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

// Snap manages snap packages. Sizes come from the mounted squashfs
// under /snap because `snap list` does not report them.
type Snap struct {
	run   Runner
	diags diagnostics
	// desktopGlob locates the launchers snapd exports for GUI snaps.
	desktopGlob string
}

func NewSnap(r Runner) *Snap {
	return &Snap{run: r, desktopGlob: "/var/lib/snapd/desktop/applications/%s_*.desktop"}
}

func (s *Snap) Source() pkgs.Source { return pkgs.SourceSnap }

func (s *Snap) Available(ctx context.Context) bool { return s.run.Look("snap") }

func (s *Snap) Diagnostics() []string { return s.diags.Take() }

func (s *Snap) Enumerate(ctx context.Context, emit func(pkgs.Package)) error {
	if !s.Available(ctx) {
		return pkgs.NewError(pkgs.FailUnavailable, pkgs.SourceSnap, "enumerate", nil)
	}

	out, err := s.run.Output(ctx, pkgs.SourceSnap, "enumerate", "snap", "list")
	if err != nil {
		return err
	}

	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // header
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			s.diags.record("snap: malformed list record %q", line)
			continue
		}
		name := fields[0]
		if isBaseSnap(name) {
			continue
		}
		p := pkgs.Package{
			ID:        pkgs.Identity{Source: pkgs.SourceSnap, LocalID: name},
			Name:      name,
			Version:   fields[1],
			SizeBytes: s.installedSize(ctx, name),
			Kind:      s.detectKind(name),
		}
		if summary := s.summary(ctx, name); summary != "" {
			p.Description = summary
		}
		emit(p)
	}
	return nil
}

// isBaseSnap filters runtime snaps the user never installed directly.
func isBaseSnap(name string) bool {
	return name == "snapd" || strings.HasPrefix(name, "core") || strings.HasPrefix(name, "bare")
}

func (s *Snap) installedSize(ctx context.Context, name string) uint64 {
	out, err := s.run.Output(ctx, pkgs.SourceSnap, "enumerate", "du", "-sb", "/snap/"+name+"/current")
	if err != nil {
		return 0
	}
	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0
	}
	n, _ := strconv.ParseUint(fields[0], 10, 64)
	return n
}

// summary is a best-effort fetch of the one-line description from
// `snap info`; failures leave the description empty.
func (s *Snap) summary(ctx context.Context, name string) string {
	out, err := s.run.Output(ctx, pkgs.SourceSnap, "enumerate", "snap", "info", name)
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "summary:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "summary:"))
		}
	}
	return ""
}

var knownGUISnaps = []string{
	"firefox", "chromium", "vlc", "spotify", "slack", "discord",
	"code", "sublime-text", "gimp", "inkscape", "blender",
}

func (s *Snap) detectKind(name string) pkgs.Kind {
	if matches, err := filepath.Glob(strings.Replace(s.desktopGlob, "%s", name, 1)); err == nil && len(matches) > 0 {
		return pkgs.KindGUI
	}
	for _, known := range knownGUISnaps {
		if strings.Contains(name, known) {
			return pkgs.KindGUI
		}
	}
	return pkgs.KindUnknown
}

func (s *Snap) Uninstall(ctx context.Context, p pkgs.Package) error {
	return s.run.Run(ctx, pkgs.SourceSnap, "uninstall", "pkexec", "snap", "remove", p.ID.LocalID)
}

// CheckUpdate looks the package up in `snap refresh --list`; absence
// from the listing means it is current.
func (s *Snap) CheckUpdate(ctx context.Context, p pkgs.Package) (string, bool, error) {
	out, err := s.run.Output(ctx, pkgs.SourceSnap, "check-update", "snap", "refresh", "--list")
	if err != nil {
		return "", false, err
	}
	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[0] == p.ID.LocalID {
			return fields[1], true, nil
		}
	}
	return "", false, nil
}

func (s *Snap) Update(ctx context.Context, p pkgs.Package) error {
	return s.run.Run(ctx, pkgs.SourceSnap, "update", "pkexec", "snap", "refresh", p.ID.LocalID)
}
