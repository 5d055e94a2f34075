package managers

import (
	"context"
	"strconv"
	"strings"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

// Flatpak manages flatpak applications. Runtimes are excluded; the
// application ID is the identity because display names are not unique.
type Flatpak struct {
	run   Runner
	diags diagnostics
}

func NewFlatpak(r Runner) *Flatpak { return &Flatpak{run: r} }

func (f *Flatpak) Source() pkgs.Source { return pkgs.SourceFlatpak }

func (f *Flatpak) Available(ctx context.Context) bool { return f.run.Look("flatpak") }

func (f *Flatpak) Diagnostics() []string { return f.diags.Take() }

func (f *Flatpak) Enumerate(ctx context.Context, emit func(pkgs.Package)) error {
	if !f.Available(ctx) {
		return pkgs.NewError(pkgs.FailUnavailable, pkgs.SourceFlatpak, "enumerate", nil)
	}

	out, err := f.run.Output(ctx, pkgs.SourceFlatpak, "enumerate",
		"flatpak", "list", "--app", "--columns=name,application,version,size,description")
	if err != nil {
		return err
	}

	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			f.diags.record("flatpak: malformed list record %q", line)
			continue
		}
		p := pkgs.Package{
			ID:          pkgs.Identity{Source: pkgs.SourceFlatpak, LocalID: parts[1]},
			Name:        parts[0],
			Version:     parts[2],
			SizeBytes:   parseHumanSize(parts[3]),
			InstallPath: parts[1],
			// flatpak distributes desktop applications
			Kind: pkgs.KindGUI,
		}
		if len(parts) > 4 {
			p.Description = parts[4]
		}
		emit(p)
	}
	return nil
}

func (f *Flatpak) Uninstall(ctx context.Context, p pkgs.Package) error {
	return f.run.Run(ctx, pkgs.SourceFlatpak, "uninstall", "flatpak", "uninstall", "-y", p.ID.LocalID)
}

func (f *Flatpak) CheckUpdate(ctx context.Context, p pkgs.Package) (string, bool, error) {
	out, err := f.run.Output(ctx, pkgs.SourceFlatpak, "check-update",
		"flatpak", "remote-ls", "--updates", "--app", "--columns=application,version")
	if err != nil {
		return "", false, err
	}
	for _, line := range strings.Split(out, "\n") {
		parts := strings.Split(line, "\t")
		if len(parts) >= 2 && parts[0] == p.ID.LocalID {
			return parts[1], true, nil
		}
	}
	return "", false, nil
}

func (f *Flatpak) Update(ctx context.Context, p pkgs.Package) error {
	return f.run.Run(ctx, pkgs.SourceFlatpak, "update", "flatpak", "update", "-y", p.ID.LocalID)
}

// parseHumanSize converts strings like "1.2 GB" or "636,1 MB" to bytes.
// flatpak prints decimal-prefixed units but sizes here only feed sorting
// and display, so binary multipliers keep all sources comparable.
func parseHumanSize(s string) uint64 {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0
	}
	number, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
	if err != nil {
		return 0
	}
	unit := "B"
	if len(fields) > 1 {
		unit = strings.ToUpper(fields[1])
	}
	var mult float64
	switch unit {
	case "B":
		mult = 1
	case "KB", "K", "KIB":
		mult = 1 << 10
	case "MB", "M", "MIB":
		mult = 1 << 20
	case "GB", "G", "GIB":
		mult = 1 << 30
	case "TB", "T", "TIB":
		mult = 1 << 40
	default:
		mult = 1
	}
	return uint64(number * mult)
}
