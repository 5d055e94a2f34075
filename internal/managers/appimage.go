package managers

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/khurrambhutto/scope/internal/pkgs"
)

// AppImage discovers self-contained executables by scanning well-known
// file-drop directories. There is no central registry: uninstall is
// file deletion and update is unsupported.
type AppImage struct {
	dirs     []string
	maxDepth int
	diags    diagnostics
	// launcherDir holds user .desktop files that may reference a
	// removed AppImage.
	launcherDir string
}

// DefaultAppImageDirs returns the directories scanned when the config
// does not override them.
func DefaultAppImageDirs() []string {
	dirs := []string{"/opt", "/usr/local/bin"}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, "Applications"),
			filepath.Join(home, "apps"),
			filepath.Join(home, ".local/bin"),
			filepath.Join(home, "AppImages"),
			filepath.Join(home, "Downloads"),
		)
	}
	return dirs
}

func NewAppImage(dirs []string) *AppImage {
	if len(dirs) == 0 {
		dirs = DefaultAppImageDirs()
	}
	launcher := ""
	if home, err := os.UserHomeDir(); err == nil {
		launcher = filepath.Join(home, ".local/share/applications")
	}
	return &AppImage{dirs: dirs, maxDepth: 3, launcherDir: launcher}
}

func (a *AppImage) Source() pkgs.Source { return pkgs.SourceAppImage }

// Available is always true: the adapter only inspects the filesystem.
func (a *AppImage) Available(ctx context.Context) bool { return true }

func (a *AppImage) Diagnostics() []string { return a.diags.Take() }

func (a *AppImage) Enumerate(ctx context.Context, emit func(pkgs.Package)) error {
	for _, dir := range a.dirs {
		root, err := filepath.Abs(dir)
		if err != nil {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			continue
		}
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // unreadable subtree, keep going
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if pathDepth(root, path) > a.maxDepth {
					return fs.SkipDir
				}
				return nil
			}
			if !a.isAppImage(path, d) {
				return nil
			}
			emit(a.describe(path))
			return nil
		})
		if walkErr != nil && walkErr == ctx.Err() {
			return pkgs.NewError(pkgs.FailTimeout, pkgs.SourceAppImage, "enumerate", walkErr)
		}
	}
	return nil
}

func pathDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// isAppImage accepts files with the .appimage extension, or executable
// files that begin with an ELF header.
func (a *AppImage) isAppImage(path string, d fs.DirEntry) bool {
	if strings.EqualFold(filepath.Ext(path), ".appimage") {
		return true
	}
	info, err := d.Info()
	if err != nil || info.Mode()&0o111 == 0 {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var magic [4]byte
	if _, err := f.Read(magic[:]); err != nil {
		return false
	}
	return string(magic[:]) == "\x7fELF"
}

func (a *AppImage) describe(path string) pkgs.Package {
	filename := filepath.Base(path)
	p := pkgs.Package{
		ID:          pkgs.Identity{Source: pkgs.SourceAppImage, LocalID: path},
		Name:        extractAppImageName(filename),
		Version:     extractAppImageVersion(filename),
		InstallPath: path,
		Description: "AppImage at " + path,
		// self-contained desktop applications
		Kind: pkgs.KindGUI,
	}
	if info, err := os.Stat(path); err == nil {
		p.SizeBytes = uint64(info.Size())
	}
	return p
}

var appImageVersionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`-(\d+\.\d+\.?\d*)[-_]?`),
	regexp.MustCompile(`_v?(\d+\.\d+\.?\d*)[-_]?`),
	regexp.MustCompile(`[_-](\d+\.\d+\.?\d*)$`),
}

func extractAppImageVersion(filename string) string {
	name := trimAppImageExt(filename)
	for _, re := range appImageVersionPatterns {
		if m := re.FindStringSubmatch(name); len(m) > 1 {
			return m[1]
		}
	}
	return "unknown"
}

var appImageSuffixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[-_]v?\d+\.\d+.*$`),
	regexp.MustCompile(`[-_]x86_64.*$`),
	regexp.MustCompile(`[-_]amd64.*$`),
	regexp.MustCompile(`[-_]linux.*$`),
}

func extractAppImageName(filename string) string {
	name := trimAppImageExt(filename)
	for _, re := range appImageSuffixPatterns {
		name = re.ReplaceAllString(name, "")
	}
	return name
}

func trimAppImageExt(filename string) string {
	name := strings.TrimSuffix(filename, ".AppImage")
	return strings.TrimSuffix(name, ".appimage")
}

// Uninstall deletes the AppImage file, then sweeps user launchers that
// point at it.
func (a *AppImage) Uninstall(ctx context.Context, p pkgs.Package) error {
	path := p.InstallPath
	if path == "" {
		path = p.ID.LocalID
	}
	if err := os.Remove(path); err != nil {
		kind := pkgs.FailProcess
		if os.IsPermission(err) {
			kind = pkgs.FailPermission
		}
		return pkgs.NewError(kind, pkgs.SourceAppImage, "uninstall", err)
	}
	a.removeLaunchers(path)
	return nil
}

// removeLaunchers is best effort; a stale .desktop entry is cosmetic.
func (a *AppImage) removeLaunchers(target string) {
	if a.launcherDir == "" {
		return
	}
	entries, err := os.ReadDir(a.launcherDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".desktop" {
			continue
		}
		full := filepath.Join(a.launcherDir, entry.Name())
		data, err := os.ReadFile(full)
		if err != nil {
			continue
		}
		if strings.Contains(string(data), target) {
			_ = os.Remove(full)
		}
	}
}

func (a *AppImage) CheckUpdate(ctx context.Context, p pkgs.Package) (string, bool, error) {
	return "", false, pkgs.NewError(pkgs.FailUnsupported, pkgs.SourceAppImage, "check-update", nil)
}

func (a *AppImage) Update(ctx context.Context, p pkgs.Package) error {
	return pkgs.NewError(pkgs.FailUnsupported, pkgs.SourceAppImage, "update", nil)
}
