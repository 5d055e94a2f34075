// Package pkgs defines the canonical package model shared by every
// backend manager, the inventory store, and the query pipeline.
package pkgs

import "fmt"

// Source identifies the package manager a package belongs to.
type Source string

const (
	SourceApt      Source = "apt"
	SourceSnap     Source = "snap"
	SourceFlatpak  Source = "flatpak"
	SourceAppImage Source = "appimage"
)

// AllSources lists the supported sources in display/sort order.
func AllSources() []Source {
	return []Source{SourceApt, SourceSnap, SourceFlatpak, SourceAppImage}
}

// Rank returns a stable ordinal used when sorting by source.
func (s Source) Rank() int {
	switch s {
	case SourceApt:
		return 0
	case SourceSnap:
		return 1
	case SourceFlatpak:
		return 2
	case SourceAppImage:
		return 3
	}
	return 4
}

func (s Source) String() string { return string(s) }

// Identity is the unique key of a package within a scan: the manager it
// came from plus that manager's native handle (dpkg name, snap name,
// flatpak application ID, or AppImage file path).
type Identity struct {
	Source  Source
	LocalID string
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s", id.Source, id.LocalID)
}

// Kind classifies a package as a GUI or CLI application.
type Kind int

const (
	KindUnknown Kind = iota
	KindGUI
	KindCLI
)

func (k Kind) String() string {
	switch k {
	case KindGUI:
		return "GUI"
	case KindCLI:
		return "CLI"
	}
	return "???"
}

// UpdatePhase is the discriminant of UpdateState.
type UpdatePhase int

const (
	UpdateUnknown UpdatePhase = iota
	UpdateChecking
	UpToDate
	UpdateAvailable
)

// UpdateState records what is known about newer versions of a package.
// Version is set only when Phase is UpdateAvailable.
type UpdateState struct {
	Phase   UpdatePhase
	Version string
}

// ActionPhase is the discriminant of ActionState.
type ActionPhase int

const (
	ActionIdle ActionPhase = iota
	ActionPending
	ActionFailed
)

// ActionState tracks an in-flight or failed mutation against a package.
// Reason is set only when Phase is ActionFailed.
type ActionState struct {
	Phase  ActionPhase
	Reason string
}

// Package is one installed package as reconciled into the inventory.
type Package struct {
	ID          Identity
	Name        string
	Version     string
	Description string
	SizeBytes   uint64
	Kind        Kind
	// InstallPath is the on-disk location when the manager exposes one
	// (always set for AppImages, the application ID path for flatpaks).
	InstallPath string
	Update      UpdateState
	Action      ActionState
}

// HumanSize renders SizeBytes with IEC units, e.g. "710.0 MiB".
func (p Package) HumanSize() string {
	const unit = 1024
	if p.SizeBytes < unit {
		return fmt.Sprintf("%d B", p.SizeBytes)
	}
	div, exp := uint64(unit), 0
	for n := p.SizeBytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(p.SizeBytes)/float64(div), "KMGTPE"[exp])
}
