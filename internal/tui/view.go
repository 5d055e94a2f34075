package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/khurrambhutto/scope/internal/pkgs"
	"github.com/khurrambhutto/scope/internal/query"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Underline(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	updateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1)
	errorBarStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("124")).Padding(0, 1)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	promptStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).BorderForeground(lipgloss.Color("212"))
	detailStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)

	sourceStyles = map[pkgs.Source]lipgloss.Style{
		pkgs.SourceApt:      lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
		pkgs.SourceSnap:     lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		pkgs.SourceFlatpak:  lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		pkgs.SourceAppImage: lipgloss.NewStyle().Foreground(lipgloss.Color("201")),
	}
)

var tabLabels = []string{"All", "APT", "Snap", "Flatpak", "AppImage"}

func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(a.renderHeader())
	b.WriteByte('\n')

	if a.confirm != nil {
		b.WriteString(promptStyle.Render(a.confirm.prompt))
		b.WriteByte('\n')
	}
	if a.detail {
		b.WriteString(a.renderDetail())
		b.WriteByte('\n')
	} else {
		b.WriteString(a.renderList())
	}

	b.WriteString(a.renderStatusBar())
	b.WriteByte('\n')
	b.WriteString(footerStyle.Render(a.renderFooter()))
	return b.String()
}

func (a *App) renderHeader() string {
	var tabs []string
	for i, label := range tabLabels {
		if i == a.tab {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	title := titleStyle.Render("scope")
	line := title + "  " + strings.Join(tabs, "")
	if a.searching || a.view.Search != "" {
		line += "  " + a.search.View()
	}
	return line
}

func (a *App) renderList() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-32s %-18s %10s  %-8s %-4s %s",
		"NAME", "VERSION", "SIZE", "SOURCE", "KIND", "UPDATE")))
	b.WriteByte('\n')

	visible := a.pageSize()
	start := 0
	if a.cursor >= visible {
		start = a.cursor - visible + 1
	}
	end := start + visible
	if end > len(a.rows) {
		end = len(a.rows)
	}

	for i := start; i < end; i++ {
		p := a.rows[i]
		line := fmt.Sprintf("  %-32s %-18s %10s  %-8s %-4s %s",
			clip(p.Name, 32), clip(p.Version, 18), p.HumanSize(),
			sourceStyles[p.ID.Source].Render(string(p.ID.Source)),
			p.Kind, a.renderMarker(p))
		if i == a.cursor {
			line = selectedStyle.Render("> " + strings.TrimPrefix(line, "  "))
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if len(a.rows) == 0 {
		b.WriteString(footerStyle.Render("  no packages match"))
		b.WriteByte('\n')
	}
	return b.String()
}

func (a *App) renderMarker(p pkgs.Package) string {
	switch p.Action.Phase {
	case pkgs.ActionPending:
		return a.spin.View()
	case pkgs.ActionFailed:
		return failedStyle.Render("! " + p.Action.Reason)
	}
	switch p.Update.Phase {
	case pkgs.UpdateChecking:
		return a.spin.View()
	case pkgs.UpdateAvailable:
		return updateStyle.Render("↑ " + p.Update.Version)
	case pkgs.UpToDate:
		return "up to date"
	}
	return ""
}

func (a *App) renderDetail() string {
	p := a.selected()
	if p == nil {
		return ""
	}
	lines := []string{
		titleStyle.Render(p.Name),
		"version:  " + p.Version,
		"size:     " + p.HumanSize(),
		"source:   " + string(p.ID.Source),
		"kind:     " + p.Kind.String(),
	}
	if p.InstallPath != "" {
		lines = append(lines, "path:     "+p.InstallPath)
	}
	if p.Description != "" {
		lines = append(lines, "", p.Description)
	}
	if p.Update.Phase == pkgs.UpdateAvailable {
		lines = append(lines, "", updateStyle.Render("update available: "+p.Update.Version))
	}
	if p.Action.Phase == pkgs.ActionFailed {
		lines = append(lines, "", failedStyle.Render("last action failed: "+p.Action.Reason))
	}
	return detailStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderStatusBar() string {
	left := a.status
	if len(a.scanning) > 0 {
		var srcs []string
		for src := range a.scanning {
			srcs = append(srcs, string(src))
		}
		sort.Strings(srcs)
		left = a.spin.View() + " scanning: " + strings.Join(srcs, ", ")
	} else if a.checking {
		left = a.spin.View() + " checking updates..."
	}
	right := fmt.Sprintf("%d/%d  sort: %s %s", len(a.rows), a.store.Len(),
		a.view.SortKey.Label(), direction(a.view.Descending))
	if a.view.Kind != query.KindAll {
		right += "  " + a.view.Kind.Label()
	}

	style := statusBarStyle
	if a.statusErr {
		style = errorBarStyle
	}
	return style.Render(left) + "  " + footerStyle.Render(right)
}

func (a *App) renderFooter() string {
	if a.confirm != nil {
		return "y confirm · esc cancel"
	}
	if a.searching {
		return "enter/esc done · ctrl+u clear"
	}
	return "↑/↓ move · / search · tab source · f kind · s sort · o order · enter details · d uninstall · c check · u update · r rescan · q quit"
}

func direction(desc bool) string {
	if desc {
		return "↓"
	}
	return "↑"
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
