package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/khurrambhutto/scope/internal/inventory"
	"github.com/khurrambhutto/scope/internal/pkgs"
)

type scanEventMsg struct {
	ev     inventory.Event
	events <-chan inventory.Event
}

type actionDoneMsg struct {
	kind inventory.ActionKind
	id   pkgs.Identity
	name string
	err  error
}

type checkDoneMsg struct{ count int }

type watchMsg struct{}

// waitForScanEvent reads one coordinator event; Update re-arms it until
// the channel closes.
func waitForScanEvent(events <-chan inventory.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return scanEventMsg{ev: ev, events: events}
	}
}

func (a *App) startRefresh() tea.Cmd {
	gen, events := a.scanner.Refresh(context.Background())
	a.scanGen = gen
	a.scanning = make(map[pkgs.Source]bool)
	for _, m := range a.managers {
		a.scanning[m.Source()] = true
	}
	return waitForScanEvent(events)
}

func (a *App) uninstallCmd(id pkgs.Identity) tea.Cmd {
	name := id.LocalID
	if p, ok := a.store.Get(id); ok {
		name = p.Name
	}
	return func() tea.Msg {
		ctx, cancel := a.mutationContext()
		defer cancel()
		err := a.exec.Uninstall(ctx, id)
		return actionDoneMsg{kind: inventory.ActionUninstall, id: id, name: name, err: err}
	}
}

func (a *App) updateCmd(id pkgs.Identity) tea.Cmd {
	name := id.LocalID
	if p, ok := a.store.Get(id); ok {
		name = p.Name
	}
	return func() tea.Msg {
		ctx, cancel := a.mutationContext()
		defer cancel()
		err := a.exec.Update(ctx, id)
		return actionDoneMsg{kind: inventory.ActionUpdate, id: id, name: name, err: err}
	}
}

func (a *App) checkUpdatesCmd(ids []pkgs.Identity) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := a.mutationContext()
		defer cancel()
		a.exec.CheckUpdates(ctx, ids)
		return checkDoneMsg{count: len(ids)}
	}
}

// waitForWatch surfaces AppImage directory changes as refresh triggers.
func (a *App) waitForWatch() tea.Cmd {
	if a.watcher == nil {
		return nil
	}
	ch := a.watcher.C
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return watchMsg{}
	}
}
