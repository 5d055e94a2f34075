package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/khurrambhutto/scope/internal/pkgs"
	"github.com/khurrambhutto/scope/internal/query"
)

// Action is the tagged user action accepted by the dispatch boundary.
// Key handling translates key presses into Actions; anything else that
// drives the core (tests, scripting) can construct them directly.
type Action interface{ isAction() }

type MoveSelection struct{ Delta int }

// SetSourceFilter restricts the view to the given sources; empty means
// all.
type SetSourceFilter struct{ Sources []pkgs.Source }

type SetKindFilter struct{ Kind query.KindFilter }

type SetSearchText struct{ Text string }

type SetSortKey struct{ Key query.SortKey }

type ToggleSortDirection struct{}

type RequestRefresh struct{}

type RequestUninstall struct{ ID pkgs.Identity }

// RequestCheckUpdates checks the given identities; empty means the
// currently visible rows.
type RequestCheckUpdates struct{ IDs []pkgs.Identity }

type RequestUpdate struct{ ID pkgs.Identity }

type Quit struct{}

func (MoveSelection) isAction()       {}
func (SetSourceFilter) isAction()     {}
func (SetKindFilter) isAction()       {}
func (SetSearchText) isAction()       {}
func (SetSortKey) isAction()          {}
func (ToggleSortDirection) isAction() {}
func (RequestRefresh) isAction()      {}
func (RequestUninstall) isAction()    {}
func (RequestCheckUpdates) isAction() {}
func (RequestUpdate) isAction()       {}
func (Quit) isAction()                {}

// View is the snapshot Dispatch returns to the presentation layer.
type View struct {
	Rows     []pkgs.Package
	Cursor   int
	Total    int
	Scanning bool
	Config   query.Config
}

// Dispatch is the single entry point between the presentation layer and
// the core: it applies one tagged action and returns the updated view
// snapshot plus any follow-up work, or a reportable error. It never
// terminates the process.
func (a *App) Dispatch(act Action) (View, tea.Cmd, error) {
	var cmd tea.Cmd

	switch act := act.(type) {
	case MoveSelection:
		a.cursor += act.Delta

	case SetSourceFilter:
		if len(act.Sources) == 0 {
			a.view.Sources = nil
		} else {
			a.view.Sources = make(map[pkgs.Source]bool, len(act.Sources))
			for _, s := range act.Sources {
				a.view.Sources[s] = true
			}
		}

	case SetKindFilter:
		a.view.Kind = act.Kind

	case SetSearchText:
		a.view.Search = act.Text

	case SetSortKey:
		a.view.SortKey = act.Key

	case ToggleSortDirection:
		a.view.Descending = !a.view.Descending

	case RequestRefresh:
		cmd = a.startRefresh()

	case RequestUninstall:
		if _, ok := a.store.Get(act.ID); !ok {
			return a.snapshot(), nil, fmt.Errorf("package %s is not in the inventory", act.ID)
		}
		cmd = a.uninstallCmd(act.ID)

	case RequestCheckUpdates:
		ids := act.IDs
		if len(ids) == 0 {
			for _, p := range a.rows {
				ids = append(ids, p.ID)
			}
		}
		if len(ids) == 0 {
			return a.snapshot(), nil, nil
		}
		a.checking = true
		cmd = a.checkUpdatesCmd(ids)

	case RequestUpdate:
		p, ok := a.store.Get(act.ID)
		if !ok {
			return a.snapshot(), nil, fmt.Errorf("package %s is not in the inventory", act.ID)
		}
		if p.Update.Phase != pkgs.UpdateAvailable {
			return a.snapshot(), nil, fmt.Errorf("no update known for %s", p.Name)
		}
		cmd = a.updateCmd(act.ID)

	case Quit:
		a.quitting = true
		cmd = tea.Quit
	}

	a.refreshRows()
	return a.snapshot(), cmd, nil
}

func (a *App) snapshot() View {
	return View{
		Rows:     a.rows,
		Cursor:   a.cursor,
		Total:    a.store.Len(),
		Scanning: len(a.scanning) > 0,
		Config:   a.view,
	}
}

// refreshRows re-derives the visible rows from the store and clamps the
// cursor.
func (a *App) refreshRows() {
	a.rows = query.Apply(a.store.Snapshot(), a.view)
	if a.cursor >= len(a.rows) {
		a.cursor = len(a.rows) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// mutationContext bounds mutating actions with the configured timeout.
func (a *App) mutationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.mutationTimeout)
}
