// Package tui is the terminal front end: a bubbletea model over the
// inventory core. All core access goes through the Dispatch boundary in
// actions.go; this file only translates terminal events into actions
// and core results into status text.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/khurrambhutto/scope/internal/config"
	"github.com/khurrambhutto/scope/internal/inventory"
	"github.com/khurrambhutto/scope/internal/managers"
	"github.com/khurrambhutto/scope/internal/pkgs"
	"github.com/khurrambhutto/scope/internal/query"
	"github.com/khurrambhutto/scope/internal/watch"
)

// sourceTabs is the cycling order of the source filter; nil means all.
var sourceTabs = [][]pkgs.Source{
	nil,
	{pkgs.SourceApt},
	{pkgs.SourceSnap},
	{pkgs.SourceFlatpak},
	{pkgs.SourceAppImage},
}

type confirmState struct {
	action Action
	prompt string
}

// App ties the store, scanner, executor and watcher to the terminal.
type App struct {
	store    *inventory.Store
	scanner  *inventory.Scanner
	exec     *inventory.Executor
	managers []managers.Manager
	watcher  *watch.Watcher

	mutationTimeout time.Duration

	view   query.Config
	rows   []pkgs.Package
	cursor int
	tab    int

	keys      keyMap
	search    textinput.Model
	searching bool
	spin      spinner.Model

	scanning map[pkgs.Source]bool
	// scanGen is the generation of the refresh the scanning set
	// describes; events from superseded refreshes must not touch it.
	scanGen  uint64
	checking bool
	confirm  *confirmState
	detail   bool

	status    string
	statusErr bool

	width  int
	height int

	quitting bool
}

// New assembles the application core and its terminal model.
func New(cfg config.Config) *App {
	runner := managers.NewExecRunner(cfg.Scan.CommandTimeout)
	all := managers.All(runner, cfg.Scan.AppImageDirs)

	enabled := make([]managers.Manager, 0, len(all))
	for _, m := range all {
		if !cfg.Scan.Excluded(m.Source().String()) {
			enabled = append(enabled, m)
		}
	}

	store := inventory.NewStore()

	search := textinput.New()
	search.Placeholder = "type to search"
	search.Prompt = "/"
	search.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	mutTimeout := cfg.Scan.MutationTimeout
	if mutTimeout <= 0 {
		mutTimeout = 60 * time.Second
	}

	// a disabled AppImage source must not trigger rescans
	var watcher *watch.Watcher
	if !cfg.Scan.Excluded(pkgs.SourceAppImage.String()) {
		watcher = watch.New(cfg.Scan.AppImageDirs)
	}

	return &App{
		store:           store,
		scanner:         inventory.NewScanner(store, enabled),
		exec:            inventory.NewExecutor(store, managers.BySource(enabled)),
		managers:        enabled,
		watcher:         watcher,
		mutationTimeout: mutTimeout,
		view:            query.DefaultConfig(),
		keys:            newKeyMap(),
		search:          search,
		spin:            sp,
		scanning:        map[pkgs.Source]bool{},
		status:          "Scanning...",
	}
}

// Close releases background resources.
func (a *App) Close() {
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.store.Close()
}

func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.startRefresh(), a.spin.Tick}
	if w := a.waitForWatch(); w != nil {
		cmds = append(cmds, w)
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case scanEventMsg:
		return a.handleScanEvent(msg)

	case actionDoneMsg:
		return a.handleActionDone(msg)

	case checkDoneMsg:
		a.checking = false
		a.setStatus(fmt.Sprintf("Checked %d packages for updates", msg.count))
		a.refreshRows()
		return a, nil

	case watchMsg:
		a.setStatus("AppImage directory changed, rescanning...")
		cmds := []tea.Cmd{a.startRefresh()}
		if w := a.waitForWatch(); w != nil {
			cmds = append(cmds, w)
		}
		return a, tea.Batch(cmds...)

	case tea.KeyMsg:
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleScanEvent(msg scanEventMsg) (tea.Model, tea.Cmd) {
	ev := msg.ev
	// keep draining superseded event streams, but only the current
	// refresh may drive the scanning indicator
	if ev.Gen != a.scanGen {
		a.refreshRows()
		return a, waitForScanEvent(msg.events)
	}
	switch ev.Kind {
	case inventory.SourceStarted:
		a.scanning[ev.Source] = true
	case inventory.SourceDone:
		delete(a.scanning, ev.Source)
		if ev.Err != nil && !pkgs.IsKind(ev.Err, pkgs.FailUnavailable) {
			a.setError(ev.Err)
		}
	case inventory.Settled:
		a.scanning = map[pkgs.Source]bool{}
		if !ev.Stale {
			a.setStatus(fmt.Sprintf("%d packages", a.store.Len()))
		}
	}
	a.refreshRows()
	return a, waitForScanEvent(msg.events)
}

func (a *App) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		a.setError(fmt.Errorf("%s %s: %w", msg.kind, msg.name, msg.err))
	} else {
		switch msg.kind {
		case inventory.ActionUninstall:
			a.setStatus(fmt.Sprintf("Uninstalled %s", msg.name))
		case inventory.ActionUpdate:
			a.setStatus(fmt.Sprintf("Updated %s", msg.name))
		}
	}
	a.refreshRows()
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// overlay priority: confirm prompt, then search input, then the
	// detail view, then the main list
	if a.confirm != nil {
		return a.handleConfirmKey(msg)
	}
	if a.searching {
		return a.handleSearchKey(msg)
	}
	if a.detail {
		return a.handleDetailKey(msg)
	}
	return a.handleListKey(msg)
}

func (a *App) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Confirm):
		act := a.confirm.action
		a.confirm = nil
		return a.dispatch(act)
	case key.Matches(msg, a.keys.Cancel), key.Matches(msg, a.keys.Quit):
		a.confirm = nil
	}
	return a, nil
}

func (a *App) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter":
		a.searching = false
		a.search.Blur()
		return a, nil
	case "ctrl+u":
		a.search.SetValue("")
	}
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	model, dcmd := a.dispatch(SetSearchText{Text: a.search.Value()})
	return model, tea.Batch(cmd, dcmd)
}

func (a *App) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Cancel), key.Matches(msg, a.keys.Quit), key.Matches(msg, a.keys.Details):
		a.detail = false
	case key.Matches(msg, a.keys.Uninstall):
		a.detail = false
		return a.confirmUninstall()
	case key.Matches(msg, a.keys.Update):
		a.detail = false
		return a.confirmUpdate()
	}
	return a, nil
}

func (a *App) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		return a.dispatch(Quit{})
	case key.Matches(msg, a.keys.Up):
		return a.dispatch(MoveSelection{Delta: -1})
	case key.Matches(msg, a.keys.Down):
		return a.dispatch(MoveSelection{Delta: 1})
	case key.Matches(msg, a.keys.Top):
		return a.dispatch(MoveSelection{Delta: -len(a.rows)})
	case key.Matches(msg, a.keys.Bottom):
		return a.dispatch(MoveSelection{Delta: len(a.rows)})
	case key.Matches(msg, a.keys.PageUp):
		return a.dispatch(MoveSelection{Delta: -a.pageSize()})
	case key.Matches(msg, a.keys.PageDown):
		return a.dispatch(MoveSelection{Delta: a.pageSize()})
	case key.Matches(msg, a.keys.Search):
		a.searching = true
		a.search.Focus()
		return a, textinput.Blink
	case key.Matches(msg, a.keys.Sort):
		next := query.SortBySize
		switch a.view.SortKey {
		case query.SortBySize:
			next = query.SortByName
		case query.SortByName:
			next = query.SortBySource
		}
		return a.dispatch(SetSortKey{Key: next})
	case key.Matches(msg, a.keys.Direction):
		return a.dispatch(ToggleSortDirection{})
	case key.Matches(msg, a.keys.Kind):
		return a.dispatch(SetKindFilter{Kind: a.view.Kind.Next()})
	case key.Matches(msg, a.keys.NextTab):
		a.tab = (a.tab + 1) % len(sourceTabs)
		return a.dispatch(SetSourceFilter{Sources: sourceTabs[a.tab]})
	case key.Matches(msg, a.keys.PrevTab):
		a.tab = (a.tab + len(sourceTabs) - 1) % len(sourceTabs)
		return a.dispatch(SetSourceFilter{Sources: sourceTabs[a.tab]})
	case key.Matches(msg, a.keys.Refresh):
		a.setStatus("Rescanning...")
		return a.dispatch(RequestRefresh{})
	case key.Matches(msg, a.keys.Details):
		if a.selected() != nil {
			a.detail = true
		}
		return a, nil
	case key.Matches(msg, a.keys.Uninstall):
		return a.confirmUninstall()
	case key.Matches(msg, a.keys.Check):
		a.setStatus("Checking for updates...")
		return a.dispatch(RequestCheckUpdates{})
	case key.Matches(msg, a.keys.Update):
		return a.confirmUpdate()
	}
	return a, nil
}

func (a *App) confirmUninstall() (tea.Model, tea.Cmd) {
	p := a.selected()
	if p == nil {
		return a, nil
	}
	a.confirm = &confirmState{
		action: RequestUninstall{ID: p.ID},
		prompt: fmt.Sprintf("Uninstall %s (%s)? [y/N]", p.Name, p.ID.Source),
	}
	return a, nil
}

func (a *App) confirmUpdate() (tea.Model, tea.Cmd) {
	p := a.selected()
	if p == nil {
		return a, nil
	}
	if p.Update.Phase != pkgs.UpdateAvailable {
		a.setStatus(fmt.Sprintf("No update known for %s (press c to check)", p.Name))
		return a, nil
	}
	a.confirm = &confirmState{
		action: RequestUpdate{ID: p.ID},
		prompt: fmt.Sprintf("Update %s to %s? [y/N]", p.Name, p.Update.Version),
	}
	return a, nil
}

// dispatch routes an action through the core boundary and folds the
// result back into status text.
func (a *App) dispatch(act Action) (tea.Model, tea.Cmd) {
	_, cmd, err := a.Dispatch(act)
	if err != nil {
		a.setError(err)
	}
	return a, cmd
}

func (a *App) selected() *pkgs.Package {
	if a.cursor < 0 || a.cursor >= len(a.rows) {
		return nil
	}
	return &a.rows[a.cursor]
}

func (a *App) pageSize() int {
	if a.height > 10 {
		return a.height - 8
	}
	return 10
}

func (a *App) setStatus(s string) {
	a.status = s
	a.statusErr = false
}

func (a *App) setError(err error) {
	if err == nil {
		a.status = ""
		a.statusErr = false
		return
	}
	a.status = err.Error()
	a.statusErr = true
}
