package inventory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/khurrambhutto/scope/internal/managers"
	"github.com/khurrambhutto/scope/internal/pkgs"
)

// ActionKind names the mutations the executor performs.
type ActionKind string

const (
	ActionUninstall ActionKind = "uninstall"
	ActionCheck     ActionKind = "check-update"
	ActionUpdate    ActionKind = "update"
)

// Action is one tracked mutation against one package.
type Action struct {
	ID     uuid.UUID
	Kind   ActionKind
	Target pkgs.Identity
}

// Executor routes uninstall/update requests to the owning adapter and
// applies the resulting store mutations. A failure only ever touches
// the affected package's state; the record itself stays in the store
// so the action can be retried.
type Executor struct {
	store    *Store
	managers map[pkgs.Source]managers.Manager

	mu       sync.Mutex
	inFlight map[uuid.UUID]Action
	// updateLocks serialize updates per manager: most package managers
	// hold an exclusive system lock and concurrent invocations fail or
	// deadlock. Updates against different managers run concurrently.
	updateLocks map[pkgs.Source]*sync.Mutex
}

func NewExecutor(store *Store, mgrs map[pkgs.Source]managers.Manager) *Executor {
	locks := make(map[pkgs.Source]*sync.Mutex, len(mgrs))
	for src := range mgrs {
		locks[src] = &sync.Mutex{}
	}
	return &Executor{
		store:       store,
		managers:    mgrs,
		inFlight:    make(map[uuid.UUID]Action),
		updateLocks: locks,
	}
}

// InFlight returns the actions currently executing.
func (e *Executor) InFlight() []Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Action, 0, len(e.inFlight))
	for _, a := range e.inFlight {
		out = append(out, a)
	}
	return out
}

func (e *Executor) begin(kind ActionKind, id pkgs.Identity) Action {
	a := Action{ID: uuid.New(), Kind: kind, Target: id}
	e.mu.Lock()
	e.inFlight[a.ID] = a
	e.mu.Unlock()
	return a
}

func (e *Executor) end(a Action) {
	e.mu.Lock()
	delete(e.inFlight, a.ID)
	e.mu.Unlock()
}

func (e *Executor) manager(src pkgs.Source) (managers.Manager, error) {
	mgr, ok := e.managers[src]
	if !ok {
		return nil, fmt.Errorf("no manager for source %q", src)
	}
	return mgr, nil
}

// Uninstall removes one package through its owning manager. On success
// the record is deleted from the store; on failure the record is left
// in place with a Failed action state so the user can retry.
func (e *Executor) Uninstall(ctx context.Context, id pkgs.Identity) error {
	mgr, err := e.manager(id.Source)
	if err != nil {
		return err
	}
	p, ok := e.store.Get(id)
	if !ok {
		return fmt.Errorf("package %s is not in the inventory", id)
	}

	a := e.begin(ActionUninstall, id)
	defer e.end(a)

	e.store.Mutate(id, func(p *pkgs.Package) {
		p.Action = pkgs.ActionState{Phase: pkgs.ActionPending}
	})

	if err := mgr.Uninstall(ctx, p); err != nil {
		e.store.Mutate(id, func(p *pkgs.Package) {
			p.Action = pkgs.ActionState{Phase: pkgs.ActionFailed, Reason: pkgs.KindOf(err).String()}
		})
		return err
	}

	e.store.Remove(id)
	return nil
}

// CheckUpdates refreshes the update state for a batch of packages.
// Checks run concurrently across packages and managers (the underlying
// commands are read-only). A per-package failure downgrades only that
// package to Unknown.
func (e *Executor) CheckUpdates(ctx context.Context, ids []pkgs.Identity) {
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id pkgs.Identity) {
			defer wg.Done()
			e.checkOne(ctx, id)
		}(id)
	}
	wg.Wait()
}

func (e *Executor) checkOne(ctx context.Context, id pkgs.Identity) {
	mgr, err := e.manager(id.Source)
	if err != nil {
		return
	}
	p, ok := e.store.Get(id)
	if !ok {
		return
	}

	a := e.begin(ActionCheck, id)
	defer e.end(a)

	e.store.Mutate(id, func(p *pkgs.Package) {
		p.Update = pkgs.UpdateState{Phase: pkgs.UpdateChecking}
	})

	version, available, err := mgr.CheckUpdate(ctx, p)
	e.store.Mutate(id, func(p *pkgs.Package) {
		switch {
		case err != nil:
			p.Update = pkgs.UpdateState{Phase: pkgs.UpdateUnknown}
		case available:
			p.Update = pkgs.UpdateState{Phase: pkgs.UpdateAvailable, Version: version}
		default:
			p.Update = pkgs.UpdateState{Phase: pkgs.UpToDate}
		}
	})
}

// Update upgrades one package. It is valid only when an update is known
// to be available. On success the package becomes UpToDate; on failure
// the update state is left unchanged so the user can retry.
func (e *Executor) Update(ctx context.Context, id pkgs.Identity) error {
	mgr, err := e.manager(id.Source)
	if err != nil {
		return err
	}
	p, ok := e.store.Get(id)
	if !ok {
		return fmt.Errorf("package %s is not in the inventory", id)
	}
	if p.Update.Phase != pkgs.UpdateAvailable {
		return fmt.Errorf("no update known for %s", id)
	}

	a := e.begin(ActionUpdate, id)
	defer e.end(a)

	e.store.Mutate(id, func(p *pkgs.Package) {
		p.Action = pkgs.ActionState{Phase: pkgs.ActionPending}
	})

	lock := e.updateLocks[id.Source]
	lock.Lock()
	err = mgr.Update(ctx, p)
	lock.Unlock()

	if err != nil {
		e.store.Mutate(id, func(p *pkgs.Package) {
			p.Action = pkgs.ActionState{Phase: pkgs.ActionFailed, Reason: pkgs.KindOf(err).String()}
		})
		return err
	}

	e.store.Mutate(id, func(p *pkgs.Package) {
		p.Action = pkgs.ActionState{Phase: pkgs.ActionIdle}
		p.Update = pkgs.UpdateState{Phase: pkgs.UpToDate}
	})
	return nil
}
