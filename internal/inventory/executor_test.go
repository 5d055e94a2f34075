package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khurrambhutto/scope/internal/managers"
	"github.com/khurrambhutto/scope/internal/pkgs"
)

func seedStore(t *testing.T, s *Store, ps ...pkgs.Package) {
	t.Helper()
	gen := s.BeginGeneration()
	for _, p := range ps {
		require.True(t, s.Merge(p, gen))
	}
	s.FinalizeGeneration(gen)
}

func executorWith(store *Store, mgrs ...managers.Manager) *Executor {
	return NewExecutor(store, managers.BySource(mgrs))
}

func TestExecutorUninstallRemovesRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedStore(t, store, aptPkg("htop", "3.2.2"))
	apt := &fakeManager{src: pkgs.SourceApt}
	ex := executorWith(store, apt)

	id := pkgs.Identity{Source: pkgs.SourceApt, LocalID: "htop"}
	require.NoError(t, ex.Uninstall(context.Background(), id))
	require.Equal(t, []string{"htop"}, apt.uninstalls)
	require.Equal(t, 0, store.Len(), "a confirmed uninstall deletes the record")
	require.Empty(t, ex.InFlight())
}

func TestExecutorUninstallFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedStore(t, store, aptPkg("htop", "3.2.2"))
	apt := &fakeManager{
		src:          pkgs.SourceApt,
		uninstallErr: pkgs.NewError(pkgs.FailPermission, pkgs.SourceApt, "uninstall", errors.New("not authorized")),
	}
	ex := executorWith(store, apt)

	id := pkgs.Identity{Source: pkgs.SourceApt, LocalID: "htop"}
	err := ex.Uninstall(context.Background(), id)
	require.True(t, pkgs.IsKind(err, pkgs.FailPermission))

	p, ok := store.Get(id)
	require.True(t, ok, "the record stays so the action can be retried")
	require.Equal(t, pkgs.ActionFailed, p.Action.Phase)
	require.Equal(t, pkgs.FailPermission.String(), p.Action.Reason)
}

func TestExecutorUninstallUnknownPackage(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ex := executorWith(store, &fakeManager{src: pkgs.SourceApt})

	err := ex.Uninstall(context.Background(), pkgs.Identity{Source: pkgs.SourceApt, LocalID: "ghost"})
	require.Error(t, err)

	err = ex.Uninstall(context.Background(), pkgs.Identity{Source: "homebrew", LocalID: "x"})
	require.Error(t, err, "unrouteable source")
}

func TestExecutorCheckUpdatesStates(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedStore(t, store,
		aptPkg("htop", "3.2.2"),
		aptPkg("curl", "8.5.0"),
		pkgs.Package{ID: pkgs.Identity{Source: pkgs.SourceSnap, LocalID: "firefox"}, Name: "firefox"},
	)
	apt := &fakeManager{src: pkgs.SourceApt, checkVersion: "3.3.0", checkAvail: true}
	snap := &fakeManager{
		src:      pkgs.SourceSnap,
		checkErr: pkgs.NewError(pkgs.FailTimeout, pkgs.SourceSnap, "check-update", nil),
	}
	ex := executorWith(store, apt, snap)

	ex.CheckUpdates(context.Background(), []pkgs.Identity{
		{Source: pkgs.SourceApt, LocalID: "htop"},
		{Source: pkgs.SourceSnap, LocalID: "firefox"},
	})

	htop, _ := store.Get(pkgs.Identity{Source: pkgs.SourceApt, LocalID: "htop"})
	require.Equal(t, pkgs.UpdateAvailable, htop.Update.Phase)
	require.Equal(t, "3.3.0", htop.Update.Version)

	firefox, _ := store.Get(pkgs.Identity{Source: pkgs.SourceSnap, LocalID: "firefox"})
	require.Equal(t, pkgs.UpdateUnknown, firefox.Update.Phase, "a failed check downgrades to unknown")

	curl, _ := store.Get(pkgs.Identity{Source: pkgs.SourceApt, LocalID: "curl"})
	require.Equal(t, pkgs.UpdateUnknown, curl.Update.Phase, "unchecked packages are untouched")
}

func TestExecutorUpdateRequiresKnownUpdate(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	seedStore(t, store, aptPkg("htop", "3.2.2"))
	ex := executorWith(store, &fakeManager{src: pkgs.SourceApt})

	err := ex.Update(context.Background(), pkgs.Identity{Source: pkgs.SourceApt, LocalID: "htop"})
	require.Error(t, err, "update without a known newer version is rejected")
}

func TestExecutorUpdateSuccess(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	p := aptPkg("htop", "3.2.2")
	p.Update = pkgs.UpdateState{Phase: pkgs.UpdateAvailable, Version: "3.3.0"}
	seedStore(t, store, p)
	apt := &fakeManager{src: pkgs.SourceApt}
	ex := executorWith(store, apt)

	id := pkgs.Identity{Source: pkgs.SourceApt, LocalID: "htop"}
	require.NoError(t, ex.Update(context.Background(), id))
	require.Equal(t, []string{"htop"}, apt.updates)

	got, _ := store.Get(id)
	require.Equal(t, pkgs.UpToDate, got.Update.Phase)
	require.Equal(t, pkgs.ActionIdle, got.Action.Phase)
}

func TestExecutorUpdateFailureKeepsUpdateState(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	p := aptPkg("htop", "3.2.2")
	p.Update = pkgs.UpdateState{Phase: pkgs.UpdateAvailable, Version: "3.3.0"}
	seedStore(t, store, p)
	apt := &fakeManager{
		src:       pkgs.SourceApt,
		updateErr: pkgs.NewError(pkgs.FailProcess, pkgs.SourceApt, "update", errors.New("dpkg lock held")),
	}
	ex := executorWith(store, apt)

	id := pkgs.Identity{Source: pkgs.SourceApt, LocalID: "htop"}
	require.Error(t, ex.Update(context.Background(), id))

	got, _ := store.Get(id)
	require.Equal(t, pkgs.ActionFailed, got.Action.Phase)
	require.Equal(t, pkgs.UpdateAvailable, got.Update.Phase, "the update offer survives a failed attempt")
	require.Equal(t, "3.3.0", got.Update.Version)
}

func TestExecutorSerializesUpdatesPerSource(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	var seeds []pkgs.Package
	for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
		p := aptPkg(name, "1.0")
		p.Update = pkgs.UpdateState{Phase: pkgs.UpdateAvailable, Version: "2.0"}
		seeds = append(seeds, p)
	}
	seedStore(t, store, seeds...)

	apt := &fakeManager{src: pkgs.SourceApt}
	ex := executorWith(store, apt)

	var wg sync.WaitGroup
	for _, name := range []string{"alpha", "beta", "gamma", "delta"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_ = ex.Update(context.Background(), pkgs.Identity{Source: pkgs.SourceApt, LocalID: name})
		}(name)
	}
	wg.Wait()

	require.Equal(t, 1, apt.maxActive, "updates against one manager must never overlap")
	require.Len(t, apt.updates, 4)
}
