// Package watch turns filesystem activity in the AppImage drop
// directories into refresh requests, so the inventory follows files
// that are added or deleted outside the tool.
package watch

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval coalesces bursts of events (a download writes many
// chunks) into one refresh request.
const DebounceInterval = 2 * time.Second

// Watcher emits a signal on C when a watched directory changes in a way
// that can affect the AppImage inventory. It is advisory: failures to
// watch degrade silently because a manual refresh always works.
type Watcher struct {
	C <-chan struct{}

	fs   *fsnotify.Watcher
	out  chan struct{}
	stop chan struct{}
}

// New starts watching the given directories. Directories that do not
// exist are skipped. Returns nil when no directory could be watched.
func New(dirs []string) *Watcher {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil
	}
	watched := 0
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := fsw.Add(dir); err == nil {
			watched++
		}
	}
	if watched == 0 {
		fsw.Close()
		return nil
	}

	w := &Watcher{
		fs:   fsw,
		out:  make(chan struct{}, 1),
		stop: make(chan struct{}),
	}
	w.C = w.out
	go w.loop()
	return w
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !relevant(ev) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(DebounceInterval)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(DebounceInterval)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.out <- struct{}{}:
			default:
			}
		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
		case <-w.stop:
			return
		}
	}
}

// relevant keeps create/remove/rename events on plausible AppImage
// files; chmod and write chatter inside unrelated files is ignored
// unless the name looks like an AppImage.
func relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := strings.ToLower(ev.Name)
	if strings.HasSuffix(name, ".appimage") {
		return true
	}
	// files without extension may still be AppImages; directory-level
	// create/remove is worth a rescan either way
	return !strings.Contains(name[strings.LastIndexByte(name, '/')+1:], ".")
}

// Wait blocks until the next change signal or context cancellation,
// reporting whether a signal arrived.
func (w *Watcher) Wait(ctx context.Context) bool {
	select {
	case <-w.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Close stops the watcher.
func (w *Watcher) Close() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	w.fs.Close()
}
