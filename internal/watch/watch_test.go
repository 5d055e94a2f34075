package watch

import (
	"testing"

	"github.com/fsnotify/fsnotify"
)

func TestNewWithNoWatchableDirs(t *testing.T) {
	if w := New([]string{"/does/not/exist", ""}); w != nil {
		t.Fatal("no watchable directory should yield a nil watcher")
	}
}

func TestNewSkipsMissingDirs(t *testing.T) {
	w := New([]string{"/does/not/exist", t.TempDir()})
	if w == nil {
		t.Fatal("one valid directory is enough")
	}
	w.Close()
	w.Close() // idempotent
}

func TestRelevant(t *testing.T) {
	cases := []struct {
		name string
		op   fsnotify.Op
		want bool
	}{
		{"/apps/Krita-5.2.2.AppImage", fsnotify.Create, true},
		{"/apps/krita.appimage", fsnotify.Remove, true},
		{"/apps/old.AppImage", fsnotify.Rename, true},
		{"/apps/elf-tool", fsnotify.Create, true},
		{"/apps/notes.txt", fsnotify.Create, false},
		{"/apps/partial.part", fsnotify.Create, false},
		{"/apps/Krita.AppImage", fsnotify.Chmod, false},
		{"/apps/Krita.AppImage", fsnotify.Write, false},
	}
	for _, c := range cases {
		got := relevant(fsnotify.Event{Name: c.name, Op: c.op})
		if got != c.want {
			t.Errorf("relevant(%s, %v) = %v, want %v", c.name, c.op, got, c.want)
		}
	}
}
