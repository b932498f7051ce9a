package scan

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/vst3host/pkg/debug"
	"github.com/justyntemme/vst3host/pkg/host/format"
)

// maxWatchDepth bounds how far below a search path directories are watched.
const maxWatchDepth = 3

// Watcher reports creation, removal and renames of recognized plugin files or bundles
// under the search paths.
type Watcher struct {
	fw       *fsnotify.Watcher
	registry *format.Registry
	log      *debug.Logger
	onChange func(path string)
	roots    []string
}

// NewWatcher watches paths and their subdirectories up to a fixed depth, including
// directories created later. Paths that cannot be watched are skipped. onChange runs on
// the watcher goroutine.
func NewWatcher(paths []string, reg *format.Registry, onChange func(path string), log *debug.Logger) (*Watcher, error) {
	if log == nil {
		log = debug.Nop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fw: fw, registry: reg, log: log, onChange: onChange}
	for _, root := range paths {
		if root == "" {
			continue
		}
		w.roots = append(w.roots, filepath.Clean(root))
		w.addTree(root, root)
	}
	return w, nil
}

// addTree watches dir and its subdirectories, with depth counted from root. It returns
// the first recognized plugin found below dir.
func (w *Watcher) addTree(root, dir string) (found string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != root && w.registry.Recognized(filepath.Ext(path)) {
			if found == "" {
				found = path
			}
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if depth(root, path) > maxWatchDepth {
			return fs.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			w.log.Debug("watch %s: %v", path, err)
		}
		return nil
	})
	return found
}

// rootOf returns the search path containing path.
func (w *Watcher) rootOf(path string) (string, bool) {
	best := ""
	for _, root := range w.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	return best, best != ""
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	n := 1
	for _, c := range rel {
		if c == filepath.Separator {
			n++
		}
	}
	return n
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string {
	return w.fw.WatchList()
}

// Run delivers change notifications until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error: %v", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	if w.registry.Recognized(filepath.Ext(ev.Name)) {
		w.notify(ev.Op, ev.Name)
		return
	}
	if !ev.Has(fsnotify.Create) {
		return
	}
	fi, err := os.Stat(ev.Name)
	if err != nil || !fi.IsDir() {
		return
	}
	root, ok := w.rootOf(ev.Name)
	if !ok {
		return
	}
	if found := w.addTree(root, ev.Name); found != "" {
		w.notify(ev.Op, found)
	}
}

func (w *Watcher) notify(op fsnotify.Op, path string) {
	w.log.Debug("plugin change: %s %s", op, path)
	if w.onChange != nil {
		w.onChange(path)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
