package workspace

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/wippyai/wat-engine/errors"
)

// Event describes one change seen by Watch.
type Event struct {
	Err     error
	Path    string
	Report  Report
	Removed bool
}

// scope decides which paths a watch reacts to.
type scope struct {
	files map[string]bool
	dirs  []string
}

func (s *scope) contains(w *Workspace, path string) bool {
	if s.files[path] {
		return true
	}
	if _, ok := w.registry.Lookup(path); !ok {
		return false
	}
	return s.under(path)
}

// under reports whether path lies inside one of the watched directories.
func (s *scope) under(path string) bool {
	for _, d := range s.dirs {
		if rel, err := filepath.Rel(d, path); err == nil && filepath.IsLocal(rel) {
			return true
		}
	}
	return false
}

// Watch reports changes to the source files under roots until ctx is done.
// Changed files are updated in place and checked again; removed files are
// closed. fn is called from a single goroutine.
func (w *Workspace) Watch(ctx context.Context, roots []string, fn func(Event)) error {
	fw, sc, err := w.watcher(roots)
	if err != nil {
		return err
	}
	defer fw.Close()
	return w.run(ctx, fw, sc, fn)
}

func (w *Workspace) watcher(roots []string) (*fsnotify.Watcher, *scope, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, errors.Wrap(errors.PhaseWatch, errors.KindUnsupported, err, "create watcher")
	}
	sc := &scope{files: make(map[string]bool)}
	for _, root := range roots {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil {
			fw.Close()
			return nil, nil, errors.Load(root, err)
		}
		if !info.IsDir() {
			sc.files[root] = true
			err = fw.Add(filepath.Dir(root))
		} else {
			sc.dirs = append(sc.dirs, root)
			err = w.addTree(fw, root)
		}
		if err != nil {
			fw.Close()
			return nil, nil, errors.New(errors.PhaseWatch, errors.KindInvalidInput).
				File(root).
				Cause(err).
				Detail("watch").
				Build()
		}
	}
	return fw, sc, nil
}

// addTree watches dir and every non-hidden directory below it.
func (w *Workspace) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && hidden(d.Name()) {
			return filepath.SkipDir
		}
		w.log.Debug("watching directory", zap.String("path", p))
		return fw.Add(p)
	})
}

func (w *Workspace) run(ctx context.Context, fw *fsnotify.Watcher, sc *scope, fn func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fw, sc, ev, fn)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
			fn(Event{Err: errors.Wrap(errors.PhaseWatch, errors.KindInvalidData, err, "watch")})
		}
	}
}

func (w *Workspace) handle(ctx context.Context, fw *fsnotify.Watcher, sc *scope, ev fsnotify.Event, fn func(Event)) {
	path := filepath.Clean(ev.Name)

	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !hidden(filepath.Base(path)) && sc.under(path) {
				if err := w.addTree(fw, path); err != nil {
					w.log.Warn("cannot watch directory", zap.String("path", path), zap.Error(err))
				}
			}
			return
		}
	}
	if !sc.contains(w, path) {
		return
	}

	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		if w.Close(path) {
			fn(Event{Path: path, Removed: true})
		}
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			fn(Event{Path: path, Err: errors.Load(path, err)})
		}
		return
	}
	if _, open := w.Document(path); open {
		_, err = w.Update(path, string(data))
	} else {
		_, err = w.Open(path, string(data))
	}
	if err != nil {
		fn(Event{Path: path, Err: err})
		return
	}
	rep, err := w.Check(ctx, path)
	fn(Event{Path: path, Report: rep, Err: err})
}
