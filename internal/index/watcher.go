package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/memdash/internal/storage"
)

// EventCallback is called after a corpus file changes on disk.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the workspace root and daily directory
// and processes change events until ctx is cancelled. Every change to a
// corpus note triggers the reindexer (if non-nil) and calls cb (if non-nil).
//
// The daily directory is picked up if it is created after startup.
func Watch(ctx context.Context, root string, layout storage.Layout, r *Reindexer, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}
	dailyAbs := filepath.Join(root, filepath.FromSlash(layout.DailyDir))
	if info, statErr := os.Stat(dailyAbs); statErr == nil && info.IsDir() {
		if err := w.Add(dailyAbs); err != nil {
			return err
		}
	}

	logger.Info("watcher: started", slog.String("root", root))

	notify := func(kind, rel string) {
		logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", kind))
		if r != nil {
			r.Trigger()
		}
		if cb != nil {
			cb(kind, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 && filepath.Clean(ev.Name) == dailyAbs {
				if addErr := w.Add(dailyAbs); addErr != nil {
					logger.Warn("watcher: add daily dir failed", slog.String("error", addErr.Error()))
					continue
				}
				logger.Debug("watcher: watching daily dir", slog.String("path", dailyAbs))
				announceExisting(dailyAbs, root, layout, notify)
				continue
			}

			rel, ok := corpusPath(root, layout, ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				notify("created", rel)
			case ev.Op&fsnotify.Write != 0:
				notify("updated", rel)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path; the new name arrives as Create.
				notify("deleted", rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// corpusPath maps an absolute event path to a corpus-relative path, reporting
// false for anything that is not the long-term note or a daily-dir note.
func corpusPath(root string, layout storage.Layout, abs string) (string, bool) {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == layout.LongTermNote {
		return rel, true
	}
	dir, name := filepath.Split(rel)
	if filepath.Clean(dir) != filepath.Clean(layout.DailyDir) || filepath.Ext(name) != ".md" {
		return "", false
	}
	return rel, true
}

// announceExisting reports notes already present in a daily directory that
// appeared after the watcher started (e.g. created with its files by a sync tool).
func announceExisting(dailyAbs, root string, layout storage.Layout, notify func(kind, rel string)) {
	entries, err := os.ReadDir(dailyAbs)
	if err != nil {
		return
	}
	for _, e := range entries {
		if rel, ok := corpusPath(root, layout, filepath.Join(dailyAbs, e.Name())); ok && !e.IsDir() {
			notify("created", rel)
		}
	}
}
