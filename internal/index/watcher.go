package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lumen/internal/checksum"
	"github.com/starford/lumen/internal/notestore"
	"github.com/starford/lumen/internal/storage"
)

const reconcileDelay = 200 * time.Millisecond

// watcher carries the collaborators shared by the event handlers.
type watcher struct {
	db     NoteCache
	vault  storage.Provider
	store  *notestore.Store
	logger *slog.Logger
}

// Watch starts an fsnotify watcher on the vault root and feeds external file
// changes into the store and cache until ctx is cancelled. Consumers observe
// the resulting changes through store subscriptions.
//
// New directories are added to the watch list as they appear. Rename events
// trigger a debounced reconciliation pass, since fsnotify reports only the
// old name.
func Watch(ctx context.Context, db NoteCache, vault storage.Provider, store *notestore.Store, vaultRoot string, logger *slog.Logger) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, vaultRoot); err != nil {
		return err
	}
	w := &watcher{db: db, vault: vault, store: store, logger: logger}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					w.loadDir(ev.Name)
					continue
				}
			}

			id, ok := vault.IDFromPath(ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := "updated"
				if ev.Op&fsnotify.Create != 0 {
					kind = "created"
				}
				w.load(id, kind)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				if _, err := vault.Read(id); err == nil {
					// Replaced in place (editors that write via rename).
					w.load(id, "updated")
					continue
				}
				if err := remove(db, store, id); err != nil {
					logger.Warn("watcher: delete failed", slog.String("id", id), slog.String("error", err.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("id", id))
				if ev.Op&fsnotify.Rename != 0 {
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// load reads id from the vault and applies it unless the cache already holds
// the same content, which is the case for writes made through the service.
func (w *watcher) load(id, kind string) {
	body, err := w.vault.Read(id)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	cached, _ := w.db.GetChecksum(id)
	current, inStore := w.store.Raw(id)
	if inStore && current == body && cached == checksum.String(body) {
		return
	}
	if err := apply(w.db, w.store, id, body, time.Now()); err != nil {
		w.logger.Warn("watcher: cache failed", slog.String("id", id), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: loaded", slog.String("id", id), slog.String("op", kind))
}

// reconcile removes notes whose file is gone and loads files that are not
// cached yet.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.vault.List()
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.ID] = m.Checksum
	}
	for id := range checksums {
		if _, ok := disk[id]; ok {
			continue
		}
		if err := remove(w.db, w.store, id); err == nil {
			w.logger.Debug("reconcile: removed stale", slog.String("id", id))
		}
	}
	for id, cs := range disk {
		if checksums[id] != cs {
			w.load(id, "created")
		}
	}
}

// loadDir loads any note files already present in a newly created directory.
func (w *watcher) loadDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ".md") {
			return nil
		}
		if id, ok := w.vault.IDFromPath(p); ok {
			w.load(id, "created")
		}
		return nil
	})
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(p)
	})
}
