package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/lumen/internal/checksum"
	"github.com/starford/lumen/internal/notestore"
	"github.com/starford/lumen/internal/storage"
)

// Restore loads every cached body into store, replacing its contents.
func Restore(db NoteCache, store *notestore.Store) (int, error) {
	bodies, err := db.LoadBodies()
	if err != nil {
		return 0, fmt.Errorf("index: restore: %w", err)
	}
	store.Reset(bodies)
	return len(bodies), nil
}

// Sync walks the vault and brings cache and store up to date:
//   - new/changed files are read and upserted
//   - notes whose file is gone are deleted
func Sync(db NoteCache, vault storage.Provider, store *notestore.Store, logger *slog.Logger) error {
	metas, err := vault.List()
	if err != nil {
		return err
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.ID] = struct{}{}
		if body, ok := store.Raw(m.ID); ok && checksums[m.ID] == m.Checksum && checksum.String(body) == m.Checksum {
			continue
		}
		body, err := vault.Read(m.ID)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("id", m.ID), slog.String("error", err.Error()))
			continue
		}
		if err := apply(db, store, m.ID, body, m.UpdatedAt); err != nil {
			logger.Warn("sync: cache failed", slog.String("id", m.ID), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: loaded", slog.String("id", m.ID))
		}
	}

	stale := make(map[string]struct{})
	for id := range checksums {
		stale[id] = struct{}{}
	}
	for id := range store.RawAll() {
		stale[id] = struct{}{}
	}
	for id := range stale {
		if _, ok := disk[id]; ok {
			continue
		}
		if err := remove(db, store, id); err != nil {
			logger.Warn("sync: delete failed", slog.String("id", id), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("id", id))
		}
	}
	return nil
}

// apply writes body to the cache and the store.
func apply(db NoteCache, store *notestore.Store, id, body string, updatedAt time.Time) error {
	store.Upsert(id, body)
	return db.UpsertNote(id, body, updatedAt)
}

func remove(db NoteCache, store *notestore.Store, id string) error {
	store.Delete(id)
	return db.DeleteNote(id)
}
