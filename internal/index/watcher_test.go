package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/lumen/internal/notestore"
	"github.com/starford/lumen/internal/storage"
)

// watcherTestEnv sets up a vault dir, storage, cache and store for watcher tests.
func watcherTestEnv(t *testing.T) (string, storage.Provider, *DB, *notestore.Store) {
	t.Helper()
	vaultDir := t.TempDir()
	vault, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, vault, testDB(t), notestore.New()
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileLoaded(t *testing.T) {
	vaultDir, vault, db, store := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var changes []notestore.Change
	unsubscribe := store.Subscribe(func(c notestore.Change) {
		mu.Lock()
		changes = append(changes, c)
		mu.Unlock()
	})
	defer unsubscribe()
	go Watch(ctx, db, vault, store, vaultDir, quietLogger())
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(vaultDir, "new.md"), []byte("# New [[other]]"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		body, ok := store.Raw("new")
		cs, _ := db.GetChecksum("new")
		return ok && body == "# New [[other]]" && cs != ""
	}, "new file not loaded by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range changes {
			if c.Kind == notestore.ChangeUpserted && c.ID == "new" {
				return true
			}
		}
		return false
	}, "expected an upserted change for new")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	vaultDir, vault, db, store := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, vault, store, vaultDir, quietLogger())
	time.Sleep(100 * time.Millisecond)

	subDir := filepath.Join(vaultDir, "projects")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)
	_ = os.WriteFile(filepath.Join(subDir, "deep.md"), []byte("# Deep"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := store.Raw("projects/deep")
		return ok
	}, "file in new subdir not loaded by watcher")
}

func TestWatcher_DeleteRemovesNote(t *testing.T) {
	vaultDir, vault, db, store := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(vaultDir, "del.md"), []byte("# Delete Me"), 0o644)
	if err := Sync(db, vault, store, quietLogger()); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Raw("del"); !ok {
		t.Fatal("precondition: note should be loaded")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, vault, store, vaultDir, quietLogger())
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(vaultDir, "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, ok := store.Raw("del")
		cs, _ := db.GetChecksum("del")
		return !ok && cs == ""
	}, "deleted file still in store or cache")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	vaultDir, vault, db, store := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(vaultDir, "old.md"), []byte("# Rename"), 0o644)
	if err := Sync(db, vault, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, db, vault, store, vaultDir, quietLogger())
	time.Sleep(100 * time.Millisecond)

	_ = os.Rename(filepath.Join(vaultDir, "old.md"), filepath.Join(vaultDir, "renamed.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, oldOK := store.Raw("old")
		_, newOK := store.Raw("renamed")
		return !oldOK && newOK
	}, "rename reconciliation failed: old id should be removed and new id loaded")
}
