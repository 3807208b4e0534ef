// Package testutil provides shared test helpers for setting up vaults, caches
// and services.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/starford/lumen/internal/index"
	"github.com/starford/lumen/internal/noteservice"
	"github.com/starford/lumen/internal/notestore"
	"github.com/starford/lumen/internal/storage"
)

// TestDB creates a temporary SQLite cache that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "lumen-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	vault, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, vault
}

// TestService wires a fresh store, vault and cache into a Service. notes are
// written through the service before it is returned.
func TestService(t *testing.T, notes map[string]string, opts ...noteservice.Option) (*noteservice.Service, string) {
	t.Helper()
	vaultDir, vault := TestVault(t)
	svc := noteservice.NewService(notestore.New(), vault, TestDB(t), opts...)
	for id, body := range notes {
		if _, _, err := svc.UpsertNote(t.Context(), id, body, ""); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	return svc, vaultDir
}
