// Package storage maps note ids onto markdown files in the vault directory.
// Note <id> lives at <vault>/<id>.md; ids containing "/" become subdirectories.
package storage

import "github.com/starford/lumen/internal/models"

// Provider persists raw note bodies by id.
type Provider interface {
	// List returns metadata for every note file in the vault.
	List() ([]models.NoteMetadata, error)
	// Read returns the raw body of note id. Missing notes wrap apperr.ErrNotFound.
	Read(id string) (string, error)
	// Write atomically stores body as note id.
	Write(id, body string) error
	// Delete removes note id.
	Delete(id string) error
	// Move renames note oldID to newID.
	Move(oldID, newID string) error
	// IDFromPath returns the note id for an absolute file path inside the
	// vault, or false when the path is not a note file.
	IDFromPath(abs string) (string, bool)
}
