package index

import "time"

// NoteCache is the persistence side of the raw note store.
type NoteCache interface {
	UpsertNote(id, body string, updatedAt time.Time) error
	DeleteNote(id string) error
	GetChecksum(id string) (string, error)
	AllChecksums() (map[string]string, error)
	LoadBodies() (map[string]string, error)
	Close() error
}

var _ NoteCache = (*DB)(nil)
