// Package models defines the domain types for Lumen.
package models

import "time"

// Note types reported by Type and matched by the is:/type: qualifiers.
const (
	TypeNote     = "note"
	TypeDaily    = "daily"
	TypeWeekly   = "weekly"
	TypeTemplate = "template"
	TypeTask     = "task"
)

// Note is the parsed form of one raw note body. Backlinks are derived from the
// whole collection and are never authored.
type Note struct {
	ID          string         `json:"id"`
	RawBody     string         `json:"raw_body"`
	Frontmatter map[string]any `json:"frontmatter,omitempty"`
	Title       string         `json:"title,omitempty"`
	Tags        []string       `json:"tags"`
	Dates       []string       `json:"dates"`
	Links       []string       `json:"links"`
	Tasks       []Task         `json:"tasks"`
	Backlinks   []string       `json:"backlinks"`
	Type        string         `json:"type"`
}

// OpenTasks counts tasks that are not completed.
func (n *Note) OpenTasks() int {
	c := 0
	for _, t := range n.Tasks {
		if !t.Completed {
			c++
		}
	}
	return c
}

// Task is a markdown checkbox list item.
type Task struct {
	RawBody   string   `json:"raw_body"`
	Title     string   `json:"title"`
	Completed bool     `json:"completed"`
	Tags      []string `json:"tags,omitempty"`
	Dates     []string `json:"dates,omitempty"`
	Links     []string `json:"links,omitempty"`
}

// TaskItem locates a task within its parent note.
type TaskItem struct {
	NoteID string `json:"note_id"`
	Index  int    `json:"index"`
	Task
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	ID        string    `json:"id"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
