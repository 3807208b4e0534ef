package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lumen/internal/noteid"
	"github.com/starford/lumen/internal/noteservice"
)

// CreateNoteRequest is the request body for creating a note. An empty ID
// asks the server to generate one.
type CreateNoteRequest struct {
	ID      string `json:"id,omitempty"`
	Content string `json:"content"`
}

// Validate implements validation.Validatable.
func (r CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ID, validation.When(r.ID != "", validation.By(noteIDRule))),
	)
}

// UpdateNoteRequest is the request body for writing a note.
type UpdateNoteRequest struct {
	Content *string `json:"content"`
}

// Validate implements validation.Validatable.
func (r UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// RenameRequest is the request body for POST /rename.
type RenameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate implements validation.Validatable.
func (r RenameRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.From, validation.Required),
		validation.Field(&r.To, validation.Required, validation.By(noteIDRule)),
	)
}

func noteIDRule(value any) error {
	s, _ := value.(string)
	if err := noteid.Validate(s); err != nil {
		return errors.New("must contain only letters, digits, spaces and _.~!$&'()*+,;@{}/-")
	}
	return nil
}

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteSummary is a lightweight list item (aliased from the domain layer).
type NoteSummary = noteservice.NoteSummary

// NoteListResponse wraps note listings and search results.
type NoteListResponse struct {
	Notes []NoteSummary `json:"notes"`
	Total int           `json:"total"`
}
