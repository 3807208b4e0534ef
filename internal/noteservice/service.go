// Package noteservice coordinates the note store with the vault and the
// SQLite cache, and answers queries for the transport layers.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/starford/lumen/internal/apperr"
	"github.com/starford/lumen/internal/checksum"
	"github.com/starford/lumen/internal/facets"
	"github.com/starford/lumen/internal/index"
	"github.com/starford/lumen/internal/models"
	"github.com/starford/lumen/internal/noteid"
	"github.com/starford/lumen/internal/notestore"
	"github.com/starford/lumen/internal/parser"
	"github.com/starford/lumen/internal/query"
	"github.com/starford/lumen/internal/storage"
)

// DefaultLimit caps search results when the caller passes no limit.
const DefaultLimit = 50

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	Checksum string `json:"checksum"`
}

// NoteSummary is a lightweight item in list and search responses. Score is
// set only for fuzzy matches.
type NoteSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Type      string   `json:"type"`
	Tags      []string `json:"tags"`
	Backlinks int      `json:"backlinks"`
	OpenTasks int      `json:"open_tasks"`
	Score     *float64 `json:"score,omitempty"`
}

// RenameResult reports a rename and the notes whose links were rewritten.
type RenameResult struct {
	Note    *NoteDetail `json:"note"`
	Updated []string    `json:"updated"`
}

// Service coordinates store, vault and cache. Writes go to the vault first,
// then the cache, then the in-memory store.
type Service struct {
	store *notestore.Store
	vault storage.Provider
	cache index.NoteCache
	limit int
	now   func() time.Time

	writeMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLimit sets the default result limit.
func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithClock overrides the time source used for generated ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new note service.
func NewService(store *notestore.Store, vault storage.Provider, cache index.NoteCache, opts ...Option) *Service {
	s := &Service{store: store, vault: vault, cache: cache, limit: DefaultLimit, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetNote returns a note with its derived fields.
func (s *Service) GetNote(_ context.Context, id string) (*NoteDetail, error) {
	n, ok := s.store.Snapshot().Note(id)
	if !ok {
		return nil, fmt.Errorf("noteservice: get %s: %w", id, apperr.ErrNotFound)
	}
	return detail(n), nil
}

// CreateNote stores a new note. An empty id gets a fresh timestamp id.
func (s *Service) CreateNote(_ context.Context, id, content string) (*NoteDetail, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if id == "" {
		id = s.freshID()
	}
	if err := noteid.Validate(id); err != nil {
		return nil, err
	}
	if _, exists := s.store.Raw(id); exists {
		return nil, fmt.Errorf("noteservice: create %s: %w", id, apperr.ErrAlreadyExists)
	}
	if err := s.write(id, content); err != nil {
		return nil, err
	}
	return s.GetNote(context.Background(), id)
}

// UpsertNote writes content for id, creating the note when missing. A
// non-empty ifMatch must equal the checksum of the current body.
func (s *Service) UpsertNote(_ context.Context, id, content, ifMatch string) (*NoteDetail, bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := noteid.Validate(id); err != nil {
		return nil, false, err
	}
	current, exists := s.store.Raw(id)
	if ifMatch != "" {
		if !exists {
			return nil, false, fmt.Errorf("noteservice: update %s: %w", id, apperr.ErrNotFound)
		}
		if ifMatch != checksum.String(current) {
			return nil, false, fmt.Errorf("noteservice: update %s: %w", id, apperr.ErrConflict)
		}
	}
	if err := s.write(id, content); err != nil {
		return nil, false, err
	}
	n, err := s.GetNote(context.Background(), id)
	return n, !exists, err
}

// DeleteNote removes a note from vault, cache and store.
func (s *Service) DeleteNote(_ context.Context, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if _, ok := s.store.Raw(id); !ok {
		return fmt.Errorf("noteservice: delete %s: %w", id, apperr.ErrNotFound)
	}
	if err := s.vault.Delete(id); err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if err := s.cache.DeleteNote(id); err != nil {
		return err
	}
	s.store.Delete(id)
	return nil
}

// RenameNote moves a note to a new id and rewrites every wikilink that
// pointed at the old id.
func (s *Service) RenameNote(_ context.Context, from, to string) (*RenameResult, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := noteid.Validate(to); err != nil {
		return nil, err
	}
	snap := s.store.Snapshot()
	old, ok := snap.Note(from)
	if !ok {
		return nil, fmt.Errorf("noteservice: rename %s: %w", from, apperr.ErrNotFound)
	}
	if _, exists := snap.Note(to); exists {
		return nil, fmt.Errorf("noteservice: rename to %s: %w", to, apperr.ErrAlreadyExists)
	}

	if err := s.vault.Move(from, to); err != nil {
		return nil, err
	}
	if err := s.cache.DeleteNote(from); err != nil {
		return nil, err
	}
	s.store.Delete(from)
	body := parser.UpdateWikilinks(old.RawBody, from, to)
	if err := s.write(to, body); err != nil {
		return nil, err
	}

	updated := []string{}
	for _, src := range old.Backlinks {
		raw, ok := s.store.Raw(src)
		if !ok {
			continue
		}
		rewritten := parser.UpdateWikilinks(raw, from, to)
		if rewritten == raw {
			continue
		}
		if err := s.write(src, rewritten); err != nil {
			return nil, err
		}
		updated = append(updated, src)
	}

	n, err := s.GetNote(context.Background(), to)
	if err != nil {
		return nil, err
	}
	return &RenameResult{Note: n, Updated: updated}, nil
}

// Search answers a query string: the fuzzy part ranks candidates first, then
// qualifiers filter them. Without a fuzzy part the sorted collection is
// filtered in display order.
func (s *Service) Search(_ context.Context, raw string, limit int) []NoteSummary {
	q := query.Parse(raw)
	snap := s.store.Snapshot()

	var candidates []*models.Note
	scores := make(map[string]float64)
	if q.Fuzzy != "" {
		for _, r := range snap.SearchNotes(q.Fuzzy) {
			candidates = append(candidates, r.Item)
			scores[r.Item.ID] = r.Score
		}
	} else {
		candidates = snap.Sorted()
	}

	matched := query.Filter(candidates, q.Qualifiers, query.NoteFacets)
	matched = matched[:min(len(matched), s.effectiveLimit(limit))]
	out := make([]NoteSummary, len(matched))
	for i, n := range matched {
		out[i] = summary(n)
		if sc, ok := scores[n.ID]; ok {
			out[i].Score = &sc
		}
	}
	return out
}

// SearchTasks runs a query over every task in the collection.
func (s *Service) SearchTasks(_ context.Context, raw string, limit int) []models.TaskItem {
	q := query.Parse(raw)
	snap := s.store.Snapshot()

	var candidates []models.TaskItem
	if q.Fuzzy != "" {
		for _, r := range snap.SearchTasks(q.Fuzzy) {
			candidates = append(candidates, r.Item)
		}
	} else {
		candidates = snap.Tasks()
	}
	matched := query.Filter(candidates, q.Qualifiers, query.TaskFacets)
	out := matched[:min(len(matched), s.effectiveLimit(limit))]
	if out == nil {
		out = []models.TaskItem{}
	}
	return out
}

// Tags returns every tag with its notes, ascending by name.
func (s *Service) Tags(_ context.Context) []facets.Entry {
	return s.store.Snapshot().Tags().Sorted()
}

// TagTree returns tags arranged by their slash-separated segments.
func (s *Service) TagTree(_ context.Context) []*facets.TagNode {
	return facets.BuildTree(s.store.Snapshot().Tags())
}

// SearchTags fuzzy-matches tag names.
func (s *Service) SearchTags(_ context.Context, pattern string) []facets.Entry {
	out := []facets.Entry{}
	for _, r := range s.store.Snapshot().SearchTags(pattern) {
		out = append(out, r.Item)
	}
	return out
}

// Dates returns every referenced date with its notes, ascending.
func (s *Service) Dates(_ context.Context) []facets.Entry {
	return s.store.Snapshot().Dates().Sorted()
}

// Templates lists template notes.
func (s *Service) Templates(_ context.Context) []NoteSummary {
	tpls := s.store.Templates()
	out := make([]NoteSummary, len(tpls))
	for i, n := range tpls {
		out[i] = summary(n)
	}
	return out
}

// Backlinks returns the ids of notes linking to id.
func (s *Service) Backlinks(_ context.Context, id string) ([]string, error) {
	n, ok := s.store.Snapshot().Note(id)
	if !ok {
		return nil, fmt.Errorf("noteservice: backlinks %s: %w", id, apperr.ErrNotFound)
	}
	return n.Backlinks, nil
}

func (s *Service) write(id, body string) error {
	if err := s.vault.Write(id, body); err != nil {
		return err
	}
	if err := s.cache.UpsertNote(id, body, s.now()); err != nil {
		return err
	}
	s.store.Upsert(id, body)
	return nil
}

// freshID returns a timestamp id not yet in use.
func (s *Service) freshID() string {
	t := s.now()
	for {
		id := noteid.Generate(t)
		if _, taken := s.store.Raw(id); !taken {
			return id
		}
		t = t.Add(time.Millisecond)
	}
}

func (s *Service) effectiveLimit(limit int) int {
	if limit <= 0 {
		return s.limit
	}
	return limit
}

func detail(n *models.Note) *NoteDetail {
	return &NoteDetail{Note: *n, Checksum: checksum.String(n.RawBody)}
}

func summary(n *models.Note) NoteSummary {
	return NoteSummary{
		ID:        n.ID,
		Title:     n.Title,
		Type:      n.Type,
		Tags:      n.Tags,
		Backlinks: len(n.Backlinks),
		OpenTasks: n.OpenTasks(),
	}
}
