package notestore

import (
	"sort"
	"sync"

	"github.com/starford/lumen/internal/facets"
	"github.com/starford/lumen/internal/models"
	"github.com/starford/lumen/internal/noteid"
	"github.com/starford/lumen/internal/parser"
	"github.com/starford/lumen/internal/search"
)

// Snapshot is an immutable derived view of the raw store at one version.
// Search indices are built on first use.
type Snapshot struct {
	Version uint64

	byID   map[string]*models.Note
	sorted []*models.Note
	tags   *facets.Index
	dates  *facets.Index

	noteThreshold float64
	tagThreshold  float64

	tasksOnce sync.Once
	tasks     []models.TaskItem

	noteSearchOnce sync.Once
	noteSearch     *search.Searcher[*models.Note]

	tagSearchOnce sync.Once
	tagSearch     *search.Searcher[facets.Entry]

	taskSearchOnce sync.Once
	taskSearch     *search.Searcher[models.TaskItem]
}

// Derive parses every raw note and links backlinks. It is a pure function of
// raw; the Store only adds caching of per-note parse results on top.
func Derive(raw map[string]string) *Snapshot {
	return derive(raw, 0, parser.Parse, search.DefaultThreshold, search.DefaultThreshold)
}

func derive(raw map[string]string, version uint64, parse func(id, body string) *parser.Result, noteThreshold, tagThreshold float64) *Snapshot {
	byID := make(map[string]*models.Note, len(raw))
	sorted := make([]*models.Note, 0, len(raw))
	for id, body := range raw {
		r := parse(id, body)
		n := &models.Note{
			ID:          id,
			RawBody:     body,
			Frontmatter: r.Frontmatter,
			Title:       r.Title,
			Tags:        r.Tags,
			Dates:       r.Dates,
			Links:       r.Links,
			Tasks:       r.Tasks,
			Backlinks:   []string{},
			Type:        r.Type,
		}
		byID[id] = n
		sorted = append(sorted, n)
	}
	sortNotes(sorted)

	for _, a := range sorted {
		for _, target := range a.Links {
			b, ok := byID[target]
			if !ok || b.ID == a.ID {
				continue
			}
			if bl := b.Backlinks; len(bl) > 0 && bl[len(bl)-1] == a.ID {
				continue
			}
			b.Backlinks = append(b.Backlinks, a.ID)
		}
	}

	return &Snapshot{
		Version:       version,
		byID:          byID,
		sorted:        sorted,
		tags:          facets.BuildTags(sorted),
		dates:         facets.BuildDates(sorted),
		noteThreshold: noteThreshold,
		tagThreshold:  tagThreshold,
	}
}

// sortNotes orders timestamp ids first, newest first, then every other id
// in descending order.
func sortNotes(ns []*models.Note) {
	sort.Slice(ns, func(i, j int) bool {
		a, b := ns[i].ID, ns[j].ID
		an, bn := noteid.IsNumeric(a), noteid.IsNumeric(b)
		if an != bn {
			return an
		}
		return a > b
	})
}

// Note returns the note with id.
func (s *Snapshot) Note(id string) (*models.Note, bool) {
	n, ok := s.byID[id]
	return n, ok
}

// Notes returns the id → note mapping. Callers must not modify it.
func (s *Snapshot) Notes() map[string]*models.Note {
	return s.byID
}

// Sorted returns notes in display order.
func (s *Snapshot) Sorted() []*models.Note {
	return s.sorted
}

// Len returns the number of notes.
func (s *Snapshot) Len() int {
	return len(s.sorted)
}

// Tags returns the tag index.
func (s *Snapshot) Tags() *facets.Index {
	return s.tags
}

// Dates returns the date index.
func (s *Snapshot) Dates() *facets.Index {
	return s.dates
}

// Templates returns notes whose frontmatter declares template, in display
// order.
func (s *Snapshot) Templates() []*models.Note {
	var out []*models.Note
	for _, n := range s.sorted {
		if _, ok := n.Frontmatter["template"]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Tasks flattens every note's tasks in display order.
func (s *Snapshot) Tasks() []models.TaskItem {
	s.tasksOnce.Do(func() {
		for _, n := range s.sorted {
			for i, t := range n.Tasks {
				s.tasks = append(s.tasks, models.TaskItem{NoteID: n.ID, Index: i, Task: t})
			}
		}
	})
	return s.tasks
}

// SearchNotes fuzzy-matches notes by title, body and id.
func (s *Snapshot) SearchNotes(pattern string) []search.Result[*models.Note] {
	s.noteSearchOnce.Do(func() {
		s.noteSearch = search.New(s.sorted, s.noteThreshold,
			search.Key[*models.Note]{Name: "title", Weight: 1, Get: func(n *models.Note) string { return n.Title }},
			search.Key[*models.Note]{Name: "rawBody", Weight: 0.5, Get: func(n *models.Note) string { return n.RawBody }},
			search.Key[*models.Note]{Name: "id", Weight: 1, Get: func(n *models.Note) string { return n.ID }},
		)
	})
	return s.noteSearch.Search(pattern)
}

// SearchTags fuzzy-matches tag names.
func (s *Snapshot) SearchTags(pattern string) []search.Result[facets.Entry] {
	s.tagSearchOnce.Do(func() {
		s.tagSearch = search.New(s.tags.Sorted(), s.tagThreshold,
			search.Key[facets.Entry]{Name: "name", Weight: 1, Get: func(e facets.Entry) string { return e.Name }},
		)
	})
	return s.tagSearch.Search(pattern)
}

// SearchTasks fuzzy-matches tasks by title and raw text.
func (s *Snapshot) SearchTasks(pattern string) []search.Result[models.TaskItem] {
	s.taskSearchOnce.Do(func() {
		s.taskSearch = search.New(s.Tasks(), s.noteThreshold,
			search.Key[models.TaskItem]{Name: "title", Weight: 1, Get: func(t models.TaskItem) string { return t.Title }},
			search.Key[models.TaskItem]{Name: "rawBody", Weight: 0.5, Get: func(t models.TaskItem) string { return t.RawBody }},
		)
	})
	return s.taskSearch.Search(pattern)
}
