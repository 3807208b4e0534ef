// Package notestore owns the raw id → markdown mapping and derives the parsed
// note collection, backlinks, facets and search indices from it.
//
// Writers take the lock; readers get an immutable Snapshot memoized per
// store version, so a derivation never observes a mutation mid-scan.
package notestore

import (
	"maps"
	"sync"

	"github.com/starford/lumen/internal/models"
	"github.com/starford/lumen/internal/parser"
	"github.com/starford/lumen/internal/search"
)

// ChangeKind identifies a store mutation.
type ChangeKind string

const (
	ChangeUpserted ChangeKind = "upserted"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeReset    ChangeKind = "reset"
)

// Change is delivered to subscribers after every effective mutation.
type Change struct {
	Kind    ChangeKind
	ID      string
	Version uint64
}

type parsed struct {
	body   string
	result *parser.Result
}

// Store is the single source of truth for raw note bodies.
type Store struct {
	mu      sync.RWMutex
	raw     map[string]string
	version uint64
	cache   map[string]parsed
	snap    *Snapshot

	noteThreshold float64
	tagThreshold  float64

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Change)
}

// Option configures a Store.
type Option func(*Store)

// WithThresholds sets the fuzzy acceptance thresholds for notes/tasks and tags.
func WithThresholds(notes, tags float64) Option {
	return func(s *Store) {
		s.noteThreshold = notes
		s.tagThreshold = tags
	}
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		raw:           make(map[string]string),
		cache:         make(map[string]parsed),
		noteThreshold: search.DefaultThreshold,
		tagThreshold:  search.DefaultThreshold,
		subs:          make(map[int]func(Change)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Upsert stores body under id. It reports false, and notifies nobody, when
// the stored body is already identical.
func (s *Store) Upsert(id, body string) bool {
	s.mu.Lock()
	if cur, ok := s.raw[id]; ok && cur == body {
		s.mu.Unlock()
		return false
	}
	s.raw[id] = body
	v := s.bump()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeUpserted, ID: id, Version: v})
	return true
}

// Delete removes id. Links pointing at it are left dangling.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	if _, ok := s.raw[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.raw, id)
	delete(s.cache, id)
	v := s.bump()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeDeleted, ID: id, Version: v})
	return true
}

// Reset replaces the whole raw mapping.
func (s *Store) Reset(raw map[string]string) {
	s.mu.Lock()
	s.raw = maps.Clone(raw)
	if s.raw == nil {
		s.raw = make(map[string]string)
	}
	v := s.bump()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeReset, Version: v})
}

func (s *Store) bump() uint64 {
	s.version++
	s.snap = nil
	return s.version
}

// Raw returns the stored body for id.
func (s *Store) Raw(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.raw[id]
	return body, ok
}

// RawAll returns a copy of the raw mapping.
func (s *Store) RawAll() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.raw)
}

// Version returns the current store version.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the derived view for the current version, building it if
// needed. Only notes whose body changed since the last build are reparsed.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	snap := s.snap
	s.mu.RUnlock()
	if snap != nil {
		return snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap != nil {
		return s.snap
	}
	for id := range s.cache {
		if _, ok := s.raw[id]; !ok {
			delete(s.cache, id)
		}
	}
	s.snap = derive(s.raw, s.version, s.parseCached, s.noteThreshold, s.tagThreshold)
	return s.snap
}

// parseCached must be called with mu held for writing.
func (s *Store) parseCached(id, body string) *parser.Result {
	if p, ok := s.cache[id]; ok && p.body == body {
		return p.result
	}
	r := parser.Parse(id, body)
	s.cache[id] = parsed{body: body, result: r}
	return r
}

// Notes returns the id → note mapping of the current snapshot.
func (s *Store) Notes() map[string]*models.Note {
	return s.Snapshot().Notes()
}

// SortedNotes returns notes in display order.
func (s *Store) SortedNotes() []*models.Note {
	return s.Snapshot().Sorted()
}

// Templates returns notes whose frontmatter declares template.
func (s *Store) Templates() []*models.Note {
	return s.Snapshot().Templates()
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs synchronously on the mutating goroutine.
func (s *Store) Subscribe(fn func(Change)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}
