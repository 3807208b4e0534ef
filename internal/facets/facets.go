// Package facets builds the tag and date indices over a note collection.
package facets

import (
	"sort"
	"strings"

	"github.com/starford/lumen/internal/models"
)

// Entry is one index key with the ids of the notes referencing it.
type Entry struct {
	Name    string   `json:"name"`
	NoteIDs []string `json:"note_ids"`
}

// Index maps a tag or date to the ids of the notes that reference it.
// Each note id appears at most once per key.
type Index struct {
	m map[string][]string
}

// Build indexes notes in the given order using get to read each note's keys.
func Build(notes []*models.Note, get func(*models.Note) []string) *Index {
	m := make(map[string][]string)
	for _, n := range notes {
		for _, k := range get(n) {
			ids := m[k]
			if len(ids) > 0 && ids[len(ids)-1] == n.ID {
				continue
			}
			m[k] = append(ids, n.ID)
		}
	}
	return &Index{m: m}
}

// BuildTags indexes notes by tag.
func BuildTags(notes []*models.Note) *Index {
	return Build(notes, func(n *models.Note) []string { return n.Tags })
}

// BuildDates indexes notes by referenced date.
func BuildDates(notes []*models.Note) *Index {
	return Build(notes, func(n *models.Note) []string { return n.Dates })
}

// Get returns the note ids for name, or nil.
func (i *Index) Get(name string) []string {
	return i.m[name]
}

// Len returns the number of distinct keys.
func (i *Index) Len() int {
	return len(i.m)
}

// Sorted returns all entries ascending by name.
func (i *Index) Sorted() []Entry {
	out := make([]Entry, 0, len(i.m))
	for k, ids := range i.m {
		out = append(out, Entry{Name: k, NoteIDs: ids})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// TagNode is one segment of the hierarchical tag tree. Count is the number of
// notes tagged with exactly Path; Total counts distinct notes in the subtree.
type TagNode struct {
	Name     string     `json:"name"`
	Path     string     `json:"path"`
	Count    int        `json:"count"`
	Total    int        `json:"total"`
	Children []*TagNode `json:"children,omitempty"`
}

// BuildTree arranges slash-separated tags into a forest of TagNodes with
// children sorted by name.
func BuildTree(idx *Index) []*TagNode {
	type node struct {
		*TagNode
		kids map[string]*node
	}
	root := &node{TagNode: &TagNode{}, kids: map[string]*node{}}
	for _, e := range idx.Sorted() {
		cur := root
		for _, seg := range strings.Split(e.Name, "/") {
			next, ok := cur.kids[seg]
			if !ok {
				path := seg
				if cur != root {
					path = cur.Path + "/" + seg
				}
				next = &node{TagNode: &TagNode{Name: seg, Path: path}, kids: map[string]*node{}}
				cur.kids[seg] = next
			}
			cur = next
		}
		cur.Count = len(e.NoteIDs)
	}

	var finish func(n *node) map[string]struct{}
	finish = func(n *node) map[string]struct{} {
		ids := make(map[string]struct{})
		if n != root {
			for _, id := range idx.Get(n.Path) {
				ids[id] = struct{}{}
			}
		}
		names := make([]string, 0, len(n.kids))
		for name := range n.kids {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			kid := n.kids[name]
			for id := range finish(kid) {
				ids[id] = struct{}{}
			}
			n.Children = append(n.Children, kid.TagNode)
		}
		n.Total = len(ids)
		return ids
	}
	finish(root)
	return root.Children
}
