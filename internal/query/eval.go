package query

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/starford/lumen/internal/models"
)

// Facets is the view of a note or task that qualifiers are evaluated against.
type Facets struct {
	ID    string
	Title string
	Type  string
	Tags  []string
	Dates []string
	Links []string

	// HasBacklinks is false for item kinds without a backlinks facet.
	HasBacklinks bool
	Backlinks    []string

	Tasks     int
	OpenTasks int

	Frontmatter map[string]any
}

// NoteFacets describes a note.
func NoteFacets(n *models.Note) Facets {
	return Facets{
		ID:           n.ID,
		Title:        n.Title,
		Type:         n.Type,
		Tags:         n.Tags,
		Dates:        n.Dates,
		Links:        n.Links,
		HasBacklinks: true,
		Backlinks:    n.Backlinks,
		Tasks:        len(n.Tasks),
		OpenTasks:    n.OpenTasks(),
		Frontmatter:  n.Frontmatter,
	}
}

// TaskFacets describes a task. Its id is the parent note's id.
func TaskFacets(t models.TaskItem) Facets {
	return Facets{
		ID:    t.NoteID,
		Title: t.Title,
		Type:  models.TypeTask,
		Tags:  t.Tags,
		Dates: t.Dates,
		Links: t.Links,
	}
}

// Filter keeps the items satisfying every qualifier, preserving order.
func Filter[T any](items []T, qs []Qualifier, facets func(T) Facets) []T {
	if len(qs) == 0 {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if Matches(facets(it), qs) {
			out = append(out, it)
		}
	}
	return out
}

// Matches reports whether f satisfies all qualifiers.
func Matches(f Facets, qs []Qualifier) bool {
	for _, q := range qs {
		if holds(f, q) == q.Exclude {
			return false
		}
	}
	return true
}

func holds(f Facets, q Qualifier) bool {
	switch q.Key {
	case "id":
		return slices.Contains(q.Values, f.ID)
	case "tag":
		return anyIn(f.Tags, q.Values)
	case "tags":
		return inRange(strconv.Itoa(len(f.Tags)), q.Values)
	case "date":
		return slices.ContainsFunc(f.Dates, func(d string) bool { return inRange(d, q.Values) })
	case "dates":
		return inRange(strconv.Itoa(len(f.Dates)), q.Values)
	case "link":
		return anyIn(f.Links, q.Values)
	case "links":
		return inRange(strconv.Itoa(len(f.Links)), q.Values)
	case "backlink":
		return f.HasBacklinks && anyIn(f.Backlinks, q.Values)
	case "backlinks":
		return f.HasBacklinks && inRange(strconv.Itoa(len(f.Backlinks)), q.Values)
	case "tasks":
		return inRange(strconv.Itoa(f.OpenTasks), q.Values)
	case "no":
		return slices.ContainsFunc(q.Values, func(v string) bool { return missing(f, v) })
	case "has":
		return slices.ContainsFunc(q.Values, func(v string) bool { return !missing(f, v) })
	case "is", "type":
		if slices.Contains(q.Values, "published") {
			id, ok := f.Frontmatter["gist_id"]
			return ok && stringify(id) != ""
		}
		return slices.Contains(q.Values, f.Type)
	default:
		v, ok := f.Frontmatter[q.Key]
		return ok && slices.Contains(q.Values, stringify(v))
	}
}

// missing reports whether the facet named by name is absent. Unknown names
// refer to frontmatter keys.
func missing(f Facets, name string) bool {
	switch name {
	case "backlink", "backlinks":
		return len(f.Backlinks) == 0
	case "tag", "tags":
		return len(f.Tags) == 0
	case "date", "dates":
		return len(f.Dates) == 0
	case "link", "links":
		return len(f.Links) == 0
	case "task", "tasks":
		return f.Tasks == 0
	case "title":
		return f.Title == ""
	default:
		_, ok := f.Frontmatter[name]
		return !ok
	}
}

func anyIn(have, want []string) bool {
	for _, h := range have {
		if slices.Contains(want, h) {
			return true
		}
	}
	return false
}

// inRange reports whether actual satisfies any of the values. Comparisons
// are on strings, so counts compare lexicographically: "10" < "9".
func inRange(actual string, values []string) bool {
	for _, v := range values {
		var ok bool
		switch {
		case strings.HasPrefix(v, ">="):
			ok = actual >= v[2:]
		case strings.HasPrefix(v, "<="):
			ok = actual <= v[2:]
		case strings.HasPrefix(v, ">"):
			ok = actual > v[1:]
		case strings.HasPrefix(v, "<"):
			ok = actual < v[1:]
		default:
			ok = actual == v
		}
		if ok {
			return true
		}
	}
	return false
}

// stringify renders a frontmatter value the way it is written in queries.
func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if h, m, s := x.Clock(); h == 0 && m == 0 && s == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = stringify(e)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}
