package notestore

import (
	"reflect"
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

var idPool = []string{"1700000000001", "1700000000002", "2024-01-05", "alpha", "beta"}

// rawStoreGen draws a raw store whose bodies link within idPool.
func rawStoreGen() *rapid.Generator[map[string]string] {
	return rapid.Custom(func(t *rapid.T) map[string]string {
		raw := make(map[string]string)
		for _, id := range idPool {
			if !rapid.Bool().Draw(t, "present:"+id) {
				continue
			}
			targets := rapid.SliceOfN(rapid.SampledFrom(idPool), 0, 6).Draw(t, "links:"+id)
			var b strings.Builder
			b.WriteString("# " + id + "\n\n")
			for _, target := range targets {
				b.WriteString("see [[" + target + "]] ")
			}
			if rapid.Bool().Draw(t, "tag:"+id) {
				b.WriteString("#topic")
			}
			raw[id] = b.String()
		}
		return raw
	})
}

func loaded(raw map[string]string) *Store {
	s := New()
	for id, body := range raw {
		s.Upsert(id, body)
	}
	return s
}

func TestStore_UpsertIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rawStoreGen().Draw(t, "raw")
		s := loaded(raw)
		before := s.SortedNotes()
		v := s.Version()
		for id, body := range raw {
			if s.Upsert(id, body) {
				t.Fatalf("re-upsert of %q reported a change", id)
			}
		}
		if s.Version() != v {
			t.Fatalf("version moved from %d to %d", v, s.Version())
		}
		if !reflect.DeepEqual(before, s.SortedNotes()) {
			t.Fatal("derived notes changed after identical upsert")
		}
	})
}

func TestStore_BacklinkSymmetry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		snap := loaded(rawStoreGen().Draw(t, "raw")).Snapshot()
		for _, a := range snap.Sorted() {
			if slices.Contains(a.Backlinks, a.ID) {
				t.Fatalf("%q lists itself as a backlink", a.ID)
			}
			for _, target := range a.Links {
				b, ok := snap.Note(target)
				if !ok || b.ID == a.ID {
					continue
				}
				n := 0
				for _, bl := range b.Backlinks {
					if bl == a.ID {
						n++
					}
				}
				if n != 1 {
					t.Fatalf("%q appears %d times in backlinks of %q", a.ID, n, b.ID)
				}
			}
			for _, src := range a.Backlinks {
				from, ok := snap.Note(src)
				if !ok || !slices.Contains(from.Links, a.ID) {
					t.Fatalf("backlink %q of %q has no matching link", src, a.ID)
				}
			}
		}
	})
}

func TestStore_DeleteCleansBacklinks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rawStoreGen().Draw(t, "raw")
		if len(raw) == 0 {
			return
		}
		s := loaded(raw)
		ids := make([]string, 0, len(raw))
		for id := range raw {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		victim := rapid.SampledFrom(ids).Draw(t, "victim")
		if !s.Delete(victim) {
			t.Fatalf("delete %q reported no change", victim)
		}
		snap := s.Snapshot()
		if _, ok := snap.Note(victim); ok {
			t.Fatalf("%q still present", victim)
		}
		for _, n := range snap.Sorted() {
			if slices.Contains(n.Backlinks, victim) {
				t.Fatalf("%q still lists deleted %q as a backlink", n.ID, victim)
			}
		}
	})
}

func TestStore_MemoizedMatchesFromScratch(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rawStoreGen().Draw(t, "raw")
		s := loaded(raw)
		_ = s.Snapshot()
		edit := rapid.SampledFrom(idPool).Draw(t, "edit")
		s.Upsert(edit, "changed [[alpha]] #x")

		got := s.Snapshot().Sorted()
		want := Derive(s.RawAll()).Sorted()
		if !reflect.DeepEqual(got, want) {
			t.Fatal("memoized snapshot differs from a fresh derivation")
		}
	})
}

func TestStore_SortOrder(t *testing.T) {
	s := New()
	for _, id := range []string{"alpha", "1700000000001", "2024-01-05", "1700000000009", "zeta", "99"} {
		s.Upsert(id, "x")
	}
	var got []string
	for _, n := range s.SortedNotes() {
		got = append(got, n.ID)
	}
	want := []string{"99", "1700000000009", "1700000000001", "zeta", "alpha", "2024-01-05"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestStore_BacklinkOrderFollowsSortedNotes(t *testing.T) {
	s := New()
	s.Upsert("target", "# Target [[target]]")
	s.Upsert("1700000000001", "[[target]] [[target]]")
	s.Upsert("1700000000002", "[[target]]")
	s.Upsert("b", "[[target]] [[missing]]")

	n := s.Notes()["target"]
	want := []string{"1700000000002", "1700000000001", "b"}
	if !reflect.DeepEqual(n.Backlinks, want) {
		t.Errorf("backlinks = %v, want %v", n.Backlinks, want)
	}
	if _, ok := s.Notes()["missing"]; ok {
		t.Error("dangling link target must not be created")
	}
}

func TestStore_SnapshotMemoizedPerVersion(t *testing.T) {
	s := New()
	s.Upsert("a", "x")
	first := s.Snapshot()
	if s.Snapshot() != first {
		t.Fatal("snapshot should be reused while the store is unchanged")
	}
	s.Upsert("a", "y")
	if s.Snapshot() == first {
		t.Fatal("snapshot should be rebuilt after a change")
	}
}

func TestStore_Subscribe(t *testing.T) {
	s := New()
	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	s.Upsert("a", "x")
	s.Upsert("a", "x")
	s.Delete("a")
	s.Delete("a")
	unsubscribe()
	s.Upsert("b", "y")

	want := []Change{
		{Kind: ChangeUpserted, ID: "a", Version: 1},
		{Kind: ChangeDeleted, ID: "a", Version: 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("changes = %+v, want %+v", got, want)
	}
}

func TestStore_TemplatesAndTasks(t *testing.T) {
	s := New()
	s.Upsert("tpl", "---\ntemplate: daily\n---\n- [ ] plan")
	s.Upsert("1700000000001", "- [x] done\n- [ ] open #work")

	tpls := s.Templates()
	if len(tpls) != 1 || tpls[0].ID != "tpl" {
		t.Fatalf("templates = %+v", tpls)
	}
	tasks := s.Snapshot().Tasks()
	if len(tasks) != 3 {
		t.Fatalf("tasks = %+v", tasks)
	}
	if tasks[0].NoteID != "1700000000001" || tasks[1].Index != 1 || tasks[2].NoteID != "tpl" {
		t.Errorf("tasks = %+v", tasks)
	}
	if !reflect.DeepEqual(tasks[1].Tags, []string{"work"}) {
		t.Errorf("task tags = %v", tasks[1].Tags)
	}
}

func TestStore_Reset(t *testing.T) {
	s := New()
	s.Upsert("old", "x")
	s.Reset(map[string]string{"new": "[[old]]"})
	if _, ok := s.Raw("old"); ok {
		t.Error("old note should be gone after reset")
	}
	if n := s.Notes()["new"]; n == nil || !reflect.DeepEqual(n.Links, []string{"old"}) {
		t.Errorf("new = %+v", n)
	}
}

func TestSnapshot_SearchNotes(t *testing.T) {
	s := New()
	s.Upsert("1", "# Gardening tips\nwater daily")
	s.Upsert("2", "# Cooking\npasta")
	rs := s.Snapshot().SearchNotes("gardening")
	if len(rs) == 0 || rs[0].Item.ID != "1" {
		t.Fatalf("results = %+v", rs)
	}
	tags := s.Snapshot().SearchTags("x")
	if len(tags) != 0 {
		t.Errorf("tag results = %+v", tags)
	}
}
