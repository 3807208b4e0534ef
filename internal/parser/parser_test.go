package parser

import (
	"reflect"
	"testing"

	"github.com/starford/lumen/internal/models"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	r := Parse("n1", "---\ntitle: Hello\ntags:\n  - go\n  - lumen\n---\n# Hello\nBody text #extra.\n")
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if want := []string{"go", "lumen", "extra"}; !reflect.DeepEqual(r.Tags, want) {
		t.Errorf("tags = %v, want %v", r.Tags, want)
	}
	if r.Body != "# Hello\nBody text #extra.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if r.Frontmatter["title"] != "Hello" {
		t.Errorf("frontmatter = %v", r.Frontmatter)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r := Parse("n1", "# Just a heading\nSome text.\n")
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	raw := "---\n: invalid: yaml: {{{\n---\nBody\n"
	r := Parse("n1", raw)
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Body != raw {
		t.Errorf("body = %q, want whole text", r.Body)
	}
}

func TestParse_UnterminatedFrontmatter(t *testing.T) {
	raw := "---\ntitle: x\nno closing marker #tag\n"
	r := Parse("n1", raw)
	if r.Frontmatter != nil || r.Body != raw {
		t.Errorf("frontmatter = %v body = %q", r.Frontmatter, r.Body)
	}
	if !reflect.DeepEqual(r.Tags, []string{"tag"}) {
		t.Errorf("tags = %v", r.Tags)
	}
}

func TestParse_FrontmatterTagString(t *testing.T) {
	r := Parse("n1", "---\ntags: \"#a, b c\"\n---\nbody")
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(r.Tags, want) {
		t.Errorf("tags = %v, want %v", r.Tags, want)
	}
}

func TestParse_TitleIsFirstH1(t *testing.T) {
	r := Parse("n1", "intro\n\n## Second level\n\n# First\n\n# Later\n")
	if r.Title != "First" {
		t.Errorf("title = %q, want %q", r.Title, "First")
	}
	if r := Parse("n1", "no heading here"); r.Title != "" {
		t.Errorf("title = %q, want empty", r.Title)
	}
}

func TestParse_Links(t *testing.T) {
	r := Parse("n1", "See [[Note A]] and [[note-b|alias]].\nAlso [[ Note A ]] and ![[embed]].")
	if want := []string{"Note A", "note-b", "embed"}; !reflect.DeepEqual(r.Links, want) {
		t.Errorf("links = %v, want %v", r.Links, want)
	}
}

func TestParse_InvalidLinks(t *testing.T) {
	r := Parse("n1", "see [[ ]] and [[|alias]] and [[a#b]] and [[broken\n]] and [[x]")
	if len(r.Links) != 0 {
		t.Errorf("expected no links, got %v", r.Links)
	}
}

func TestParse_Dates(t *testing.T) {
	r := Parse("n1", "Met on [[2024-01-05]] and [[2024-02-29|leap day]], again [[2024-01-05]].")
	if want := []string{"2024-01-05", "2024-02-29"}; !reflect.DeepEqual(r.Dates, want) {
		t.Errorf("dates = %v, want %v", r.Dates, want)
	}
	if len(r.Links) != 0 {
		t.Errorf("date links must not be note links, got %v", r.Links)
	}
}

func TestParse_InvalidDateRejectedEntirely(t *testing.T) {
	r := Parse("n1", "bad [[2024-13-01]] and [[2023-02-29]] and [[2021-W53]]")
	if len(r.Dates) != 0 {
		t.Errorf("dates = %v, want none", r.Dates)
	}
	if len(r.Links) != 0 {
		t.Errorf("links = %v, want none", r.Links)
	}
}

func TestParse_WeekLinks(t *testing.T) {
	r := Parse("n1", "Plan in [[2024-W01]] and [[2020-W53|long year]].")
	if want := []string{"2024-W01", "2020-W53"}; !reflect.DeepEqual(r.Links, want) {
		t.Errorf("links = %v, want %v", r.Links, want)
	}
	if len(r.Dates) != 0 {
		t.Errorf("dates = %v", r.Dates)
	}
}

func TestParse_DateLikeSlugIsLink(t *testing.T) {
	r := Parse("n1", "[[2024-01-05 standup]]")
	if want := []string{"2024-01-05 standup"}; !reflect.DeepEqual(r.Links, want) {
		t.Errorf("links = %v, want %v", r.Links, want)
	}
}

func TestParse_Tags(t *testing.T) {
	body := "#start and #a/b/c, (#paren) and #trail/ x\n" +
		"not a#tag, not https://x.com/#frag, not # heading, #go again #go\n"
	r := Parse("n1", body)
	want := []string{"start", "a/b/c", "paren", "trail", "go"}
	if !reflect.DeepEqual(r.Tags, want) {
		t.Errorf("tags = %v, want %v", r.Tags, want)
	}
}

func TestParse_LinkFragmentsAreNotTags(t *testing.T) {
	body := "See [setup](#install) and ![img](#hero) for details.\n" +
		"Also [docs]( <#faq> \"FAQ\"), [[page]](#anchor) and #kept\n"
	r := Parse("n1", body)
	if want := []string{"kept"}; !reflect.DeepEqual(r.Tags, want) {
		t.Errorf("tags = %v, want %v", r.Tags, want)
	}
	if want := []string{"page"}; !reflect.DeepEqual(r.Links, want) {
		t.Errorf("links = %v, want %v", r.Links, want)
	}
}

func TestParse_TagsMaskedInCode(t *testing.T) {
	body := "Use `#notatag` inline.\n\n```\n#fenced [[linked]]\n```\n\n    #indented\n\n<div>\n#html\n</div>\n\nplain <span>#raw</span> #real\n"
	r := Parse("n1", body)
	if want := []string{"real"}; !reflect.DeepEqual(r.Tags, want) {
		t.Errorf("tags = %v, want %v", r.Tags, want)
	}
	if len(r.Links) != 0 {
		t.Errorf("links = %v, want none", r.Links)
	}
}

func TestParse_TagsInsideWikilinkIgnored(t *testing.T) {
	r := Parse("n1", "[[target|label #nope]]")
	if len(r.Tags) != 0 {
		t.Errorf("tags = %v", r.Tags)
	}
	if !reflect.DeepEqual(r.Links, []string{"target"}) {
		t.Errorf("links = %v", r.Links)
	}
}

func TestParse_Tasks(t *testing.T) {
	body := "# Todo\n\n- [ ] write #docs for [[api]]\n- [x] ship [[2024-01-05]]\n  - [ ] nested\n- plain item\n"
	r := Parse("n1", body)
	if len(r.Tasks) != 3 {
		t.Fatalf("tasks = %+v, want 3", r.Tasks)
	}
	first := r.Tasks[0]
	if first.Title != "write #docs for [[api]]" || first.Completed {
		t.Errorf("first = %+v", first)
	}
	if first.RawBody != "- [ ] write #docs for [[api]]" {
		t.Errorf("first raw = %q", first.RawBody)
	}
	if !reflect.DeepEqual(first.Tags, []string{"docs"}) || !reflect.DeepEqual(first.Links, []string{"api"}) {
		t.Errorf("first facets = %+v", first)
	}
	second := r.Tasks[1]
	if !second.Completed || second.Title != "ship [[2024-01-05]]" {
		t.Errorf("second = %+v", second)
	}
	if second.RawBody != "- [x] ship [[2024-01-05]]\n  - [ ] nested" {
		t.Errorf("second raw = %q", second.RawBody)
	}
	if !reflect.DeepEqual(second.Dates, []string{"2024-01-05"}) {
		t.Errorf("second dates = %v", second.Dates)
	}
	if r.Tasks[2].Title != "nested" || r.Tasks[2].Completed {
		t.Errorf("third = %+v", r.Tasks[2])
	}
}

func TestParse_Type(t *testing.T) {
	cases := []struct {
		id, raw, want string
	}{
		{"2024-01-05", "x", models.TypeDaily},
		{"2024-W02", "x", models.TypeWeekly},
		{"tpl", "---\ntemplate: true\n---\nx", models.TypeTemplate},
		{"1700000000000", "x", models.TypeNote},
	}
	for _, c := range cases {
		if got := Parse(c.id, c.raw).Type; got != c.want {
			t.Errorf("type(%q) = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestParse_EmptyInput(t *testing.T) {
	r := Parse("n1", "")
	if r.Title != "" || len(r.Tags) != 0 || len(r.Links) != 0 || len(r.Dates) != 0 || len(r.Tasks) != 0 {
		t.Errorf("unexpected result %+v", r)
	}
}

func TestUpdateWikilinks(t *testing.T) {
	cases := map[string]string{
		"Link to [[old-id]]":          "Link to [[new-id]]",
		"See [[old-id|My Note]]":      "See [[new-id|My Note]]",
		"Embed ![[old-id]] here":      "Embed ![[new-id]] here",
		"Keep [[other-id]] as is":     "Keep [[other-id]] as is",
		"Keep [[old-id-2]] as well":   "Keep [[old-id-2]] as well",
		"[[old-id]] and [[old-id|x]]": "[[new-id]] and [[new-id|x]]",
	}
	for in, want := range cases {
		if got := UpdateWikilinks(in, "old-id", "new-id"); got != want {
			t.Errorf("UpdateWikilinks(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUpdateWikilinks_SpecialCharacters(t *testing.T) {
	got := UpdateWikilinks("[[a.b]] [[axb]]", "a.b", "cost$1")
	if got != "[[cost$1]] [[axb]]" {
		t.Errorf("got %q", got)
	}
}
