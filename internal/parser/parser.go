// Package parser extracts frontmatter, title, tags, dates, wikilinks and tasks
// from a note's raw markdown.
//
// Block structure (code, raw HTML, headings, task list items) comes from a
// goldmark GFM parse of the body. The inline micro-syntax (wikilinks, date
// links, #tags) is recognised by small state-machine scanners that run over
// the body with code and HTML masked out.
package parser

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/starford/lumen/internal/models"
	"github.com/starford/lumen/internal/noteid"
)

const fence = "---"

var (
	md          = goldmark.New(goldmark.WithExtensions(extension.GFM))
	checkboxRe  = regexp.MustCompile(`^\s*\[[ xX]\]\s*`)
	linkDestRe  = regexp.MustCompile(`\]\(\s*<?([^\s)>]+)`)
	fmTagSplitF = func(r rune) bool { return r == ',' || r == ' ' || r == '\t' || r == '\n' }
)

// Result holds the output of parsing one note.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Title       string
	Tags        []string
	Dates       []string
	Links       []string
	Tasks       []models.Task
	Type        string
}

// Parse turns a note's raw text into structured fields. It never fails:
// malformed constructs are dropped and logged at debug level.
func Parse(id, raw string) *Result {
	fm, body := splitFrontmatter(id, raw)
	src := []byte(body)
	doc := md.Parser().Parse(text.NewReader(src))

	mask := make([]bool, len(src))
	var (
		title  string
		titled bool
		items  []taskSpan
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindFencedCodeBlock:
			fcb := n.(*ast.FencedCodeBlock)
			if fcb.Info != nil {
				maskSegment(mask, fcb.Info.Segment)
			}
			maskLines(mask, n.Lines())
			return ast.WalkSkipChildren, nil
		case ast.KindCodeBlock:
			maskLines(mask, n.Lines())
			return ast.WalkSkipChildren, nil
		case ast.KindHTMLBlock:
			hb := n.(*ast.HTMLBlock)
			maskLines(mask, n.Lines())
			if hb.HasClosure() {
				maskSegment(mask, hb.ClosureLine)
			}
			return ast.WalkSkipChildren, nil
		case ast.KindCodeSpan:
			maskInlineChildren(mask, n)
			return ast.WalkSkipChildren, nil
		case ast.KindRawHTML:
			segs := n.(*ast.RawHTML).Segments
			for i := 0; i < segs.Len(); i++ {
				maskSegment(mask, segs.At(i))
			}
			return ast.WalkSkipChildren, nil
		case ast.KindHeading:
			if h := n.(*ast.Heading); h.Level == 1 && !titled {
				title = strings.TrimSpace(string(linesValue(h.Lines(), src)))
				titled = true
			}
		case ast.KindListItem:
			if span, ok := taskItem(n, src); ok {
				items = append(items, span)
			}
		}
		return ast.WalkContinue, nil
	})

	maskLinkDestinations(mask, src)
	toks := scan(id, src, mask)

	r := &Result{
		Frontmatter: fm,
		Body:        body,
		Title:       title,
		Tags:        frontmatterTags(fm),
		Type:        noteType(id, fm),
	}
	r.Tags, r.Dates, r.Links = collect(toks, 0, len(src), r.Tags)
	for _, it := range items {
		t := models.Task{
			RawBody:   strings.TrimRight(body[it.start:it.end], "\r\n"),
			Title:     it.title,
			Completed: it.checked,
		}
		t.Tags, t.Dates, t.Links = collect(toks, it.start, it.end, nil)
		r.Tasks = append(r.Tasks, t)
	}
	return r
}

// splitFrontmatter separates a leading YAML block delimited by "---" lines.
// A missing closing line or invalid YAML leaves the whole text as body.
func splitFrontmatter(id, raw string) (map[string]any, string) {
	first, _, ok := strings.Cut(raw, "\n")
	if !ok || strings.TrimRight(first, "\r") != fence {
		return nil, raw
	}
	open := len(first) + 1
	for off := open; off <= len(raw); {
		line, _, more := strings.Cut(raw[off:], "\n")
		if strings.TrimRight(line, "\r") == fence {
			bodyStart := off + len(line)
			if more {
				bodyStart++
			}
			var fm map[string]any
			if err := yaml.Unmarshal([]byte(raw[open:off]), &fm); err != nil {
				slog.Debug("parser: invalid frontmatter", slog.String("id", id), slog.String("error", err.Error()))
				return nil, raw
			}
			if fm == nil {
				fm = map[string]any{}
			}
			return fm, raw[bodyStart:]
		}
		if !more {
			break
		}
		off += len(line) + 1
	}
	slog.Debug("parser: unterminated frontmatter", slog.String("id", id))
	return nil, raw
}

func frontmatterTags(fm map[string]any) []string {
	var out []string
	add := func(s string) {
		s = strings.Trim(strings.TrimSpace(s), "#/")
		if s != "" {
			out = append(out, s)
		}
	}
	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		for _, s := range strings.FieldsFunc(v, fmTagSplitF) {
			add(s)
		}
	}
	return dedupe(out)
}

func noteType(id string, fm map[string]any) string {
	switch {
	case noteid.IsDate(id):
		return models.TypeDaily
	case noteid.IsWeek(id):
		return models.TypeWeekly
	}
	if _, ok := fm["template"]; ok {
		return models.TypeTemplate
	}
	return models.TypeNote
}

type taskSpan struct {
	start, end int
	title      string
	checked    bool
}

// taskItem reports the source span of a GFM task list item: from the start of
// the marker line to the end of its last (possibly nested) line.
func taskItem(n ast.Node, src []byte) (taskSpan, bool) {
	first := n.FirstChild()
	if first == nil || first.Type() != ast.TypeBlock || first.Lines().Len() == 0 {
		return taskSpan{}, false
	}
	cb, ok := first.FirstChild().(*extast.TaskCheckBox)
	if !ok {
		return taskSpan{}, false
	}
	start := first.Lines().At(0).Start
	end := start
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || c.Type() != ast.TypeBlock {
			return ast.WalkContinue, nil
		}
		if lines := c.Lines(); lines.Len() > 0 {
			end = max(end, lines.At(lines.Len()-1).Stop)
		}
		return ast.WalkContinue, nil
	})
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	// Line segments may carry their newline; step back so the span ends on
	// the item's own last line.
	for end > start && (src[end-1] == '\n' || src[end-1] == '\r') {
		end--
	}
	for end < len(src) && src[end] != '\n' {
		end++
	}
	head := checkboxRe.ReplaceAllString(string(linesValue(first.Lines(), src)), "")
	return taskSpan{
		start:   start,
		end:     end,
		title:   strings.Join(strings.Fields(head), " "),
		checked: cb.IsChecked,
	}, true
}

func maskSegment(mask []bool, s text.Segment) {
	for i := max(s.Start, 0); i < s.Stop && i < len(mask); i++ {
		mask[i] = true
	}
}

// linesValue joins the bytes covered by lines.
func linesValue(lines *text.Segments, src []byte) []byte {
	var b []byte
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b = append(b, seg.Value(src)...)
	}
	return b
}

// maskLinkDestinations hides the destination of inline links and images
// so URL fragments such as "(#install)" never read as tags.
func maskLinkDestinations(mask []bool, src []byte) {
	for _, m := range linkDestRe.FindAllSubmatchIndex(src, -1) {
		if mask[m[0]] {
			continue
		}
		maskSegment(mask, text.NewSegment(m[2], m[3]))
	}
}

func maskLines(mask []bool, lines *text.Segments) {
	for i := 0; i < lines.Len(); i++ {
		maskSegment(mask, lines.At(i))
	}
}

// maskInlineChildren covers a code span from its first to its last text child.
func maskInlineChildren(mask []bool, n ast.Node) {
	first, ok := n.FirstChild().(*ast.Text)
	if !ok {
		return
	}
	last, ok := n.LastChild().(*ast.Text)
	if !ok {
		last = first
	}
	maskSegment(mask, text.NewSegment(first.Segment.Start, last.Segment.Stop))
}

// collect gathers deduplicated tags, dates and links from tokens within
// [from, to), appending tags to seed.
func collect(toks []token, from, to int, seed []string) (tags, dates, links []string) {
	tags = seed
	for _, t := range toks {
		if t.pos < from || t.pos >= to {
			continue
		}
		switch t.kind {
		case tokTag:
			tags = append(tags, t.value)
		case tokDate:
			dates = append(dates, t.value)
		case tokLink:
			links = append(links, t.value)
		}
	}
	return dedupe(tags), dedupe(dates), dedupe(links)
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
