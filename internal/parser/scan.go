package parser

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/starford/lumen/internal/noteid"
)

type tokenKind int

const (
	tokTag tokenKind = iota
	tokDate
	tokLink
)

type token struct {
	kind  tokenKind
	value string
	pos   int
}

// linkState is the wikilink scanner state.
type linkState int

const (
	inTarget linkState = iota
	inLabel
	closed
	aborted
)

// scan walks src once and emits tag, date and link tokens. Masked bytes
// (code, raw HTML) never start or continue a token.
func scan(id string, src []byte, mask []bool) []token {
	var toks []token
	for i := 0; i < len(src); {
		if mask[i] {
			i++
			continue
		}
		switch {
		case src[i] == '[' && i+1 < len(src) && src[i+1] == '[':
			target, next, ok := scanWikilink(src, mask, i+2)
			if !ok {
				i++
				continue
			}
			if tok, ok := classifyTarget(id, target, i); ok {
				toks = append(toks, tok)
			}
			i = next
		case src[i] == '#' && tagBoundary(src, i):
			name, next := scanTag(src, mask, i+1)
			if name != "" {
				toks = append(toks, token{kind: tokTag, value: name, pos: i})
			}
			i = max(next, i+1)
		default:
			i++
		}
	}
	return toks
}

// scanWikilink runs from just after "[[" to the closing "]]". It returns the
// raw target (label stripped) and the offset after the closing marker.
func scanWikilink(src []byte, mask []bool, from int) (string, int, bool) {
	state := inTarget
	end := -1
	i := from
	for ; i < len(src) && state != closed && state != aborted; i++ {
		c := src[i]
		switch {
		case mask[i], c == '\n', c == '[':
			state = aborted
		case c == ']':
			if i+1 < len(src) && src[i+1] == ']' {
				if state == inTarget {
					end = i
				}
				state = closed
				i++
			} else {
				state = aborted
			}
		case c == '|' && state == inTarget:
			end = i
			state = inLabel
		}
	}
	if state != closed {
		return "", 0, false
	}
	return string(src[from:end]), i, true
}

// dateShape describes how a wikilink target relates to the date syntax.
type dateShape int

const (
	notDate dateShape = iota
	dayShape
	weekShape
)

var dayPattern = [...]byte{'d', 'd', 'd', 'd', '-', 'd', 'd', '-', 'd', 'd'}
var weekPattern = [...]byte{'d', 'd', 'd', 'd', '-', 'W', 'd', 'd'}

// shapeOf matches s character by character against the day and week
// patterns, where 'd' stands for any ASCII digit.
func shapeOf(s string) dateShape {
	match := func(p []byte) bool {
		if len(s) != len(p) {
			return false
		}
		for i := range p {
			if p[i] == 'd' {
				if s[i] < '0' || s[i] > '9' {
					return false
				}
			} else if s[i] != p[i] {
				return false
			}
		}
		return true
	}
	switch {
	case match(dayPattern[:]):
		return dayShape
	case match(weekPattern[:]):
		return weekShape
	}
	return notDate
}

// classifyTarget turns a wikilink target into a date or link token. Targets
// that look like dates but do not exist on the calendar are dropped.
func classifyTarget(id, raw string, pos int) (token, bool) {
	target := strings.TrimSpace(raw)
	switch shapeOf(target) {
	case dayShape:
		if noteid.IsDate(target) {
			return token{kind: tokDate, value: target, pos: pos}, true
		}
		slog.Debug("parser: invalid date link", slog.String("id", id), slog.String("target", target))
		return token{}, false
	case weekShape:
		if noteid.IsWeek(target) {
			return token{kind: tokLink, value: target, pos: pos}, true
		}
		slog.Debug("parser: invalid week link", slog.String("id", id), slog.String("target", target))
		return token{}, false
	}
	if !noteid.IsValid(target) {
		slog.Debug("parser: invalid link target", slog.String("id", id), slog.String("target", target))
		return token{}, false
	}
	return token{kind: tokLink, value: target, pos: pos}, true
}

func tagBoundary(src []byte, i int) bool {
	if i == 0 {
		return true
	}
	switch src[i-1] {
	case ' ', '\t', '\n', '\r', '(':
		return true
	}
	return false
}

func tagChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}

// scanTag reads slash-separated segments starting at from. A slash only
// continues the tag when a segment character follows it.
func scanTag(src []byte, mask []bool, from int) (string, int) {
	i := from
	for i < len(src) && !mask[i] {
		if tagChar(src[i]) {
			i++
			continue
		}
		if src[i] == '/' && i > from && i+1 < len(src) && !mask[i+1] && tagChar(src[i+1]) {
			i++
			continue
		}
		break
	}
	return string(src[from:i]), i
}

// UpdateWikilinks rewrites every wikilink and embed that targets oldID so it
// targets newID, keeping labels. Links to other ids are left untouched.
func UpdateWikilinks(raw, oldID, newID string) string {
	re := regexp.MustCompile(`(!?)\[\[\s*` + regexp.QuoteMeta(oldID) + `\s*(\|[^\]\n]*)?\]\]`)
	return re.ReplaceAllString(raw, "${1}[["+strings.ReplaceAll(newID, "$", "$$")+"${2}]]")
}
