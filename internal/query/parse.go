// Package query parses and evaluates the search language: qualifier tokens
// such as tag:book, -link:x, date:>=2024-01-01 and tags:>1, with the rest of
// the string used as a fuzzy search term.
package query

import (
	"regexp"
	"strings"
)

// qualifierRe matches one qualifier token anywhere in the string, including
// inside a word: "a-tag:x" holds the excluded qualifier "-tag:x".
var qualifierRe = regexp.MustCompile(`(-?)(\w+):("[^"]*"|[^\s,\[\]"]+(?:,[^\s,\[\]"]+)*)`)

// Qualifier is a key:value filter. Values holds one element for bare and
// quoted values, several for comma lists.
type Qualifier struct {
	Key     string   `json:"key"`
	Values  []string `json:"values"`
	Exclude bool     `json:"exclude"`
}

// Query is a parsed search string.
type Query struct {
	Qualifiers []Qualifier `json:"qualifiers"`
	Fuzzy      string      `json:"fuzzy"`
}

// Parse splits raw into qualifiers and a fuzzy term. Every string is a valid
// query.
func Parse(raw string) Query {
	var q Query
	for _, m := range qualifierRe.FindAllStringSubmatch(raw, -1) {
		value := m[3]
		var values []string
		if strings.HasPrefix(value, `"`) {
			values = []string{strings.Trim(value, `"`)}
		} else {
			values = strings.Split(value, ",")
		}
		q.Qualifiers = append(q.Qualifiers, Qualifier{
			Key:     m[2],
			Values:  values,
			Exclude: m[1] == "-",
		})
	}
	q.Fuzzy = strings.TrimSpace(qualifierRe.ReplaceAllString(raw, ""))
	return q
}
