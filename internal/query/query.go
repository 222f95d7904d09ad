// Package query implements the bookmark filter language.
//
// A query is a comma-separated list of clauses, optionally followed by "%"
// and a second list whose matches are excluded from the result:
//
//	title=projectx,tags=dev+testing%url=domain.tld
//
// A clause is either field=term or a bare term. Bare terms (and terms whose
// field is not recognized) match title, description or url. Within a tags
// clause, "+" separates alternatives. Every comparison ignores case, and the
// term "any" matches every bookmark.
package query

import (
	"strings"

	"github.com/kokistudios/mark/internal/bookmark"
)

// Field identifies a bookmark field.
type Field int

const (
	FieldAny Field = iota // title, description or url
	FieldUID
	FieldAlias
	FieldTitle
	FieldDescription
	FieldURL
	FieldTags
	FieldCreated
	FieldUpdated
)

var fieldNames = [...]string{
	FieldAny:         "any",
	FieldUID:         "uid",
	FieldAlias:       "alias",
	FieldTitle:       "title",
	FieldDescription: "description",
	FieldURL:         "url",
	FieldTags:        "tags",
	FieldCreated:     "created",
	FieldUpdated:     "updated",
}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// selectors are the field names accepted on the left of "=" in a clause.
var selectors = map[string]Field{
	"any":         FieldAny,
	"uid":         FieldUID,
	"alias":       FieldAlias,
	"title":       FieldTitle,
	"description": FieldDescription,
	"url":         FieldURL,
	"tags":        FieldTags,
}

// AnyTerm matches every bookmark when used as a bare term.
const AnyTerm = "any"

// Clause is one field=term unit. Term is lower-cased. For FieldTags, Tags
// holds the "+"-separated alternatives.
type Clause struct {
	Field Field
	Term  string
	Tags  []string
}

// Expression is a parsed query. A bookmark is selected when it matches every
// Search clause and, if Exclude is non-empty, does not match every Exclude
// clause.
type Expression struct {
	Search  []Clause
	Exclude []Clause
}

// Parse turns a raw query string into an Expression. It never fails:
// unknown selectors fall back to a bare term and empty clauses are dropped.
func Parse(input string) Expression {
	search, exclude, found := strings.Cut(input, "%")
	e := Expression{Search: parseSegment(search)}
	if found {
		e.Exclude = parseSegment(exclude)
	}
	return e
}

func parseSegment(seg string) []Clause {
	var clauses []Clause
	for _, raw := range strings.Split(seg, ",") {
		if c, ok := parseClause(raw); ok {
			clauses = append(clauses, c)
		}
	}
	return clauses
}

func parseClause(raw string) (Clause, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Clause{}, false
	}

	field := FieldAny
	term := raw
	if left, right, found := strings.Cut(raw, "="); found {
		term = right
		if f, ok := selectors[strings.ToLower(strings.TrimSpace(left))]; ok {
			field = f
		}
	}

	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return Clause{}, false
	}
	c := Clause{Field: field, Term: term}
	if field == FieldTags {
		for _, t := range strings.Split(term, "+") {
			if t = strings.TrimSpace(t); t != "" {
				c.Tags = append(c.Tags, t)
			}
		}
		if len(c.Tags) == 0 {
			return Clause{}, false
		}
	}
	return c, true
}

// matchers holds the comparison strategy for each selectable field.
var matchers = map[Field]func(b bookmark.Bookmark, c Clause) bool{
	FieldAny: func(b bookmark.Bookmark, c Clause) bool {
		return c.Term == AnyTerm ||
			contains(b.Title, c.Term) ||
			contains(b.Description, c.Term) ||
			contains(b.URL, c.Term)
	},
	FieldUID:         func(b bookmark.Bookmark, c Clause) bool { return strings.ToLower(b.UID) == c.Term },
	FieldAlias:       func(b bookmark.Bookmark, c Clause) bool { return strings.ToLower(b.Alias) == c.Term },
	FieldTitle:       func(b bookmark.Bookmark, c Clause) bool { return contains(b.Title, c.Term) },
	FieldDescription: func(b bookmark.Bookmark, c Clause) bool { return contains(b.Description, c.Term) },
	FieldURL:         func(b bookmark.Bookmark, c Clause) bool { return contains(b.URL, c.Term) },
	FieldTags: func(b bookmark.Bookmark, c Clause) bool {
		for _, want := range c.Tags {
			if b.HasTag(want) {
				return true
			}
		}
		return false
	},
}

func contains(value, term string) bool {
	return strings.Contains(strings.ToLower(value), term)
}

// Match reports whether b satisfies the clause.
func (c Clause) Match(b bookmark.Bookmark) bool {
	m, ok := matchers[c.Field]
	if !ok {
		return false
	}
	return m(b, c)
}

// Matches reports whether b satisfies every clause. An empty list matches.
func Matches(b bookmark.Bookmark, clauses []Clause) bool {
	for _, c := range clauses {
		if !c.Match(b) {
			return false
		}
	}
	return true
}
