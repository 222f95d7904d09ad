package query

import (
	"strings"
	"time"

	"github.com/kokistudios/mark/internal/bookmark"
)

// Execute filters records with the query in search and returns the matches
// ordered by alias. The input slice is not modified.
func Execute(records []bookmark.Bookmark, search string) []bookmark.Bookmark {
	return Parse(search).Filter(records)
}

// Filter applies the expression to records and returns the matches ordered
// by alias.
func (e Expression) Filter(records []bookmark.Bookmark) []bookmark.Bookmark {
	out := make([]bookmark.Bookmark, 0, len(records))
	for _, b := range records {
		if !Matches(b, e.Search) {
			continue
		}
		if len(e.Exclude) > 0 && Matches(b, e.Exclude) {
			continue
		}
		out = append(out, b)
	}
	bookmark.SortByAlias(out)
	return out
}

// DefaultFields is the projection used for tab-delimited output.
var DefaultFields = []Field{FieldUID, FieldAlias, FieldTitle, FieldURL, FieldTags}

// AllFields lists every field in full-record order.
var AllFields = []Field{
	FieldUID, FieldAlias, FieldTitle, FieldDescription, FieldURL, FieldTags, FieldCreated, FieldUpdated,
}

var projectable = map[string]Field{
	"uid":         FieldUID,
	"alias":       FieldAlias,
	"title":       FieldTitle,
	"description": FieldDescription,
	"url":         FieldURL,
	"tags":        FieldTags,
	"created":     FieldCreated,
	"updated":     FieldUpdated,
}

// ParseFields resolves projection field names, keeping the caller's order.
// Unknown and repeated names are skipped. Names may be comma-separated.
func ParseFields(names []string) []Field {
	var fields []Field
	seen := make(map[Field]bool)
	for _, arg := range names {
		for _, n := range strings.Split(arg, ",") {
			f, ok := projectable[strings.ToLower(strings.TrimSpace(n))]
			if !ok || seen[f] {
				continue
			}
			seen[f] = true
			fields = append(fields, f)
		}
	}
	return fields
}

// Value is one projected field.
type Value struct {
	Field Field
	Text  string
	List  []string // set for FieldTags
}

// Row is a bookmark narrowed to a list of fields.
type Row []Value

// Project narrows each record to fields, in the given order. An empty field
// list selects DefaultFields.
func Project(records []bookmark.Bookmark, fields []Field) []Row {
	if len(fields) == 0 {
		fields = DefaultFields
	}
	rows := make([]Row, 0, len(records))
	for _, b := range records {
		row := make(Row, 0, len(fields))
		for _, f := range fields {
			row = append(row, valueOf(b, f))
		}
		rows = append(rows, row)
	}
	return rows
}

func valueOf(b bookmark.Bookmark, f Field) Value {
	v := Value{Field: f}
	switch f {
	case FieldUID:
		v.Text = b.UID
	case FieldAlias:
		v.Text = b.Alias
	case FieldTitle:
		v.Text = b.Title
	case FieldDescription:
		v.Text = b.Description
	case FieldURL:
		v.Text = b.URL
	case FieldTags:
		v.List = append([]string{}, b.Tags...)
		v.Text = FormatList(b.Tags)
	case FieldCreated:
		v.Text = formatTime(b.Created)
	case FieldUpdated:
		v.Text = formatTime(b.Updated)
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// FormatList renders a list as "[a, b]", or "[]" when empty.
func FormatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
