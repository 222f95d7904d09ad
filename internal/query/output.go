package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kokistudios/mark/internal/bookmark"
)

var cellReplacer = strings.NewReplacer("\t", " ", "\r\n", " ", "\n", " ", "\r", " ")

// WriteTSV writes one tab-delimited line per row. Empty tag lists become an
// empty cell, the same as empty scalar fields.
func WriteTSV(w io.Writer, rows []Row) error {
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v.Field == FieldTags && len(v.List) == 0 {
				continue
			}
			cells[i] = cellReplacer.Replace(v.Text)
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

// Record is the JSON form of a full bookmark.
type Record struct {
	UID         string    `json:"uid"`
	Alias       string    `json:"alias"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Tags        []string  `json:"tags"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// NewRecord converts a bookmark, always emitting tags as a list.
func NewRecord(b bookmark.Bookmark) Record {
	tags := append([]string{}, b.Tags...)
	return Record{
		UID:         b.UID,
		Alias:       b.Alias,
		Title:       b.Title,
		Description: b.Description,
		URL:         b.URL,
		Tags:        tags,
		Created:     b.Created,
		Updated:     b.Updated,
	}
}

// WriteJSON writes {"bookmarks": [...]} with full records.
func WriteJSON(w io.Writer, records []bookmark.Bookmark) error {
	out := struct {
		Bookmarks []Record `json:"bookmarks"`
	}{Bookmarks: make([]Record, 0, len(records))}
	for _, b := range records {
		out.Bookmarks = append(out.Bookmarks, NewRecord(b))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
