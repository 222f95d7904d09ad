package ui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kokistudios/mark/internal/bookmark"
)

const indent = "       "

// RenderList writes a titled list of bookmarks, one block per bookmark.
func RenderList(w io.Writer, title string, bs []bookmark.Bookmark) {
	fmt.Fprintf(w, "%s %s\n\n", tableTitleStyle.Render(title), dimStyle.Render(fmt.Sprintf("(%d)", len(bs))))
	for _, b := range bs {
		renderBlock(w, b)
	}
}

func renderBlock(w io.Writer, b bookmark.Bookmark) {
	title := b.Title
	if title == "" {
		title = dimStyle.Render("(untitled)")
	} else {
		title = bookmarkTitleStyle.Render(title)
	}
	fmt.Fprintf(w, "%s %s\n", aliasStyle.Render(fmt.Sprintf("%-6s", b.Alias)), title)
	if b.URL != "" {
		fmt.Fprintf(w, "%s%s\n", indent, urlStyle.Render(b.URL))
	}
	if b.Description != "" {
		fmt.Fprintf(w, "%s%s\n", indent, descriptionStyle.Render(b.Description))
	}
	if len(b.Tags) > 0 {
		fmt.Fprintf(w, "%s%s\n", indent, tagsStyle.Render(strings.Join(b.Tags, ", ")))
	}
	fmt.Fprintln(w)
}

// RenderInfo writes every field of b as labelled lines.
func RenderInfo(w io.Writer, b bookmark.Bookmark, path string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	line := func(label string, value string) {
		fmt.Fprintf(tw, "%s\t%s\n", labelStyle.Render(label), value)
	}
	line("alias", aliasStyle.Render(b.Alias))
	line("title", bookmarkTitleStyle.Render(b.Title))
	line("url", urlStyle.Render(b.URL))
	line("description", descriptionStyle.Render(b.Description))
	line("tags", tagsStyle.Render("["+strings.Join(b.Tags, ", ")+"]"))
	line("uid", b.UID)
	line("created", formatTime(b.Created))
	line("updated", formatTime(b.Updated))
	if path != "" {
		line("file", dimStyle.Render(path))
	}
	tw.Flush()
}

// RenderTags writes a tag/count table.
func RenderTags(w io.Writer, tags []bookmark.TagCount) {
	fmt.Fprintf(w, "%s %s\n\n", tableTitleStyle.Render("tags"), dimStyle.Render(fmt.Sprintf("(%d)", len(tags))))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, t := range tags {
		fmt.Fprintf(tw, "%s\t%s\n", tagsStyle.Render(t.Tag), strconv.Itoa(t.Count))
	}
	tw.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
