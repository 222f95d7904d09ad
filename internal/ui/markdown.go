package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown writes md to w, styled when color is enabled.
func RenderMarkdown(w io.Writer, md string) {
	style := glamour.WithAutoStyle()
	if !colorEnabled {
		style = glamour.WithStandardStyle("notty")
	}
	renderer, err := glamour.NewTermRenderer(
		style,
		glamour.WithWordWrap(100),
	)
	if err != nil {
		// Fallback: print raw
		fmt.Fprintln(w, md)
		return
	}

	out, err := renderer.Render(md)
	if err != nil {
		fmt.Fprintln(w, md)
		return
	}

	fmt.Fprint(w, out)
}
