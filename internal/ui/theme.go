package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme names the colors used for bookmark output. Values are color names
// such as "bright_blue", "default", or anything lipgloss.Color accepts
// ("#ff8800", "208").
type Theme struct {
	TableTitle    string
	BookmarkTitle string
	URL           string
	Description   string
	Alias         string
	Tags          string
	Label         string
	NoBold        bool
}

func DefaultTheme() Theme {
	return Theme{
		TableTitle:    "bright_blue",
		BookmarkTitle: "green",
		URL:           "yellow",
		Description:   "default",
		Alias:         "bright_black",
		Tags:          "cyan",
		Label:         "white",
	}
}

var namedColors = map[string]string{
	"black":          "0",
	"red":            "1",
	"green":          "2",
	"yellow":         "3",
	"blue":           "4",
	"magenta":        "5",
	"cyan":           "6",
	"white":          "7",
	"bright_black":   "8",
	"bright_red":     "9",
	"bright_green":   "10",
	"bright_yellow":  "11",
	"bright_blue":    "12",
	"bright_magenta": "13",
	"bright_cyan":    "14",
	"bright_white":   "15",
}

// ParseColor maps a color name to a lipgloss color. Empty and "default"
// mean the terminal's own foreground.
func ParseColor(name string) lipgloss.TerminalColor {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "default" {
		return lipgloss.NoColor{}
	}
	if code, ok := namedColors[name]; ok {
		return lipgloss.Color(code)
	}
	return lipgloss.Color(name)
}

var (
	tableTitleStyle    lipgloss.Style
	bookmarkTitleStyle lipgloss.Style
	urlStyle           lipgloss.Style
	descriptionStyle   lipgloss.Style
	aliasStyle         lipgloss.Style
	tagsStyle          lipgloss.Style
	labelStyle         lipgloss.Style
)

// SetTheme rebuilds the bookmark styles.
func SetTheme(t Theme) {
	bold := !t.NoBold
	tableTitleStyle = lipgloss.NewStyle().Bold(bold).Foreground(ParseColor(t.TableTitle))
	bookmarkTitleStyle = lipgloss.NewStyle().Bold(bold).Foreground(ParseColor(t.BookmarkTitle))
	urlStyle = lipgloss.NewStyle().Foreground(ParseColor(t.URL))
	descriptionStyle = lipgloss.NewStyle().Foreground(ParseColor(t.Description))
	aliasStyle = lipgloss.NewStyle().Foreground(ParseColor(t.Alias))
	tagsStyle = lipgloss.NewStyle().Foreground(ParseColor(t.Tags))
	labelStyle = lipgloss.NewStyle().Bold(bold).Foreground(ParseColor(t.Label))
}
