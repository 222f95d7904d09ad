package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

var Logger *log.Logger

// Styles are initialized in Init().
var (
	headerStyle  lipgloss.Style
	successStyle lipgloss.Style
	warningStyle lipgloss.Style
	errorStyle   lipgloss.Style
	dimStyle     lipgloss.Style
	boldStyle    lipgloss.Style
	promptStyle  lipgloss.Style
	accentStyle  lipgloss.Style
)

var colorEnabled = true

// Init sets up color detection, lipgloss styles, and the structured logger.
// Call this once at CLI startup, then SetTheme once config is loaded.
func Init(noColorFlag bool) {
	noColor := noColorFlag || os.Getenv("NO_COLOR") != ""
	colorEnabled = !noColor

	// Pre-set dark background to prevent termenv OSC query that leaks ^[[I focus events
	lipgloss.SetHasDarkBackground(true)

	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(termenv.EnvColorProfile())
	}

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle = lipgloss.NewStyle().Faint(true)
	boldStyle = lipgloss.NewStyle().Bold(true)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	accentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))

	SetTheme(DefaultTheme())

	Logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Level:           log.WarnLevel,
	})
	if noColor {
		Logger.SetStyles(log.DefaultStyles())
	}
}

// ColorEnabled reports whether styled output is on.
func ColorEnabled() bool { return colorEnabled }

// SetLevel changes the logger level ("debug", "info", "warn", "error").
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	Logger.SetLevel(lvl)
	return nil
}

func Bold(s string) string { return boldStyle.Render(s) }
func Dim(s string) string  { return dimStyle.Render(s) }

// Warning prints a styled warning message.
func Warning(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", warningStyle.Render("⚠"), msg)
}

// Error prints a styled error message.
func Error(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render("✗"), msg)
}

// Info prints a styled informational message.
func Info(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", accentStyle.Render("▸"), msg)
}

// Success prints a green check with a message.
func Success(msg string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", successStyle.Render("✓"), msg)
}

// Detail prints an indented key-value detail line.
func Detail(key, value string) {
	label := dimStyle.Render(fmt.Sprintf("  %s", key))
	fmt.Fprintf(os.Stderr, "%s %s\n", label, value)
}

// KeyValue prints a bold key with a value, for structured output blocks.
func KeyValue(key, value string) {
	fmt.Fprintf(os.Stderr, "  %s  %s\n", boldStyle.Render(key), value)
}

// SectionHeader prints a styled section divider with a label.
func SectionHeader(label string) {
	line := headerStyle.Render(fmt.Sprintf("── %s ──", label))
	fmt.Fprintf(os.Stderr, "\n%s\n\n", line)
}

// EmptyState prints a styled message for empty results.
func EmptyState(msg string) {
	fmt.Fprintf(os.Stderr, "  %s\n", dimStyle.Render(msg))
}

// =============================================================================
// Bubbletea-based interactive prompts
// =============================================================================

// confirmModel is a bubbletea model for y/n confirmation.
type confirmModel struct {
	prompt   string
	cursor   int // 0 = yes, 1 = no
	accepted bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			m.accepted = true
			return m, tea.Quit
		case "n", "N", "ctrl+c", "esc":
			m.accepted = false
			return m, tea.Quit
		case "left", "h":
			m.cursor = 0
		case "right", "l":
			m.cursor = 1
		case "enter", " ":
			m.accepted = m.cursor == 0
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m confirmModel) View() string {
	var yes, no string
	if m.cursor == 0 {
		yes = successStyle.Render("▸ Yes ")
		no = dimStyle.Render("  No  ")
	} else {
		yes = dimStyle.Render("  Yes ")
		no = errorStyle.Render("▸ No  ")
	}

	return fmt.Sprintf("%s\n\n  %s  %s\n\n%s",
		promptStyle.Render(m.prompt),
		yes, no,
		dimStyle.Render("  ←/→ to select • enter to confirm • y/n for quick select"))
}

// Confirm prompts the user with a yes/no question and returns the response.
// The default selection is No.
func Confirm(prompt string) (bool, error) {
	m := confirmModel{prompt: prompt, cursor: 1}
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	fmt.Fprintln(os.Stderr) // newline after prompt
	return result.(confirmModel).accepted, nil
}

// Spinner animates a bubbles frame set on stderr until Stop is called.
type Spinner struct {
	msg  string
	w    io.Writer
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSpinner starts a spinner with the given message.
func NewSpinner(msg string) *Spinner {
	s := &Spinner{
		msg:  msg,
		w:    os.Stderr,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run(spinner.MiniDot)
	return s
}

func (s *Spinner) run(frames spinner.Spinner) {
	defer close(s.done)
	ticker := time.NewTicker(frames.FPS)
	defer ticker.Stop()

	for i := 0; ; i++ {
		frame := frames.Frames[i%len(frames.Frames)]
		fmt.Fprintf(s.w, "\r%s %s", accentStyle.Render(frame), dimStyle.Render(s.msg))
		select {
		case <-s.stop:
			fmt.Fprint(s.w, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

// Stop clears the spinner line. It is safe to call more than once.
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
