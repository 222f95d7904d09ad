package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrCanceled is returned when the user aborts a prompt.
var ErrCanceled = errors.New("canceled")

// promptModel is a bubbletea model around a single text input.
type promptModel struct {
	label    string
	input    textinput.Model
	canceled bool
}

func newPromptModel(label, placeholder, initial string) promptModel {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = "› "
	ti.PromptStyle = promptStyle
	ti.CharLimit = 2048
	ti.Width = 72
	ti.SetValue(initial)
	ti.Focus()
	return promptModel{label: label, input: ti}
}

func (m promptModel) Init() tea.Cmd { return textinput.Blink }

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.canceled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	return fmt.Sprintf("%s\n%s\n", labelStyle.Render(m.label), m.input.View())
}

// Prompt asks for one line of text. It returns ErrCanceled on esc or ctrl+c.
func Prompt(label, placeholder, initial string) (string, error) {
	p := tea.NewProgram(newPromptModel(label, placeholder, initial), tea.WithOutput(os.Stderr))
	result, err := p.Run()
	if err != nil {
		return "", err
	}
	m := result.(promptModel)
	if m.canceled {
		return "", ErrCanceled
	}
	return strings.TrimSpace(m.input.Value()), nil
}
