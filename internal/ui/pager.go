package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Page shows text through $PAGER (default "less -R"). Styling is stripped
// unless keepColor is set. When pager is false the text goes straight to w.
func Page(w io.Writer, text string, pager, keepColor bool) error {
	if !pager {
		_, err := io.WriteString(w, text)
		return err
	}
	if !keepColor {
		text = ansi.Strip(text)
	}

	cmdline := os.Getenv("PAGER")
	if strings.TrimSpace(cmdline) == "" {
		cmdline = "less -R"
	}
	cmd := exec.Command("sh", "-c", cmdline)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = w
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pager %q: %w", cmdline, err)
	}
	return nil
}
