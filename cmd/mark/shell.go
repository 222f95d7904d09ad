package main

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/kokistudios/mark/internal/shell"
	"github.com/kokistudios/mark/internal/ui"
	"github.com/kokistudios/mark/internal/watch"
)

func shellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive shell",
		Long: `Start an interactive shell. Every mark command can be typed without the
leading 'mark'. Bookmarks are reloaded after each command and whenever files in
the data directory change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.inShell {
				return errors.New("already in the shell")
			}
			if _, err := a.bookmarks(); err != nil {
				return err
			}
			a.inShell = true
			defer func() { a.inShell = false }()

			sh := a.newShell(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())

			w, err := watch.New(a.col.Dir(), sh.MarkStale, ui.Logger)
			if err != nil {
				ui.Logger.Warn("auto-refresh disabled", "err", err)
			} else if err := w.Start(); err != nil {
				ui.Logger.Warn("auto-refresh disabled", "err", err)
			} else {
				defer w.Stop()
			}

			return sh.Run(cmd.Context())
		},
	}
}

// newShell wires a shell to a fresh command tree per line, so flag values
// never leak from one line to the next.
func (a *app) newShell(in io.Reader, out, errOut io.Writer) *shell.Shell {
	sh := &shell.Shell{
		In:      in,
		Out:     out,
		Err:     errOut,
		Prompt:  "bookmarks> ",
		Refresh: a.refresh,
	}
	sh.Dispatch = func(args []string) error {
		root := newRootCmd(a)
		root.SetArgs(args)
		root.SetIn(in)
		root.SetOut(out)
		root.SetErr(errOut)
		return root.Execute()
	}
	sh.Help = func(w io.Writer) {
		root := newRootCmd(a)
		root.SetOut(w)
		root.SetErr(w)
		root.SetArgs([]string{"--help"})
		if err := root.Execute(); err != nil {
			ui.Logger.Debug("help failed", "err", err)
		}
	}
	return sh
}
