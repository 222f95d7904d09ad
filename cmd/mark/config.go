package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kokistudios/mark/internal/bookmark"
	"github.com/kokistudios/mark/internal/store"
	"github.com/kokistudios/mark/internal/ui"
)

func configCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and edit mark configuration",
	}
	cmd.AddCommand(configShowCmd(a))
	cmd.AddCommand(configSetCmd(a))
	cmd.AddCommand(configEditCmd(a))
	return cmd
}

func configShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := yaml.Marshal(a.store.Config)
			if err != nil {
				return fmt.Errorf("failed to marshal config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s", ui.Dim("# "+a.store.ConfigPath), data)
			return nil
		},
	}
}

func configSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a mark configuration value. Valid keys: " + strings.Join(store.ConfigKeys, ", ") + ".",
		Example: `  mark config set browser.command 'firefox --new-tab %u'
  mark config set data_dir ~/Sync/bookmarks
  mark config set colors.url "#ff8800"`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return store.ConfigKeys, cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.SetConfigValue(args[0], args[1]); err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Set %s = %s", args[0], args[1]))
			return a.reloadConfig()
		},
	}
}

func configEditCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Edit the config file in $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runEditor(a.store.ConfigPath); err != nil {
				return err
			}
			return a.reloadConfig()
		},
	}
}

// reloadConfig re-reads the config file so a running shell picks up the
// change. The collection is reopened on next use in case data_dir moved.
func (a *app) reloadConfig() error {
	s, err := store.Load(a.store.ConfigPath)
	if err != nil {
		return err
	}
	a.fetcher = nil
	a.applyConfig(s)
	if a.col != nil && a.col.Dir() != s.DataDir() {
		a.col = nil
	}
	return nil
}

func doctorCmd(a *app) *cobra.Command {
	var fix bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the config file, data directory, and bookmark files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := a.store.ConfigPath

			if fix {
				fixed := store.FixIssues(cfgPath)
				for _, f := range fixed {
					ui.Success(fmt.Sprintf("[FIXED] %s", f))
				}
				if len(fixed) == 0 {
					ui.EmptyState("Nothing to fix.")
				}
			}

			issues := store.CheckHealth(cfgPath)
			if !hasErrors(issues) {
				// Opening is safe now: the data directory is known to exist.
				col, err := bookmark.Open(a.store.DataDir())
				if err != nil {
					issues = append(issues, store.Issue{Severity: "error", Message: err.Error()})
				} else {
					for _, li := range col.Issues() {
						issues = append(issues, store.Issue{
							Severity: "warning",
							Message:  fmt.Sprintf("%s: %s (fix or remove the file)", li.Path, li.Reason),
						})
					}
					ui.Detail("Bookmarks:", fmt.Sprintf("%s loaded from %s", ui.Bold(fmt.Sprint(col.Len())), col.Dir()))
				}
			}

			if len(issues) == 0 {
				ui.Success("Everything looks good")
				return nil
			}

			for _, issue := range issues {
				if issue.Severity == "error" {
					ui.Error(fmt.Sprintf("[ERR]  %s", issue.Message))
				} else {
					ui.Warning(fmt.Sprintf("[WARN] %s", issue.Message))
				}
			}
			if hasErrors(issues) {
				return fmt.Errorf("doctor found problems; run 'mark doctor --fix' to repair what it can")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fix, "fix", false, "Recreate a missing config file or data directory")
	return cmd
}

func hasErrors(issues []store.Issue) bool {
	for _, issue := range issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
