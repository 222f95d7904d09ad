package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kokistudios/mark/internal/bookmark"
	"github.com/kokistudios/mark/internal/fetch"
	"github.com/kokistudios/mark/internal/ui"
)

func newCmd(a *app) *cobra.Command {
	var title, description, tags, alias string
	var noFetch bool
	cmd := &cobra.Command{
		Use:   "new [url]",
		Short: "Add a bookmark",
		Long: `Add a bookmark. Missing title or description are fetched from the page.

Run without a URL in a terminal to be prompted for each field.`,
		Example: `  mark new https://go.dev/blog -g go,reading
  mark new example.com -t "Example" -d "Placeholder domain" --no-fetch
  mark new`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			n := bookmark.New{
				Alias:       alias,
				Title:       title,
				Description: description,
				Tags:        bookmark.SplitTags(tags),
			}

			if len(args) == 1 {
				n.URL = args[0]
				if !noFetch {
					a.fillMetadata(cmd.Context(), &n)
				}
			} else {
				if !a.isTerminal() {
					return fmt.Errorf("a URL is required when not running in a terminal")
				}
				if err := a.newWizard(cmd.Context(), &n, noFetch); err != nil {
					if errors.Is(err, ui.ErrCanceled) {
						ui.Info("Canceled.")
						return nil
					}
					return err
				}
			}

			b, err := col.Add(n)
			if err != nil {
				return err
			}
			ui.Success("Added bookmark: " + b.Alias)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Bookmark title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Bookmark description")
	cmd.Flags().StringVarP(&tags, "tags", "g", "", "Comma-separated tags")
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "Alias (default: generated)")
	cmd.Flags().BoolVar(&noFetch, "no-fetch", false, "Do not fetch the page title and description")
	return cmd
}

// fillMetadata fetches the page behind n.URL and fills whichever of title and
// description are still empty. Failures leave both untouched.
func (a *app) fillMetadata(ctx context.Context, n *bookmark.New) {
	if n.URL == "" || (n.Title != "" && n.Description != "") {
		return
	}

	var spin *ui.Spinner
	if a.isTerminal() {
		spin = ui.NewSpinner("Fetching " + n.URL)
	}
	meta, err := a.fetcher.Fetch(ctx, n.URL)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		ui.Logger.Info("could not fetch page metadata", "url", n.URL, "err", err)
		return
	}
	if n.Title == "" {
		n.Title = meta.Title
	}
	if n.Description == "" {
		n.Description = meta.Description
	}
}

// newWizard prompts for a URL, fetches metadata, then asks for whatever the
// fetch did not find.
func (a *app) newWizard(ctx context.Context, n *bookmark.New, noFetch bool) error {
	url, err := ui.Prompt("URL", "https://", n.URL)
	if err != nil {
		return err
	}
	n.URL = strings.TrimSpace(url)
	if !noFetch {
		a.fillMetadata(ctx, n)
	}
	if n.Title == "" {
		if n.Title, err = ui.Prompt("Title", "", ""); err != nil {
			return err
		}
	}
	if n.Description == "" {
		if n.Description, err = ui.Prompt("Description", "", ""); err != nil {
			return err
		}
	}
	tagLine, err := ui.Prompt("Tags", "comma,separated", strings.Join(n.Tags, ","))
	if err != nil {
		return err
	}
	n.Tags = bookmark.SplitTags(tagLine)
	return nil
}

func infoCmd(a *app) *cobra.Command {
	var paged bool
	cmd := &cobra.Command{
		Use:               "info <alias>",
		Short:             "Show every field of a bookmark",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeAliases,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			b, err := col.Get(args[0])
			if err != nil {
				return err
			}
			return a.render(cmd, paged, func(w io.Writer) {
				ui.RenderInfo(w, b, col.Path(b.UID))
			})
		},
	}
	cmd.Flags().BoolVarP(&paged, "pager", "p", false, "Show output in $PAGER")
	return cmd
}

func listCmd(a *app) *cobra.Command {
	var paged bool
	cmd := &cobra.Command{
		Use:     "list [all|tags|<alias>|<tag>]",
		Aliases: []string{"ls"},
		Short:   "List bookmarks, tags, one bookmark, or the bookmarks with a tag",
		Example: `  mark list
  mark ls tags
  mark ls reading`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := "all"
			if len(args) == 1 {
				view = args[0]
			}
			return a.list(cmd, view, paged)
		},
	}
	cmd.Flags().BoolVarP(&paged, "pager", "p", false, "Show output in $PAGER")
	return cmd
}

func listAllCmd(a *app) *cobra.Command {
	var paged bool
	cmd := &cobra.Command{
		Use:   "lsa",
		Short: "List all bookmarks (same as 'list all')",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd, "all", paged)
		},
	}
	cmd.Flags().BoolVarP(&paged, "pager", "p", false, "Show output in $PAGER")
	return cmd
}

func listTagsCmd(a *app) *cobra.Command {
	var paged bool
	cmd := &cobra.Command{
		Use:   "lst",
		Short: "List tags with bookmark counts (same as 'list tags')",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.list(cmd, "tags", paged)
		},
	}
	cmd.Flags().BoolVarP(&paged, "pager", "p", false, "Show output in $PAGER")
	return cmd
}

func (a *app) list(cmd *cobra.Command, view string, paged bool) error {
	col, err := a.bookmarks()
	if err != nil {
		return err
	}

	switch view {
	case "all":
		return a.render(cmd, paged, func(w io.Writer) {
			ui.RenderList(w, "all bookmarks", col.List())
		})
	case "tags":
		return a.render(cmd, paged, func(w io.Writer) {
			ui.RenderTags(w, col.Tags())
		})
	}

	if b, err := col.Get(view); err == nil {
		return a.render(cmd, paged, func(w io.Writer) {
			ui.RenderInfo(w, b, col.Path(b.UID))
		})
	}
	if tagged := col.WithTag(view); len(tagged) > 0 {
		return a.render(cmd, paged, func(w io.Writer) {
			ui.RenderList(w, "tag: "+strings.ToLower(view), tagged)
		})
	}
	return fmt.Errorf("no such bookmark, tag, or view: %s", view)
}

func modifyCmd(a *app) *cobra.Command {
	var alias, title, description, url, tags string
	cmd := &cobra.Command{
		Use:     "modify <alias>",
		Aliases: []string{"mod"},
		Short:   "Change fields of a bookmark",
		Long: `Change fields of a bookmark. Only the flags given are changed.

--tags replaces the tag list; prefix it with + to add tags or ~ to remove them.`,
		Example: `  mark modify 5kzb --title "Go blog" --tags +go,reading
  mark mod 5kzb --tags ~reading
  mark mod 5kzb --alias goblog`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeAliases,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}

			var m bookmark.Modification
			flags := cmd.Flags()
			if flags.Changed("alias") {
				m.Alias = &alias
			}
			if flags.Changed("title") {
				m.Title = &title
			}
			if flags.Changed("description") {
				m.Description = &description
			}
			if flags.Changed("url") {
				m.URL = &url
			}
			if flags.Changed("tags") {
				m.Tags, m.TagOp = bookmark.ParseTagArg(tags)
				m.SetTags = true
			}
			if m.Alias == nil && m.Title == nil && m.Description == nil && m.URL == nil && !m.SetTags {
				return fmt.Errorf("nothing to modify: pass at least one of --alias, --title, --description, --url, --tags")
			}

			b, err := col.Modify(args[0], m)
			if err != nil {
				return err
			}
			ui.Success("Modified bookmark: " + b.Alias)
			return nil
		},
	}
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "New alias")
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	cmd.Flags().StringVarP(&url, "url", "u", "", "New URL")
	cmd.Flags().StringVarP(&tags, "tags", "g", "", "Tags: a,b replaces, +a,b adds, ~a,b removes")
	return cmd
}

func unsetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <alias> <description|tags>",
		Short: "Clear the description or tags of a bookmark",
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 1 {
				return []string{"description", "tags"}, cobra.ShellCompDirectiveNoFileComp
			}
			return a.completeAliases(cmd, args, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			b, err := col.Unset(args[0], args[1])
			if err != nil {
				return err
			}
			ui.Success(fmt.Sprintf("Cleared %s of %s", strings.ToLower(args[1]), b.Alias))
			return nil
		},
	}
}

// confirmRemoval asks before a destructive action unless force is set.
func (a *app) confirmRemoval(verb, alias string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if !a.isTerminal() {
		return false, fmt.Errorf("refusing to %s %s without --force when not running in a terminal", verb, alias)
	}
	return ui.Confirm(fmt.Sprintf("%s bookmark %s?", strings.ToUpper(verb[:1])+verb[1:], alias))
}

func archiveCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:               "archive <alias>",
		Short:             "Move a bookmark to the archive",
		Long:              "Move a bookmark file into the archive directory. Archived bookmarks no longer show up in lists or searches, and their alias can be reused.",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeAliases,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			b, err := col.Get(args[0])
			if err != nil {
				return err
			}
			ok, err := a.confirmRemoval("archive", b.Alias, force)
			if err != nil {
				return err
			}
			if !ok {
				ui.Info("Not archived.")
				return nil
			}
			if err := col.Archive(b.Alias); err != nil {
				return err
			}
			ui.Success("Archived bookmark: " + b.Alias)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

func deleteCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:               "delete <alias>",
		Aliases:           []string{"rm"},
		Short:             "Delete a bookmark permanently",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeAliases,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			b, err := col.Get(args[0])
			if err != nil {
				return err
			}
			ok, err := a.confirmRemoval("delete", b.Alias, force)
			if err != nil {
				return err
			}
			if !ok {
				ui.Info("Not deleted.")
				return nil
			}
			if err := col.Delete(b.Alias); err != nil {
				return err
			}
			ui.Success("Deleted bookmark: " + b.Alias)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")
	return cmd
}

// runEditor opens path in $EDITOR attached to the terminal.
func runEditor(path string) error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return fmt.Errorf("$EDITOR is required and not set")
	}
	c := exec.Command(editor, path)
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("failure editing %s: %w", path, err)
	}
	return nil
}

func editCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:               "edit <alias>",
		Short:             "Edit a bookmark file in $EDITOR",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeAliases,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			b, err := col.Get(args[0])
			if err != nil {
				return err
			}
			if err := runEditor(col.Path(b.UID)); err != nil {
				return err
			}
			// The edit may have broken the file; reloading reports it.
			if err := a.refresh(); err != nil {
				return err
			}
			if _, ok := col.GetByUID(b.UID); !ok {
				ui.Warning(fmt.Sprintf("%s could not be loaded after editing; run 'mark doctor' for details", b.Alias))
			}
			return nil
		},
	}
}

func openCmd(a *app) *cobra.Command {
	var newWindow bool
	cmd := &cobra.Command{
		Use:               "open <alias>",
		Short:             "Open a bookmark in the browser",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: a.completeAliases,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			b, err := col.Get(args[0])
			if err != nil {
				return err
			}
			if b.URL == "" {
				return fmt.Errorf("%s has no URL", b.Alias)
			}
			browser := a.store.Config.Browser
			c := browserCommand(browser.Command, fetch.NormalizeURL(b.URL), newWindow || browser.AlwaysNewWindow)
			ui.Logger.Debug("opening bookmark", "alias", b.Alias, "cmd", c.Args)
			if err := c.Run(); err != nil {
				return fmt.Errorf("unable to open %s in browser: %w", b.Alias, err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&newWindow, "new-window", "n", false, "Open in a new browser window")
	return cmd
}

// browserCommand builds the command that opens url. A configured command has
// every %u replaced by the quoted URL and runs through sh; otherwise the
// platform opener is used.
func browserCommand(configured, url string, newWindow bool) *exec.Cmd {
	if configured != "" {
		line := strings.ReplaceAll(configured, "%u", shellQuote(url))
		return exec.Command("sh", "-c", line)
	}
	switch runtime.GOOS {
	case "darwin":
		if newWindow {
			return exec.Command("open", "-n", url)
		}
		return exec.Command("open", url)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return exec.Command("xdg-open", url)
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
