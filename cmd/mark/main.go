package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kokistudios/mark/internal/bookmark"
	"github.com/kokistudios/mark/internal/fetch"
	"github.com/kokistudios/mark/internal/store"
	"github.com/kokistudios/mark/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

// app carries the state shared by every command of one process, including
// every command tree the shell builds.
type app struct {
	cfgPath  string
	noColor  bool
	logLevel string

	store   *store.Store
	col     *bookmark.Collection
	fetcher fetch.Fetcher

	// isTerminal reports whether prompts can be shown.
	isTerminal func() bool
	inShell    bool
}

func newApp() *app {
	return &app{
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
		},
	}
}

func main() {
	a := newApp()
	root := newRootCmd(a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		if ui.Logger == nil {
			ui.Init(a.noColor)
		}
		ui.Error(err.Error())
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mark",
		Short: "Bookmarks in your terminal",
		Long: "A personal bookmark manager. Bookmarks are plain YAML files in a data directory, " +
			"searchable with a small filter language (see 'mark syntax').",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}

	rootCmd.Version = buildVersion()
	rootCmd.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", a.cfgPath, "Config file (default: $MARK_HOME/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", a.noColor, "Disable colored output")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", a.logLevel, "Log level: debug, info, warn, error (default from config)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "bookmarks", Title: "Bookmark Commands:"},
		&cobra.Group{ID: "search", Title: "Search Commands:"},
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "config", Title: "Configuration:"},
	)

	for _, c := range []*cobra.Command{
		newCmd(a), infoCmd(a), modifyCmd(a), unsetCmd(a), archiveCmd(a),
		deleteCmd(a), editCmd(a), openCmd(a),
	} {
		c.GroupID = "bookmarks"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{
		listCmd(a), listAllCmd(a), listTagsCmd(a), searchCmd(a), queryCmd(a), syntaxCmd(),
	} {
		c.GroupID = "search"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{exportCmd(a), importCmd(a), shellCmd(a)} {
		c.GroupID = "data"
		rootCmd.AddCommand(c)
	}
	for _, c := range []*cobra.Command{configCmd(a), doctorCmd(a)} {
		c.GroupID = "config"
		rootCmd.AddCommand(c)
	}

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(completionCmd())
	rootCmd.AddCommand(mcpServeCmd(a))

	return rootCmd
}

// setup loads the configuration once per process. The shell's per-line
// command trees reuse what the first call loaded.
func (a *app) setup() error {
	if a.store != nil {
		return nil
	}
	ui.Init(a.noColor)

	cfgPath := a.cfgPath
	if cfgPath == "" {
		cfgPath = store.DefaultConfigPath()
	}
	s, err := store.Load(cfgPath)
	if err != nil {
		return err
	}
	a.applyConfig(s)
	return nil
}

func (a *app) applyConfig(s *store.Store) {
	a.store = s
	cfg := s.Config

	if cfg.Colors.Disable && !a.noColor {
		a.noColor = true
		ui.Init(true)
	}
	ui.SetTheme(ui.Theme{
		TableTitle:    cfg.Colors.TableTitle,
		BookmarkTitle: cfg.Colors.BookmarkTitle,
		URL:           cfg.Colors.URL,
		Description:   cfg.Colors.Description,
		Alias:         cfg.Colors.Alias,
		Tags:          cfg.Colors.Tags,
		Label:         cfg.Colors.Label,
		NoBold:        cfg.Colors.DisableBold,
	})

	level := a.logLevel
	if level == "" {
		level = cfg.Log.Level
	}
	if err := ui.SetLevel(level); err != nil {
		ui.Logger.Warn("ignoring log level", "err", err)
	}

	if a.fetcher == nil {
		ua := cfg.Fetch.UserAgent
		if ua == "" {
			ua = "mark/" + version
		}
		a.fetcher = fetch.NewClient(time.Duration(cfg.Fetch.TimeoutSeconds)*time.Second, ua)
	}
}

// bookmarks opens the collection on first use. Commands that only touch the
// config never need the data directory to exist.
func (a *app) bookmarks() (*bookmark.Collection, error) {
	if a.col != nil {
		return a.col, nil
	}
	if err := a.store.VerifyDataDir(); err != nil {
		return nil, err
	}
	col, err := bookmark.Open(a.store.DataDir())
	if err != nil {
		return nil, err
	}
	a.col = col
	a.logIssues()
	return col, nil
}

// refresh reloads the collection from disk.
func (a *app) refresh() error {
	if a.col == nil {
		_, err := a.bookmarks()
		return err
	}
	if err := a.col.Refresh(); err != nil {
		return err
	}
	a.logIssues()
	return nil
}

func (a *app) logIssues() {
	for _, issue := range a.col.Issues() {
		ui.Logger.Warn("skipping bookmark file", "path", issue.Path, "reason", issue.Reason)
	}
}

// render writes fn's output to the command's stdout, through the pager when
// paged is set.
func (a *app) render(cmd *cobra.Command, paged bool, fn func(w io.Writer)) error {
	if !paged {
		fn(cmd.OutOrStdout())
		return nil
	}
	var buf bytes.Buffer
	fn(&buf)
	return ui.Page(cmd.OutOrStdout(), buf.String(), true, a.store.Config.Colors.Pager && ui.ColorEnabled())
}

// completeAliases offers bookmark aliases for the first argument.
func (a *app) completeAliases(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := a.setup(); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	col, err := a.bookmarks()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var aliases []string
	for _, b := range col.List() {
		aliases = append(aliases, b.Alias)
	}
	return aliases, cobra.ShellCompDirectiveNoFileComp
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mark version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mark %s\n", buildVersion())
		},
	}
}

func completionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish]",
		Short:     "Generate shell completion scripts",
		Long:      "Generate shell completion scripts for bash, zsh, or fish. Output the script to stdout for sourcing in your shell profile.",
		Example:   "  mark completion bash > ~/.bashrc.d/mark\n  mark completion zsh > ~/.zfunc/_mark\n  mark completion fish > ~/.config/fish/completions/mark.fish",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish"},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return fmt.Errorf("unsupported shell: %s (use bash, zsh, or fish)", args[0])
			}
		},
	}
}
