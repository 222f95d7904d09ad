package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kokistudios/mark/internal/bundle"
	markmcp "github.com/kokistudios/mark/internal/mcp"
	"github.com/kokistudios/mark/internal/ui"
)

func exportCmd(a *app) *cobra.Command {
	var term string
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export bookmarks to a portable " + bundle.Ext + " bundle",
		Long: `Export bookmarks to a gzip'd tar bundle holding one YAML file per bookmark
and a manifest. Use --query to export only the bookmarks matching a search term.

The ` + bundle.Ext + ` extension is added when missing. If <file> is a directory the
bundle is written there as bookmarks` + bundle.Ext + `.`,
		Example: `  mark export ~/backup/bookmarks
  mark export reading.mark --query tags=reading`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			written, n, err := bundle.Export(col, term, args[0])
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			sizeStr := ""
			if info, err := os.Stat(written); err == nil {
				sizeStr = fmt.Sprintf(" (%d bytes)", info.Size())
			}
			ui.Success(fmt.Sprintf("Exported %d bookmark(s) to %s%s", n, written, sizeStr))
			return nil
		},
	}
	cmd.Flags().StringVarP(&term, "query", "q", "", "Only export bookmarks matching this search term")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import bookmarks from a " + bundle.Ext + " bundle",
		Long: `Import bookmarks from a bundle made by 'mark export'.

Bookmarks whose uid is already present are skipped. A bookmark whose alias is
taken is imported under a newly generated alias.`,
		Example: "  mark import ~/backup/bookmarks" + bundle.Ext,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			result, err := bundle.Import(col, args[0])
			if err != nil {
				if result != nil && len(result.Imported) > 0 {
					ui.Warning(fmt.Sprintf("Imported %d bookmark(s) before the failure", len(result.Imported)))
				}
				return fmt.Errorf("import failed: %w", err)
			}

			ui.Success(fmt.Sprintf("Imported %d bookmark(s)", len(result.Imported)))
			if len(result.Skipped) > 0 {
				ui.KeyValue("Already present:", fmt.Sprintf("%d", len(result.Skipped)))
			}
			if len(result.Realiased) > 0 {
				ui.SectionHeader("Renamed")
				olds := make([]string, 0, len(result.Realiased))
				for old := range result.Realiased {
					olds = append(olds, old)
				}
				sort.Strings(olds)
				for _, old := range olds {
					ui.Detail(old, "→ "+ui.Bold(result.Realiased[old]))
				}
			}
			for _, b := range result.Imported {
				ui.Logger.Debug("imported", "alias", b.Alias, "uid", b.UID)
			}
			return nil
		},
	}
}

func mcpServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:    "mcp-serve",
		Short:  "Run mark as an MCP server",
		Long:   "Start mark as a Model Context Protocol (MCP) server over stdio, exposing read-only search, info, and tag tools.",
		Hidden: true, // Not typically called directly by users
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			return markmcp.NewServer(col, version).Run(cmd.Context())
		},
	}
}
