package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kokistudios/mark/internal/query"
	"github.com/kokistudios/mark/internal/ui"
)

func searchCmd(a *app) *cobra.Command {
	var paged bool
	cmd := &cobra.Command{
		Use:   "search <term...>",
		Short: "Search bookmarks",
		Long: `Search bookmarks with a filter expression. Separate words are joined
with spaces into one expression.

See 'mark syntax' for the language.`,
		Example: `  mark search golang
  mark search 'tags=go+rust,title=blog%url=medium.com'
  mark search any%tags=archived`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			term := strings.Join(args, " ")
			results := query.Execute(col.List(), term)
			ui.Logger.Debug("search", "term", term, "parsed", fmt.Sprintf("%+v", query.Parse(term)), "results", len(results))
			return a.render(cmd, paged, func(w io.Writer) {
				ui.RenderList(w, "search results", results)
			})
		},
	}
	cmd.Flags().BoolVarP(&paged, "pager", "p", false, "Show output in $PAGER")
	return cmd
}

func queryCmd(a *app) *cobra.Command {
	var fields []string
	var asJSON bool
	var limit int
	cmd := &cobra.Command{
		Use:   "query [term...]",
		Short: "Search bookmarks with tab-separated or JSON output",
		Long: `Search bookmarks and print one tab-separated line per match, or a JSON
document with every field. An empty term matches every bookmark.

Default columns: uid, alias, title, url, tags. Use --fields to choose columns
and their order from uid, alias, title, description, url, tags, created, updated.`,
		Example: `  mark query tags=go
  mark query -l alias,url 'title=blog%tags=old'
  mark query -j | jq '.bookmarks[].url'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			col, err := a.bookmarks()
			if err != nil {
				return err
			}
			results := query.Execute(col.List(), strings.Join(args, " "))
			if limit > 0 && len(results) > limit {
				results = results[:limit]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return query.WriteJSON(out, results)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			return query.WriteTSV(out, query.Project(results, query.ParseFields(fields)))
		},
	}
	cmd.Flags().StringSliceVarP(&fields, "fields", "l", nil, "Comma-separated columns to print (TSV only)")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Print JSON instead of TSV")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Print at most this many bookmarks")
	cmd.RegisterFlagCompletionFunc("fields", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		names := make([]string, len(query.AllFields))
		for i, f := range query.AllFields {
			names[i] = f.String()
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

const syntaxGuide = `# Search syntax

A search term is a list of **clauses** separated by commas. A bookmark
matches when it satisfies every clause.

    title=golang,tags=reading

## Clauses

| Clause | Matches when |
|---|---|
| ` + "`word`" + ` | title, description or url contains *word* |
| ` + "`title=word`" + ` | the title contains *word* |
| ` + "`description=word`" + ` | the description contains *word* |
| ` + "`url=word`" + ` | the url contains *word* |
| ` + "`alias=word`" + ` | the alias equals *word* |
| ` + "`uid=word`" + ` | the uid equals *word* |
| ` + "`tags=a+b`" + ` | the bookmark has tag *a* or tag *b* |
| ` + "`any`" + ` | always |

Matching ignores case. An unknown field name is treated as a plain word.

## Excluding

Everything after the first ` + "`%`" + ` is a second list of clauses. Bookmarks
matching all of those are removed from the result.

    tags=dev%title=draft      dev bookmarks, without drafts
    any%tags=archived         everything not tagged archived

An empty term matches every bookmark.
`

func syntaxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "syntax",
		Short: "Explain the search language",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			ui.RenderMarkdown(cmd.OutOrStdout(), syntaxGuide)
		},
	}
}
