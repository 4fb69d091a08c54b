package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"gopherai-kb/internal/app"
	"gopherai-kb/internal/bootstrap"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Hybrid keyword and semantic search",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			resp, err := a.Search.Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			return printSearch(cmd.OutOrStdout(), resp)
		})
	},
}

func printSearch(w io.Writer, resp *app.SearchResponse) error {
	if outputFormat == "json" {
		return writeJSON(w, resp)
	}
	if len(resp.Results) == 0 {
		fmt.Fprintln(w, "No results found")
		return nil
	}
	if !resp.SemanticEnabled {
		fmt.Fprintln(w, "(keyword matches only)")
	}
	fmt.Fprintf(w, "Found %d result(s)\n\n", len(resp.Results))
	for i, r := range resp.Results {
		fmt.Fprintf(w, "%d. %s  score=%.2f  [%s]\n", i+1, r.Document.Name, r.Score, strings.Join(r.MatchTypes, ","))
		if r.PageNumber != nil {
			fmt.Fprintf(w, "   page %d\n", *r.PageNumber)
		}
		if len(r.Tags) > 0 {
			fmt.Fprintf(w, "   tags: %s\n", strings.Join(r.Tags, ", "))
		}
		fmt.Fprintf(w, "   %s\n\n", r.Snippet)
	}
	return nil
}
