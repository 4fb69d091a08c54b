package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gopherai-kb/internal/bootstrap"
	"gopherai-kb/internal/model"
)

var summaryRegenerate bool

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show the corpus summary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *bootstrap.App) error {
			var (
				summary *model.CorpusSummary
				err     error
			)
			if summaryRegenerate {
				summary, err = a.Summary.Regenerate(cmd.Context())
				if err == nil && summary == nil {
					return fmt.Errorf("llm not configured, summary not regenerated")
				}
			} else {
				summary, err = a.Summary.Get(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), summary)
		})
	},
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryRegenerate, "regenerate", false, "Regenerate the summary before printing it")
}

func printSummary(w io.Writer, s *model.CorpusSummary) error {
	if outputFormat == "json" {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "%s\n\n", s.ExecutiveSummary)
	printList(w, "Key insights", s.KeyInsights)
	printList(w, "Action items", s.ActionItems)
	printList(w, "Key themes", s.KeyThemes)
	if len(s.ImportantDates) > 0 {
		fmt.Fprintln(w, "Important dates:")
		for _, d := range s.ImportantDates {
			fmt.Fprintf(w, "  - %s: %s\n", d.Date, d.Description)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%d document(s), %d sampled chunk(s), generated %s\n",
		s.DocumentCount, s.SampledChunks, s.GeneratedAt.Format("2006-01-02 15:04"))
	return nil
}

func printList(w io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(w, "  - %s\n", item)
	}
	fmt.Fprintln(w)
}
