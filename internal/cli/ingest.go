package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [source-id...]",
	Short: "Pull items from the configured sources",
	Long: `Fetch every configured source (or only the listed ones), validate the
items and store the new ones. Items already known by content hash are skipped.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Ingest(cmd.Context(), args)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tMODE\tFETCHED\tNEW\tDUPLICATE\tINVALID\tERROR")
	for _, s := range report.Sources {
		errText := ""
		if s.Err != nil {
			errText = s.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			s.SourceID, s.ModeID, s.Fetched, s.Inserted, s.Duplicates, s.Invalid, errText)
	}
	return tw.Flush()
}
