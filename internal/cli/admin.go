package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"DailySets/internal/domain"
)

var resetCmd = &cobra.Command{
	Use:   "reset [YYYY-MM-DD]",
	Short: "Delete the daily set of a date",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReset,
}

var showCmd = &cobra.Command{
	Use:   "show [YYYY-MM-DD]",
	Short: "Print the lineups of a date",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Count catalog items per mode and status",
	Args:  cobra.NoArgs,
	RunE:  runCount,
}

var itemStatusCmd = &cobra.Command{
	Use:       "item-status <item-id> <active|inactive>",
	Short:     "Activate or retire an item",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(domain.StatusActive), string(domain.StatusInactive)},
	RunE:      runItemStatus,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(resetCmd, showCmd, countCmd, itemStatusCmd, migrateCmd)

	showCmd.Flags().String("mode", "", "only this mode")
	showCmd.Flags().Bool("json", false, "output as JSON")
}

func runReset(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := dateArg(a, args)
	if err != nil {
		return err
	}
	day, _ := domain.ParseDate(date)
	if err := a.Store().ResetDailySet(cmd.Context(), day); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "daily set %s reset\n", date)
	return nil
}

type lineupRow struct {
	Mode     string `json:"mode"`
	Position int    `json:"position"`
	ItemID   string `json:"item_id"`
}

func runShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := dateArg(a, args)
	if err != nil {
		return err
	}
	day, _ := domain.ParseDate(date)
	mode, _ := cmd.Flags().GetString("mode")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	rows, err := a.Store().DailySetItems(cmd.Context(), day, mode)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		view := make([]lineupRow, 0, len(rows))
		for _, r := range rows {
			view = append(view, lineupRow{Mode: r.ModeID, Position: r.Position, ItemID: r.ItemID})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	if len(rows) == 0 {
		fmt.Fprintf(out, "no lineups for %s\n", date)
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tPOSITION\tITEM")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", r.ModeID, r.Position, r.ItemID)
	}
	return tw.Flush()
}

func runCount(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	counts, err := a.Store().CountItems(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tSTATUS\tITEMS")
	for _, c := range counts {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.ModeID, c.Status, c.Count)
	}
	return tw.Flush()
}

func runItemStatus(cmd *cobra.Command, args []string) error {
	status := domain.ItemStatus(args[1])
	if status != domain.StatusActive && status != domain.StatusInactive {
		return fmt.Errorf("unknown status %q", args[1])
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store().SetItemStatus(cmd.Context(), args[0], status); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "item %s is %s\n", args[0], status)
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
	return nil
}
