package cli

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"DailySets/internal/usecase"
)

var generateCmd = &cobra.Command{
	Use:   "generate [YYYY-MM-DD]",
	Short: "Build the daily set of a date",
	Long: `Build the daily set of a date (default: today in the scheduler timezone).

Generation is idempotent: modes that already have a lineup are left untouched.
Use --regenerate to drop the day's lineups and build them again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().Bool("regenerate", false, "reset the day before generating")
	generateCmd.Flags().Bool("json", false, "output the report as JSON")
}

type modeView struct {
	Mode       string `json:"mode"`
	Status     string `json:"status"`
	Strategy   string `json:"strategy,omitempty"`
	Candidates int    `json:"candidates"`
	Selected   int    `json:"selected"`
	FellBack   bool   `json:"fell_back,omitempty"`
	Error      string `json:"error,omitempty"`
}

type reportView struct {
	Date    string     `json:"date"`
	Seed    int64      `json:"seed"`
	Resumed bool       `json:"resumed"`
	Phase   string     `json:"phase"`
	Modes   []modeView `json:"modes"`
}

func viewOf(r usecase.Report) reportView {
	v := reportView{Date: r.Date, Seed: r.Seed, Resumed: r.Resumed, Phase: string(r.Phase), Modes: []modeView{}}
	for _, m := range r.Modes {
		mv := modeView{
			Mode:       m.ModeID,
			Status:     string(m.Status),
			Strategy:   m.Strategy,
			Candidates: m.Candidates,
			Selected:   m.Selected,
			FellBack:   m.FellBack,
		}
		if m.Err != nil {
			mv.Error = m.Err.Error()
		}
		v.Modes = append(v.Modes, mv)
	}
	return v
}

func runGenerate(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	date, err := dateArg(a, args)
	if err != nil {
		return err
	}
	regenerate, _ := cmd.Flags().GetBool("regenerate")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	report, genErr := a.Generate(cmd.Context(), date, regenerate)

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(viewOf(report)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, usecase.FormatRunReport(nil, report, genErr))
	}
	return genErr
}
