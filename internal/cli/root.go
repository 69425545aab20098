// Package cli contains the dailysets commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"DailySets/internal/app"
	"DailySets/internal/config"
	"DailySets/internal/domain"
	"DailySets/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	cfg      config.Config
	logger   *slog.Logger

	newApp = func(ctx context.Context, c config.Config, l *slog.Logger) (*app.Application, error) {
		return app.New(ctx, c, l)
	}
)

var rootCmd = &cobra.Command{
	Use:   "dailysets",
	Short: "Daily set generator",
	Long: `dailysets ingests candidate items from configured sources and builds one
reproducible, balanced lineup per game mode per calendar day.

Example usage:
  dailysets ingest                    # Pull all configured sources
  dailysets generate                  # Build today's daily set
  dailysets generate 2024-03-01       # Build a given day
  dailysets show 2024-03-01 --mode headline-satire
  dailysets serve                     # Run the daily cron job with /metrics`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: initConfig,
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $DAILYSETS_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level")
}

func initConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadPath(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	logger.Debug("configuration loaded",
		"driver", cfg.Database.Driver,
		"modes", len(cfg.Modes),
		"sources", len(cfg.Sources))
	return nil
}

func openApp(cmd *cobra.Command) (*app.Application, error) {
	return newApp(cmd.Context(), cfg, logger)
}

// dateArg returns args[0] validated, or today in the configured timezone.
func dateArg(a *app.Application, args []string) (string, error) {
	if len(args) == 0 {
		return a.Today(), nil
	}
	day, err := domain.ParseDate(args[0])
	if err != nil {
		return "", err
	}
	return domain.DateKey(day), nil
}
