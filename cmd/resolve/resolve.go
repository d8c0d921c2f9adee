package resolve

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seedpix/seedpix-go/internal/catalog"
	"github.com/seedpix/seedpix-go/internal/conf"
	"github.com/seedpix/seedpix-go/internal/imagefinder"
	"github.com/seedpix/seedpix-go/internal/logging"
)

// Command creates the resolve command, the main entry point of the pipeline.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve image URLs for every catalog entry",
		Long: `Reads the catalog spreadsheet, probes the catalog image host for direct
product images, searches the media repository for entries the probe could
not confirm, and writes the resolved catalog as CSV.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.Context(), settings)
		},
	}

	setupFlags(cmd, settings)

	return cmd
}

// setupFlags configures flags specific to the resolve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) {
	cmd.Flags().IntVar(&settings.Probe.Concurrency, "probe-concurrency", viper.GetInt("probe.concurrency"), "Max concurrent direct probe requests")
	cmd.Flags().IntVar(&settings.Scrape.Concurrency, "scrape-concurrency", viper.GetInt("scrape.concurrency"), "Max concurrent fallback search requests")
	cmd.Flags().Float64Var(&settings.Scrape.RequestsPerSecond, "scrape-rps", viper.GetFloat64("scrape.requestspersecond"), "Fallback search requests per second, 0 disables limiting")
	cmd.Flags().StringVar(&settings.Scrape.UserAgent, "user-agent", viper.GetString("scrape.useragent"), "User agent for fallback search requests")
}

func runResolve(ctx context.Context, settings *conf.Settings) error {
	logger := logging.ForService("resolve")
	if logger == nil {
		logger = slog.Default()
	}

	if settings.Main.Log.Enabled {
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLogger, err := logging.NewFileLogger(&settings.Main.Log, settings.Main.Name, level)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeLogger(); err != nil {
				logger.Debug("failed to close log file", "error", err)
			}
		}()
		logger = fileLogger
	}

	records, err := catalog.ReadWorkbook(settings.Catalog.Input)
	if err != nil {
		return err
	}
	if limit := settings.Catalog.Limit; limit > 0 && limit < len(records) {
		logger.Info("limiting catalog rows", "limit", limit, "total", len(records))
		records = records[:limit]
	}

	resolver, err := imagefinder.New(settings)
	if err != nil {
		return err
	}

	resolutions, err := resolver.Run(ctx, catalog.Entries(records))
	if err != nil {
		return err
	}

	resolved := 0
	for i := range resolutions {
		if resolutions[i].URL != "" {
			resolved++
		}
	}

	if err := catalog.WriteCSV(settings.Catalog.Output, records, resolutions); err != nil {
		return err
	}

	logger.Info("resolution run complete",
		"entries", len(records),
		"resolved", resolved,
		"unresolved", len(resolutions)-resolved,
		"output", settings.Catalog.Output)
	return nil
}
