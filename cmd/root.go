package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	configcmd "github.com/seedpix/seedpix-go/cmd/config"
	"github.com/seedpix/seedpix-go/cmd/resolve"
	"github.com/seedpix/seedpix-go/internal/conf"
	"github.com/seedpix/seedpix-go/internal/logging"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "seedpix",
		Short: "Seedpix CLI",
		Long:  `Resolves product image URLs for seed catalog entries.`,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		cobra.CheckErr(err)
	}

	subcommands := []*cobra.Command{
		resolve.Command(settings),
		configcmd.Command(settings),
	}
	rootCmd.AddCommand(subcommands...)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Flags are parsed by now, so the debug flag decides the log level.
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		logging.Init(level)
		return nil
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().StringVarP(&settings.Catalog.Input, "input", "i", viper.GetString("catalog.input"), "Path to the catalog spreadsheet")
	rootCmd.PersistentFlags().StringVarP(&settings.Catalog.Output, "output", "o", viper.GetString("catalog.output"), "Path to the resolved CSV output")
	rootCmd.PersistentFlags().IntVar(&settings.Catalog.Limit, "limit", viper.GetInt("catalog.limit"), "Process only the first N catalog rows, 0 processes all")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
