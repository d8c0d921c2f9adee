package config

import (
	"github.com/spf13/cobra"

	"github.com/seedpix/seedpix-go/internal/conf"
	"github.com/seedpix/seedpix-go/internal/logging"
)

// Command creates the config command, which writes the effective settings to a
// YAML file so defaults can be inspected and edited.
func Command(settings *conf.Settings) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write the effective configuration to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := conf.SaveSettings(settings, path); err != nil {
				return err
			}
			logging.Info("configuration written", "path", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "config.yaml", "Path to write the configuration file to")

	return cmd
}
