// Package common holds setup shared by the subcommands
package common

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dubstudio/internal/app/logging"
	"dubstudio/internal/config"
)

// Bootstrap loads configuration from the --config flag and builds the logger.
// Non-production environments and --verbose get the development logger.
func Bootstrap(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.NewLogger(verbose || !cfg.IsProduction())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
