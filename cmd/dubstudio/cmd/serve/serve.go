package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dubstudio/cmd/dubstudio/cmd/common"
	"dubstudio/internal/app"
)

// Cmd represents the serve command
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long: `Run the API server

- Serves the job and chat API under /api/v1
- Answers chat messages posted by any replica
- Fails jobs that wait on a worker longer than pipeline.pending_timeout`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := common.Bootstrap(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		application, cleanup, err := app.InitializeApplication(cfg, logger)
		if err != nil {
			logger.Error("failed to initialize application", zap.Error(err))
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return application.Run(ctx)
	},
}
