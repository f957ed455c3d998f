package sweep

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"dubstudio/cmd/dubstudio/cmd/common"
	"dubstudio/internal/app"
)

var olderThan time.Duration

func init() {
	Cmd.Flags().DurationVar(&olderThan, "older-than", 0, "pending age to fail (default is pipeline.pending_timeout)")
}

// Cmd represents the sweep command
var Cmd = &cobra.Command{
	Use:   "sweep",
	Short: "Fail jobs stuck waiting on a worker",
	Long: `Fail jobs stuck waiting on a worker

- Runs one pass of the sweep that serve performs periodically
- A job in audio_extraction_pending or lipsync_pending that has not changed
  for longer than --older-than is marked failed`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := common.Bootstrap(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		application, cleanup, err := app.InitializeApplication(cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		timeout := olderThan
		if timeout <= 0 {
			timeout = cfg.Pipeline.PendingTimeout
		}
		n, err := application.Orchestrator.SweepPending(cmd.Context(), timeout)
		if err != nil {
			return err
		}
		fmt.Printf("failed %d stale jobs\n", n)
		return nil
	},
}
