package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"dubstudio/cmd/dubstudio/cmd/migrate"
	"dubstudio/cmd/dubstudio/cmd/serve"
	"dubstudio/cmd/dubstudio/cmd/sweep"
	"dubstudio/cmd/dubstudio/cmd/version"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dubstudio",
	Short: "Job orchestration for video translation, talking-avatar videos and assistant chat",
	Long: `dubstudio accepts video translation and avatar video requests, drives each
job through audio extraction, speech synthesis, lip-sync and composition, and
streams job and chat changes to clients.

Configuration is read from a YAML file and overridden by environment variables.`,
	TraverseChildren: true,
	SilenceUsage:     true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serve.Cmd)
	rootCmd.AddCommand(migrate.Cmd)
	rootCmd.AddCommand(sweep.Cmd)
	rootCmd.AddCommand(version.Cmd)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $DUBSTUDIO_CONFIG or config.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "V", false, "development logging")
}
