package migrate

import (
	"fmt"

	"github.com/spf13/cobra"

	"dubstudio/cmd/dubstudio/cmd/common"
	"dubstudio/internal/app/repository"
	"dubstudio/internal/app/repository/pg"
	"dubstudio/internal/app/repository/sqlite"
)

// Cmd represents the migrate command
var Cmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the job and chat tables",
	Long: `Create the job and chat tables for the configured database driver.

Migrations are idempotent; serve runs them on startup as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := common.Bootstrap(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		var store repository.Store
		switch cfg.Database.Driver {
		case "postgres":
			db, err := pg.NewPostgresDB(cfg.Database.DSN)
			if err != nil {
				return err
			}
			store = db
		case "sqlite3":
			db, err := sqlite.NewSQLiteDB(cfg.Database.DSN)
			if err != nil {
				return err
			}
			store = db
		default:
			return fmt.Errorf("driver %s has no schema", cfg.Database.Driver)
		}
		defer store.Close()

		if err := store.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("migrated %s database\n", cfg.Database.Driver)
		return nil
	},
}
