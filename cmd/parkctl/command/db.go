package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/frontandrew/parkpos/internal/pkg/database"
	"github.com/frontandrew/parkpos/migrations"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management actions",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pool, err := database.Connect(cmd.Context(), &cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(pool)

		applied, err := database.Migrate(cmd.Context(), pool, migrations.FS)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
		}
		return nil
	},
}

func init() {
	dbCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(dbCmd)
}
