package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/tabdiff/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Database.Enabled() {
			return errors.New("migrate: DATABASE_URL is not set")
		}

		pool, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.Migrate(pool); err != nil {
			return err
		}
		version, err := store.MigrationVersion(pool)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database at migration version %d\n", version)
		return nil
	},
}
