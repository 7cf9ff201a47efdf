package cmd

import (
	"errors"
	"fmt"

	"tariff-service/internal/database"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		stores, _, err := openServices()
		if err != nil {
			return err
		}
		if stores.DB == nil {
			return errors.New("migrate needs STORAGE_DRIVER=postgres")
		}
		if err := database.Migrate(stores.DB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}
