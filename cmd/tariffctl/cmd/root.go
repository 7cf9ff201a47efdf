// Package cmd provides the tariffctl commands.
package cmd

import (
	"fmt"

	"tariff-service/internal/app"
	"tariff-service/internal/config"
	"tariff-service/internal/logger"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose bool

	cfg *config.Config
	log *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tariffctl",
	Short: "Operate the tariff service from the command line",
	Long: `tariffctl runs maintenance tasks against the tariff store configured
by the same environment variables as the API (STORAGE_DRIVER, DB_*, ...).

Examples:
  tariffctl migrate
  tariffctl seed-countries
  tariffctl resolve --hts 1234.56 --origin CN --dest US --date 2024-06-15
  tariffctl export --out tariffs.xlsx
  tariffctl token --subject alice --role admin`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			loaded.Logging.Level = "debug"
		}
		cfg = loaded
		log = logger.New(cfg.Logging)
		log.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCountriesCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(tokenCmd)
}

// openServices builds the service graph without a resolution cache or change feed
func openServices() (*app.Stores, *app.Services, error) {
	stores, err := app.OpenStores(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return stores, app.NewServices(stores, nil, nil, log), nil
}
