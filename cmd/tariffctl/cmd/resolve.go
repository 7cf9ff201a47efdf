package cmd

import (
	"encoding/json"

	"tariff-service/internal/service"

	"github.com/spf13/cobra"
)

var resolveQuery service.ParticularTariffQuery

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the tariff in force for a product, route and date",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, services, err := openServices()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		tariff, err := services.Tariffs.GetParticularTariff(ctx, resolveQuery)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(tariff)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveQuery.HTSCode, "hts", "", "HTS code of the product")
	resolveCmd.Flags().StringVar(&resolveQuery.ProductName, "product-name", "", "product name, used when --hts is empty")
	resolveCmd.Flags().StringVar(&resolveQuery.OriginCountry, "origin", "", "origin country code [REQUIRED]")
	resolveCmd.Flags().StringVar(&resolveQuery.DestCountry, "dest", "", "destination country code [REQUIRED]")
	resolveCmd.Flags().StringVar(&resolveQuery.Date, "date", "", "YYYY-MM-DD, defaults to today")
	_ = resolveCmd.MarkFlagRequired("origin")
	_ = resolveCmd.MarkFlagRequired("dest")
}
