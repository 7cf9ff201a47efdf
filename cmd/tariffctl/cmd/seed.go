package cmd

import (
	"context"
	"fmt"

	"tariff-service/internal/service"

	"github.com/spf13/cobra"
)

// sampleCountries is the starter registry loaded by seed-countries
var sampleCountries = []service.CreateCountryRequest{
	{Code: "US", Name: "United States"},
	{Code: "CN", Name: "China"},
	{Code: "DE", Name: "Germany"},
	{Code: "JP", Name: "Japan"},
	{Code: "KR", Name: "South Korea"},
	{Code: "MX", Name: "Mexico"},
	{Code: "CA", Name: "Canada"},
	{Code: "VN", Name: "Vietnam"},
	{Code: "IN", Name: "India"},
	{Code: "SG", Name: "Singapore"},
	{Code: "GB", Name: "United Kingdom"},
	{Code: "FR", Name: "France"},
}

var seedCountriesCmd = &cobra.Command{
	Use:   "seed-countries",
	Short: "Register a starter set of countries, skipping codes that exist",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, services, err := openServices()
		if err != nil {
			return err
		}

		created, err := seedCountries(cmd.Context(), services.Countries)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d of %d countries\n", created, len(sampleCountries))
		return nil
	},
}

func seedCountries(ctx context.Context, countries service.CountryService) (int, error) {
	created := 0
	for _, req := range sampleCountries {
		_, err := countries.CreateCountry(ctx, service.SystemPrincipal, req)
		switch {
		case err == nil:
			created++
		case service.IsValidation(err):
			log.WithField("code", req.Code).Debug("country already registered")
		default:
			return created, fmt.Errorf("seed %s: %w", req.Code, err)
		}
	}
	return created, nil
}
