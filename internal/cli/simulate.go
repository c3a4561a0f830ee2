package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"city-daily-digest/internal/app"
)

var (
	simulateTemperature string
	simulateHumidity    string
	simulateRate        string
	simulatePersist     bool
	simulateDryRun      bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the digest with fixed values instead of scraping",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.SimulateOptions{Persist: simulatePersist, DryRun: simulateDryRun}

		for _, f := range []struct {
			flag  string
			raw   string
			value *decimal.Decimal
		}{
			{"temperature", simulateTemperature, &opts.Temperature},
			{"humidity", simulateHumidity, &opts.Humidity},
			{"rate", simulateRate, &opts.ExchangeRate},
		} {
			d, err := decimal.NewFromString(f.raw)
			if err != nil {
				return fmt.Errorf("invalid --%s value %q: %w", f.flag, f.raw, err)
			}
			*f.value = d
		}
		if !opts.ExchangeRate.IsPositive() {
			return fmt.Errorf("--rate must be greater than 0")
		}

		return getApp().Simulate(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateTemperature, "temperature", "20", "Temperature in °C")
	simulateCmd.Flags().StringVar(&simulateHumidity, "humidity", "50", "Relative humidity in %")
	simulateCmd.Flags().StringVar(&simulateRate, "rate", "1", "Exchange rate, quote units per base unit")
	simulateCmd.Flags().BoolVar(&simulatePersist, "persist", false, "Append the simulated observation to the store")
	simulateCmd.Flags().BoolVar(&simulateDryRun, "dry-run", false, "Print the messages instead of sending them")
}
