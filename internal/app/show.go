package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"city-daily-digest/internal/storage"
)

// Show prints the most recent observations.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	observations, err := store.ListRecent(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		fmt.Fprintln(a.Out, "no observations found")
		return nil
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(writer, "Date\t%s/%s\tTemperature\tHumidity\n", a.Config.Fetch.BaseCurrency, a.Config.Fetch.QuoteCurrency)

	for _, obs := range observations {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\n",
			obs.Date.Format(storage.DateLayout),
			obs.ExchangeRate.String(),
			obs.Temperature.String(),
			obs.Humidity.String(),
		)
	}

	return writer.Flush()
}
