package app

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"city-daily-digest/internal/alerting"
	"city-daily-digest/internal/fetcher"
	"city-daily-digest/internal/instrument"
	"city-daily-digest/internal/service"
)

// SimulateOptions supply the metric values a simulated run uses instead of
// scraping.
type SimulateOptions struct {
	Temperature  decimal.Decimal
	Humidity     decimal.Decimal
	ExchangeRate decimal.Decimal
	// Persist appends the simulated observation to the configured store.
	Persist bool
	// DryRun prints the messages instead of sending them.
	DryRun bool
}

// Simulate runs the pipeline with static fetchers, exercising persistence and
// delivery without touching the search pages.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	deps := service.Deps{
		Temperature:  staticTemperature{value: opts.Temperature},
		Humidity:     staticHumidity{value: opts.Humidity},
		ExchangeRate: staticExchangeRate{value: opts.ExchangeRate},
		Recorder:     instrument.New(a.Logger),
	}

	if opts.DryRun {
		deps.Notifier = printNotifier{app: a}
	} else {
		notifier, closeNotifier, err := a.newNotifier()
		if err != nil {
			return err
		}
		defer closeNotifier()
		deps.Notifier = notifier
	}

	if opts.Persist {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer closeStore()
		deps.Store = store
	}

	svc, err := service.New(a.Config, deps, a.Logger)
	if err != nil {
		return err
	}
	_, err = svc.RunOnce(ctx)
	return err
}

type staticTemperature struct {
	value decimal.Decimal
}

func (s staticTemperature) FetchTemperature(ctx context.Context, city string) (decimal.Decimal, error) {
	return s.value, nil
}

type staticHumidity struct {
	value decimal.Decimal
}

func (s staticHumidity) FetchHumidity(ctx context.Context, city string) (decimal.Decimal, error) {
	return s.value, nil
}

type staticExchangeRate struct {
	value decimal.Decimal
}

func (s staticExchangeRate) FetchExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	return s.value, nil
}

type printNotifier struct {
	app *App
}

func (p printNotifier) Notify(ctx context.Context, note alerting.Notification) error {
	for _, msg := range alerting.Messages(note) {
		if _, err := fmt.Fprintln(p.app.Out, msg); err != nil {
			return err
		}
	}
	return nil
}

var (
	_ fetcher.TemperatureFetcher  = staticTemperature{}
	_ fetcher.HumidityFetcher     = staticHumidity{}
	_ fetcher.ExchangeRateFetcher = staticExchangeRate{}
	_ alerting.Notifier           = printNotifier{}
)
