package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// TemperatureFetcher retrieves the current temperature (°C) for a city.
type TemperatureFetcher interface {
	FetchTemperature(ctx context.Context, city string) (decimal.Decimal, error)
}

// HumidityFetcher retrieves the current relative humidity (%) for a city.
type HumidityFetcher interface {
	FetchHumidity(ctx context.Context, city string) (decimal.Decimal, error)
}

// ExchangeRateFetcher retrieves the price of one base currency unit in the quote currency.
type ExchangeRateFetcher interface {
	FetchExchangeRate(ctx context.Context) (decimal.Decimal, error)
}
