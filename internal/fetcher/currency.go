package fetcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ExchangeRate scrapes a currency conversion answer box.
type ExchangeRate struct {
	s     scraper
	base  string
	quote string
}

// NewExchangeRate constructs a fetcher for the price of one base unit in quote.
func NewExchangeRate(page PageFetcher, opts SourceOptions, base, quote string, logger zerolog.Logger) *ExchangeRate {
	if opts.Selector == "" {
		opts.Selector = "div.BNeawe.iBp4i.AP7Wnd"
	}
	return &ExchangeRate{
		s:     newScraper("exchange_rate", page, opts, logger),
		base:  strings.ToUpper(strings.TrimSpace(base)),
		quote: strings.ToUpper(strings.TrimSpace(quote)),
	}
}

// FetchExchangeRate returns the current base→quote rate.
func (e *ExchangeRate) FetchExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	if e.base == "" || e.quote == "" {
		return decimal.Decimal{}, fmt.Errorf("exchange_rate: base and quote currencies required")
	}
	return e.s.scrape(ctx, fmt.Sprintf("1 %s to %s", e.base, e.quote))
}

var _ ExchangeRateFetcher = (*ExchangeRate)(nil)
