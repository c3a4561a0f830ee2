package fetcher

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Temperature scrapes the current temperature from a search results page.
type Temperature struct {
	s scraper
}

// NewTemperature constructs a temperature fetcher. An empty selector falls
// back to the search page's weather headline.
func NewTemperature(page PageFetcher, opts SourceOptions, logger zerolog.Logger) *Temperature {
	if opts.Selector == "" {
		opts.Selector = "div.BNeawe"
	}
	return &Temperature{s: newScraper("temperature", page, opts, logger)}
}

// FetchTemperature returns the temperature shown for city.
func (t *Temperature) FetchTemperature(ctx context.Context, city string) (decimal.Decimal, error) {
	return t.s.scrape(ctx, strings.TrimSpace(city)+" temperature")
}

// Humidity scrapes the current relative humidity from a search results page.
type Humidity struct {
	s    scraper
	term string
}

// NewHumidity constructs a humidity fetcher. term is the word appended to the
// city in the query, which depends on the configured language.
func NewHumidity(page PageFetcher, opts SourceOptions, term string, logger zerolog.Logger) *Humidity {
	if opts.Selector == "" {
		opts.Selector = "span#wob_hm"
	}
	if term == "" {
		term = "humidity"
	}
	return &Humidity{s: newScraper("humidity", page, opts, logger), term: term}
}

// FetchHumidity returns the humidity shown for city.
func (h *Humidity) FetchHumidity(ctx context.Context, city string) (decimal.Decimal, error) {
	return h.s.scrape(ctx, strings.TrimSpace(city)+" "+h.term)
}

var (
	_ TemperatureFetcher = (*Temperature)(nil)
	_ HumidityFetcher    = (*Humidity)(nil)
)
