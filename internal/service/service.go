package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"city-daily-digest/internal/alerting"
	"city-daily-digest/internal/config"
	"city-daily-digest/internal/fetcher"
	"city-daily-digest/internal/instrument"
	"city-daily-digest/internal/storage"
)

// Deps are the collaborators of a pipeline run. Store and Notifier may be nil
// to skip persistence or delivery (dry runs).
type Deps struct {
	Temperature  fetcher.TemperatureFetcher
	Humidity     fetcher.HumidityFetcher
	ExchangeRate fetcher.ExchangeRateFetcher
	Store        storage.ObservationStore
	Notifier     alerting.Notifier
	Recorder     *instrument.Recorder
	Clock        func() time.Time
}

// Service orchestrates fetching, persistence, and notification for one run.
type Service struct {
	deps     Deps
	logger   zerolog.Logger
	city     string
	base     string
	quote    string
	parallel bool
	location *time.Location
}

// New constructs the pipeline service.
func New(cfg *config.Config, deps Deps, logger zerolog.Logger) (*Service, error) {
	if deps.Temperature == nil || deps.Humidity == nil || deps.ExchangeRate == nil {
		return nil, errors.New("all three metric fetchers are required")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	return &Service{
		deps:     deps,
		logger:   logger.With().Str("component", "service").Logger(),
		city:     cfg.Fetch.City,
		base:     cfg.Fetch.BaseCurrency,
		quote:    cfg.Fetch.QuoteCurrency,
		parallel: cfg.Pipeline.ParallelFetch,
		location: loc,
	}, nil
}

type metrics struct {
	temperature  decimal.Decimal
	humidity     decimal.Decimal
	exchangeRate decimal.Decimal
}

// RunOnce fetches the three metrics, stores them as one observation and
// sends the notification. The first failure aborts the run; nothing is
// stored or sent after a fetch fails, and nothing is sent after a store
// failure.
func (s *Service) RunOnce(ctx context.Context) (storage.Observation, error) {
	logger := s.logger.With().Str("run_id", uuid.NewString()).Logger()
	logger.Info().Str("city", s.city).Bool("parallel_fetch", s.parallel).Msg("run started")

	values, err := s.fetchAll(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("run aborted during fetch")
		return storage.Observation{}, err
	}

	obs := storage.Observation{
		Date:         s.today(),
		ExchangeRate: values.exchangeRate,
		Temperature:  values.temperature,
		Humidity:     values.humidity,
	}

	if s.deps.Store != nil {
		if err := s.deps.Recorder.Observe("ensure_schema", func() error {
			return s.deps.Store.EnsureSchema(ctx)
		}); err != nil {
			return storage.Observation{}, fmt.Errorf("ensure schema: %w", err)
		}
		if err := s.deps.Recorder.Observe("append_observation", func() error {
			return s.deps.Store.Append(ctx, obs)
		}); err != nil {
			return storage.Observation{}, fmt.Errorf("append observation: %w", err)
		}
	} else {
		logger.Warn().Msg("no store configured; observation not persisted")
	}

	logger.Info().
		Str("date", obs.Date.Format(storage.DateLayout)).
		Str("temperature", obs.Temperature.String()).
		Str("humidity", obs.Humidity.String()).
		Str("exchange_rate", obs.ExchangeRate.String()).
		Msg("observation recorded")

	if s.deps.Notifier != nil {
		note := alerting.Notification{
			City:          s.city,
			BaseCurrency:  s.base,
			QuoteCurrency: s.quote,
			Temperature:   obs.Temperature,
			Humidity:      obs.Humidity,
			ExchangeRate:  obs.ExchangeRate,
		}
		if err := s.deps.Recorder.Observe("notify", func() error {
			return s.deps.Notifier.Notify(ctx, note)
		}); err != nil {
			return obs, fmt.Errorf("notify: %w", err)
		}
	} else {
		logger.Warn().Msg("no notifier configured; skipping delivery")
	}

	s.deps.Recorder.MarkSuccess()
	logger.Info().Msg("run completed")
	return obs, nil
}

func (s *Service) fetchAll(ctx context.Context) (metrics, error) {
	var m metrics
	steps := []struct {
		op    string
		dest  *decimal.Decimal
		fetch func(ctx context.Context) (decimal.Decimal, error)
	}{
		{"fetch_temperature", &m.temperature, func(ctx context.Context) (decimal.Decimal, error) {
			return s.deps.Temperature.FetchTemperature(ctx, s.city)
		}},
		{"fetch_humidity", &m.humidity, func(ctx context.Context) (decimal.Decimal, error) {
			return s.deps.Humidity.FetchHumidity(ctx, s.city)
		}},
		{"fetch_exchange_rate", &m.exchangeRate, func(ctx context.Context) (decimal.Decimal, error) {
			return s.deps.ExchangeRate.FetchExchangeRate(ctx)
		}},
	}

	if !s.parallel {
		for _, step := range steps {
			value, err := instrument.Measure(s.deps.Recorder, step.op, func() (decimal.Decimal, error) {
				return step.fetch(ctx)
			})
			if err != nil {
				return metrics{}, fmt.Errorf("%s: %w", step.op, err)
			}
			*step.dest = value
		}
		return m, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, step := range steps {
		step := step // per-iteration copy; go.mod targets go1.21 loop semantics
		g.Go(func() error {
			value, err := instrument.Measure(s.deps.Recorder, step.op, func() (decimal.Decimal, error) {
				return step.fetch(gctx)
			})
			if err != nil {
				return fmt.Errorf("%s: %w", step.op, err)
			}
			*step.dest = value
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return metrics{}, err
	}
	return m, nil
}

func (s *Service) today() time.Time {
	now := s.deps.Clock().In(s.location)
	y, mo, d := now.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, s.location)
}
