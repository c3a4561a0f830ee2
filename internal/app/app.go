package app

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"city-daily-digest/internal/alerting"
	"city-daily-digest/internal/config"
	"city-daily-digest/internal/fetcher"
	"city-daily-digest/internal/instrument"
	"city-daily-digest/internal/scheduler"
	"city-daily-digest/internal/service"
	"city-daily-digest/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	// Out receives tabular command output.
	Out io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) sourceOptions(selector string) fetcher.SourceOptions {
	return fetcher.SourceOptions{
		BaseURL:   a.Config.Fetch.BaseURL,
		Language:  a.Config.Fetch.Language,
		UserAgent: a.Config.Fetch.UserAgent,
		Selector:  selector,
	}
}

func (a *App) newFetchers() (fetcher.TemperatureFetcher, fetcher.HumidityFetcher, fetcher.ExchangeRateFetcher) {
	cfg := a.Config.Fetch
	page := fetcher.NewHTTPPage(cfg.Timeout)

	temperature := fetcher.NewTemperature(page, a.sourceOptions(cfg.TemperatureSelector), a.Logger)
	humidity := fetcher.NewHumidity(page, a.sourceOptions(cfg.HumiditySelector), cfg.HumidityTerm, a.Logger)
	rate := fetcher.NewExchangeRate(page, a.sourceOptions(cfg.ExchangeRateSelector), cfg.BaseCurrency, cfg.QuoteCurrency, a.Logger)
	return temperature, humidity, rate
}

func (a *App) newNotifier() (alerting.Notifier, func(), error) {
	if err := a.Config.ValidateTelegram(); err != nil {
		return nil, nil, err
	}

	tg := a.Config.Telegram
	channel := alerting.NewTelegramChannel(tg.BotToken, tg.APIBase, tg.Timeout, a.Logger)
	dispatcher := alerting.NewDispatcher(channel, alerting.Options{
		ChatID:     tg.ChatID,
		Pacing:     a.Config.Notify.Pacing,
		MaxRetries: a.Config.Notify.MaxRetries,
		MaxBackoff: a.Config.Notify.MaxBackoff,
		ResendAll:  a.Config.Notify.ResendAll,
	}, a.Logger)

	closer := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := channel.Close(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close telegram session")
		}
	}
	return dispatcher, closer, nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	store, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	closer := func() {
		if err := store.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close store")
		}
	}
	return store, closer, nil
}

// RunOnce executes one full pipeline pass: fetch, persist, notify.
func (a *App) RunOnce(ctx context.Context) error {
	if err := a.Config.Validate(); err != nil {
		return err
	}
	recorder := instrument.New(a.Logger)
	err := a.runPipeline(ctx, recorder)
	a.writeMetrics(recorder)
	return err
}

// Schedule runs the pipeline on the configured cron schedule until
// interrupted.
func (a *App) Schedule(ctx context.Context) error {
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if err := a.Config.ValidateTelegram(); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}
	sched, err := scheduler.New(scheduler.Options{
		Spec:       a.Config.Scheduler.Cron,
		Location:   loc,
		RunOnStart: a.Config.Scheduler.RunOnStart,
	}, a.Logger)
	if err != nil {
		return err
	}

	recorder := instrument.New(a.Logger)
	a.Logger.Info().Str("cron", a.Config.Scheduler.Cron).Msg("starting scheduled pipeline")
	err = sched.Run(ctx, func(ctx context.Context, fireTime time.Time) error {
		defer a.writeMetrics(recorder)
		return a.runPipeline(ctx, recorder)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("scheduler terminated with error")
		return err
	}

	a.Logger.Info().Msg("scheduled pipeline stopped")
	return nil
}

func (a *App) runPipeline(ctx context.Context, recorder *instrument.Recorder) error {
	notifier, closeNotifier, err := a.newNotifier()
	if err != nil {
		return err
	}
	defer closeNotifier()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	temperature, humidity, rate := a.newFetchers()
	svc, err := service.New(a.Config, service.Deps{
		Temperature:  temperature,
		Humidity:     humidity,
		ExchangeRate: rate,
		Store:        store,
		Notifier:     notifier,
		Recorder:     recorder,
	}, a.Logger)
	if err != nil {
		return err
	}

	_, err = svc.RunOnce(ctx)
	return err
}

func (a *App) writeMetrics(recorder *instrument.Recorder) {
	path := a.Config.Metrics.Textfile
	if path == "" {
		return
	}
	if err := recorder.WriteTextfile(path); err != nil {
		a.Logger.Warn().Err(err).Str("path", path).Msg("failed to write metrics textfile")
	}
}

// ExportOptions hold parameters for exporting stored observations.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
