package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"city-daily-digest/internal/storage"
)

// Export renders stored observations as CSV and/or PNG.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	loc, err := a.Config.Location()
	if err != nil {
		return err
	}

	// to is exclusive; default to tomorrow so today's rows are included
	now := time.Now().In(loc)
	to := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
	if opts.To != nil {
		to = *opts.To
	}

	from := to.AddDate(0, 0, -opts.MaxPoints)
	if opts.From != nil {
		from = *opts.From
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	observations, err := store.ListBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		a.Logger.Info().Msg("no observations found for export window")
		return nil
	}

	downsampled := downsample(observations, opts.MaxPoints)
	a.Logger.Info().Int("total", len(observations)).Int("exported", len(downsampled)).Msg("exporting observations")

	if opts.CSVPath != "" {
		if err := writeCSV(opts.CSVPath, downsampled); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}

	if opts.PNGPath != "" {
		label := fmt.Sprintf("%s/%s", a.Config.Fetch.BaseCurrency, a.Config.Fetch.QuoteCurrency)
		if err := writePNG(opts.PNGPath, label, downsampled); err != nil {
			return fmt.Errorf("write png: %w", err)
		}
	}

	return nil
}

func downsample(observations []storage.Observation, max int) []storage.Observation {
	if max <= 0 || len(observations) <= max {
		return observations
	}
	if max == 1 {
		return observations[len(observations)-1:]
	}

	result := make([]storage.Observation, 0, max)
	step := float64(len(observations)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(observations) {
			idx = len(observations) - 1
		}
		result = append(result, observations[idx])
	}
	return result
}

func writeCSV(path string, observations []storage.Observation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{"date", "exchange_rate", "temperature", "humidity"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, obs := range observations {
		record := []string{
			obs.Date.Format(storage.DateLayout),
			obs.ExchangeRate.String(),
			obs.Temperature.String(),
			obs.Humidity.String(),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writePNG(path, rateLabel string, observations []storage.Observation) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(observations))
	rate := make([]float64, len(observations))
	temperature := make([]float64, len(observations))
	humidity := make([]float64, len(observations))

	for i, obs := range observations {
		x[i] = obs.Date
		rate[i] = obs.ExchangeRate.InexactFloat64()
		temperature[i] = obs.Temperature.InexactFloat64()
		humidity[i] = obs.Humidity.InexactFloat64()
	}

	// go-chart needs at least two points per series
	if len(observations) == 1 {
		x = append(x, x[0].AddDate(0, 0, 1))
		rate = append(rate, rate[0])
		temperature = append(temperature, temperature[0])
		humidity = append(humidity, humidity[0])
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Rate (" + rateLabel + ")",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.3f")
			},
		},
		YAxisSecondary: chart.YAxis{
			Name: "°C / %",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    rateLabel,
				XValues: x,
				YValues: rate,
			},
			chart.TimeSeries{
				Name:    "Temperature °C",
				XValues: x,
				YValues: temperature,
				YAxis:   chart.YAxisSecondary,
			},
			chart.TimeSeries{
				Name:    "Humidity %",
				XValues: x,
				YValues: humidity,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
