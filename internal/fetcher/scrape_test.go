package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func htmlServer(t *testing.T, body string, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sourceOpts(baseURL string) SourceOptions {
	return SourceOptions{
		BaseURL:   baseURL,
		Language:  "pt-BR",
		UserAgent: "test-agent/1.0",
	}
}

func TestTemperatureFetch(t *testing.T) {
	var got *http.Request
	srv := htmlServer(t, `<html><body><div class="BNeawe iBp4i">12.5Â°C</div><div class="BNeawe">Cloudy</div></body></html>`,
		func(r *http.Request) { got = r.Clone(context.Background()) })

	temp := NewTemperature(NewHTTPPage(time.Second), sourceOpts(srv.URL), noopLogger())
	value, err := temp.FetchTemperature(context.Background(), "Vancouver")
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("12.5")), "got %s", value)

	require.NotNil(t, got)
	assert.Equal(t, "Vancouver temperature", got.URL.Query().Get("q"))
	assert.Equal(t, "pt-BR", got.URL.Query().Get("hl"))
	assert.Equal(t, "test-agent/1.0", got.Header.Get("User-Agent"))
	assert.Equal(t, "pt-BR", got.Header.Get("Accept-Language"))
}

func TestHumidityFetch(t *testing.T) {
	var query string
	srv := htmlServer(t, `<div><span id="wob_hm">Humidity: 80%</span></div>`,
		func(r *http.Request) { query = r.URL.Query().Get("q") })

	hum := NewHumidity(NewHTTPPage(time.Second), sourceOpts(srv.URL), "humidade", noopLogger())
	value, err := hum.FetchHumidity(context.Background(), "Vancouver")
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.NewFromInt(80)), "got %s", value)
	assert.Equal(t, "Vancouver humidade", query)
}

func TestExchangeRateFetchNormalizesComma(t *testing.T) {
	var query string
	srv := htmlServer(t, `<div class="BNeawe iBp4i AP7Wnd">3,75 Real brasileiro</div>`,
		func(r *http.Request) { query = r.URL.Query().Get("q") })

	rate := NewExchangeRate(NewHTTPPage(time.Second), sourceOpts(srv.URL), "cad", "brl", noopLogger())
	value, err := rate.FetchExchangeRate(context.Background())
	require.NoError(t, err)
	assert.True(t, value.Equal(decimal.RequireFromString("3.75")), "got %s", value)
	assert.Equal(t, "1 CAD to BRL", query)
}

func TestExchangeRateMissingCurrencies(t *testing.T) {
	rate := NewExchangeRate(NewHTTPPage(time.Second), SourceOptions{}, "", "BRL", noopLogger())
	_, err := rate.FetchExchangeRate(context.Background())
	require.Error(t, err)
}

func TestFetchSelectorMissing(t *testing.T) {
	srv := htmlServer(t, `<html><body><p>consent wall</p></body></html>`, nil)

	temp := NewTemperature(NewHTTPPage(time.Second), sourceOpts(srv.URL), noopLogger())
	_, err := temp.FetchTemperature(context.Background(), "Vancouver")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "temperature", notFound.Subject)
	assert.Equal(t, "div.BNeawe", notFound.Selector)
	assert.Contains(t, notFound.URL, srv.URL)
}

func TestFetchNonNumericFragment(t *testing.T) {
	srv := htmlServer(t, `<span id="wob_hm">--</span>`, nil)

	hum := NewHumidity(NewHTTPPage(time.Second), sourceOpts(srv.URL), "", noopLogger())
	_, err := hum.FetchHumidity(context.Background(), "Vancouver")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "--", parseErr.Text)
}

func TestFetchMalformedNumber(t *testing.T) {
	srv := htmlServer(t, `<div class="BNeawe">1.2.3</div>`, nil)

	temp := NewTemperature(NewHTTPPage(time.Second), sourceOpts(srv.URL), noopLogger())
	_, err := temp.FetchTemperature(context.Background(), "Vancouver")

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Error(t, parseErr.Unwrap())
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	temp := NewTemperature(NewHTTPPage(time.Second), sourceOpts(srv.URL), noopLogger())
	_, err := temp.FetchTemperature(context.Background(), "Vancouver")

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.Equal(t, http.StatusTooManyRequests, transport.StatusCode)
}

func TestFetchUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	temp := NewTemperature(NewHTTPPage(time.Second), sourceOpts(url), noopLogger())
	_, err := temp.FetchTemperature(context.Background(), "Vancouver")

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.True(t, errors.Unwrap(err) != nil)
}

func TestDefaultUserAgent(t *testing.T) {
	var ua string
	srv := htmlServer(t, `<div class="BNeawe">5</div>`, func(r *http.Request) { ua = r.Header.Get("User-Agent") })

	temp := NewTemperature(NewHTTPPage(time.Second), SourceOptions{BaseURL: srv.URL}, noopLogger())
	_, err := temp.FetchTemperature(context.Background(), "Vancouver")
	require.NoError(t, err)
	assert.Equal(t, defaultUserAgent, ua)
}
