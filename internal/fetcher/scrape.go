package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"city-daily-digest/internal/extract"
)

const defaultUserAgent = "citydigest/1.0"

// SourceOptions describe where a metric lives and how requests are dressed.
// Every source sends the same User-Agent, Accept-Language and hl parameter.
type SourceOptions struct {
	BaseURL   string
	Language  string
	UserAgent string
	Selector  string
}

type scraper struct {
	subject string
	page    PageFetcher
	opts    SourceOptions
	logger  zerolog.Logger
}

func newScraper(subject string, page PageFetcher, opts SourceOptions, logger zerolog.Logger) scraper {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://www.google.com/search"
	}
	return scraper{
		subject: subject,
		page:    page,
		opts:    opts,
		logger:  logger.With().Str("component", subject+"_fetcher").Logger(),
	}
}

func (s scraper) queryURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	if s.opts.Language != "" {
		params.Set("hl", s.opts.Language)
	}
	return s.opts.BaseURL + "?" + params.Encode()
}

func (s scraper) header() http.Header {
	h := http.Header{}
	ua := strings.TrimSpace(s.opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	h.Set("User-Agent", ua)
	if s.opts.Language != "" {
		h.Set("Accept-Language", s.opts.Language)
	}
	return h
}

// scrape fetches the query page, locates the first node matching the
// selector and parses its text as a number.
func (s scraper) scrape(ctx context.Context, query string) (decimal.Decimal, error) {
	endpoint := s.queryURL(query)

	body, err := s.page.FetchPage(ctx, endpoint, s.header())
	if err != nil {
		return decimal.Decimal{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: parse document: %w", s.subject, err)
	}

	node := doc.Find(s.opts.Selector).First()
	if node.Length() == 0 {
		s.logger.Error().
			Str("url", endpoint).
			Str("selector", s.opts.Selector).
			Msg("expected fragment missing; upstream layout may have changed")
		return decimal.Decimal{}, &NotFoundError{Subject: s.subject, URL: endpoint, Selector: s.opts.Selector}
	}

	raw := strings.TrimSpace(node.Text())
	digits := extract.Numeric(extract.NormalizeDecimalComma(raw))
	if digits == "" {
		return decimal.Decimal{}, &ParseError{Subject: s.subject, Text: raw}
	}

	value, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Decimal{}, &ParseError{Subject: s.subject, Text: raw, Err: err}
	}

	s.logger.Debug().Str("raw", raw).Str("value", value.String()).Msg("metric extracted")
	return value, nil
}
