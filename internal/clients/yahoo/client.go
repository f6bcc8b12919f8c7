// Package yahoo provides the Yahoo Finance market data provider.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/multi"

	"github.com/aristath/allocator/internal/domain"
)

// ErrNoData is returned when Yahoo returned no bars for any requested ticker.
var ErrNoData = errors.New("no price data returned")

// download fetches daily bars per symbol. Per-symbol failures are reported in
// the second map, a failure of the whole request as the error.
type download func(symbols []string, period string) (map[string][]models.Bar, map[string]error, error)

// Client fetches daily closing prices through go-yfinance. Downloads run
// behind a circuit breaker so a failing upstream is not hammered by every
// optimization request.
type Client struct {
	download download
	breaker  *gobreaker.CircuitBreaker
	log      zerolog.Logger
}

// BreakerSettings controls when the Yahoo circuit opens.
type BreakerSettings struct {
	MaxConsecutiveFailures uint32
	OpenTimeout            time.Duration
}

// DefaultBreakerSettings trips after three consecutive failed downloads and
// probes again after a minute.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{MaxConsecutiveFailures: 3, OpenTimeout: time.Minute}
}

// NewClient creates a Yahoo Finance price client.
func NewClient(settings BreakerSettings, log zerolog.Logger) *Client {
	return newClient(downloadDaily, settings, log)
}

func newClient(fn download, settings BreakerSettings, log zerolog.Logger) *Client {
	log = log.With().Str("client", "yahoo").Logger()

	st := gobreaker.Settings{Name: "yahoo-history"}
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= settings.MaxConsecutiveFailures
	}
	st.Timeout = settings.OpenTimeout
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
	}

	return &Client{
		download: fn,
		breaker:  gobreaker.NewCircuitBreaker(st),
		log:      log,
	}
}

type fetchResult struct {
	table domain.PriceTable
	err   error
}

// GetClosingPrices downloads daily closes for tickers over period ("1y",
// "6mo", ...). It returns when the download completes or ctx is done,
// whichever happens first.
func (c *Client) GetClosingPrices(ctx context.Context, tickers []string, period string) (domain.PriceTable, error) {
	if len(tickers) == 0 {
		return domain.PriceTable{}, fmt.Errorf("no tickers requested")
	}

	done := make(chan fetchResult, 1)
	go func() {
		table, err := c.fetch(tickers, period)
		done <- fetchResult{table: table, err: err}
	}()

	select {
	case <-ctx.Done():
		c.log.Warn().Int("num_tickers", len(tickers)).Msg("Price download abandoned")
		return domain.PriceTable{}, fmt.Errorf("price download: %w", ctx.Err())
	case res := <-done:
		return res.table, res.err
	}
}

func (c *Client) fetch(tickers []string, period string) (domain.PriceTable, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		data, failures, err := c.download(tickers, period)
		if err != nil {
			return nil, fmt.Errorf("failed to download price history: %w", err)
		}
		for symbol, ferr := range failures {
			c.log.Warn().Err(ferr).Str("symbol", symbol).Msg("Failed to get history for symbol")
		}

		table := priceTableFromBars(data)
		if len(table.Closes) == 0 {
			return nil, ErrNoData
		}
		return table, nil
	})
	if err != nil {
		return domain.PriceTable{}, err
	}

	table := out.(domain.PriceTable)
	c.log.Debug().
		Int("requested", len(tickers)).
		Int("received", len(table.Closes)).
		Int("rows", table.Rows()).
		Msg("Downloaded price history")
	return table, nil
}

func downloadDaily(symbols []string, period string) (map[string][]models.Bar, map[string]error, error) {
	params := models.DefaultDownloadParams()
	params.Symbols = symbols
	params.Period = period
	params.Interval = "1d"

	result, err := multi.Download(symbols, &params)
	if err != nil {
		return nil, nil, err
	}
	return result.Data, result.Errors, nil
}

// priceTableFromBars aligns per-symbol bars on calendar dates. Bars are keyed
// by their trading day so series from exchanges in different time zones line
// up; a NaN close counts as missing.
func priceTableFromBars(data map[string][]models.Bar) domain.PriceTable {
	series := make(map[string]map[time.Time]float64, len(data))
	for symbol, bars := range data {
		obs := make(map[time.Time]float64, len(bars))
		for _, bar := range bars {
			if math.IsNaN(bar.Close) {
				continue
			}
			obs[tradingDay(bar.Date)] = bar.Close
		}
		if len(obs) > 0 {
			series[symbol] = obs
		}
	}
	return domain.NewPriceTable(series)
}

func tradingDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
