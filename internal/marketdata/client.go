// Package marketdata implements the Twelve Data candle provider.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Alias1177/Fusion/models"
)

// ClientConfig holds the provider parameters.
type ClientConfig struct {
	APIKey         string
	BaseURL        string // defaults to the public endpoint
	RequestTimeout time.Duration
	RequestsPerSec int
	MaxRetryTime   time.Duration
}

// Client fetches OHLCV windows with rate limiting and retries. It
// implements models.MarketDataProvider.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cfg        ClientConfig
	logger     zerolog.Logger
}

// NewClient creates a rate-limited API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twelvedata.com"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.RequestsPerSec <= 0 {
		cfg.RequestsPerSec = 5
	}
	if cfg.MaxRetryTime <= 0 {
		cfg.MaxRetryTime = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Second/time.Duration(cfg.RequestsPerSec)), cfg.RequestsPerSec),
		cfg:     cfg,
		logger:  log.With().Str("component", "marketdata").Logger(),
	}
}

// timeSeriesResponse is the provider wire format; every numeric field
// arrives as a string.
type timeSeriesResponse struct {
	Values []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
	Status string `json:"status"`
}

// GetCandles fetches count bars of tf for symbol, oldest first.
func (c *Client) GetCandles(ctx context.Context, symbol string, tf models.Timeframe, count int) ([]models.Candle, error) {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	url := fmt.Sprintf(
		"%s/time_series?symbol=%s&interval=%s&outputsize=%d&apikey=%s",
		c.cfg.BaseURL, symbol, tf, count, c.cfg.APIKey,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	// Use exponential backoff for retries
	var resp *http.Response
	operation := func() error {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("non-200 status code: %d", resp.StatusCode)
		}
		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = c.cfg.MaxRetryTime

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, fmt.Errorf("after retries: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if strings.Contains(string(body), `"status":"error"`) {
		c.logger.Error().Str("response", string(body)).Msg("Twelve Data API error")
		return nil, fmt.Errorf("Twelve Data API error: %s", string(body))
	}

	var data timeSeriesResponse
	if err := json.Unmarshal(body, &data); err != nil {
		c.logger.Error().Err(err).Str("response", string(body)).Msg("Error parsing JSON")
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if len(data.Values) == 0 {
		c.logger.Warn().Str("symbol", symbol).Stringer("timeframe", tf).Msg("No candles in response")
		return nil, fmt.Errorf("empty data returned")
	}

	candles := make([]models.Candle, 0, len(data.Values))
	for _, v := range data.Values {
		candle, err := parseCandle(v.Datetime, v.Open, v.High, v.Low, v.Close, v.Volume)
		if err != nil {
			return nil, fmt.Errorf("parsing candle %q: %w", v.Datetime, err)
		}
		candles = append(candles, candle)
	}

	// Oldest first for proper calculations.
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	c.logger.Debug().
		Str("symbol", symbol).
		Stringer("timeframe", tf).
		Int("count", len(candles)).
		Msg("Fetched candles")
	return candles, nil
}

func parseCandle(datetime, open, high, low, cl, volume string) (models.Candle, error) {
	ts, err := parseTimestamp(datetime)
	if err != nil {
		return models.Candle{}, err
	}
	o, err := strconv.ParseFloat(open, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("open: %w", err)
	}
	h, err := strconv.ParseFloat(high, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("high: %w", err)
	}
	l, err := strconv.ParseFloat(low, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("low: %w", err)
	}
	cv, err := strconv.ParseFloat(cl, 64)
	if err != nil {
		return models.Candle{}, fmt.Errorf("close: %w", err)
	}
	// FX pairs come without volume.
	var vol int64
	if volume != "" {
		if vol, err = strconv.ParseInt(volume, 10, 64); err != nil {
			return models.Candle{}, fmt.Errorf("volume: %w", err)
		}
	}
	return models.Candle{Timestamp: ts, Open: o, High: h, Low: l, Close: cv, Volume: vol}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized datetime %q", s)
}
