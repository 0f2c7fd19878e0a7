package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/yourorg/stock-forecast/internal/config"
	"github.com/yourorg/stock-forecast/internal/model"
)

const (
	YahooAPIBaseURL = "https://query1.finance.yahoo.com"
	DailyInterval   = "1d"
)

// YahooClient handles communication with the Yahoo Finance chart API
type YahooClient struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     uint64
	initialBackoff time.Duration
	logger         *zap.Logger
}

// NewYahooClient creates a new Yahoo Finance client
func NewYahooClient(cfg config.MarketDataConfig, logger *zap.Logger) *YahooClient {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		} else {
			logger.Warn("Ignoring invalid market data proxy", zap.String("proxy", cfg.Proxy), zap.Error(err))
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = YahooAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &YahooClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		logger:         logger,
	}
}

// chartResponse is the response structure of the chart API
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		model.QuoteMeta
		GMTOffset int64 `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// GetHistory retrieves daily bars for a ticker between start and end, both inclusive.
// A zero end means today. An unknown ticker yields an empty series.
func (c *YahooClient) GetHistory(ctx context.Context, ticker string, start, end time.Time) (*model.PriceSeries, error) {
	if end.IsZero() {
		end = time.Now()
	}
	params := url.Values{}
	params.Set("interval", DailyInterval)
	params.Set("period1", strconv.FormatInt(truncateDay(start).Unix(), 10))
	params.Set("period2", strconv.FormatInt(truncateDay(end).AddDate(0, 0, 1).Unix(), 10))

	series, _, err := c.fetchChart(ctx, ticker, params)
	return series, err
}

// GetRecent retrieves daily bars for a Yahoo range token such as "5d" or "1mo",
// along with the quote metadata of the ticker
func (c *YahooClient) GetRecent(ctx context.Context, ticker, rng string) (*model.PriceSeries, *model.QuoteMeta, error) {
	params := url.Values{}
	params.Set("interval", DailyInterval)
	params.Set("range", rng)

	return c.fetchChart(ctx, ticker, params)
}

func (c *YahooClient) fetchChart(ctx context.Context, ticker string, params url.Values) (*model.PriceSeries, *model.QuoteMeta, error) {
	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(ticker), params.Encode())
	c.logger.Debug("Calling Yahoo Finance API", zap.String("url", reqURL))

	var body []byte
	var notFound bool
	operation := func() error {
		var err error
		body, notFound, err = c.doRequest(ctx, reqURL)
		return err
	}

	b := backoff.NewExponentialBackOff()
	if c.initialBackoff > 0 {
		b.InitialInterval = c.initialBackoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	err := backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		c.logger.Warn("Retrying Yahoo Finance request",
			zap.String("ticker", ticker),
			zap.Duration("wait", wait),
			zap.Error(err))
	})
	if err != nil {
		c.logger.Error("Failed to fetch chart from Yahoo Finance",
			zap.String("ticker", ticker),
			zap.Error(err))
		return nil, nil, fmt.Errorf("failed to fetch chart for %s: %w", ticker, err)
	}

	series := &model.PriceSeries{Ticker: ticker}
	if notFound {
		c.logger.Warn("Yahoo Finance has no data for ticker", zap.String("ticker", ticker))
		return series, nil, nil
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		c.logger.Error("Failed to decode Yahoo Finance chart", zap.Error(err))
		return nil, nil, fmt.Errorf("failed to decode chart: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		c.logger.Warn("Yahoo Finance returned no result", zap.String("ticker", ticker))
		return series, nil, nil
	}

	result := chart.Chart.Result[0]
	meta := result.Meta.QuoteMeta
	series.Bars = parseBars(result)

	if len(series.Bars) == 0 {
		c.logger.Warn("Yahoo Finance returned empty bars", zap.String("ticker", ticker))
	} else {
		c.logger.Debug("Successfully fetched bars",
			zap.Int("count", len(series.Bars)),
			zap.String("ticker", ticker))
	}
	return series, &meta, nil
}

// doRequest performs one attempt. Server errors and throttling are retried,
// other client errors are permanent. A 404 is reported as notFound.
func (c *YahooClient) doRequest(ctx context.Context, reqURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, backoff.Permanent(err)
		}
		return nil, false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, true, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, false, fmt.Errorf("yahoo returned status code %d", resp.StatusCode)
	default:
		c.logger.Error("Yahoo Finance API error response",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(body)))
		return nil, false, backoff.Permanent(&StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}
}

// StatusError is a non-retryable HTTP error from the upstream
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("yahoo returned status code %d: %s", e.StatusCode, e.Body)
}

// parseBars converts the columnar chart payload into ordered daily bars,
// dropping rows without a close and keeping the last bar of a duplicated day
func parseBars(result chartResult) []model.PriceBar {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}
	quote := result.Indicators.Quote[0]
	offset := result.Meta.GMTOffset

	byDay := make(map[time.Time]model.PriceBar, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closeVal := at(quote.Close, i)
		if closeVal == nil {
			continue // holidays and halted sessions come back as nulls
		}
		day := truncateDay(time.Unix(ts+offset, 0).UTC())
		byDay[day] = model.PriceBar{
			Date:   day,
			Open:   valueOr(at(quote.Open, i), *closeVal),
			High:   valueOr(at(quote.High, i), *closeVal),
			Low:    valueOr(at(quote.Low, i), *closeVal),
			Close:  *closeVal,
			Volume: valueOr(at(quote.Volume, i), 0),
		}
	}

	bars := make([]model.PriceBar, 0, len(byDay))
	for _, bar := range byDay {
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
