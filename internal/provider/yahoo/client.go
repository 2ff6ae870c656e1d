// Package yahoo provides a client for the Yahoo Finance chart and quoteSummary APIs.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/guttosm/stockpulse/internal/calendar"
	"github.com/guttosm/stockpulse/internal/domain/models"
	"github.com/guttosm/stockpulse/internal/logger"
	"github.com/guttosm/stockpulse/internal/provider"
)

const (
	DefaultBaseURL   = "https://query1.finance.yahoo.com"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 2 // requests per second

	userAgent = "Mozilla/5.0 (compatible; stockpulse/1.0)"
)

// Client implements provider.Provider against /v8/finance/chart and /v10/finance/quoteSummary.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ provider.Provider = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new Yahoo chart client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-200 response that is not a missing symbol.
type APIError struct {
	StatusCode int
	Message    string
	Symbol     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("yahoo API error: %s (status: %d, symbol: %s)", e.Message, e.StatusCode, e.Symbol)
}

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
		Symbol    string `json:"symbol"`
		LongName  string `json:"longName"`
		ShortName string `json:"shortName"`
		GMTOffset int64  `json:"gmtoffset"`
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
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector   string `json:"sector"`
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"price"`
		} `json:"result"`
		Error *chartError `json:"error"`
	} `json:"quoteSummary"`
}

// Profile returns name, sector and industry from quoteSummary. When that
// request fails, or carries no name, the name comes from the chart metadata.
func (c *Client) Profile(ctx context.Context, symbol string) (models.Profile, error) {
	p, err := c.quoteSummary(ctx, symbol)
	if err == nil && p.Name != "" {
		return p, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return models.Profile{}, ctxErr
	}
	if err != nil {
		log := logger.Component("yahoo")
		log.Debug().Str("symbol", symbol).Err(err).Msg("quote summary unavailable, using chart meta")
	}

	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")
	res, chartErr := c.chart(ctx, symbol, params)
	if chartErr != nil {
		return models.Profile{}, chartErr
	}
	p.Name = res.Meta.LongName
	if p.Name == "" {
		p.Name = res.Meta.ShortName
	}
	return p, nil
}

func (c *Client) quoteSummary(ctx context.Context, symbol string) (models.Profile, error) {
	params := url.Values{}
	params.Set("modules", "assetProfile,price")

	status, body, err := c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), params)
	if err != nil {
		return models.Profile{}, err
	}
	if status != http.StatusOK {
		return models.Profile{}, &APIError{StatusCode: status, Message: string(body), Symbol: symbol}
	}

	var qs quoteSummaryResponse
	if err := json.Unmarshal(body, &qs); err != nil {
		return models.Profile{}, fmt.Errorf("failed to decode quote summary: %w", err)
	}
	if qs.QuoteSummary.Error != nil {
		return models.Profile{}, errors.New(qs.QuoteSummary.Error.Description)
	}
	if len(qs.QuoteSummary.Result) == 0 {
		return models.Profile{}, fmt.Errorf("%s: %w", symbol, provider.ErrSymbolNotFound)
	}

	r := qs.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}
	return models.Profile{Name: name, Sector: r.AssetProfile.Sector, Industry: r.AssetProfile.Industry}, nil
}

// History returns the daily bars between start and end as a frame with
// yfinance-style headers: Open, High, Low, Close, Adj Close, Volume.
func (c *Client) History(ctx context.Context, symbol string, start, end time.Time) (*models.Frame, error) {
	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	// period2 is exclusive
	params.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	params.Set("includeAdjustedClose", "true")

	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}
	if len(res.Timestamp) == 0 || len(res.Indicators.Quote) == 0 {
		return nil, provider.ErrSymbolNotFound
	}

	q := res.Indicators.Quote[0]
	var adj []*float64
	if len(res.Indicators.AdjClose) > 0 {
		adj = res.Indicators.AdjClose[0].AdjClose
	}

	frame := &models.Frame{
		Columns: [][]string{{"Open"}, {"High"}, {"Low"}, {"Close"}, {"Adj Close"}, {"Volume"}},
		Rows:    make([]models.FrameRow, 0, len(res.Timestamp)),
	}
	offset := time.Duration(res.Meta.GMTOffset) * time.Second
	for i, ts := range res.Timestamp {
		local := time.Unix(ts, 0).UTC().Add(offset)
		frame.Rows = append(frame.Rows, models.FrameRow{
			Date: calendar.Truncate(local),
			Values: []float64{
				at(q.Open, i), at(q.High, i), at(q.Low, i), at(q.Close, i), at(adj, i), at(q.Volume, i),
			},
		})
	}

	log := logger.Component("yahoo")
	log.Debug().Str("symbol", symbol).Int("rows", len(frame.Rows)).Msg("yahoo history fetched")
	return frame, nil
}

// get performs a rate-limited GET and returns the status and full body.
func (c *Client) get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// chart fetches the chart endpoint and maps Yahoo's error shapes.
func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	status, body, err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), params)
	if err != nil {
		return nil, err
	}

	var cr chartResponse
	decodeErr := json.Unmarshal(body, &cr)

	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", symbol, provider.ErrSymbolNotFound)
	}
	if status != http.StatusOK {
		msg := string(body)
		if decodeErr == nil && cr.Chart.Error != nil {
			msg = cr.Chart.Error.Description
		}
		return nil, &APIError{StatusCode: status, Message: msg, Symbol: symbol}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if cr.Chart.Error != nil {
		if cr.Chart.Error.Code == "Not Found" {
			return nil, fmt.Errorf("%s: %w", symbol, provider.ErrSymbolNotFound)
		}
		return nil, errors.New(cr.Chart.Error.Description)
	}
	if len(cr.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, provider.ErrSymbolNotFound)
	}
	return &cr.Chart.Result[0], nil
}

// at returns the i-th value or NaN when it is missing or null.
func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return math.NaN()
	}
	return *vals[i]
}
