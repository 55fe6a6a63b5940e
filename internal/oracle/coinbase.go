package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rigrent-backend/internal/logger"
	"rigrent-backend/internal/metrics"

	"github.com/shopspring/decimal"
)

const maxResponseBytes = 1 << 16

// CoinbaseClient reads spot prices from the public Coinbase v2 prices API.
type CoinbaseClient struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	metrics    *metrics.RentalMetrics
}

type spotResponse struct {
	Data struct {
		Base     string `json:"base"`
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
	} `json:"data"`
}

func NewCoinbaseClient(baseURL string, timeout time.Duration, m *metrics.RentalMetrics) *CoinbaseClient {
	return &CoinbaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		metrics:    m,
	}
}

// SpotPrice performs GET {base}/v2/prices/{CUR}-USD/spot bounded by the
// client timeout, even when ctx has no deadline.
func (c *CoinbaseClient) SpotPrice(ctx context.Context, currency string) (decimal.Decimal, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		return decimal.Zero, fmt.Errorf("empty currency: %w", ErrPriceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	logger.ExternalServiceCall("coinbase", "SpotPrice", "currency", code)
	price, err := c.fetch(ctx, code)
	logger.ExternalServiceResult("coinbase", "SpotPrice", err, "currency", code, "price", price.String())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ObserveOracleRequest(code, outcome, time.Since(start))
	return price, err
}

func (c *CoinbaseClient) fetch(ctx context.Context, code string) (decimal.Decimal, error) {
	endpoint := fmt.Sprintf("%s/v2/prices/%s-USD/spot", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("build request: %w: %w", ErrPriceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w: %w", code, ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return decimal.Zero, fmt.Errorf("%s: unexpected status %d: %w", code, resp.StatusCode, ErrPriceUnavailable)
	}

	var body spotResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("%s: decode response: %w: %w", code, ErrPriceUnavailable, err)
	}

	price, err := decimal.NewFromString(body.Data.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: bad amount %q: %w", code, body.Data.Amount, ErrPriceUnavailable)
	}
	if !price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s: non-positive price %s: %w", code, price, ErrPriceUnavailable)
	}
	return price, nil
}
