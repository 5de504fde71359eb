package rates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"swap-exchange-go/internal/models"
	"swap-exchange-go/internal/store"

	"github.com/dgraph-io/ristretto"
	"github.com/eapache/go-resiliency/breaker"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Compile-time check: *Client must satisfy store.RateQuoteService.
var _ store.RateQuoteService = (*Client)(nil)

const providersKey = "providers"

var ErrServiceUnavailable = errors.New("quoting service unavailable")

// StatusError is returned for a non-2xx response
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("unexpected status code %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status code %d: %s", e.StatusCode, e.Message)
}

// Client talks to the swap quoting service. Calls are rate limited and a run
// of server failures opens a circuit breaker.
type Client struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker.Breaker
	cache      *ristretto.Cache
	cacheTTL   time.Duration
	group      singleflight.Group
}

func NewClient(cfg models.RatesConfig, httpClient *http.Client) (*Client, error) {
	raw := cfg.BaseURL
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid quoting service url %q: %w", cfg.BaseURL, err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e3,
		MaxCost:     1 << 10,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create provider cache: %w", err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	return &Client{
		baseURL:    base,
		apiKey:     cfg.ApiKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		breaker:    breaker.New(cfg.BreakerErrors, 1, cfg.BreakerTimeout),
		cache:      cache,
		cacheTTL:   cfg.ProviderCacheTTL,
	}, nil
}

func (c *Client) Close() {
	c.cache.Close()
}

type rateRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	AmountFrom string `json:"amountFrom"`
}

type rateResponse struct {
	Provider     string          `json:"provider"`
	Rate         decimal.Decimal `json:"rate"`
	RateId       string          `json:"rateId"`
	ExpiresAt    time.Time       `json:"expiresAt"`
	ErrorCode    string          `json:"errorCode,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
}

// GetRates quotes the exchange. The amount is sent in display units and the
// returned rate is converted to a rate between smallest units.
func (c *Client) GetRates(ctx context.Context, exchange models.Exchange) ([]models.ExchangeRate, error) {
	from, to := exchange.FromCurrency, exchange.ToCurrency
	if from == nil || to == nil {
		return nil, &store.RateFetchError{Err: errors.New("exchange has no currency pair")}
	}

	request := rateRequest{
		From:       from.Id,
		To:         to.Id,
		AmountFrom: models.Unit(exchange.FromAmount, from).String(),
	}

	zap.L().Debug("Requesting exchange rates",
		zap.String("from", request.From),
		zap.String("to", request.To),
		zap.String("amount_from", request.AmountFrom))

	var responses []rateResponse
	if err := c.do(ctx, http.MethodPost, "rates", request, &responses); err != nil {
		return nil, &store.RateFetchError{Err: err}
	}

	var rates []models.ExchangeRate
	var providerErr error
	for _, r := range responses {
		if r.ErrorCode != "" || r.ErrorMessage != "" {
			zap.L().Warn("Provider returned an error",
				zap.String("provider", r.Provider),
				zap.String("error_code", r.ErrorCode),
				zap.String("error_message", r.ErrorMessage))
			if providerErr == nil {
				providerErr = &store.RateFetchError{Provider: r.Provider, Err: fmt.Errorf("%s: %s", r.ErrorCode, r.ErrorMessage)}
			}
			continue
		}

		rates = append(rates, models.ExchangeRate{
			Rate:               r.Rate,
			MagnitudeAwareRate: r.Rate.Shift(to.Magnitude - from.Magnitude),
			Provider:           r.Provider,
			RateId:             r.RateId,
			ExpiresAt:          r.ExpiresAt,
		})
	}

	if len(rates) == 0 {
		if providerErr != nil {
			return nil, providerErr
		}
		return nil, &store.RateFetchError{Err: store.ErrNoRates}
	}

	return rates, nil
}

// GetProviders returns the providers and the currencies they support. The list
// is cached and concurrent loads share one request.
func (c *Client) GetProviders(ctx context.Context) ([]models.Provider, error) {
	if cached, ok := c.cache.Get(providersKey); ok {
		return cached.([]models.Provider), nil
	}

	value, err, shared := c.group.Do(providersKey, func() (interface{}, error) {
		var providers []models.Provider
		if err := c.do(ctx, http.MethodGet, "providers", nil, &providers); err != nil {
			return nil, err
		}
		c.cache.SetWithTTL(providersKey, providers, 1, c.cacheTTL)
		c.cache.Wait()
		return providers, nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to list providers: %w", err)
	}

	zap.L().Debug("Loaded providers", zap.Bool("shared", shared))
	return value.([]models.Provider), nil
}

// InitSwapRequest registers a swap with the provider that quoted it
type InitSwapRequest struct {
	Provider            string `json:"provider"`
	RateId              string `json:"rateId"`
	From                string `json:"from"`
	To                  string `json:"to"`
	AmountFrom          string `json:"amountFrom"`
	PayoutAddress       string `json:"address"`
	RefundAddress       string `json:"refundAddress"`
	DeviceTransactionId string `json:"deviceTransactionId"`
}

// InitSwapResponse tells where the source funds have to be sent
type InitSwapResponse struct {
	SwapId       string `json:"swapId"`
	PayinAddress string `json:"payinAddress"`
	PayinExtraId string `json:"payinExtraId,omitempty"`
}

func (c *Client) InitSwap(ctx context.Context, request InitSwapRequest) (*InitSwapResponse, error) {
	var response InitSwapResponse
	if err := c.do(ctx, http.MethodPost, "swaps", request, &response); err != nil {
		return nil, fmt.Errorf("unable to init swap with %s: %w", request.Provider, err)
	}
	if response.SwapId == "" || response.PayinAddress == "" {
		return nil, fmt.Errorf("provider %s returned an incomplete swap", request.Provider)
	}

	zap.L().Info("Swap registered with provider",
		zap.String("provider", request.Provider),
		zap.String("swap_id", response.SwapId))
	return &response, nil
}

// GetSwapStatus returns the provider-side status of a swap
func (c *Client) GetSwapStatus(ctx context.Context, provider, swapId string) (*models.SwapStatus, error) {
	path := "swaps/" + url.PathEscape(swapId)
	if provider != "" {
		path += "?provider=" + url.QueryEscape(provider)
	}

	var status models.SwapStatus
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, fmt.Errorf("unable to get status of swap %s: %w", swapId, err)
	}
	if status.SwapId == "" {
		status.SwapId = swapId
	}
	return &status, nil
}

// do sends one request. Transport errors and 5xx responses count against the
// breaker, 4xx responses do not.
func (c *Client) do(ctx context.Context, method, path string, body, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u, err := c.baseURL.Parse(path)
	if err != nil {
		return err
	}

	var clientErr error
	err = c.breaker.Run(func() error {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		zap.L().Debug("Calling quoting service", zap.String("method", method), zap.String("url", u.String()))

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer func() {
			if err := resp.Body.Close(); err != nil {
				zap.L().Warn("Failed to close response body", zap.Error(err))
			}
		}()

		if resp.StatusCode >= http.StatusInternalServerError {
			return &StatusError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			clientErr = &StatusError{StatusCode: resp.StatusCode, Message: readMessage(resp.Body)}
			return nil
		}

		if v == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
			clientErr = fmt.Errorf("unable to decode response: %w", err)
		}
		return nil
	})

	if errors.Is(err, breaker.ErrBreakerOpen) {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	if err != nil {
		return err
	}
	return clientErr
}

func readMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
