package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"openair-backend/config"
	"openair-backend/internal/model"
)

// HTTP fetches dashboard data from an upstream JSON API:
//
//	GET {base}/readings/current
//	GET {base}/transactions?limit=N
//	GET {base}/balances/{owner}
//
// Calls go through a circuit breaker so a dead upstream fails fast and the
// fallback policy takes over.
type HTTP struct {
	baseURL string
	headers map[string]string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewHTTP creates an upstream source from configuration.
func NewHTTP(cfg config.SourceConfig, logger *zap.Logger) *HTTP {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTP.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTP.HTTPProxy)
		if err != nil {
			logger.Warn("invalid proxy url, upstream source will not use a proxy",
				zap.String("proxy", cfg.HTTP.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	b := cfg.Breaker
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < b.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= b.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})

	return &HTTP{
		baseURL: strings.TrimRight(cfg.HTTP.BaseURL, "/"),
		headers: cfg.HTTP.Headers,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.HTTP.Timeout,
		},
		breaker: breaker,
		logger:  logger,
	}
}

// FetchReading implements Readings.
func (h *HTTP) FetchReading(ctx context.Context) (model.Reading, error) {
	var r model.Reading
	if err := h.getJSON(ctx, "/readings/current", &r); err != nil {
		return model.Reading{}, err
	}
	if err := Validate(r); err != nil {
		return model.Reading{}, err
	}
	return r, nil
}

// FetchTransactions implements Transactions.
func (h *HTTP) FetchTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if limit <= 0 {
		return []model.Transaction{}, nil
	}
	var txs []model.Transaction
	if err := h.getJSON(ctx, "/transactions?limit="+strconv.Itoa(limit), &txs); err != nil {
		return nil, err
	}
	for i := range txs {
		if err := Validate(txs[i]); err != nil {
			return nil, err
		}
	}
	if len(txs) > limit {
		txs = txs[:limit]
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return txs, nil
}

// FetchBalance implements Balances.
func (h *HTTP) FetchBalance(ctx context.Context, owner string) (model.Balance, error) {
	var b model.Balance
	if err := h.getJSON(ctx, "/balances/"+url.PathEscape(owner), &b); err != nil {
		return model.Balance{}, err
	}
	if b.Symbol == "" {
		b.Symbol = model.TokenSymbol
	}
	if err := Validate(b); err != nil {
		return model.Balance{}, err
	}
	return b, nil
}

func (h *HTTP) getJSON(ctx context.Context, path string, out any) error {
	body, err := h.breaker.Execute(func() (any, error) {
		return h.get(ctx, path)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: upstream unavailable: %w", ErrFetchFailure, err)
		}
		return err
	}
	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return fmt.Errorf("%w: failed to unmarshal %s: %w", ErrFetchFailure, path, err)
	}
	return nil
}

func (h *HTTP) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %w", ErrFetchFailure, err)
	}
	for key, value := range h.headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request failed: %w", ErrFetchFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: received non-200 status code %d from %s", ErrFetchFailure, resp.StatusCode, path)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrFetchFailure, err)
	}
	return body, nil
}
