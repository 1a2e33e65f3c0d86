package source

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"openair-backend/config"
	"openair-backend/internal/metrics"
	"openair-backend/internal/mock"
	"openair-backend/internal/model"
)

const (
	keyReading      = "reading"
	keyTransactions = "transactions"
	keyBalance      = "balance:"
)

// Policies assigns a fallback policy to each kind of fetch.
type Policies struct {
	Readings     config.FallbackPolicy
	Transactions config.FallbackPolicy
	Balances     config.FallbackPolicy
}

// PoliciesFrom reads the policies out of the source configuration.
func PoliciesFrom(cfg config.SourceConfig) Policies {
	return Policies{Readings: cfg.Readings, Transactions: cfg.Transactions, Balances: cfg.Balances}
}

// Fallback decorates a Source so a failed fetch is replaced according to policy
// instead of reaching the caller. Successful values are remembered as last known good.
type Fallback struct {
	next     Source
	policies Policies
	gen      *mock.Generator
	lkg      *cache.Cache
	logger   *zap.Logger
	metrics  *metrics.Collector

	txMu sync.Mutex
}

// NewFallback wraps next. gen supplies the fixed defaults. m may be nil.
func NewFallback(next Source, policies Policies, gen *mock.Generator, logger *zap.Logger, m *metrics.Collector) *Fallback {
	return &Fallback{
		next:     next,
		policies: policies,
		gen:      gen,
		lkg:      cache.New(cache.NoExpiration, 0),
		logger:   logger,
		metrics:  m,
	}
}

// FetchReading implements Readings.
func (f *Fallback) FetchReading(ctx context.Context) (model.Reading, error) {
	r, _, err := f.Reading(ctx)
	return r, err
}

// Reading fetches the current reading and reports whether a fallback was served.
func (f *Fallback) Reading(ctx context.Context) (model.Reading, bool, error) {
	r, err := f.next.FetchReading(ctx)
	f.observe("readings", err)
	if err == nil {
		f.lkg.Set(keyReading, r, cache.NoExpiration)
		return r, false, nil
	}

	switch f.substitute("readings", f.policies.Readings, err) {
	case config.FallbackLastKnownGood:
		if v, ok := f.lkg.Get(keyReading); ok {
			return v.(model.Reading), true, nil
		}
		return f.gen.Reading(), true, nil
	case config.FallbackFixedDefault:
		return f.gen.Reading(), true, nil
	}
	return model.Reading{}, false, wrap(err)
}

// FetchTransactions implements Transactions.
func (f *Fallback) FetchTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	txs, err := f.next.FetchTransactions(ctx, limit)
	f.observe("transactions", err)
	if err == nil {
		f.rememberTransactions(txs)
		return txs, nil
	}

	switch f.substitute("transactions", f.policies.Transactions, err) {
	case config.FallbackLastKnownGood:
		if v, ok := f.lkg.Get(keyTransactions); ok {
			return truncate(v.([]model.Transaction), limit), nil
		}
		return f.gen.Transactions(min(limit, 1)), nil
	case config.FallbackFixedDefault:
		return f.gen.Transactions(min(limit, 1)), nil
	}
	return nil, wrap(err)
}

// FetchBalance implements Balances.
func (f *Fallback) FetchBalance(ctx context.Context, owner string) (model.Balance, error) {
	b, err := f.next.FetchBalance(ctx, owner)
	f.observe("balances", err)
	if err == nil {
		f.lkg.Set(keyBalance+owner, b, cache.NoExpiration)
		return b, nil
	}

	switch f.substitute("balances", f.policies.Balances, err) {
	case config.FallbackLastKnownGood:
		if v, ok := f.lkg.Get(keyBalance + owner); ok {
			b := v.(model.Balance)
			b.Fallback = true
			return b, nil
		}
		return fixedBalance(owner), nil
	case config.FallbackFixedDefault:
		return fixedBalance(owner), nil
	}
	return model.Balance{}, wrap(err)
}

// rememberTransactions keeps the largest known-good set so a small request
// never shrinks what a later outage can serve.
func (f *Fallback) rememberTransactions(txs []model.Transaction) {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	if v, ok := f.lkg.Get(keyTransactions); ok && len(v.([]model.Transaction)) > len(txs) {
		return
	}
	f.lkg.Set(keyTransactions, txs, cache.NoExpiration)
}

func (f *Fallback) observe(src string, err error) {
	if f.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	f.metrics.Fetches.WithLabelValues(src, outcome).Inc()
}

// substitute logs the failure and returns the policy that applies.
func (f *Fallback) substitute(src string, policy config.FallbackPolicy, err error) config.FallbackPolicy {
	if policy == config.FallbackPropagateError {
		f.logger.Warn("fetch failed", zap.String("source", src), zap.Error(err))
		return policy
	}
	f.logger.Warn("fetch failed, serving fallback value",
		zap.String("source", src), zap.String("policy", string(policy)), zap.Error(err))
	if f.metrics != nil {
		f.metrics.Fallbacks.WithLabelValues(src, string(policy)).Inc()
	}
	return policy
}

func fixedBalance(owner string) model.Balance {
	return model.Balance{Owner: owner, Amount: mock.FallbackBalance, Symbol: model.TokenSymbol, Fallback: true}
}

func truncate(txs []model.Transaction, limit int) []model.Transaction {
	if limit <= 0 {
		return []model.Transaction{}
	}
	if limit > len(txs) {
		limit = len(txs)
	}
	out := make([]model.Transaction, limit)
	copy(out, txs[:limit])
	return out
}

func wrap(err error) error {
	if errors.Is(err, ErrFetchFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFetchFailure, err)
}
