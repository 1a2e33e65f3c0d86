package source

import (
	"context"
	"fmt"
	"time"

	"openair-backend/internal/mock"
	"openair-backend/internal/model"
)

// Mock serves generator data after an optional simulated latency.
type Mock struct {
	gen     *mock.Generator
	latency time.Duration
}

// NewMock wraps gen. latency emulates the round trip of a real upstream.
func NewMock(gen *mock.Generator, latency time.Duration) *Mock {
	return &Mock{gen: gen, latency: latency}
}

func (m *Mock) wait(ctx context.Context) error {
	if m.latency <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrFetchFailure, err)
		}
		return nil
	}
	t := time.NewTimer(m.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrFetchFailure, ctx.Err())
	case <-t.C:
		return nil
	}
}

// FetchReading implements Readings.
func (m *Mock) FetchReading(ctx context.Context) (model.Reading, error) {
	if err := m.wait(ctx); err != nil {
		return model.Reading{}, err
	}
	return m.gen.Reading(), nil
}

// FetchTransactions implements Transactions.
func (m *Mock) FetchTransactions(ctx context.Context, limit int) ([]model.Transaction, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	return m.gen.Transactions(limit), nil
}

// FetchBalance implements Balances.
func (m *Mock) FetchBalance(ctx context.Context, owner string) (model.Balance, error) {
	if err := m.wait(ctx); err != nil {
		return model.Balance{}, err
	}
	return m.gen.Balance(owner), nil
}
