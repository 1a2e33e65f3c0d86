package source

import (
	"context"
	"errors"

	"openair-backend/internal/model"
)

// ErrFetchFailure wraps every error a data source returns.
var ErrFetchFailure = errors.New("fetch failure")

// Readings fetches the current air-quality snapshot.
type Readings interface {
	FetchReading(ctx context.Context) (model.Reading, error)
}

// Transactions lists recorded sensor transactions, newest first. The result has
// min(limit, available) entries.
type Transactions interface {
	FetchTransactions(ctx context.Context, limit int) ([]model.Transaction, error)
}

// Balances looks up a wallet's token balance.
type Balances interface {
	FetchBalance(ctx context.Context, owner string) (model.Balance, error)
}

// Source bundles all three fetch interfaces.
type Source interface {
	Readings
	Transactions
	Balances
}
