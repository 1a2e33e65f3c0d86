package store

import (
	"context"

	"openair-backend/internal/access"
)

// Flags adapts a Store to the access gate's flag backend.
type Flags struct {
	store Store
}

// NewFlags wraps s.
func NewFlags(s Store) *Flags {
	return &Flags{store: s}
}

// ForClient implements access.FlagBackend.
func (f *Flags) ForClient(clientID string) access.FlagStore {
	return clientFlags{store: f.store, clientID: clientID}
}

type clientFlags struct {
	store    Store
	clientID string
}

func (c clientFlags) Get(ctx context.Context, key string) (string, bool, error) {
	return c.store.GetFlag(ctx, c.clientID, key)
}

func (c clientFlags) Set(ctx context.Context, key, value string) error {
	return c.store.SetFlag(ctx, c.clientID, key, value)
}

func (c clientFlags) Delete(ctx context.Context, key string) error {
	return c.store.DeleteFlag(ctx, c.clientID, key)
}
