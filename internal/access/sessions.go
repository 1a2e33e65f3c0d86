package access

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Sessions keeps one Gate per client id. An idle session expires after ttl;
// the next request rebuilds it from the flag backend, the same as a page reload.
type Sessions struct {
	backend FlagBackend
	gates   *cache.Cache
	logger  *zap.Logger

	mu sync.Mutex
}

// NewSessions creates a session registry.
func NewSessions(backend FlagBackend, ttl time.Duration, logger *zap.Logger) *Sessions {
	return &Sessions{
		backend: backend,
		gates:   cache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

// Get returns the client's gate, opening it from persisted flags if needed.
// A gate whose flags could not be read is returned gated and not kept.
// Every access extends the session.
func (s *Sessions) Get(ctx context.Context, clientID string) *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.gates.Get(clientID); ok {
		g := v.(*Gate)
		s.gates.Set(clientID, g, cache.DefaultExpiration)
		return g
	}

	g, err := Open(ctx, s.backend.ForClient(clientID))
	if err != nil {
		// Not cached: the next request retries the flag read.
		s.logger.Warn("failed to restore session, serving it gated",
			zap.String("client_id", clientID), zap.Error(err))
		return g
	}
	s.gates.Set(clientID, g, cache.DefaultExpiration)
	return g
}

// Forget drops the in-memory session. Persisted flags are kept.
func (s *Sessions) Forget(clientID string) {
	s.gates.Delete(clientID)
}

// ConnectedWallets lists the distinct wallets of live sessions, sorted.
func (s *Sessions) ConnectedWallets() []string {
	seen := make(map[string]struct{})
	for _, item := range s.gates.Items() {
		if w := item.Object.(*Gate).Wallet(); w != "" {
			seen[w] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for w := range seen {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
