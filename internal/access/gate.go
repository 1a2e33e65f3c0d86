package access

import (
	"context"
	"fmt"
	"sync"
)

// Gate decides what a single client may see. Demo mode is persisted through the
// FlagStore; the wallet connection is driven by wallet events and is not.
type Gate struct {
	flags FlagStore

	mu        sync.RWMutex
	demo      bool
	connected bool
	wallet    string
}

// Open restores a gate from the persisted demo flag. On a read error the gate
// is still returned, in the gated state, together with the error.
func Open(ctx context.Context, flags FlagStore) (*Gate, error) {
	g := &Gate{flags: flags}
	v, ok, err := flags.Get(ctx, DemoModeKey)
	if err != nil {
		return g, fmt.Errorf("failed to read %s flag: %w", DemoModeKey, err)
	}
	g.demo = ok && v == demoModeValue
	return g, nil
}

// EnterDemo persists the demo flag and unlocks the dashboard.
func (g *Gate) EnterDemo(ctx context.Context) error {
	if err := g.flags.Set(ctx, DemoModeKey, demoModeValue); err != nil {
		return fmt.Errorf("failed to persist demo mode: %w", err)
	}
	g.mu.Lock()
	g.demo = true
	g.mu.Unlock()
	return nil
}

// ExitDemo clears the demo flag.
func (g *Gate) ExitDemo(ctx context.Context) error {
	if err := g.flags.Delete(ctx, DemoModeKey); err != nil {
		return fmt.Errorf("failed to clear demo mode: %w", err)
	}
	g.mu.Lock()
	g.demo = false
	g.mu.Unlock()
	return nil
}

// ConnectWallet records a wallet-connected event.
func (g *Gate) ConnectWallet(publicKey string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = true
	g.wallet = publicKey
}

// DisconnectWallet records a wallet-disconnected event.
func (g *Gate) DisconnectWallet() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connected = false
	g.wallet = ""
}

// State resolves the access level. A connected wallet wins over demo mode.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stateLocked()
}

func (g *Gate) stateLocked() State {
	switch {
	case g.connected:
		return StateConnected
	case g.demo:
		return StateDemo
	default:
		return StateGated
	}
}

// ShowDemoBanner is true only for demo sessions without a wallet.
func (g *Gate) ShowDemoBanner() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.demo && !g.connected
}

// CanView reports whether dashboard data may be served.
func (g *Gate) CanView() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.demo || g.connected
}

// Wallet returns the connected public key, or "".
func (g *Gate) Wallet() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.wallet
}

// View returns a consistent snapshot of the gate.
func (g *Gate) View() View {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return View{
		State:          g.stateLocked(),
		ShowDemoBanner: g.demo && !g.connected,
		CanView:        g.demo || g.connected,
		Wallet:         g.wallet,
	}
}
