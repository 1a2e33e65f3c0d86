package access

// State is the access level of a dashboard client.
type State string

const (
	// StateGated clients see only the landing screen.
	StateGated State = "gated"
	// StateDemo clients see mock data behind a demo banner.
	StateDemo State = "demo"
	// StateConnected clients have a wallet attached.
	StateConnected State = "connected"
)

// View is what the presentation layer needs to render a client.
type View struct {
	State          State  `json:"state"`
	ShowDemoBanner bool   `json:"showDemoBanner"`
	CanView        bool   `json:"canView"`
	Wallet         string `json:"wallet,omitempty"`
}
