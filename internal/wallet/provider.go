package wallet

import "context"

// Provider is an EIP-1193 wallet provider.
type Provider interface {
	// Request sends a JSON-RPC request and decodes the result into out.
	Request(ctx context.Context, method string, params []any, out any) error
	// Subscribe registers fn for provider events until the returned func is called.
	Subscribe(fn func(Event)) (unsubscribe func())
	// Close releases the transport.
	Close() error
}

// Locator finds the wallet provider. It fails with ErrNoProvider when none is reachable.
type Locator func(ctx context.Context) (Provider, error)

// EventKind identifies a provider notification.
type EventKind int

const (
	EventAccountsChanged EventKind = iota + 1
	EventChainChanged
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventAccountsChanged:
		return "accountsChanged"
	case EventChainChanged:
		return "chainChanged"
	case EventDisconnect:
		return "disconnect"
	}
	return "unknown"
}

// Event is a provider notification.
type Event struct {
	Kind     EventKind
	Accounts []string // EventAccountsChanged
	ChainID  string   // EventChainChanged, hex
	Err      error    // EventDisconnect, optional cause
}
