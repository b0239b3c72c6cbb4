package wallet

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/naveenspark/circlespay/internal/logging"
	"github.com/naveenspark/circlespay/pkg/circles"
	"github.com/naveenspark/circlespay/pkg/jsonrpc"
)

// ClientFactory builds the ledger client for an approved account.
type ClientFactory func(ctx context.Context, p Provider, account common.Address) (*circles.Client, error)

// NewClientFactory returns a ClientFactory that confirms the wallet reports
// chain before binding a circles client to it.
func NewClientFactory(cfg circles.Config, chain Chain, opts ...circles.Option) ClientFactory {
	return func(ctx context.Context, p Provider, account common.Address) (*circles.Client, error) {
		var id string
		if err := p.Request(ctx, "eth_chainId", nil, &id); err != nil {
			return nil, fmt.Errorf("read chain id: %w", err)
		}
		if !chain.Matches(id) {
			return nil, fmt.Errorf("wallet is on chain %s, want %s", id, chain.ID)
		}
		all := append([]circles.Option{circles.WithWallet(p, account)}, opts...)
		return circles.New(cfg, all...), nil
	}
}

// Options configures a Manager.
type Options struct {
	Locate    Locator
	Chain     Chain
	Marker    MarkerStore
	NewClient ClientFactory
	Logger    *zap.Logger
}

// Manager owns the wallet session. It is safe for concurrent use.
type Manager struct {
	locate    Locator
	chain     Chain
	marker    MarkerStore
	newClient ClientFactory
	logger    *zap.Logger

	mu          sync.Mutex
	status      Status
	id          uuid.UUID
	address     common.Address
	org         common.Address
	err         error
	client      *circles.Client
	provider    Provider
	unsubscribe func()
	gen         uint64
	subs        map[chan Session]struct{}
}

// NewManager creates an idle Manager. Zero-valued options fall back to Gnosis,
// an in-memory marker and a no-op logger.
func NewManager(opts Options) *Manager {
	m := &Manager{
		locate:    opts.Locate,
		chain:     opts.Chain,
		marker:    opts.Marker,
		newClient: opts.NewClient,
		logger:    logging.OrNop(opts.Logger),
		status:    StatusIdle,
		subs:      make(map[chan Session]struct{}),
	}
	if m.chain.ID == "" {
		m.chain = Gnosis()
	}
	if m.marker == nil {
		m.marker = &MemoryMarker{}
	}
	if m.newClient == nil {
		m.newClient = NewClientFactory(circles.Config{}, m.chain)
	}
	return m
}

// Snapshot returns the current session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Subscribe returns a channel that always holds the latest session, starting
// with the current one. Call cancel to stop receiving.
func (m *Manager) Subscribe() (<-chan Session, func()) {
	ch := make(chan Session, 1)
	m.mu.Lock()
	m.subs[ch] = struct{}{}
	ch <- m.snapshotLocked()
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
		})
	}
}

// Connect establishes a session. It returns nil immediately when a session is
// already connecting or connected. Failures move the manager to StatusError and
// are returned as *ConnectError.
func (m *Manager) Connect(ctx context.Context) error {
	return m.connect(ctx, false)
}

// Restore reconnects on startup when the marker says the user was connected.
// A failure leaves the manager idle without an error.
func (m *Manager) Restore(ctx context.Context) {
	if !m.marker.Connected() {
		return
	}
	m.logger.Debug("restoring wallet session")
	if err := m.connect(ctx, true); err != nil {
		m.logger.Info("silent reconnect failed", zap.Error(err))
	}
}

// Disconnect ends the session. It always succeeds.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnectLocked("user")
}

// SetOrganisationAddress sets the organisation identity. The zero address clears it.
func (m *Manager) SetOrganisationAddress(addr common.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.org = addr
	m.publishLocked()
}

// SetSessionOrganisation sets the organisation only while the session with the
// given ID is still connected. It reports whether the address was stored.
func (m *Manager) SetSessionOrganisation(id uuid.UUID, addr common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusConnected || id == uuid.Nil || id != m.id {
		m.logger.Debug("dropping organisation for ended session",
			zap.Stringer("session", id),
			zap.String("organisation", addr.Hex()),
		)
		return false
	}
	m.org = addr
	m.publishLocked()
	return true
}

// Close releases the provider connection and leaves the marker in place so the
// next start can restore the session.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.resetLocked()
	m.status = StatusIdle
	m.err = nil
	m.publishLocked()
	return err
}

// HandleMarkerRemoved ends a connected session whose marker was removed by
// another process.
func (m *Manager) HandleMarkerRemoved() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status != StatusConnected {
		return
	}
	m.disconnectLocked("marker removed")
}

func (m *Manager) connect(ctx context.Context, silent bool) error {
	m.mu.Lock()
	if m.status == StatusConnecting || m.status == StatusConnected {
		m.mu.Unlock()
		return nil
	}
	m.status = StatusConnecting
	m.err = nil
	m.publishLocked()
	m.mu.Unlock()

	p, addr, client, cerr := m.establish(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if cerr != nil {
		if p != nil {
			p.Close() //nolint:errcheck
		}
		m.clearLocked()
		if silent {
			m.status = StatusIdle
		} else {
			m.status = StatusError
			m.err = cerr
		}
		m.logger.Warn("wallet connect failed",
			zap.Stringer("kind", cerr.Kind),
			zap.Bool("silent", silent),
			zap.Error(cerr.Err),
		)
		m.publishLocked()
		return cerr
	}

	// A connect that raced a disconnect can find another attempt's provider here.
	m.resetLocked() //nolint:errcheck
	m.status = StatusConnected
	m.id = uuid.New()
	m.address = addr
	m.client = client
	m.provider = p
	if err := m.marker.MarkConnected(); err != nil {
		m.logger.Warn("persist session marker", zap.Error(err))
	}
	m.watchLocked(p)
	m.logger.Info("wallet connected",
		zap.Stringer("session", m.id),
		zap.String("address", addr.Hex()),
	)
	m.publishLocked()
	return nil
}

// establish runs the provider handshake without holding the lock. On failure
// the returned provider, if any, still needs closing.
func (m *Manager) establish(ctx context.Context) (Provider, common.Address, *circles.Client, *ConnectError) {
	var zero common.Address
	if m.locate == nil {
		return nil, zero, nil, &ConnectError{Kind: KindProviderAbsent, Err: ErrNoProvider}
	}
	p, err := m.locate(ctx)
	if err != nil {
		return nil, zero, nil, &ConnectError{Kind: KindProviderAbsent, Err: err}
	}

	var accounts []string
	if err := p.Request(ctx, "eth_requestAccounts", nil, &accounts); err != nil {
		return p, zero, nil, stepError("request accounts", err)
	}
	if len(accounts) == 0 || !common.IsHexAddress(accounts[0]) {
		return p, zero, nil, &ConnectError{Kind: KindUserRejected, Err: ErrRejected}
	}
	addr := common.HexToAddress(accounts[0])

	if cerr := m.ensureChain(ctx, p); cerr != nil {
		return p, zero, nil, cerr
	}

	client, err := m.newClient(ctx, p, addr)
	if err != nil {
		return p, zero, nil, &ConnectError{Kind: KindUnexpected, Err: fmt.Errorf("build client: %w", err)}
	}
	return p, addr, client, nil
}

// ensureChain switches the wallet to the target chain, registering the chain
// first when the wallet does not know it.
func (m *Manager) ensureChain(ctx context.Context, p Provider) *ConnectError {
	switchParams := []any{map[string]string{"chainId": m.chain.ID}}
	err := p.Request(ctx, "wallet_switchEthereumChain", switchParams, nil)
	if err == nil {
		return nil
	}
	if !jsonrpc.IsCode(err, jsonrpc.CodeUnrecognizedChain) {
		return stepError("switch network", err)
	}

	m.logger.Info("registering network with wallet", zap.String("chain", m.chain.Name))
	if err := p.Request(ctx, "wallet_addEthereumChain", []any{m.chain.AddParams()}, nil); err != nil {
		return &ConnectError{
			Kind: KindNetworkRegistrationFailed,
			Err:  fmt.Errorf("add network %s: %w", m.chain.Name, err),
		}
	}
	if err := p.Request(ctx, "wallet_switchEthereumChain", switchParams, nil); err != nil {
		return stepError("switch network", err)
	}
	return nil
}

func (m *Manager) watchLocked(p Provider) {
	m.gen++
	gen := m.gen
	m.unsubscribe = p.Subscribe(func(ev Event) {
		m.handleEvent(gen, ev)
	})
}

func (m *Manager) handleEvent(gen uint64, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.status != StatusConnected {
		return
	}

	switch ev.Kind {
	case EventAccountsChanged:
		if len(ev.Accounts) > 0 && common.IsHexAddress(ev.Accounts[0]) &&
			common.HexToAddress(ev.Accounts[0]) == m.address {
			return
		}
	case EventChainChanged:
		if m.chain.Matches(ev.ChainID) {
			return
		}
	case EventDisconnect:
	default:
		return
	}
	m.disconnectLocked(ev.Kind.String())
}

func (m *Manager) disconnectLocked(reason string) {
	if m.status == StatusConnected {
		m.logger.Info("wallet disconnected",
			zap.Stringer("session", m.id),
			zap.String("reason", reason),
		)
	}
	m.clearLocked()
	m.status = StatusIdle
	m.err = nil
	m.publishLocked()
}

// clearLocked drops everything tied to the session, including the organisation
// and the marker.
func (m *Manager) clearLocked() {
	m.resetLocked() //nolint:errcheck
	if err := m.marker.Clear(); err != nil {
		m.logger.Warn("clear session marker", zap.Error(err))
	}
}

// resetLocked closes the provider, invalidates its event handlers and zeroes
// the session fields. The marker is left alone.
func (m *Manager) resetLocked() error {
	m.gen++
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	var err error
	if m.provider != nil {
		err = m.provider.Close()
		m.provider = nil
	}
	m.id = uuid.Nil
	m.address = common.Address{}
	m.org = common.Address{}
	m.client = nil
	return err
}

func (m *Manager) snapshotLocked() Session {
	return Session{
		ID:                  m.id,
		Status:              m.status,
		Address:             m.address,
		OrganisationAddress: m.org,
		Err:                 m.err,
		Client:              m.client,
	}
}

// publishLocked hands the latest session to every subscriber, replacing any
// value it has not read yet.
func (m *Manager) publishLocked() {
	s := m.snapshotLocked()
	for ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}
