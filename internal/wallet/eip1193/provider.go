// Package eip1193 talks to a wallet that exposes an EIP-1193 provider over a
// local WebSocket, as desktop wallets like Frame do.
package eip1193

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/naveenspark/circlespay/internal/logging"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/jsonrpc"
)

// DefaultURL is where Frame listens.
const DefaultURL = "ws://127.0.0.1:1248"

const (
	handshakeTimeout = 5 * time.Second
	writeTimeout     = 10 * time.Second
)

// ErrClosed is returned by requests on a closed provider.
var ErrClosed = errors.New("eip1193: provider closed")

// Provider is a wallet.Provider backed by a WebSocket connection.
type Provider struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	mu          sync.Mutex
	nextID      uint64
	pending     map[uint64]chan *jsonrpc.Response
	handlers    map[uint64]func(wallet.Event)
	nextHandler uint64
	subs        map[string]wallet.EventKind
	closed      bool
	done        chan struct{}
}

// Dial connects to the wallet at url and subscribes to account and chain
// changes. A connection failure wraps wallet.ErrNoProvider.
func Dial(ctx context.Context, url string, logger *zap.Logger) (*Provider, error) {
	logger = logging.OrNop(logger)
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", wallet.ErrNoProvider, url, err)
	}

	p := &Provider{
		conn:     conn,
		logger:   logger,
		pending:  make(map[uint64]chan *jsonrpc.Response),
		handlers: make(map[uint64]func(wallet.Event)),
		subs:     make(map[string]wallet.EventKind),
		done:     make(chan struct{}),
	}
	go p.readLoop()

	for _, sub := range []struct {
		name string
		kind wallet.EventKind
	}{
		{"accountsChanged", wallet.EventAccountsChanged},
		{"chainChanged", wallet.EventChainChanged},
	} {
		var id string
		if err := p.Request(ctx, "eth_subscribe", []any{sub.name}, &id); err != nil {
			// Some wallets only push bare notifications; those still reach dispatch.
			logger.Debug("eth_subscribe unsupported", zap.String("event", sub.name), zap.Error(err))
			continue
		}
		p.mu.Lock()
		p.subs[id] = sub.kind
		p.mu.Unlock()
	}
	return p, nil
}

// Locator returns a wallet.Locator that dials url on every connect.
func Locator(url string, logger *zap.Logger) wallet.Locator {
	return func(ctx context.Context) (wallet.Provider, error) {
		p, err := Dial(ctx, url, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Request sends a JSON-RPC request and waits for its response. Wallet errors
// are returned as *jsonrpc.Error.
func (p *Provider) Request(ctx context.Context, method string, params []any, out any) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("eip1193.Request %s: %w", method, ErrClosed)
	}
	p.nextID++
	id := p.nextID
	ch := make(chan *jsonrpc.Response, 1)
	p.pending[id] = ch
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		delete(p.pending, id)
		p.mu.Unlock()
	}()

	if err := p.write(jsonrpc.NewRequest(id, method, params)); err != nil {
		return fmt.Errorf("eip1193.Request %s: %w", method, err)
	}

	select {
	case resp := <-ch:
		if err := resp.Decode(out); err != nil {
			return fmt.Errorf("eip1193.Request %s: %w", method, err)
		}
		return nil
	case <-p.done:
		return fmt.Errorf("eip1193.Request %s: %w", method, ErrClosed)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn for provider events. fn runs on the read goroutine
// and must not call Request synchronously.
func (p *Provider) Subscribe(fn func(wallet.Event)) func() {
	p.mu.Lock()
	p.nextHandler++
	id := p.nextHandler
	p.handlers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// Close shuts the connection. No disconnect event is emitted for a local close.
func (p *Provider) Close() error {
	if !p.markClosed() {
		return nil
	}
	bye := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	p.writeMu.Lock()
	p.conn.SetWriteDeadline(time.Now().Add(time.Second)) //nolint:errcheck
	p.conn.WriteMessage(websocket.CloseMessage, bye)     //nolint:errcheck
	p.writeMu.Unlock()
	return p.conn.Close()
}

func (p *Provider) write(req jsonrpc.Request) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	return p.conn.WriteJSON(req)
}

// markClosed flips the closed flag once and reports whether this call did it.
func (p *Provider) markClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.closed = true
	close(p.done)
	return true
}

func (p *Provider) readLoop() {
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if p.markClosed() {
				p.logger.Info("wallet provider went away", zap.Error(err))
				p.conn.Close() //nolint:errcheck
				p.emit(wallet.Event{Kind: wallet.EventDisconnect, Err: err})
			}
			return
		}

		var msg jsonrpc.Response
		if err := json.Unmarshal(data, &msg); err != nil {
			p.logger.Debug("skipping malformed provider message", zap.Error(err))
			continue
		}
		if msg.IsNotification() {
			if ev, ok := p.decodeEvent(&msg); ok {
				p.emit(ev)
			}
			continue
		}

		p.mu.Lock()
		ch, ok := p.pending[msg.ID]
		p.mu.Unlock()
		if ok {
			select {
			case ch <- &msg:
			default:
			}
		}
	}
}

// emit calls the handlers outside the lock so they may unsubscribe or Close.
func (p *Provider) emit(ev wallet.Event) {
	p.mu.Lock()
	hs := make([]func(wallet.Event), 0, len(p.handlers))
	for _, h := range p.handlers {
		hs = append(hs, h)
	}
	p.mu.Unlock()

	for _, h := range hs {
		h(ev)
	}
}

func (p *Provider) decodeEvent(msg *jsonrpc.Response) (wallet.Event, bool) {
	switch msg.Method {
	case "eth_subscription":
		var params struct {
			Subscription string          `json:"subscription"`
			Result       json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return wallet.Event{}, false
		}
		p.mu.Lock()
		kind, ok := p.subs[params.Subscription]
		p.mu.Unlock()
		if !ok {
			return wallet.Event{}, false
		}
		return eventFrom(kind, params.Result)
	case "accountsChanged":
		return eventFrom(wallet.EventAccountsChanged, msg.Params)
	case "chainChanged":
		return eventFrom(wallet.EventChainChanged, msg.Params)
	case "disconnect":
		return wallet.Event{Kind: wallet.EventDisconnect}, true
	}
	return wallet.Event{}, false
}

func eventFrom(kind wallet.EventKind, raw json.RawMessage) (wallet.Event, bool) {
	ev := wallet.Event{Kind: kind}
	switch kind {
	case wallet.EventAccountsChanged:
		if err := json.Unmarshal(raw, &ev.Accounts); err != nil {
			var nested [][]string
			if err := json.Unmarshal(raw, &nested); err != nil || len(nested) == 0 {
				return ev, false
			}
			ev.Accounts = nested[0]
		}
	case wallet.EventChainChanged:
		if err := json.Unmarshal(raw, &ev.ChainID); err != nil {
			var wrapped []string
			if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped) == 0 {
				return ev, false
			}
			ev.ChainID = wrapped[0]
		}
	}
	return ev, true
}
