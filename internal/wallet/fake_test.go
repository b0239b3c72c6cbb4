package wallet

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/pkg/circles"
	"github.com/naveenspark/circlespay/pkg/jsonrpc"
)

var (
	testAccount = common.HexToAddress("0x1111111111111111111111111111111111111111")
	otherAcct   = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testOrg     = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

// fakeProvider scripts wallet behaviour per method and records what was asked.
type fakeProvider struct {
	mu         sync.Mutex
	calls      []string
	params     map[string][]any
	accounts   []string
	accountErr error
	switchErrs []error // consumed one per switch call
	addErr     error
	chainID    string
	gate       chan struct{} // eth_requestAccounts waits on it when set
	entered    chan struct{} // signalled when eth_requestAccounts starts

	handlers  map[int]func(Event)
	installed []func(Event)
	nextID    int
	closed    int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: []string{testAccount.Hex()},
		chainID:  "0x64",
		params:   make(map[string][]any),
		handlers: make(map[int]func(Event)),
	}
}

func (f *fakeProvider) Request(ctx context.Context, method string, params []any, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, method)
	f.params[method] = params
	gate, entered := f.gate, f.entered
	f.mu.Unlock()

	var result any
	switch method {
	case "eth_requestAccounts":
		if entered != nil {
			entered <- struct{}{}
		}
		if gate != nil {
			select {
			case <-gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		f.mu.Lock()
		err, accounts := f.accountErr, f.accounts
		f.mu.Unlock()
		if err != nil {
			return err
		}
		result = accounts
	case "wallet_switchEthereumChain":
		f.mu.Lock()
		var err error
		if len(f.switchErrs) > 0 {
			err, f.switchErrs = f.switchErrs[0], f.switchErrs[1:]
		}
		f.mu.Unlock()
		if err != nil {
			return err
		}
	case "wallet_addEthereumChain":
		f.mu.Lock()
		err := f.addErr
		f.mu.Unlock()
		if err != nil {
			return err
		}
	case "eth_chainId":
		result = f.chainID
	}
	if out == nil || result == nil {
		return nil
	}
	data, _ := json.Marshal(result)
	return json.Unmarshal(data, out)
}

func (f *fakeProvider) Subscribe(fn func(Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.handlers[id] = fn
	f.installed = append(f.installed, fn)
	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

func (f *fakeProvider) Close() error {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
	return nil
}

// emit delivers ev to the live handlers, outside the lock like a real transport.
func (f *fakeProvider) emit(ev Event) {
	f.mu.Lock()
	hs := make([]func(Event), 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(ev)
	}
}

func (f *fakeProvider) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == method {
			n++
		}
	}
	return n
}

func (f *fakeProvider) liveHandlers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

func rpcErr(code int) error {
	return &jsonrpc.Error{Code: code, Message: "scripted"}
}

func testClientFactory(ctx context.Context, p Provider, account common.Address) (*circles.Client, error) {
	return circles.New(circles.Config{}, circles.WithWallet(p, account)), nil
}

func newTestManager(p *fakeProvider, marker MarkerStore) *Manager {
	return NewManager(Options{
		Locate:    func(context.Context) (Provider, error) { return p, nil },
		Marker:    marker,
		NewClient: testClientFactory,
	})
}
