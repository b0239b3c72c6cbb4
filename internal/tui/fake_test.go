package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/naveenspark/circlespay/internal/ledgerview"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/circles"
	"github.com/naveenspark/circlespay/pkg/domain"
	"github.com/naveenspark/circlespay/pkg/jsonrpc"
)

var (
	account = common.HexToAddress("0x1111111111111111111111111111111111111111")
	orgAddr = common.HexToAddress("0x3333333333333333333333333333333333333333")
	peer    = common.HexToAddress("0x4444444444444444444444444444444444444444")
	session = uuid.MustParse("6f1c2d3e-4a5b-4c6d-8e7f-901a2b3c4d5e")
	errBoom = errors.New("boom")
)

// fakeWallet records calls made by the tabs.
type fakeWallet struct {
	mu          sync.Mutex
	connects    int
	disconnects int
	restores    int
	orgs        []common.Address
	current     uuid.UUID
	updates     chan wallet.Session
	stopped     bool
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{updates: make(chan wallet.Session, 1), current: session}
}

func (w *fakeWallet) Connect(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.connects++
	return nil
}

func (w *fakeWallet) Disconnect() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disconnects++
}

func (w *fakeWallet) Restore(context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.restores++
}

func (w *fakeWallet) SetOrganisationAddress(addr common.Address) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.orgs = append(w.orgs, addr)
}

func (w *fakeWallet) SetSessionOrganisation(id uuid.UUID, addr common.Address) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id != w.current {
		return false
	}
	w.orgs = append(w.orgs, addr)
	return true
}

func (w *fakeWallet) endSession() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.current = uuid.Nil
}

func (w *fakeWallet) Subscribe() (<-chan wallet.Session, func()) {
	return w.updates, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.stopped = true
	}
}

func (w *fakeWallet) lastOrg() (common.Address, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.orgs) == 0 {
		return common.Address{}, false
	}
	return w.orgs[len(w.orgs)-1], true
}

// fakeLedger serves canned ledger data.
type fakeLedger struct {
	mu        sync.Mutex
	avatars   map[common.Address]bool
	history   []domain.Transaction
	relations []domain.TrustRelation
	histErr   error
	trustErr  error
	createErr error
	created   common.Address
	trusted   []common.Address
	untrusted []common.Address
	profiles  []domain.Profile
}

func (l *fakeLedger) GetAvatarInfo(_ context.Context, addr common.Address) (*domain.AvatarInfo, error) {
	if !l.avatars[addr] {
		return nil, circles.ErrAvatarNotFound
	}
	return &domain.AvatarInfo{Avatar: addr, Version: 2}, nil
}

func (l *fakeLedger) GetProfile(_ context.Context, addr common.Address) (*domain.Profile, error) {
	return nil, circles.ErrProfileNotFound
}

func (l *fakeLedger) TotalBalance(context.Context, common.Address) (string, error) {
	return "1.5", nil
}

func (l *fakeLedger) TotalBalanceV2(context.Context, common.Address) (string, error) {
	return "2.25", nil
}

func (l *fakeLedger) History(_ common.Address, pageSize int) ledgerview.Pager {
	return &fakePager{ledger: l, size: pageSize}
}

func (l *fakeLedger) AggregatedTrustRelations(context.Context, common.Address) ([]domain.TrustRelation, error) {
	return l.relations, l.trustErr
}

func (l *fakeLedger) Trust(_ context.Context, target common.Address) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trusted = append(l.trusted, target)
	return common.Hash{1}, l.trustErr
}

func (l *fakeLedger) Untrust(_ context.Context, target common.Address) (common.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.untrusted = append(l.untrusted, target)
	return common.Hash{2}, l.trustErr
}

func (l *fakeLedger) RegisterOrganization(_ context.Context, p domain.Profile) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.profiles = append(l.profiles, p)
	if l.createErr != nil {
		return common.Address{}, l.createErr
	}
	return l.created, nil
}

type fakePager struct {
	ledger *fakeLedger
	size   int
	offset int
	page   []domain.Transaction
}

func (p *fakePager) QueryNextPage(context.Context) (bool, error) {
	if p.ledger.histErr != nil {
		return false, p.ledger.histErr
	}
	all := p.ledger.history
	end := min(p.offset+p.size, len(all))
	p.page = all[p.offset:end]
	p.offset = end
	return end < len(all), nil
}

func (p *fakePager) CurrentPage() []domain.Transaction {
	return p.page
}

func connectedSession(org common.Address) wallet.Session {
	return wallet.Session{
		ID:                  session,
		Status:              wallet.StatusConnected,
		Address:             account,
		OrganisationAddress: org,
	}
}

func transfer(n int, from, to common.Address) domain.Transaction {
	return domain.Transaction{
		BlockNumber:     uint64(100 - n),
		Timestamp:       1700000000 - int64(n),
		Version:         2,
		From:            from,
		To:              to,
		Value:           new(big.Int).Mul(big.NewInt(int64(n+1)), big.NewInt(1e18)),
		TransactionHash: common.BigToHash(big.NewInt(int64(n + 1))),
	}
}

// stubProvider is a wallet that approves whichever account it is set to.
type stubProvider struct {
	mu      sync.Mutex
	account common.Address
}

func (p *stubProvider) setAccount(a common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.account = a
}

func (p *stubProvider) Request(_ context.Context, method string, _ []any, out any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if method == "eth_requestAccounts" {
		*out.(*[]string) = []string{p.account.Hex()}
	}
	return nil
}

func (p *stubProvider) Subscribe(func(wallet.Event)) func() { return func() {} }

func (p *stubProvider) Close() error { return nil }

func newStubManager(p *stubProvider) *wallet.Manager {
	return wallet.NewManager(wallet.Options{
		Locate: func(context.Context) (wallet.Provider, error) { return p, nil },
		NewClient: func(_ context.Context, wp wallet.Provider, acct common.Address) (*circles.Client, error) {
			return circles.New(circles.Config{}, circles.WithWallet(wp, acct)), nil
		},
	})
}

// key builds the KeyMsg bubbletea delivers for a key name.
func key(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// avatarExistsErr builds the wallet error for a hub revert with code 128.
func avatarExistsErr(t *testing.T) error {
	t.Helper()
	addrT, err := abi.NewType("address", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	u8T, err := abi.NewType("uint8", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	packed, err := abi.Arguments{{Type: addrT}, {Type: u8T}}.Pack(account, uint8(128))
	if err != nil {
		t.Fatal(err)
	}
	selector := crypto.Keccak256([]byte("CirclesErrorOneAddressArg(address,uint8)"))[:4]
	data := hexutil.Encode(append(selector, packed...))
	return &jsonrpc.Error{Code: 3, Message: "execution reverted", Data: json.RawMessage(fmt.Sprintf("%q", data))}
}
