package ledgerview

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/pkg/circles"
	"github.com/naveenspark/circlespay/pkg/domain"
)

var (
	org   = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

// fakeSource serves a fixed history and profile table.
type fakeSource struct {
	mu        sync.Mutex
	history   []domain.Transaction
	profiles  map[common.Address]string // missing = no avatar, "" = avatar without name
	lookups   map[common.Address]int
	pageSizes []int
	v1, v2    string
	balErr    error
	histErr   error
}

func (f *fakeSource) GetAvatarInfo(_ context.Context, addr common.Address) (*domain.AvatarInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookups == nil {
		f.lookups = make(map[common.Address]int)
	}
	f.lookups[addr]++
	if _, ok := f.profiles[addr]; !ok {
		return nil, circles.ErrAvatarNotFound
	}
	return &domain.AvatarInfo{Avatar: addr, Version: 2}, nil
}

func (f *fakeSource) GetProfile(_ context.Context, addr common.Address) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name, ok := f.profiles[addr]
	if !ok {
		return nil, circles.ErrProfileNotFound
	}
	return &domain.Profile{Name: name}, nil
}

func (f *fakeSource) TotalBalance(context.Context, common.Address) (string, error) {
	return f.v1, f.balErr
}

func (f *fakeSource) TotalBalanceV2(context.Context, common.Address) (string, error) {
	return f.v2, nil
}

func (f *fakeSource) History(_ common.Address, pageSize int) Pager {
	f.mu.Lock()
	f.pageSizes = append(f.pageSizes, pageSize)
	f.mu.Unlock()
	return &fakePager{src: f, size: pageSize}
}

func (f *fakeSource) lookupCount(addr common.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[addr]
}

type fakePager struct {
	src    *fakeSource
	size   int
	offset int
	page   []domain.Transaction
}

func (p *fakePager) QueryNextPage(context.Context) (bool, error) {
	if p.src.histErr != nil {
		return false, p.src.histErr
	}
	all := p.src.history
	end := min(p.offset+p.size, len(all))
	p.page = all[p.offset:end]
	p.offset = end
	return end < len(all), nil
}

func (p *fakePager) CurrentPage() []domain.Transaction {
	return p.page
}

func tx(n int, from, to common.Address, wei string) domain.Transaction {
	v, _ := new(big.Int).SetString(wei, 10)
	return domain.Transaction{
		BlockNumber:     uint64(1000 - n),
		Timestamp:       1700000000 + int64(n),
		Version:         2,
		From:            from,
		To:              to,
		Value:           v,
		TransactionHash: common.BigToHash(big.NewInt(int64(n + 1))),
	}
}

var errBoom = errors.New("boom")
