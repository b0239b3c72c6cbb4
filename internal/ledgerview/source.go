// Package ledgerview shapes ledger data for display: transaction pages with
// resolved names, combined balances, CSV export and change polling.
package ledgerview

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/pkg/circles"
	"github.com/naveenspark/circlespay/pkg/domain"
)

// Pager walks a transaction history newest first.
type Pager interface {
	QueryNextPage(ctx context.Context) (bool, error)
	CurrentPage() []domain.Transaction
}

// Source is the part of the ledger client the views read from.
type Source interface {
	GetAvatarInfo(ctx context.Context, addr common.Address) (*domain.AvatarInfo, error)
	GetProfile(ctx context.Context, addr common.Address) (*domain.Profile, error)
	TotalBalance(ctx context.Context, addr common.Address) (string, error)
	TotalBalanceV2(ctx context.Context, addr common.Address) (string, error)
	History(avatar common.Address, pageSize int) Pager
}

type clientSource struct {
	*circles.Client
}

func (s clientSource) History(avatar common.Address, pageSize int) Pager {
	return s.TransactionHistory(avatar, pageSize)
}

// FromClient adapts a circles client.
func FromClient(c *circles.Client) Source {
	return clientSource{c}
}
