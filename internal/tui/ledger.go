package tui

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/naveenspark/circlespay/internal/ledgerview"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/circles"
	"github.com/naveenspark/circlespay/pkg/domain"
)

// Wallet is the session manager as the UI sees it.
type Wallet interface {
	Connect(ctx context.Context) error
	Disconnect()
	Restore(ctx context.Context)
	SetOrganisationAddress(addr common.Address)
	SetSessionOrganisation(id uuid.UUID, addr common.Address) bool
	Subscribe() (<-chan wallet.Session, func())
}

// Ledger is everything the tabs read from or submit to the network.
type Ledger interface {
	ledgerview.Source
	AggregatedTrustRelations(ctx context.Context, addr common.Address) ([]domain.TrustRelation, error)
	Trust(ctx context.Context, target common.Address) (common.Hash, error)
	Untrust(ctx context.Context, target common.Address) (common.Hash, error)
	RegisterOrganization(ctx context.Context, profile domain.Profile) (common.Address, error)
}

type clientLedger struct {
	*circles.Client
}

func (l clientLedger) History(avatar common.Address, pageSize int) ledgerview.Pager {
	return l.TransactionHistory(avatar, pageSize)
}

// SessionLedger returns the ledger of a connected session, or nil.
func SessionLedger(s wallet.Session) Ledger {
	if s.Client == nil {
		return nil
	}
	return clientLedger{s.Client}
}
