package wallet

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/naveenspark/circlespay/pkg/circles"
)

// Status is the connection state of a Session.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

// Session is a read-only snapshot of the manager's state.
type Session struct {
	// ID identifies one connected session; zero unless connected. Background
	// work binds its results to it through Manager.SetSessionOrganisation.
	ID                  uuid.UUID
	Status              Status
	Address             common.Address
	OrganisationAddress common.Address
	// Err is the last connect failure; set only in StatusError.
	Err error
	// Client is the ledger client bound to Address; nil unless connected.
	Client *circles.Client
}

// Connected reports whether the session has an approved account and client.
func (s Session) Connected() bool {
	return s.Status == StatusConnected
}

// HasAddress reports whether a wallet account is present.
func (s Session) HasAddress() bool {
	return s.Address != (common.Address{})
}

// HasOrganisation reports whether an organisation identity is set.
func (s Session) HasOrganisation() bool {
	return s.OrganisationAddress != (common.Address{})
}
