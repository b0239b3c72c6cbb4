package domain

import (
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Transaction is one transfer touching an avatar, newest first in history pages.
type Transaction struct {
	BlockNumber      uint64
	TransactionIndex uint64
	LogIndex         uint64
	Timestamp        int64 // unix seconds
	Version          int
	From             common.Address
	To               common.Address
	Value            *big.Int // atto-CRC
	TransactionHash  common.Hash

	// Display names; empty until resolved.
	FromName string
	ToName   string
}

// Time returns the block time in UTC.
func (t Transaction) Time() time.Time {
	return time.Unix(t.Timestamp, 0).UTC()
}

// VersionLabel renders the hub version as "v1" / "v2".
func (t Transaction) VersionLabel() string {
	return "v" + strconv.Itoa(t.Version)
}

// Amount renders the value in CRC truncated to three decimals.
func (t Transaction) Amount() string {
	return FormatCRC(t.Value)
}
