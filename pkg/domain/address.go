package domain

import (
	"errors"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAddressRequired = errors.New("please enter an address")
	ErrAddressInvalid  = errors.New("must be a valid 0x… address")
)

var addressRE = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// ParseAddress validates a typed avatar address. Checksums are not enforced.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, ErrAddressRequired
	}
	if !addressRE.MatchString(s) {
		return common.Address{}, ErrAddressInvalid
	}
	return common.HexToAddress(s), nil
}
