package circles

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/naveenspark/circlespay/pkg/jsonrpc"
)

var (
	// ErrAvatarNotFound is returned when an address has no registered avatar.
	ErrAvatarNotFound = errors.New("avatar not found")
	// ErrProfileNotFound is returned when an avatar has no profile.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrNoWallet is returned by mutations on a client without a wallet.
	ErrNoWallet = errors.New("no wallet bound to client")
	// ErrTransactionReverted is returned when a mined transaction failed.
	ErrTransactionReverted = errors.New("transaction reverted")
)

// HTTPError represents a non-2xx HTTP response from a Circles service.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Hub error code reported with CirclesErrorOneAddressArg when the avatar is
// already registered.
const codeAvatarAlreadyRegistered = 128

// IsAvatarAlreadyExists reports whether err is the hub revert raised when the
// sending wallet already has a Circles avatar.
func IsAvatarAlreadyExists(err error) bool {
	code, ok := oneAddressArgCode(RevertData(err))
	return ok && code == codeAvatarAlreadyRegistered
}

// RevertData extracts the raw revert payload from a wallet or node error.
// Wallets nest it differently: a hex string in "data", or an object holding
// "data" / "originalError" further down.
func RevertData(err error) []byte {
	var rpcErr *jsonrpc.Error
	if !errors.As(err, &rpcErr) || len(rpcErr.Data) == 0 {
		return nil
	}
	return findRevertData(rpcErr.Data, 0)
}

func findRevertData(raw json.RawMessage, depth int) []byte {
	if depth > 3 {
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil
		}
		return b
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(raw, &obj) != nil {
		return nil
	}
	for _, key := range []string{"data", "originalError", "cause"} {
		if v, ok := obj[key]; ok {
			if b := findRevertData(v, depth+1); len(b) > 0 {
				return b
			}
		}
	}
	return nil
}

func oneAddressArgCode(data []byte) (uint8, bool) {
	def, ok := hubABI.Errors["CirclesErrorOneAddressArg"]
	if !ok || len(data) < 4 || !bytes.Equal(data[:4], def.ID[:4]) {
		return 0, false
	}
	args, err := def.Inputs.Unpack(data[4:])
	if err != nil || len(args) != 2 {
		return 0, false
	}
	code, ok := args[1].(uint8)
	return code, ok
}
