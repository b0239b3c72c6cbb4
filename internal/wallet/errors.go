package wallet

import (
	"errors"
	"fmt"

	"github.com/naveenspark/circlespay/pkg/jsonrpc"
)

var (
	// ErrNoProvider means no wallet provider could be reached.
	ErrNoProvider = errors.New("no wallet provider found")
	// ErrRejected means the wallet returned no account.
	ErrRejected = errors.New("wallet connection rejected")
)

// ErrorKind classifies connect failures.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindProviderAbsent
	KindUserRejected
	KindNetworkRegistrationFailed
	KindUnexpected
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindProviderAbsent:
		return "provider absent"
	case KindUserRejected:
		return "user rejected"
	case KindNetworkRegistrationFailed:
		return "network registration failed"
	case KindUnexpected:
		return "unexpected"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ConnectError wraps every failure returned by Connect.
type ConnectError struct {
	Kind ErrorKind
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("wallet connect (%s): %v", e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Classify narrows err to its ErrorKind. A nil error is KindNone.
func Classify(err error) ErrorKind {
	var ce *ConnectError
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &ce):
		return ce.Kind
	case errors.Is(err, ErrNoProvider):
		return KindProviderAbsent
	case errors.Is(err, ErrRejected), jsonrpc.IsCode(err, jsonrpc.CodeUserRejected):
		return KindUserRejected
	}
	return KindUnexpected
}

// stepError wraps a failed provider call made while connecting.
func stepError(step string, err error) *ConnectError {
	return &ConnectError{Kind: Classify(err), Err: fmt.Errorf("%s: %w", step, err)}
}
