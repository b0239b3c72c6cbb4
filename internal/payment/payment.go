// Package payment builds payment requests: a validated CRC amount, the
// transfer link a payer opens, and its QR code.
package payment

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultLinkBase is the Metri transfer page.
const DefaultLinkBase = "https://app.metri.xyz/transfer"

var (
	ErrAmountRequired = errors.New("please enter an amount")
	ErrAmountInvalid  = errors.New("amount must be a number")
	ErrAmountTooSmall = errors.New("amount must be greater than zero")
)

var (
	decimalRE = regexp.MustCompile(`^(\d*)(?:\.(\d*))?$`)
	// minAmount is the smallest amount a payment request may ask for.
	minAmount = big.NewRat(1, 100_000_000)
)

// ParseAmount validates a CRC amount typed by the user and returns it in
// canonical decimal form ("05.50" -> "5.5").
func ParseAmount(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrAmountRequired
	}
	m := decimalRE.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "") {
		return "", ErrAmountInvalid
	}

	intPart := strings.TrimLeft(m[1], "0")
	if intPart == "" {
		intPart = "0"
	}
	frac := strings.TrimRight(m[2], "0")
	canonical := intPart
	if frac != "" {
		canonical += "." + frac
	}

	r, ok := new(big.Rat).SetString(canonical)
	if !ok {
		return "", ErrAmountInvalid
	}
	if r.Cmp(minAmount) < 0 {
		return "", ErrAmountTooSmall
	}
	return canonical, nil
}

// Link returns the transfer URL that pays amount CRC to org.
func Link(base string, org common.Address, amount string) string {
	if base == "" {
		base = DefaultLinkBase
	}
	return fmt.Sprintf("%s/%s/crc/%s", strings.TrimRight(base, "/"), org.Hex(), amount)
}

// QR renders content as a QR code made of half-block characters, two modules
// per character row.
func QR(content string) (string, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("payment.QR: %w", err)
	}
	return q.ToSmallString(false), nil
}

// SavePNG writes content as a size x size PNG QR code to path.
func SavePNG(content, path string, size int) error {
	if err := qrcode.WriteFile(content, qrcode.Medium, size, path); err != nil {
		return fmt.Errorf("payment.SavePNG: %w", err)
	}
	return nil
}
