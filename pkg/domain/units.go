package domain

import (
	"math/big"
	"strings"
)

// CRCDecimals is the number of decimals of every Circles token.
const CRCDecimals = 18

// displayDecimals is how many fractional digits amounts and balances show.
const displayDecimals = 3

// FormatUnits renders value scaled down by 10^decimals. The fractional part
// keeps at least one digit and drops trailing zeros: "1.0", "0.25".
func FormatUnits(value *big.Int, decimals int) string {
	if value == nil {
		return "0.0"
	}
	abs := new(big.Int).Abs(value)
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	q, r := new(big.Int).QuoRem(abs, base, new(big.Int))

	frac := r.String()
	if len(frac) < decimals {
		frac = strings.Repeat("0", decimals-len(frac)) + frac
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	s := q.String() + "." + frac
	if value.Sign() < 0 {
		s = "-" + s
	}
	return s
}

// TruncateDecimals cuts the fractional part of a decimal string to n digits
// without rounding. Strings without a fractional part are returned as is.
func TruncateDecimals(s string, n int) string {
	intPart, decPart, ok := strings.Cut(s, ".")
	if !ok {
		return s
	}
	if len(decPart) > n {
		decPart = decPart[:n]
	}
	if decPart == "" {
		return intPart
	}
	return intPart + "." + decPart
}

// FormatCRC renders an atto-CRC amount with three decimals at most.
func FormatCRC(value *big.Int) string {
	return TruncateDecimals(FormatUnits(value, CRCDecimals), displayDecimals)
}

// SumDecimals adds decimal strings such as "12.5" and "0.125". Unparseable
// inputs count as zero. The result drops trailing zeros and is truncated to
// three decimals: "12.625" -> "12.625", "3.10" + "1.90" -> "5".
func SumDecimals(values ...string) string {
	total := new(big.Rat)
	for _, v := range values {
		r, ok := new(big.Rat).SetString(strings.TrimSpace(v))
		if !ok {
			continue
		}
		total.Add(total, r)
	}
	s := total.FloatString(CRCDecimals)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return TruncateDecimals(s, displayDecimals)
}

// TruncateAddress shortens a hex string to "0x1234…abcd".
func TruncateAddress(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}
