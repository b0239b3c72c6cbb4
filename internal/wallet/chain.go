package wallet

import (
	"math/big"
	"strings"
)

// Chain describes the network the wallet must be on.
type Chain struct {
	ID               string // hex, e.g. "0x64"
	Name             string
	CurrencyName     string
	CurrencySymbol   string
	CurrencyDecimals int
	RPCURLs          []string
	ExplorerURLs     []string
}

// Gnosis is Gnosis Chain, where Circles lives.
func Gnosis() Chain {
	return Chain{
		ID:               "0x64",
		Name:             "Gnosis Chain",
		CurrencyName:     "xDAI",
		CurrencySymbol:   "xDAI",
		CurrencyDecimals: 18,
		RPCURLs:          []string{"https://rpc.gnosischain.com"},
		ExplorerURLs:     []string{"https://gnosisscan.io"},
	}
}

// Matches reports whether id names this chain. Hex ("0x64") and decimal
// ("100") forms are accepted.
func (c Chain) Matches(id string) bool {
	want, ok := parseChainID(c.ID)
	if !ok {
		return false
	}
	got, ok := parseChainID(id)
	return ok && want.Cmp(got) == 0
}

// AddParams is the wallet_addEthereumChain parameter object.
func (c Chain) AddParams() map[string]any {
	return map[string]any{
		"chainId":   c.ID,
		"chainName": c.Name,
		"nativeCurrency": map[string]any{
			"name":     c.CurrencyName,
			"symbol":   c.CurrencySymbol,
			"decimals": c.CurrencyDecimals,
		},
		"rpcUrls":           c.RPCURLs,
		"blockExplorerUrls": c.ExplorerURLs,
	}
}

func parseChainID(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	if s == "" {
		return nil, false
	}
	return new(big.Int).SetString(s, base)
}
