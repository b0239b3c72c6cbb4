// Package config loads circlespay settings from ~/.circlespay/config.yaml with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/circles"
)

// Config holds everything the app needs to reach the wallet and the network.
type Config struct {
	ProviderURL      string        `yaml:"provider_url"`
	TransferLinkBase string        `yaml:"transfer_link_base"`
	ExplorerTxURL    string        `yaml:"explorer_tx_url"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	PageSize         int           `yaml:"page_size"`
	Circles          CirclesConfig `yaml:"circles"`
	Chain            ChainConfig   `yaml:"chain"`
}

// CirclesConfig locates the Circles services.
type CirclesConfig struct {
	RPCURL            string `yaml:"rpc_url"`
	ProfileServiceURL string `yaml:"profile_service_url"`
	V1Hub             string `yaml:"v1_hub"`
	V2Hub             string `yaml:"v2_hub"`
}

// ChainConfig is the network the wallet is switched to.
type ChainConfig struct {
	ID               string   `yaml:"id"`
	Name             string   `yaml:"name"`
	CurrencyName     string   `yaml:"currency_name"`
	CurrencySymbol   string   `yaml:"currency_symbol"`
	CurrencyDecimals int      `yaml:"currency_decimals"`
	RPCURLs          []string `yaml:"rpc_urls"`
	ExplorerURLs     []string `yaml:"explorer_urls"`
}

// Default returns the Gnosis Chain production settings.
func Default() *Config {
	g := wallet.Gnosis()
	return &Config{
		ProviderURL:      "ws://127.0.0.1:1248",
		TransferLinkBase: "https://app.metri.xyz/transfer",
		ExplorerTxURL:    "https://gnosisscan.io/tx/",
		PollInterval:     10 * time.Second,
		PageSize:         20,
		Circles: CirclesConfig{
			RPCURL:            "https://rpc.aboutcircles.com/",
			ProfileServiceURL: "https://rpc.aboutcircles.com/profiles/",
			V1Hub:             "0x29b9a7fbb8995b2423a71cc17cf9810798f6c543",
			V2Hub:             "0xc12C1E50ABB450d6205Ea2C3Fa861b3B834d13e8",
		},
		Chain: ChainConfig{
			ID:               g.ID,
			Name:             g.Name,
			CurrencyName:     g.CurrencyName,
			CurrencySymbol:   g.CurrencySymbol,
			CurrencyDecimals: g.CurrencyDecimals,
			RPCURLs:          g.RPCURLs,
			ExplorerURLs:     g.ExplorerURLs,
		},
	}
}

// Home returns the state directory: $CIRCLESPAY_HOME or ~/.circlespay.
func Home() (string, error) {
	if dir := os.Getenv("CIRCLESPAY_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".circlespay"), nil
}

// Path returns the config file location inside dir.
func Path(dir string) string {
	return filepath.Join(dir, "config.yaml")
}

// MarkerPath returns the session marker location inside dir.
func MarkerPath(dir string) string {
	return filepath.Join(dir, "session")
}

// LogPath returns the log file location inside dir.
func LogPath(dir string) string {
	return filepath.Join(dir, "circlespay.log")
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config.Load: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// Save writes the config as YAML, creating the directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config.Save: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("CIRCLESPAY_PROVIDER_URL"); url != "" {
		c.ProviderURL = url
	}
	if url := os.Getenv("CIRCLESPAY_RPC_URL"); url != "" {
		c.Circles.RPCURL = url
	}
}

// Validate checks the values the app cannot work without.
func (c *Config) Validate() error {
	switch {
	case c.ProviderURL == "":
		return errors.New("provider_url is empty")
	case c.Circles.RPCURL == "":
		return errors.New("circles.rpc_url is empty")
	case c.Chain.ID == "":
		return errors.New("chain.id is empty")
	case c.PageSize <= 0:
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	case c.PollInterval < time.Second:
		return fmt.Errorf("poll_interval must be at least 1s, got %s", c.PollInterval)
	}
	for name, addr := range map[string]string{"circles.v1_hub": c.Circles.V1Hub, "circles.v2_hub": c.Circles.V2Hub} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s is not an address: %q", name, addr)
		}
	}
	if !strings.HasPrefix(c.ProviderURL, "ws://") && !strings.HasPrefix(c.ProviderURL, "wss://") {
		return fmt.Errorf("provider_url must be a ws:// or wss:// URL, got %q", c.ProviderURL)
	}
	return nil
}

// WalletChain converts the chain section for the wallet manager.
func (c *Config) WalletChain() wallet.Chain {
	return wallet.Chain{
		ID:               c.Chain.ID,
		Name:             c.Chain.Name,
		CurrencyName:     c.Chain.CurrencyName,
		CurrencySymbol:   c.Chain.CurrencySymbol,
		CurrencyDecimals: c.Chain.CurrencyDecimals,
		RPCURLs:          c.Chain.RPCURLs,
		ExplorerURLs:     c.Chain.ExplorerURLs,
	}
}

// CirclesClient converts the circles section for the ledger client.
func (c *Config) CirclesClient() circles.Config {
	return circles.Config{
		RPCURL:            c.Circles.RPCURL,
		ProfileServiceURL: c.Circles.ProfileServiceURL,
		V1Hub:             common.HexToAddress(c.Circles.V1Hub),
		V2Hub:             common.HexToAddress(c.Circles.V2Hub),
	}
}
