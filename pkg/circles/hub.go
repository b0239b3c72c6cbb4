package circles

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"

	"github.com/naveenspark/circlespay/pkg/domain"
)

// Subset of the v2 hub ABI the front-end submits.
const hubABIJSON = `[
  {"type":"function","name":"trust","stateMutability":"nonpayable","outputs":[],
   "inputs":[{"name":"_trustReceiver","type":"address"},{"name":"_expiry","type":"uint96"}]},
  {"type":"function","name":"registerOrganization","stateMutability":"nonpayable","outputs":[],
   "inputs":[{"name":"_name","type":"string"},{"name":"_metadataDigest","type":"bytes32"}]},
  {"type":"error","name":"CirclesErrorOneAddressArg",
   "inputs":[{"name":"","type":"address"},{"name":"","type":"uint8"}]}
]`

var hubABI = mustParseABI(hubABIJSON)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("circles: parse hub abi: %v", err))
	}
	return parsed
}

// maxExpiry is the largest uint96, meaning "trust indefinitely".
var maxExpiry = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))

// Trust makes the bound account trust target indefinitely.
func (c *Client) Trust(ctx context.Context, target common.Address) (common.Hash, error) {
	hash, err := c.setTrust(ctx, target, maxExpiry)
	if err != nil {
		return hash, fmt.Errorf("client.Trust: %w", err)
	}
	return hash, nil
}

// Untrust revokes the bound account's trust in target.
func (c *Client) Untrust(ctx context.Context, target common.Address) (common.Hash, error) {
	hash, err := c.setTrust(ctx, target, new(big.Int))
	if err != nil {
		return hash, fmt.Errorf("client.Untrust: %w", err)
	}
	return hash, nil
}

func (c *Client) setTrust(ctx context.Context, target common.Address, expiry *big.Int) (common.Hash, error) {
	data, err := hubABI.Pack("trust", target, expiry)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack trust: %w", err)
	}
	return c.transact(ctx, c.cfg.V2Hub, data)
}

// RegisterOrganization pins profile and registers the bound account as an
// organisation avatar. The returned address is the new avatar.
func (c *Client) RegisterOrganization(ctx context.Context, profile domain.Profile) (common.Address, error) {
	if c.wallet == nil {
		return common.Address{}, fmt.Errorf("client.RegisterOrganization: %w", ErrNoWallet)
	}
	if strings.TrimSpace(profile.Name) == "" {
		return common.Address{}, errors.New("client.RegisterOrganization: name is required")
	}
	cid, err := c.PinProfile(ctx, profile)
	if err != nil {
		return common.Address{}, fmt.Errorf("client.RegisterOrganization: %w", err)
	}
	digest, err := cidV0Digest(cid)
	if err != nil {
		return common.Address{}, fmt.Errorf("client.RegisterOrganization: %w", err)
	}
	data, err := hubABI.Pack("registerOrganization", profile.Name, digest)
	if err != nil {
		return common.Address{}, fmt.Errorf("client.RegisterOrganization: pack: %w", err)
	}
	if _, err := c.transact(ctx, c.cfg.V2Hub, data); err != nil {
		return common.Address{}, fmt.Errorf("client.RegisterOrganization: %w", err)
	}
	return c.account, nil
}

// cidV0Digest extracts the sha2-256 digest from a base58 "Qm…" CID.
func cidV0Digest(cid string) ([32]byte, error) {
	var digest [32]byte
	raw, err := base58.Decode(cid)
	if err != nil {
		return digest, fmt.Errorf("decode cid %q: %w", cid, err)
	}
	if len(raw) != 34 || raw[0] != 0x12 || raw[1] != 0x20 {
		return digest, fmt.Errorf("cid %q is not a sha2-256 CIDv0", cid)
	}
	copy(digest[:], raw[2:])
	return digest, nil
}

type receipt struct {
	Status          hexutil.Uint64 `json:"status"`
	TransactionHash common.Hash    `json:"transactionHash"`
}

// transact sends a transaction from the bound account and waits until it is mined.
func (c *Client) transact(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	if c.wallet == nil {
		return common.Hash{}, ErrNoWallet
	}
	tx := map[string]string{
		"from": c.account.Hex(),
		"to":   to.Hex(),
		"data": hexutil.Encode(data),
	}
	var hash common.Hash
	if err := c.wallet.Request(ctx, "eth_sendTransaction", []any{tx}, &hash); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}
	if err := c.waitMined(ctx, hash); err != nil {
		return hash, err
	}
	return hash, nil
}

func (c *Client) waitMined(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()
	for {
		var r *receipt
		if err := c.wallet.Request(ctx, "eth_getTransactionReceipt", []any{hash}, &r); err != nil {
			return fmt.Errorf("get receipt: %w", err)
		}
		if r != nil {
			if r.Status == 0 {
				return fmt.Errorf("%w: %s", ErrTransactionReverted, hash.Hex())
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
