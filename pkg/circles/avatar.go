package circles

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/pkg/domain"
)

// GetAvatarInfo returns the registration record of addr, or ErrAvatarNotFound.
func (c *Client) GetAvatarInfo(ctx context.Context, addr common.Address) (*domain.AvatarInfo, error) {
	rows, err := c.query(ctx, queryRequest{
		Namespace: "V_Crc",
		Table:     "Avatars",
		Columns:   []string{"timestamp", "version", "type", "avatar", "name", "cidV0Digest"},
		Filter:    []filter{equals("avatar", addressValue(addr))},
		Limit:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("client.GetAvatarInfo: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("client.GetAvatarInfo: %s: %w", addr.Hex(), ErrAvatarNotFound)
	}
	r := rows[0]
	return &domain.AvatarInfo{
		Avatar:      r.address("avatar"),
		Type:        r.text("type"),
		Version:     int(r.int("version")),
		Name:        r.text("name"),
		CidV0Digest: r.text("cidV0Digest"),
		Timestamp:   r.int("timestamp"),
	}, nil
}

// GetProfile returns the profile attached to addr, or ErrProfileNotFound.
func (c *Client) GetProfile(ctx context.Context, addr common.Address) (*domain.Profile, error) {
	var p *domain.Profile
	if err := c.call(ctx, "circles_getProfileByAddress", &p, addr.Hex()); err != nil {
		return nil, fmt.Errorf("client.GetProfile: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("client.GetProfile: %s: %w", addr.Hex(), ErrProfileNotFound)
	}
	return p, nil
}

// TotalBalance returns the v1 balance of addr in time-circles units.
func (c *Client) TotalBalance(ctx context.Context, addr common.Address) (string, error) {
	var total string
	if err := c.call(ctx, "circles_getTotalBalance", &total, addr.Hex(), true); err != nil {
		return "", fmt.Errorf("client.TotalBalance: %w", err)
	}
	return total, nil
}

// TotalBalanceV2 returns the v2 balance of addr in time-circles units.
func (c *Client) TotalBalanceV2(ctx context.Context, addr common.Address) (string, error) {
	var total string
	if err := c.call(ctx, "circles_getTotalBalanceV2", &total, addr.Hex(), true); err != nil {
		return "", fmt.Errorf("client.TotalBalanceV2: %w", err)
	}
	return total, nil
}

// PinProfile stores profile with the profile service and returns its CIDv0.
func (c *Client) PinProfile(ctx context.Context, profile domain.Profile) (string, error) {
	var out struct {
		CID string `json:"cid"`
	}
	if err := c.doRequest(ctx, http.MethodPost, c.profileURL("/pin"), profile, &out); err != nil {
		return "", fmt.Errorf("client.PinProfile: %w", err)
	}
	if out.CID == "" {
		return "", errors.New("client.PinProfile: empty cid in response")
	}
	return out.CID, nil
}
