package domain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AvatarInfo is the on-network registration record of an avatar.
type AvatarInfo struct {
	Avatar      common.Address `json:"avatar"`
	Type        string         `json:"type"`
	Version     int            `json:"version"`
	Name        string         `json:"name,omitempty"`
	CidV0Digest string         `json:"cidV0Digest,omitempty"`
	Timestamp   int64          `json:"timestamp"`
}

// IsOrganisation reports whether the avatar was registered as an organisation.
func (a AvatarInfo) IsOrganisation() bool {
	return strings.Contains(a.Type, "Organization")
}

// Profile is the off-chain metadata attached to an avatar.
type Profile struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	PreviewImageURL string `json:"previewImageUrl,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
}
