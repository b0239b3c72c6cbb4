package circles

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/pkg/domain"
)

// trustLimit caps how many raw trust rows are fetched for one avatar.
const trustLimit = 1000

// TrustRow is one directed trust edge as stored by the indexer.
type TrustRow struct {
	Truster   common.Address
	Trustee   common.Address
	Timestamp int64
}

// TrustRelations returns the raw v2 trust edges touching addr.
func (c *Client) TrustRelations(ctx context.Context, addr common.Address) ([]TrustRow, error) {
	rows, err := c.query(ctx, queryRequest{
		Namespace: "V_CrcV2",
		Table:     "TrustRelations",
		Columns:   []string{"timestamp", "truster", "trustee"},
		Filter:    []filter{or(equals("truster", addressValue(addr)), equals("trustee", addressValue(addr)))},
		Order:     desc("blockNumber"),
		Limit:     trustLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("client.TrustRelations: %w", err)
	}
	out := make([]TrustRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, TrustRow{
			Truster:   r.address("truster"),
			Trustee:   r.address("trustee"),
			Timestamp: r.int("timestamp"),
		})
	}
	return out, nil
}

// AggregatedTrustRelations returns one relation per counterpart of addr.
func (c *Client) AggregatedTrustRelations(ctx context.Context, addr common.Address) ([]domain.TrustRelation, error) {
	rows, err := c.TrustRelations(ctx, addr)
	if err != nil {
		return nil, err
	}
	return AggregateTrustRelations(addr, rows), nil
}

// AggregateTrustRelations folds directed edges into one relation per
// counterpart, seen from avatar: trusts, trustedBy, mutuallyTrusts or
// selfTrusts. Results are newest first.
func AggregateTrustRelations(avatar common.Address, rows []TrustRow) []domain.TrustRelation {
	type edge struct {
		out, in bool
		ts      int64
	}
	edges := make(map[common.Address]*edge)
	for _, r := range rows {
		var other common.Address
		var out bool
		switch {
		case r.Truster == avatar:
			other, out = r.Trustee, true
		case r.Trustee == avatar:
			other = r.Truster
		default:
			continue
		}
		e, ok := edges[other]
		if !ok {
			e = &edge{}
			edges[other] = e
		}
		if out {
			e.out = true
		} else {
			e.in = true
		}
		if r.Timestamp > e.ts {
			e.ts = r.Timestamp
		}
	}

	rels := make([]domain.TrustRelation, 0, len(edges))
	for other, e := range edges {
		rel := domain.RelationTrustedBy
		switch {
		case other == avatar:
			rel = domain.RelationSelfTrusts
		case e.out && e.in:
			rel = domain.RelationMutuallyTrusts
		case e.out:
			rel = domain.RelationTrusts
		}
		rels = append(rels, domain.TrustRelation{
			SubjectAvatar: avatar,
			ObjectAvatar:  other,
			Relation:      rel,
			Timestamp:     e.ts,
		})
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].Timestamp != rels[j].Timestamp {
			return rels[i].Timestamp > rels[j].Timestamp
		}
		return bytes.Compare(rels[i].ObjectAvatar[:], rels[j].ObjectAvatar[:]) < 0
	})
	return rels
}
