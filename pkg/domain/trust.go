package domain

import "github.com/ethereum/go-ethereum/common"

// Relation classifies a trust edge from the subject's point of view.
type Relation string

const (
	RelationTrusts         Relation = "trusts"
	RelationTrustedBy      Relation = "trustedBy"
	RelationMutuallyTrusts Relation = "mutuallyTrusts"
	RelationSelfTrusts     Relation = "selfTrusts"
)

// TrustRelation is an aggregated trust edge between SubjectAvatar and ObjectAvatar.
type TrustRelation struct {
	SubjectAvatar common.Address
	ObjectAvatar  common.Address
	Relation      Relation
	Timestamp     int64
}

// SplitRelations partitions the relations of avatar into counterparts that
// trust it (incoming) and counterparts it trusts (outgoing). Mutual relations
// land in both; self trust in neither.
func SplitRelations(avatar common.Address, rels []TrustRelation) (incoming, outgoing []TrustRelation) {
	for _, r := range rels {
		if r.Relation == RelationSelfTrusts {
			continue
		}
		switch {
		case r.SubjectAvatar == avatar:
			if r.Relation == RelationTrusts || r.Relation == RelationMutuallyTrusts {
				outgoing = append(outgoing, r)
			}
			if r.Relation == RelationTrustedBy || r.Relation == RelationMutuallyTrusts {
				incoming = append(incoming, r)
			}
		case r.ObjectAvatar == avatar:
			// Relation seen from the counterpart's side.
			if r.Relation == RelationTrusts || r.Relation == RelationMutuallyTrusts {
				incoming = append(incoming, r)
			}
			if r.Relation == RelationTrustedBy || r.Relation == RelationMutuallyTrusts {
				outgoing = append(outgoing, r)
			}
		}
	}
	return incoming, outgoing
}

// Counterpart returns the avatar on the other side of r relative to avatar.
func (r TrustRelation) Counterpart(avatar common.Address) common.Address {
	if r.SubjectAvatar == avatar {
		return r.ObjectAvatar
	}
	return r.SubjectAvatar
}
