package tui

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/domain"
)

var (
	peerB = common.HexToAddress("0x5555555555555555555555555555555555555555")
	peerC = common.HexToAddress("0x6666666666666666666666666666666666666666")
)

func sampleRelations() []domain.TrustRelation {
	return []domain.TrustRelation{
		{SubjectAvatar: orgAddr, ObjectAvatar: peer, Relation: domain.RelationMutuallyTrusts, Timestamp: 1700000000},
		{SubjectAvatar: orgAddr, ObjectAvatar: peerB, Relation: domain.RelationTrusts, Timestamp: 1700000001},
		{SubjectAvatar: orgAddr, ObjectAvatar: peerC, Relation: domain.RelationTrustedBy, Timestamp: 1700000002},
		{SubjectAvatar: orgAddr, ObjectAvatar: orgAddr, Relation: domain.RelationSelfTrusts, Timestamp: 1700000003},
	}
}

func newTestTrust(t *testing.T, l *fakeLedger) trustModel {
	t.Helper()
	m, cmd := newTrustModel().setSession(connectedSession(orgAddr), l)
	if cmd == nil {
		t.Fatal("expected load command")
	}
	m, _ = m.Update(cmd())
	return m
}

func typeTarget(m trustModel, s string) trustModel {
	for _, r := range s {
		m, _ = m.Update(key(string(r)))
	}
	return m
}

func TestTrustLoadsRelations(t *testing.T) {
	m := newTestTrust(t, &fakeLedger{relations: sampleRelations()})
	if m.loading {
		t.Error("still loading")
	}
	if len(m.incoming) != 2 || len(m.outgoing) != 2 {
		t.Fatalf("incoming=%d outgoing=%d, want 2 and 2", len(m.incoming), len(m.outgoing))
	}
	out := m.View()
	for _, want := range []string{"Trusted by", "Trusting", peer.Hex(), peerB.Hex(), peerC.Hex(), "mutual"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if strings.Count(out, orgAddr.Hex()) != 0 {
		t.Error("self trust should not be listed")
	}
}

func TestTrustLoadError(t *testing.T) {
	m := newTestTrust(t, &fakeLedger{trustErr: errBoom})
	if m.err != "Failed to load trust relations" {
		t.Errorf("err = %q", m.err)
	}
}

func TestTrustAndUntrust(t *testing.T) {
	tests := []struct {
		key     string
		untrust bool
		verb    string
	}{
		{"t", false, "trusted"},
		{"u", true, "untrusted"},
	}
	for _, tc := range tests {
		t.Run(tc.verb, func(t *testing.T) {
			l := &fakeLedger{}
			m := newTestTrust(t, l)

			m, _ = m.Update(key(tc.key))
			if !m.editing() || m.untrust != tc.untrust {
				t.Fatal("expected target input focused")
			}
			m = typeTarget(m, peerB.Hex())
			m, cmd := m.Update(key("enter"))
			if cmd == nil || !m.busy {
				t.Fatal("expected submit command")
			}
			m, reload := m.Update(cmd())
			if reload == nil {
				t.Error("expected relations reload")
			}
			if m.status != peerB.Hex()+" is now "+tc.verb {
				t.Errorf("status = %q", m.status)
			}
			got := l.trusted
			if tc.untrust {
				got = l.untrusted
			}
			if len(got) != 1 || got[0] != peerB {
				t.Errorf("submitted targets = %v", got)
			}
		})
	}
}

func TestTrustInvalidTarget(t *testing.T) {
	l := &fakeLedger{}
	m := newTestTrust(t, l)
	m, _ = m.Update(key("t"))
	m = typeTarget(m, "0xnope")
	m, cmd := m.Update(key("enter"))
	if cmd != nil {
		t.Error("invalid address must not submit")
	}
	if m.err != domain.ErrAddressInvalid.Error() {
		t.Errorf("err = %q", m.err)
	}
	if !m.focused {
		t.Error("input should stay focused")
	}
}

func TestTrustFailure(t *testing.T) {
	l := &fakeLedger{}
	m := newTestTrust(t, l)
	m, _ = m.Update(trustDoneMsg{gen: m.gen, target: peer, err: errBoom})
	if m.err != "Trust failed: boom" {
		t.Errorf("err = %q", m.err)
	}
	m, _ = m.Update(trustDoneMsg{gen: m.gen, target: peer, untrust: true, err: errBoom})
	if m.err != "Untrust failed: boom" {
		t.Errorf("err = %q", m.err)
	}
}

func TestTrustNeedsOrganisation(t *testing.T) {
	m, cmd := newTrustModel().setSession(connectedSession(common.Address{}), &fakeLedger{})
	if cmd != nil {
		t.Error("no load without an organisation")
	}
	m, _ = m.Update(key("t"))
	if m.focused {
		t.Error("keys should be ignored without an organisation")
	}
	if !strings.Contains(m.View(), needOrgText) {
		t.Error("view should ask for an organisation")
	}
}

func TestTrustStaleResultIgnored(t *testing.T) {
	l := &fakeLedger{relations: sampleRelations()}
	m, cmd := newTrustModel().setSession(connectedSession(orgAddr), l)
	m, _ = m.setSession(wallet.Session{Status: wallet.StatusIdle}, nil)
	m, _ = m.Update(cmd())
	if len(m.incoming) != 0 {
		t.Error("stale relations applied")
	}
}
