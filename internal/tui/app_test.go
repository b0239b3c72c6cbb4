package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/circlespay/internal/config"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/domain"
)

func newTestApp(t *testing.T, w *fakeWallet, l *fakeLedger) App {
	t.Helper()
	a := NewApp(Options{
		Wallet:    w,
		Ledger:    func(wallet.Session) Ledger { return l },
		Config:    *config.Default(),
		ExportDir: t.TempDir(),
		Version:   "v0.1.0",
	})
	a.width = 100
	a.height = 40
	return a
}

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	model, cmd := a.Update(msg)
	return model.(App), cmd
}

func TestAppTabSwitching(t *testing.T) {
	tests := []struct {
		key      string
		wantView view
	}{
		{"1", viewWallet},
		{"2", viewOrg},
		{"3", viewAccept},
		{"4", viewHistory},
		{"5", viewTrust},
	}

	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			a := newTestApp(t, newFakeWallet(), &fakeLedger{})
			a.view = viewTrust
			a, _ = update(t, a, key(tc.key))
			if a.view != tc.wantView {
				t.Errorf("after key %q: expected view=%d, got %d", tc.key, tc.wantView, a.view)
			}
		})
	}
}

func TestAppGlobalQuitOnQ(t *testing.T) {
	a := newTestApp(t, newFakeWallet(), &fakeLedger{})
	_, cmd := update(t, a, key("q"))
	if cmd == nil {
		t.Fatal("expected quit command on 'q', got nil")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg from 'q'")
	}
}

func TestAppCtrlCQuitsWhileEditing(t *testing.T) {
	a := newTestApp(t, newFakeWallet(), &fakeLedger{})
	a, _ = update(t, a, sessionMsg{session: connectedSession(orgAddr)})
	a.view = viewAccept
	a.accept.focused = true

	_, cmd := update(t, a, key("ctrl+c"))
	if cmd == nil {
		t.Fatal("expected quit command on ctrl+c")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg from ctrl+c")
	}
}

func TestAppEditingSwallowsGlobalKeys(t *testing.T) {
	a := newTestApp(t, newFakeWallet(), &fakeLedger{})
	a, _ = update(t, a, sessionMsg{session: connectedSession(orgAddr)})
	a.view = viewAccept

	a, _ = update(t, a, key("enter"))
	if !a.isEditing() {
		t.Fatal("expected accept input focused after enter")
	}
	a, _ = update(t, a, key("2"))
	a, cmd := update(t, a, key("q"))
	if a.view != viewAccept {
		t.Errorf("view changed while editing: %d", a.view)
	}
	if a.accept.input != "2q" {
		t.Errorf("accept input = %q, want %q", a.accept.input, "2q")
	}
	if cmd != nil {
		t.Error("q should not quit while editing")
	}
}

func TestAppSessionFansOut(t *testing.T) {
	l := &fakeLedger{}
	a := newTestApp(t, newFakeWallet(), l)

	a, cmd := update(t, a, sessionMsg{session: connectedSession(orgAddr)})
	if cmd == nil {
		t.Fatal("expected follow-up commands after a session change")
	}
	if a.walletTab.session.Status != wallet.StatusConnected {
		t.Errorf("wallet tab status = %s", a.walletTab.session.Status)
	}
	if a.accept.session.OrganisationAddress != orgAddr {
		t.Error("accept tab did not receive the organisation")
	}
	if a.history.view == nil || a.history.view.Avatar() != orgAddr {
		t.Error("history tab did not build a view for the organisation")
	}
	if a.trust.ledger == nil || a.trust.org != orgAddr {
		t.Error("trust tab did not receive the ledger")
	}

	// Disconnect resets every tab.
	a, _ = update(t, a, sessionMsg{session: wallet.Session{Status: wallet.StatusIdle}})
	if a.history.view != nil {
		t.Error("history view kept after disconnect")
	}
	if a.trust.ledger != nil {
		t.Error("trust ledger kept after disconnect")
	}
	if a.accept.session.HasOrganisation() {
		t.Error("accept kept the organisation after disconnect")
	}
}

func TestAppWaitSession(t *testing.T) {
	w := newFakeWallet()
	a := newTestApp(t, w, &fakeLedger{})

	s := connectedSession(orgAddr)
	w.updates <- s
	msg, ok := a.waitSession()().(sessionMsg)
	if !ok {
		t.Fatal("expected sessionMsg")
	}
	if msg.session.Address != s.Address || msg.session.OrganisationAddress != s.OrganisationAddress {
		t.Errorf("session = %+v, want %+v", msg.session, s)
	}

	close(w.updates)
	if got := a.waitSession()(); got != nil {
		t.Errorf("closed subscription should yield nil, got %T", got)
	}
}

func TestAppRestore(t *testing.T) {
	w := newFakeWallet()
	a := newTestApp(t, w, &fakeLedger{})
	if !a.restoring {
		t.Fatal("expected restoring at start")
	}
	if !strings.Contains(a.View(), "restoring") {
		t.Error("view should show restoring")
	}

	if _, ok := a.restore()().(restoredMsg); !ok {
		t.Fatal("expected restoredMsg")
	}
	if w.restores != 1 {
		t.Errorf("restores = %d, want 1", w.restores)
	}
	a, _ = update(t, a, restoredMsg{})
	if a.restoring {
		t.Error("restoring still set")
	}
}

func TestAppClose(t *testing.T) {
	w := newFakeWallet()
	a := newTestApp(t, w, &fakeLedger{})
	a.Close()
	if !w.stopped {
		t.Error("Close did not stop the subscription")
	}
}

func TestAppHelpOverlay(t *testing.T) {
	a := newTestApp(t, newFakeWallet(), &fakeLedger{})
	a, _ = update(t, a, key("h"))
	if !a.helpOpen {
		t.Fatal("expected help open after h")
	}
	a, _ = update(t, a, key("j"))
	if a.helpCursor != 1 {
		t.Errorf("helpCursor = %d, want 1", a.helpCursor)
	}
	a, _ = update(t, a, key("3"))
	if a.view != viewWallet {
		t.Error("help overlay should capture tab keys")
	}
	a, _ = update(t, a, key("esc"))
	if a.helpOpen {
		t.Error("expected help closed after esc")
	}
}

func TestAppRoutesAsyncResultsToHiddenTabs(t *testing.T) {
	w := newFakeWallet()
	a := newTestApp(t, w, &fakeLedger{})
	a, _ = update(t, a, sessionMsg{session: connectedSession(orgAddr)})
	a.view = viewWallet

	a, _ = update(t, a, trustLoadedMsg{gen: a.trust.gen, err: errBoom})
	if a.trust.err != "Failed to load trust relations" {
		t.Errorf("trust err = %q", a.trust.err)
	}
	a, _ = update(t, a, balanceLoadedMsg{gen: a.history.gen, balance: "7"})
	if a.history.balance != "7" {
		t.Errorf("history balance = %q", a.history.balance)
	}
}

func TestAppView(t *testing.T) {
	a := newTestApp(t, newFakeWallet(), &fakeLedger{})
	a, _ = update(t, a, restoredMsg{})
	a, _ = update(t, a, sessionMsg{session: connectedSession(orgAddr)})

	out := a.View()
	for _, want := range []string{"Wallet", "Organisation", "Accept", "History", "Trust", "v0.1.0",
		domain.TruncateAddress(account.Hex()), domain.TruncateAddress(orgAddr.Hex())} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
	if lines := strings.Count(out, "\n") + 1; lines > a.height {
		t.Errorf("view has %d lines, terminal has %d", lines, a.height)
	}
}
