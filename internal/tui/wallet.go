package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/circlespay/internal/wallet"
)

type walletModel struct {
	wallet      Wallet
	providerURL string
	session     wallet.Session
	width       int
}

func newWalletModel(w Wallet, providerURL string) walletModel {
	return walletModel{
		wallet:      w,
		providerURL: providerURL,
		session:     wallet.Session{Status: wallet.StatusIdle},
	}
}

func (m walletModel) setSession(s wallet.Session) walletModel {
	m.session = s
	return m
}

func (m walletModel) connect() tea.Cmd {
	w := m.wallet
	return func() tea.Msg {
		w.Connect(context.Background()) //nolint:errcheck // state arrives as a session update
		return nil
	}
}

func (m walletModel) Update(msg tea.Msg) (walletModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "c", "enter":
			if m.session.Status == wallet.StatusIdle || m.session.Status == wallet.StatusError {
				return m, m.connect()
			}
		case "d":
			if m.session.Status != wallet.StatusIdle {
				m.wallet.Disconnect()
			}
		}
	}
	return m, nil
}

func (m walletModel) View() string {
	var b strings.Builder
	s := m.session

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s  %s\n", sectionHeaderStyle.Render("Wallet"), statusBadge(s.Status))

	switch s.Status {
	case wallet.StatusConnected:
		fmt.Fprintf(&b, "\n  %s %s\n", metaStyle.Render("account     "), selectedStyle.Render(s.Address.Hex()))
		if s.HasOrganisation() {
			fmt.Fprintf(&b, "  %s %s\n", metaStyle.Render("organisation"), normalStyle.Render(s.OrganisationAddress.Hex()))
		} else {
			fmt.Fprintf(&b, "  %s %s\n", metaStyle.Render("organisation"), dimStyle.Render("none yet, press 2 to create or connect one"))
		}
	case wallet.StatusConnecting:
		b.WriteString("\n  " + dimStyle.Render("Waiting for your wallet. Approve the request there.") + "\n")
	case wallet.StatusError:
		b.WriteString("\n  " + errorStyle.Render(connectErrorText(s.Err, m.providerURL)) + "\n")
		b.WriteString("  " + dimStyle.Render("press c to try again") + "\n")
	default:
		b.WriteString("\n  " + dimStyle.Render("Not connected. Press c to connect the wallet at "+m.providerURL) + "\n")
	}
	return b.String()
}

func (m walletModel) helpKeys() string {
	switch m.session.Status {
	case wallet.StatusConnected, wallet.StatusConnecting:
		return helpEntry("d", "disconnect")
	}
	return helpEntry("c", "connect")
}

// connectErrorText turns a connect failure into a sentence for the user.
func connectErrorText(err error, providerURL string) string {
	switch wallet.Classify(err) {
	case wallet.KindNone:
		return ""
	case wallet.KindProviderAbsent:
		return fmt.Sprintf("No wallet provider found at %s. Start a wallet such as Frame and try again.", providerURL)
	case wallet.KindUserRejected:
		return "Wallet connection rejected."
	case wallet.KindNetworkRegistrationFailed:
		return "Your wallet could not add Gnosis Chain."
	}
	return "Connection failed: " + err.Error()
}

func statusBadge(s wallet.Status) string {
	switch s {
	case wallet.StatusConnected:
		return accentStyle.Render("● connected")
	case wallet.StatusConnecting:
		return goldStyle.Render("● connecting")
	case wallet.StatusError:
		return errorStyle.Render("● error")
	}
	return metaStyle.Render("○ idle")
}
