package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/circlespay/internal/browser"
	"github.com/naveenspark/circlespay/internal/payment"
	"github.com/naveenspark/circlespay/internal/wallet"
)

type linkCopiedMsg struct{ err error }

type acceptModel struct {
	linkBase string
	session  wallet.Session

	focused bool
	input   string
	amount  string
	link    string
	qr      string
	status  string
	err     string
}

func newAcceptModel(linkBase string) acceptModel {
	return acceptModel{linkBase: linkBase}
}

func (m acceptModel) setSession(s wallet.Session) acceptModel {
	if s.OrganisationAddress != m.session.OrganisationAddress {
		m.amount, m.link, m.qr, m.status, m.err = "", "", "", "", ""
		m.focused = false
	}
	m.session = s
	return m
}

func (m acceptModel) editing() bool {
	return m.focused
}

func (m acceptModel) Update(msg tea.Msg) (acceptModel, tea.Cmd) {
	switch msg := msg.(type) {
	case linkCopiedMsg:
		if msg.err != nil {
			m.err = "copy failed: " + msg.err.Error()
		} else {
			m.status = "link copied"
		}
		return m, nil

	case tea.KeyMsg:
		if !m.session.HasOrganisation() {
			return m, nil
		}
		if m.focused {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "enter", "a":
			m.focused = true
			m.status, m.err = "", ""
		case "c":
			if m.link != "" {
				link := m.link
				return m, func() tea.Msg {
					return linkCopiedMsg{err: clipboard.WriteAll(link)}
				}
			}
		case "o":
			if m.link != "" {
				browser.Open(m.link) //nolint:errcheck // best-effort browser open
			}
		}
	}
	return m, nil
}

func (m acceptModel) updateInput(msg tea.KeyMsg) (acceptModel, tea.Cmd) {
	switch key := msg.String(); key {
	case "esc":
		m.focused = false
		m.err = ""
	case "enter":
		amount, err := payment.ParseAmount(m.input)
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		link := payment.Link(m.linkBase, m.session.OrganisationAddress, amount)
		qr, err := payment.QR(link)
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.amount, m.link, m.qr = amount, link, qr
		m.err = ""
		m.focused = false
	default:
		m.input = editRune(m.input, key)
	}
	return m, nil
}

func (m acceptModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + sectionHeaderStyle.Render("Amount to Receive") + "\n\n")

	if !m.session.HasOrganisation() {
		b.WriteString("  " + dimStyle.Render(needOrgText) + "\n")
		return b.String()
	}

	b.WriteString(renderField("CRC amount", m.input, "e.g. 5", m.focused) + "\n")
	if m.err != "" {
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}

	if m.link == "" {
		b.WriteString("\n  " + dimStyle.Render("Enter an amount to generate QR") + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\n  %s\n\n", selectedStyle.Render("Scan to Send "+m.amount+" CRC"))
	b.WriteString(indent(m.qr, "  "))
	b.WriteString("\n  " + normalStyle.Render(m.link) + "\n")
	if m.status != "" {
		b.WriteString("  " + dimStyle.Render(m.status) + "\n")
	}
	return b.String()
}

func (m acceptModel) helpKeys() string {
	if m.focused {
		return helpEntry("enter", "generate") + "  " + helpEntry("esc", "nav")
	}
	keys := helpEntry("enter", "amount")
	if m.link != "" {
		keys += "  " + helpEntry("c", "copy link") + "  " + helpEntry("o", "open")
	}
	return keys
}
