package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/naveenspark/circlespay/internal/payment"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/circles"
	"github.com/naveenspark/circlespay/pkg/domain"
)

const avatarExistsText = "This wallet already has a Circles avatar. " +
	"Please switch to a fresh wallet or use your existing avatar."

type orgMode int

const (
	orgMenu orgMode = iota
	orgConnect
	orgCreate
)

type orgField int

const (
	orgFieldName orgField = iota
	orgFieldDescription
	numOrgFields
)

// orgDiscoveredMsg reports whether the wallet account is itself an avatar.
type orgDiscoveredMsg struct {
	gen  int
	addr common.Address
	err  error
}

type orgVerifiedMsg struct {
	gen  int
	addr common.Address
	err  error
}

type orgCreatedMsg struct {
	gen  int
	addr common.Address
	err  error
}

type orgModel struct {
	wallet  Wallet
	ledger  Ledger
	session wallet.Session
	gen     int

	mode        orgMode
	address     string
	fields      [numOrgFields]string
	focus       orgField
	busy        bool
	discovering bool
	status      string
	err         string
	qr          string
}

func newOrgModel(w Wallet) orgModel {
	return orgModel{wallet: w}
}

// setSession adopts a new session. A connected wallet without an organisation
// is checked for an avatar of its own.
func (m orgModel) setSession(s wallet.Session, l Ledger) (orgModel, tea.Cmd) {
	accountChanged := s.Address != m.session.Address || s.Status != m.session.Status
	orgChanged := s.OrganisationAddress != m.session.OrganisationAddress
	m.session = s
	m.ledger = l
	if orgChanged {
		m.qr = ""
		if s.HasOrganisation() {
			if qr, err := payment.QR(s.OrganisationAddress.Hex()); err == nil {
				m.qr = qr
			}
		}
	}
	if !accountChanged {
		return m, nil
	}

	m.gen++
	m.busy = false
	m.discovering = false
	m.mode = orgMenu
	if !s.Connected() || s.HasOrganisation() || l == nil {
		return m, nil
	}
	m.discovering = true
	return m, m.discover()
}

// errSessionEnded reports an organisation result that arrived after the wallet
// session that asked for it was gone.
var errSessionEnded = errors.New("wallet session ended")

// adopt stores addr for the session that started the command.
func adopt(w Wallet, id uuid.UUID, addr common.Address) error {
	if !w.SetSessionOrganisation(id, addr) {
		return errSessionEnded
	}
	return nil
}

func (m orgModel) discover() tea.Cmd {
	gen, l, w, account, id := m.gen, m.ledger, m.wallet, m.session.Address, m.session.ID
	return func() tea.Msg {
		if _, err := l.GetAvatarInfo(context.Background(), account); err != nil {
			return orgDiscoveredMsg{gen: gen, err: err}
		}
		if err := adopt(w, id, account); err != nil {
			return orgDiscoveredMsg{gen: gen, err: err}
		}
		return orgDiscoveredMsg{gen: gen, addr: account}
	}
}

func (m orgModel) verify(addr common.Address) tea.Cmd {
	gen, l, w, id := m.gen, m.ledger, m.wallet, m.session.ID
	return func() tea.Msg {
		if _, err := l.GetAvatarInfo(context.Background(), addr); err != nil {
			return orgVerifiedMsg{gen: gen, addr: addr, err: err}
		}
		if err := adopt(w, id, addr); err != nil {
			return orgVerifiedMsg{gen: gen, addr: addr, err: err}
		}
		return orgVerifiedMsg{gen: gen, addr: addr}
	}
}

func (m orgModel) create(profile domain.Profile) tea.Cmd {
	gen, l, w, id := m.gen, m.ledger, m.wallet, m.session.ID
	return func() tea.Msg {
		addr, err := l.RegisterOrganization(context.Background(), profile)
		if err != nil {
			return orgCreatedMsg{gen: gen, err: err}
		}
		if err := adopt(w, id, addr); err != nil {
			return orgCreatedMsg{gen: gen, addr: addr, err: err}
		}
		return orgCreatedMsg{gen: gen, addr: addr}
	}
}

func (m orgModel) editing() bool {
	return m.mode != orgMenu && !m.busy
}

func (m orgModel) Update(msg tea.Msg) (orgModel, tea.Cmd) {
	switch msg := msg.(type) {
	case orgDiscoveredMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.discovering = false
		if msg.err == nil {
			m.status = "Organisation automatically connected from your wallet"
		}
		return m, nil

	case orgVerifiedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			m.err = "Connection failed: " + verifyErrorText(msg.err)
			return m, nil
		}
		m.mode = orgMenu
		m.address = ""
		m.status = "Organisation connected"
		return m, nil

	case orgCreatedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			if circles.IsAvatarAlreadyExists(msg.err) {
				m.err = avatarExistsText
			} else {
				m.err = msg.err.Error()
			}
			return m, nil
		}
		m.mode = orgMenu
		m.fields = [numOrgFields]string{}
		m.focus = orgFieldName
		m.status = "Organisation created"
		return m, nil

	case tea.KeyMsg:
		if m.busy || !m.session.Connected() {
			return m, nil
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m orgModel) updateKeys(msg tea.KeyMsg) (orgModel, tea.Cmd) {
	key := msg.String()
	switch m.mode {
	case orgMenu:
		switch key {
		case "e":
			m.mode = orgConnect
			m.status, m.err = "", ""
		case "n":
			m.mode = orgCreate
			m.status, m.err = "", ""
		case "x":
			if m.session.HasOrganisation() {
				m.wallet.SetOrganisationAddress(common.Address{})
				m.status = "Organisation forgotten"
			}
		}
		return m, nil

	case orgConnect:
		switch key {
		case "esc":
			m.mode = orgMenu
			m.err = ""
		case "enter":
			addr, err := domain.ParseAddress(m.address)
			if err != nil {
				m.err = err.Error()
				return m, nil
			}
			m.err = ""
			m.busy = true
			m.status = "Verifying organisation…"
			return m, m.verify(addr)
		default:
			m.address = editRune(m.address, key)
		}
		return m, nil

	case orgCreate:
		switch key {
		case "esc":
			m.mode = orgMenu
			m.err = ""
		case "tab", "down", "shift+tab", "up":
			m.focus = (m.focus + 1) % numOrgFields
		case "enter":
			if m.focus == orgFieldName {
				m.focus = orgFieldDescription
				return m, nil
			}
			return m.submitCreate()
		case "ctrl+s":
			return m.submitCreate()
		default:
			m.fields[m.focus] = editRune(m.fields[m.focus], key)
		}
	}
	return m, nil
}

func (m orgModel) submitCreate() (orgModel, tea.Cmd) {
	name := strings.TrimSpace(m.fields[orgFieldName])
	if name == "" {
		m.err = "please enter a name"
		m.focus = orgFieldName
		return m, nil
	}
	m.err = ""
	m.busy = true
	m.status = "Submitting transaction…"
	return m, m.create(domain.Profile{
		Name:        name,
		Description: strings.TrimSpace(m.fields[orgFieldDescription]),
	})
}

func verifyErrorText(err error) string {
	if errors.Is(err, circles.ErrAvatarNotFound) {
		return "no Circles avatar at that address"
	}
	return err.Error()
}

func (m orgModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + sectionHeaderStyle.Render("Organisation") + "\n\n")

	if !m.session.Connected() {
		b.WriteString("  " + dimStyle.Render("Connect your wallet first (tab 1).") + "\n")
		return b.String()
	}

	if m.discovering {
		b.WriteString("  " + dimStyle.Render("Checking your wallet for an organisation avatar…") + "\n")
		return b.String()
	}

	switch m.mode {
	case orgConnect:
		b.WriteString("  " + normalStyle.Render("Connect an existing organisation") + "\n\n")
		b.WriteString(renderField("address", m.address, "0x…", true) + "\n")
	case orgCreate:
		b.WriteString("  " + normalStyle.Render("Create a new organisation") + "\n\n")
		b.WriteString(renderField("name", m.fields[orgFieldName], "e.g. Circles Café", m.focus == orgFieldName) + "\n")
		b.WriteString(renderField("description", m.fields[orgFieldDescription], "optional, what your organisation does", m.focus == orgFieldDescription) + "\n")
	default:
		if m.session.HasOrganisation() {
			fmt.Fprintf(&b, "  %s\n  %s\n", accentStyle.Render("Organisation connected"), selectedStyle.Render(m.session.OrganisationAddress.Hex()))
			if m.qr != "" {
				b.WriteString("\n" + indent(m.qr, "  "))
			}
		} else {
			b.WriteString("  " + dimStyle.Render("No organisation yet.") + "\n")
		}
		b.WriteString("\n  " + helpEntry("e", "connect existing") + "  " + helpEntry("n", "create new") + "\n")
	}

	if m.status != "" {
		b.WriteString("\n  " + dimStyle.Render(m.status) + "\n")
	}
	if m.err != "" {
		b.WriteString("\n  " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m orgModel) helpKeys() string {
	switch m.mode {
	case orgConnect:
		return helpEntry("enter", "verify") + "  " + helpEntry("esc", "back")
	case orgCreate:
		return helpEntry("tab", "next") + "  " + helpEntry("ctrl+s", "create") + "  " + helpEntry("esc", "back")
	}
	keys := helpEntry("e", "connect") + "  " + helpEntry("n", "create")
	if m.session.HasOrganisation() {
		keys += "  " + helpEntry("x", "forget")
	}
	return keys
}
