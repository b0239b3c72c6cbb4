package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/domain"
)

type trustLoadedMsg struct {
	gen       int
	relations []domain.TrustRelation
	err       error
}

type trustDoneMsg struct {
	gen     int
	target  common.Address
	untrust bool
	err     error
}

type trustModel struct {
	ledger Ledger
	org    common.Address
	gen    int

	incoming []domain.TrustRelation
	outgoing []domain.TrustRelation
	loading  bool

	focused bool
	untrust bool // the input revokes instead of grants
	target  string
	busy    bool
	status  string
	err     string
}

func newTrustModel() trustModel {
	return trustModel{}
}

func (m trustModel) setSession(s wallet.Session, l Ledger) (trustModel, tea.Cmd) {
	if m.ledger == l && m.org == s.OrganisationAddress {
		return m, nil
	}
	m.gen++
	m.ledger, m.org = l, s.OrganisationAddress
	m.incoming, m.outgoing = nil, nil
	m.focused, m.busy, m.target, m.status, m.err = false, false, "", "", ""
	if l == nil || !s.HasOrganisation() {
		m.ledger = nil
		return m, nil
	}
	m.loading = true
	return m, m.load()
}

func (m trustModel) load() tea.Cmd {
	gen, l, org := m.gen, m.ledger, m.org
	return func() tea.Msg {
		rels, err := l.AggregatedTrustRelations(context.Background(), org)
		return trustLoadedMsg{gen: gen, relations: rels, err: err}
	}
}

func (m trustModel) submit(target common.Address, untrust bool) tea.Cmd {
	gen, l := m.gen, m.ledger
	return func() tea.Msg {
		var err error
		if untrust {
			_, err = l.Untrust(context.Background(), target)
		} else {
			_, err = l.Trust(context.Background(), target)
		}
		return trustDoneMsg{gen: gen, target: target, untrust: untrust, err: err}
	}
}

func (m trustModel) editing() bool {
	return m.focused
}

func (m trustModel) Update(msg tea.Msg) (trustModel, tea.Cmd) {
	switch msg := msg.(type) {
	case trustLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.err = "Failed to load trust relations"
			return m, nil
		}
		m.incoming, m.outgoing = domain.SplitRelations(m.org, msg.relations)
		return m, nil

	case trustDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.busy = false
		if msg.err != nil {
			if msg.untrust {
				m.err = "Untrust failed: " + msg.err.Error()
			} else {
				m.err = "Trust failed: " + msg.err.Error()
			}
			return m, nil
		}
		verb := "trusted"
		if msg.untrust {
			verb = "untrusted"
		}
		m.status = fmt.Sprintf("%s is now %s", msg.target.Hex(), verb)
		m.target = ""
		m.loading = true
		return m, m.load()

	case tea.KeyMsg:
		if m.ledger == nil || m.busy {
			return m, nil
		}
		if m.focused {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "t":
			m.focused, m.untrust = true, false
			m.status, m.err = "", ""
		case "u":
			m.focused, m.untrust = true, true
			m.status, m.err = "", ""
		case "r":
			m.loading = true
			return m, m.load()
		}
	}
	return m, nil
}

func (m trustModel) updateInput(msg tea.KeyMsg) (trustModel, tea.Cmd) {
	switch key := msg.String(); key {
	case "esc":
		m.focused = false
		m.err = ""
	case "enter":
		target, err := domain.ParseAddress(m.target)
		if err != nil {
			m.err = err.Error()
			return m, nil
		}
		m.focused = false
		m.busy = true
		m.err = ""
		m.status = "Submitting transaction…"
		return m, m.submit(target, m.untrust)
	default:
		m.target = editRune(m.target, key)
	}
	return m, nil
}

func (m trustModel) View() string {
	var b strings.Builder
	b.WriteString("\n  " + sectionHeaderStyle.Render("Manage Trust") + "\n\n")

	if m.ledger == nil {
		b.WriteString("  " + dimStyle.Render(needOrgText) + "\n")
		return b.String()
	}

	label := "trust avatar"
	if m.untrust {
		label = "untrust avatar"
	}
	if m.focused || m.target != "" {
		b.WriteString(renderField(label, m.target, "0x...", m.focused) + "\n")
	}
	if m.status != "" {
		b.WriteString("  " + dimStyle.Render(m.status) + "\n")
	}
	if m.err != "" {
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}

	if m.loading {
		b.WriteString("\n  " + dimStyle.Render("loading trust relations...") + "\n")
		return b.String()
	}

	b.WriteString("\n" + renderRelations("Trusted by", m.incoming, m.org))
	b.WriteString("\n" + renderRelations("Trusting", m.outgoing, m.org))
	return b.String()
}

func renderRelations(title string, rels []domain.TrustRelation, org common.Address) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s\n", sectionHeaderStyle.Render(title), metaStyle.Render(fmt.Sprintf("(%d)", len(rels))))
	if len(rels) == 0 {
		b.WriteString("    " + dimStyle.Render("none") + "\n")
		return b.String()
	}
	for _, r := range rels {
		rel := dimStyle.Render(string(r.Relation))
		if r.Relation == domain.RelationMutuallyTrusts {
			rel = accentStyle.Render("mutual")
		}
		fmt.Fprintf(&b, "    %s  %s  %s\n",
			normalStyle.Render(r.Counterpart(org).Hex()),
			rel,
			metaStyle.Render(formatTime(time.Unix(r.Timestamp, 0))),
		)
	}
	return b.String()
}

func (m trustModel) helpKeys() string {
	if m.ledger == nil {
		return ""
	}
	if m.focused {
		return helpEntry("enter", "submit") + "  " + helpEntry("esc", "nav")
	}
	return helpEntry("t", "trust") + "  " + helpEntry("u", "untrust") + "  " + helpEntry("r", "reload")
}
