package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/naveenspark/circlespay/internal/browser"
	"github.com/naveenspark/circlespay/internal/ledgerview"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/domain"
)

type historyTickMsg struct{ gen int }

type historyLoadedMsg struct {
	gen     int
	pageGen int
	page    ledgerview.Page
	append  bool
	err     error
}

type balanceLoadedMsg struct {
	gen     int
	balance string
	err     error
}

type latestHashMsg struct {
	gen  int
	hash common.Hash
	ok   bool
	err  error
}

type exportDoneMsg struct {
	path string
	n    int
	err  error
}

type historyModel struct {
	pageSize     int
	pollInterval time.Duration
	explorerTx   string
	exportDir    string
	logger       *zap.Logger

	view *ledgerview.View
	gen  int
	// pageGen changes with every first-page load so appends from an older
	// query are dropped.
	pageGen int
	// tail is the last page shown; load more continues its query.
	tail ledgerview.Page

	rows        []domain.Transaction
	hasMore     bool
	latest      common.Hash
	balance     string
	loading     bool
	loadingMore bool
	exporting   bool
	cursor      int
	status      string
	err         string
	balanceErr  string
	height      int
}

func newHistoryModel(pageSize int, poll time.Duration, explorerTx, exportDir string, logger *zap.Logger) historyModel {
	return historyModel{
		pageSize:     pageSize,
		pollInterval: poll,
		explorerTx:   explorerTx,
		exportDir:    exportDir,
		logger:       logger,
	}
}

func (m historyModel) tick() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return historyTickMsg{gen: gen}
	})
}

// setSession rebuilds the view when the organisation or ledger changes and
// starts loading and polling it.
func (m historyModel) setSession(s wallet.Session, l Ledger) (historyModel, tea.Cmd) {
	if m.view != nil && l != nil && s.OrganisationAddress == m.view.Avatar() {
		return m, nil
	}
	m.gen++
	m.view = nil
	m.rows, m.hasMore, m.latest = nil, false, common.Hash{}
	m.tail = ledgerview.Page{}
	m.balance, m.balanceErr, m.err, m.status = "", "", "", ""
	m.cursor = 0
	if l == nil || !s.HasOrganisation() {
		return m, nil
	}
	m.view = ledgerview.New(l, s.OrganisationAddress,
		ledgerview.WithPageSize(m.pageSize),
		ledgerview.WithLogger(m.logger),
	)
	m.pageGen++
	m.loading = true
	m.loadingMore = false
	return m, tea.Batch(m.loadFirst(), m.loadBalance(), m.tick())
}

func (m historyModel) loadFirst() tea.Cmd {
	gen, pageGen, v := m.gen, m.pageGen, m.view
	return func() tea.Msg {
		page, err := v.FirstPage(context.Background())
		return historyLoadedMsg{gen: gen, pageGen: pageGen, page: page, err: err}
	}
}

func (m historyModel) loadMore() tea.Cmd {
	gen, pageGen, v, tail := m.gen, m.pageGen, m.view, m.tail
	return func() tea.Msg {
		page, err := v.More(context.Background(), tail)
		return historyLoadedMsg{gen: gen, pageGen: pageGen, page: page, append: true, err: err}
	}
}

func (m historyModel) loadBalance() tea.Cmd {
	gen, v := m.gen, m.view
	return func() tea.Msg {
		balance, err := v.Balance(context.Background())
		return balanceLoadedMsg{gen: gen, balance: balance, err: err}
	}
}

func (m historyModel) poll() tea.Cmd {
	gen, v := m.gen, m.view
	return func() tea.Msg {
		hash, ok, err := v.LatestHash(context.Background())
		return latestHashMsg{gen: gen, hash: hash, ok: ok, err: err}
	}
}

func (m historyModel) export() tea.Cmd {
	v, path := m.view, filepath.Join(m.exportDir, ledgerview.ExportFilename)
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return exportDoneMsg{path: path, err: err}
		}
		n, err := v.ExportCSV(context.Background(), f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		return exportDoneMsg{path: path, n: n, err: err}
	}
}

func (m historyModel) refresh() (historyModel, tea.Cmd) {
	m.pageGen++
	m.loading = true
	m.loadingMore = false
	return m, tea.Batch(m.loadFirst(), m.loadBalance())
}

func (m historyModel) Update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.gen != m.gen || msg.pageGen != m.pageGen {
			return m, nil
		}
		if msg.append {
			m.loadingMore = false
			if msg.err != nil {
				m.err = "Failed to load more"
				return m, nil
			}
			m.rows = append(m.rows, msg.page.Rows...)
		} else {
			m.loading = false
			if msg.err != nil {
				m.err = "Failed to load transactions"
				m.logger.Warn("load transactions", zap.Error(msg.err))
				return m, nil
			}
			m.rows = msg.page.Rows
			m.cursor = 0
			m.latest = common.Hash{}
			if len(m.rows) > 0 {
				m.latest = m.rows[0].TransactionHash
			}
		}
		m.err = ""
		m.tail = msg.page
		m.hasMore = msg.page.HasMore
		return m, nil

	case balanceLoadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		if msg.err != nil {
			m.balance = ""
			m.balanceErr = "Failed to load balance"
			return m, nil
		}
		m.balance, m.balanceErr = msg.balance, ""
		return m, nil

	case historyTickMsg:
		if msg.gen != m.gen || m.view == nil {
			return m, nil
		}
		return m, tea.Batch(m.poll(), m.tick())

	case latestHashMsg:
		if msg.gen != m.gen || msg.err != nil || !msg.ok || m.loading {
			return m, nil
		}
		if msg.hash != m.latest {
			m.logger.Debug("new transaction seen", zap.String("hash", msg.hash.Hex()))
			return m.refresh()
		}
		return m, nil

	case exportDoneMsg:
		m.exporting = false
		if msg.err != nil {
			m.err = "Failed to export CSV"
			m.logger.Warn("export csv", zap.String("path", msg.path), zap.Error(msg.err))
			return m, nil
		}
		m.status = fmt.Sprintf("exported %d transactions to %s", msg.n, msg.path)
		return m, nil

	case tea.WindowSizeMsg:
		m.height = msg.Height

	case tea.KeyMsg:
		if m.view == nil {
			return m, nil
		}
		switch msg.String() {
		case "r":
			m.status = ""
			return m.refresh()
		case "m":
			if m.hasMore && !m.loadingMore && !m.loading {
				m.loadingMore = true
				return m, m.loadMore()
			}
		case "e":
			if !m.exporting {
				m.exporting = true
				m.status = "exporting…"
				return m, m.export()
			}
		case "j", "down":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
			}
		case "o", "enter":
			if m.cursor < len(m.rows) {
				browser.Open(m.explorerTx + m.rows[m.cursor].TransactionHash.Hex()) //nolint:errcheck // best-effort browser open
			}
		}
	}
	return m, nil
}

func (m historyModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	if m.view == nil {
		b.WriteString("  " + dimStyle.Render(needOrgText) + "\n")
		return b.String()
	}

	balance := dimStyle.Render("…")
	switch {
	case m.balanceErr != "":
		balance = errorStyle.Render(m.balanceErr)
	case m.balance != "":
		balance = selectedStyle.Render(m.balance + " CRC")
	}
	fmt.Fprintf(&b, "  %s  %s\n\n", sectionHeaderStyle.Render("Balance"), balance)

	if m.err != "" {
		b.WriteString("  " + errorStyle.Render(m.err) + "\n")
	}
	if m.loading && len(m.rows) == 0 {
		b.WriteString("  " + dimStyle.Render("loading transactions...") + "\n")
		return b.String()
	}
	if len(m.rows) == 0 {
		b.WriteString("  " + dimStyle.Render("no transactions yet") + "\n")
		return b.String()
	}

	header := fmt.Sprintf("  %-16s %-3s %-18s %-18s %12s", "Timestamp", "Ver", "From", "To", "Amount")
	b.WriteString(metaStyle.Render(header) + "\n")

	// Keep the cursor in view: body height minus balance, header and footer lines.
	visible := m.height - 6
	if visible < 5 {
		visible = len(m.rows)
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.rows))
	org := m.view.Avatar()

	for i := start; i < end; i++ {
		tx := m.rows[i]
		line := fmt.Sprintf("  %-16s %-3s %s %s ",
			tx.Time().Local().Format("2006-01-02 15:04"),
			tx.VersionLabel(),
			padRight(truncStr(tx.FromName, 18), 18),
			padRight(truncStr(tx.ToName, 18), 18),
		)
		amount := fmt.Sprintf("%12s", tx.Amount())
		if i == m.cursor {
			b.WriteString(selectedRowBg.Render(selectedStyle.Render(line+amount)) + "\n")
			continue
		}
		amountStyle := debitStyle
		if tx.To == org {
			amountStyle = creditStyle
		}
		b.WriteString(normalStyle.Render(line) + amountStyle.Render(amount) + "\n")
	}

	var footer []string
	if m.loadingMore {
		footer = append(footer, "loading more...")
	} else if m.hasMore {
		footer = append(footer, "more available (m)")
	}
	if m.status != "" {
		footer = append(footer, m.status)
	}
	if len(footer) > 0 {
		b.WriteString("  " + dimStyle.Render(strings.Join(footer, " · ")) + "\n")
	}
	return b.String()
}

func (m historyModel) helpKeys() string {
	if m.view == nil {
		return ""
	}
	keys := helpEntry("j/k", "nav") + "  " + helpEntry("o", "explorer") + "  " + helpEntry("r", "refresh") + "  " + helpEntry("e", "export csv")
	if m.hasMore {
		keys += "  " + helpEntry("m", "more")
	}
	return keys
}
