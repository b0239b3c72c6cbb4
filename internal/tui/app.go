package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/naveenspark/circlespay/internal/browser"
	"github.com/naveenspark/circlespay/internal/config"
	"github.com/naveenspark/circlespay/internal/logging"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/domain"
)

type view int

const (
	viewWallet view = iota
	viewOrg
	viewAccept
	viewHistory
	viewTrust
)

// sessionMsg carries the latest wallet session.
type sessionMsg struct {
	session wallet.Session
}

// restoredMsg marks the end of the startup reconnect attempt.
type restoredMsg struct{}

// Options configure the root model.
type Options struct {
	Wallet Wallet
	// Ledger builds the network client view of a session. Defaults to SessionLedger.
	Ledger    func(wallet.Session) Ledger
	Config    config.Config
	Logger    *zap.Logger
	Version   string
	ExportDir string
}

// App is the root Bubbletea model.
type App struct {
	wallet    Wallet
	newLedger func(wallet.Session) Ledger
	updates   <-chan wallet.Session
	stop      func()
	logger    *zap.Logger
	version   string

	session   wallet.Session
	restoring bool

	view       view
	walletTab  walletModel
	org        orgModel
	accept     acceptModel
	history    historyModel
	trust      trustModel
	helpOpen   bool
	helpCursor int
	width      int
	height     int
	frame      int // logo shimmer animation frame
}

// NewApp creates the TUI and subscribes it to session changes. Call Close
// once the program has exited.
func NewApp(opts Options) App {
	if opts.Ledger == nil {
		opts.Ledger = SessionLedger
	}
	logger := logging.OrNop(opts.Logger)
	cfg := opts.Config
	updates, stop := opts.Wallet.Subscribe()
	return App{
		wallet:    opts.Wallet,
		newLedger: opts.Ledger,
		updates:   updates,
		stop:      stop,
		logger:    logger,
		version:   opts.Version,
		session:   wallet.Session{Status: wallet.StatusIdle},
		restoring: true,
		walletTab: newWalletModel(opts.Wallet, cfg.ProviderURL),
		org:       newOrgModel(opts.Wallet),
		accept:    newAcceptModel(cfg.TransferLinkBase),
		history:   newHistoryModel(cfg.PageSize, cfg.PollInterval, cfg.ExplorerTxURL, opts.ExportDir, logger),
		trust:     newTrustModel(),
	}
}

// Close stops the session subscription.
func (a App) Close() {
	a.stop()
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.waitSession(), shimmerTickCmd(), a.restore())
}

// waitSession blocks until the next session change.
func (a App) waitSession() tea.Cmd {
	ch := a.updates
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return sessionMsg{session: s}
	}
}

func (a App) restore() tea.Cmd {
	w := a.wallet
	return func() tea.Msg {
		w.Restore(context.Background())
		return restoredMsg{}
	}
}

// applySession fans a session out to every tab.
func (a App) applySession(s wallet.Session) (App, tea.Cmd) {
	a.logger.Debug("session changed",
		zap.String("status", string(s.Status)),
		zap.String("address", s.Address.Hex()),
		zap.String("organisation", s.OrganisationAddress.Hex()),
	)
	a.session = s
	var l Ledger
	if s.Connected() {
		l = a.newLedger(s)
	}

	var orgCmd, historyCmd, trustCmd tea.Cmd
	a.walletTab = a.walletTab.setSession(s)
	a.org, orgCmd = a.org.setSession(s, l)
	a.accept = a.accept.setSession(s)
	a.history, historyCmd = a.history.setSession(s, l)
	a.trust, trustCmd = a.trust.setSession(s, l)
	return a, tea.Batch(orgCmd, historyCmd, trustCmd)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Chrome: header(2) + tabs(1) + session(1) + help(1) = 5 lines
		bodyMsg := tea.WindowSizeMsg{Width: msg.Width, Height: msg.Height - 5}
		a.walletTab, _ = a.walletTab.Update(bodyMsg)
		a.history, _ = a.history.Update(bodyMsg)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case sessionMsg:
		var cmd tea.Cmd
		a, cmd = a.applySession(msg.session)
		return a, tea.Batch(cmd, a.waitSession())

	case restoredMsg:
		a.restoring = false
		return a, nil

	// Async results go to their owner regardless of the visible tab.
	case orgDiscoveredMsg, orgVerifiedMsg, orgCreatedMsg:
		var cmd tea.Cmd
		a.org, cmd = a.org.Update(msg)
		return a, cmd

	case linkCopiedMsg:
		var cmd tea.Cmd
		a.accept, cmd = a.accept.Update(msg)
		return a, cmd

	case historyTickMsg, historyLoadedMsg, balanceLoadedMsg, latestHashMsg, exportDoneMsg:
		var cmd tea.Cmd
		a.history, cmd = a.history.Update(msg)
		return a, cmd

	case trustLoadedMsg, trustDoneMsg:
		var cmd tea.Cmd
		a.trust, cmd = a.trust.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		// Help overlay captures all keys when open
		if a.helpOpen {
			switch msg.String() {
			case "h", "esc":
				a.helpOpen = false
			case "q", "ctrl+c":
				return a, tea.Quit
			case "j", "down":
				if a.helpCursor < len(helpItems)-1 {
					a.helpCursor++
				}
			case "k", "up":
				if a.helpCursor > 0 {
					a.helpCursor--
				}
			case "enter":
				if item := helpItems[a.helpCursor]; item.url != "" {
					browser.Open(item.url) //nolint:errcheck // best-effort browser open
				}
			}
			return a, nil
		}

		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		// Global keys (only when not editing)
		if !a.isEditing() {
			switch msg.String() {
			case "h":
				a.helpOpen = true
				a.helpCursor = 0
				return a, nil
			case "q":
				return a, tea.Quit
			case "1":
				a.view = viewWallet
				return a, nil
			case "2":
				a.view = viewOrg
				return a, nil
			case "3":
				a.view = viewAccept
				return a, nil
			case "4":
				a.view = viewHistory
				return a, nil
			case "5":
				a.view = viewTrust
				return a, nil
			}
		}

		var cmd tea.Cmd
		switch a.view {
		case viewWallet:
			a.walletTab, cmd = a.walletTab.Update(msg)
		case viewOrg:
			a.org, cmd = a.org.Update(msg)
		case viewAccept:
			a.accept, cmd = a.accept.Update(msg)
		case viewHistory:
			a.history, cmd = a.history.Update(msg)
		case viewTrust:
			a.trust, cmd = a.trust.Update(msg)
		}
		return a, cmd
	}

	return a, nil
}

func (a App) isEditing() bool {
	switch a.view {
	case viewOrg:
		return a.org.editing()
	case viewAccept:
		return a.accept.editing()
	case viewTrust:
		return a.trust.editing()
	}
	return false
}

// sessionLine summarises the wallet and organisation under the tab bar.
func (a App) sessionLine() string {
	s := a.session
	parts := []string{statusBadge(s.Status)}
	if a.restoring && s.Status == wallet.StatusIdle {
		parts[0] = metaStyle.Render("○ restoring")
	}
	if s.HasAddress() {
		parts = append(parts, dimStyle.Render(domain.TruncateAddress(s.Address.Hex())))
	}
	if s.HasOrganisation() {
		parts = append(parts, metaStyle.Render("org")+" "+normalStyle.Render(domain.TruncateAddress(s.OrganisationAddress.Hex())))
	}
	return " " + strings.Join(parts, metaStyle.Render(" · "))
}

func (a App) View() string {
	// Header: centered shimmer logo
	logo := renderShimmerLogo(a.frame)
	logoPad := max((a.width-lipgloss.Width(logo))/2, 0)
	header := strings.Repeat(" ", logoPad) + logo
	if a.version != "" {
		header += "  " + metaStyle.Render(a.version)
	}
	header += "\n"

	type tabEntry struct {
		key  string
		name string
		v    view
	}
	tabs := []tabEntry{
		{"1", "Wallet", viewWallet},
		{"2", "Organisation", viewOrg},
		{"3", "Accept", viewAccept},
		{"4", "History", viewHistory},
		{"5", "Trust", viewTrust},
	}

	// Equal-width columns spread across the terminal
	colWidth := a.width / len(tabs)
	var tabBar strings.Builder
	for _, t := range tabs {
		var label string
		if t.v == a.view {
			label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
		} else {
			label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
		}
		labelWidth := lipgloss.Width(label)
		leftPad := max((colWidth-labelWidth)/2, 0)
		rightPad := max(colWidth-labelWidth-leftPad, 0)
		tabBar.WriteString(strings.Repeat(" ", leftPad) + label + strings.Repeat(" ", rightPad))
	}

	var body, keys string
	switch a.view {
	case viewWallet:
		body, keys = a.walletTab.View(), a.walletTab.helpKeys()
	case viewOrg:
		body, keys = a.org.View(), a.org.helpKeys()
	case viewAccept:
		body = a.accept.View()
		if a.session.HasOrganisation() {
			keys = a.accept.helpKeys()
		}
	case viewHistory:
		body, keys = a.history.View(), a.history.helpKeys()
	case viewTrust:
		body, keys = a.trust.View(), a.trust.helpKeys()
	}

	help := " " + helpEntry("1-5", "tabs")
	if keys != "" {
		help += "  " + keys
	}
	if !a.isEditing() {
		help += "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
	}

	if a.helpOpen {
		body = helpView(a.helpCursor)
		help = " " + helpEntry("j/k", "nav") + "  " + helpEntry("enter", "open") + "  " + helpEntry("esc", "close")
	}

	// Chrome budget: header(2) + tabs(1) + session(1) + help(1) = 5 lines + body
	chrome := 5
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s", header, tabBar.String(), a.sessionLine(), body, help)
}
