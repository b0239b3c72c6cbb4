package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/naveenspark/circlespay/internal/config"
	"github.com/naveenspark/circlespay/internal/logging"
	"github.com/naveenspark/circlespay/internal/tui"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/internal/wallet/eip1193"
)

// globals are the persistent flags shared by every command.
type globals struct {
	home    string
	verbose bool
}

// load resolves the state directory and reads its config.
func (g *globals) load() (string, *config.Config, error) {
	dir := g.home
	if dir == "" {
		var err error
		if dir, err = config.Home(); err != nil {
			return "", nil, err
		}
	}
	cfg, err := config.Load(config.Path(dir))
	if err != nil {
		return "", nil, err
	}
	return dir, cfg, nil
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "circlespay",
		Short:         "Accept Circles payments for your organisation from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), g)
		},
	}

	root.PersistentFlags().StringVar(&g.home, "home", "", "state directory (default $CIRCLESPAY_HOME or ~/.circlespay)")
	root.PersistentFlags().BoolVar(&g.verbose, "verbose", false, "write debug logs")

	root.AddCommand(versionCmd(), logoutCmd(g), linkCmd(g), exportCmd(g), configCmd(g))
	return root
}

func runTUI(ctx context.Context, g *globals) error {
	dir, cfg, err := g.load()
	if err != nil {
		return err
	}
	// The TUI owns the terminal, so logs go to a file.
	logger, err := logging.New(config.LogPath(dir), g.verbose)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chain := cfg.WalletChain()
	marker := wallet.NewFileMarker(config.MarkerPath(dir))
	mgr := wallet.NewManager(wallet.Options{
		Locate:    eip1193.Locator(cfg.ProviderURL, logger),
		Chain:     chain,
		Marker:    marker,
		NewClient: wallet.NewClientFactory(cfg.CirclesClient(), chain),
		Logger:    logger,
	})
	// The marker stays so the next start restores the session.
	defer func() {
		if err := mgr.Close(); err != nil {
			logger.Debug("close wallet provider", zap.Error(err))
		}
	}()
	if err := marker.Watch(ctx, mgr.HandleMarkerRemoved); err != nil {
		logger.Warn("marker watch unavailable", zap.Error(err))
	}

	exportDir, err := os.Getwd()
	if err != nil {
		exportDir = dir
	}

	logger.Info("starting",
		zap.String("version", version),
		zap.String("provider", cfg.ProviderURL),
		zap.String("rpc", cfg.Circles.RPCURL),
	)

	app := tui.NewApp(tui.Options{
		Wallet:    mgr,
		Config:    *cfg,
		Logger:    logger,
		Version:   version,
		ExportDir: exportDir,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}
