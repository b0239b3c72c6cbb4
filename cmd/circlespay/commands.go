package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/naveenspark/circlespay/internal/config"
	"github.com/naveenspark/circlespay/internal/ledgerview"
	"github.com/naveenspark/circlespay/internal/logging"
	"github.com/naveenspark/circlespay/internal/payment"
	"github.com/naveenspark/circlespay/internal/wallet"
	"github.com/naveenspark/circlespay/pkg/circles"
	"github.com/naveenspark/circlespay/pkg/domain"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "circlespay "+version)
		},
	}
}

// logoutCmd removes the session marker. A running terminal notices the
// removal and disconnects.
func logoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the wallet session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _, err := g.load()
			if err != nil {
				return err
			}
			marker := wallet.NewFileMarker(config.MarkerPath(dir))
			if !marker.Connected() {
				fmt.Fprintln(cmd.OutOrStdout(), "Already logged out.")
				return nil
			}
			if err := marker.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func linkCmd(g *globals) *cobra.Command {
	var pngPath string
	var pngSize int
	cmd := &cobra.Command{
		Use:   "link <organisation> <amount>",
		Short: "Print a payment link and its QR code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := g.load()
			if err != nil {
				return err
			}
			org, err := domain.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("organisation: %w", err)
			}
			amount, err := payment.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("amount: %w", err)
			}
			link := payment.Link(cfg.TransferLinkBase, org, amount)

			out := cmd.OutOrStdout()
			if pngPath != "" {
				if err := payment.SavePNG(link, pngPath, pngSize); err != nil {
					return err
				}
				fmt.Fprintf(out, "QR code written to %s\n", pngPath)
			} else {
				qr, err := payment.QR(link)
				if err != nil {
					return err
				}
				fmt.Fprint(out, qr)
			}
			fmt.Fprintf(out, "Scan to Send %s CRC\n%s\n", amount, link)
			return nil
		},
	}
	cmd.Flags().StringVar(&pngPath, "png", "", "write the QR code to a PNG file instead of the terminal")
	cmd.Flags().IntVar(&pngSize, "size", 256, "PNG size in pixels")
	return cmd
}

func exportCmd(g *globals) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export <organisation>",
		Short: "Write an organisation's transaction history as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			org, err := domain.ParseAddress(args[0])
			if err != nil {
				return fmt.Errorf("organisation: %w", err)
			}
			logger, err := logging.New(config.LogPath(dir), g.verbose)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			src := ledgerview.FromClient(circles.New(cfg.CirclesClient()))
			view := ledgerview.New(src, org,
				ledgerview.WithPageSize(cfg.PageSize),
				ledgerview.WithLogger(logger),
			)

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "-" {
				if outPath == "" {
					outPath = ledgerview.ExportFilename
				}
				if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
					return err
				}
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close() //nolint:errcheck
				w = f
			}

			n, err := view.ExportCSV(cmd.Context(), w)
			if err != nil {
				return err
			}
			logger.Info("exported history", zap.String("avatar", org.Hex()), zap.Int("rows", n))
			if outPath != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "exported %d transactions to %s\n", n, outPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", `output file, "-" for stdout (default transactions.csv)`)
	return cmd
}

// configCmd prints the effective configuration, or writes the defaults.
func configCmd(g *globals) *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, cfg, err := g.load()
			if err != nil {
				return err
			}
			if write {
				path := config.Path(dir)
				if err := cfg.Save(path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "save the effective configuration to config.yaml")
	return cmd
}
