package ledgerview

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/naveenspark/circlespay/pkg/domain"
)

// ExportFilename is the suggested name of the CSV export.
const ExportFilename = "transactions.csv"

var csvHeader = []string{"Timestamp", "Version", "From Address", "To Address", "Amount (CRC)", "Txn Hash"}

// isoMillis is UTC with milliseconds, as in 2024-01-02T03:04:05.000Z.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// ExportCSV writes the whole history of the view's avatar to w and returns the
// number of transactions written.
func (v *View) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	all, err := v.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("ledgerview.ExportCSV: %w", err)
	}
	if err := WriteCSV(w, all); err != nil {
		return 0, fmt.Errorf("ledgerview.ExportCSV: %w", err)
	}
	return len(all), nil
}

// WriteCSV writes txs with a plain header row, every data field quoted and
// CRLF between lines.
func WriteCSV(w io.Writer, txs []domain.Transaction) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strings.Join(csvHeader, ",")) //nolint:errcheck
	for _, tx := range txs {
		bw.WriteString("\r\n") //nolint:errcheck
		fields := []string{
			tx.Time().Format(isoMillis),
			tx.VersionLabel(),
			strings.ToLower(tx.From.Hex()),
			strings.ToLower(tx.To.Hex()),
			tx.Amount(),
			tx.TransactionHash.Hex(),
		}
		for i, f := range fields {
			if i > 0 {
				bw.WriteByte(',') //nolint:errcheck
			}
			bw.WriteString(quote(f)) //nolint:errcheck
		}
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
