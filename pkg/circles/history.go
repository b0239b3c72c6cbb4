package circles

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/naveenspark/circlespay/pkg/domain"
)

var transferColumns = []string{
	"blockNumber", "timestamp", "transactionIndex", "logIndex",
	"transactionHash", "version", "from", "to", "value",
}

// HistoryQuery pages backwards through the transfers of one avatar, newest first.
// It is not safe for concurrent use.
type HistoryQuery struct {
	client   *Client
	avatar   common.Address
	pageSize int
	cursor   *domain.Transaction
	page     []domain.Transaction
	done     bool
}

// TransactionHistory starts a paged history query for avatar.
func (c *Client) TransactionHistory(avatar common.Address, pageSize int) *HistoryQuery {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &HistoryQuery{client: c, avatar: avatar, pageSize: pageSize}
}

// QueryNextPage fetches the next page into CurrentPage. It reports whether
// further pages exist after this one.
func (q *HistoryQuery) QueryNextPage(ctx context.Context) (bool, error) {
	if q.done {
		q.page = nil
		return false, nil
	}

	mine := or(equals("from", addressValue(q.avatar)), equals("to", addressValue(q.avatar)))
	filters := []filter{mine}
	if q.cursor != nil {
		filters = []filter{and(mine, q.after(*q.cursor))}
	}

	rows, err := q.client.query(ctx, queryRequest{
		Namespace: "V_Crc",
		Table:     "TransferSummary",
		Columns:   transferColumns,
		Filter:    filters,
		Order:     desc("blockNumber", "transactionIndex", "logIndex"),
		Limit:     q.pageSize + 1,
	})
	if err != nil {
		return false, fmt.Errorf("client.QueryNextPage: %w", err)
	}

	more := len(rows) > q.pageSize
	if more {
		rows = rows[:q.pageSize]
	}
	page := make([]domain.Transaction, 0, len(rows))
	for _, r := range rows {
		page = append(page, transactionFromRecord(r))
	}
	q.page = page
	if len(page) > 0 {
		last := page[len(page)-1]
		q.cursor = &last
	}
	q.done = !more
	return more, nil
}

// CurrentPage returns the rows fetched by the last QueryNextPage.
func (q *HistoryQuery) CurrentPage() []domain.Transaction {
	return q.page
}

// after selects rows strictly older than tx in (block, tx index, log index) order.
func (q *HistoryQuery) after(tx domain.Transaction) filter {
	return or(
		lessThan("blockNumber", tx.BlockNumber),
		and(equals("blockNumber", tx.BlockNumber), lessThan("transactionIndex", tx.TransactionIndex)),
		and(equals("blockNumber", tx.BlockNumber), equals("transactionIndex", tx.TransactionIndex), lessThan("logIndex", tx.LogIndex)),
	)
}

func transactionFromRecord(r record) domain.Transaction {
	return domain.Transaction{
		BlockNumber:      r.uint("blockNumber"),
		TransactionIndex: r.uint("transactionIndex"),
		LogIndex:         r.uint("logIndex"),
		Timestamp:        r.int("timestamp"),
		Version:          int(r.int("version")),
		From:             r.address("from"),
		To:               r.address("to"),
		Value:            r.bigInt("value"),
		TransactionHash:  r.hash("transactionHash"),
	}
}
