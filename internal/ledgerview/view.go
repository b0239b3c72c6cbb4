package ledgerview

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/naveenspark/circlespay/internal/logging"
	"github.com/naveenspark/circlespay/pkg/domain"
)

// DefaultPageSize is the number of transactions per history page.
const DefaultPageSize = 20

// Page is one batch of history rows. It remembers the query it came from so
// More can continue that query.
type Page struct {
	Rows    []domain.Transaction
	HasMore bool

	query Pager
}

// View reads the history and balance of one avatar.
type View struct {
	src      Source
	avatar   common.Address
	pageSize int
	names    *NameResolver
	logger   *zap.Logger
}

// Option configures a View.
type Option func(*View)

// WithPageSize overrides DefaultPageSize.
func WithPageSize(n int) Option {
	return func(v *View) {
		if n > 0 {
			v.pageSize = n
		}
	}
}

// WithNameResolver shares a resolver, and its cache, between views.
func WithNameResolver(r *NameResolver) Option {
	return func(v *View) { v.names = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(v *View) { v.logger = logging.OrNop(l) }
}

// New creates a view over avatar's ledger data.
func New(src Source, avatar common.Address, opts ...Option) *View {
	v := &View{
		src:      src,
		avatar:   avatar,
		pageSize: DefaultPageSize,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.names == nil {
		v.names = NewNameResolver(src, v.logger)
	}
	return v
}

// Avatar returns the address this view reads.
func (v *View) Avatar() common.Address {
	return v.avatar
}

// FirstPage starts a fresh history query and returns its first page.
func (v *View) FirstPage(ctx context.Context) (Page, error) {
	q := v.src.History(v.avatar, v.pageSize)
	page, err := v.load(ctx, q)
	if err != nil {
		return Page{}, fmt.Errorf("ledgerview.FirstPage: %w", err)
	}
	return page, nil
}

// More continues the query that produced prev, even when FirstPage has
// started a newer one since.
func (v *View) More(ctx context.Context, prev Page) (Page, error) {
	if prev.query == nil {
		return v.FirstPage(ctx)
	}
	page, err := v.load(ctx, prev.query)
	if err != nil {
		return Page{}, fmt.Errorf("ledgerview.More: %w", err)
	}
	return page, nil
}

func (v *View) load(ctx context.Context, q Pager) (Page, error) {
	more, err := q.QueryNextPage(ctx)
	if err != nil {
		return Page{}, err
	}
	rows, err := v.names.WithNames(ctx, q.CurrentPage())
	if err != nil {
		return Page{}, err
	}
	return Page{Rows: rows, HasMore: more, query: q}, nil
}

// Balance returns the v1 and v2 totals added up, truncated to three decimals.
func (v *View) Balance(ctx context.Context) (string, error) {
	var v1, v2 string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		v1, err = v.src.TotalBalance(gctx, v.avatar)
		return err
	})
	g.Go(func() error {
		var err error
		v2, err = v.src.TotalBalanceV2(gctx, v.avatar)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("ledgerview.Balance: %w", err)
	}
	return domain.SumDecimals(v1, v2), nil
}

// LatestHash returns the hash of the newest transaction. ok is false when the
// avatar has no history.
func (v *View) LatestHash(ctx context.Context) (hash common.Hash, ok bool, err error) {
	q := v.src.History(v.avatar, 1)
	if _, err := q.QueryNextPage(ctx); err != nil {
		return common.Hash{}, false, fmt.Errorf("ledgerview.LatestHash: %w", err)
	}
	rows := q.CurrentPage()
	if len(rows) == 0 {
		return common.Hash{}, false, nil
	}
	return rows[0].TransactionHash, true, nil
}

// All walks every history page. Names are not resolved.
func (v *View) All(ctx context.Context) ([]domain.Transaction, error) {
	q := v.src.History(v.avatar, v.pageSize)
	var all []domain.Transaction
	for {
		more, err := q.QueryNextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("ledgerview.All: %w", err)
		}
		all = append(all, q.CurrentPage()...)
		if !more {
			break
		}
	}
	v.logger.Debug("history walked", zap.String("avatar", v.avatar.Hex()), zap.Int("rows", len(all)))
	return all, nil
}
