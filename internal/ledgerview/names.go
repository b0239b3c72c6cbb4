package ledgerview

import (
	"context"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/naveenspark/circlespay/internal/logging"
	"github.com/naveenspark/circlespay/pkg/domain"
)

// maxLookups bounds concurrent profile lookups per page.
const maxLookups = 8

// NameResolver maps addresses to profile names. Only names that were found are
// cached, so an avatar that later publishes a profile is picked up.
type NameResolver struct {
	src    Source
	logger *zap.Logger
	group  singleflight.Group

	mu    sync.RWMutex
	cache map[common.Address]string
}

// NewNameResolver creates a resolver with an empty cache.
func NewNameResolver(src Source, logger *zap.Logger) *NameResolver {
	return &NameResolver{
		src:    src,
		logger: logging.OrNop(logger),
		cache:  make(map[common.Address]string),
	}
}

// Resolve returns the profile name of addr, or the truncated address when the
// address has no avatar, no profile or no name.
func (r *NameResolver) Resolve(ctx context.Context, addr common.Address) string {
	r.mu.RLock()
	name, ok := r.cache[addr]
	r.mu.RUnlock()
	if ok {
		return name
	}

	v, _, _ := r.group.Do(addr.Hex(), func() (any, error) {
		return r.lookup(ctx, addr), nil
	})
	if name := v.(string); name != "" {
		r.mu.Lock()
		r.cache[addr] = name
		r.mu.Unlock()
		return name
	}
	return domain.TruncateAddress(strings.ToLower(addr.Hex()))
}

func (r *NameResolver) lookup(ctx context.Context, addr common.Address) string {
	if _, err := r.src.GetAvatarInfo(ctx, addr); err != nil {
		return ""
	}
	profile, err := r.src.GetProfile(ctx, addr)
	if err != nil {
		r.logger.Debug("profile lookup failed", zap.String("address", addr.Hex()), zap.Error(err))
		return ""
	}
	return profile.Name
}

// Cached reports how many names are cached.
func (r *NameResolver) Cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}

// WithNames fills FromName and ToName on a copy of txs.
func (r *NameResolver) WithNames(ctx context.Context, txs []domain.Transaction) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLookups)
	for i := range out {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i].FromName = r.Resolve(gctx, out[i].From)
			out[i].ToName = r.Resolve(gctx, out[i].To)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
