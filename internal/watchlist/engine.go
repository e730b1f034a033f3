// Package watchlist implements the Watchlist Engine (C13): a per-user set
// of token addresses with set-level idempotence, grounded on the teacher's
// dual-store reconciliation discipline (the relational store as system of
// record, the KV set as an advisory fast-path cache) per spec.md §4.13 and
// §9 ("Two concurrent storage layers").
package watchlist

import (
	"context"
	"strings"

	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/db"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/eventbus"
	"github.com/usezoracle/tba-be/internal/kv"
	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger(log.Watchlist)

const (
	TopicAdded   = "user.watchlist.token.added"
	TopicRemoved = "user.watchlist.token.removed"
)

type Engine struct {
	repo *db.Repository
	gw   *kv.Gateway
	bus  *eventbus.Bus
}

func New(repo *db.Repository, gw *kv.Gateway, bus *eventbus.Bus) *Engine {
	return &Engine{repo: repo, gw: gw, bus: bus}
}

func setKey(wallet string) string {
	return "watchlist:" + strings.ToLower(wallet)
}

func lowerAll(tokens []string) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = strings.ToLower(t)
	}
	return out
}

// Add implements spec.md §4.13's add operation: DB insert precedes cache
// update so a DB failure cannot leave a phantom cache entry.
func (e *Engine) Add(ctx context.Context, walletAddress string, tokens []string) (addedCount int, err error) {
	walletAddress = strings.ToLower(walletAddress)
	tokens = lowerAll(tokens)

	user, err := e.repo.GetOrCreateUserByWallet(walletAddress)
	if err != nil {
		return 0, err
	}

	existing, err := e.repo.ExistingWatchlistTokens(user.ID, tokens)
	if err != nil {
		return 0, err
	}

	var fresh []string
	for _, t := range tokens {
		if _, ok := existing[t]; !ok {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if err := e.repo.InsertWatchlistEntries(user.ID, fresh); err != nil {
		return 0, err
	}

	ops := make([]kv.Op, 0, len(fresh))
	key := setKey(walletAddress)
	for _, t := range fresh {
		ops = append(ops, kv.SAddOp(key, t))
	}
	if err := e.gw.Multi(ctx, ops); err != nil {
		logger.Warnw("failed to pipeline watchlist cache adds", "wallet", walletAddress, "err", err)
	}

	e.bus.Emit(TopicAdded, fresh, walletAddress)
	return len(fresh), nil
}

// Remove implements spec.md §4.13's remove operation.
func (e *Engine) Remove(ctx context.Context, walletAddress string, tokens []string) (removedCount int, err error) {
	walletAddress = strings.ToLower(walletAddress)
	tokens = lowerAll(tokens)

	user, err := e.repo.FindUserByWallet(walletAddress)
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, apperr.NotFound("no user for wallet " + walletAddress)
	}

	count, err := e.repo.DeleteWatchlistEntries(user.ID, tokens)
	if err != nil {
		return 0, err
	}

	ops := make([]kv.Op, 0, len(tokens))
	key := setKey(walletAddress)
	for _, t := range tokens {
		ops = append(ops, kv.SRemOp(key, t))
	}
	if err := e.gw.Multi(ctx, ops); err != nil {
		logger.Warnw("failed to pipeline watchlist cache removes", "wallet", walletAddress, "err", err)
	}

	e.bus.Emit(TopicRemoved, tokens, walletAddress)
	return count, nil
}

// List paginates a user's watchlist newest-first, clamping page>=1 and
// limit in [1,100] with default (1,20), per spec.md §4.13.
func (e *Engine) List(ctx context.Context, walletAddress string, page, limit int) ([]domain.WatchlistEntry, domain.Pagination, error) {
	walletAddress = strings.ToLower(walletAddress)
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	user, err := e.repo.FindUserByWallet(walletAddress)
	if err != nil {
		return nil, domain.Pagination{}, err
	}
	if user == nil {
		return nil, domain.Pagination{}, apperr.NotFound("no user for wallet " + walletAddress)
	}

	rows, total, err := e.repo.ListWatchlist(user.ID, page, limit)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	out := make([]domain.WatchlistEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.WatchlistEntry{
			ID:           row.ID,
			UserID:       row.UserID,
			TokenAddress: row.TokenAddress,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return out, domain.NewPagination(page, limit, total), nil
}

// Contains reports set membership; an absent user yields false rather than
// NotFound, per spec.md §4.13 ("convenience lookups").
func (e *Engine) Contains(ctx context.Context, walletAddress, tokenAddress string) (bool, error) {
	user, err := e.repo.FindUserByWallet(strings.ToLower(walletAddress))
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return e.repo.ContainsWatchlistEntry(user.ID, tokenAddress)
}

// Count returns the number of tokens a wallet watches; an absent user
// yields 0.
func (e *Engine) Count(ctx context.Context, walletAddress string) (int, error) {
	user, err := e.repo.FindUserByWallet(strings.ToLower(walletAddress))
	if err != nil {
		return 0, err
	}
	if user == nil {
		return 0, nil
	}
	return e.repo.CountWatchlist(user.ID)
}
