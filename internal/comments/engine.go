// Package comments implements the Comment Engine (C11): a write-through
// commentary store with live fan-out and bounded retention, grounded on the
// teacher's synchronous-validate/asynchronous-persist split in
// datasync/chaindatafetcher (Start() launching background handleRequest
// goroutines fed by a channel the public API writes to) generalized onto
// the Event Bus (C9) as the handoff mechanism spec.md §4.11 specifies.
package comments

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/db"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/eventbus"
	"github.com/usezoracle/tba-be/internal/kv"
	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger(log.Comments)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

const (
	TopicCreated = "comment.created"
	MaxCached    = 50
	MaxContent   = 500
)

// Engine is the Comment Engine.
type Engine struct {
	repo *db.Repository
	gw   *kv.Gateway
	bus  *eventbus.Bus
}

func New(repo *db.Repository, gw *kv.Gateway, bus *eventbus.Bus) *Engine {
	e := &Engine{repo: repo, gw: gw, bus: bus}
	bus.On(TopicCreated, e.handleCreated)
	return e
}

func listKey(tokenAddress string) string {
	return "comments:" + strings.ToLower(tokenAddress) + ":list"
}

func channelKey(tokenAddress string) string {
	return "comments:" + strings.ToLower(tokenAddress)
}

// Create validates input synchronously, resolves/creates the user,
// publishes comment.created, and returns a Processing stub immediately
// (spec.md §4.11).
func (e *Engine) Create(ctx context.Context, tokenAddress, walletAddress, content string) (domain.Comment, error) {
	if !walletPattern.MatchString(walletAddress) {
		return domain.Comment{}, apperr.Validation("walletAddress must match ^0x[0-9a-fA-F]{40}$")
	}
	if len(content) < 1 || len(content) > MaxContent {
		return domain.Comment{}, apperr.Validation("content length must be between 1 and 500")
	}

	tokenAddress = strings.ToLower(tokenAddress)

	user, err := e.repo.GetOrCreateUserByWallet(walletAddress)
	if err != nil {
		return domain.Comment{}, err
	}

	stub := domain.Comment{
		ID:            generateID(),
		TokenAddress:  tokenAddress,
		UserID:        user.ID,
		WalletAddress: strings.ToLower(walletAddress),
		Content:       content,
		CreatedAt:     time.Now(),
		Status:        domain.CommentStatusProcessing,
	}

	e.bus.Emit(TopicCreated, stub, tokenAddress)
	return stub, nil
}

func generateID() string {
	return fmt.Sprintf("comment_%d_%d", time.Now().UnixMilli(), rand.Int63n(1_000_000))
}

// handleCreated persists the comment, warms the cached list, trims it to
// MaxCached, publishes newComment, and prunes DB rows beyond MaxCached per
// token — all asynchronously, never surfacing errors to the original
// caller (spec.md §7 propagation policy).
func (e *Engine) handleCreated(ev eventbus.Event) {
	stub, ok := ev.Payload.(domain.Comment)
	if !ok {
		logger.Errorw("comment.created payload has unexpected type", "payload", ev.Payload)
		return
	}

	ctx := context.Background()
	row := &db.Comment{
		ID:            stub.ID,
		TokenAddress:  stub.TokenAddress,
		UserID:        stub.UserID,
		WalletAddress: stub.WalletAddress,
		Content:       stub.Content,
		Status:        db.CommentStatusPersisted,
		CreatedAt:     stub.CreatedAt,
	}
	if err := e.repo.InsertComment(row); err != nil {
		logger.Errorw("failed to persist comment", "id", stub.ID, "err", err)
		return
	}

	persisted := stub
	persisted.Status = domain.CommentStatusPersisted

	payload, err := marshalComment(persisted)
	if err != nil {
		logger.Errorw("failed to marshal comment for cache", "id", stub.ID, "err", err)
		return
	}

	key := listKey(stub.TokenAddress)
	if err := e.gw.Multi(ctx, []kv.Op{
		kv.LPushOp(key, payload),
		kv.LTrimOp(key, 0, MaxCached-1),
	}); err != nil {
		logger.Errorw("failed to update cached comment list", "id", stub.ID, "err", err)
	}

	if err := e.gw.Publish(ctx, channelKey(stub.TokenAddress), payload); err != nil {
		logger.Errorw("failed to publish newComment", "id", stub.ID, "err", err)
	}

	if err := e.repo.PruneCommentsBeyond(stub.TokenAddress, MaxCached); err != nil {
		logger.Warnw("failed to prune comments beyond cap", "token", stub.TokenAddress, "err", err)
	}
}

// Latest returns up to limit (<=100) comments for tokenAddress, newest
// first. First tries the cached list; on a cache miss falls back to the
// database and warms the cache (spec.md §4.11).
func (e *Engine) Latest(ctx context.Context, tokenAddress string, limit int) ([]domain.Comment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	tokenAddress = strings.ToLower(tokenAddress)
	key := listKey(tokenAddress)

	raw, err := e.gw.LRange(ctx, key, 0, int64(limit-1))
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		out := make([]domain.Comment, 0, len(raw))
		for _, r := range raw {
			c, err := unmarshalComment(r)
			if err != nil {
				continue
			}
			out = append(out, c)
		}
		return out, nil
	}

	rows, err := e.repo.LatestComments(tokenAddress, limit)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainComment(row))
	}

	e.warmCache(ctx, tokenAddress, out)
	return out, nil
}

// warmCache reverse-lpushes out (oldest first so the head ends up newest)
// and trims to MaxCached, per spec.md §4.11.
func (e *Engine) warmCache(ctx context.Context, tokenAddress string, newestFirst []domain.Comment) {
	key := listKey(tokenAddress)
	ops := make([]kv.Op, 0, len(newestFirst)+1)
	for i := len(newestFirst) - 1; i >= 0; i-- {
		payload, err := marshalComment(newestFirst[i])
		if err != nil {
			continue
		}
		ops = append(ops, kv.LPushOp(key, payload))
	}
	ops = append(ops, kv.LTrimOp(key, 0, MaxCached-1))
	if err := e.gw.Multi(ctx, ops); err != nil {
		logger.Warnw("failed to warm comment cache", "token", tokenAddress, "err", err)
	}
}

func toDomainComment(row db.Comment) domain.Comment {
	return domain.Comment{
		ID:            row.ID,
		TokenAddress:  row.TokenAddress,
		UserID:        row.UserID,
		WalletAddress: row.WalletAddress,
		Content:       row.Content,
		CreatedAt:     row.CreatedAt,
		Status:        domain.CommentStatus(row.Status),
	}
}

func marshalComment(c domain.Comment) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalComment(raw string) (domain.Comment, error) {
	var c domain.Comment
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}
