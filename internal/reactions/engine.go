// Package reactions implements the Reaction Engine (C12): atomic
// per-resource counters with optimistic-locking fan-out, grounded on the
// teacher's transactional pipeline usage pattern (go-redis's Pipelined/
// TxPipelined, wired in internal/kv) generalized to the
// read-increment-read-verify sequence spec.md §4.12 specifies.
package reactions

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/eventbus"
	"github.com/usezoracle/tba-be/internal/kv"
	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger(log.Reactions)

const TopicReacted = "emoji.reacted"

// Engine is the Reaction Engine.
type Engine struct {
	gw  *kv.Gateway
	bus *eventbus.Bus
}

func New(gw *kv.Gateway, bus *eventbus.Bus) *Engine {
	e := &Engine{gw: gw, bus: bus}
	bus.On(TopicReacted, e.handleReacted)
	return e
}

func hashKey(tokenAddress string) string {
	return "emoji:" + strings.ToLower(tokenAddress)
}

func channelKey(tokenAddress string) string {
	return "emojiUpdates:" + strings.ToLower(tokenAddress)
}

type reactRequest struct {
	TokenAddress string
	Kind         domain.ReactionKind
	Increment    int64
}

// React validates kind/increment, publishes emoji.reacted, and returns a
// Processing stub immediately (spec.md §4.12).
func (e *Engine) React(ctx context.Context, tokenAddress string, kind domain.ReactionKind, increment int64) (string, error) {
	if !domain.IsValidReactionKind(kind) {
		return "", apperr.Validation("emoji must be one of like, love, laugh, wow, sad")
	}
	if increment != 1 && increment != 2 && increment != 3 {
		return "", apperr.Validation("increment must be 1, 2, or 3")
	}

	req := reactRequest{TokenAddress: strings.ToLower(tokenAddress), Kind: kind, Increment: increment}
	id := fmt.Sprintf("reaction_%d_%d", time.Now().UnixMilli(), rand.Int63n(1_000_000))
	e.bus.Emit(TopicReacted, req, req.TokenAddress)
	return id, nil
}

type countUpdateMessage struct {
	Type          string                  `json:"type"`
	Counts        domain.ReactionCounters `json:"counts"`
	Emoji         domain.ReactionKind     `json:"emoji"`
	PreviousCount int64                   `json:"previousCount"`
	NewCount      int64                   `json:"newCount"`
	Timestamp     time.Time               `json:"timestamp"`
}

// handleReacted runs the transactional (hget, hincrBy, hgetAll) sequence,
// reverts on a detected regression, and publishes emojiCountUpdate — all
// asynchronously (spec.md §4.12, §5).
func (e *Engine) handleReacted(ev eventbus.Event) {
	req, ok := ev.Payload.(reactRequest)
	if !ok {
		logger.Errorw("emoji.reacted payload has unexpected type", "payload", ev.Payload)
		return
	}

	ctx := context.Background()
	key := hashKey(req.TokenAddress)
	field := string(req.Kind)

	// spec.md §5: the (hget, hincrBy, hgetAll) triple runs as one pipelined
	// transaction so the read-increment-read sequence is linearizable.
	hgetOp, hgetResult := kv.HGetOp(key, field)
	hincrOp, hincrResult := kv.HIncrByOp(key, field, req.Increment)
	hgetAllOp, hgetAllResult := kv.HGetAllOp(key)

	if err := e.gw.Multi(ctx, []kv.Op{hgetOp, hincrOp, hgetAllOp}); err != nil {
		logger.Errorw("failed to run reaction counter pipeline", "token", req.TokenAddress, "err", err)
		return
	}

	prevStr, _, err := hgetResult()
	if err != nil {
		logger.Errorw("failed to read previous reaction count", "token", req.TokenAddress, "err", err)
		return
	}
	prev := parseCount(prevStr)

	newCount, err := hincrResult()
	if err != nil {
		logger.Errorw("failed to increment reaction count", "token", req.TokenAddress, "err", err)
		return
	}

	raw, err := hgetAllResult()
	if err != nil {
		logger.Errorw("failed to read reaction counts", "token", req.TokenAddress, "err", err)
		return
	}
	counts := domain.NormalizedReactionCounters(raw)

	if newCount < prev {
		logger.Errorw("reaction count regression detected, reverting", "token", req.TokenAddress, "kind", req.Kind, "previous", prev, "observed", newCount)
		if err := e.gw.HSet(ctx, key, field, strconv.FormatInt(prev, 10)); err != nil {
			logger.Errorw("failed to revert reaction count", "token", req.TokenAddress, "err", err)
		}
		return
	}

	msg := countUpdateMessage{
		Type:          "emojiCountUpdate",
		Counts:        counts,
		Emoji:         req.Kind,
		PreviousCount: prev,
		NewCount:      newCount,
		Timestamp:     time.Now(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Errorw("failed to marshal emojiCountUpdate", "token", req.TokenAddress, "err", err)
		return
	}
	if err := e.gw.Publish(ctx, channelKey(req.TokenAddress), string(payload)); err != nil {
		logger.Errorw("failed to publish emojiCountUpdate", "token", req.TokenAddress, "err", err)
	}
}

// Counts returns the normalized counters for tokenAddress.
func (e *Engine) Counts(ctx context.Context, tokenAddress string) (domain.ReactionCounters, error) {
	raw, err := e.gw.HGetAll(ctx, hashKey(tokenAddress))
	if err != nil {
		return nil, err
	}
	return domain.NormalizedReactionCounters(raw), nil
}

func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
