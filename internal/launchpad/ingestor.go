// Package launchpad implements the External Feed Ingestor (C15): a
// reconnecting subscriber to an upstream launchpad push feed, grounded on
// the teacher's datasync/chaindatafetcher reconnect-on-error loop
// (fetchingStarted guarded by a retry sleep around the upstream RPC
// subscription) generalized onto an HTTP streaming source, since spec.md
// §1 leaves the feed's wire protocol unspecified and out of scope — only
// the normalized item shape is specified.
package launchpad

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/usezoracle/tba-be/internal/config"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/eventbus"
	"github.com/usezoracle/tba-be/internal/kv"
	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger(log.Launchpad)

const (
	TopicNewToken = "new-token-created"

	ListKey   = "new-tokens:list"
	EventsKey = "new-tokens:events"
	Channel   = "new-tokens:updates"

	MaxCached  = 200
	DedupTTL   = 24 * time.Hour

	reconnectBaseDelay = time.Second
	reconnectMaxDelay  = 30 * time.Second
)

// RawItem is one upstream batch element, in the shape the feed delivers it
// (before allow-list filtering and normalization).
type RawItem struct {
	Address           string    `json:"address"`
	Name              string    `json:"name"`
	Symbol            string    `json:"symbol"`
	Network           string    `json:"network"`
	Protocol          string    `json:"protocol"`
	NetworkID         string    `json:"networkId"`
	CreatedAt         time.Time `json:"createdAt"`
	PriceUSD          *float64  `json:"priceUsd,omitempty"`
	MarketCap         *float64  `json:"marketCap,omitempty"`
	Volume24          *float64  `json:"volume24,omitempty"`
	Holders           *int64    `json:"holders,omitempty"`
	ImageURL          *string   `json:"imageUrl,omitempty"`
	GraduationPercent *float64  `json:"graduationPercent,omitempty"`
	LaunchpadProtocol *string   `json:"launchpadProtocol,omitempty"`
}

// Source streams batches of RawItem until ctx is cancelled or the
// connection fails. A returned error triggers the Ingestor's reconnect
// backoff; Source implementations need not retry internally.
type Source interface {
	Stream(ctx context.Context, onBatch func([]RawItem)) error
}

// Ingestor is the External Feed Ingestor.
type Ingestor struct {
	cfg    config.ExternalFeedConfig
	source Source
	gw     *kv.Gateway
	bus    *eventbus.Bus

	protocols  map[string]struct{}
	networkIDs map[string]struct{}
}

func New(cfg config.ExternalFeedConfig, source Source, gw *kv.Gateway, bus *eventbus.Bus) *Ingestor {
	ing := &Ingestor{
		cfg:        cfg,
		source:     source,
		gw:         gw,
		bus:        bus,
		protocols:  toSet(cfg.Protocols),
		networkIDs: toSet(cfg.NetworkIDs),
	}
	bus.On(TopicNewToken, ing.handleNewToken)
	return ing
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[strings.ToLower(v)] = struct{}{}
	}
	return out
}

// Run connects to the upstream source and reconnects with exponential
// backoff on failure until ctx is cancelled. State is fully recoverable
// from the next batch, so a dropped connection loses no correctness
// (spec.md §4.15).
func (ing *Ingestor) Run(ctx context.Context) {
	delay := reconnectBaseDelay
	for {
		if ctx.Err() != nil {
			return
		}
		err := ing.source.Stream(ctx, ing.handleBatch)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warnw("launchpad feed disconnected, reconnecting", "err", err, "delay", delay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}
}

// handleBatch filters each item by the configured (networkId, protocol)
// allow-list, normalizes survivors, and emits one TopicNewToken event per
// item (spec.md §4.15).
func (ing *Ingestor) handleBatch(items []RawItem) {
	for _, item := range items {
		if !ing.allowed(item.NetworkID, item.Protocol) {
			continue
		}
		token := normalize(item)
		ing.bus.Emit(TopicNewToken, token, token.Address)
	}
}

func (ing *Ingestor) allowed(networkID, protocol string) bool {
	if len(ing.networkIDs) > 0 {
		if _, ok := ing.networkIDs[strings.ToLower(networkID)]; !ok {
			return false
		}
	}
	if len(ing.protocols) > 0 {
		if _, ok := ing.protocols[strings.ToLower(protocol)]; !ok {
			return false
		}
	}
	return true
}

func normalize(item RawItem) domain.LaunchpadToken {
	return domain.LaunchpadToken{
		Address:           strings.ToLower(item.Address),
		Name:              item.Name,
		Symbol:            item.Symbol,
		Network:           item.Network,
		Protocol:          item.Protocol,
		NetworkID:         item.NetworkID,
		CreatedAt:         item.CreatedAt,
		PriceUSD:          item.PriceUSD,
		MarketCap:         item.MarketCap,
		Volume24:          item.Volume24,
		Holders:           item.Holders,
		ImageURL:          item.ImageURL,
		GraduationPercent: item.GraduationPercent,
		LaunchpadProtocol: item.LaunchpadProtocol,
		Timestamp:         time.Now(),
	}
}

// handleNewToken dedupes by address via a TTL'd hash, caps the shared list
// at MaxCached, and publishes to Channel for the SSE Broadcaster, per
// spec.md §4.15.
func (ing *Ingestor) handleNewToken(ev eventbus.Event) {
	token, ok := ev.Payload.(domain.LaunchpadToken)
	if !ok {
		logger.Errorw("new-token-created payload has unexpected type", "payload", ev.Payload)
		return
	}

	ctx := context.Background()

	seen, _, err := ing.gw.HGet(ctx, EventsKey, token.Address)
	if err != nil {
		logger.Errorw("failed to check launchpad dedup hash", "address", token.Address, "err", err)
		return
	}
	if seen != "" {
		return
	}
	if err := ing.gw.HSet(ctx, EventsKey, token.Address, "1"); err != nil {
		logger.Errorw("failed to mark launchpad token seen", "address", token.Address, "err", err)
		return
	}
	if err := ing.gw.Expire(ctx, EventsKey, DedupTTL); err != nil {
		logger.Warnw("failed to set dedup hash TTL", "address", token.Address, "err", err)
	}

	payload, err := json.Marshal(token)
	if err != nil {
		logger.Errorw("failed to marshal launchpad token", "address", token.Address, "err", err)
		return
	}

	if err := ing.gw.Multi(ctx, []kv.Op{
		kv.LPushOp(ListKey, string(payload)),
		kv.LTrimOp(ListKey, 0, MaxCached-1),
	}); err != nil {
		logger.Errorw("failed to update cached launchpad list", "address", token.Address, "err", err)
	}
	if err := ing.gw.Expire(ctx, ListKey, DedupTTL); err != nil {
		logger.Warnw("failed to set launchpad list TTL", "address", token.Address, "err", err)
	}

	if err := ing.gw.Publish(ctx, Channel, string(payload)); err != nil {
		logger.Errorw("failed to publish launchpad update", "address", token.Address, "err", err)
	}
}

// Snapshot returns the newest initial (<=100, default 100) cached
// launchpad tokens, for the SSE Broadcaster's initial `snapshot` event.
func (ing *Ingestor) Snapshot(ctx context.Context, initial int) ([]domain.LaunchpadToken, error) {
	if initial <= 0 || initial > 100 {
		initial = 100
	}
	raw, err := ing.gw.LRange(ctx, ListKey, 0, int64(initial-1))
	if err != nil {
		return nil, err
	}
	out := make([]domain.LaunchpadToken, 0, len(raw))
	for _, r := range raw {
		var t domain.LaunchpadToken
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// List paginates the cached launchpad feed newest-first. offset, when
// non-zero, overrides page (spec.md §6: "offset overrides page").
func (ing *Ingestor) List(ctx context.Context, page, limit, offset int) ([]domain.LaunchpadToken, domain.Pagination, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if page < 1 {
		page = 1
	}
	skip := offset
	if skip <= 0 {
		skip = (page - 1) * limit
	}

	raw, err := ing.gw.LRange(ctx, ListKey, 0, -1)
	if err != nil {
		return nil, domain.Pagination{}, err
	}

	total := len(raw)
	end := skip + limit
	if skip >= total {
		return []domain.LaunchpadToken{}, domain.NewPagination(page, limit, total), nil
	}
	if end > total {
		end = total
	}

	out := make([]domain.LaunchpadToken, 0, end-skip)
	for _, r := range raw[skip:end] {
		var t domain.LaunchpadToken
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, domain.NewPagination(page, limit, total), nil
}
