// Package tokenrepo implements the Token Repository (C8): a write-through
// cache for classified tokens, partitioned by appType, grounded on the
// teacher's datasync/chaindatafetcher/kafka/repository.go merge-on-write
// shape (HandleChainEvent dispatching by type into a keyed store) adapted
// into the address-keyed newest-wins merge spec.md §4.8 specifies.
package tokenrepo

import (
	"context"
	"sync"
	"time"

	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/eventbus"
	"github.com/usezoracle/tba-be/internal/kv"
	"github.com/usezoracle/tba-be/internal/log"
)

var logger = log.NewModuleLogger(log.Repository)

const (
	PartitionPrimary = "zora:tokens"
	PartitionPaired  = "tba:tokens"

	// DefaultTTL is the configurable cache TTL for persisted partitions
	// (spec.md §4.8: "default 3600s").
	DefaultTTL = time.Hour

	// TopicNewTokenDiscovered is emitted whenever a scan merges new or
	// updated records into a partition.
	TopicNewTokenDiscovered = "token.discovered"
)

// Repository is the Token Repository: two named partitions ("Primary",
// "Paired") persisted through the KV gateway, with an in-process mirror for
// fast reads that never blocks writers beyond a single atomic swap.
type Repository struct {
	gw  *kv.Gateway
	bus *eventbus.Bus
	ttl time.Duration

	mu         sync.RWMutex
	partitions map[string]domain.TokenPartition
}

func New(gw *kv.Gateway, bus *eventbus.Bus, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{
		gw:  gw,
		bus: bus,
		ttl: ttl,
		partitions: map[string]domain.TokenPartition{
			PartitionPrimary: {Name: PartitionPrimary, Meta: domain.PartitionMeta{ByCoinType: map[domain.CoinType]int{}}},
			PartitionPaired:  {Name: PartitionPaired, Meta: domain.PartitionMeta{ByCoinType: map[domain.CoinType]int{}}},
		},
	}
}

func partitionKey(appType domain.AppType) string {
	if appType == domain.AppTypePaired {
		return PartitionPaired
	}
	return PartitionPrimary
}

// Merge partitions new records by appType and merges each partition by
// tokenAddress key with newest-wins semantics, persisting both partitions
// atomically from the caller's perspective (spec.md §4.8), then publishes
// TopicNewTokenDiscovered for each partition that changed.
func (r *Repository) Merge(ctx context.Context, records []domain.TokenRecord) error {
	byPartition := map[string][]domain.TokenRecord{PartitionPrimary: nil, PartitionPaired: nil}
	for _, rec := range records {
		key := partitionKey(rec.AppType)
		byPartition[key] = append(byPartition[key], rec)
	}

	r.mu.Lock()
	for key, newRecords := range byPartition {
		if len(newRecords) == 0 {
			continue
		}
		existing := r.partitions[key]
		merged := mergeByAddress(existing.Records, newRecords)
		r.partitions[key] = domain.TokenPartition{
			Name:    key,
			Records: merged,
			Meta:    recomputeMeta(merged),
		}
	}
	snapshot := map[string]domain.TokenPartition{
		PartitionPrimary: r.partitions[PartitionPrimary],
		PartitionPaired:  r.partitions[PartitionPaired],
	}
	r.mu.Unlock()

	for key, partition := range snapshot {
		if len(byPartition[key]) == 0 {
			continue
		}
		if err := r.gw.SetJSON(ctx, key, partition, r.ttl); err != nil {
			return apperr.Transient("persisting partition "+key, err)
		}
		r.bus.Emit(TopicNewTokenDiscovered, partition, key)
	}
	return nil
}

func mergeByAddress(existing, incoming []domain.TokenRecord) []domain.TokenRecord {
	index := make(map[string]domain.TokenRecord, len(existing)+len(incoming))
	order := make([]string, 0, len(existing)+len(incoming))
	for _, r := range existing {
		if _, ok := index[r.TokenAddress]; !ok {
			order = append(order, r.TokenAddress)
		}
		index[r.TokenAddress] = r
	}
	for _, r := range incoming {
		if _, ok := index[r.TokenAddress]; !ok {
			order = append(order, r.TokenAddress)
		}
		index[r.TokenAddress] = r // newest wins
	}
	out := make([]domain.TokenRecord, 0, len(order))
	for _, addr := range order {
		out = append(out, index[addr])
	}
	return out
}

func recomputeMeta(records []domain.TokenRecord) domain.PartitionMeta {
	byCoinType := make(map[domain.CoinType]int)
	for _, r := range records {
		byCoinType[r.CoinType]++
	}
	return domain.PartitionMeta{
		LastUpdatedAt: time.Now(),
		TotalTokens:   len(records),
		ByCoinType:    byCoinType,
	}
}

// All returns both partitions combined.
func (r *Repository) All() []domain.TokenRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TokenRecord, 0)
	out = append(out, r.partitions[PartitionPrimary].Records...)
	out = append(out, r.partitions[PartitionPaired].Records...)
	return out
}

// ByPartition returns the named partition's records ("zora:tokens" or
// "tba:tokens"); ok is false for an unknown name.
func (r *Repository) ByPartition(name string) (domain.TokenPartition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.partitions[name]
	return p, ok
}

// Meta returns the metadata for both partitions keyed by name.
func (r *Repository) Meta() map[string]domain.PartitionMeta {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return map[string]domain.PartitionMeta{
		PartitionPrimary: r.partitions[PartitionPrimary].Meta,
		PartitionPaired:  r.partitions[PartitionPaired].Meta,
	}
}

var _ = logger
