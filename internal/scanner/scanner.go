// Package scanner implements the Token Scanner (C7): a non-reentrant,
// ticker-driven state machine that orchestrates the Chain Gateway, Block
// Timestamp Cache, and Pool Processor on a fixed schedule, grounded on the
// teacher's ChainDataFetcher start/stop lifecycle
// (datasync/chaindatafetcher/chaindata_fetcher.go's startFetching /
// stopFetching / fetchingStarted flag) generalized from a checkpoint-driven
// backfill into the drop-while-scanning scheduler spec.md §4.7 requires.
package scanner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/blocktime"
	"github.com/usezoracle/tba-be/internal/chain"
	"github.com/usezoracle/tba-be/internal/config"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/log"
	"github.com/usezoracle/tba-be/internal/metrics"
	"github.com/usezoracle/tba-be/internal/poolprocessor"
	"github.com/usezoracle/tba-be/internal/retry"
)

const metricCycleDuration = "scanner.cycleDurationMs"
const metricTokensDiscovered = "scanner.tokensDiscovered"

var logger = log.NewModuleLogger(log.Scanner)

// State is the scanner's non-reentrant flag: Idle or Scanning.
type State int32

const (
	StateIdle State = iota
	StateScanning
)

// Repository is the write-through sink the scanner hands records to (C8).
type Repository interface {
	Merge(ctx context.Context, records []domain.TokenRecord) error
}

// Scanner drives one scan cycle at a time on a fixed interval ticker;
// triggers observed while Scanning are dropped silently, not queued.
type Scanner struct {
	cfg        config.ScannerConfig
	gateway    *chain.Gateway
	timestamps *blocktime.Cache
	processor  *poolprocessor.Processor
	repo       Repository
	hookMap    map[string]struct{}
	retrier    *retry.Executor

	state   int32 // atomic State
	lastRes atomic.Value // domain.ScanResult
}

func New(cfg config.ScannerConfig, gateway *chain.Gateway, timestamps *blocktime.Cache, processor *poolprocessor.Processor, repo Repository, hookMap map[string]struct{}, retrier *retry.Executor) *Scanner {
	return &Scanner{cfg: cfg, gateway: gateway, timestamps: timestamps, processor: processor, repo: repo, hookMap: hookMap, retrier: retrier}
}

// State reports the scanner's current state.
func (s *Scanner) State() State {
	return State(atomic.LoadInt32(&s.state))
}

// LastResult returns the most recently completed scan's result, or the zero
// value if no scan has completed yet.
func (s *Scanner) LastResult() (domain.ScanResult, bool) {
	v := s.lastRes.Load()
	if v == nil {
		return domain.ScanResult{}, false
	}
	return v.(domain.ScanResult), true
}

// Run starts the scheduler: a scan is triggered every cfg.Interval() until
// ctx is cancelled. A trigger arriving while a scan is in progress is
// dropped, not queued (spec.md §4.7).
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.TriggerScan(ctx)
		}
	}
}

// TriggerScan attempts to start one scan cycle. Returns false without doing
// anything if a scan is already in progress.
func (s *Scanner) TriggerScan(ctx context.Context) bool {
	if !atomic.CompareAndSwapInt32(&s.state, int32(StateIdle), int32(StateScanning)) {
		logger.Debugw("scan trigger dropped: scan already in progress")
		return false
	}
	defer atomic.StoreInt32(&s.state, int32(StateIdle))

	result, err := s.runCycle(ctx)
	if err != nil {
		logger.Errorw("scan cycle failed", "err", err)
		return true
	}
	s.lastRes.Store(result)
	return true
}

func (s *Scanner) runCycle(ctx context.Context) (domain.ScanResult, error) {
	start := time.Now()

	fromBlock, toBlock, err := s.computeRange(ctx)
	if err != nil {
		return domain.ScanResult{}, apperr.Transient("computing scan range", err)
	}

	logs, err := retry.Do(ctx, s.retrier, "chain.events", func(ctx context.Context) ([]chain.InitializeLog, error) {
		return s.gateway.Events(ctx, fromBlock, toBlock)
	})
	if err != nil {
		return domain.ScanResult{}, err
	}

	keys := s.decodeAndFilter(logs)

	discoveryBlocks := make([]uint64, 0, len(keys))
	for _, k := range keys {
		discoveryBlocks = append(discoveryBlocks, k.DiscoveryBlock)
	}
	timestamps, err := s.timestamps.Timestamps(ctx, discoveryBlocks)
	if err != nil {
		return domain.ScanResult{}, err
	}

	records := s.processor.Process(ctx, keys, timestamps)
	if err := s.repo.Merge(ctx, records); err != nil {
		return domain.ScanResult{}, apperr.Transient("merging scan results", err)
	}

	zora, tba := 0, 0
	for _, r := range records {
		switch r.AppType {
		case domain.AppTypePrimary:
			zora++
		case domain.AppTypePaired:
			tba++
		}
	}

	metrics.Track(metricCycleDuration, time.Since(start))
	metrics.Counter(metricTokensDiscovered).Inc(int64(len(records)))

	return domain.ScanResult{
		BlocksScanned:   toBlock - fromBlock + 1,
		FromBlock:       fromBlock,
		ToBlock:         toBlock,
		PoolsDiscovered: len(keys),
		TokensAdded:     len(records),
		ZoraTokens:      zora,
		TbaTokens:       tba,
		DurationMs:      time.Since(start).Milliseconds(),
		Timestamp:       time.Now(),
	}, nil
}

// computeRange implements both the Fixed and Sliding window strategies,
// resolving the Open Question in spec.md §9 via the required
// scanner.window config.
func (s *Scanner) computeRange(ctx context.Context) (from, to uint64, err error) {
	switch s.cfg.Window {
	case config.WindowSliding:
		latest, err := retry.Do(ctx, s.retrier, "latestBlockNumber", func(ctx context.Context) (uint64, error) {
			return s.gateway.LatestBlockNumber(ctx)
		})
		if err != nil {
			return 0, 0, err
		}
		span := uint64(s.cfg.BlockRange)
		if span == 0 || span > latest {
			return 0, latest, nil
		}
		return latest - span, latest, nil
	case config.WindowFixed, "":
		return s.cfg.StartBlock, s.cfg.StartBlock + uint64(s.cfg.BlockRange), nil
	default:
		return 0, 0, apperr.Validation("unknown scanner.window: " + string(s.cfg.Window))
	}
}

// decodeAndFilter converts raw InitializeLogs to PoolKeys and filters to
// those whose hook is configured in the classifier map, per spec.md §4.7
// steps 3-4.
func (s *Scanner) decodeAndFilter(logs []chain.InitializeLog) []domain.PoolKey {
	out := make([]domain.PoolKey, 0, len(logs))
	for _, l := range logs {
		hookHex := hexLower(l.Hook)
		if _, ok := s.hookMap[hookHex]; !ok {
			continue // S2: unknown hook, drop silently
		}
		k := domain.PoolKey{
			Currency0:      l.Currency0,
			Currency1:      l.Currency1,
			FeeTier:        l.Fee,
			TickSpacing:    l.TickSpacing,
			Hook:           l.Hook,
			DiscoveryBlock: l.BlockNumber,
		}.Normalize()
		out = append(out, k)
	}
	return out
}

func hexLower(a interface{ Hex() string }) string {
	h := a.Hex()
	out := make([]byte, len(h))
	for i := 0; i < len(h); i++ {
		c := h[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
