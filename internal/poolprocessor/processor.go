// Package poolprocessor implements the Pool Processor (C6): loading a
// pool's on-chain state, classifying its tokens, and computing prices,
// grounded on the teacher's batched-worker pattern in
// datasync/chaindatafetcher/chaindata_fetcher.go generalized onto
// internal/batch with the exact concurrency spec.md §4.6 requires (3
// pools in flight, 300ms inter-batch pacing), and on
// github.com/holiman/uint256 (present in the retrieval pack's luxfi-evm
// go.mod) for the 256-bit sqrtPriceX96 fixed-point math.
package poolprocessor

import (
	"context"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/batch"
	"github.com/usezoracle/tba-be/internal/chain"
	"github.com/usezoracle/tba-be/internal/currency"
	"github.com/usezoracle/tba-be/internal/domain"
	"github.com/usezoracle/tba-be/internal/log"
	"github.com/usezoracle/tba-be/internal/retry"
)

var logger = log.NewModuleLogger(log.PoolProc)

const (
	BatchSize  = 3
	BatchDelay = 300 * time.Millisecond
)

// Processor turns PoolKeys into classified, priced TokenRecords.
type Processor struct {
	gateway      *chain.Gateway
	resolver     *currency.Resolver
	retrier      *retry.Executor
	hookMap      map[string]domain.CoinType
	basePairings map[string]struct{}
}

func New(gateway *chain.Gateway, resolver *currency.Resolver, retrier *retry.Executor, hookMap map[string]domain.CoinType, basePairings map[string]struct{}) *Processor {
	return &Processor{gateway: gateway, resolver: resolver, retrier: retrier, hookMap: hookMap, basePairings: basePairings}
}

// Process runs §4.6 for each key, dropping (not erroring on) any pool that
// fails, per the documented sentinel-on-failure behavior.
func (p *Processor) Process(ctx context.Context, keys []domain.PoolKey, timestamps map[uint64]uint64) []domain.TokenRecord {
	type maybeRecord struct {
		rec *domain.TokenRecord
	}
	results, errs := batch.Run(ctx, keys, BatchSize, BatchDelay, func(ctx context.Context, k domain.PoolKey) (maybeRecord, error) {
		rec, err := p.processOne(ctx, k, timestamps)
		if err != nil {
			return maybeRecord{}, err
		}
		return maybeRecord{rec: rec}, nil
	})

	out := make([]domain.TokenRecord, 0, len(keys))
	for i, r := range results {
		if errs[i] != nil {
			logger.Warnw("dropping pool after processing failure", "hook", keys[i].Hook.Hex(), "err", errs[i])
			continue
		}
		if r.rec != nil {
			out = append(out, *r.rec)
		}
	}
	return out
}

func (p *Processor) processOne(ctx context.Context, k domain.PoolKey, timestamps map[uint64]uint64) (*domain.TokenRecord, error) {
	c0, c1, err := p.resolver.ResolvePair(ctx, k.Currency0, k.Currency1)
	if err != nil {
		return nil, err
	}

	poolID := domain.ComputePoolID(k)

	state, err := retry.Do(ctx, p.retrier, "readStateView", func(ctx context.Context) (chain.StateView, error) {
		return p.gateway.ReadStateView(ctx, poolID)
	})
	if err != nil {
		return nil, err
	}
	if state.SqrtPriceX96 == nil {
		return nil, apperr.Transient("readStateView returned nil sqrtPriceX96", nil)
	}

	priceC0toC1, priceC1toC0 := derivePrices(state.SqrtPriceX96, decimalsOf(c0), decimalsOf(c1))

	coinType, ok := p.hookMap[strings.ToLower(k.Hook.Hex())]
	if !ok {
		return nil, apperr.Invariant("hook " + k.Hook.Hex() + " has no configured coinType")
	}

	appType, tokenSide, tokenPrice := classify(k, c0, c1, priceC0toC1, priceC1toC0, p.basePairings)

	ts := timestamps[k.DiscoveryBlock]

	return &domain.TokenRecord{
		PoolID:             poolID,
		AppType:            appType,
		CoinType:           coinType,
		TokenAddress:       addressOf(tokenSide),
		TokenName:          tokenSide.Name,
		TokenSymbol:        tokenSide.Symbol,
		TokenDecimals:      decimalsOf(tokenSide),
		CurrentTick:        state.Tick,
		SqrtPriceX96:       state.SqrtPriceX96.String(),
		HumanPrice:         tokenPrice,
		DiscoveryBlock:     k.DiscoveryBlock,
		DiscoveryTimestamp: ts,
	}, nil
}

func decimalsOf(c currency.Currency) uint8 {
	if c.IsNative() {
		return 18
	}
	return c.Decimals
}

func addressOf(c currency.Currency) string {
	if c.IsNative() {
		return currency.ZeroAddress.Hex()
	}
	return strings.ToLower(c.Address.Hex())
}

// derivePrices computes price(c0->c1) = (sqrtPriceX96/2^96)^2 *
// 10^(decimals0-decimals1) and its inverse, each rounded to 6 significant
// digits, per spec.md §4.6 step 4.
func derivePrices(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (c0ToC1, c1ToC0 string) {
	sqrtP, overflow := uint256.FromBig(sqrtPriceX96)
	if overflow {
		return "0", "0"
	}

	// price = (sqrtPriceX96^2 / 2^192) * 10^(decimals0 - decimals1)
	num := new(big.Float).SetInt(sqrtP.ToBig())
	num.Mul(num, num)

	denom := new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 192))
	price := new(big.Float).Quo(num, denom)

	scale := new(big.Float).SetFloat64(pow10(int(decimals0) - int(decimals1)))
	price.Mul(price, scale)

	inv := new(big.Float).Quo(big.NewFloat(1), price)

	return roundSignificant(price, 6), roundSignificant(inv, 6)
}

func pow10(exp int) float64 {
	result := 1.0
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			result *= 10
		}
	} else {
		for i := 0; i < -exp; i++ {
			result /= 10
		}
	}
	return result
}

// roundSignificant formats f rounded to n significant digits, matching
// spec.md's "rounded to 6 significant digits" invariant (S1: 0.0005 ->
// "0.000500").
func roundSignificant(f *big.Float, n int) string {
	if f.Sign() == 0 {
		return "0"
	}
	text := f.Text('e', n-1)
	// text is of the form "d.dddddde±NN"; the exponent here is already
	// decimal, unlike big.Float.MantExp which reports a base-2 exponent
	// and would conflate binary and decimal magnitude.
	eIdx := strings.IndexByte(text, 'e')
	if eIdx < 0 {
		return f.Text('f', n)
	}
	decExp, err := strconv.Atoi(text[eIdx+1:])
	if err != nil {
		return f.Text('f', n)
	}
	parsed, _, err := big.ParseFloat(text, 10, 200, big.ToNearestEven)
	if err != nil {
		return f.Text('f', n)
	}
	// Digits before the decimal point; values under 1 contribute none, so
	// their whole digit budget goes to decimal places (spec.md's worked
	// example: 0.0005 -> "0.000500", not "0.000500000").
	intDigits := decExp + 1
	if intDigits < 0 {
		intDigits = 0
	}
	prec := n - intDigits
	if prec < 0 {
		prec = 0
	}
	return parsed.Text('f', prec)
}

// classify determines appType and the "token" side per spec.md §4.6 step 6:
// if either currency is a base pairing, appType=Paired and the token is the
// non-base side; else appType=Primary and the token is currency0. On the
// tie where both currencies are base pairings, currency1 is chosen (the
// documented edge case in §4.6).
func classify(k domain.PoolKey, c0, c1 currency.Currency, priceC0toC1, priceC1toC0 string, basePairings map[string]struct{}) (domain.AppType, currency.Currency, string) {
	c0IsBase := isBasePairing(c0, basePairings)
	c1IsBase := isBasePairing(c1, basePairings)

	switch {
	case c0IsBase && c1IsBase:
		return domain.AppTypePaired, c1, priceC0toC1
	case c0IsBase:
		return domain.AppTypePaired, c1, priceC0toC1
	case c1IsBase:
		return domain.AppTypePaired, c0, priceC1toC0
	default:
		return domain.AppTypePrimary, c0, priceC0toC1
	}
}

func isBasePairing(c currency.Currency, basePairings map[string]struct{}) bool {
	addr := addressOf(c)
	_, ok := basePairings[addr]
	return ok
}
