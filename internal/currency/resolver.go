// Package currency implements the Currency Resolver (C4): resolving an
// address to a semantic Currency, grounded on the teacher's account
// classification split between native KLAY and deployed token contracts
// (common patterns in api/api_public_blockchain.go's GetAccount/
// IsContractAccount). Does not cache across calls, and the Pool Processor
// calls ResolvePair once per pool, so an address that appears in several
// pools of one scan is read from the chain once per pool.
package currency

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/usezoracle/tba-be/internal/chain"
)

// ZeroAddress denotes the chain's native currency.
var ZeroAddress = common.Address{}

// Kind distinguishes the two Currency variants.
type Kind int

const (
	KindNative Kind = iota
	KindFungible
)

// Currency is the sum type {Native(chainId) | Fungible{chainId, address,
// decimals, symbol, name}} from spec.md §3.
type Currency struct {
	Kind     Kind
	ChainID  uint64
	Address  common.Address
	Decimals uint8
	Symbol   string
	Name     string
}

func (c Currency) IsNative() bool { return c.Kind == KindNative }

// Resolver resolves addresses against a Chain Gateway.
type Resolver struct {
	gateway *chain.Gateway
	chainID uint64
}

func New(gateway *chain.Gateway, chainID uint64) *Resolver {
	return &Resolver{gateway: gateway, chainID: chainID}
}

// Resolve returns Native for the zero address, otherwise reads on-chain
// fungible metadata.
func (r *Resolver) Resolve(ctx context.Context, addr common.Address) (Currency, error) {
	if addr == ZeroAddress {
		return Currency{Kind: KindNative, ChainID: r.chainID}, nil
	}
	meta, err := r.gateway.ReadFungibleMeta(ctx, addr)
	if err != nil {
		return Currency{}, err
	}
	return Currency{
		Kind:     KindFungible,
		ChainID:  r.chainID,
		Address:  addr,
		Decimals: meta.Decimals,
		Symbol:   meta.Symbol,
		Name:     meta.Name,
	}, nil
}

// ResolvePair resolves currency0 and currency1 concurrently, as the Pool
// Processor requires (§4.6 step 1).
func (r *Resolver) ResolvePair(ctx context.Context, addr0, addr1 common.Address) (c0, c1 Currency, err error) {
	type result struct {
		c   Currency
		err error
	}
	ch0 := make(chan result, 1)
	ch1 := make(chan result, 1)

	go func() {
		c, e := r.Resolve(ctx, addr0)
		ch0 <- result{c, e}
	}()
	go func() {
		c, e := r.Resolve(ctx, addr1)
		ch1 <- result{c, e}
	}()

	r0, r1 := <-ch0, <-ch1
	if r0.err != nil {
		return Currency{}, Currency{}, r0.err
	}
	if r1.err != nil {
		return Currency{}, Currency{}, r1.err
	}
	return r0.c, r1.c, nil
}
