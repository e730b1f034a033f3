package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func addr(hex string) common.Address { return common.HexToAddress(hex) }

func TestPoolKeyNormalizeOrdersByAddress(t *testing.T) {
	k := PoolKey{
		Currency0: addr("0xffffffffffffffffffffffffffffffffffffffff"),
		Currency1: addr("0x0000000000000000000000000000000000000001"),
	}
	n := k.Normalize()
	assert.Equal(t, addr("0x0000000000000000000000000000000000000001"), n.Currency0)
	assert.Equal(t, addr("0xffffffffffffffffffffffffffffffffffffffff"), n.Currency1)
}

func TestPoolKeyNormalizeIsIdempotent(t *testing.T) {
	k := PoolKey{
		Currency0: addr("0x0000000000000000000000000000000000000001"),
		Currency1: addr("0xffffffffffffffffffffffffffffffffffffffff"),
	}
	assert.Equal(t, k, k.Normalize())
}

func TestComputePoolIDIsDeterministic(t *testing.T) {
	k := PoolKey{
		Currency0:   addr("0x0000000000000000000000000000000000000001"),
		Currency1:   addr("0x0000000000000000000000000000000000000002"),
		FeeTier:     3000,
		TickSpacing: 60,
		Hook:        addr("0x0000000000000000000000000000000000000003"),
	}
	a := ComputePoolID(k)
	b := ComputePoolID(k)
	assert.Equal(t, a, b)
	assert.Len(t, a.Hex(), 64)
}

func TestComputePoolIDDiffersOnFeeTier(t *testing.T) {
	base := PoolKey{
		Currency0: addr("0x0000000000000000000000000000000000000001"),
		Currency1: addr("0x0000000000000000000000000000000000000002"),
	}
	k1 := base
	k1.FeeTier = 500
	k2 := base
	k2.FeeTier = 3000
	assert.NotEqual(t, ComputePoolID(k1), ComputePoolID(k2))
}

func TestIsValidReactionKind(t *testing.T) {
	assert.True(t, IsValidReactionKind(ReactionLike))
	assert.True(t, IsValidReactionKind(ReactionSad))
	assert.False(t, IsValidReactionKind(ReactionKind("shrug")))
}

func TestNormalizedReactionCountersDefaultsAbsentKinds(t *testing.T) {
	counters := NormalizedReactionCounters(map[string]string{"like": "5"})
	assert.Equal(t, int64(5), counters[ReactionLike])
	assert.Equal(t, int64(0), counters[ReactionLove])
	assert.Equal(t, int64(0), counters[ReactionSad])
	assert.Len(t, counters, len(ValidReactionKinds))
}

func TestNormalizedReactionCountersIgnoresUnknownKinds(t *testing.T) {
	counters := NormalizedReactionCounters(map[string]string{"shrug": "99"})
	_, ok := counters[ReactionKind("shrug")]
	assert.False(t, ok)
}

func TestNormalizedReactionCountersTreatsNonNumericAsZero(t *testing.T) {
	counters := NormalizedReactionCounters(map[string]string{"love": "abc"})
	assert.Equal(t, int64(0), counters[ReactionLove])
}

func TestNewPaginationComputesTotalPagesAndSkip(t *testing.T) {
	p := NewPagination(2, 10, 25)
	assert.Equal(t, 25, p.Total)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 10, p.Skip)
}

func TestNewPaginationZeroLimitProducesZeroTotalPages(t *testing.T) {
	p := NewPagination(1, 0, 25)
	assert.Equal(t, 0, p.TotalPages)
}

func TestNewPaginationExactDivision(t *testing.T) {
	p := NewPagination(1, 5, 20)
	assert.Equal(t, 4, p.TotalPages)
}
