package tokenrepo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usezoracle/tba-be/internal/domain"
)

func TestPartitionKeyRoutesByAppType(t *testing.T) {
	assert.Equal(t, PartitionPaired, partitionKey(domain.AppTypePaired))
	assert.Equal(t, PartitionPrimary, partitionKey(domain.AppTypePrimary))
}

func TestMergeByAddressNewestWinsAndOrderIsStable(t *testing.T) {
	existing := []domain.TokenRecord{
		{TokenAddress: "0xa", CoinType: "Zora"},
		{TokenAddress: "0xb", CoinType: "Zora"},
	}
	incoming := []domain.TokenRecord{
		{TokenAddress: "0xb", CoinType: "TBA"},
		{TokenAddress: "0xc", CoinType: "Zora"},
	}
	merged := mergeByAddress(existing, incoming)
	require.Len(t, merged, 3)
	assert.Equal(t, "0xa", merged[0].TokenAddress)
	assert.Equal(t, "0xb", merged[1].TokenAddress)
	assert.Equal(t, domain.CoinType("TBA"), merged[1].CoinType)
	assert.Equal(t, "0xc", merged[2].TokenAddress)
}

func TestRecomputeMetaCountsByCoinType(t *testing.T) {
	records := []domain.TokenRecord{
		{TokenAddress: "0xa", CoinType: "Zora"},
		{TokenAddress: "0xb", CoinType: "Zora"},
		{TokenAddress: "0xc", CoinType: "TBA"},
	}
	meta := recomputeMeta(records)
	assert.Equal(t, 3, meta.TotalTokens)
	assert.Equal(t, 2, meta.ByCoinType["Zora"])
	assert.Equal(t, 1, meta.ByCoinType["TBA"])
	assert.WithinDuration(t, time.Now(), meta.LastUpdatedAt, time.Second)
}

func TestNewDefaultsNonPositiveTTL(t *testing.T) {
	r := New(nil, nil, 0)
	assert.Equal(t, DefaultTTL, r.ttl)
}

func TestMergeWithNoRecordsIsNoop(t *testing.T) {
	r := New(nil, nil, time.Minute)
	err := r.Merge(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, r.All())
}

func TestByPartitionUnknownNameNotOK(t *testing.T) {
	r := New(nil, nil, time.Minute)
	_, ok := r.ByPartition("nonexistent")
	assert.False(t, ok)
}
