package currency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrencyIsNative(t *testing.T) {
	assert.True(t, Currency{Kind: KindNative}.IsNative())
	assert.False(t, Currency{Kind: KindFungible}.IsNative())
}

func TestResolveZeroAddressReturnsNativeWithoutTouchingGateway(t *testing.T) {
	r := New(nil, 8453)
	c, err := r.Resolve(context.Background(), ZeroAddress)
	require.NoError(t, err)
	assert.True(t, c.IsNative())
	assert.Equal(t, uint64(8453), c.ChainID)
}

func TestResolvePairBothNativeAvoidsGateway(t *testing.T) {
	r := New(nil, 1)
	c0, c1, err := r.ResolvePair(context.Background(), ZeroAddress, ZeroAddress)
	require.NoError(t, err)
	assert.True(t, c0.IsNative())
	assert.True(t, c1.IsNative())
}
