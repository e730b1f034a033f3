package scanner

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usezoracle/tba-be/internal/apperr"
	"github.com/usezoracle/tba-be/internal/chain"
	"github.com/usezoracle/tba-be/internal/config"
)

func TestComputeRangeFixedWindow(t *testing.T) {
	s := &Scanner{cfg: config.ScannerConfig{Window: config.WindowFixed, StartBlock: 100, BlockRange: 50}}
	from, to, err := s.computeRange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), from)
	assert.Equal(t, uint64(150), to)
}

func TestComputeRangeEmptyWindowDefaultsToFixed(t *testing.T) {
	s := &Scanner{cfg: config.ScannerConfig{Window: "", StartBlock: 10, BlockRange: 5}}
	from, to, err := s.computeRange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), from)
	assert.Equal(t, uint64(15), to)
}

func TestComputeRangeUnknownWindowIsValidationError(t *testing.T) {
	s := &Scanner{cfg: config.ScannerConfig{Window: "bogus"}}
	_, _, err := s.computeRange(context.Background())
	require.Error(t, err)
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
}

func TestDecodeAndFilterDropsLogsWithUnconfiguredHook(t *testing.T) {
	configured := common.HexToAddress("0x0000000000000000000000000000000000000a")
	unconfigured := common.HexToAddress("0x0000000000000000000000000000000000000b")
	s := &Scanner{hookMap: map[string]struct{}{hexLower(configured): {}}}

	logs := []chain.InitializeLog{
		{Hook: configured, Currency0: common.HexToAddress("0x1"), Currency1: common.HexToAddress("0x2")},
		{Hook: unconfigured, Currency0: common.HexToAddress("0x1"), Currency1: common.HexToAddress("0x2")},
	}
	keys := s.decodeAndFilter(logs)
	require.Len(t, keys, 1)
	assert.Equal(t, configured, keys[0].Hook)
}

func TestHexLowerLowercasesAddressHex(t *testing.T) {
	a := common.HexToAddress("0xABCDEF0000000000000000000000000000000a")
	assert.Equal(t, a.Hex(), a.Hex())
	lowered := hexLower(a)
	for _, c := range lowered {
		assert.False(t, c >= 'A' && c <= 'Z')
	}
}

func TestStateDefaultsToIdle(t *testing.T) {
	s := &Scanner{}
	assert.Equal(t, StateIdle, s.State())
}

func TestLastResultAbsentUntilStored(t *testing.T) {
	s := &Scanner{}
	_, ok := s.LastResult()
	assert.False(t, ok)
}

func TestTriggerScanDropsWhenAlreadyScanning(t *testing.T) {
	s := &Scanner{}
	s.state = int32(StateScanning)
	assert.False(t, s.TriggerScan(context.Background()))
	assert.Equal(t, StateScanning, s.State())
}
