package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usezoracle/tba-be/internal/domain"
)

func lowerHex(s string) string { return strings.ToLower(s) }

const sampleTOML = `
listenAddr = ":9090"

[scanner]
startBlock = 100
blockRange = 500
intervalSeconds = 5
window = "Sliding"

[chain]
poolManagerAddress = "0x0000000000000000000000000000000000000a"
stateViewAddress = "0x0000000000000000000000000000000000000b"
rpcUrl = "https://rpc.example.com"
chainId = 8453

[classifier]
basePairings = ["0x0000000000000000000000000000000000000c"]

[classifier.hooks]
"0x0000000000000000000000000000000000000D" = "Zora"

[kv]
url = "redis://localhost:6379"

[database]
dsn = "postgres://localhost/tba"

[rateLimit]
ttlMs = 60000
limit = 100

[externalFeed]
apiKey = "key"
url = "https://feed.example.com"
protocols = ["zora"]
networkIds = ["base"]
`

func TestLoadDecodesFullConfig(t *testing.T) {
	cfg, err := Load(strings.NewReader(sampleTOML))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, uint64(100), cfg.Scanner.StartBlock)
	assert.Equal(t, WindowSliding, cfg.Scanner.Window)
	assert.Equal(t, uint64(8453), cfg.Chain.ChainID)
	assert.Equal(t, 100, cfg.RateLimit.Limit)
	assert.Equal(t, []string{"zora"}, cfg.ExternalFeed.Protocols)
}

func TestLoadAppliesDefaultListenAddr(t *testing.T) {
	cfg, err := Load(strings.NewReader(`[scanner]` + "\n" + `window = "Fixed"` + "\n" + `[chain]` + "\n" + `chainId = 1`))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	_, err := Load(strings.NewReader("not = [valid"))
	assert.Error(t, err)
}

func TestHookMapLowercasesAddresses(t *testing.T) {
	c := ClassifierConfig{Hooks: map[string]string{"0xABCDEF": "Zora"}}
	m := c.HookMap()
	assert.Equal(t, domain.CoinType("Zora"), m["0xabcdef"])
}

func TestBasePairingSetLowercasesAddresses(t *testing.T) {
	c := ClassifierConfig{BasePairings: []string{"0xABCDEF"}}
	set := c.BasePairingSet()
	_, ok := set["0xabcdef"]
	assert.True(t, ok)
}

func TestScannerConfigIntervalDefault(t *testing.T) {
	assert.Equal(t, 2_000_000_000, int(ScannerConfig{}.Interval()))
}

func TestChainConfigAddressParsing(t *testing.T) {
	c := ChainConfig{
		PoolManagerAddress: "0x000000000000000000000000000000000000000a",
		StateViewAddress:   "0x000000000000000000000000000000000000000b",
	}
	assert.Equal(t, lowerHex(c.PoolManagerAddress), lowerHex(c.PoolManagerAddr().Hex()))
	assert.Equal(t, lowerHex(c.StateViewAddress), lowerHex(c.StateViewAddr().Hex()))
}
