package watchlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetKeyLowercasesWallet(t *testing.T) {
	assert.Equal(t, "watchlist:0xabc", setKey("0xABC"))
}

func TestLowerAllLowercasesEveryToken(t *testing.T) {
	in := []string{"0xABC", "0xDEF"}
	out := lowerAll(in)
	assert.Equal(t, []string{"0xabc", "0xdef"}, out)
	assert.Equal(t, []string{"0xABC", "0xDEF"}, in, "input slice must not be mutated in place")
}

func TestLowerAllEmptyInput(t *testing.T) {
	assert.Empty(t, lowerAll(nil))
}
