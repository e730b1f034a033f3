package blocktime

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupePreservesFirstOccurrenceOrder(t *testing.T) {
	out := dedupe([]uint64{5, 3, 5, 1, 3, 7})
	assert.Equal(t, []uint64{5, 3, 1, 7}, out)
}

func TestDedupeEmptyInput(t *testing.T) {
	assert.Empty(t, dedupe(nil))
}

func TestDedupeNoDuplicates(t *testing.T) {
	out := dedupe([]uint64{1, 2, 3})
	assert.Equal(t, []uint64{1, 2, 3}, out)
}
