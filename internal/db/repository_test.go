package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolationDetectsCommonPhrasings(t *testing.T) {
	assert.True(t, isUniqueViolation(errors.New("pq: duplicate key value violates unique constraint")))
	assert.True(t, isUniqueViolation(errors.New("UNIQUE constraint failed: watchlist_entries.user_id")))
	assert.False(t, isUniqueViolation(errors.New("connection refused")))
}

func TestNewIDProducesNonEmptyUniqueValues(t *testing.T) {
	a := newID()
	b := newID()
	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}
