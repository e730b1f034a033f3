package sse

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEventIncludesEventLineWhenNamed(t *testing.T) {
	rec := httptest.NewRecorder()
	err := writeEvent(rec, rec, "newComment", map[string]string{"id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "event: newComment\ndata: {\"id\":\"1\"}\n\n", rec.Body.String())
}

func TestWriteEventOmitsEventLineWhenAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	err := writeEvent(rec, rec, "", map[string]string{"address": "0xabc"})
	require.NoError(t, err)
	assert.Equal(t, "data: {\"address\":\"0xabc\"}\n\n", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "event:")
}

func TestWriteEventMultipleFramesAccumulate(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, writeEvent(rec, rec, "a", 1))
	require.NoError(t, writeEvent(rec, rec, "", 2))
	assert.Equal(t, "event: a\ndata: 1\n\ndata: 2\n\n", rec.Body.String())
}
