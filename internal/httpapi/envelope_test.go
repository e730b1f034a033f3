package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usezoracle/tba-be/internal/apperr"
)

func TestWriteDataProducesSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	writeData(rec, http.StatusOK, map[string]int{"count": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	var body successEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Empty(t, body.Message)
}

func TestWriteMessageIncludesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	writeMessage(rec, http.StatusCreated, "added", map[string]int{"addedCount": 2})

	var body successEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "added", body.Message)
}

func TestWriteErrUsesAppErrStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, apperr.NotFound("token not found"))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, http.StatusNotFound, body.StatusCode)
	assert.Nil(t, body.Data)
	assert.Contains(t, body.Message, "token not found")
}

func TestWriteErrFallsBackToInternalErrorForPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, errors.New("unexpected"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unexpected", body.Message)
}
