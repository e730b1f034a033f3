package launchpad

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSourceDecodesNDJSONBatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`[{"address":"0xAAA","name":"Alpha"}]` + "\n"))
		_, _ = w.Write([]byte(`[{"address":"0xBBB","name":"Beta"}]` + "\n"))
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, "secret")

	var batches [][]RawItem
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := source.Stream(ctx, func(items []RawItem) {
		batches = append(batches, items)
	})
	require.NoError(t, err)

	require.Len(t, batches, 2)
	assert.Equal(t, "0xAAA", batches[0][0].Address)
	assert.Equal(t, "0xBBB", batches[1][0].Address)
}

func TestHTTPSourceReturnsErrorOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, "")
	err := source.Stream(context.Background(), func(items []RawItem) {
		t.Fatal("onBatch must not be called for a non-200 response")
	})
	assert.Error(t, err)
}

func TestHTTPSourceSkipsMalformedLines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("not json\n"))
		_, _ = w.Write([]byte(`[{"address":"0xCCC"}]` + "\n"))
	}))
	defer srv.Close()

	source := NewHTTPSource(srv.URL, "")
	var batches [][]RawItem
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := source.Stream(ctx, func(items []RawItem) {
		batches = append(batches, items)
	})
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "0xCCC", batches[0][0].Address)
}
