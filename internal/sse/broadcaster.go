// Package sse implements the SSE Broadcaster (C14): a per-resource
// streaming endpoint multiplexing one upstream KV subscription across many
// concurrent HTTP clients, grounded on the teacher's long-lived-connection
// discipline in networks/p2p (separate read/write loops, explicit
// teardown-on-disconnect) generalized onto net/http's ResponseWriter
// Flusher interface, since the teacher predates server-sent events as a
// first-class primitive.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/usezoracle/tba-be/internal/kv"
	"github.com/usezoracle/tba-be/internal/log"
	"github.com/usezoracle/tba-be/internal/metrics"
)

var logger = log.NewModuleLogger(log.SSE)

// WriteTimeout bounds how long a single SSE write may block (spec.md §5:
// "SSE writes default to 10s").
const WriteTimeout = 10 * time.Second

// metricActiveConnections tracks live SSE connections across every channel;
// metricConnectionsTotal is the monotonic count of connections ever opened.
const metricActiveConnections = "sse.activeConnections"
const metricConnectionsTotal = "sse.connectionsTotal"

// msgBufferSize is the per-connection delivery buffer. When full, the
// connection is terminated rather than queued further (spec.md §4.14's
// backpressure rule).
const msgBufferSize = 32

// SnapshotFunc produces the initial event name and payload for a new
// connection, typically reading from a cache with a database fallback.
type SnapshotFunc func(ctx context.Context) (eventName string, payload any, err error)

// Serve writes SSE headers, emits a `connection` event, emits the snapshot
// event produced by snapshot, then forwards every message published on
// channel as an event named deltaEventName until the client disconnects or
// r.Context() is cancelled (process shutdown), per spec.md §4.14.
func Serve(w http.ResponseWriter, r *http.Request, gw *kv.Gateway, channel, deltaEventName string, snapshot SnapshotFunc) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return fmt.Errorf("sse: ResponseWriter does not support Flusher")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()

	metrics.Counter(metricConnectionsTotal).Inc(1)
	metrics.Counter(metricActiveConnections).Inc(1)
	defer metrics.Counter(metricActiveConnections).Dec(1)

	if err := writeEvent(w, flusher, "connection", map[string]any{"channel": channel, "connectedAt": time.Now()}); err != nil {
		return err
	}

	name, payload, err := snapshot(ctx)
	if err != nil {
		logger.Errorw("snapshot failed", "channel", channel, "err", err)
	} else if err := writeEvent(w, flusher, name, payload); err != nil {
		return err
	}

	msgCh := make(chan string, msgBufferSize)
	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(done) }) }

	sub, err := gw.Subscribe(ctx, channel, func(payload string) {
		select {
		case msgCh <- payload:
		default:
			logger.Warnw("sse client buffer full, terminating connection", "channel", channel)
			closeDone()
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case payload := <-msgCh:
			if err := writeEvent(w, flusher, deltaEventName, json.RawMessage(payload)); err != nil {
				return err
			}
		}
	}
}

// writeEvent writes one SSE frame. An empty eventName omits the "event:"
// line, producing an anonymous event delivered to EventSource.onmessage —
// used by the launchpad feed's delta stream (spec.md §4.14's "one anonymous
// event per item").
func writeEvent(w http.ResponseWriter, flusher http.Flusher, eventName string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	// Bounds how long this single write may block the connection (spec.md
	// §5: "SSE writes default to 10s"); unsupported ResponseWriters (e.g.
	// httptest.ResponseRecorder) return ErrNotSupported, which we ignore.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Now().Add(WriteTimeout))
	if eventName != "" {
		if _, err := fmt.Fprintf(w, "event: %s\n", eventName); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
