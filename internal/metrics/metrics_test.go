package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterAccumulates(t *testing.T) {
	c := Counter("test.counter.accumulates")
	c.Clear()
	c.Inc(1)
	c.Inc(2)
	assert.Equal(t, int64(3), c.Count())
}

func TestGaugeReflectsLastUpdate(t *testing.T) {
	g := Gauge("test.gauge.reflects")
	g.Update(5)
	g.Update(9)
	assert.Equal(t, int64(9), g.Value())
}

func TestTrackUpdatesNamedTimer(t *testing.T) {
	Track("test.timer.tracked", 50*time.Millisecond)
	Track("test.timer.tracked", 150*time.Millisecond)

	timer := Timer("test.timer.tracked")
	require.GreaterOrEqual(t, timer.Count(), int64(2))
}

func TestSnapshotIncludesRegisteredMetrics(t *testing.T) {
	Counter("test.snapshot.counter").Inc(4)
	Gauge("test.snapshot.gauge").Update(11)
	Track("test.snapshot.timer", 10*time.Millisecond)

	snap := Snapshot()
	assert.Equal(t, int64(4), snap["test.snapshot.counter"])
	assert.Equal(t, int64(11), snap["test.snapshot.gauge"])

	timerSnap, ok := snap["test.snapshot.timer"].(map[string]any)
	require.True(t, ok, "timer entries should flatten to a map")
	assert.Contains(t, timerSnap, "count")
	assert.Contains(t, timerSnap, "meanMs")
	assert.Contains(t, timerSnap, "p95Ms")
}

func TestSanitizeNameReplacesInvalidCharacters(t *testing.T) {
	assert.Equal(t, "scanner_cycleDuration", sanitizeName("scanner.cycleDuration"))
	assert.Equal(t, "emoji_reacted_total", sanitizeName("emoji.reacted-total"))
}

func TestHandlerServesBridgedCounter(t *testing.T) {
	Counter("test.handler.counter").Inc(7)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_handler_counter")
}
