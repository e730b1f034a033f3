// Package metrics exposes a small process-wide registry for the supplemented
// /health/detailed and /metrics surfaces, grounded on the teacher's
// go-metrics dependency (github.com/rcrowley/go-metrics, used throughout
// the teacher for p2p and RPC counters) bridged into Prometheus the way the
// teacher's cmd/kcn/main.go does: prometheusmetrics.NewPrometheusProvider
// wires go-metrics' DefaultRegistry into github.com/prometheus/client_golang
// and serves it from promhttp.Handler() on /metrics.
package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = gometrics.NewRegistry()
	promReg  = prometheus.NewRegistry()

	bridgeMu sync.Mutex
	bridged  = map[string]struct{}{}
)

// Counter returns (creating if absent) the named counter, bridging it into
// the Prometheus registry on first use.
func Counter(name string) gometrics.Counter {
	c := gometrics.GetOrRegisterCounter(name, registry)
	bridgeOnce(name, func() {
		mustRegisterGaugeFunc(name, func() float64 { return float64(c.Count()) })
	})
	return c
}

// Timer returns (creating if absent) the named timer, bridging count, mean,
// and p95 into the Prometheus registry on first use.
func Timer(name string) gometrics.Timer {
	t := gometrics.GetOrRegisterTimer(name, registry)
	bridgeOnce(name, func() {
		mustRegisterGaugeFunc(name+"_count", func() float64 { return float64(t.Count()) })
		mustRegisterGaugeFunc(name+"_mean_ms", func() float64 { return t.Mean() / float64(time.Millisecond) })
		mustRegisterGaugeFunc(name+"_p95_ms", func() float64 { return t.Percentile(0.95) / float64(time.Millisecond) })
	})
	return t
}

// Gauge returns (creating if absent) the named gauge, bridging it into the
// Prometheus registry on first use.
func Gauge(name string) gometrics.Gauge {
	g := gometrics.GetOrRegisterGauge(name, registry)
	bridgeOnce(name, func() {
		mustRegisterGaugeFunc(name, func() float64 { return float64(g.Value()) })
	})
	return g
}

// Track records dur against the named timer; a small convenience used by
// the scanner's cycle timing.
func Track(name string, dur time.Duration) {
	Timer(name).Update(dur)
}

// Handler returns the Prometheus scrape handler for every metric bridged
// through Counter, Timer, and Gauge.
func Handler() http.Handler {
	return promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
}

// Snapshot flattens the registry into a plain map suitable for JSON
// encoding in /health/detailed.
func Snapshot() map[string]any {
	out := make(map[string]any)
	registry.Each(func(name string, metric any) {
		switch m := metric.(type) {
		case gometrics.Counter:
			out[name] = m.Count()
		case gometrics.Gauge:
			out[name] = m.Value()
		case gometrics.Timer:
			out[name] = map[string]any{
				"count":  m.Count(),
				"meanMs": m.Mean() / float64(time.Millisecond),
				"p95Ms":  m.Percentile(0.95) / float64(time.Millisecond),
			}
		}
	})
	return out
}

func bridgeOnce(key string, register func()) {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()
	if _, ok := bridged[key]; ok {
		return
	}
	bridged[key] = struct{}{}
	register()
}

func mustRegisterGaugeFunc(name string, fn func() float64) {
	promReg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: sanitizeName(name),
		Help: "bridged from internal/metrics (" + name + ")",
	}, fn))
}

// sanitizeName maps a go-metrics dotted name (e.g. "scanner.cycleDuration")
// to a valid Prometheus metric name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
