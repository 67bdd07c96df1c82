// Package metrics exposes prometheus collectors for the ingest loop.
package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/park285/board-coverage/internal/coverage"
	"github.com/park285/board-coverage/internal/lichess"
	"github.com/park285/board-coverage/internal/san"
	"github.com/park285/board-coverage/internal/tracker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "board_coverage"

// Metrics implements gamestream.Observer, tracker.SkipObserver and tracker.Sink.
type Metrics struct {
	reg *prometheus.Registry

	pages        prometheus.Counter
	gamesFetched *prometheus.CounterVec
	rateLimited  prometheus.Counter
	sourceErrors *prometheus.CounterVec

	gamesProcessed prometheus.Counter
	gamesSkipped   *prometheus.CounterVec
	progress       prometheus.Gauge
	elapsed        prometheus.Gauge
	visited        *prometheus.GaugeVec
}

// New registers every collector on a fresh registry, plus the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		pages: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "source", Name: "pages_total",
			Help: "Export pages fetched, including empty ones",
		}),
		gamesFetched: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "source", Name: "games_total",
			Help: "Game records received by filter outcome",
		}, []string{"outcome"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "source", Name: "rate_limited_total",
			Help: "HTTP 429 responses from the export endpoint",
		}),
		sourceErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "source", Name: "errors_total",
			Help: "Failed fetches by kind",
		}, []string{"kind"}),
		gamesProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tracker", Name: "games_processed_total",
			Help: "Games folded into coverage",
		}),
		gamesSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "tracker", Name: "games_skipped_total",
			Help: "Games refused by the tracker by reason",
		}, []string{"reason"}),
		progress: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "tracker", Name: "progress_ratio",
			Help: "Visited share of the 384 piece-square cells",
		}),
		elapsed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "tracker", Name: "elapsed_seconds",
			Help: "Cumulative clock time of processed games",
		}),
		visited: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "tracker", Name: "visited_squares",
			Help: "Visited squares per piece kind",
		}, []string{"piece"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) PageFetched(total, kept int) {
	m.pages.Inc()
	m.gamesFetched.WithLabelValues("kept").Add(float64(kept))
	m.gamesFetched.WithLabelValues("filtered").Add(float64(total - kept))
}

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) SourceError(err error) {
	kind := "other"
	var se *lichess.SourceError
	if errors.As(err, &se) {
		switch {
		case se.Status == 0:
			kind = "transport"
		case se.Status >= 500:
			kind = "server"
		default:
			kind = "client"
		}
	}
	m.sourceErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) GameSkipped(reason string) {
	m.gamesSkipped.WithLabelValues(reason).Inc()
}

// Publish records the state carried by a tracker update.
func (m *Metrics) Publish(_ context.Context, u tracker.Update) error {
	m.gamesProcessed.Inc()
	m.progress.Set(u.Stats.Progress)
	m.elapsed.Set(float64(u.Stats.ElapsedSeconds))
	m.observeCoverage(u.Coverage)
	return nil
}

func (m *Metrics) observeCoverage(cov coverage.Map) {
	for _, p := range san.AllPieceKinds {
		m.visited.WithLabelValues(p.Letter()).Set(float64(cov.VisitedFor(p)))
	}
}
