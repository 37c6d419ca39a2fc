// Package prometheus instruments corpus services with Prometheus metrics.
package prometheus

import (
	"context"
	"errors"
	"time"

	"github.com/fwojciec/corpus"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "corpus"

// Outcome label values.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeCanceled = "canceled"
)

// Metrics holds the collectors shared by the instrumented services.
type Metrics struct {
	fetches          *prometheus.CounterVec
	fetchDuration    prometheus.Histogram
	fetchBytes       prometheus.Counter
	retrieves        *prometheus.CounterVec
	retrieveDuration prometheus.Histogram
	generations      *prometheus.CounterVec
	generateDuration prometheus.Histogram
	fragments        prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Fetch attempts by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		fetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_bytes_total",
			Help:      "Response bytes fetched.",
		}),
		retrieves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieves_total",
			Help:      "Retrieval calls by outcome.",
		}, []string{"outcome"}),
		retrieveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieve_duration_seconds",
			Help:      "Retrieval latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generation calls by outcome.",
		}, []string{"outcome"}),
		generateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_duration_seconds",
			Help:      "Generation latency including streaming.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		fragments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generated_fragments_total",
			Help:      "Text fragments streamed by generators.",
		}),
	}
	reg.MustRegister(
		m.fetches, m.fetchDuration, m.fetchBytes,
		m.retrieves, m.retrieveDuration,
		m.generations, m.generateDuration, m.fragments,
	)
	return m
}

// GateStats reports admission gate counters.
type GateStats func() (active, queued, total int64)

// RegisterGate exposes admission gate counters as gauges.
func RegisterGate(reg prometheus.Registerer, stats GateStats) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ask_active",
			Help:      "Generations currently holding a slot.",
		}, func() float64 { a, _, _ := stats(); return float64(a) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ask_queued",
			Help:      "Requests waiting for a slot.",
		}, func() float64 { _, q, _ := stats(); return float64(q) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ask_admitted_total",
			Help:      "Requests admitted by the gate.",
		}, func() float64 { _, _, t := stats(); return float64(t) }),
	)
}

// RegisterStore exposes the size of the store's current snapshot.
func RegisterStore(reg prometheus.Registerer, store corpus.Store) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Documents in the store.",
		}, func() float64 { return float64(len(store.Snapshot().Documents)) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks",
			Help:      "Chunks in the store.",
		}, func() float64 { return float64(store.Snapshot().TotalChunks()) }),
	)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCanceled
	default:
		return outcomeError
	}
}

// Ensure MetricsFetcher implements corpus.Fetcher.
var _ corpus.Fetcher = (*MetricsFetcher)(nil)

// MetricsFetcher wraps a Fetcher with metrics.
type MetricsFetcher struct {
	next    corpus.Fetcher
	metrics *Metrics
}

// NewMetricsFetcher creates a new MetricsFetcher.
func NewMetricsFetcher(next corpus.Fetcher, m *Metrics) *MetricsFetcher {
	return &MetricsFetcher{next: next, metrics: m}
}

// Fetch delegates to the wrapped fetcher and records the outcome.
func (f *MetricsFetcher) Fetch(ctx context.Context, url string) (resp *corpus.Response, err error) {
	defer func(begin time.Time) {
		f.metrics.fetchDuration.Observe(time.Since(begin).Seconds())
		f.metrics.fetches.WithLabelValues(outcome(err)).Inc()
		if resp != nil {
			f.metrics.fetchBytes.Add(float64(len(resp.Body)))
		}
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Close delegates to the wrapped fetcher.
func (f *MetricsFetcher) Close() error {
	return f.next.Close()
}

// Ensure MetricsRanker implements corpus.Ranker.
var _ corpus.Ranker = (*MetricsRanker)(nil)

// MetricsRanker wraps a Ranker with metrics.
type MetricsRanker struct {
	next    corpus.Ranker
	metrics *Metrics
}

// NewMetricsRanker creates a new MetricsRanker.
func NewMetricsRanker(next corpus.Ranker, m *Metrics) *MetricsRanker {
	return &MetricsRanker{next: next, metrics: m}
}

// Retrieve delegates to the wrapped ranker and records the outcome.
func (r *MetricsRanker) Retrieve(ctx context.Context, query string, k int) (chunks []*corpus.Chunk, err error) {
	defer func(begin time.Time) {
		r.metrics.retrieveDuration.Observe(time.Since(begin).Seconds())
		r.metrics.retrieves.WithLabelValues(outcome(err)).Inc()
	}(time.Now())
	return r.next.Retrieve(ctx, query, k)
}

// Ensure MetricsGenerator implements corpus.Generator.
var _ corpus.Generator = (*MetricsGenerator)(nil)

// MetricsGenerator wraps a Generator with metrics.
type MetricsGenerator struct {
	next    corpus.Generator
	metrics *Metrics
}

// NewMetricsGenerator creates a new MetricsGenerator.
func NewMetricsGenerator(next corpus.Generator, m *Metrics) *MetricsGenerator {
	return &MetricsGenerator{next: next, metrics: m}
}

// Generate delegates to the wrapped generator and records the outcome.
func (g *MetricsGenerator) Generate(ctx context.Context, messages []corpus.Message, fn corpus.GenerateFunc) (err error) {
	defer func(begin time.Time) {
		g.metrics.generateDuration.Observe(time.Since(begin).Seconds())
		g.metrics.generations.WithLabelValues(outcome(err)).Inc()
	}(time.Now())
	return g.next.Generate(ctx, messages, func(fragment string) error {
		g.metrics.fragments.Inc()
		return fn(fragment)
	})
}
