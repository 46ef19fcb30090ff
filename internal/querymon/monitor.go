// Package querymon instruments SQL calls with latency, row-count, and
// error statistics. It never alters query results — only observes — and
// additionally exposes its counters as Prometheus collectors for embedding
// applications that already run an exporter.
package querymon

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Execution is one recorded query.
type Execution struct {
	SQL       string
	Params    []any
	Start     time.Time
	End       time.Time
	Duration  time.Duration
	RowCount  int
	Err       error
	Filepath  string
}

// Config controls monitor behavior; zero values take sane defaults.
type Config struct {
	SlowQueryThreshold time.Duration
	MaxHistorySize     int
}

func (c Config) withDefaults() Config {
	if c.SlowQueryThreshold <= 0 {
		c.SlowQueryThreshold = 100 * time.Millisecond
	}
	if c.MaxHistorySize <= 0 {
		c.MaxHistorySize = 1000
	}
	return c
}

// Monitor accumulates execution history and totals. A nil *Monitor is not
// usable; use New.
type Monitor struct {
	cfg Config

	mu           sync.Mutex
	history      []Execution
	totalQueries int64
	totalDur     time.Duration
	slowQueries  int64
	errors       int64

	queryDuration prometheus.Histogram
	queryTotal    prometheus.Counter
	errorTotal    prometheus.Counter
	slowTotal     prometheus.Counter
}

// New creates a Monitor. If reg is non-nil, its Prometheus collectors are
// registered against reg; pass nil to skip Prometheus entirely — the
// monitor is usable standalone, without forcing a consumer to run an
// exporter.
func New(cfg Config, reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		cfg: cfg.withDefaults(),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "get_cookie_query_duration_seconds",
			Help:    "SQLite cookie-store query latency.",
			Buckets: prometheus.DefBuckets,
		}),
		queryTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "get_cookie_queries_total",
			Help: "Total cookie-store queries executed.",
		}),
		errorTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "get_cookie_query_errors_total",
			Help: "Total cookie-store query failures.",
		}),
		slowTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "get_cookie_slow_queries_total",
			Help: "Total cookie-store queries exceeding the slow-query threshold.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.queryDuration, m.queryTotal, m.errorTotal, m.slowTotal)
	}
	return m
}

// Record appends e to the bounded history (head-trimmed at MaxHistorySize)
// and updates the running totals.
func (m *Monitor) Record(e Execution) {
	e.Duration = e.End.Sub(e.Start)

	m.mu.Lock()
	m.history = append(m.history, e)
	if len(m.history) > m.cfg.MaxHistorySize {
		m.history = m.history[len(m.history)-m.cfg.MaxHistorySize:]
	}
	m.totalQueries++
	m.totalDur += e.Duration
	isSlow := e.Duration > m.cfg.SlowQueryThreshold
	if isSlow {
		m.slowQueries++
	}
	if e.Err != nil {
		m.errors++
	}
	m.mu.Unlock()

	m.queryDuration.Observe(e.Duration.Seconds())
	m.queryTotal.Inc()
	if isSlow {
		m.slowTotal.Inc()
	}
	if e.Err != nil {
		m.errorTotal.Inc()
	}
}

// Instrument wraps fn, timing it and recording an Execution.
func (m *Monitor) Instrument(sql string, params []any, filepath string, fn func() (int, error)) (int, error) {
	start := time.Now()
	rows, err := fn()
	end := time.Now()
	m.Record(Execution{SQL: sql, Params: params, Start: start, End: end, RowCount: rows, Err: err, Filepath: filepath})
	return rows, err
}

// Stats are the derived statistics exposed by a Monitor.
type Stats struct {
	TotalQueries    int64
	AverageDuration time.Duration
	SlowQueries     int64
	SlowQueryRate   float64
	Errors          int64
	ErrorRate       float64
}

func (m *Monitor) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		TotalQueries: m.totalQueries,
		SlowQueries:  m.slowQueries,
		Errors:       m.errors,
	}
	if m.totalQueries > 0 {
		s.AverageDuration = m.totalDur / time.Duration(m.totalQueries)
		s.SlowQueryRate = float64(m.slowQueries) / float64(m.totalQueries)
		s.ErrorRate = float64(m.errors) / float64(m.totalQueries)
	}
	return s
}

// History returns a copy of the bounded execution history.
func (m *Monitor) History() []Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Execution, len(m.history))
	copy(out, m.history)
	return out
}
