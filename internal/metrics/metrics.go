package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RentalMetrics holds the collectors for lease, ledger, sweeper and oracle activity.
type RentalMetrics struct {
	leasesOpened    prometheus.Counter
	leasesClosed    *prometheus.CounterVec
	leaseFailures   *prometheus.CounterVec
	ledgerPostings  *prometheus.CounterVec
	walletMoves     *prometheus.CounterVec
	sweeperRuns     prometheus.Counter
	sweeperClosed   prometheus.Counter
	sweeperFailures prometheus.Counter
	sweeperDuration prometheus.Histogram
	oracleRequests  *prometheus.CounterVec
	oracleLatency   prometheus.Histogram
}

var (
	rentalOnce     sync.Once
	rentalRegistry *RentalMetrics
)

// Rental returns the process-wide collectors, registering them on first use.
func Rental() *RentalMetrics {
	rentalOnce.Do(func() {
		rentalRegistry = newRentalMetrics()
		prometheus.MustRegister(rentalRegistry.collectors()...)
	})
	return rentalRegistry
}

// NewUnregistered builds collectors registered with reg, for tests that need
// isolated counters.
func NewUnregistered(reg prometheus.Registerer) *RentalMetrics {
	m := newRentalMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

func newRentalMetrics() *RentalMetrics {
	return &RentalMetrics{
		leasesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rigrent_leases_opened_total",
			Help: "Number of leases opened.",
		}),
		leasesClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rigrent_leases_closed_total",
			Help: "Number of leases closed by settlement mode.",
		}, []string{"mode"}),
		leaseFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rigrent_lease_failures_total",
			Help: "Number of failed lease operations by operation and reason.",
		}, []string{"operation", "reason"}),
		ledgerPostings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rigrent_ledger_postings_total",
			Help: "Number of ledger transactions applied by type.",
		}, []string{"type"}),
		walletMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rigrent_wallet_moves_total",
			Help: "Number of wallet fund movements by direction and currency.",
		}, []string{"type", "currency"}),
		sweeperRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rigrent_sweeper_runs_total",
			Help: "Number of expiry sweep cycles executed.",
		}),
		sweeperClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rigrent_sweeper_leases_closed_total",
			Help: "Number of leases closed by the expiry sweeper.",
		}),
		sweeperFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rigrent_sweeper_failures_total",
			Help: "Number of leases the expiry sweeper failed to close.",
		}),
		sweeperDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rigrent_sweeper_duration_seconds",
			Help:    "Duration of expiry sweep cycles.",
			Buckets: prometheus.DefBuckets,
		}),
		oracleRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rigrent_oracle_requests_total",
			Help: "Spot price lookups by currency and outcome.",
		}, []string{"currency", "outcome"}),
		oracleLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rigrent_oracle_request_duration_seconds",
			Help:    "Latency of spot price lookups against the upstream oracle.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *RentalMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.leasesOpened, m.leasesClosed, m.leaseFailures, m.ledgerPostings, m.walletMoves,
		m.sweeperRuns, m.sweeperClosed, m.sweeperFailures, m.sweeperDuration,
		m.oracleRequests, m.oracleLatency,
	}
}

func (m *RentalMetrics) ObserveLeaseOpened() {
	if m == nil {
		return
	}
	m.leasesOpened.Inc()
}

func (m *RentalMetrics) ObserveLeaseClosed(fullTerm bool) {
	if m == nil {
		return
	}
	mode := "early"
	if fullTerm {
		mode = "full"
	}
	m.leasesClosed.WithLabelValues(mode).Inc()
}

func (m *RentalMetrics) ObserveLeaseFailure(operation, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.leaseFailures.WithLabelValues(operation, reason).Inc()
}

func (m *RentalMetrics) ObserveLedgerPosting(txType string) {
	if m == nil {
		return
	}
	m.ledgerPostings.WithLabelValues(txType).Inc()
}

func (m *RentalMetrics) ObserveWalletMove(moveType, currency string) {
	if m == nil {
		return
	}
	m.walletMoves.WithLabelValues(moveType, currency).Inc()
}

func (m *RentalMetrics) ObserveSweep(closed, failed int, took time.Duration) {
	if m == nil {
		return
	}
	m.sweeperRuns.Inc()
	m.sweeperClosed.Add(float64(closed))
	m.sweeperFailures.Add(float64(failed))
	m.sweeperDuration.Observe(took.Seconds())
}

func (m *RentalMetrics) ObserveOracleRequest(currency, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.oracleRequests.WithLabelValues(currency, outcome).Inc()
	if outcome != "cache_hit" {
		m.oracleLatency.Observe(took.Seconds())
	}
}
