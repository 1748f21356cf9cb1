package metrics

import (
	"math/big"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type EscrowMetrics struct {
	transitions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	opened      *prometheus.CounterVec
	closed      *prometheus.CounterVec
	locked      *prometheus.GaugeVec
	fillRatio   prometheus.Histogram
}

var (
	escrowOnce     sync.Once
	escrowRegistry *EscrowMetrics
)

// Escrow returns the process-wide escrow metrics, registering them with the
// default Prometheus registry on first use.
func Escrow() *EscrowMetrics {
	escrowOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fusion_escrow_transitions_total",
				Help: "Engine operations by name and outcome kind.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "fusion_escrow_transition_seconds",
				Help:    "Time spent applying an engine operation, including commit.",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			}, []string{"op"}),
			opened: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fusion_escrows_opened_total",
				Help: "Escrows opened by source.",
			}, []string{"source"}),
			closed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "fusion_escrows_closed_total",
				Help: "Escrows closed by outcome.",
			}, []string{"outcome"}),
			locked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "fusion_escrow_locked_amount",
				Help: "Amount held in open escrows by asset, excluding safety deposits.",
			}, []string{"asset"}),
			fillRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "fusion_auction_fill_price_ratio",
				Help:    "Auction fill price as a fraction of the starting amount.",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			}),
		}
		prometheus.MustRegister(
			escrowRegistry.transitions,
			escrowRegistry.latency,
			escrowRegistry.opened,
			escrowRegistry.closed,
			escrowRegistry.locked,
			escrowRegistry.fillRatio,
		)
	})
	return escrowRegistry
}

func (m *EscrowMetrics) ObserveTransition(op, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "unknown"
	}
	m.transitions.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(took.Seconds())
}

// ObserveOpened counts a new escrow and adds its amount to the locked gauge.
func (m *EscrowMetrics) ObserveOpened(source, asset string, amount *big.Int) {
	if m == nil {
		return
	}
	m.opened.WithLabelValues(source).Inc()
	m.locked.WithLabelValues(asset).Add(amountFloat(amount))
}

// ObserveClosed counts a settled escrow and releases its amount.
func (m *EscrowMetrics) ObserveClosed(outcome, asset string, amount *big.Int) {
	if m == nil {
		return
	}
	m.closed.WithLabelValues(outcome).Inc()
	m.locked.WithLabelValues(asset).Sub(amountFloat(amount))
}

func amountFloat(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(amount).Float64()
	return f
}

func (m *EscrowMetrics) ObserveAuctionFill(ratio float64) {
	if m == nil {
		return
	}
	m.fillRatio.Observe(ratio)
}
