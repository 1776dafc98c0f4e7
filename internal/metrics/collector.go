// internal/metrics/collector.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "curvebond"

// Collector holds the engine's prometheus metrics. Each collector registers on
// its own registerer, so several engines (and tests) can coexist.
type Collector struct {
	instructions    *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	tradeVolume     *prometheus.CounterVec
	fees            *prometheus.CounterVec
	poolSupply      *prometheus.GaugeVec
	poolReserve     *prometheus.GaugeVec
	storageAttempts *prometheus.CounterVec
}

// NewCollector creates the metrics and registers them on reg. A nil reg
// creates a private registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	c := &Collector{
		instructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instructions_total",
				Help:      "Instructions processed, by name and outcome",
			},
			[]string{"instruction", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "instruction_duration_seconds",
				Help:      "Instruction execution time including commit",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
			},
			[]string{"instruction"},
		),
		tradeVolume: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trade_reserve_volume_total",
				Help:      "Reserve base units moved by trades",
			},
			[]string{"pool", "side"},
		),
		fees: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trade_fees_total",
				Help:      "Founder reward fees collected, reserve base units",
			},
			[]string{"pool"},
		),
		poolSupply: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_supply",
				Help:      "Current target supply of a pool, base units",
			},
			[]string{"pool"},
		),
		poolReserve: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_reserve_from_bonding",
				Help:      "Reserve backing the curve, base units",
			},
			[]string{"pool"},
		),
		storageAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_attempts_total",
				Help:      "Storage operations by outcome, retries included",
			},
			[]string{"op", "status"},
		),
	}
	reg.MustRegister(c.instructions, c.duration, c.tradeVolume, c.fees, c.poolSupply, c.poolReserve, c.storageAttempts)
	return c
}

// RecordInstruction records one processed instruction.
func (c *Collector) RecordInstruction(name string, d time.Duration, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.instructions.WithLabelValues(name, status).Inc()
	c.duration.WithLabelValues(name).Observe(d.Seconds())
}

// RecordTrade records a committed trade and the pool state after it.
func (c *Collector) RecordTrade(pool, side string, reserveAmount, fee, supplyAfter, reserveAfter uint64) {
	if c == nil {
		return
	}
	c.tradeVolume.WithLabelValues(pool, side).Add(float64(reserveAmount))
	c.fees.WithLabelValues(pool).Add(float64(fee))
	c.poolSupply.WithLabelValues(pool).Set(float64(supplyAfter))
	c.poolReserve.WithLabelValues(pool).Set(float64(reserveAfter))
}

// RecordStorage records a storage attempt.
func (c *Collector) RecordStorage(op string, err error) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	c.storageAttempts.WithLabelValues(op, status).Inc()
}

// Reset clears all series (useful for tests).
func (c *Collector) Reset() {
	c.instructions.Reset()
	c.duration.Reset()
	c.tradeVolume.Reset()
	c.fees.Reset()
	c.poolSupply.Reset()
	c.poolReserve.Reset()
	c.storageAttempts.Reset()
}
