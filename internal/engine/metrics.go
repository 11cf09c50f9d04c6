package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the compound loop. Amount metrics are display-unit
// floats, converted with the deposit asset's precision; the authoritative
// integers live in the snapshot store.
var (
	cyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acv_compound_cycles_total",
		Help: "Number of compound cycles started.",
	})
	cycleFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acv_compound_cycle_failures_total",
		Help: "Number of compound cycles that ended in an error.",
	})
	reinvestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acv_reinvests_total",
		Help: "Number of cycles that actually compounded rewards.",
	})
	grossRewardTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "acv_gross_reward_total",
		Help: "Cumulative harvested gross reward, display units.",
	})
	pendingRewardGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acv_pending_reward",
		Help: "Estimated outstanding reward at the last cycle, display units.",
	})
	totalDepositsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acv_total_deposits",
		Help: "Vault's staked position at the last cycle, display units.",
	})
	totalSharesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "acv_total_shares",
		Help: "Outstanding vault shares at the last cycle, display units.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "acv_compound_cycle_duration_seconds",
		Help:    "Wall-clock duration of compound cycles.",
		Buckets: prometheus.DefBuckets,
	})
)
