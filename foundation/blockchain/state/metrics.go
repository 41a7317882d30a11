package state

import (
	"github.com/ardanlabs/powchain/foundation/blockchain/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the chain owned by this process. They are registered with the
// default registry and served by the debug endpoint.
var (
	chainLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Name:      "chain_length",
		Help:      "Number of blocks in the chain, genesis included.",
	})

	chainDifficulty = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Name:      "chain_difficulty",
		Help:      "Difficulty of the latest block.",
	})

	mempoolLength = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "powchain",
		Name:      "mempool_payloads",
		Help:      "Number of payloads waiting to be mined.",
	})

	miningDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "powchain",
		Name:      "mining_duration_seconds",
		Help:      "Time spent in proof of work per mining operation.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	chainReplacements = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Name:      "chain_replacements_total",
		Help:      "Number of times the chain was replaced by a longer valid chain.",
	})

	blocksRejected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "powchain",
		Name:      "blocks_rejected_total",
		Help:      "Number of blocks or chains from peers that failed validation.",
	})
)

func recordChain(latest database.Block, length int) {
	chainLength.Set(float64(length))
	chainDifficulty.Set(float64(latest.Difficulty))
}

func recordMempool(n int) {
	mempoolLength.Set(float64(n))
}
