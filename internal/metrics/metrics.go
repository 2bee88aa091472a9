// Package metrics exposes the block store's Prometheus counters: cache
// hits/misses, RPC retries, reconstructions, and RSM spins. A caller that
// never starts an HTTP server can still read these programmatically
// (useful in tests); Handler returns a promhttp handler for them, which
// neither cmd/gatorblockd nor cmd/gatorfs serves.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatorinfs_cache_hits_total",
		Help: "Logical block reads served from the client-side cache.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatorinfs_cache_misses_total",
		Help: "Logical block reads that required a round trip to a block server.",
	})
	CacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatorinfs_cache_invalidations_total",
		Help: "Times the whole client cache was dropped because LAST_WRITER changed.",
	})
	RPCRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatorinfs_rpc_retries_total",
		Help: "RPC attempts retried after a socket timeout, by method.",
	}, []string{"method"})
	Reconstructions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatorinfs_reconstructions_total",
		Help: "Blocks recovered by XOR reconstruction, by the server found down.",
	}, []string{"server"})
	RSMSpins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatorinfs_rsm_spins_total",
		Help: "RSM attempts that found the lock already held and spun again.",
	})
	DegradedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatorinfs_degraded_writes_total",
		Help: "Puts that logged-and-skipped a down server instead of failing outright.",
	}, []string{"server"})
)

// Handler returns the promhttp handler for the default registry, for
// binaries that choose to expose a metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
