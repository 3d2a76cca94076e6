package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisPool is satisfied by *redis.Client.
type RedisPool interface {
	PoolStats() pkgredis.PoolStats
}

// RegisterRedisPool exposes the cart and session store's connection pool.
func RegisterRedisPool(reg prometheus.Registerer, pool RedisPool) {
	if reg == nil || pool == nil {
		return
	}
	stat := func(pick func(pkgredis.PoolStats) uint32) func() float64 {
		return func() float64 { return float64(pick(pool.PoolStats())) }
	}
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "storefront_redis_pool_hits_total",
			Help: "Times a free connection was found in the pool.",
		}, stat(func(s pkgredis.PoolStats) uint32 { return s.Hits })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "storefront_redis_pool_misses_total",
			Help: "Times a free connection was not found in the pool.",
		}, stat(func(s pkgredis.PoolStats) uint32 { return s.Misses })),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "storefront_redis_pool_timeouts_total",
			Help: "Times a wait for a pooled connection timed out.",
		}, stat(func(s pkgredis.PoolStats) uint32 { return s.Timeouts })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "storefront_redis_pool_connections",
			Help: "Open connections in the pool.",
		}, stat(func(s pkgredis.PoolStats) uint32 { return s.TotalConns })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "storefront_redis_pool_idle_connections",
			Help: "Idle connections in the pool.",
		}, stat(func(s pkgredis.PoolStats) uint32 { return s.IdleConns })),
	)
}
