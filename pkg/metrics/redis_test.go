package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

type fixedPool pkgredis.PoolStats

func (p fixedPool) PoolStats() pkgredis.PoolStats { return pkgredis.PoolStats(p) }

func TestRegisterRedisPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	RegisterRedisPool(reg, fixedPool{Hits: 9, Misses: 2, TotalConns: 4, IdleConns: 3})

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	values := map[string]float64{}
	for _, mf := range mfs {
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			values[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetGauge() != nil:
			values[mf.GetName()] = m.GetGauge().GetValue()
		}
	}

	want := map[string]float64{
		"storefront_redis_pool_hits_total":       9,
		"storefront_redis_pool_misses_total":     2,
		"storefront_redis_pool_timeouts_total":   0,
		"storefront_redis_pool_connections":      4,
		"storefront_redis_pool_idle_connections": 3,
	}
	for name, v := range want {
		if values[name] != v {
			t.Fatalf("%s: expected %v, got %v", name, v, values[name])
		}
	}

	RegisterRedisPool(nil, fixedPool{})
}
