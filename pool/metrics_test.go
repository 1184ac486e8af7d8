package pool

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	p := newTestPool(t, &fakeSpawner{}, WithMetrics(metrics))

	session, err := p.Get(ctx, Options{AppRoot: "/apps/a"})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.spawns))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.processes))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.active))

	require.NoError(t, session.Close())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.active))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.inactive))
}

func TestMetricsEviction(t *testing.T) {
	ctx := context.Background()
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	p := newTestPool(t, &fakeSpawner{}, WithMax(1), WithMetrics(metrics))

	session, err := p.Get(ctx, Options{AppRoot: "/apps/a"})
	require.NoError(t, err)
	require.NoError(t, session.Close())

	session, err = p.Get(ctx, Options{AppRoot: "/apps/b"})
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.evictions))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.spawns))
}
