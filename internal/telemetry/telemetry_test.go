package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/satsquest/internal/telemetry"
)

func TestMonitorRedis(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	rs := miniredis.RunT(t)
	rc := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs: []string{rs.Addr()},
	})
	t.Cleanup(func() { rc.Close() })

	require.NoError(t, telemetry.MonitorRedis(rc))
	require.NoError(t, rc.Set(ctx, "k", "v", 0).Err())

	cmds, err := rc.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Get(ctx, "k")
		p.Incr(ctx, "n")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "v", cmds[0].(*redis.StringCmd).Val())
}

func TestMetrics(t *testing.T) {
	before := testutil.ToFloat64(telemetry.QuizRequests.WithLabelValues("hit"))
	telemetry.QuizRequests.WithLabelValues("hit").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(telemetry.QuizRequests.WithLabelValues("hit")))

	telemetry.PresenceSessions.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(telemetry.PresenceSessions))
}
