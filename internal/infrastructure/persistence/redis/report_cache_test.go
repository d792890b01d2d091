package redis

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hub/grade-engine/internal/domain/grading"
	"github.com/campus-hub/grade-engine/pkg/circuitbreaker"
)

// unreachableCache points at a closed port so every command fails fast.
func unreachableCache(t *testing.T) *Cache {
	t.Helper()
	client := goredis.NewClient(&goredis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheFromClient(client)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "bulletin:enr-1", BulletinKey("enr-1"))
	assert.Equal(t, "diagnostic:MAT-1", DiagnosticKey("MAT-1"))
	assert.Equal(t, "student-enrollments:MAT-1", StudentEnrollmentsKey("MAT-1"))
}

func TestConfig_Options(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host, cfg.Port, cfg.DB = "cache.internal", 6380, 2

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 10, opts.PoolSize)

	cfg.URL = "redis://:secret@redis.example:6379/5"
	opts, err = cfg.Options()
	require.NoError(t, err)
	assert.Equal(t, "redis.example:6379", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 5, opts.DB)
	assert.Equal(t, time.Second, opts.ReadTimeout)

	cfg.URL = "http://not-redis"
	_, err = cfg.Options()
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestCache_ArgumentValidation(t *testing.T) {
	c := unreachableCache(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, time.Minute), ErrCacheNilValue)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)
	assert.ErrorIs(t, c.Set(ctx, "k", func() {}, time.Minute), ErrCacheSerialization)

	var dest int
	assert.ErrorIs(t, c.Get(ctx, "", &dest), ErrCacheKeyEmpty)
	assert.NoError(t, c.Delete(ctx))
}

func TestNewCache_Unreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Host, cfg.Port = "127.0.0.1", 1
	cfg.DialTimeout = 50 * time.Millisecond
	cfg.MaxRetries = -1

	_, err := NewCache(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrCacheConnection)
}

func TestReportCache_BreakerOpensOnOutage(t *testing.T) {
	var transitions []circuitbreaker.State
	breaker := circuitbreaker.ReportCacheBreaker(func(_ string, _, to circuitbreaker.State) {
		transitions = append(transitions, to)
	})
	rc := NewReportCache(unreachableCache(t), breaker, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, ok, err := rc.GetBulletin(ctx, "enr-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
		assert.False(t, ok)
	}

	_, _, err := rc.GetDiagnostic(ctx, "MAT-1")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.ErrorIs(t, rc.SetBulletin(ctx, grading.Bulletin{EnrollmentID: "enr-1"}), circuitbreaker.ErrCircuitOpen)
	assert.ErrorIs(t, rc.InvalidateStudent(ctx, "MAT-1"), circuitbreaker.ErrCircuitOpen)

	assert.Equal(t, circuitbreaker.StateOpen, rc.Breaker().State())
	assert.Equal(t, []circuitbreaker.State{circuitbreaker.StateOpen}, transitions)
}

func TestNewReportCache_Defaults(t *testing.T) {
	rc := NewReportCache(unreachableCache(t), nil, 0)
	assert.Equal(t, TTLReport, rc.ttl)
	assert.Equal(t, "report-cache", rc.Breaker().Name())
}

func TestReportCache_PingBypassesBreaker(t *testing.T) {
	rc := NewReportCache(unreachableCache(t), nil, 0)
	assert.Error(t, rc.Ping(context.Background()))
	// A failed ping is not counted by the breaker.
	assert.Equal(t, circuitbreaker.StateClosed, rc.Breaker().State())
}
