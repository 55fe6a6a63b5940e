package bootstrap

import (
	"context"
	"testing"
	"time"

	"rigrent-backend/internal/config"
	"rigrent-backend/internal/jobs"
	"rigrent-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(schedule string) *config.Config {
	return &config.Config{
		Storage:   config.StorageConfig{Type: config.StorageMemory},
		Scheduler: config.SchedulerConfig{CloseExpiredLeases: schedule},
		Sweeper:   config.SweeperConfig{LeaseTimeout: time.Second},
	}
}

func TestOpenStore_Memory(t *testing.T) {
	store, pinger, closeFn, err := OpenStore(memoryConfig("0 * * * * *"))
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Nil(t, pinger)
	assert.NotPanics(t, closeFn)
}

func TestStartEmbeddedJobs(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig("0 * * * * *")
	store, _, closeFn, err := OpenStore(cfg)
	require.NoError(t, err)
	defer closeFn()

	clock := func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	leases := service.NewLeaseService(store, service.WithClock(clock))

	s, err := StartEmbeddedJobs(cfg, store, leases, nil, clock)
	require.NoError(t, err)
	assert.True(t, s.IsRunning())
	defer s.Stop()

	n, err := store.Repos().Machines.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)

	plans, err := store.Repos().Plans.List(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 4)

	_, err = store.Repos().Users.GetByEmail(ctx, jobs.DemoUserEmail)
	assert.NoError(t, err)
}

func TestStartEmbeddedJobs_InvalidSchedule(t *testing.T) {
	cfg := memoryConfig("whenever")
	store, _, _, err := OpenStore(cfg)
	require.NoError(t, err)

	_, err = StartEmbeddedJobs(cfg, store, service.NewLeaseService(store), nil, time.Now)
	assert.ErrorContains(t, err, "embedded scheduler")
}
