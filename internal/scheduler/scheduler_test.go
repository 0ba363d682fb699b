package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	expires int32
	seeds   int32
}

func (c *countingSweeper) ExpireSweep(ctx context.Context) (int, error) {
	atomic.AddInt32(&c.expires, 1)
	return 0, nil
}

func (c *countingSweeper) SeedAvailability(ctx context.Context) error {
	atomic.AddInt32(&c.seeds, 1)
	return nil
}

func TestSchedulerRunsJobs(t *testing.T) {
	sw := &countingSweeper{}
	s, err := New(sw, "@every 100ms", "@every 100ms")
	require.NoError(t, err)

	s.Start()
	time.Sleep(350 * time.Millisecond)
	<-s.Stop().Done()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&sw.expires), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&sw.seeds), int32(2))
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	_, err := New(&countingSweeper{}, "not a cron spec", "@daily")
	assert.Error(t, err)
}
