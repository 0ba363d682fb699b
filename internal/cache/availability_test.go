package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marineworld/booking/internal/model"
)

func sampleRecords() []model.AvailabilityRecord {
	return []model.AvailabilityRecord{{
		LocationID:     1,
		Date:           time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		TotalCapacity:  100,
		AvailableSlots: 60,
		BookedSlots:    40,
		Status:         model.AvailabilityAvailable,
	}}
}

func TestGetRangeHit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewAvailabilityCache(rdb, time.Minute)

	recs := sampleRecords()
	raw, err := json.Marshal(recs)
	require.NoError(t, err)
	mock.ExpectGet("availability:1:2026-09-01:2026-09-30").SetVal(string(raw))

	got, ok := c.GetRange(context.Background(), 1, "2026-09-01", "2026-09-30")
	assert.True(t, ok)
	assert.Equal(t, recs[0].AvailableSlots, got[0].AvailableSlots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRangeMiss(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewAvailabilityCache(rdb, time.Minute)

	mock.ExpectGet("availability:1:2026-09-01:2026-09-30").RedisNil()

	_, ok := c.GetRange(context.Background(), 1, "2026-09-01", "2026-09-30")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRangeRegistersKey(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewAvailabilityCache(rdb, time.Minute)

	recs := sampleRecords()
	raw, err := json.Marshal(recs)
	require.NoError(t, err)

	key := "availability:1:2026-09-01:2026-09-30"
	mock.ExpectTxPipeline()
	mock.ExpectSet(key, raw, time.Minute).SetVal("OK")
	mock.ExpectSAdd("availability:keys:1", key).SetVal(1)
	mock.ExpectExpire("availability:keys:1", time.Minute).SetVal(true)
	mock.ExpectTxPipelineExec()

	c.SetRange(context.Background(), 1, "2026-09-01", "2026-09-30", recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidateLocationDropsTrackedKeys(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	c := NewAvailabilityCache(rdb, time.Minute)

	mock.ExpectSMembers("availability:keys:1").
		SetVal([]string{"availability:1:2026-09-01:2026-09-30"})
	mock.ExpectDel("availability:1:2026-09-01:2026-09-30", "availability:keys:1").SetVal(2)

	c.InvalidateLocation(context.Background(), 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNilClientDegradesToNoop(t *testing.T) {
	c := NewAvailabilityCache(nil, time.Minute)

	_, ok := c.GetRange(context.Background(), 1, "a", "b")
	assert.False(t, ok)
	c.SetRange(context.Background(), 1, "a", "b", sampleRecords())
	c.InvalidateLocation(context.Background(), 1)
}
