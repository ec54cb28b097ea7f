package chain

import (
	"testing"
	"time"

	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGenesis = 1_606_824_023

func testClock() *Clock {
	return NewClock(testGenesis, &ConfigSpec{
		SecondsPerSlot:            12,
		SlotsPerEpoch:             32,
		SlotsPerHistoricalRoot:    8192,
		EpochsPerHistoricalVector: 65536,
		EpochsPerSlashingsVector:  8192,
	})
}

func at(offset time.Duration) time.Time {
	return time.Unix(testGenesis, 0).Add(offset)
}

func TestCurrentEpochStartSlotBeforeGenesis(t *testing.T) {
	c := testClock()
	for _, off := range []time.Duration{-time.Nanosecond, -time.Second, -12 * time.Second, -24 * time.Hour} {
		slot, started := c.CurrentEpochStartSlot(at(off))
		assert.False(t, started, "offset %s", off)
		assert.Equal(t, common.Slot(0), slot)
	}
}

func TestCurrentEpochStartSlot(t *testing.T) {
	c := testClock()
	tests := []struct {
		offset time.Duration
		want   common.Slot
	}{
		{0, 0},
		{11 * time.Second, 0},
		{12 * time.Second, 0},
		{383 * time.Second, 0},
		{384 * time.Second, 32},
		{385 * time.Second, 32},
		{10*384*time.Second + 5*time.Second, 320},
	}
	for _, tt := range tests {
		slot, started := c.CurrentEpochStartSlot(at(tt.offset))
		require.True(t, started)
		assert.Equal(t, tt.want, slot, "offset %s", tt.offset)
	}
	for off := time.Duration(0); off < 3*time.Hour; off += 7*time.Second + 300*time.Millisecond {
		slot, started := c.CurrentEpochStartSlot(at(off))
		require.True(t, started)
		assert.Zero(t, uint64(slot)%32, "offset %s", off)
	}
}

func TestToNextEpochStartBeforeGenesis(t *testing.T) {
	c := testClock()
	// targets epoch 1, one full epoch after genesis
	assert.Equal(t, 384*time.Second+10*time.Second, c.ToNextEpochStart(at(-10*time.Second)))
	assert.Equal(t, 384*time.Second+time.Nanosecond, c.ToNextEpochStart(at(-time.Nanosecond)))
}

func TestToNextEpochStart(t *testing.T) {
	c := testClock()
	assert.Equal(t, 384*time.Second, c.ToNextEpochStart(at(0)))
	assert.Equal(t, 373*time.Second, c.ToNextEpochStart(at(11*time.Second)))
	assert.Equal(t, time.Second, c.ToNextEpochStart(at(383*time.Second)))
	assert.Equal(t, 384*time.Second, c.ToNextEpochStart(at(384*time.Second)))
}

func TestToNextEpochStartAcrossBoundary(t *testing.T) {
	c := testClock()
	start := at(2*384*time.Second - 30*time.Second)
	prev := c.ToNextEpochStart(start)
	for off := 250 * time.Millisecond; off < time.Minute; off += 250 * time.Millisecond {
		now := start.Add(off)
		d := c.ToNextEpochStart(now)
		require.Greater(t, d, time.Duration(0), "at %s", off)
		if now.Before(at(2 * 384 * time.Second)) {
			assert.Less(t, d, prev, "at %s", off)
		}
		prev = d
	}
}

func TestEpochAt(t *testing.T) {
	c := testClock()
	assert.Equal(t, common.Epoch(0), c.EpochAt(31))
	assert.Equal(t, common.Epoch(1), c.EpochAt(32))
}
