package chain

import (
	"time"

	"github.com/protolambda/zrnt/eth2/beacon/common"
)

// Clock maps wall-clock time onto the slot and epoch timeline of a chain.
type Clock struct {
	genesis       time.Time
	slotDuration  time.Duration
	slotsPerEpoch uint64
}

func NewClock(genesisTime common.Timestamp, cfg *ConfigSpec) *Clock {
	return &Clock{
		genesis:       time.Unix(int64(genesisTime), 0),
		slotDuration:  time.Duration(cfg.SecondsPerSlot) * time.Second,
		slotsPerEpoch: cfg.SlotsPerEpoch,
	}
}

func (c *Clock) epochDuration() time.Duration {
	return c.slotDuration * time.Duration(c.slotsPerEpoch)
}

// CurrentEpochStartSlot returns the first slot of the epoch that contains now.
// started is false if now is before genesis, in which case the slot is meaningless.
func (c *Clock) CurrentEpochStartSlot(now time.Time) (slot common.Slot, started bool) {
	if now.Before(c.genesis) {
		return 0, false
	}
	s := uint64(now.Sub(c.genesis) / c.slotDuration)
	return common.Slot(s - s%c.slotsPerEpoch), true
}

// ToNextEpochStart returns how long to wait from now until the next epoch boundary.
// Before genesis it targets the start of epoch 1, so the first wait ends
// once a full epoch of participation exists.
func (c *Clock) ToNextEpochStart(now time.Time) time.Duration {
	if now.Before(c.genesis) {
		return c.genesis.Add(c.epochDuration()).Sub(now)
	}
	epoch := uint64(now.Sub(c.genesis) / c.epochDuration())
	next := c.genesis.Add(time.Duration(epoch+1) * c.epochDuration())
	return next.Sub(now)
}

// EpochAt returns the epoch of the given slot.
func (c *Clock) EpochAt(slot common.Slot) common.Epoch {
	return common.Epoch(uint64(slot) / c.slotsPerEpoch)
}
