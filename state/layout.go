package state

import "github.com/protolambda/beacon-participation/chain"

// Field widths of the fixed-size part of an Altair-or-later BeaconState,
// in declaration order. Variable-size fields occupy an offset pointer.
const (
	offsetSize = 4

	genesisTimeSize           = 8
	genesisValidatorsRootSize = 32
	slotSize                  = 8
	forkSize                  = 4 + 4 + 8
	latestBlockHeaderSize     = 8 + 8 + 32 + 32 + 32
	rootSize                  = 32
	eth1DataSize              = 32 + 8 + 32
	eth1DepositIndexSize      = 8
	gweiSize                  = 8
	justificationBitsSize     = 1
	checkpointSize            = 8 + 32

	inactivityScoreSize = 8
)

// Layout holds the absolute positions of the head fields the decoder reads.
// The field order up to inactivity_scores is shared by every fork since Altair,
// fields appended after it do not move these positions.
type Layout struct {
	Slot uint64

	PreviousEpochParticipationPointer uint64
	CurrentEpochParticipationPointer  uint64
	InactivityScoresPointer           uint64
}

// NewLayout computes the head positions for the given chain config.
func NewLayout(cfg *chain.ConfigSpec) Layout {
	slot := uint64(genesisTimeSize + genesisValidatorsRootSize)

	prev := slot +
		slotSize +
		forkSize +
		latestBlockHeaderSize +
		rootSize*cfg.SlotsPerHistoricalRoot + // block_roots
		rootSize*cfg.SlotsPerHistoricalRoot + // state_roots
		offsetSize + // historical_roots
		eth1DataSize +
		offsetSize + // eth1_data_votes
		eth1DepositIndexSize +
		offsetSize + // validators
		offsetSize + // balances
		rootSize*cfg.EpochsPerHistoricalVector + // randao_mixes
		gweiSize*cfg.EpochsPerSlashingsVector // slashings

	curr := prev + offsetSize

	inactivity := curr +
		offsetSize +
		justificationBitsSize +
		checkpointSize*3 // previous_justified, current_justified, finalized

	return Layout{
		Slot:                              slot,
		PreviousEpochParticipationPointer: prev,
		CurrentEpochParticipationPointer:  curr,
		InactivityScoresPointer:           inactivity,
	}
}

// HeadEnd is the first byte after the last pointer the decoder reads.
// Variable-size data can only start at or after this position.
func (l Layout) HeadEnd() uint64 {
	return l.InactivityScoresPointer + offsetSize
}
