// Package statetest encodes synthetic beacon states for tests.
package statetest

import (
	"bytes"
	"fmt"

	"github.com/protolambda/ztyp/codec"

	"github.com/protolambda/beacon-participation/chain"
)

// Config is a small chain config that keeps encoded states short.
var Config = &chain.ConfigSpec{
	SecondsPerSlot:            6,
	SlotsPerEpoch:             8,
	SlotsPerHistoricalRoot:    64,
	EpochsPerHistoricalVector: 64,
	EpochsPerSlashingsVector:  64,
}

const validatorSize = 48 + 32 + 8 + 1 + 8*4

// Fixture is an SSZ BeaconState with the Altair field order.
// Fields the decoder skips are filled with recognizable junk.
type Fixture struct {
	Slot                       uint64
	HistoricalRoots            int
	Eth1DataVotes              int
	PreviousEpochParticipation []byte
	CurrentEpochParticipation  []byte
	InactivityScores           []uint64

	// Trailer is the size of fixed fields appended after inactivity_scores by later forks.
	Trailer int
}

// New returns a fixture of ten validators.
func New() *Fixture {
	return &Fixture{
		Slot:                       123_456,
		HistoricalRoots:            3,
		Eth1DataVotes:              5,
		PreviousEpochParticipation: []byte{0, 1, 2, 3, 4, 5, 6, 7, 7, 3},
		CurrentEpochParticipation:  []byte{7, 7, 7, 0, 0, 1, 2, 4, 6, 5},
		InactivityScores:           []uint64{0, 1, 2, 300, 4, 1 << 40, 6, 7, 8, 9},
	}
}

func filled(n int, v byte) []byte {
	return bytes.Repeat([]byte{v}, n)
}

// Encode writes the state as laid out for cfg.
func (f *Fixture) Encode(cfg *chain.ConfigSpec) ([]byte, error) {
	if len(f.CurrentEpochParticipation) != len(f.PreviousEpochParticipation) ||
		len(f.InactivityScores) != len(f.PreviousEpochParticipation) {
		return nil, fmt.Errorf("fixture lists differ in length")
	}
	var buf bytes.Buffer
	w := codec.NewEncodingWriter(&buf)
	n := uint64(len(f.PreviousEpochParticipation))

	fixedSize := uint64(8+32+8+16+112) +
		32*cfg.SlotsPerHistoricalRoot*2 +
		4 + 72 + 4 + 8 + 4 + 4 +
		32*cfg.EpochsPerHistoricalVector +
		8*cfg.EpochsPerSlashingsVector +
		4 + 4 + 1 + 3*40 + 4 +
		uint64(f.Trailer)

	var err error
	check := func(e error) {
		if err == nil {
			err = e
		}
	}
	offset := func(prev uint64, elemLen uint64) uint64 {
		next, e := w.WriteOffset(prev, elemLen)
		check(e)
		return next
	}

	// genesis_time, genesis_validators_root, slot, fork, latest_block_header
	check(w.WriteUint64(1_606_824_000))
	check(w.Write(filled(32, 0xaa)))
	check(w.WriteUint64(f.Slot))
	check(w.Write(filled(16, 0xbb)))
	check(w.Write(filled(112, 0xcc)))
	// block_roots, state_roots
	check(w.Write(filled(int(32*cfg.SlotsPerHistoricalRoot), 0x01)))
	check(w.Write(filled(int(32*cfg.SlotsPerHistoricalRoot), 0x02)))
	// historical_roots
	off := offset(fixedSize, 0)
	// eth1_data, eth1_data_votes, eth1_deposit_index
	check(w.Write(filled(72, 0xdd)))
	off = offset(off, uint64(32*f.HistoricalRoots))
	check(w.WriteUint64(1234))
	// validators, balances
	off = offset(off, uint64(72*f.Eth1DataVotes))
	off = offset(off, validatorSize*n)
	// randao_mixes, slashings
	check(w.Write(filled(int(32*cfg.EpochsPerHistoricalVector), 0x03)))
	check(w.Write(filled(int(8*cfg.EpochsPerSlashingsVector), 0x04)))
	// previous_epoch_participation, current_epoch_participation
	off = offset(off, 8*n)
	off = offset(off, n)
	// justification_bits and the three checkpoints
	check(w.WriteByte(0x0f))
	check(w.Write(filled(3*40, 0xee)))
	// inactivity_scores
	offset(off, n)
	check(w.Write(filled(f.Trailer, 0x05)))
	if err != nil {
		return nil, err
	}
	if uint64(w.Written()) != fixedSize {
		return nil, fmt.Errorf("fixed part is %d bytes, expected %d", w.Written(), fixedSize)
	}

	check(w.Write(filled(32*f.HistoricalRoots, 0x06)))
	check(w.Write(filled(72*f.Eth1DataVotes, 0x07)))
	check(w.Write(filled(int(validatorSize*n), 0x08)))
	check(w.Write(filled(int(8*n), 0x09)))
	check(w.Write(f.PreviousEpochParticipation))
	check(w.Write(f.CurrentEpochParticipation))
	for _, s := range f.InactivityScores {
		check(w.WriteUint64(s))
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
