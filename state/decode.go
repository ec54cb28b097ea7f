package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/codec"

	"github.com/protolambda/beacon-participation/chain"
)

var (
	ErrOutOfBounds    = errors.New("out of bounds")
	ErrInvalidOffsets = errors.New("invalid offsets")
)

// DecodeError names the state field that could not be decoded.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Partial is the part of a beacon state needed for participation metrics.
// All three lists have one entry per validator.
type Partial struct {
	Slot                       common.Slot
	PreviousEpochParticipation []byte
	CurrentEpochParticipation  []byte
	InactivityScores           []uint64
}

// ValidatorCount returns the number of validators in the state.
func (p *Partial) ValidatorCount() uint64 {
	return uint64(len(p.PreviousEpochParticipation))
}

// Decode extracts the slot, both participation lists and the inactivity
// scores from an SSZ encoded BeaconState, without decoding the rest of it.
//
// The validator count is not read from the registry. Participation flags are
// one byte per validator and the two participation lists are stored back to
// back, so the distance between their offsets is the validator count.
func Decode(cfg *chain.ConfigSpec, buf []byte) (*Partial, error) {
	layout := NewLayout(cfg)
	dr := codec.NewDecodingReader(bytes.NewReader(buf), uint64(len(buf)))

	if err := skipTo(dr, layout.Slot); err != nil {
		return nil, &DecodeError{Field: "slot", Err: err}
	}
	slot, err := dr.ReadUint64()
	if err != nil {
		return nil, &DecodeError{Field: "slot", Err: bounds(err)}
	}

	if err := skipTo(dr, layout.PreviousEpochParticipationPointer); err != nil {
		return nil, &DecodeError{Field: "previous_epoch_participation offset", Err: err}
	}
	prevOffset, err := dr.ReadOffset()
	if err != nil {
		return nil, &DecodeError{Field: "previous_epoch_participation offset", Err: bounds(err)}
	}
	currOffset, err := dr.ReadOffset()
	if err != nil {
		return nil, &DecodeError{Field: "current_epoch_participation offset", Err: bounds(err)}
	}
	if err := skipTo(dr, layout.InactivityScoresPointer); err != nil {
		return nil, &DecodeError{Field: "inactivity_scores offset", Err: err}
	}
	inactivityOffset, err := dr.ReadOffset()
	if err != nil {
		return nil, &DecodeError{Field: "inactivity_scores offset", Err: bounds(err)}
	}

	if uint64(prevOffset) < layout.HeadEnd() {
		return nil, &DecodeError{Field: "previous_epoch_participation offset",
			Err: fmt.Errorf("%w: data offset %d inside fixed head ending at %d", ErrInvalidOffsets, prevOffset, layout.HeadEnd())}
	}
	if currOffset <= prevOffset {
		return nil, &DecodeError{Field: "current_epoch_participation offset",
			Err: fmt.Errorf("%w: current offset %d not after previous offset %d", ErrInvalidOffsets, currOffset, prevOffset)}
	}
	validatorCount := uint64(currOffset - prevOffset)

	prev, err := slice(buf, uint64(prevOffset), validatorCount)
	if err != nil {
		return nil, &DecodeError{Field: "previous_epoch_participation", Err: err}
	}
	curr, err := slice(buf, uint64(currOffset), validatorCount)
	if err != nil {
		return nil, &DecodeError{Field: "current_epoch_participation", Err: err}
	}
	scoresData, err := slice(buf, uint64(inactivityOffset), validatorCount*inactivityScoreSize)
	if err != nil {
		return nil, &DecodeError{Field: "inactivity_scores", Err: err}
	}
	scores := make([]uint64, validatorCount)
	for i := range scores {
		scores[i] = binary.LittleEndian.Uint64(scoresData[i*inactivityScoreSize : (i+1)*inactivityScoreSize])
	}

	return &Partial{
		Slot:                       common.Slot(slot),
		PreviousEpochParticipation: append([]byte(nil), prev...),
		CurrentEpochParticipation:  append([]byte(nil), curr...),
		InactivityScores:           scores,
	}, nil
}

func skipTo(dr *codec.DecodingReader, pos uint64) error {
	if pos < dr.Index() {
		return fmt.Errorf("cannot skip back from %d to %d", dr.Index(), pos)
	}
	if _, err := dr.Skip(pos - dr.Index()); err != nil {
		return bounds(err)
	}
	return nil
}

func bounds(err error) error {
	return fmt.Errorf("%w: %v", ErrOutOfBounds, err)
}

func slice(buf []byte, start uint64, length uint64) ([]byte, error) {
	end := start + length
	if end < start || end > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: range %d..%d exceeds buffer length %d", ErrOutOfBounds, start, start+length, len(buf))
	}
	return buf[start:end], nil
}
