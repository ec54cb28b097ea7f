package state

import (
	"bytes"
	"testing"

	"github.com/protolambda/zrnt/eth2/beacon/altair"
	"github.com/protolambda/zrnt/eth2/beacon/bellatrix"
	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/beacon/phase0"
	"github.com/protolambda/zrnt/eth2/configs"
	"github.com/protolambda/ztyp/codec"
	"github.com/protolambda/ztyp/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protolambda/beacon-participation/chain"
)

const zrntValidators = 37

func participationLists() (prev []byte, curr []byte, scores []uint64) {
	prev = make([]byte, zrntValidators)
	curr = make([]byte, zrntValidators)
	scores = make([]uint64, zrntValidators)
	for i := 0; i < zrntValidators; i++ {
		prev[i] = byte(i % 8)
		curr[i] = byte((i * 3) % 8)
		scores[i] = uint64(i)*1000 + 7
	}
	return
}

// altairState fills every fixed-length vector of the state, the encoder writes them at full length.
func altairState(spec *common.Spec, slot common.Slot, prev, curr []byte, scores []uint64) *altair.BeaconState {
	st := &altair.BeaconState{
		GenesisTime:      1_606_824_023,
		Slot:             slot,
		BlockRoots:       make(phase0.HistoricalBatchRoots, spec.SLOTS_PER_HISTORICAL_ROOT),
		StateRoots:       make(phase0.HistoricalBatchRoots, spec.SLOTS_PER_HISTORICAL_ROOT),
		HistoricalRoots:  phase0.HistoricalRoots{{0x01}, {0x02}},
		Eth1DataVotes:    phase0.Eth1DataVotes{{DepositCount: 3}},
		Eth1DepositIndex: 42,
		RandaoMixes:      make(phase0.RandaoMixes, spec.EPOCHS_PER_HISTORICAL_VECTOR),
		Slashings:        make(phase0.SlashingsHistory, spec.EPOCHS_PER_SLASHINGS_VECTOR),
		CurrentSyncCommittee: common.SyncCommittee{
			Pubkeys: make(common.SyncCommitteePubkeys, spec.SYNC_COMMITTEE_SIZE),
		},
		NextSyncCommittee: common.SyncCommittee{
			Pubkeys: make(common.SyncCommitteePubkeys, spec.SYNC_COMMITTEE_SIZE),
		},
	}
	st.BlockRoots[0] = common.Root{0xaa}
	st.JustificationBits = common.JustificationBits{0x0f}
	for i := range prev {
		st.Validators = append(st.Validators, &phase0.Validator{EffectiveBalance: 32_000_000_000})
		st.Balances = append(st.Balances, 32_000_000_000)
		st.PreviousEpochParticipation = append(st.PreviousEpochParticipation, altair.ParticipationFlags(prev[i]))
		st.CurrentEpochParticipation = append(st.CurrentEpochParticipation, altair.ParticipationFlags(curr[i]))
		st.InactivityScores = append(st.InactivityScores, view.Uint64View(scores[i]))
	}
	return st
}

func bellatrixState(a *altair.BeaconState) *bellatrix.BeaconState {
	return &bellatrix.BeaconState{
		GenesisTime:                 a.GenesisTime,
		GenesisValidatorsRoot:       a.GenesisValidatorsRoot,
		Slot:                        a.Slot,
		Fork:                        a.Fork,
		LatestBlockHeader:           a.LatestBlockHeader,
		BlockRoots:                  a.BlockRoots,
		StateRoots:                  a.StateRoots,
		HistoricalRoots:             a.HistoricalRoots,
		Eth1Data:                    a.Eth1Data,
		Eth1DataVotes:               a.Eth1DataVotes,
		Eth1DepositIndex:            a.Eth1DepositIndex,
		Validators:                  a.Validators,
		Balances:                    a.Balances,
		RandaoMixes:                 a.RandaoMixes,
		Slashings:                   a.Slashings,
		PreviousEpochParticipation:  a.PreviousEpochParticipation,
		CurrentEpochParticipation:   a.CurrentEpochParticipation,
		JustificationBits:           a.JustificationBits,
		PreviousJustifiedCheckpoint: a.PreviousJustifiedCheckpoint,
		CurrentJustifiedCheckpoint:  a.CurrentJustifiedCheckpoint,
		FinalizedCheckpoint:         a.FinalizedCheckpoint,
		InactivityScores:            a.InactivityScores,
		CurrentSyncCommittee:        a.CurrentSyncCommittee,
		NextSyncCommittee:           a.NextSyncCommittee,
		LatestExecutionPayloadHeader: common.ExecutionPayloadHeader{
			BlockNumber: 15_537_394,
			ExtraData:   common.ExtraData("payload"),
		},
	}
}

func serialize(t *testing.T, spec *common.Spec, obj common.SpecObj) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, spec.Wrap(obj).Serialize(codec.NewEncodingWriter(&buf)))
	return buf.Bytes()
}

func TestDecodeZrntStates(t *testing.T) {
	prev, curr, scores := participationLists()
	for _, preset := range []struct {
		name string
		spec *common.Spec
	}{
		{"minimal", configs.Minimal},
		{"mainnet", configs.Mainnet},
	} {
		cfg, err := chain.FromSpec(preset.spec)
		require.NoError(t, err)

		a := altairState(preset.spec, 4_700_013, prev, curr, scores)
		b := bellatrixState(a)
		for _, enc := range []struct {
			fork string
			data []byte
		}{
			{"altair", serialize(t, preset.spec, a)},
			{"bellatrix", serialize(t, preset.spec, b)},
		} {
			st, err := Decode(cfg, enc.data)
			require.NoError(t, err, "%s %s", preset.name, enc.fork)
			assert.Equal(t, common.Slot(4_700_013), st.Slot, "%s %s", preset.name, enc.fork)
			assert.Equal(t, prev, st.PreviousEpochParticipation, "%s %s", preset.name, enc.fork)
			assert.Equal(t, curr, st.CurrentEpochParticipation, "%s %s", preset.name, enc.fork)
			assert.Equal(t, scores, st.InactivityScores, "%s %s", preset.name, enc.fork)
			assert.Equal(t, uint64(zrntValidators), st.ValidatorCount(), "%s %s", preset.name, enc.fork)
		}
	}
}
