package participation

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
	"github.com/protolambda/zrnt/eth2/beacon/common"

	"github.com/protolambda/beacon-participation/ranges"
	"github.com/protolambda/beacon-participation/state"
)

// Summary is the participation of one validator group in the previous epoch.
// Ratios are in [0, 1]. For an empty group all values are NaN.
type Summary struct {
	Validators          int
	SourceRatio         float64
	TargetRatio         float64
	HeadRatio           float64
	InactivityScoresAvg float64
}

// Empty reports whether the summary carries no data.
func (s Summary) Empty() bool {
	return s.Validators == 0
}

func emptySummary() Summary {
	nan := math.NaN()
	return Summary{SourceRatio: nan, TargetRatio: nan, HeadRatio: nan, InactivityScoresAvg: nan}
}

// GroupError is returned for a group that references a validator the state does not contain.
type GroupError struct {
	Group          string
	Index          common.ValidatorIndex
	ValidatorCount uint64
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("group %q: validator index %d out of range, state has %d validators", e.Group, e.Index, e.ValidatorCount)
}

// Aggregate computes a Summary per group from the previous epoch participation
// and the inactivity scores of the state.
// Groups that fail are left out of the result and reported in the returned error,
// the other groups are still aggregated.
func Aggregate(groups ranges.IndexGroups, st *state.Partial) (map[string]Summary, error) {
	out := make(map[string]Summary, len(groups))
	var result error
	for _, name := range groups.Names() {
		s, err := aggregateGroup(name, groups[name], st)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		out[name] = s
	}
	return out, result
}

func aggregateGroup(name string, indices []common.ValidatorIndex, st *state.Partial) (Summary, error) {
	if len(indices) == 0 {
		return emptySummary(), nil
	}
	count := st.ValidatorCount()
	if uint64(len(st.InactivityScores)) < count {
		count = uint64(len(st.InactivityScores))
	}
	var source, target, head int
	var scores float64
	for _, i := range indices {
		if uint64(i) >= count {
			return Summary{}, &GroupError{Group: name, Index: i, ValidatorCount: count}
		}
		flags := Flags(st.PreviousEpochParticipation[i])
		if HasFlag(flags, TimelySource) {
			source++
		}
		if HasFlag(flags, TimelyTarget) {
			target++
		}
		if HasFlag(flags, TimelyHead) {
			head++
		}
		scores += float64(st.InactivityScores[i])
	}
	n := float64(len(indices))
	return Summary{
		Validators:          len(indices),
		SourceRatio:         float64(source) / n,
		TargetRatio:         float64(target) / n,
		HeadRatio:           float64(head) / n,
		InactivityScoresAvg: scores / n,
	}, nil
}
