package ranges

import (
	"errors"
	"testing"

	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indices(start, end uint64) []common.ValidatorIndex {
	out := make([]common.ValidatorIndex, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, common.ValidatorIndex(i))
	}
	return out
}

func TestParseRangeDualBound(t *testing.T) {
	for _, input := range []string{
		"0-10", "0..10", "0..10:", "[0..10]:", "[0..10]", "[0-10]", "(0..10)", "[0-10)", " 0.-.10 ",
	} {
		rng, err := ParseRange(input)
		require.NoError(t, err, input)
		assert.Equal(t, Range{Start: 0, End: 10}, rng, input)
	}
}

func TestParseRangeSingleBound(t *testing.T) {
	for _, input := range []string{"10", "10:", " 10  ", " 10: ", "10::"} {
		rng, err := ParseRange(input)
		require.NoError(t, err, input)
		assert.Equal(t, Range{Start: 10, End: 11}, rng, input)
	}
}

func TestParseRangeInvalid(t *testing.T) {
	for _, input := range []string{
		"", "abc", "10:20", "-5", "10..5", "0..99999999999", "99999999999999999999", "18446744073709551615",
	} {
		_, err := ParseRange(input)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), "input %q: %v", input, err)
		assert.Equal(t, input, perr.Token)
	}
}

func TestParseTxt(t *testing.T) {
	groups, err := Parse(`
  0..100   entityA lighthouse-geth
  100..200	entityB lodestar-nethermind-1

# comment line
`)
	require.NoError(t, err)
	assert.Equal(t, IndexGroups{
		"entityA lighthouse-geth":       indices(0, 100),
		"entityB lodestar-nethermind-1": indices(100, 200),
	}, groups)
}

func TestParseJSON(t *testing.T) {
	groups, err := Parse(`{"0..100": "entityA lighthouse-geth", "100..200": "entityB lodestar-nethermind-1"}`)
	require.NoError(t, err)
	assert.Equal(t, IndexGroups{
		"entityA lighthouse-geth":       indices(0, 100),
		"entityB lodestar-nethermind-1": indices(100, 200),
	}, groups)
}

func TestParseYamlLike(t *testing.T) {
	groups, err := Parse("0..100: entityA lighthouse-geth\n100..200: entityB lodestar-nethermind-1\n")
	require.NoError(t, err)
	assert.Equal(t, IndexGroups{
		"entityA lighthouse-geth":       indices(0, 100),
		"entityB lodestar-nethermind-1": indices(100, 200),
	}, groups)
}

func TestParseMergesSameName(t *testing.T) {
	groups, err := Parse(`
50..55: entityA lighthouse-geth
57..58: entityA lighthouse-geth
60: entityA lighthouse-geth
70: entityA lighthouse-geth
100..200: entityB lodestar-nethermind-1
`)
	require.NoError(t, err)
	assert.Equal(t, []common.ValidatorIndex{50, 51, 52, 53, 54, 57, 60, 70}, groups["entityA lighthouse-geth"])
	assert.Equal(t, indices(100, 200), groups["entityB lodestar-nethermind-1"])
}

func TestParseOverlapDeduplicated(t *testing.T) {
	want := []common.ValidatorIndex{50, 51, 52, 53, 54, 55, 56, 57}

	groups, err := Parse("52..58 A\n50..55 A\n")
	require.NoError(t, err)
	assert.Equal(t, want, groups["A"])

	groups, err = Parse(`{"52..58": "A", "50..55": "A", "0..2": "B"}`)
	require.NoError(t, err)
	assert.Equal(t, want, groups["A"])
	assert.Equal(t, []common.ValidatorIndex{0, 1}, groups["B"])
}

func TestParseIndexInSeveralGroups(t *testing.T) {
	groups, err := Parse("0..4 all\n2 two\n")
	require.NoError(t, err)
	assert.Equal(t, indices(0, 4), groups["all"])
	assert.Equal(t, []common.ValidatorIndex{2}, groups["two"])
	assert.Equal(t, []string{"all", "two"}, groups.Names())
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{
		"0..10",
		"x..y name",
		"0..10 a\nbad name",
		`{"0..10": "a", "nope": "b"}`,
		`{"0..10": 5}`,
	} {
		_, err := Parse(input)
		var perr *ParseError
		assert.True(t, errors.As(err, &perr), "input %q: %v", input, err)
	}
}
