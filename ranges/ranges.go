package ranges

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/protolambda/zrnt/eth2/beacon/common"
)

// maxRangeLen bounds the number of indices a single range token may expand to.
const maxRangeLen = 1 << 24

// IndexGroups maps a group name to its validator indices, sorted and unique.
// An index may appear in several groups.
type IndexGroups map[string][]common.ValidatorIndex

// Names returns the group names in ascending order.
func (g IndexGroups) Names() []string {
	names := make([]string, 0, len(g))
	for name := range g {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Range is the half-open index interval [Start, End).
type Range struct {
	Start uint64
	End   uint64
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

// ParseError reports a range document or token that could not be parsed.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid range %q: %s", e.Token, e.Reason)
}

type namedRange struct {
	rng  Range
	name string
}

var (
	dualBound   = regexp.MustCompile(`(\d+)[-.]+(\d+)`)
	singleBound = regexp.MustCompile(`^(\d+):*$`)
)

// ParseRange parses a range token. Accepted forms are two bounds separated by
// '-' or '.' runs, optionally bracketed ("0-10", "0..10", "[0..10)"),
// or a single index with optional trailing ':' ("10", "10:").
func ParseRange(token string) (Range, error) {
	s := strings.TrimSpace(token)
	if m := dualBound.FindStringSubmatch(s); m != nil {
		start, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil {
			return Range{}, &ParseError{Token: token, Reason: err.Error()}
		}
		end, err := strconv.ParseUint(m[2], 10, 64)
		if err != nil {
			return Range{}, &ParseError{Token: token, Reason: err.Error()}
		}
		if end < start {
			return Range{}, &ParseError{Token: token, Reason: "end before start"}
		}
		if end-start > maxRangeLen {
			return Range{}, &ParseError{Token: token, Reason: fmt.Sprintf("range wider than %d indices", maxRangeLen)}
		}
		return Range{Start: start, End: end}, nil
	}
	if m := singleBound.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseUint(m[1], 10, 64)
		if err != nil || n == ^uint64(0) {
			return Range{}, &ParseError{Token: token, Reason: "index out of range"}
		}
		return Range{Start: n, End: n + 1}, nil
	}
	return Range{}, &ParseError{Token: token, Reason: "expected 'start..end' or a single index"}
}

// Parse reads a range document, either a JSON object of range to name:
//
//	{"0..1000": "entityA lighthouse-geth-0", "1000..2000": "entityB lodestar-nethermind-0"}
//
// or lines of a range followed by whitespace and the name:
//
//	0..1000 entityA lighthouse-geth-0
//	1000..2000 entityB lodestar-nethermind-0
//
// Ranges with the same name are merged into one group.
func Parse(input string) (IndexGroups, error) {
	var pairs []namedRange
	var obj map[string]string
	if err := json.Unmarshal([]byte(input), &obj); err == nil {
		pairs, err = parseJSON(obj)
		if err != nil {
			return nil, err
		}
	} else if strings.HasPrefix(strings.TrimSpace(input), "{") {
		return nil, &ParseError{Token: "{...}", Reason: fmt.Sprintf("expected JSON object of range to name: %v", err)}
	} else {
		pairs, err = parseTxt(input)
		if err != nil {
			return nil, err
		}
	}
	return group(pairs), nil
}

func parseJSON(obj map[string]string) ([]namedRange, error) {
	pairs := make([]namedRange, 0, len(obj))
	for token, name := range obj {
		rng, err := ParseRange(token)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, namedRange{rng: rng, name: strings.TrimSpace(name)})
	}
	// map iteration order is random
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].rng.Start != pairs[j].rng.Start {
			return pairs[i].rng.Start < pairs[j].rng.Start
		}
		return pairs[i].name < pairs[j].name
	})
	return pairs, nil
}

func parseTxt(input string) ([]namedRange, error) {
	var pairs []namedRange
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		i := strings.IndexFunc(line, isSpace)
		if i < 0 {
			return nil, &ParseError{Token: line, Reason: "missing group name after range"}
		}
		rng, err := ParseRange(line[:i])
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, namedRange{rng: rng, name: strings.TrimSpace(line[i:])})
	}
	return pairs, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}

func group(pairs []namedRange) IndexGroups {
	groups := make(IndexGroups)
	for _, p := range pairs {
		indices := groups[p.name]
		for i := p.rng.Start; i < p.rng.End; i++ {
			indices = append(indices, common.ValidatorIndex(i))
		}
		groups[p.name] = indices
	}
	for name, indices := range groups {
		slices.Sort(indices)
		groups[name] = slices.Compact(indices)
	}
	return groups
}
