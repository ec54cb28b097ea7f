package state

import (
	"fmt"
	"strings"
)

// CheckForkVersion rejects states of forks without participation flags.
// The version is the Eth-Consensus-Version header of the state response,
// an empty version is accepted.
func CheckForkVersion(version string) error {
	if strings.EqualFold(strings.TrimSpace(version), "phase0") {
		return fmt.Errorf("unsupported state version %q: no participation flags before altair", version)
	}
	return nil
}
