package state

import (
	"fmt"
	"os"
	"strings"

	"github.com/golang/snappy"
)

// ReadFile reads an SSZ encoded state from disk. Files ending in
// ".ssz_snappy" are snappy block-compressed, as in the consensus spec tests.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if strings.HasSuffix(path, ".ssz_snappy") {
		data, err = snappy.Decode(nil, data)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress state file: %w", err)
		}
	}
	return data, nil
}
