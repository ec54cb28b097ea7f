package chain

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/configs"
)

// ConfigSpec is the subset of the chain configuration needed to locate fields
// in a serialized beacon state and to follow the epoch timeline.
type ConfigSpec struct {
	SecondsPerSlot            uint64
	SlotsPerEpoch             uint64
	SlotsPerHistoricalRoot    uint64
	EpochsPerHistoricalVector uint64
	EpochsPerSlashingsVector  uint64
}

// Validate checks that all parameters are positive.
func (c *ConfigSpec) Validate() error {
	for _, p := range []struct {
		name string
		v    uint64
	}{
		{"SECONDS_PER_SLOT", c.SecondsPerSlot},
		{"SLOTS_PER_EPOCH", c.SlotsPerEpoch},
		{"SLOTS_PER_HISTORICAL_ROOT", c.SlotsPerHistoricalRoot},
		{"EPOCHS_PER_HISTORICAL_VECTOR", c.EpochsPerHistoricalVector},
		{"EPOCHS_PER_SLASHINGS_VECTOR", c.EpochsPerSlashingsVector},
	} {
		if p.v == 0 {
			return fmt.Errorf("invalid config: %s must be positive", p.name)
		}
	}
	return nil
}

// FromSpec extracts the ConfigSpec from a full beacon spec.
func FromSpec(spec *common.Spec) (*ConfigSpec, error) {
	cfg := &ConfigSpec{
		SecondsPerSlot:            uint64(spec.SECONDS_PER_SLOT),
		SlotsPerEpoch:             uint64(spec.SLOTS_PER_EPOCH),
		SlotsPerHistoricalRoot:    uint64(spec.SLOTS_PER_HISTORICAL_ROOT),
		EpochsPerHistoricalVector: uint64(spec.EPOCHS_PER_HISTORICAL_VECTOR),
		EpochsPerSlashingsVector:  uint64(spec.EPOCHS_PER_SLASHINGS_VECTOR),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Preset returns one of the built-in specs by name.
func Preset(name string) (*common.Spec, error) {
	switch name {
	case "mainnet":
		return configs.Mainnet, nil
	case "minimal":
		return configs.Minimal, nil
	default:
		return nil, fmt.Errorf("unknown preset %q, expected 'mainnet' or 'minimal'", name)
	}
}

// LoadSpecFile reads a spec in the JSON format served by /eth/v1/config/spec,
// either the bare object or wrapped in a "data" envelope.
func LoadSpecFile(specFilePath string) (*common.Spec, error) {
	data, err := os.ReadFile(specFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Data) > 0 {
		data = envelope.Data
	}
	var x common.Spec
	if err := json.Unmarshal(data, &x); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json spec: %w", err)
	}
	return &x, nil
}
