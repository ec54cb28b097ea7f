package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"
	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/urfave/cli/v2"

	"github.com/protolambda/beacon-participation/chain"
	"github.com/protolambda/beacon-participation/era"
	"github.com/protolambda/beacon-participation/flags"
	"github.com/protolambda/beacon-participation/participation"
	"github.com/protolambda/beacon-participation/ranges"
	"github.com/protolambda/beacon-participation/state"
)

var DecodeCmd = &cli.Command{
	Name:  "decode",
	Usage: "Print the participation of a beacon state file.",
	Description: "Decode a beacon state from a .ssz, .ssz_snappy or .era file, " +
		"and print the previous epoch participation per validator range, or of all validators if no ranges are given.",
	Action: Decode,
	Flags:  flags.DecodeFlags,
}

func Decode(ctx *cli.Context) error {
	log, err := SetupLogger(ctx)
	if err != nil {
		return err
	}

	var spec *common.Spec
	if specPath := ctx.Path(flags.SpecFlag.Name); specPath != "" {
		spec, err = chain.LoadSpecFile(specPath)
	} else {
		spec, err = chain.Preset(ctx.String(flags.PresetFlag.Name))
	}
	if err != nil {
		return err
	}
	cfg, err := chain.FromSpec(spec)
	if err != nil {
		return err
	}

	data, err := readStateData(log, ctx.Path(flags.StateFlag.Name))
	if err != nil {
		return err
	}

	st, err := state.Decode(cfg, data)
	if err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}
	epoch := common.Epoch(uint64(st.Slot) / cfg.SlotsPerEpoch)
	if epoch < spec.ALTAIR_FORK_EPOCH {
		return fmt.Errorf("state at slot %d is before the altair fork epoch %d", st.Slot, spec.ALTAIR_FORK_EPOCH)
	}

	groups, err := loadGroups(ctx, true)
	if err != nil {
		return err
	}
	if groups == nil {
		all := make([]common.ValidatorIndex, st.ValidatorCount())
		for i := range all {
			all[i] = common.ValidatorIndex(i)
		}
		groups = ranges.IndexGroups{"all": all}
	}

	summaries, err := participation.Aggregate(groups, st)
	if err != nil {
		var merr *multierror.Error
		if !errors.As(err, &merr) || len(summaries) == 0 {
			return err
		}
		for _, gerr := range merr.Errors {
			log.Warn("failed to aggregate range", "err", gerr)
		}
	}

	w := ctx.App.Writer
	if _, err := fmt.Fprintf(w, "slot %d, epoch %d, %d validators\n", st.Slot, epoch, st.ValidatorCount()); err != nil {
		return err
	}
	return participation.WriteTable(w, summaries)
}

// readStateData reads a state file, the last state of an era file,
// or the latest state of a directory of era files.
func readStateData(log log.Logger, path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	switch {
	case info.IsDir():
		store := era.NewStore()
		if err := store.Load(path); err != nil {
			return nil, err
		}
		slot, data, err := store.Latest()
		if err != nil {
			return nil, fmt.Errorf("failed to read latest state of era dir: %w", err)
		}
		log.Info("read latest state from era dir", "slot", slot, "eras", len(store.Files), "size", len(data))
		return data, nil
	case strings.HasSuffix(path, ".era"):
		slot, data, err := era.ReadState(path)
		if err != nil {
			return nil, err
		}
		log.Info("read state from era file", "slot", slot, "size", len(data))
		return data, nil
	default:
		return state.ReadFile(path)
	}
}
