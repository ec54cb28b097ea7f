package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"
	"github.com/urfave/cli/v2"

	"github.com/protolambda/beacon-participation/beacon"
	"github.com/protolambda/beacon-participation/chain"
	"github.com/protolambda/beacon-participation/flags"
	"github.com/protolambda/beacon-participation/metrics"
	"github.com/protolambda/beacon-participation/monitor"
	"github.com/protolambda/beacon-participation/ranges"
	"github.com/protolambda/beacon-participation/store"
)

var RunCmd = &cli.Command{
	Name:  "run",
	Usage: "Export validator participation of a beacon node as prometheus metrics.",
	Description: "Fetch the head state of the beacon node at every epoch boundary, " +
		"and publish the participation of every validator range.",
	Action: Run,
	Flags:  flags.RunFlags,
}

func Run(ctx *cli.Context) error {
	log, err := SetupLogger(ctx)
	if err != nil {
		return err
	}

	headers, err := beacon.ParseHeaders(ctx.StringSlice(flags.BeaconHeaderFlag.Name))
	if err != nil {
		return err
	}
	beaconURL := ctx.String(flags.BeaconURLFlag.Name)
	client := beacon.NewClient(beaconURL, headers, ctx.Duration(flags.BeaconTimeoutFlag.Name))

	log.Info("loading beacon spec from beacon api endpoint...", "url", beaconURL)
	spec, err := client.Spec(ctx.Context)
	if err != nil {
		return err
	}
	cfg, err := chain.FromSpec(spec)
	if err != nil {
		return err
	}
	log.Info("loaded beacon spec", "seconds_per_slot", cfg.SecondsPerSlot, "slots_per_epoch", cfg.SlotsPerEpoch)

	genesis, err := client.Genesis(ctx.Context)
	if err != nil {
		return err
	}
	clock := chain.NewClock(genesis.GenesisTime, cfg)
	log.Info("loaded genesis info", "genesis_time", genesis.GenesisTime)
	if slot, started := clock.CurrentEpochStartSlot(time.Now()); started && clock.EpochAt(slot) < spec.ALTAIR_FORK_EPOCH {
		log.Warn("chain is not past the altair fork yet, cycles fail until it is",
			"epoch", clock.EpochAt(slot), "altair_fork_epoch", spec.ALTAIR_FORK_EPOCH)
	}

	groups, err := loadGroups(ctx, false)
	if err != nil {
		return err
	}
	log.Info("loaded validator ranges", "ranges", len(groups))

	m := metrics.New()
	monCfg := monitor.Config{
		Spec:   cfg,
		Clock:  clock,
		Groups: groups,
	}
	if ctx.Bool(flags.DumpFlag.Name) {
		monCfg.Dump = os.Stdout
	}

	var db *store.Store
	if path := ctx.Path(flags.DBFlag.Name); path != "" {
		db, err = store.Open(path)
		if err != nil {
			return err
		}
		if err := seedMetrics(log, db, groups, m); err != nil {
			log.Warn("failed to restore last published values", "err", err)
		}
		monCfg.Store = db
	}

	listenAddr := net.JoinHostPort(ctx.String(flags.MetricsAddrFlag.Name), strconv.Itoa(ctx.Int(flags.MetricsPortFlag.Name)))
	srv := metrics.StartServer(log, listenAddr, m)

	mon := monitor.New(log.New("module", "monitor"), client, m, monCfg)
	runErr := mon.Run(ctx.Context)

	log.Info("shutting down")
	var result error
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		result = multierror.Append(result, runErr)
	}
	if err := srv.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to close metrics server: %w", err))
	}
	if db != nil {
		if err := db.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close db: %w", err))
		}
	}
	return result
}

// seedMetrics publishes the stored values of ranges that are still configured.
func seedMetrics(log log.Logger, db *store.Store, groups ranges.IndexGroups, m *metrics.Metrics) error {
	slot, stored, err := db.Load()
	if err != nil {
		return err
	}
	for name := range stored {
		if _, ok := groups[name]; !ok {
			delete(stored, name)
		}
	}
	if len(stored) == 0 {
		return nil
	}
	m.Publish(stored)
	m.RecordSlot(slot)
	log.Info("restored last published values", "slot", slot, "ranges", len(stored))
	return nil
}
