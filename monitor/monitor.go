package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/hashicorp/go-multierror"
	"github.com/protolambda/zrnt/eth2/beacon/common"

	"github.com/protolambda/beacon-participation/beacon"
	"github.com/protolambda/beacon-participation/chain"
	"github.com/protolambda/beacon-participation/metrics"
	"github.com/protolambda/beacon-participation/participation"
	"github.com/protolambda/beacon-participation/ranges"
	"github.com/protolambda/beacon-participation/state"
)

// Stages of a polling cycle, used in errors, logs and the failure counter.
const (
	StageFetch     = "fetch"
	StageDecode    = "decode"
	StageAggregate = "aggregate"
	StagePublish   = "publish"
)

// StageError is a failed polling cycle.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type StateFetcher interface {
	HeadState(ctx context.Context) (*beacon.RawState, error)
}

type SummaryStore interface {
	Save(slot common.Slot, summaries map[string]participation.Summary) error
}

type Config struct {
	Spec   *chain.ConfigSpec
	Clock  *chain.Clock
	Groups ranges.IndexGroups

	// Store is optional, it receives the summaries of every completed cycle.
	Store SummaryStore
	// Dump is optional, it receives the summary table of every completed cycle.
	Dump  io.Writer
}

// Monitor polls the head state once per epoch and publishes the participation of every group.
type Monitor struct {
	log     log.Logger
	fetcher StateFetcher
	metrics *metrics.Metrics
	cfg     Config

	now func() time.Time
}

func New(log log.Logger, fetcher StateFetcher, m *metrics.Metrics, cfg Config) *Monitor {
	return &Monitor{
		log:     log,
		fetcher: fetcher,
		metrics: m,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run polls at every epoch boundary until ctx is canceled.
// If the chain has started, a first cycle runs right away.
// A failed cycle is logged and the previously published values stay in place.
func (m *Monitor) Run(ctx context.Context) error {
	if _, started := m.cfg.Clock.CurrentEpochStartSlot(m.now()); started {
		m.runCycle(ctx)
	}
	for {
		wait := m.cfg.Clock.ToNextEpochStart(m.now())
		m.log.Debug("waiting for next epoch", "wait", wait)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if _, started := m.cfg.Clock.CurrentEpochStartSlot(m.now()); !started {
			m.log.Warn("before genesis, skipping cycle")
			continue
		}
		m.runCycle(ctx)
	}
}

func (m *Monitor) runCycle(ctx context.Context) {
	start := m.now()
	res, err := m.Cycle(ctx)
	if err != nil {
		var serr *StageError
		if errors.As(err, &serr) {
			m.metrics.RecordFailure(serr.Stage)
			m.log.Error("cycle failed", "stage", serr.Stage, "err", serr.Err)
		} else {
			m.log.Error("cycle failed", "err", err)
		}
		if res == nil {
			return
		}
	}
	m.log.Info("completed cycle", "epoch", res.Epoch, "slot", res.Slot, "validators", res.Validators,
		"groups", len(res.Summaries), "duration", m.now().Sub(start))
}

// CycleResult is what a cycle published.
type CycleResult struct {
	Slot       common.Slot
	Epoch      common.Epoch
	Validators uint64
	Summaries  map[string]participation.Summary
}

// Cycle fetches the head state, aggregates participation per group and publishes the result.
// Groups that fail to aggregate are logged and skipped, their gauges keep the previous value.
// A failure to store the published values returns both the result and a publish error.
func (m *Monitor) Cycle(ctx context.Context) (*CycleResult, error) {
	raw, err := m.fetcher.HeadState(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	if err := state.CheckForkVersion(raw.Version); err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}
	st, err := state.Decode(m.cfg.Spec, raw.Data)
	if err != nil {
		return nil, &StageError{Stage: StageDecode, Err: err}
	}
	res := &CycleResult{
		Slot:       st.Slot,
		Epoch:      m.cfg.Clock.EpochAt(st.Slot),
		Validators: st.ValidatorCount(),
	}

	summaries, err := participation.Aggregate(m.cfg.Groups, st)
	if err != nil {
		var merr *multierror.Error
		if errors.As(err, &merr) {
			for _, gerr := range merr.Errors {
				m.log.Warn("failed to aggregate group", "slot", st.Slot, "err", gerr)
			}
		}
		if len(summaries) == 0 {
			return nil, &StageError{Stage: StageAggregate, Err: err}
		}
		m.metrics.RecordFailure(StageAggregate)
	}
	res.Summaries = summaries

	m.metrics.Publish(summaries)
	m.metrics.RecordSlot(st.Slot)
	m.metrics.RecordCycle(m.now())

	if m.cfg.Dump != nil {
		if _, err := fmt.Fprintf(m.cfg.Dump, "slot %d, epoch %d, %d validators\n",
			res.Slot, res.Epoch, res.Validators); err != nil {
			m.log.Warn("failed to dump summaries", "err", err)
		} else if err := participation.WriteTable(m.cfg.Dump, summaries); err != nil {
			m.log.Warn("failed to dump summaries", "err", err)
		}
	}
	if m.cfg.Store != nil {
		if err := m.cfg.Store.Save(st.Slot, summaries); err != nil {
			return res, &StageError{Stage: StagePublish, Err: err}
		}
	}
	return res, nil
}
