package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkvote/storage"
	"github.com/vocdoni/zkvote/types"
	"github.com/vocdoni/zkvote/voting"
)

func waitTallyResult(c *qt.C, stg *storage.Storage, id *big.Int) *types.TallyResult {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		result, err := stg.TallyResult(types.NewBigInt(id))
		if err == nil {
			return result
		}
		c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
		time.Sleep(10 * time.Millisecond)
	}
	c.Fatalf("tally result of proposal %s not stored in time", id)
	return nil
}

func TestTallyMonitor(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	tl := newTestLedger()
	defer tl.storage.Close()

	id, err := tl.tallied(ctx, 3, 2)
	c.Assert(err, qt.IsNil)
	// open proposal, must be left alone
	_, err = tl.contracts.CreateProposal(ctx, "open", "", []string{"yes", "no"}, tl.now.Add(time.Hour))
	c.Assert(err, qt.IsNil)

	revealer := voting.NewRevealer(tl.contracts, tl.enc, tl.storage)
	tm := NewTallyMonitor(tl.contracts, revealer, tl.storage, 10*time.Millisecond)
	c.Assert(tm.Start(ctx), qt.IsNil)
	defer tm.Stop()
	c.Assert(tm.Start(ctx), qt.ErrorMatches, "service already running")

	result := waitTallyResult(c, tl.storage, id)
	c.Assert(result.Counts, qt.HasLen, 3)
	c.Assert(result.Counts[0].String(), qt.Equals, "0")
	c.Assert(result.Counts[1].String(), qt.Equals, "0")
	c.Assert(result.Counts[2].String(), qt.Equals, "1")

	tm.Stop()
	_, err = tl.storage.TallyResult(types.NewInt(1))
	c.Assert(err, qt.ErrorIs, storage.ErrNotFound)
}

type countingRevealer struct {
	calls int
	err   error
	next  Revealer
}

func (r *countingRevealer) Reveal(ctx context.Context, id *big.Int) (*types.TallyResult, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.next.Reveal(ctx, id)
}

func TestTallyMonitorRevealsOnce(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	tl := newTestLedger()
	defer tl.storage.Close()

	_, err := tl.tallied(ctx, 2, 0)
	c.Assert(err, qt.IsNil)
	_, err = tl.tallied(ctx, 2)
	c.Assert(err, qt.IsNil)

	revealer := &countingRevealer{next: voting.NewRevealer(tl.contracts, tl.enc, tl.storage)}
	tm := NewTallyMonitor(tl.contracts, revealer, tl.storage, time.Hour)

	c.Assert(tm.checkProposals(ctx), qt.Equals, 2)
	c.Assert(revealer.calls, qt.Equals, 2)
	c.Assert(tm.checkProposals(ctx), qt.Equals, 0)
	c.Assert(revealer.calls, qt.Equals, 2)

	// a new monitor over the same storage finds the results already stored
	tm = NewTallyMonitor(tl.contracts, revealer, tl.storage, time.Hour)
	c.Assert(tm.checkProposals(ctx), qt.Equals, 2)
	c.Assert(revealer.calls, qt.Equals, 2)
}

func TestTallyMonitorRetriesFailures(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()
	tl := newTestLedger()
	defer tl.storage.Close()

	id, err := tl.tallied(ctx, 2, 1)
	c.Assert(err, qt.IsNil)

	revealer := &countingRevealer{
		err:  errors.New("co-processor unavailable"),
		next: voting.NewRevealer(tl.contracts, tl.enc, tl.storage),
	}
	tm := NewTallyMonitor(tl.contracts, revealer, tl.storage, time.Hour)
	c.Assert(tm.checkProposals(ctx), qt.Equals, 0)

	tl.contracts.SetFailure("ProposalCount", errors.New("node down"))
	c.Assert(tm.checkProposals(ctx), qt.Equals, 0)
	c.Assert(revealer.calls, qt.Equals, 1)
	tl.contracts.SetFailure("ProposalCount", nil)

	revealer.err = nil
	c.Assert(tm.checkProposals(ctx), qt.Equals, 1)
	result, err := tl.storage.TallyResult(types.NewBigInt(id))
	c.Assert(err, qt.IsNil)
	c.Assert(result.Counts[1].String(), qt.Equals, "1")
}

func TestTallyMonitorInterval(t *testing.T) {
	c := qt.New(t)
	tl := newTestLedger()
	defer tl.storage.Close()
	tm := NewTallyMonitor(tl.contracts, nil, tl.storage, 0)
	c.Assert(tm.Start(context.Background()), qt.ErrorMatches, "invalid monitor interval .*")
}
