package service

import (
	"context"
	"math/big"
	"time"

	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/zkvote/coprocessor"
	"github.com/vocdoni/zkvote/storage"
	"github.com/vocdoni/zkvote/voting"
	"github.com/vocdoni/zkvote/web3"
)

// testLedger bundles an in-memory ledger with its co-processor and storage.
type testLedger struct {
	contracts *web3.MockContracts
	enc       *coprocessor.Client
	storage   *storage.Storage
	now       time.Time
}

func newTestLedger() *testLedger {
	backend := coprocessor.NewMockBackend()
	tl := &testLedger{
		contracts: web3.NewMockContracts(backend),
		enc:       coprocessor.New(backend),
		storage:   storage.New(memdb.New()),
		now:       time.Now(),
	}
	tl.contracts.SetClock(func() time.Time { return tl.now })
	return tl
}

// tallied creates a proposal, casts the given options on it and initiates the
// tally once the deadline has passed.
func (tl *testLedger) tallied(ctx context.Context, optionCount int, votes ...uint64) (*big.Int, error) {
	options := make([]string, optionCount)
	for i := range options {
		options[i] = "option " + big.NewInt(int64(i)).String()
	}
	count, err := tl.contracts.ProposalCount(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tl.contracts.CreateProposal(ctx, "proposal", "", options, tl.now.Add(time.Hour)); err != nil {
		return nil, err
	}
	id := new(big.Int).SetUint64(count)
	submitter := voting.NewSubmitter(tl.contracts, tl.enc, tl.storage)
	for _, option := range votes {
		if _, err := submitter.CastVote(ctx, id, option); err != nil {
			return nil, err
		}
	}
	tl.now = tl.now.Add(2 * time.Hour)
	if _, err := tl.contracts.InitiateTally(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}
