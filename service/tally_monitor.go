package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/storage"
	"github.com/vocdoni/zkvote/types"
)

// ProposalReader is the part of the ledger the tally monitor reads.
type ProposalReader interface {
	ProposalCount(ctx context.Context) (uint64, error)
	Proposal(ctx context.Context, id *big.Int) (*types.Proposal, error)
}

// Revealer reveals and stores the tally of a tallied proposal.
type Revealer interface {
	Reveal(ctx context.Context, proposalID *big.Int) (*types.TallyResult, error)
}

// TallyMonitor watches the voting contract for proposals whose tally was
// initiated and reveals their results once, storing them so the results
// endpoint can serve them without reaching the co-processor.
type TallyMonitor struct {
	ledger   ProposalReader
	revealer Revealer
	storage  *storage.Storage
	interval time.Duration
	mu       sync.Mutex
	cancel   context.CancelFunc
	// revealed caches the proposals with a stored result, so they are not
	// read from the ledger on every tick.
	revealed map[string]struct{}
}

// NewTallyMonitor creates a new tally monitor. The revealer is expected to
// store its results in stg.
func NewTallyMonitor(ledger ProposalReader, revealer Revealer, stg *storage.Storage, interval time.Duration) *TallyMonitor {
	return &TallyMonitor{
		ledger:   ledger,
		revealer: revealer,
		storage:  stg,
		interval: interval,
		revealed: make(map[string]struct{}),
	}
}

// Start begins monitoring for tallied proposals.
func (tm *TallyMonitor) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.cancel != nil {
		return fmt.Errorf("service already running")
	}
	if tm.interval <= 0 {
		return fmt.Errorf("invalid monitor interval %s", tm.interval)
	}

	ctx, tm.cancel = context.WithCancel(ctx)
	go tm.monitor(ctx)
	return nil
}

// Stop halts the monitor.
func (tm *TallyMonitor) Stop() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.cancel != nil {
		tm.cancel()
		tm.cancel = nil
	}
}

func (tm *TallyMonitor) monitor(ctx context.Context) {
	ticker := time.NewTicker(tm.interval)
	defer ticker.Stop()
	log.Infow("tally monitor started", "interval", tm.interval.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("tally monitor stopped")
			return
		case <-ticker.C:
			if n := tm.checkProposals(ctx); n > 0 {
				log.Debugw("tally monitor round", "revealed", n)
			}
		}
	}
}

// checkProposals reveals every tallied proposal without a stored result and
// returns how many were revealed.
func (tm *TallyMonitor) checkProposals(ctx context.Context) int {
	count, err := tm.ledger.ProposalCount(ctx)
	if err != nil {
		log.Warnw("tally monitor cannot read proposal count", "error", err.Error())
		return 0
	}
	revealed := 0
	for i := uint64(0); i < count; i++ {
		if ctx.Err() != nil {
			return revealed
		}
		id := new(big.Int).SetUint64(i)
		if _, ok := tm.revealed[id.String()]; ok {
			continue
		}
		done, err := tm.checkProposal(ctx, id)
		if err != nil {
			log.Warnw("tally monitor cannot reveal proposal", "proposal", id.String(), "error", err.Error())
			continue
		}
		if done {
			tm.revealed[id.String()] = struct{}{}
			revealed++
		}
	}
	return revealed
}

// checkProposal returns true once the proposal has a stored result.
func (tm *TallyMonitor) checkProposal(ctx context.Context, id *big.Int) (bool, error) {
	_, err := tm.storage.TallyResult(types.NewBigInt(id))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}
	proposal, err := tm.ledger.Proposal(ctx, id)
	if err != nil {
		return false, err
	}
	if !proposal.Tallied {
		return false, nil
	}
	if _, err := tm.revealer.Reveal(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}
