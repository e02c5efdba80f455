package voting

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/types"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentHandleReads bounds the parallel getTallyHandle calls of a
// single reveal.
const maxConcurrentHandleReads = 8

// Revealer turns the encrypted per-option tally of a proposal into plaintext
// counts.
type Revealer struct {
	ledger  Ledger
	enc     Encryptor
	results ResultStore
	now     func() time.Time
}

// NewRevealer returns a Revealer. results may be nil.
func NewRevealer(ledger Ledger, enc Encryptor, results ResultStore) *Revealer {
	return &Revealer{
		ledger:  ledger,
		enc:     enc,
		results: results,
		now:     time.Now,
	}
}

// Reveal reads the tally handle of every option and reveals all of them in a
// single co-processor call. The counts are returned in option order. It can
// be called any number of times, every call reads and reveals again.
func (r *Revealer) Reveal(ctx context.Context, proposalID *big.Int) (*types.TallyResult, error) {
	proposal, err := r.ledger.Proposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("%w: read proposal: %w", ErrUpstream, err)
	}
	if !proposal.Tallied {
		return nil, fmt.Errorf("%w: proposal %s", ErrNotTallied, proposalID)
	}

	handles := make([]types.HexBytes, proposal.OptionCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentHandleReads)
	for i := range handles {
		g.Go(func() error {
			h, err := r.ledger.TallyHandle(gctx, proposalID, uint64(i))
			if err != nil {
				return fmt.Errorf("read tally handle %d: %w", i, err)
			}
			handles[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	counts, err := r.enc.Reveal(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("%w: reveal tally: %w", ErrUpstream, err)
	}
	if len(counts) != len(handles) {
		return nil, fmt.Errorf("%w: revealed %d counts for %d options", ErrUpstream, len(counts), len(handles))
	}
	result := &types.TallyResult{
		ProposalID: types.NewBigInt(proposalID),
		Handles:    handles,
		Counts:     make([]*types.BigInt, len(counts)),
		RevealedAt: r.now(),
	}
	for i, count := range counts {
		result.Counts[i] = types.NewBigInt(count)
	}
	log.Infow("tally revealed", "proposal", proposalID.String(), "options", len(counts))
	if r.results != nil {
		if err := r.results.SetTallyResult(result); err != nil {
			log.Warnw("could not store tally result", "proposal", proposalID.String(), "error", err.Error())
		}
	}
	return result, nil
}
