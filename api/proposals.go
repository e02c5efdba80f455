package api

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/types"
	"github.com/vocdoni/zkvote/voting"
	"golang.org/x/sync/errgroup"
)

const (
	// maxProposalReads bounds the parallel proposal reads of a listing.
	maxProposalReads = 8
	// minProposalOptions is the smallest ballot the contract accepts.
	minProposalOptions = 2
)

// proposals returns every proposal of the ledger.
// GET /vote/proposals
func (a *API) proposals(w http.ResponseWriter, r *http.Request) {
	count, err := a.ledger.ProposalCount(r.Context())
	if err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	list := &ProposalList{Count: count, Proposals: make([]*types.Proposal, count)}
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(maxProposalReads)
	for i := range list.Proposals {
		g.Go(func() error {
			p, err := a.ledger.Proposal(ctx, big.NewInt(int64(i)))
			if err != nil {
				return err
			}
			list.Proposals[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, list)
}

// proposal returns a proposal with its options and the fee required to vote
// on it right now.
// GET /vote/proposals/{proposalId}
func (a *API) proposal(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(r)
	if !ok {
		ErrMalformedProposalID.Write(w)
		return
	}
	if !a.proposalExists(w, r, id) {
		return
	}
	p, err := a.ledger.Proposal(r.Context(), id)
	if err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	if p.Options, err = a.ledger.ProposalOptions(r.Context(), id); err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	baseFee, err := a.ledger.BaseFee(r.Context())
	if err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &ProposalInfo{
		Proposal: p,
		Expired:  p.Expired(time.Now()),
		Fee:      voting.Quote(baseFee, p.OptionCount),
	})
}

// newProposal sends a proposal creation transaction.
// POST /vote/proposals
func (a *API) newProposal(w http.ResponseWriter, r *http.Request) {
	req := &NewProposal{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	switch {
	case strings.TrimSpace(req.Title) == "":
		ErrInvalidProposal.With("empty title").Write(w)
		return
	case len(req.Options) < minProposalOptions:
		ErrInvalidProposal.Withf("at least %d options required", minProposalOptions).Write(w)
		return
	case !req.Deadline.After(time.Now()):
		ErrInvalidProposal.With("deadline must be in the future").Write(w)
		return
	}
	for i, o := range req.Options {
		if strings.TrimSpace(o) == "" {
			ErrInvalidProposal.Withf("empty option %d", i).Write(w)
			return
		}
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), ledgerOpTimeout)
	defer cancel()
	txHash, err := a.ledger.CreateProposal(ctx, req.Title, req.Description, req.Options, req.Deadline)
	if err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	log.Infow("new proposal", "title", req.Title, "options", len(req.Options), "tx", txHash.Hex())
	httpWriteJSON(w, &TxResponse{TxHash: txHash})
}

// proposalExists writes the error response and returns false if the id is
// beyond the proposal count of the ledger.
func (a *API) proposalExists(w http.ResponseWriter, r *http.Request, id *big.Int) bool {
	count, err := a.ledger.ProposalCount(r.Context())
	if err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return false
	}
	if id.Cmp(new(big.Int).SetUint64(count)) >= 0 {
		ErrProposalNotFound.Withf("%s", id).Write(w)
		return false
	}
	return true
}
