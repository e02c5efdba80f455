package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/types"
	"github.com/vocdoni/zkvote/voting"
)

// initiateTally sends the tally initiation transaction and waits until it is
// mined, so the results can be revealed right after.
// POST /vote/proposals/{proposalId}/tally
func (a *API) initiateTally(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(r)
	if !ok {
		ErrMalformedProposalID.Write(w)
		return
	}
	if !a.proposalExists(w, r, id) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), ledgerOpTimeout)
	defer cancel()
	txHash, err := a.ledger.InitiateTally(ctx, id)
	if err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	if err := a.ledger.WaitTx(ctx, txHash); err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	log.Infow("tally initiated", "proposal", id.String(), "tx", txHash.Hex())
	httpWriteJSON(w, &TxResponse{TxHash: txHash})
}

// results reveals the per-option counts of a tallied proposal.
// GET /vote/proposals/{proposalId}/results
func (a *API) results(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(r)
	if !ok {
		ErrMalformedProposalID.Write(w)
		return
	}
	if !a.proposalExists(w, r, id) {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), ledgerOpTimeout)
	defer cancel()
	result, err := a.revealer.Reveal(ctx, id)
	switch {
	case errors.Is(err, voting.ErrNotTallied):
		ErrProposalNotTallied.Write(w)
		return
	case err != nil:
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, result)
}

// receipts lists the ballots this node submitted on the proposal.
// GET /vote/proposals/{proposalId}/receipts
func (a *API) receipts(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(r)
	if !ok {
		ErrMalformedProposalID.Write(w)
		return
	}
	receipts, err := a.storage.ListVoteReceipts(types.NewBigInt(id))
	if err != nil {
		log.Errorw(err, "could not list vote receipts")
		ErrGenericInternalServerError.Write(w)
		return
	}
	httpWriteJSON(w, &ReceiptList{Receipts: receipts})
}
