package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/voting"
)

// castVote encrypts the chosen option and submits it to the ledger with the
// required fee, or only prepares it when the ballot names its own voter.
// The submission is not cancelled if the client goes away.
// POST /vote/proposals/{proposalId}/ballots
func (a *API) castVote(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(r)
	if !ok {
		ErrMalformedProposalID.Write(w)
		return
	}
	ballot := &Ballot{}
	if err := json.NewDecoder(r.Body).Decode(ballot); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if ballot.Option == nil {
		ErrInvalidOption.With("missing option").Write(w)
		return
	}
	if ballot.Voter != nil && *ballot.Voter == (common.Address{}) {
		ErrMalformedAddress.With("zero voter address").Write(w)
		return
	}
	if !a.proposalExists(w, r, id) {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), ledgerOpTimeout)
	defer cancel()
	var (
		resp any
		err  error
	)
	if ballot.Voter != nil && *ballot.Voter != a.ledger.AccountAddress() {
		resp, err = a.submitter.Prepare(ctx, id, *ballot.Voter, *ballot.Option)
	} else {
		resp, err = a.submitter.CastVote(ctx, id, *ballot.Option)
	}
	switch {
	case errors.Is(err, voting.ErrInvalidOption):
		ErrInvalidOption.WithErr(err).Write(w)
		return
	case err != nil:
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, resp)
}

// voted reports whether the address of the "address" query parameter, or
// the node account if absent, voted on the proposal.
// GET /vote/proposals/{proposalId}/voted
func (a *API) voted(w http.ResponseWriter, r *http.Request) {
	id, ok := proposalID(r)
	if !ok {
		ErrMalformedProposalID.Write(w)
		return
	}
	voter := a.ledger.AccountAddress()
	if addr := r.URL.Query().Get("address"); addr != "" {
		if !common.IsHexAddress(addr) {
			ErrMalformedAddress.With(addr).Write(w)
			return
		}
		voter = common.HexToAddress(addr)
	}
	voted, err := a.ledger.HasVoted(r.Context(), id, voter)
	if err != nil {
		ErrUpstreamFailure.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &VotedResponse{Voter: voter, Voted: voted})
}
