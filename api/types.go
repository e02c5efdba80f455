package api

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/identity"
	"github.com/vocdoni/zkvote/types"
)

// VerifyResponse is the answer to the identity provider callback.
type VerifyResponse struct {
	Status            string                 `json:"status"`
	Result            bool                   `json:"result"`
	CredentialSubject json.RawMessage        `json:"credentialSubject,omitempty"`
	Details           *identity.ValidDetails `json:"details,omitempty"`
}

// ClaimRequest is the body of a session claim.
type ClaimRequest struct {
	SessionID string `json:"sessionId"`
}

// StatusResponse is a plain success answer.
type StatusResponse struct {
	Status string `json:"status"`
	Result bool   `json:"result"`
}

// NewProposal is the request to create a proposal on the ledger.
type NewProposal struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Options     []string  `json:"options"`
	Deadline    time.Time `json:"deadline"`
}

// ProposalList is the list of proposals of the ledger.
type ProposalList struct {
	Count     uint64            `json:"count"`
	Proposals []*types.Proposal `json:"proposals"`
}

// ProposalInfo is a proposal with its option labels and the fee currently
// required to vote on it.
type ProposalInfo struct {
	*types.Proposal
	Expired bool            `json:"expired"`
	Fee     *types.FeeQuote `json:"fee"`
}

// Ballot is the vote request. The option is sent in plaintext to this node
// and leaves it only encrypted. With a Voter other than the node account the
// ballot is only prepared: it is encrypted for Voter and returned, together
// with the fee, for the voter's wallet to submit. Without it the node relays
// the ballot from its own account.
type Ballot struct {
	Option *uint64         `json:"option"`
	Voter  *common.Address `json:"voter,omitempty"`
}

// VotedResponse tells whether an address voted on a proposal.
type VotedResponse struct {
	Voter common.Address `json:"voter"`
	Voted bool           `json:"voted"`
}

// TxResponse carries the hash of a ledger transaction.
type TxResponse struct {
	TxHash common.Hash `json:"txHash"`
}

// ReceiptList is the list of vote receipts of a proposal.
type ReceiptList struct {
	Receipts []*types.VoteReceipt `json:"receipts"`
}
