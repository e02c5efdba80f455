package types

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Proposal is the ledger view of a voting proposal. OptionCount and Deadline
// are fixed at creation; Tallied flips from false to true exactly once when
// the tally is initiated on chain.
type Proposal struct {
	ID          *BigInt        `json:"id"                cbor:"0,keyasint,omitempty"`
	Title       string         `json:"title"             cbor:"1,keyasint,omitempty"`
	Description string         `json:"description"       cbor:"2,keyasint,omitempty"`
	Deadline    time.Time      `json:"deadline"          cbor:"3,keyasint,omitempty"`
	Creator     common.Address `json:"creator"           cbor:"4,keyasint,omitempty"`
	Tallied     bool           `json:"tallied"           cbor:"5,keyasint,omitempty"`
	OptionCount uint64         `json:"optionCount"       cbor:"6,keyasint,omitempty"`
	Options     []string       `json:"options,omitempty" cbor:"7,keyasint,omitempty"`
}

// Expired reports whether the voting deadline has passed at the given time.
func (p *Proposal) Expired(now time.Time) bool {
	return !now.Before(p.Deadline)
}

func (p *Proposal) String() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// FeeQuote is the payment attached to a vote transaction. It is derived from
// the current on-chain base fee for every submission and never persisted.
type FeeQuote struct {
	BaseFee     *BigInt `json:"baseFee"`
	OptionCount uint64  `json:"optionCount"`
	Total       *BigInt `json:"total"`
}

// PreparedBallot is a ballot encrypted for a voter, ready to be sent by the
// voter's own wallet as castVote(proposalId, ciphertext) with Fee.Total as
// value. It never contains the chosen option.
type PreparedBallot struct {
	ProposalID *BigInt        `json:"proposalId"`
	Voter      common.Address `json:"voter"`
	Target     common.Address `json:"target"`
	Ciphertext HexBytes       `json:"ciphertext"`
	Fee        *FeeQuote      `json:"fee"`
}

// VoteReceipt records a submitted ballot transaction. It never contains the
// chosen option.
type VoteReceipt struct {
	ProposalID  *BigInt        `json:"proposalId"  cbor:"0,keyasint,omitempty"`
	Voter       common.Address `json:"voter"       cbor:"1,keyasint,omitempty"`
	TxHash      common.Hash    `json:"txHash"      cbor:"2,keyasint,omitempty"`
	Fee         *BigInt        `json:"fee"         cbor:"3,keyasint,omitempty"`
	OptionCount uint64         `json:"optionCount" cbor:"4,keyasint,omitempty"`
	SubmittedAt time.Time      `json:"submittedAt" cbor:"5,keyasint,omitempty"`
}

// TallyResult holds the revealed plaintext count of every option of a
// proposal, in option order, together with the handles they were revealed from.
type TallyResult struct {
	ProposalID *BigInt    `json:"proposalId" cbor:"0,keyasint,omitempty"`
	Handles    []HexBytes `json:"handles"    cbor:"1,keyasint,omitempty"`
	Counts     []*BigInt  `json:"counts"     cbor:"2,keyasint,omitempty"`
	RevealedAt time.Time  `json:"revealedAt" cbor:"3,keyasint,omitempty"`
}

// CountsAsBig returns the revealed counts as math/big integers.
func (t *TallyResult) CountsAsBig() []*big.Int {
	out := make([]*big.Int, len(t.Counts))
	for i, c := range t.Counts {
		out[i] = c.MathBigInt()
	}
	return out
}
