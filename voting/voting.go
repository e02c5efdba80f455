// Package voting coordinates the two ledger pipelines of the node: casting an
// encrypted ballot and revealing the per-option tally of a proposal.
package voting

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/types"
)

var (
	// ErrUpstream wraps every failure of the ledger or the co-processor.
	ErrUpstream = errors.New("upstream failure")
	// ErrInvalidOption is returned when the chosen option is not one of the
	// proposal options.
	ErrInvalidOption = errors.New("invalid option")
	// ErrNotTallied is returned when revealing a proposal whose tally was not
	// initiated on chain yet.
	ErrNotTallied = errors.New("proposal not tallied")
)

// Ledger is the read/write surface of the voting contract used by the
// pipelines.
type Ledger interface {
	Proposal(ctx context.Context, id *big.Int) (*types.Proposal, error)
	BaseFee(ctx context.Context) (*big.Int, error)
	CastVote(ctx context.Context, id *big.Int, ciphertext []byte, fee *big.Int) (common.Hash, error)
	TallyHandle(ctx context.Context, id *big.Int, option uint64) (types.HexBytes, error)
	// AccountAddress is the account that signs the vote transactions.
	AccountAddress() common.Address
	// VotingAddress is the contract the ballots are bound to.
	VotingAddress() common.Address
}

// Encryptor encrypts ballots and reveals tally handles. It is implemented by
// coprocessor.Client.
type Encryptor interface {
	Encrypt(ctx context.Context, option uint64, voter, target common.Address) (types.HexBytes, error)
	Reveal(ctx context.Context, handles []types.HexBytes) ([]*big.Int, error)
}

// ReceiptStore keeps the record of submitted ballots.
type ReceiptStore interface {
	SetVoteReceipt(receipt *types.VoteReceipt) error
}

// ResultStore keeps the revealed tallies.
type ResultStore interface {
	SetTallyResult(result *types.TallyResult) error
}
