package voting

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/types"
)

// Submitter casts encrypted ballots. Every submission runs the whole
// sequence: read the proposal, encrypt the option, read the base fee, compute
// the total fee and send the vote transaction. A failure at any stage aborts
// the submission before the ledger write.
type Submitter struct {
	ledger   Ledger
	enc      Encryptor
	receipts ReceiptStore
	now      func() time.Time
}

// NewSubmitter returns a Submitter. receipts may be nil.
func NewSubmitter(ledger Ledger, enc Encryptor, receipts ReceiptStore) *Submitter {
	return &Submitter{
		ledger:   ledger,
		enc:      enc,
		receipts: receipts,
		now:      time.Now,
	}
}

// Quote returns the fee currently required to vote on the proposal.
func (s *Submitter) Quote(ctx context.Context, proposalID *big.Int) (*types.FeeQuote, error) {
	proposal, err := s.ledger.Proposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("%w: read proposal: %w", ErrUpstream, err)
	}
	baseFee, err := s.ledger.BaseFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read base fee: %w", ErrUpstream, err)
	}
	return Quote(baseFee, proposal.OptionCount), nil
}

// Prepare encrypts option for voter and quotes the fee of the ballot,
// without writing to the ledger. The ciphertext is bound to voter and the
// voting contract, so only a castVote sent by voter's own wallet accepts it.
func (s *Submitter) Prepare(ctx context.Context, proposalID *big.Int, voter common.Address, option uint64) (*types.PreparedBallot, error) {
	proposal, err := s.ledger.Proposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("%w: read proposal: %w", ErrUpstream, err)
	}
	if option >= proposal.OptionCount {
		return nil, fmt.Errorf("%w: %d, proposal has %d options", ErrInvalidOption, option, proposal.OptionCount)
	}
	target := s.ledger.VotingAddress()
	ciphertext, err := s.enc.Encrypt(ctx, option, voter, target)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypt ballot: %w", ErrUpstream, err)
	}
	baseFee, err := s.ledger.BaseFee(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read base fee: %w", ErrUpstream, err)
	}
	return &types.PreparedBallot{
		ProposalID: types.NewBigInt(proposalID),
		Voter:      voter,
		Target:     target,
		Ciphertext: ciphertext,
		Fee:        Quote(baseFee, proposal.OptionCount),
	}, nil
}

// CastVote encrypts option and submits it as a ballot on the proposal,
// signed by the ledger account. It returns the receipt of the submitted
// transaction. Duplicate votes are rejected by the ledger, not here.
func (s *Submitter) CastVote(ctx context.Context, proposalID *big.Int, option uint64) (*types.VoteReceipt, error) {
	voter := s.ledger.AccountAddress()
	ballot, err := s.Prepare(ctx, proposalID, voter, option)
	if err != nil {
		return nil, err
	}
	fee := ballot.Fee.Total.MathBigInt()
	txHash, err := s.ledger.CastVote(ctx, proposalID, ballot.Ciphertext, fee)
	if err != nil {
		return nil, fmt.Errorf("%w: cast vote: %w", ErrUpstream, err)
	}
	receipt := &types.VoteReceipt{
		ProposalID:  types.NewBigInt(proposalID),
		Voter:       voter,
		TxHash:      txHash,
		Fee:         types.NewBigInt(fee),
		OptionCount: ballot.Fee.OptionCount,
		SubmittedAt: s.now(),
	}
	log.Infow("ballot submitted",
		"proposal", proposalID.String(),
		"voter", voter.Hex(),
		"fee", fee.String(),
		"tx", txHash.Hex())
	if s.receipts != nil {
		if err := s.receipts.SetVoteReceipt(receipt); err != nil {
			log.Warnw("could not store vote receipt", "tx", txHash.Hex(), "error", err.Error())
		}
	}
	return receipt, nil
}
