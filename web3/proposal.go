package web3

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/types"
)

// ProposalCount returns the number of proposals created in the voting
// contract. Proposal identifiers go from zero to count-1.
func (c *Contracts) ProposalCount(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := c.voting.Call(c.callOpts(ctx), &out, "proposalCount"); err != nil {
		return 0, fmt.Errorf("failed to get proposal count: %w", err)
	}
	count, err := uint256Output(out)
	if err != nil {
		return 0, err
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("proposal count out of range: %s", count)
	}
	return count.Uint64(), nil
}

// Proposal returns the proposal with the given ID from the voting contract.
// Option labels are not included, see ProposalOptions.
func (c *Contracts) Proposal(ctx context.Context, id *big.Int) (*types.Proposal, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := c.voting.Call(c.callOpts(ctx), &out, "getProposal", id); err != nil {
		return nil, fmt.Errorf("failed to get proposal %s: %w", id, err)
	}
	return proposalFromOutputs(id, out)
}

// ProposalOptions returns the option labels of the proposal.
func (c *Contracts) ProposalOptions(ctx context.Context, id *big.Int) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := c.voting.Call(c.callOpts(ctx), &out, "getProposalOptions", id); err != nil {
		return nil, fmt.Errorf("failed to get proposal %s options: %w", id, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected getProposalOptions output length %d", len(out))
	}
	options, ok := out[0].([]string)
	if !ok {
		return nil, fmt.Errorf("unexpected getProposalOptions output type %T", out[0])
	}
	return options, nil
}

// HasVoted reports whether the voter already cast a ballot on the proposal.
func (c *Contracts) HasVoted(ctx context.Context, id *big.Int, voter common.Address) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := c.voting.Call(c.callOpts(ctx), &out, "hasVoted", id, voter); err != nil {
		return false, fmt.Errorf("failed to get vote status: %w", err)
	}
	if len(out) != 1 {
		return false, fmt.Errorf("unexpected hasVoted output length %d", len(out))
	}
	voted, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected hasVoted output type %T", out[0])
	}
	return voted, nil
}

// TallyHandle returns the encrypted tally handle of an option. It is only
// meaningful once the tally has been initiated.
func (c *Contracts) TallyHandle(ctx context.Context, id *big.Int, option uint64) (types.HexBytes, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := c.voting.Call(c.callOpts(ctx), &out, "getTallyHandle", id, new(big.Int).SetUint64(option)); err != nil {
		return nil, fmt.Errorf("failed to get tally handle %d: %w", option, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected getTallyHandle output length %d", len(out))
	}
	handle, ok := out[0].([32]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected getTallyHandle output type %T", out[0])
	}
	return types.HexBytes(handle[:]), nil
}

// BaseFee returns the current per-operation fee of the co-processor executor.
func (c *Contracts) BaseFee(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	var out []any
	if err := c.feeOracle.Call(c.callOpts(ctx), &out, "getFee"); err != nil {
		return nil, fmt.Errorf("failed to get base fee: %w", err)
	}
	return uint256Output(out)
}

// CreateProposal sends a createProposal transaction and returns its hash.
func (c *Contracts) CreateProposal(ctx context.Context, title, description string, options []string, deadline time.Time) (common.Hash, error) {
	txOpts, err := c.authTransactOpts(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	tx, err := c.voting.Transact(txOpts, "createProposal",
		title, description, options, big.NewInt(deadline.Unix()))
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create proposal: %w", err)
	}
	log.Infow("proposal creation sent", "hash", tx.Hash().Hex(), "title", title, "options", len(options))
	return tx.Hash(), nil
}

// CastVote sends a castVote transaction carrying the encrypted ballot and the
// fee as transaction value. It returns the transaction hash.
func (c *Contracts) CastVote(ctx context.Context, id *big.Int, ciphertext []byte, fee *big.Int) (common.Hash, error) {
	txOpts, err := c.authTransactOpts(ctx, fee)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	tx, err := c.voting.Transact(txOpts, "castVote", id, ciphertext)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to cast vote: %w", err)
	}
	return tx.Hash(), nil
}

// InitiateTally sends an initiateTally transaction and returns its hash.
func (c *Contracts) InitiateTally(ctx context.Context, id *big.Int) (common.Hash, error) {
	txOpts, err := c.authTransactOpts(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to create transact options: %w", err)
	}
	tx, err := c.voting.Transact(txOpts, "initiateTally", id)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to initiate tally: %w", err)
	}
	return tx.Hash(), nil
}

func uint256Output(out []any) (*big.Int, error) {
	if len(out) != 1 {
		return nil, fmt.Errorf("unexpected output length %d", len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok || v == nil {
		return nil, fmt.Errorf("unexpected output type %T", out[0])
	}
	return v, nil
}

// proposalFromOutputs converts the unpacked getProposal outputs
// (title, description, deadline, creator, tallied, optionCount).
func proposalFromOutputs(id *big.Int, out []any) (*types.Proposal, error) {
	if len(out) != 6 {
		return nil, fmt.Errorf("unexpected getProposal output length %d", len(out))
	}
	title, ok1 := out[0].(string)
	description, ok2 := out[1].(string)
	deadline, ok3 := out[2].(*big.Int)
	creator, ok4 := out[3].(common.Address)
	tallied, ok5 := out[4].(bool)
	optionCount, ok6 := out[5].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return nil, fmt.Errorf("unexpected getProposal output types")
	}
	if !deadline.IsInt64() {
		return nil, fmt.Errorf("proposal deadline out of range: %s", deadline)
	}
	if !optionCount.IsUint64() {
		return nil, fmt.Errorf("proposal option count out of range: %s", optionCount)
	}
	return &types.Proposal{
		ID:          types.NewBigInt(id),
		Title:       title,
		Description: description,
		Deadline:    time.Unix(deadline.Int64(), 0).UTC(),
		Creator:     creator,
		Tallied:     tallied,
		OptionCount: optionCount.Uint64(),
	}, nil
}
