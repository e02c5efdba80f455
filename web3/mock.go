package web3

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/types"
)

// TallyCounter computes the encrypted count of an option over a set of
// encrypted ballots. The mock ledger uses it at tally initiation, where the
// real contract runs the equivalent operations through the co-processor.
type TallyCounter interface {
	Count(ballots []types.HexBytes, option uint64) (types.HexBytes, error)
}

type mockProposal struct {
	proposal types.Proposal
	options  []string
	ballots  map[common.Address]types.HexBytes
	paid     map[common.Address]*big.Int
	handles  []types.HexBytes
}

// MockContracts implements an in-memory version of web3.Contracts for
// testing.
type MockContracts struct {
	mu        sync.Mutex
	counter   TallyCounter
	proposals []*mockProposal
	baseFee   *big.Int
	account   common.Address
	voting    common.Address
	failures  map[string]error
	txs       uint64
	now       func() time.Time
}

// NewMockContracts returns an empty mock ledger. counter is used to compute
// the tally handles when a tally is initiated.
func NewMockContracts(counter TallyCounter) *MockContracts {
	return &MockContracts{
		counter:  counter,
		baseFee:  big.NewInt(100),
		account:  common.HexToAddress("0x1234567890123456789012345678901234567890"),
		voting:   common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		failures: make(map[string]error),
		now:      time.Now,
	}
}

// SetBaseFee sets the value returned by BaseFee.
func (m *MockContracts) SetBaseFee(fee *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseFee = new(big.Int).Set(fee)
}

// SetClock replaces the time source used for deadlines.
func (m *MockContracts) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetFailure makes the named method fail with err. A nil err clears it.
func (m *MockContracts) SetFailure(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// Paid returns the value sent by voter along with its ballot.
func (m *MockContracts) Paid(id *big.Int, voter common.Address) *big.Int {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.get(id)
	if err != nil {
		return nil
	}
	return p.paid[voter]
}

func (m *MockContracts) AccountAddress() common.Address {
	return m.account
}

func (m *MockContracts) VotingAddress() common.Address {
	return m.voting
}

func (m *MockContracts) ProposalCount(_ context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["ProposalCount"]; err != nil {
		return 0, err
	}
	return uint64(len(m.proposals)), nil
}

func (m *MockContracts) Proposal(_ context.Context, id *big.Int) (*types.Proposal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["Proposal"]; err != nil {
		return nil, err
	}
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}
	proposal := p.proposal
	return &proposal, nil
}

func (m *MockContracts) ProposalOptions(_ context.Context, id *big.Int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["ProposalOptions"]; err != nil {
		return nil, err
	}
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), p.options...), nil
}

func (m *MockContracts) HasVoted(_ context.Context, id *big.Int, voter common.Address) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["HasVoted"]; err != nil {
		return false, err
	}
	p, err := m.get(id)
	if err != nil {
		return false, err
	}
	_, ok := p.ballots[voter]
	return ok, nil
}

func (m *MockContracts) BaseFee(_ context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["BaseFee"]; err != nil {
		return nil, err
	}
	return new(big.Int).Set(m.baseFee), nil
}

func (m *MockContracts) CreateProposal(_ context.Context, title, description string, options []string, deadline time.Time) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["CreateProposal"]; err != nil {
		return common.Hash{}, err
	}
	if len(options) < 2 {
		return common.Hash{}, fmt.Errorf("execution reverted: at least two options required")
	}
	if !deadline.After(m.now()) {
		return common.Hash{}, fmt.Errorf("execution reverted: deadline in the past")
	}
	id := big.NewInt(int64(len(m.proposals)))
	m.proposals = append(m.proposals, &mockProposal{
		proposal: types.Proposal{
			ID:          types.NewBigInt(id),
			Title:       title,
			Description: description,
			Deadline:    deadline.Truncate(time.Second).UTC(),
			Creator:     m.account,
			OptionCount: uint64(len(options)),
		},
		options: append([]string(nil), options...),
		ballots: make(map[common.Address]types.HexBytes),
		paid:    make(map[common.Address]*big.Int),
	})
	return m.txHash(), nil
}

func (m *MockContracts) CastVote(ctx context.Context, id *big.Int, ciphertext []byte, fee *big.Int) (common.Hash, error) {
	return m.CastVoteFrom(ctx, m.account, id, ciphertext, fee)
}

// CastVoteFrom records a ballot sent by voter's own wallet, as the contract
// sees a castVote whose sender is voter.
func (m *MockContracts) CastVoteFrom(_ context.Context, voter common.Address, id *big.Int, ciphertext []byte, fee *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["CastVote"]; err != nil {
		return common.Hash{}, err
	}
	p, err := m.get(id)
	if err != nil {
		return common.Hash{}, err
	}
	switch {
	case !m.now().Before(p.proposal.Deadline):
		return common.Hash{}, fmt.Errorf("execution reverted: voting closed")
	case p.ballots[voter] != nil:
		return common.Hash{}, fmt.Errorf("execution reverted: already voted")
	case len(ciphertext) == 0:
		return common.Hash{}, fmt.Errorf("execution reverted: empty ballot")
	}
	p.ballots[voter] = append(types.HexBytes(nil), ciphertext...)
	p.paid[voter] = new(big.Int).Set(fee)
	return m.txHash(), nil
}

func (m *MockContracts) InitiateTally(_ context.Context, id *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["InitiateTally"]; err != nil {
		return common.Hash{}, err
	}
	p, err := m.get(id)
	if err != nil {
		return common.Hash{}, err
	}
	if m.now().Before(p.proposal.Deadline) {
		return common.Hash{}, fmt.Errorf("execution reverted: voting still open")
	}
	if p.proposal.Tallied {
		return common.Hash{}, fmt.Errorf("execution reverted: already tallied")
	}
	ballots := make([]types.HexBytes, 0, len(p.ballots))
	for _, b := range p.ballots {
		ballots = append(ballots, b)
	}
	handles := make([]types.HexBytes, p.proposal.OptionCount)
	for i := range handles {
		if handles[i], err = m.counter.Count(ballots, uint64(i)); err != nil {
			return common.Hash{}, err
		}
	}
	p.handles = handles
	p.proposal.Tallied = true
	return m.txHash(), nil
}

func (m *MockContracts) TallyHandle(_ context.Context, id *big.Int, option uint64) (types.HexBytes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["TallyHandle"]; err != nil {
		return nil, err
	}
	p, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if option >= uint64(len(p.handles)) {
		return make(types.HexBytes, 32), nil
	}
	return p.handles[option], nil
}

func (m *MockContracts) WaitTx(_ context.Context, _ common.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failures["WaitTx"]
}

func (m *MockContracts) get(id *big.Int) (*mockProposal, error) {
	if id == nil || id.Sign() < 0 || !id.IsInt64() || id.Int64() >= int64(len(m.proposals)) {
		return nil, errors.New("execution reverted: proposal not found")
	}
	return m.proposals[id.Int64()], nil
}

func (m *MockContracts) txHash() common.Hash {
	m.txs++
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], m.txs)
	return sha256.Sum256(nonce[:])
}
