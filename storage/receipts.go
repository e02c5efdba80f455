package storage

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/types"
)

func receiptKey(r *types.VoteReceipt) ([]byte, error) {
	if r.ProposalID == nil {
		return nil, fmt.Errorf("receipt without proposal id")
	}
	pk, err := proposalKey(r.ProposalID.MathBigInt())
	if err != nil {
		return nil, err
	}
	return append(pk, r.Voter.Bytes()...), nil
}

// SetVoteReceipt stores the receipt of a submitted ballot. A later receipt
// of the same voter on the same proposal replaces the previous one.
func (s *Storage) SetVoteReceipt(receipt *types.VoteReceipt) error {
	if receipt == nil {
		return fmt.Errorf("nil vote receipt")
	}
	key, err := receiptKey(receipt)
	if err != nil {
		return err
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.setArtifact(receiptPrefix, key, receipt)
}

// VoteReceipt returns the receipt of voter on the proposal, or ErrNotFound.
func (s *Storage) VoteReceipt(proposalID *types.BigInt, voter common.Address) (*types.VoteReceipt, error) {
	key, err := receiptKey(&types.VoteReceipt{ProposalID: proposalID, Voter: voter})
	if err != nil {
		return nil, err
	}
	r := &types.VoteReceipt{}
	if err := s.getArtifact(receiptPrefix, key, r); err != nil {
		return nil, err
	}
	return r, nil
}

// ListVoteReceipts returns every receipt stored for the proposal, ordered by
// voter address.
func (s *Storage) ListVoteReceipts(proposalID *types.BigInt) ([]*types.VoteReceipt, error) {
	if proposalID == nil {
		return nil, fmt.Errorf("nil proposal id")
	}
	pk, err := proposalKey(proposalID.MathBigInt())
	if err != nil {
		return nil, err
	}
	prefix := append(append([]byte{}, receiptPrefix...), pk...)
	receipts := []*types.VoteReceipt{}
	if err := s.iterateArtifacts(prefix, func(_, v []byte) error {
		r := &types.VoteReceipt{}
		if err := decodeArtifact(v, r); err != nil {
			return fmt.Errorf("decode receipt: %w", err)
		}
		receipts = append(receipts, r)
		return nil
	}); err != nil {
		return nil, err
	}
	return receipts, nil
}
