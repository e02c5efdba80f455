package storage

import (
	"fmt"

	"github.com/vocdoni/zkvote/types"
)

// SetTallyResult stores the revealed tally of a proposal, replacing any
// previous one.
func (s *Storage) SetTallyResult(result *types.TallyResult) error {
	if result == nil || result.ProposalID == nil {
		return fmt.Errorf("tally result without proposal id")
	}
	key, err := proposalKey(result.ProposalID.MathBigInt())
	if err != nil {
		return err
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.setArtifact(tallyPrefix, key, result)
}

// TallyResult returns the last revealed tally of the proposal, or
// ErrNotFound.
func (s *Storage) TallyResult(proposalID *types.BigInt) (*types.TallyResult, error) {
	if proposalID == nil {
		return nil, fmt.Errorf("nil proposal id")
	}
	key, err := proposalKey(proposalID.MathBigInt())
	if err != nil {
		return nil, err
	}
	result := &types.TallyResult{}
	if err := s.getArtifact(tallyPrefix, key, result); err != nil {
		return nil, err
	}
	return result, nil
}
