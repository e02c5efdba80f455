package voting

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/types"
)

var (
	testAccount = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testVoting  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

// recorder keeps the ordered list of external calls made by a pipeline.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type fakeLedger struct {
	rec      *recorder
	proposal types.Proposal
	baseFee  *big.Int
	handles  []types.HexBytes
	fail     map[string]error

	mu         sync.Mutex
	ciphertext []byte
	fee        *big.Int
}

func newFakeLedger(rec *recorder, optionCount uint64) *fakeLedger {
	l := &fakeLedger{
		rec: rec,
		proposal: types.Proposal{
			ID:          types.NewInt(1),
			Title:       "test",
			Deadline:    time.Now().Add(time.Hour),
			OptionCount: optionCount,
		},
		baseFee: big.NewInt(100),
		fail:    make(map[string]error),
	}
	for i := uint64(0); i < optionCount; i++ {
		l.handles = append(l.handles, types.HexBytes{0xaa, byte(i)})
	}
	return l
}

func (l *fakeLedger) Proposal(_ context.Context, _ *big.Int) (*types.Proposal, error) {
	l.rec.record("proposal")
	if err := l.fail["proposal"]; err != nil {
		return nil, err
	}
	p := l.proposal
	return &p, nil
}

func (l *fakeLedger) BaseFee(_ context.Context) (*big.Int, error) {
	l.rec.record("baseFee")
	if err := l.fail["baseFee"]; err != nil {
		return nil, err
	}
	return l.baseFee, nil
}

func (l *fakeLedger) CastVote(_ context.Context, _ *big.Int, ciphertext []byte, fee *big.Int) (common.Hash, error) {
	l.rec.record("castVote")
	if err := l.fail["castVote"]; err != nil {
		return common.Hash{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ciphertext, l.fee = ciphertext, fee
	return common.HexToHash("0x01"), nil
}

func (l *fakeLedger) TallyHandle(_ context.Context, _ *big.Int, option uint64) (types.HexBytes, error) {
	l.rec.record(fmt.Sprintf("handle%d", option))
	if err := l.fail["handle"]; err != nil {
		return nil, err
	}
	return l.handles[option], nil
}

func (l *fakeLedger) AccountAddress() common.Address { return testAccount }

func (l *fakeLedger) VotingAddress() common.Address { return testVoting }

type fakeEncryptor struct {
	rec    *recorder
	fail   map[string]error
	counts map[string]*big.Int

	voter, target common.Address
	option        uint64
	revealed      [][]types.HexBytes
}

func newFakeEncryptor(rec *recorder) *fakeEncryptor {
	return &fakeEncryptor{rec: rec, fail: make(map[string]error), counts: make(map[string]*big.Int)}
}

func (e *fakeEncryptor) Encrypt(_ context.Context, option uint64, voter, target common.Address) (types.HexBytes, error) {
	e.rec.record("encrypt")
	if err := e.fail["encrypt"]; err != nil {
		return nil, err
	}
	e.option, e.voter, e.target = option, voter, target
	return types.HexBytes{0xc0, byte(option)}, nil
}

func (e *fakeEncryptor) Reveal(_ context.Context, handles []types.HexBytes) ([]*big.Int, error) {
	e.rec.record("reveal")
	if err := e.fail["reveal"]; err != nil {
		return nil, err
	}
	e.revealed = append(e.revealed, handles)
	out := make([]*big.Int, len(handles))
	for i, h := range handles {
		out[i] = e.counts[h.String()]
		if out[i] == nil {
			out[i] = new(big.Int)
		}
	}
	return out, nil
}

type memStore struct {
	receipts []*types.VoteReceipt
	results  []*types.TallyResult
	fail     error
}

func (s *memStore) SetVoteReceipt(r *types.VoteReceipt) error {
	if s.fail != nil {
		return s.fail
	}
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *memStore) SetTallyResult(r *types.TallyResult) error {
	if s.fail != nil {
		return s.fail
	}
	s.results = append(s.results, r)
	return nil
}
