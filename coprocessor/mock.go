package coprocessor

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/types"
	"github.com/vocdoni/zkvote/util"
)

// MockBackend is an in-memory Backend for testing. Handles are random and
// the plaintexts are kept in a table, so nothing is really encrypted.
type MockBackend struct {
	mu     sync.Mutex
	values map[string]*big.Int
	fail   error
}

// NewMockBackend returns an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{values: make(map[string]*big.Int)}
}

// SetFailure makes every following call fail with err. A nil err restores
// normal operation.
func (m *MockBackend) SetFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Encrypt implements Backend.
func (m *MockBackend) Encrypt(_ context.Context, value *big.Int, account, dapp common.Address) (types.HexBytes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	return m.store(new(big.Int).Set(value)), nil
}

// AttestedReveal implements Backend.
func (m *MockBackend) AttestedReveal(_ context.Context, handles []types.HexBytes) ([]*Reveal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	reveals := make([]*Reveal, len(handles))
	for i, h := range handles {
		v, ok := m.values[h.String()]
		if !ok {
			return nil, fmt.Errorf("unknown handle %s", h)
		}
		reveals[i] = &Reveal{Handle: h, Plaintext: types.NewBigInt(v)}
	}
	return reveals, nil
}

// Count returns a new handle holding the number of ballots that encrypt
// option, as the voting contract computes it over the encrypted domain.
func (m *MockBackend) Count(ballots []types.HexBytes, option uint64) (types.HexBytes, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := new(big.Int)
	for _, b := range ballots {
		v, ok := m.values[b.String()]
		if !ok {
			return nil, fmt.Errorf("unknown ballot handle %s", b)
		}
		if v.IsUint64() && v.Uint64() == option {
			count.Add(count, big.NewInt(1))
		}
	}
	return m.store(count), nil
}

func (m *MockBackend) store(v *big.Int) types.HexBytes {
	handle := types.HexBytes(util.RandomBytes(32))
	m.values[handle.String()] = v
	return handle
}
