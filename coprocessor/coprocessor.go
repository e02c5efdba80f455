// Package coprocessor wraps the homomorphic-encryption co-processor used to
// hide ballot contents. The node only asks it to encrypt a chosen option,
// bound to a voter and a target contract, and to reveal aggregated tally
// handles with an attestation.
package coprocessor

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/zkvote/log"
	"github.com/vocdoni/zkvote/types"
)

// HandleTypeUint256 is the encrypted value type used for ballots.
const HandleTypeUint256 = "euint256"

// ErrUnavailable is returned on any network or service failure of the
// co-processor. Callers must not apply a partial vote when they get it.
var ErrUnavailable = errors.New("co-processor unavailable")

// Reveal is a single attested plaintext.
type Reveal struct {
	Handle      types.HexBytes `json:"handle"`
	Plaintext   *types.BigInt  `json:"plaintext"`
	Attestation types.HexBytes `json:"attestation,omitempty"`
}

// Backend is the raw co-processor interface.
type Backend interface {
	// Encrypt returns the ciphertext of value, usable only by account on dapp.
	Encrypt(ctx context.Context, value *big.Int, account, dapp common.Address) (types.HexBytes, error)
	// AttestedReveal decrypts the given handles.
	AttestedReveal(ctx context.Context, handles []types.HexBytes) ([]*Reveal, error)
}

// Client is the ballot encryption client used by the voting pipeline.
type Client struct {
	backend Backend
}

// New returns a Client over the given backend.
func New(backend Backend) *Client {
	return &Client{backend: backend}
}

// Encrypt produces the ciphertext handle for option, bound to voter and the
// target contract so it cannot be replayed elsewhere.
func (c *Client) Encrypt(ctx context.Context, option uint64, voter, target common.Address) (types.HexBytes, error) {
	if voter == (common.Address{}) || target == (common.Address{}) {
		return nil, fmt.Errorf("encrypt: empty voter or target address")
	}
	ciphertext, err := c.backend.Encrypt(ctx, new(big.Int).SetUint64(option), voter, target)
	if err != nil {
		return nil, wrapUnavailable("encrypt", err)
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("%w: encrypt returned an empty ciphertext", ErrUnavailable)
	}
	log.Debugw("ballot encrypted", "voter", voter.Hex(), "target", target.Hex(), "size", len(ciphertext))
	return ciphertext, nil
}

// Reveal requests the attested plaintexts of handles in a single call. The
// output has one value per handle, in the same order.
func (c *Client) Reveal(ctx context.Context, handles []types.HexBytes) ([]*big.Int, error) {
	if len(handles) == 0 {
		return []*big.Int{}, nil
	}
	reveals, err := c.backend.AttestedReveal(ctx, handles)
	if err != nil {
		return nil, wrapUnavailable("reveal", err)
	}
	if len(reveals) != len(handles) {
		return nil, fmt.Errorf("%w: reveal returned %d values for %d handles", ErrUnavailable, len(reveals), len(handles))
	}
	out := make([]*big.Int, len(handles))
	for i, r := range reveals {
		if r == nil || r.Plaintext == nil {
			return nil, fmt.Errorf("%w: missing plaintext for handle %s", ErrUnavailable, handles[i])
		}
		// an echoed handle must match its position
		if len(r.Handle) > 0 && r.Handle.String() != handles[i].String() {
			return nil, fmt.Errorf("%w: reveal answered handle %s at position %d, expected %s",
				ErrUnavailable, r.Handle, i, handles[i])
		}
		out[i] = new(big.Int).Set(r.Plaintext.MathBigInt())
	}
	return out, nil
}

func wrapUnavailable(op string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
