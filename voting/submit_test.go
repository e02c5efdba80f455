package voting

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/zkvote/coprocessor"
	"github.com/vocdoni/zkvote/types"
)

func TestCastVote(t *testing.T) {
	c := qt.New(t)
	rec := &recorder{}
	ledger := newFakeLedger(rec, 3)
	enc := newFakeEncryptor(rec)
	store := &memStore{}

	receipt, err := NewSubmitter(ledger, enc, store).CastVote(context.Background(), big.NewInt(1), 2)
	c.Assert(err, qt.IsNil)
	c.Assert(rec.list(), qt.DeepEquals, []string{"proposal", "encrypt", "baseFee", "castVote"})

	// the ballot is bound to the signing account and the voting contract
	c.Assert(enc.option, qt.Equals, uint64(2))
	c.Assert(enc.voter, qt.Equals, testAccount)
	c.Assert(enc.target, qt.Equals, testVoting)
	c.Assert(ledger.ciphertext, qt.DeepEquals, []byte{0xc0, 2})
	c.Assert(ledger.fee.Int64(), qt.Equals, int64(1000))

	c.Assert(receipt.Fee.String(), qt.Equals, "1000")
	c.Assert(receipt.Voter, qt.Equals, testAccount)
	c.Assert(receipt.OptionCount, qt.Equals, uint64(3))
	c.Assert(receipt.ProposalID.String(), qt.Equals, "1")
	c.Assert(store.receipts, qt.HasLen, 1)
}

func TestPrepare(t *testing.T) {
	c := qt.New(t)
	rec := &recorder{}
	ledger := newFakeLedger(rec, 3)
	enc := newFakeEncryptor(rec)
	store := &memStore{}
	voter := common.HexToAddress("0x00000000000000000000000000000000000000c3")

	ballot, err := NewSubmitter(ledger, enc, store).Prepare(context.Background(), big.NewInt(1), voter, 1)
	c.Assert(err, qt.IsNil)
	// nothing is written to the ledger
	c.Assert(rec.list(), qt.DeepEquals, []string{"proposal", "encrypt", "baseFee"})
	c.Assert(ledger.fee, qt.IsNil)
	c.Assert(store.receipts, qt.HasLen, 0)

	c.Assert(enc.voter, qt.Equals, voter)
	c.Assert(enc.target, qt.Equals, testVoting)
	c.Assert(ballot.Voter, qt.Equals, voter)
	c.Assert(ballot.Target, qt.Equals, testVoting)
	c.Assert(ballot.Ciphertext, qt.DeepEquals, types.HexBytes{0xc0, 1})
	c.Assert(ballot.Fee.Total.String(), qt.Equals, "1000")
	c.Assert(ballot.ProposalID.String(), qt.Equals, "1")

	_, err = NewSubmitter(ledger, enc, store).Prepare(context.Background(), big.NewInt(1), voter, 3)
	c.Assert(err, qt.ErrorIs, ErrInvalidOption)
}

func TestCastVoteFailures(t *testing.T) {
	errBoom := errors.New("boom")
	tests := []struct {
		name      string
		fail      func(*fakeLedger, *fakeEncryptor)
		wantCalls []string
	}{{
		name:      "proposal read",
		fail:      func(l *fakeLedger, _ *fakeEncryptor) { l.fail["proposal"] = errBoom },
		wantCalls: []string{"proposal"},
	}, {
		name:      "encryption",
		fail:      func(_ *fakeLedger, e *fakeEncryptor) { e.fail["encrypt"] = coprocessor.ErrUnavailable },
		wantCalls: []string{"proposal", "encrypt"},
	}, {
		name:      "base fee read",
		fail:      func(l *fakeLedger, _ *fakeEncryptor) { l.fail["baseFee"] = errBoom },
		wantCalls: []string{"proposal", "encrypt", "baseFee"},
	}, {
		name:      "ledger write",
		fail:      func(l *fakeLedger, _ *fakeEncryptor) { l.fail["castVote"] = errBoom },
		wantCalls: []string{"proposal", "encrypt", "baseFee", "castVote"},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			rec := &recorder{}
			ledger := newFakeLedger(rec, 2)
			enc := newFakeEncryptor(rec)
			store := &memStore{}
			tt.fail(ledger, enc)

			receipt, err := NewSubmitter(ledger, enc, store).CastVote(context.Background(), big.NewInt(1), 0)
			c.Assert(err, qt.ErrorIs, ErrUpstream)
			c.Assert(receipt, qt.IsNil)
			c.Assert(rec.list(), qt.DeepEquals, tt.wantCalls)
			c.Assert(ledger.fee, qt.IsNil)
			c.Assert(store.receipts, qt.HasLen, 0)
		})
	}
}

func TestCastVoteKeepsCause(t *testing.T) {
	c := qt.New(t)
	rec := &recorder{}
	enc := newFakeEncryptor(rec)
	enc.fail["encrypt"] = coprocessor.ErrUnavailable
	_, err := NewSubmitter(newFakeLedger(rec, 2), enc, nil).CastVote(context.Background(), big.NewInt(1), 0)
	c.Assert(err, qt.ErrorIs, ErrUpstream)
	c.Assert(err, qt.ErrorIs, coprocessor.ErrUnavailable)
}

func TestCastVoteInvalidOption(t *testing.T) {
	c := qt.New(t)
	rec := &recorder{}
	_, err := NewSubmitter(newFakeLedger(rec, 2), newFakeEncryptor(rec), nil).CastVote(context.Background(), big.NewInt(1), 2)
	c.Assert(err, qt.ErrorIs, ErrInvalidOption)
	c.Assert(errors.Is(err, ErrUpstream), qt.IsFalse)
	c.Assert(rec.list(), qt.DeepEquals, []string{"proposal"})
}

func TestCastVoteReceiptStoreFailure(t *testing.T) {
	c := qt.New(t)
	rec := &recorder{}
	ledger := newFakeLedger(rec, 2)
	receipt, err := NewSubmitter(ledger, newFakeEncryptor(rec), &memStore{fail: errors.New("disk full")}).
		CastVote(context.Background(), big.NewInt(1), 1)
	c.Assert(err, qt.IsNil)
	c.Assert(receipt.Fee.String(), qt.Equals, "700")
}

func TestSubmitterQuote(t *testing.T) {
	c := qt.New(t)
	rec := &recorder{}
	ledger := newFakeLedger(rec, 3)
	ledger.baseFee = big.NewInt(5)
	q, err := NewSubmitter(ledger, newFakeEncryptor(rec), nil).Quote(context.Background(), big.NewInt(1))
	c.Assert(err, qt.IsNil)
	c.Assert(q.Total, qt.DeepEquals, types.NewInt(50))
	c.Assert(rec.list(), qt.DeepEquals, []string{"proposal", "baseFee"})

	ledger.fail["baseFee"] = errors.New("rpc down")
	_, err = NewSubmitter(ledger, newFakeEncryptor(rec), nil).Quote(context.Background(), big.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrUpstream)
}
