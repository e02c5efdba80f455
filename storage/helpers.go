package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

// proposalKeySize is the size of the big-endian proposal id used in keys.
const proposalKeySize = 32

var encMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// Artifact encoding/decoding
func encodeArtifact(a any) ([]byte, error) {
	return encMode.Marshal(a)
}

func decodeArtifact(data []byte, out any) error {
	return cbor.Unmarshal(data, out)
}

// proposalKey returns the fixed size key of a proposal id.
func proposalKey(id *big.Int) ([]byte, error) {
	if id == nil || id.Sign() < 0 || id.BitLen() > proposalKeySize*8 {
		return nil, fmt.Errorf("invalid proposal id %v", id)
	}
	return id.FillBytes(make([]byte, proposalKeySize)), nil
}

// setArtifact encodes and stores an artifact under prefix/key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	val, err := encodeArtifact(artifact)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, val); err != nil {
		wTx.Discard()
		return err
	}
	return wTx.Commit()
}

// getArtifact decodes the artifact stored under prefix/key into out. It
// returns ErrNotFound if the key does not exist.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	data, err := prefixeddb.NewPrefixedReader(s.db, prefix).Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return err
	}
	return decodeArtifact(data, out)
}

// iterateArtifacts calls fn with every raw value stored under prefix. The
// value is only valid during the call.
func (s *Storage) iterateArtifacts(prefix []byte, fn func(key, value []byte) error) error {
	var fnErr error
	err := prefixeddb.NewPrefixedReader(s.db, prefix).Iterate(nil, func(k, v []byte) bool {
		fnErr = fn(k, v)
		return fnErr == nil
	})
	if err != nil {
		return err
	}
	return fnErr
}
