package types

import (
	"encoding/hex"
	"fmt"

	"github.com/vocdoni/zkvote/util"
)

// HexBytes is a []byte which encodes as hexadecimal in json, as opposed to the
// base64 default. It is used for ciphertext and tally handles.
type HexBytes []byte

// String returns the 0x prefixed hex representation.
func (b HexBytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// MarshalJSON implements the json.Marshaler interface.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	enc := make([]byte, hex.EncodedLen(len(b))+4)
	enc[0] = '"'
	enc[1] = '0'
	enc[2] = 'x'
	hex.Encode(enc[3:], b)
	enc[len(enc)-1] = '"'
	return enc, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface. The 0x prefix is
// optional.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string: %q", data)
	}
	return b.FromString(string(data[1 : len(data)-1]))
}

// FromString decodes a hex string, with or without the 0x prefix.
func (b *HexBytes) FromString(s string) error {
	decoded, err := hex.DecodeString(util.TrimHex(s))
	if err != nil {
		return fmt.Errorf("invalid hex string: %w", err)
	}
	*b = decoded
	return nil
}

// Bytes32 returns the value as a left padded 32 byte array, as used by the
// ledger for handles. Longer values are truncated from the left.
func (b HexBytes) Bytes32() [32]byte {
	var out [32]byte
	if len(b) >= 32 {
		copy(out[:], b[len(b)-32:])
		return out
	}
	copy(out[32-len(b):], b)
	return out
}
