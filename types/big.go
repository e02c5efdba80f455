package types

import (
	"fmt"
	"math/big"
)

// BigInt is a big.Int wrapper which marshals JSON and CBOR to a decimal string.
// It is used for fees, proposal ids and revealed tallies, which do not fit a
// json number.
type BigInt big.Int

// NewInt returns a BigInt from an int64.
func NewInt(x int64) *BigInt {
	return (*BigInt)(big.NewInt(x))
}

// NewBigInt returns a copy of the given big.Int as a BigInt.
func NewBigInt(x *big.Int) *BigInt {
	if x == nil {
		return nil
	}
	return (*BigInt)(new(big.Int).Set(x))
}

func (i *BigInt) String() string {
	return (*big.Int)(i).String()
}

// MathBigInt returns the value as *big.Int.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetUint64 sets the value and returns the receiver.
func (i *BigInt) SetUint64(x uint64) *BigInt {
	(*big.Int)(i).SetUint64(x)
	return i
}

// MarshalText implements encoding.TextMarshaler, used by json.
func (i BigInt) MarshalText() ([]byte, error) {
	return (*big.Int)(&i).MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler, used by json.
func (i *BigInt) UnmarshalText(data []byte) error {
	if _, ok := (*big.Int)(i).SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid decimal integer: %q", data)
	}
	return nil
}

// MarshalCBOR encodes the integer as a decimal text string.
func (i *BigInt) MarshalCBOR() ([]byte, error) {
	return cborEncMode.Marshal(i.String())
}

// UnmarshalCBOR decodes a decimal text string.
func (i *BigInt) UnmarshalCBOR(data []byte) error {
	var s string
	if err := cborDecMode.Unmarshal(data, &s); err != nil {
		return err
	}
	return i.UnmarshalText([]byte(s))
}
