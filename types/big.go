package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// BigInt is a big.Int that is marshaled as a decimal JSON string. When
// unmarshaling it accepts a JSON number or a string in decimal or 0x hex,
// since clients send uint256 values in either form.
type BigInt big.Int

// MathBigInt returns the *big.Int of the value.
func (i *BigInt) MathBigInt() *big.Int {
	return (*big.Int)(i)
}

// SetUint64 sets the value and returns i.
func (i *BigInt) SetUint64(v uint64) *BigInt {
	return (*BigInt)(i.MathBigInt().SetUint64(v))
}

// String returns the decimal representation.
func (i *BigInt) String() string {
	return i.MathBigInt().String()
}

// MarshalText implements encoding.TextMarshaler.
func (i *BigInt) MarshalText() ([]byte, error) {
	return i.MathBigInt().MarshalText()
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *BigInt) UnmarshalText(data []byte) error {
	if _, ok := i.MathBigInt().SetString(string(data), 0); !ok {
		return fmt.Errorf("invalid big integer %q", data)
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (i *BigInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(i.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (i *BigInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	return i.UnmarshalText(data)
}
