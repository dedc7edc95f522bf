package types

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrCodec is returned when a string cannot be decoded back into the bytes
// it represents.
var ErrCodec = errors.New("invalid byte string encoding")

// EncodeBytes returns the transport string of b: lowercase hex with a 0x
// prefix. An empty or nil slice is encoded as "0x".
func EncodeBytes(b []byte) string {
	return hexutil.Encode(b)
}

// DecodeBytes is the inverse of EncodeBytes. It fails with ErrCodec if the
// prefix is missing, the length is odd or a character is not hex. Only the
// canonical form is accepted: a "0X" prefix or uppercase digits are errors,
// so every accepted string is exactly EncodeBytes of its bytes.
func DecodeBytes(s string) ([]byte, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodec, err)
	}
	if EncodeBytes(b) != s {
		return nil, fmt.Errorf("%w: %q is not lowercase 0x hex", ErrCodec, s)
	}
	return b, nil
}

// HexBytes is a byte slice that is marshaled as a 0x-prefixed hex string.
type HexBytes []byte

// String returns the transport string of the bytes.
func (b HexBytes) String() string {
	return EncodeBytes(b)
}

// MarshalText implements encoding.TextMarshaler.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(EncodeBytes(b)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *HexBytes) UnmarshalText(data []byte) error {
	decoded, err := DecodeBytes(string(data))
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}

// MarshalJSON implements json.Marshaler.
func (b HexBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(EncodeBytes(b))
}

// UnmarshalJSON implements json.Unmarshaler.
func (b *HexBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %v", ErrCodec, err)
	}
	return b.UnmarshalText([]byte(s))
}
