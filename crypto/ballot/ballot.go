// Package ballot implements the encrypted ballot envelope exchanged between
// voters, the relay and the tallying coordinator. A ballot is a vote
// encrypted with AES-CTR under a key agreed (ECDH) between a fresh ephemeral
// key pair and the group public key. The envelope carries the ephemeral
// public key and the counter block so the group private key holder can
// decrypt it.
//
// A ballot has two representations: the native one (Ballot) used by the
// cryptographic operations and the wire one (Wire) used for JSON transport
// and storage.
package ballot

import (
	"bytes"
	"crypto/ecdh"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vocdoni/ballot-relay/crypto/jwk"
	"github.com/vocdoni/ballot-relay/types"
)

var (
	// ErrEnvelopeParse is returned when the wire JSON is not a complete
	// ballot envelope.
	ErrEnvelopeParse = errors.New("malformed ballot envelope")
	// ErrVoteTooLong is returned when the encrypted vote string does not fit
	// in the bytes32 identifier stored on chain.
	ErrVoteTooLong = errors.New("encrypted vote too long for a bytes32 identifier")
)

// Ballot is the native form of a ballot envelope.
type Ballot struct {
	EphemeralPublicKey *ecdh.PublicKey
	EncryptedVote      []byte
	Counter            []byte
}

// Wire is the string form of a ballot envelope. Its JSON encoding is the
// transport contract shared with the clients.
type Wire struct {
	EphPubkey     string `json:"ephPubkey"`
	EncryptedVote string `json:"encryptedVote"`
	Counter       string `json:"counter"`
}

// ToWire exports the ephemeral key and encodes the byte fields of the
// ballot.
func ToWire(b *Ballot) (*Wire, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: nil ballot", ErrEnvelopeParse)
	}
	key, err := jwk.ExportPublicKey(b.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("export ephemeral key: %w", err)
	}
	return &Wire{
		EphPubkey:     key.String(),
		EncryptedVote: types.EncodeBytes(b.EncryptedVote),
		Counter:       types.EncodeBytes(b.Counter),
	}, nil
}

// FromWire imports the ephemeral key and decodes the byte fields of a wire
// ballot. Key errors wrap jwk.ErrKeyFormat and byte field errors wrap
// types.ErrCodec.
func FromWire(w *Wire) (*Ballot, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: nil envelope", ErrEnvelopeParse)
	}
	pub, err := jwk.ParsePublicKey(w.EphPubkey)
	if err != nil {
		return nil, fmt.Errorf("import ephemeral key: %w", err)
	}
	vote, err := types.DecodeBytes(w.EncryptedVote)
	if err != nil {
		return nil, fmt.Errorf("decode encrypted vote: %w", err)
	}
	counter, err := types.DecodeBytes(w.Counter)
	if err != nil {
		return nil, fmt.Errorf("decode counter: %w", err)
	}
	return &Ballot{
		EphemeralPublicKey: pub,
		EncryptedVote:      vote,
		Counter:            counter,
	}, nil
}

// ParseWire decodes the JSON wire form. Every field must be present and
// not empty.
func ParseWire(s string) (*Wire, error) {
	var raw struct {
		EphPubkey     *string `json:"ephPubkey"`
		EncryptedVote *string `json:"encryptedVote"`
		Counter       *string `json:"counter"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnvelopeParse, err)
	}
	for name, field := range map[string]*string{
		"ephPubkey":     raw.EphPubkey,
		"encryptedVote": raw.EncryptedVote,
		"counter":       raw.Counter,
	} {
		if field == nil || *field == "" {
			return nil, fmt.Errorf("%w: missing field %s", ErrEnvelopeParse, name)
		}
	}
	return &Wire{
		EphPubkey:     *raw.EphPubkey,
		EncryptedVote: *raw.EncryptedVote,
		Counter:       *raw.Counter,
	}, nil
}

// String returns the JSON encoding of the wire ballot.
func (w *Wire) String() string {
	data, err := json.Marshal(w)
	if err != nil {
		return ""
	}
	return string(data)
}

// Bytes32 returns the on-chain identifier of the ballot: the encrypted vote
// string packed into a bytes32.
func (w *Wire) Bytes32() ([32]byte, error) {
	return EncodeBytes32String(w.EncryptedVote)
}

// Marshal returns the JSON wire form of the ballot.
func (b *Ballot) Marshal() (string, error) {
	w, err := ToWire(b)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnvelopeParse, err)
	}
	return string(data), nil
}

// Unmarshal parses the JSON wire form of a ballot into its native form.
func Unmarshal(s string) (*Ballot, error) {
	w, err := ParseWire(s)
	if err != nil {
		return nil, err
	}
	return FromWire(w)
}

// Equal reports whether both ballots hold the same key and bytes.
func (b *Ballot) Equal(other *Ballot) bool {
	if b == nil || other == nil {
		return b == other
	}
	sameKey := b.EphemeralPublicKey == other.EphemeralPublicKey
	if b.EphemeralPublicKey != nil && other.EphemeralPublicKey != nil {
		sameKey = b.EphemeralPublicKey.Equal(other.EphemeralPublicKey)
	}
	return sameKey &&
		bytes.Equal(b.EncryptedVote, other.EncryptedVote) &&
		bytes.Equal(b.Counter, other.Counter)
}

// EncodeBytes32String packs s into a zero padded bytes32. The last byte is
// kept as a null terminator, so s can be at most 31 bytes long.
func EncodeBytes32String(s string) ([32]byte, error) {
	var out [32]byte
	if len(s) > 31 {
		return out, fmt.Errorf("%w: %d bytes", ErrVoteTooLong, len(s))
	}
	copy(out[:], s)
	return out, nil
}

// DecodeBytes32String is the inverse of EncodeBytes32String.
func DecodeBytes32String(b [32]byte) (string, error) {
	if b[31] != 0 {
		return "", fmt.Errorf("%w: missing null terminator", ErrEnvelopeParse)
	}
	n := bytes.IndexByte(b[:], 0)
	return string(b[:n]), nil
}
