package ballot

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrDecrypt is returned when a ballot cannot be opened with the given key.
var ErrDecrypt = errors.New("cannot decrypt ballot")

// CounterSize is the size of the AES-CTR initial counter block.
const CounterSize = aes.BlockSize

// keySize is the AES-256 key size.
const keySize = 32

// KDF selects how the AES key is derived from the ECDH shared secret.
type KDF int

const (
	// KDFRaw uses the leading bytes of the shared secret as the AES key, as
	// WebCrypto's deriveKey does for ECDH.
	KDFRaw KDF = iota
	// KDFHKDF expands the shared secret with HKDF-SHA256.
	KDFHKDF
)

var hkdfInfo = []byte("ballot-relay/aes-ctr")

type options struct {
	kdf KDF
}

// Option configures Seal and Open.
type Option func(*options)

// WithKDF sets the key derivation function. Both ends must agree on it.
func WithKDF(kdf KDF) Option {
	return func(o *options) {
		o.kdf = kdf
	}
}

func newOptions(opts []Option) *options {
	o := &options{kdf: KDFRaw}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func deriveKey(kdf KDF, shared []byte) ([]byte, error) {
	switch kdf {
	case KDFRaw:
		if len(shared) < keySize {
			return nil, fmt.Errorf("shared secret too short: %d bytes", len(shared))
		}
		return shared[:keySize], nil
	case KDFHKDF:
		key := make([]byte, keySize)
		if _, err := io.ReadFull(hkdf.New(sha256.New, shared, nil, hkdfInfo), key); err != nil {
			return nil, err
		}
		return key, nil
	default:
		return nil, fmt.Errorf("unknown key derivation function %d", kdf)
	}
}

func xorKeyStream(key, counter, in []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(in))
	cipher.NewCTR(block, counter).XORKeyStream(out, in)
	return out, nil
}

// Seal encrypts vote for the holder of the group private key. A new
// ephemeral key pair is generated on the curve of groupKey.
func Seal(groupKey *ecdh.PublicKey, vote []byte, opts ...Option) (*Ballot, error) {
	if groupKey == nil {
		return nil, fmt.Errorf("nil group key")
	}
	o := newOptions(opts)
	eph, err := groupKey.Curve().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ephemeral key: %w", err)
	}
	shared, err := eph.ECDH(groupKey)
	if err != nil {
		return nil, fmt.Errorf("key agreement: %w", err)
	}
	key, err := deriveKey(o.kdf, shared)
	if err != nil {
		return nil, err
	}
	counter := make([]byte, CounterSize)
	if _, err := rand.Read(counter); err != nil {
		return nil, err
	}
	encrypted, err := xorKeyStream(key, counter, vote)
	if err != nil {
		return nil, err
	}
	return &Ballot{
		EphemeralPublicKey: eph.PublicKey(),
		EncryptedVote:      encrypted,
		Counter:            counter,
	}, nil
}

// Open decrypts the ballot with the group private key. AES-CTR carries no
// authentication tag: opening with the wrong key returns garbage, not an
// error.
func Open(groupPriv *ecdh.PrivateKey, b *Ballot, opts ...Option) ([]byte, error) {
	if groupPriv == nil || b == nil || b.EphemeralPublicKey == nil {
		return nil, fmt.Errorf("%w: missing key or ballot", ErrDecrypt)
	}
	if len(b.Counter) != CounterSize {
		return nil, fmt.Errorf("%w: counter must be %d bytes, got %d", ErrDecrypt, CounterSize, len(b.Counter))
	}
	if groupPriv.Curve() != b.EphemeralPublicKey.Curve() {
		return nil, fmt.Errorf("%w: ephemeral key is not on the group key curve", ErrDecrypt)
	}
	o := newOptions(opts)
	shared, err := groupPriv.ECDH(b.EphemeralPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	key, err := deriveKey(o.kdf, shared)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return xorKeyStream(key, b.Counter, b.EncryptedVote)
}
