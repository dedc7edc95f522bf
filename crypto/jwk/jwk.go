// Package jwk converts ECDH keys to and from their JSON Web Key form, the
// representation browsers produce with WebCrypto's exportKey("jwk", ...).
// Only the NIST curves usable by WebCrypto ECDH are supported.
package jwk

import (
	"crypto/ecdh"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	jose "gopkg.in/square/go-jose.v2"
)

// ErrKeyFormat is returned when a key does not have the expected type,
// curve or coordinates.
var ErrKeyFormat = errors.New("invalid key format")

const (
	CurveP256 = "P-256"
	CurveP384 = "P-384"
	CurveP521 = "P-521"

	// DefaultCurve is the curve used by the clients to generate group keys.
	DefaultCurve = CurveP256
)

type curveParams struct {
	ecdh     ecdh.Curve
	elliptic elliptic.Curve
}

var supportedCurves = map[string]curveParams{
	CurveP256: {ecdh.P256(), elliptic.P256()},
	CurveP384: {ecdh.P384(), elliptic.P384()},
	CurveP521: {ecdh.P521(), elliptic.P521()},
}

// Curve returns the ECDH curve registered with the given JWK curve name.
func Curve(name string) (ecdh.Curve, error) {
	p, ok := supportedCurves[name]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported curve %q", ErrKeyFormat, name)
	}
	return p.ecdh, nil
}

// CurveName returns the JWK name of an ECDH curve.
func CurveName(curve ecdh.Curve) (string, error) {
	for name, p := range supportedCurves {
		if p.ecdh == curve {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported curve %v", ErrKeyFormat, curve)
}

// GenerateKey creates a new ECDH key pair on the named curve.
func GenerateKey(curveName string) (*ecdh.PrivateKey, error) {
	curve, err := Curve(curveName)
	if err != nil {
		return nil, err
	}
	return curve.GenerateKey(rand.Reader)
}

// ExportedKey is the JSON-safe form of a key: kty, crv and the base64url
// encoded coordinates (plus d for private keys).
type ExportedKey struct {
	jose.JSONWebKey
}

// ParseExportedKey decodes the JSON string of an exported key.
func ParseExportedKey(s string) (*ExportedKey, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("%w: empty key", ErrKeyFormat)
	}
	k := &ExportedKey{}
	if err := json.Unmarshal([]byte(s), k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	return k, nil
}

// String returns the JSON string of the exported key. It returns an empty
// string if the key cannot be marshaled.
func (k *ExportedKey) String() string {
	data, err := json.Marshal(k)
	if err != nil {
		return ""
	}
	return string(data)
}

// IsPrivate reports whether the exported key carries private material.
func (k *ExportedKey) IsPrivate() bool {
	_, ok := k.Key.(*ecdsa.PrivateKey)
	return ok
}

// ExportPublicKey returns the exported form of an ECDH public key.
func ExportPublicKey(pub *ecdh.PublicKey) (*ExportedKey, error) {
	if pub == nil {
		return nil, fmt.Errorf("%w: nil public key", ErrKeyFormat)
	}
	ecpub, err := toECDSAPublic(pub)
	if err != nil {
		return nil, err
	}
	return &ExportedKey{jose.JSONWebKey{Key: ecpub}}, nil
}

// ImportPublicKey returns the ECDH public key of an exported key. The key
// must be an EC public key on a supported curve.
func ImportPublicKey(k *ExportedKey) (*ecdh.PublicKey, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil key", ErrKeyFormat)
	}
	switch key := k.Key.(type) {
	case *ecdsa.PublicKey:
		return fromECDSAPublic(key)
	case *ecdsa.PrivateKey:
		return nil, fmt.Errorf("%w: got a private key, expected a public key", ErrKeyFormat)
	default:
		return nil, fmt.Errorf("%w: unexpected key type %T", ErrKeyFormat, k.Key)
	}
}

// ExportPrivateKey returns the exported form of an ECDH private key,
// including its public coordinates.
func ExportPrivateKey(priv *ecdh.PrivateKey) (*ExportedKey, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrKeyFormat)
	}
	ecpub, err := toECDSAPublic(priv.PublicKey())
	if err != nil {
		return nil, err
	}
	return &ExportedKey{jose.JSONWebKey{Key: &ecdsa.PrivateKey{
		PublicKey: *ecpub,
		D:         new(big.Int).SetBytes(priv.Bytes()),
	}}}, nil
}

// ImportPrivateKey returns the ECDH private key of an exported key. The
// public coordinates must match the private scalar.
func ImportPrivateKey(k *ExportedKey) (*ecdh.PrivateKey, error) {
	if k == nil {
		return nil, fmt.Errorf("%w: nil key", ErrKeyFormat)
	}
	key, ok := k.Key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected key type %T, expected a private key", ErrKeyFormat, k.Key)
	}
	priv, err := key.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	pub, err := fromECDSAPublic(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	if !priv.PublicKey().Equal(pub) {
		return nil, fmt.Errorf("%w: public coordinates do not match the private key", ErrKeyFormat)
	}
	return priv, nil
}

// ParsePublicKey decodes a JSON exported public key.
func ParsePublicKey(s string) (*ecdh.PublicKey, error) {
	k, err := ParseExportedKey(s)
	if err != nil {
		return nil, err
	}
	return ImportPublicKey(k)
}

// ParsePrivateKey decodes a JSON exported private key.
func ParsePrivateKey(s string) (*ecdh.PrivateKey, error) {
	k, err := ParseExportedKey(s)
	if err != nil {
		return nil, err
	}
	return ImportPrivateKey(k)
}

func toECDSAPublic(pub *ecdh.PublicKey) (*ecdsa.PublicKey, error) {
	name, err := CurveName(pub.Curve())
	if err != nil {
		return nil, err
	}
	// uncompressed point: 0x04 || X || Y
	raw := pub.Bytes()
	if len(raw) < 3 || raw[0] != 4 || len(raw)%2 != 1 {
		return nil, fmt.Errorf("%w: unexpected point encoding", ErrKeyFormat)
	}
	size := (len(raw) - 1) / 2
	return &ecdsa.PublicKey{
		Curve: supportedCurves[name].elliptic,
		X:     new(big.Int).SetBytes(raw[1 : 1+size]),
		Y:     new(big.Int).SetBytes(raw[1+size:]),
	}, nil
}

func fromECDSAPublic(key *ecdsa.PublicKey) (*ecdh.PublicKey, error) {
	if key.Curve == nil || key.X == nil || key.Y == nil {
		return nil, fmt.Errorf("%w: missing curve or coordinates", ErrKeyFormat)
	}
	if _, ok := supportedCurves[key.Curve.Params().Name]; !ok {
		return nil, fmt.Errorf("%w: unsupported curve %q", ErrKeyFormat, key.Curve.Params().Name)
	}
	pub, err := key.ECDH()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	return pub, nil
}
