package ballot

import (
	"bytes"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ballot-relay/crypto/jwk"
)

func TestSealOpen(t *testing.T) {
	c := qt.New(t)

	for _, curve := range []string{jwk.CurveP256, jwk.CurveP384, jwk.CurveP521} {
		for _, kdf := range []KDF{KDFRaw, KDFHKDF} {
			group, err := jwk.GenerateKey(curve)
			c.Assert(err, qt.IsNil)

			vote := []byte("candidate-2")
			b, err := Seal(group.PublicKey(), vote, WithKDF(kdf))
			c.Assert(err, qt.IsNil)
			c.Assert(b.Counter, qt.HasLen, CounterSize)
			c.Assert(b.EncryptedVote, qt.HasLen, len(vote))
			c.Assert(bytes.Equal(b.EncryptedVote, vote), qt.IsFalse)

			// through the wire form, as the coordinator gets it back from the relay
			s, err := b.Marshal()
			c.Assert(err, qt.IsNil)
			received, err := Unmarshal(s)
			c.Assert(err, qt.IsNil)

			plain, err := Open(group, received, WithKDF(kdf))
			c.Assert(err, qt.IsNil)
			c.Assert(plain, qt.DeepEquals, vote, qt.Commentf("curve %s kdf %d", curve, kdf))
		}
	}
}

func TestOpenWrongKey(t *testing.T) {
	c := qt.New(t)

	group, err := jwk.GenerateKey(jwk.DefaultCurve)
	c.Assert(err, qt.IsNil)
	other, err := jwk.GenerateKey(jwk.DefaultCurve)
	c.Assert(err, qt.IsNil)

	vote := []byte("candidate-1")
	b, err := Seal(group.PublicKey(), vote)
	c.Assert(err, qt.IsNil)

	plain, err := Open(other, b)
	c.Assert(err, qt.IsNil)
	c.Assert(bytes.Equal(plain, vote), qt.IsFalse)

	// mismatching key derivation does not decrypt either
	plain, err = Open(group, b, WithKDF(KDFHKDF))
	c.Assert(err, qt.IsNil)
	c.Assert(bytes.Equal(plain, vote), qt.IsFalse)

	p384, err := jwk.GenerateKey(jwk.CurveP384)
	c.Assert(err, qt.IsNil)
	_, err = Open(p384, b)
	c.Assert(err, qt.ErrorIs, ErrDecrypt)

	b.Counter = b.Counter[:8]
	_, err = Open(group, b)
	c.Assert(err, qt.ErrorIs, ErrDecrypt)
}

func TestSealFreshEphemeralKeys(t *testing.T) {
	c := qt.New(t)
	group, err := jwk.GenerateKey(jwk.DefaultCurve)
	c.Assert(err, qt.IsNil)

	b1, err := Seal(group.PublicKey(), []byte{1})
	c.Assert(err, qt.IsNil)
	b2, err := Seal(group.PublicKey(), []byte{1})
	c.Assert(err, qt.IsNil)
	c.Assert(b1.EphemeralPublicKey.Equal(b2.EphemeralPublicKey), qt.IsFalse)
}
