package ballot

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/ballot-relay/crypto/jwk"
	"github.com/vocdoni/ballot-relay/types"
)

func testBallot(c *qt.C, vote []byte) *Ballot {
	eph, err := jwk.GenerateKey(jwk.DefaultCurve)
	c.Assert(err, qt.IsNil)
	return &Ballot{
		EphemeralPublicKey: eph.PublicKey(),
		EncryptedVote:      vote,
		Counter:            make([]byte, CounterSize),
	}
}

func TestWireRoundTrip(t *testing.T) {
	c := qt.New(t)

	for _, vote := range [][]byte{
		{},
		{0x00, 0x00, 0x00},
		{0xff, 0x01, 0x80, 0x7f},
	} {
		b := testBallot(c, vote)
		b.Counter[15] = 0xff

		s, err := b.Marshal()
		c.Assert(err, qt.IsNil)

		decoded, err := Unmarshal(s)
		c.Assert(err, qt.IsNil)
		c.Assert(decoded.Equal(b), qt.IsTrue)

		// and the wire form is stable across a native round trip
		w, err := ParseWire(s)
		c.Assert(err, qt.IsNil)
		native, err := FromWire(w)
		c.Assert(err, qt.IsNil)
		w2, err := ToWire(native)
		c.Assert(err, qt.IsNil)
		c.Assert(w2, qt.DeepEquals, w)
	}
}

func TestWireShape(t *testing.T) {
	c := qt.New(t)
	b := testBallot(c, []byte{1, 2, 3})

	s, err := b.Marshal()
	c.Assert(err, qt.IsNil)

	fields := map[string]string{}
	c.Assert(json.Unmarshal([]byte(s), &fields), qt.IsNil)
	c.Assert(fields, qt.HasLen, 3)
	c.Assert(fields["encryptedVote"], qt.Equals, "0x010203")
	c.Assert(fields["counter"], qt.Equals, "0x00000000000000000000000000000000")
	_, err = jwk.ParsePublicKey(fields["ephPubkey"])
	c.Assert(err, qt.IsNil)
}

func TestParseWireMissingFields(t *testing.T) {
	c := qt.New(t)
	b := testBallot(c, []byte{1})
	w, err := ToWire(b)
	c.Assert(err, qt.IsNil)

	missingCounter, err := json.Marshal(map[string]string{
		"ephPubkey":     w.EphPubkey,
		"encryptedVote": w.EncryptedVote,
	})
	c.Assert(err, qt.IsNil)
	_, err = Unmarshal(string(missingCounter))
	c.Assert(err, qt.ErrorIs, ErrEnvelopeParse)

	emptyVote, err := json.Marshal(map[string]string{
		"ephPubkey":     w.EphPubkey,
		"encryptedVote": "",
		"counter":       w.Counter,
	})
	c.Assert(err, qt.IsNil)
	_, err = ParseWire(string(emptyVote))
	c.Assert(err, qt.ErrorIs, ErrEnvelopeParse)

	for _, s := range []string{"", "[]", "{", `{"ephPubkey":1}`, "null"} {
		_, err = ParseWire(s)
		c.Assert(err, qt.ErrorIs, ErrEnvelopeParse, qt.Commentf("input %q", s))
	}
}

func TestFromWireErrors(t *testing.T) {
	c := qt.New(t)
	b := testBallot(c, []byte{1})
	w, err := ToWire(b)
	c.Assert(err, qt.IsNil)

	badKey := *w
	badKey.EphPubkey = `{"kty":"EC","crv":"P-256"}`
	_, err = FromWire(&badKey)
	c.Assert(err, qt.ErrorIs, jwk.ErrKeyFormat)

	// the lossy numeric-array form is rejected, not misread
	badVote := *w
	badVote.EncryptedVote = "1,2,3"
	_, err = FromWire(&badVote)
	c.Assert(err, qt.ErrorIs, types.ErrCodec)

	badCounter := *w
	badCounter.Counter = "0"
	_, err = FromWire(&badCounter)
	c.Assert(err, qt.ErrorIs, types.ErrCodec)

	// "0XAB" would come back as "0xab", a different ledger key
	upperVote := *w
	upperVote.EncryptedVote = "0XAB"
	_, err = FromWire(&upperVote)
	c.Assert(err, qt.ErrorIs, types.ErrCodec)
	upperCounter := *w
	upperCounter.Counter = "0X" + w.Counter[2:]
	_, err = FromWire(&upperCounter)
	c.Assert(err, qt.ErrorIs, types.ErrCodec)

	_, err = ToWire(&Ballot{EncryptedVote: []byte{1}})
	c.Assert(err, qt.ErrorIs, jwk.ErrKeyFormat)
}

func TestBytes32(t *testing.T) {
	c := qt.New(t)

	w := &Wire{EncryptedVote: "0xabc123"}
	id, err := w.Bytes32()
	c.Assert(err, qt.IsNil)
	c.Assert(string(id[:8]), qt.Equals, "0xabc123")
	c.Assert(id[8:], qt.DeepEquals, make([]byte, 24))

	s, err := DecodeBytes32String(id)
	c.Assert(err, qt.IsNil)
	c.Assert(s, qt.Equals, "0xabc123")

	_, err = EncodeBytes32String(string(make([]byte, 32)))
	c.Assert(err, qt.ErrorIs, ErrVoteTooLong)
	_, err = EncodeBytes32String(string(make([]byte, 31)))
	c.Assert(err, qt.IsNil)

	var full [32]byte
	for i := range full {
		full[i] = 'a'
	}
	_, err = DecodeBytes32String(full)
	c.Assert(err, qt.ErrorIs, ErrEnvelopeParse)
}
