package jwk

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPublicKeyRoundTrip(t *testing.T) {
	c := qt.New(t)
	for _, name := range []string{CurveP256, CurveP384, CurveP521} {
		priv, err := GenerateKey(name)
		c.Assert(err, qt.IsNil)

		exported, err := ExportPublicKey(priv.PublicKey())
		c.Assert(err, qt.IsNil)
		c.Assert(exported.IsPrivate(), qt.IsFalse)

		parsed, err := ParseExportedKey(exported.String())
		c.Assert(err, qt.IsNil)
		pub, err := ImportPublicKey(parsed)
		c.Assert(err, qt.IsNil)
		c.Assert(pub.Equal(priv.PublicKey()), qt.IsTrue, qt.Commentf("curve %s", name))

		fields := map[string]any{}
		c.Assert(json.Unmarshal([]byte(exported.String()), &fields), qt.IsNil)
		c.Assert(fields["kty"], qt.Equals, "EC")
		c.Assert(fields["crv"], qt.Equals, name)
		_, hasD := fields["d"]
		c.Assert(hasD, qt.IsFalse)
	}
}

func TestPrivateKeyRoundTrip(t *testing.T) {
	c := qt.New(t)
	priv, err := GenerateKey(DefaultCurve)
	c.Assert(err, qt.IsNil)

	exported, err := ExportPrivateKey(priv)
	c.Assert(err, qt.IsNil)
	c.Assert(exported.IsPrivate(), qt.IsTrue)

	imported, err := ParsePrivateKey(exported.String())
	c.Assert(err, qt.IsNil)
	c.Assert(imported.Equal(priv), qt.IsTrue)

	// a private key is not accepted where a public key is expected
	_, err = ParsePublicKey(exported.String())
	c.Assert(err, qt.ErrorIs, ErrKeyFormat)

	// and the other way around
	pubExported, err := ExportPublicKey(priv.PublicKey())
	c.Assert(err, qt.IsNil)
	_, err = ParsePrivateKey(pubExported.String())
	c.Assert(err, qt.ErrorIs, ErrKeyFormat)
}

func TestWebCryptoFields(t *testing.T) {
	c := qt.New(t)
	priv, err := GenerateKey(DefaultCurve)
	c.Assert(err, qt.IsNil)
	exported, err := ExportPublicKey(priv.PublicKey())
	c.Assert(err, qt.IsNil)

	// browsers add ext and key_ops to the exported JWK
	fields := map[string]any{}
	c.Assert(json.Unmarshal([]byte(exported.String()), &fields), qt.IsNil)
	fields["ext"] = true
	fields["key_ops"] = []string{}
	data, err := json.Marshal(fields)
	c.Assert(err, qt.IsNil)

	pub, err := ParsePublicKey(string(data))
	c.Assert(err, qt.IsNil)
	c.Assert(pub.Equal(priv.PublicKey()), qt.IsTrue)
}

func TestMalformedKeys(t *testing.T) {
	c := qt.New(t)
	priv, err := GenerateKey(DefaultCurve)
	c.Assert(err, qt.IsNil)
	exported, err := ExportPublicKey(priv.PublicKey())
	c.Assert(err, qt.IsNil)
	valid := map[string]any{}
	c.Assert(json.Unmarshal([]byte(exported.String()), &valid), qt.IsNil)

	mutate := func(f func(map[string]any)) string {
		m := map[string]any{}
		for k, v := range valid {
			m[k] = v
		}
		f(m)
		data, err := json.Marshal(m)
		c.Assert(err, qt.IsNil)
		return string(data)
	}

	cases := map[string]string{
		"empty":         "",
		"not json":      "{kty:EC",
		"missing y":     mutate(func(m map[string]any) { delete(m, "y") }),
		"missing x":     mutate(func(m map[string]any) { delete(m, "x") }),
		"unknown curve": mutate(func(m map[string]any) { m["crv"] = "secp256k1" }),
		"symmetric key": `{"kty":"oct","k":"` + base64.RawURLEncoding.EncodeToString([]byte("secret")) + `"}`,
		"point off curve": mutate(func(m map[string]any) {
			m["x"] = base64.RawURLEncoding.EncodeToString(make([]byte, 32))
		}),
	}
	for name, s := range cases {
		_, err := ParsePublicKey(s)
		c.Assert(err, qt.ErrorIs, ErrKeyFormat, qt.Commentf("case %s", name))
	}
}

func TestCurveNames(t *testing.T) {
	c := qt.New(t)
	for _, name := range []string{CurveP256, CurveP384, CurveP521} {
		curve, err := Curve(name)
		c.Assert(err, qt.IsNil)
		got, err := CurveName(curve)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.Equals, name)
	}
	_, err := Curve("X25519")
	c.Assert(err, qt.ErrorIs, ErrKeyFormat)
	_, err = GenerateKey("P-224")
	c.Assert(err, qt.ErrorIs, ErrKeyFormat)
}
