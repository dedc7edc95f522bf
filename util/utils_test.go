package util

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTrimHex(t *testing.T) {
	c := qt.New(t)
	c.Assert(TrimHex("0xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0Xabcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("abcd"), qt.Equals, "abcd")
	c.Assert(TrimHex("0x"), qt.Equals, "")
	c.Assert(TrimHex("0"), qt.Equals, "0")
}

func TestScalarField(t *testing.T) {
	c := qt.New(t)
	r := new(big.Int).Set(bn254ScalarField)
	c.Assert(InScalarField(big.NewInt(0)), qt.IsTrue)
	c.Assert(InScalarField(new(big.Int).Sub(r, big.NewInt(1))), qt.IsTrue)
	c.Assert(InScalarField(r), qt.IsFalse)
	c.Assert(InScalarField(big.NewInt(-1)), qt.IsFalse)
	c.Assert(InScalarField(nil), qt.IsFalse)
}
