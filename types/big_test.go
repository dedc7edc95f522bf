package types

import (
	"encoding/json"
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBigIntJSON(t *testing.T) {
	c := qt.New(t)

	v, ok := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	c.Assert(ok, qt.IsTrue)

	data, err := json.Marshal((*BigInt)(v))
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"`+v.String()+`"`)

	for _, in := range []string{
		`"` + v.String() + `"`,
		v.String(),
		`"0x` + v.Text(16) + `"`,
	} {
		out := new(BigInt)
		c.Assert(json.Unmarshal([]byte(in), out), qt.IsNil, qt.Commentf("input %s", in))
		c.Assert(out.MathBigInt().Cmp(v), qt.Equals, 0)
	}

	out := new(BigInt)
	c.Assert(json.Unmarshal([]byte(`"12abc"`), out), qt.Not(qt.IsNil))
	c.Assert(json.Unmarshal([]byte(`1.5`), out), qt.Not(qt.IsNil))
	c.Assert(json.Unmarshal([]byte(`""`), out), qt.Not(qt.IsNil))
}

func TestBigIntSlice(t *testing.T) {
	c := qt.New(t)

	var proof [8]*BigInt
	c.Assert(json.Unmarshal([]byte(`["1","2",3,"0x4","5","6","7","8"]`), &proof), qt.IsNil)
	for i, p := range proof {
		c.Assert(p.MathBigInt().Int64(), qt.Equals, int64(i+1))
	}
	c.Assert(new(BigInt).SetUint64(7).String(), qt.Equals, "7")
}
