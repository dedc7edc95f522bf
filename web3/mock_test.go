package web3

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestMockContracts(t *testing.T) {
	c := qt.New(t)
	m := NewMockContracts()
	ctx := context.Background()

	var proof [8]*big.Int
	for i := range proof {
		proof[i] = big.NewInt(int64(i))
	}
	h1, err := m.SubmitBallot(ctx, [32]byte{1}, big.NewInt(7), big.NewInt(42), proof)
	c.Assert(err, qt.IsNil)
	c.Assert(m.WaitTx(ctx, h1), qt.IsNil)
	h2, err := m.AddMember(ctx, big.NewInt(42), big.NewInt(99))
	c.Assert(err, qt.IsNil)
	c.Assert(h1, qt.Not(qt.Equals), h2)

	c.Assert(m.Ballots(), qt.HasLen, 1)
	c.Assert(m.Ballots()[0].GroupID.Int64(), qt.Equals, int64(42))
	c.Assert(m.Members(), qt.HasLen, 1)

	m.SetFailures(true, false)
	_, err = m.SubmitBallot(ctx, [32]byte{2}, big.NewInt(8), big.NewInt(42), proof)
	c.Assert(err, qt.ErrorIs, ErrContract)
	c.Assert(m.Ballots(), qt.HasLen, 1)

	m.SetFailures(false, true)
	c.Assert(m.WaitTx(ctx, h1), qt.ErrorIs, ErrReverted)

	m.SetFailures(false, false)
	m.SetBlockWait(true)
	wctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err = m.WaitTx(wctx, h1)
	c.Assert(err, qt.ErrorIs, context.DeadlineExceeded)
	c.Assert(errors.Is(err, ErrReverted), qt.IsFalse)
}

func TestNonceAssignment(t *testing.T) {
	c := qt.New(t)
	contracts := &Contracts{}

	// the first nonce comes from the endpoint
	c.Assert(contracts.nonceFor(5), qt.Equals, uint64(5))
	contracts.nonceSent(5)
	// the endpoint has not seen the sent transaction yet
	c.Assert(contracts.nonceFor(5), qt.Equals, uint64(6))
	contracts.nonceSent(6)
	c.Assert(contracts.nonceFor(6), qt.Equals, uint64(7))
	// transactions sent from elsewhere move the endpoint ahead
	c.Assert(contracts.nonceFor(10), qt.Equals, uint64(10))
	// a stale nonce never moves the counter back
	contracts.nonceSent(3)
	c.Assert(contracts.nonceFor(0), qt.Equals, uint64(7))
}

func TestContractABI(t *testing.T) {
	c := qt.New(t)
	parsed, err := parseRelayABI()
	c.Assert(err, qt.IsNil)
	c.Assert(parsed.Methods["postReview"].Sig, qt.Equals, "postReview(bytes32,uint256,uint256,uint256[8])")
	c.Assert(parsed.Methods["addMember"].Sig, qt.Equals, "addMember(uint256,uint256)")

	var proof [8]*big.Int
	for i := range proof {
		proof[i] = big.NewInt(1)
	}
	data, err := parsed.Pack("postReview", [32]byte{}, big.NewInt(1), big.NewInt(2), proof)
	c.Assert(err, qt.IsNil)
	// selector + 11 static words
	c.Assert(data, qt.HasLen, 4+32*11)
}
