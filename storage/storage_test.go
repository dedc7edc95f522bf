package storage

import (
	"fmt"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
)

func newTestStorage(t *testing.T) *Storage {
	stg := New(memdb.New())
	t.Cleanup(stg.Close)
	return stg
}

func TestGroupKeyLifecycle(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	_, err := stg.PublicKey("group-42")
	c.Assert(err, qt.ErrorIs, ErrUnknownGroup)
	_, err = stg.PrivateKey("group-42")
	c.Assert(err, qt.ErrorIs, ErrUnknownGroup)
	c.Assert(stg.RevealPrivateKey("group-42", "skA"), qt.ErrorIs, ErrUnknownGroup)

	c.Assert(stg.PublishPublicKey("group-42", "pkA"), qt.IsNil)
	pk, err := stg.PublicKey("group-42")
	c.Assert(err, qt.IsNil)
	c.Assert(pk, qt.Equals, "pkA")

	_, err = stg.PrivateKey("group-42")
	c.Assert(err, qt.ErrorIs, ErrNotRevealed)

	c.Assert(stg.RevealPrivateKey("group-42", "skA"), qt.IsNil)
	sk, err := stg.PrivateKey("group-42")
	c.Assert(err, qt.IsNil)
	c.Assert(sk, qt.Equals, "skA")

	c.Assert(stg.RevealPrivateKey("group-42", "skB"), qt.ErrorIs, ErrAlreadyRevealed)
	c.Assert(stg.RevealPrivateKey("group-42", "skA"), qt.ErrorIs, ErrAlreadyRevealed)
	sk, err = stg.PrivateKey("group-42")
	c.Assert(err, qt.IsNil)
	c.Assert(sk, qt.Equals, "skA")

	// the public key is still the original one
	pk, err = stg.PublicKey("group-42")
	c.Assert(err, qt.IsNil)
	c.Assert(pk, qt.Equals, "pkA")
}

func TestDuplicateGroup(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	c.Assert(stg.PublishPublicKey("g1", "pk"), qt.IsNil)
	c.Assert(stg.PublishPublicKey("g1", "pk2"), qt.ErrorIs, ErrDuplicateGroup)
	pk, err := stg.PublicKey("g1")
	c.Assert(err, qt.IsNil)
	c.Assert(pk, qt.Equals, "pk")

	// republishing after the reveal is refused too
	c.Assert(stg.RevealPrivateKey("g1", "sk"), qt.IsNil)
	c.Assert(stg.PublishPublicKey("g1", "pk3"), qt.ErrorIs, ErrDuplicateGroup)
	gk, err := stg.GroupKeys("g1")
	c.Assert(err, qt.IsNil)
	c.Assert(gk, qt.DeepEquals, &GroupKeys{PublicKey: "pk", PrivateKey: "sk"})

	c.Assert(stg.PublishPublicKey("g2", ""), qt.Not(qt.IsNil))
	c.Assert(stg.RevealPrivateKey("g1", ""), qt.Not(qt.IsNil))
}

func TestVoteLedger(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	_, err := stg.Vote("abc123")
	c.Assert(err, qt.ErrorIs, ErrUnknownVote)
	c.Assert(stg.CountVotes(), qt.Equals, 0)

	pending, err := stg.RecordVote("abc123", &VoteEntry{EphemeralPublicKey: "pk1", Counter: "0"})
	c.Assert(err, qt.IsNil)
	c.Assert(pending.Previous(), qt.IsNil)
	pending.Confirm()

	entry, err := stg.Vote("abc123")
	c.Assert(err, qt.IsNil)
	c.Assert(entry, qt.DeepEquals, &VoteEntry{EphemeralPublicKey: "pk1", Counter: "0"})
	c.Assert(stg.CountVotes(), qt.Equals, 1)
}

func TestVoteCollision(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	first := &VoteEntry{EphemeralPublicKey: "pk1", Counter: "0x01"}
	second := &VoteEntry{EphemeralPublicKey: "pk2", Counter: "0x02"}

	pending, err := stg.RecordVote("0xdead", first)
	c.Assert(err, qt.IsNil)
	pending.Confirm()
	// same ciphertext string from an unrelated ballot: the entry is replaced
	pending, err = stg.RecordVote("0xdead", second)
	c.Assert(err, qt.IsNil)
	c.Assert(pending.Previous(), qt.DeepEquals, first)

	entry, err := stg.Vote("0xdead")
	c.Assert(err, qt.IsNil)
	c.Assert(entry, qt.DeepEquals, second)
	c.Assert(stg.CountVotes(), qt.Equals, 1)

	// undoing the second write brings the first one back
	c.Assert(pending.Rollback(), qt.IsNil)
	entry, err = stg.Vote("0xdead")
	c.Assert(err, qt.IsNil)
	c.Assert(entry, qt.DeepEquals, first)
}

func TestRollbackRemoves(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	pending, err := stg.RecordVote("0xbeef", &VoteEntry{EphemeralPublicKey: "pk", Counter: "0x00"})
	c.Assert(err, qt.IsNil)
	c.Assert(pending.Rollback(), qt.IsNil)

	_, err = stg.Vote("0xbeef")
	c.Assert(err, qt.ErrorIs, ErrUnknownVote)
	c.Assert(stg.CountVotes(), qt.Equals, 0)
}

func TestPendingVote(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)
	entryA := &VoteEntry{EphemeralPublicKey: "pk", Counter: "0x00"}
	entryB := &VoteEntry{EphemeralPublicKey: "pk", Counter: "0x00"}

	a, err := stg.RecordVote("0xcafe", entryA)
	c.Assert(err, qt.IsNil)
	// a second write of the same vote waits for the first one to settle
	_, err = stg.RecordVote("0xcafe", entryB)
	c.Assert(err, qt.ErrorIs, ErrVoteInFlight)
	// other votes are not affected
	other, err := stg.RecordVote("0xf00d", entryB)
	c.Assert(err, qt.IsNil)
	other.Confirm()

	c.Assert(a.Rollback(), qt.IsNil)
	_, err = stg.Vote("0xcafe")
	c.Assert(err, qt.ErrorIs, ErrUnknownVote)

	b, err := stg.RecordVote("0xcafe", entryB)
	c.Assert(err, qt.IsNil)
	c.Assert(b.Previous(), qt.IsNil)
	b.Confirm()

	// settling twice does nothing: the stale rollback keeps the confirmed entry
	c.Assert(a.Rollback(), qt.IsNil)
	b.Confirm()
	c.Assert(b.Rollback(), qt.IsNil)
	entry, err := stg.Vote("0xcafe")
	c.Assert(err, qt.IsNil)
	c.Assert(entry, qt.DeepEquals, entryB)
	c.Assert(stg.CountVotes(), qt.Equals, 2)
}

func TestConcurrentAccess(t *testing.T) {
	c := qt.New(t)
	stg := newTestStorage(t)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, 2*n)
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			// every goroutine races for the same group, only one may win
			if err := stg.PublishPublicKey("shared", fmt.Sprintf("pk%d", i)); err != nil {
				errs <- err
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			pending, err := stg.RecordVote(fmt.Sprintf("0x%04x", i), &VoteEntry{EphemeralPublicKey: "pk", Counter: "0x00"})
			if err != nil {
				errs <- err
				return
			}
			pending.Confirm()
		}(i)
	}
	wg.Wait()
	close(errs)

	duplicates := 0
	for err := range errs {
		c.Assert(err, qt.ErrorIs, ErrDuplicateGroup)
		duplicates++
	}
	c.Assert(duplicates, qt.Equals, n-1)
	c.Assert(stg.CountVotes(), qt.Equals, n)
}

func TestArtifactEncoding(t *testing.T) {
	c := qt.New(t)
	entry := &VoteEntry{EphemeralPublicKey: "pk", Counter: "0x00"}

	first, err := encodeArtifact(entry)
	c.Assert(err, qt.IsNil)
	second, err := encodeArtifact(&VoteEntry{EphemeralPublicKey: "pk", Counter: "0x00"})
	c.Assert(err, qt.IsNil)
	c.Assert(first, qt.DeepEquals, second)

	// fields of other artifacts are ignored
	gk := &GroupKeys{}
	c.Assert(decodeArtifact(first, gk), qt.IsNil)
	c.Assert(gk, qt.DeepEquals, &GroupKeys{})

	c.Assert(decodeArtifact([]byte{0xff}, &VoteEntry{}), qt.Not(qt.IsNil))
}
