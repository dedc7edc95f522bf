// Package storage holds the relay state: the group key store and the vote
// ledger. Both are kept in a prefixed key-value store. The following prefixes
// are used:
//   - 'gk/' for group key pairs, keyed by group id
//   - 'v/' for votes, keyed by the encrypted vote string
//
// The relay builds the storage over an in-memory database, so key material
// and votes never outlive the process.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

var (
	groupKeysPrefix = []byte("gk/")
	votePrefix      = []byte("v/")
)

var (
	// ErrNotFound is returned when an artifact is not in the database.
	ErrNotFound = errors.New("not found")
	// ErrUnknownGroup is returned when no key pair was published for a group.
	ErrUnknownGroup = fmt.Errorf("unknown group: %w", ErrNotFound)
	// ErrUnknownVote is returned when no vote was recorded for an identifier.
	ErrUnknownVote = fmt.Errorf("unknown vote: %w", ErrNotFound)
	// ErrDuplicateGroup is returned when publishing a public key for a group
	// that already has one.
	ErrDuplicateGroup = errors.New("group public key already published")
	// ErrAlreadyRevealed is returned when a group private key is revealed
	// twice.
	ErrAlreadyRevealed = errors.New("group private key already revealed")
	// ErrNotRevealed is returned when the private key of a group is requested
	// before it is revealed.
	ErrNotRevealed = errors.New("group private key not revealed yet")
	// ErrVoteInFlight is returned when recording a vote whose previous write
	// is still pending.
	ErrVoteInFlight = errors.New("a vote with the same encrypted vote is pending")
)

// Storage wraps the database with the operations of the group key store and
// the vote ledger. Each of them has its own lock; no operation spans both.
type Storage struct {
	db        db.Database
	keysLock  sync.RWMutex
	votesLock sync.RWMutex
	// encrypted votes written by RecordVote and not settled yet, guarded by
	// votesLock
	pendingVotes map[string]struct{}
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db, pendingVotes: make(map[string]struct{})}
}

// Close closes the storage.
func (s *Storage) Close() {
	s.db.Close()
}

// getArtifact decodes into out the artifact stored under prefix/key. It
// returns ErrNotFound if there is none.
func (s *Storage) getArtifact(prefix, key []byte, out any) error {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	data, err := rd.Get(key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("get artifact: %w", err)
	}
	if err := decodeArtifact(data, out); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// setArtifact encodes and stores the artifact under prefix/key.
func (s *Storage) setArtifact(prefix, key []byte, artifact any) error {
	data, err := encodeArtifact(artifact)
	if err != nil {
		return err
	}
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Set(key, data); err != nil {
		wTx.Discard()
		return fmt.Errorf("set artifact: %w", err)
	}
	return wTx.Commit()
}

// deleteArtifact removes the artifact stored under prefix/key.
func (s *Storage) deleteArtifact(prefix, key []byte) error {
	wTx := prefixeddb.NewPrefixedWriteTx(s.db.WriteTx(), prefix)
	if err := wTx.Delete(key); err != nil {
		wTx.Discard()
		return fmt.Errorf("delete artifact: %w", err)
	}
	return wTx.Commit()
}

// countArtifacts returns the number of artifacts under prefix.
func (s *Storage) countArtifacts(prefix []byte) (int, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, prefix)
	count := 0
	if err := rd.Iterate(nil, func(_, _ []byte) bool {
		count++
		return true
	}); err != nil {
		return 0, err
	}
	return count, nil
}
