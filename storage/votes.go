package storage

import (
	"errors"

	"github.com/vocdoni/ballot-relay/log"
)

// VoteEntry holds the parts of a ballot envelope that, together with the
// encrypted vote used as its key, rebuild the full envelope.
//
// The encrypted vote string is both the identifier and the content of a
// vote: two ballots with the same ciphertext string share one entry and the
// last one recorded wins.
type VoteEntry struct {
	EphemeralPublicKey string `json:"ephPubkey"`
	Counter            string `json:"counter"`
}

// PendingVote is a vote written to the ledger whose transaction has not
// settled yet. While it is pending the same encrypted vote cannot be recorded
// again. Exactly one of Confirm or Rollback settles it; later calls do
// nothing.
type PendingVote struct {
	s             *Storage
	encryptedVote string
	previous      *VoteEntry
	settled       bool
}

// RecordVote stores the entry for encryptedVote, overwriting any previous
// one, and returns the pending write. It fails with ErrVoteInFlight if
// another write of the same encrypted vote is still pending.
func (s *Storage) RecordVote(encryptedVote string, entry *VoteEntry) (*PendingVote, error) {
	s.votesLock.Lock()
	defer s.votesLock.Unlock()

	if _, ok := s.pendingVotes[encryptedVote]; ok {
		return nil, ErrVoteInFlight
	}
	previous := &VoteEntry{}
	if err := s.getArtifact(votePrefix, []byte(encryptedVote), previous); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		previous = nil
	}
	if previous != nil {
		log.Warnw("overwriting recorded vote with the same ciphertext", "size", len(encryptedVote))
	}
	if err := s.setArtifact(votePrefix, []byte(encryptedVote), entry); err != nil {
		return nil, err
	}
	s.pendingVotes[encryptedVote] = struct{}{}
	return &PendingVote{s: s, encryptedVote: encryptedVote, previous: previous}, nil
}

// Previous returns the entry overwritten by the write, nil if there was none.
func (p *PendingVote) Previous() *VoteEntry {
	return p.previous
}

// Confirm keeps the written entry.
func (p *PendingVote) Confirm() {
	p.s.votesLock.Lock()
	defer p.s.votesLock.Unlock()
	if p.settled {
		return
	}
	p.settled = true
	delete(p.s.pendingVotes, p.encryptedVote)
}

// Rollback sets the entry back to the one overwritten by the write, or
// removes it if there was none. The vote stops being pending even if the
// database write fails.
func (p *PendingVote) Rollback() error {
	p.s.votesLock.Lock()
	defer p.s.votesLock.Unlock()
	if p.settled {
		return nil
	}
	p.settled = true
	delete(p.s.pendingVotes, p.encryptedVote)
	if p.previous == nil {
		return p.s.deleteArtifact(votePrefix, []byte(p.encryptedVote))
	}
	return p.s.setArtifact(votePrefix, []byte(p.encryptedVote), p.previous)
}

// Vote returns the entry recorded for encryptedVote, or ErrUnknownVote.
func (s *Storage) Vote(encryptedVote string) (*VoteEntry, error) {
	s.votesLock.RLock()
	defer s.votesLock.RUnlock()

	entry := &VoteEntry{}
	if err := s.getArtifact(votePrefix, []byte(encryptedVote), entry); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownVote
		}
		return nil, err
	}
	return entry, nil
}

// CountVotes returns the number of recorded votes.
func (s *Storage) CountVotes() int {
	s.votesLock.RLock()
	defer s.votesLock.RUnlock()

	count, err := s.countArtifacts(votePrefix)
	if err != nil {
		log.Warnw("failed to count votes", "error", err.Error())
	}
	return count
}
