package web3

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MockBallot is a ballot received by MockContracts.
type MockBallot struct {
	Vote          [32]byte
	NullifierHash *big.Int
	GroupID       *big.Int
	Proof         [8]*big.Int
}

// MockMember is a member added through MockContracts.
type MockMember struct {
	GroupID            *big.Int
	IdentityCommitment *big.Int
}

// MockContracts is an in-memory replacement of Contracts for tests. Every
// transaction is mined right away unless a failure is configured.
type MockContracts struct {
	mu      sync.Mutex
	nonce   uint64
	ballots []MockBallot
	members []MockMember
	// FailSubmit makes SubmitBallot and AddMember return an error.
	FailSubmit bool
	// FailWait makes WaitTx report the transaction as reverted.
	FailWait bool
	// BlockWait makes WaitTx block until its context is done, as for a
	// transaction that is never mined.
	BlockWait bool
}

// NewMockContracts returns a MockContracts that accepts every transaction.
func NewMockContracts() *MockContracts {
	return &MockContracts{}
}

// SetFailures configures the calls that should fail.
func (m *MockContracts) SetFailures(submit, wait bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailSubmit = submit
	m.FailWait = wait
}

func (m *MockContracts) txHash() common.Hash {
	m.nonce++
	return crypto.Keccak256Hash(new(big.Int).SetUint64(m.nonce).Bytes())
}

// SetBlockWait configures whether WaitTx blocks until its context is done.
func (m *MockContracts) SetBlockWait(block bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BlockWait = block
}

// SubmitBallot records the ballot.
func (m *MockContracts) SubmitBallot(_ context.Context, vote [32]byte, nullifierHash, groupID *big.Int,
	proof [8]*big.Int,
) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSubmit {
		return common.Hash{}, fmt.Errorf("%w: postReview: mock failure", ErrContract)
	}
	m.ballots = append(m.ballots, MockBallot{
		Vote:          vote,
		NullifierHash: nullifierHash,
		GroupID:       groupID,
		Proof:         proof,
	})
	return m.txHash(), nil
}

// AddMember records the member.
func (m *MockContracts) AddMember(_ context.Context, groupID, identityCommitment *big.Int) (common.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSubmit {
		return common.Hash{}, fmt.Errorf("%w: addMember: mock failure", ErrContract)
	}
	m.members = append(m.members, MockMember{GroupID: groupID, IdentityCommitment: identityCommitment})
	return m.txHash(), nil
}

// WaitTx returns immediately unless BlockWait is set.
func (m *MockContracts) WaitTx(ctx context.Context, hash common.Hash) error {
	m.mu.Lock()
	failWait, blockWait := m.FailWait, m.BlockWait
	m.mu.Unlock()
	if failWait {
		return fmt.Errorf("%w: %w: %s", ErrContract, ErrReverted, hash.Hex())
	}
	if blockWait {
		<-ctx.Done()
		return fmt.Errorf("%w: waiting for transaction %s: %w", ErrContract, hash.Hex(), ctx.Err())
	}
	return ctx.Err()
}

// Ballots returns a copy of the ballots received.
func (m *MockContracts) Ballots() []MockBallot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockBallot(nil), m.ballots...)
}

// Members returns a copy of the members added.
func (m *MockContracts) Members() []MockMember {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockMember(nil), m.members...)
}
