package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/vocdoni/ballot-relay/crypto/ballot"
	"github.com/vocdoni/ballot-relay/types"
)

// GroupID identifies a group. Clients send it either as a JSON string or as
// a JSON number; both are kept as the same decimal string so a group has a
// single key in the store.
type GroupID string

// UnmarshalJSON accepts a JSON string or number.
func (g *GroupID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*g = GroupID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("group ID must be a string or a number: %w", err)
	}
	*g = GroupID(n.String())
	return nil
}

// String returns the group ID.
func (g GroupID) String() string {
	return string(g)
}

// BigInt returns the group ID as the uint256 used by the contract. Decimal
// and 0x prefixed hexadecimal strings are accepted.
func (g GroupID) BigInt() (*big.Int, error) {
	n, ok := new(big.Int).SetString(string(g), 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("group ID %q is not an unsigned integer", string(g))
	}
	return n, nil
}

// SubmitBallot is the body of a ballot submission. Review is the JSON wire
// form of the ballot envelope.
type SubmitBallot struct {
	Review        string           `json:"review"`
	NullifierHash *types.BigInt    `json:"nullifierHash"`
	GroupID       GroupID          `json:"groupId"`
	SolidityProof [8]*types.BigInt `json:"solidityProof"`
}

// Proof returns the membership proof as contract arguments. It fails if any
// element is missing.
func (sb *SubmitBallot) Proof() ([8]*big.Int, error) {
	var proof [8]*big.Int
	for i, p := range sb.SolidityProof {
		if p == nil {
			return proof, fmt.Errorf("proof element %d is missing", i)
		}
		proof[i] = p.MathBigInt()
	}
	return proof, nil
}

// SubmitBallotResponse is returned once the ballot is mined.
type SubmitBallotResponse struct {
	TxHash types.HexBytes `json:"txHash"`
}

// Vote is the response of the vote endpoint: the full ballot envelope.
type Vote = ballot.Wire

// AddMember is the body of a member addition.
type AddMember struct {
	GroupID            GroupID       `json:"groupId"`
	IdentityCommitment *types.BigInt `json:"identityCommitment"`
}

// AddMemberResponse is returned once the member is added.
type AddMemberResponse struct {
	TxHash types.HexBytes `json:"txHash"`
}

// GroupPublicKey is the body of the group public key publication, and the
// response of its fetch endpoint.
type GroupPublicKey struct {
	GroupID GroupID `json:"groupId"`
	PubKey  string  `json:"pubkey"`
}

// GroupPrivateKey is the body of the group private key reveal, and the
// response of its fetch endpoint.
type GroupPrivateKey struct {
	GroupID GroupID `json:"groupId"`
	PrivKey string  `json:"privkey"`
}
