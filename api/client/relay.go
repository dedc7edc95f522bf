package client

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballot-relay/api"
	"github.com/vocdoni/ballot-relay/crypto/ballot"
	"github.com/vocdoni/ballot-relay/types"
)

// apiError decodes the error body of a failed request.
func apiError(status int, data []byte) error {
	apiErr := struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{}
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Err == "" {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return fmt.Errorf("%s: %d: %s (code %d)", errCodeNot200, status, apiErr.Err, apiErr.Code)
}

func (c *HTTPclient) post(body any, urlPath string, out any) error {
	data, status, err := c.Request(HTTPPOST, body, urlPath)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return apiError(status, data)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *HTTPclient) getHeader(urlPath, reqHeader, value, respHeader string) (string, error) {
	data, headers, status, err := c.RequestWithHeaders(HTTPGET, nil, map[string]string{reqHeader: value}, urlPath)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", apiError(status, data)
	}
	v := headers.Get(respHeader)
	if v == "" {
		return "", fmt.Errorf("missing %s header in response", respHeader)
	}
	return v, nil
}

// SubmitBallot sends the ballot with its membership proof and waits for
// the relay to confirm the transaction.
func (c *HTTPclient) SubmitBallot(b *ballot.Wire, nullifierHash, groupID *big.Int, proof [8]*big.Int) (common.Hash, error) {
	req := &api.SubmitBallot{
		Review:        b.String(),
		NullifierHash: (*types.BigInt)(nullifierHash),
		GroupID:       api.GroupID(groupID.String()),
	}
	for i, p := range proof {
		req.SolidityProof[i] = (*types.BigInt)(p)
	}
	resp := &api.SubmitBallotResponse{}
	if err := c.post(req, api.PostReviewEndpoint, resp); err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(resp.TxHash), nil
}

// Vote returns the ballot envelope recorded for the encrypted vote.
func (c *HTTPclient) Vote(encryptedVote string) (*ballot.Wire, error) {
	v, err := c.getHeader(api.GetVoteEndpoint, api.VoteHeader, encryptedVote, api.VoteHeader)
	if err != nil {
		return nil, err
	}
	return ballot.ParseWire(v)
}

// AddMember adds the identity commitment to the group.
func (c *HTTPclient) AddMember(groupID, identityCommitment *big.Int) (common.Hash, error) {
	req := &api.AddMember{
		GroupID:            api.GroupID(groupID.String()),
		IdentityCommitment: (*types.BigInt)(identityCommitment),
	}
	resp := &api.AddMemberResponse{}
	if err := c.post(req, api.AddMemberEndpoint, resp); err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(resp.TxHash), nil
}

// PublishGroupPublicKey publishes the exported public key of the group.
func (c *HTTPclient) PublishGroupPublicKey(groupID, pubKey string) error {
	return c.post(&api.GroupPublicKey{GroupID: api.GroupID(groupID), PubKey: pubKey}, api.SetGroupPubKeyEndpoint, nil)
}

// GroupPublicKey returns the exported public key of the group.
func (c *HTTPclient) GroupPublicKey(groupID string) (string, error) {
	return c.getHeader(api.GetGroupPubKeyEndpoint, api.GroupIDHeader, groupID, api.PubKeyHeader)
}

// RevealGroupPrivateKey reveals the exported private key of the group.
func (c *HTTPclient) RevealGroupPrivateKey(groupID, privKey string) error {
	return c.post(&api.GroupPrivateKey{GroupID: api.GroupID(groupID), PrivKey: privKey}, api.SetGroupPrivKeyEndpoint, nil)
}

// GroupPrivateKey returns the revealed private key of the group.
func (c *HTTPclient) GroupPrivateKey(groupID string) (string, error) {
	return c.getHeader(api.GetGroupPrivKeyEndpoint, api.GroupIDHeader, groupID, api.PrivKeyHeader)
}
