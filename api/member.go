package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballot-relay/log"
	"github.com/vocdoni/ballot-relay/util"
	"github.com/vocdoni/ballot-relay/web3"
)

// addMember adds an identity commitment to a group on the contract and
// waits for the transaction to be mined.
// POST /add-member
func (a *API) addMember(w http.ResponseWriter, r *http.Request) {
	req := &AddMember{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	groupID, err := req.GroupID.BigInt()
	if err != nil {
		ErrMalformedGroupID.WithErr(err).Write(w)
		return
	}
	if req.IdentityCommitment == nil {
		ErrMalformedCommitment.With("missing identity commitment").Write(w)
		return
	}
	if !util.InScalarField(req.IdentityCommitment.MathBigInt()) {
		ErrMalformedCommitment.With("identity commitment out of the scalar field").Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), a.txTimeout)
	defer cancel()
	start := time.Now()
	txHash, err := a.contracts.AddMember(ctx, groupID, req.IdentityCommitment.MathBigInt())
	if err == nil {
		err = a.contracts.WaitTx(ctx, txHash)
	}
	observeTx(start)
	if err != nil && txHash != (common.Hash{}) && !errors.Is(err, web3.ErrReverted) {
		memberUnmined.Inc()
		log.Warnw("member transaction not mined in time", "groupID", req.GroupID.String(),
			"tx", txHash.Hex(), "error", err)
		ErrTxNotMined.Withf("transaction %s", txHash.Hex()).Write(w)
		return
	}
	if err != nil {
		memberFailures.Inc()
		log.Warnw("add member failed", "groupID", req.GroupID.String(), "error", err)
		ErrContractFailed.WithErr(err).Write(w)
		return
	}
	membersAdded.Inc()
	log.Infow("member added", "groupID", req.GroupID.String(), "tx", txHash.Hex())
	httpWriteJSON(w, &AddMemberResponse{TxHash: txHash.Bytes()})
}
