package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/vocdoni/ballot-relay/crypto/ballot"
	"github.com/vocdoni/ballot-relay/log"
	stg "github.com/vocdoni/ballot-relay/storage"
	"github.com/vocdoni/ballot-relay/util"
	"github.com/vocdoni/ballot-relay/web3"
)

// submitBallot records a ballot envelope and casts it on the contract with
// its membership proof. The ledger entry is rolled back if the transaction
// cannot be sent or is reverted. A transaction that is sent but not mined
// before the timeout keeps its entry.
// POST /post-review
func (a *API) submitBallot(w http.ResponseWriter, r *http.Request) {
	req := &SubmitBallot{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	wire, err := ballot.ParseWire(req.Review)
	if err != nil {
		ErrMalformedBallot.WithErr(err).Write(w)
		return
	}
	if _, err := ballot.FromWire(wire); err != nil {
		ErrMalformedBallot.WithErr(err).Write(w)
		return
	}
	voteID, err := wire.Bytes32()
	if err != nil {
		ErrVoteTooLong.WithErr(err).Write(w)
		return
	}
	groupID, err := req.GroupID.BigInt()
	if err != nil {
		ErrMalformedGroupID.WithErr(err).Write(w)
		return
	}
	if req.NullifierHash == nil {
		ErrMalformedProof.With("missing nullifier hash").Write(w)
		return
	}
	if !util.InScalarField(req.NullifierHash.MathBigInt()) {
		ErrMalformedProof.With("nullifier hash out of the scalar field").Write(w)
		return
	}
	proof, err := req.Proof()
	if err != nil {
		ErrMalformedProof.WithErr(err).Write(w)
		return
	}

	reqID := uuid.New().String()
	pending, err := a.storage.RecordVote(wire.EncryptedVote, &stg.VoteEntry{
		EphemeralPublicKey: wire.EphPubkey,
		Counter:            wire.Counter,
	})
	if err != nil {
		if errors.Is(err, stg.ErrVoteInFlight) {
			ErrVoteInFlight.Write(w)
			return
		}
		ErrGenericInternalServerError.Withf("could not record vote: %v", err).Write(w)
		return
	}
	log.Debugw("vote recorded", "request", reqID, "groupID", req.GroupID.String())

	// a client disconnect does not cancel the transaction
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), a.txTimeout)
	defer cancel()
	start := time.Now()
	txHash, err := a.contracts.SubmitBallot(ctx, voteID, req.NullifierHash.MathBigInt(), groupID, proof)
	if err == nil {
		err = a.contracts.WaitTx(ctx, txHash)
	}
	observeTx(start)
	switch {
	case err == nil:
		pending.Confirm()
	case txHash != (common.Hash{}) && !errors.Is(err, web3.ErrReverted):
		// sent and maybe mined later, the envelope must stay available
		pending.Confirm()
		submitUnmined.Inc()
		log.Warnw("ballot transaction not mined in time", "request", reqID, "groupID", req.GroupID.String(),
			"tx", txHash.Hex(), "error", err)
		ErrTxNotMined.Withf("transaction %s", txHash.Hex()).Write(w)
		return
	default:
		submitFailures.Inc()
		if rerr := pending.Rollback(); rerr != nil {
			log.Errorw(rerr, "could not roll back recorded vote")
		}
		log.Warnw("ballot submission failed", "request", reqID, "groupID", req.GroupID.String(), "error", err)
		ErrContractFailed.WithErr(err).Write(w)
		return
	}
	ballotsSubmitted.Inc()
	log.Infow("ballot submitted", "request", reqID, "groupID", req.GroupID.String(), "tx", txHash.Hex())
	httpWriteJSON(w, &SubmitBallotResponse{TxHash: txHash.Bytes()})
}

// vote returns the ballot envelope recorded for the encrypted vote sent in
// the vote header. The envelope is returned in the vote header and in the
// body.
// GET /get-vote
func (a *API) vote(w http.ResponseWriter, r *http.Request) {
	encryptedVote := r.Header.Get(VoteHeader)
	if encryptedVote == "" {
		ErrMissingHeader.With(VoteHeader).Write(w)
		return
	}
	entry, err := a.storage.Vote(encryptedVote)
	if err != nil {
		if errors.Is(err, stg.ErrUnknownVote) {
			ErrVoteNotFound.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	v := &Vote{
		EphPubkey:     entry.EphemeralPublicKey,
		EncryptedVote: encryptedVote,
		Counter:       entry.Counter,
	}
	httpWriteHeaderJSON(w, VoteHeader, v.String(), v)
}

