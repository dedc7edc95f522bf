package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vocdoni/ballot-relay/crypto/jwk"
	"github.com/vocdoni/ballot-relay/log"
	stg "github.com/vocdoni/ballot-relay/storage"
)

// publishGroupPublicKey stores the public key of a new group. The key must
// be an exported ECDH public key.
// POST /set-group-pubkey
func (a *API) publishGroupPublicKey(w http.ResponseWriter, r *http.Request) {
	req := &GroupPublicKey{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.GroupID == "" {
		ErrMalformedGroupID.With("empty group ID").Write(w)
		return
	}
	if _, err := jwk.ParsePublicKey(req.PubKey); err != nil {
		ErrMalformedKey.WithErr(err).Write(w)
		return
	}
	if err := a.storage.PublishPublicKey(req.GroupID.String(), req.PubKey); err != nil {
		if errors.Is(err, stg.ErrDuplicateGroup) {
			ErrGroupAlreadyExists.Write(w)
			return
		}
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	groupsPublished.Inc()
	log.Infow("group public key published", "groupID", req.GroupID.String())
	httpWriteOK(w)
}

// groupPublicKey returns the public key of the group sent in the groupId
// header, in the pubkey header and in the body.
// GET /get-group-pubkey
func (a *API) groupPublicKey(w http.ResponseWriter, r *http.Request) {
	groupID := r.Header.Get(GroupIDHeader)
	if groupID == "" {
		ErrMissingHeader.With(GroupIDHeader).Write(w)
		return
	}
	pubKey, err := a.storage.PublicKey(groupID)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	httpWriteHeaderJSON(w, PubKeyHeader, pubKey, &GroupPublicKey{GroupID: GroupID(groupID), PubKey: pubKey})
}

// revealGroupPrivateKey attaches the private key to a published group. The
// key must be the private part of the published public key.
// POST /set-group-privkey
func (a *API) revealGroupPrivateKey(w http.ResponseWriter, r *http.Request) {
	req := &GroupPrivateKey{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.GroupID == "" {
		ErrMalformedGroupID.With("empty group ID").Write(w)
		return
	}
	privKey, err := jwk.ParsePrivateKey(req.PrivKey)
	if err != nil {
		ErrMalformedKey.WithErr(err).Write(w)
		return
	}
	published, err := a.storage.PublicKey(req.GroupID.String())
	if err != nil {
		writeGroupError(w, err)
		return
	}
	pubKey, err := jwk.ParsePublicKey(published)
	if err != nil {
		ErrGenericInternalServerError.Withf("stored public key: %v", err).Write(w)
		return
	}
	if !privKey.PublicKey().Equal(pubKey) {
		ErrKeyMismatch.Write(w)
		return
	}
	if err := a.storage.RevealPrivateKey(req.GroupID.String(), req.PrivKey); err != nil {
		writeGroupError(w, err)
		return
	}
	keysRevealed.Inc()
	log.Infow("group private key revealed", "groupID", req.GroupID.String())
	httpWriteOK(w)
}

// groupPrivateKey returns the revealed private key of the group sent in the
// groupId header, in the privkey header and in the body.
// GET /get-group-privkey
func (a *API) groupPrivateKey(w http.ResponseWriter, r *http.Request) {
	groupID := r.Header.Get(GroupIDHeader)
	if groupID == "" {
		ErrMissingHeader.With(GroupIDHeader).Write(w)
		return
	}
	privKey, err := a.storage.PrivateKey(groupID)
	if err != nil {
		writeGroupError(w, err)
		return
	}
	httpWriteHeaderJSON(w, PrivKeyHeader, privKey, &GroupPrivateKey{GroupID: GroupID(groupID), PrivKey: privKey})
}

// writeGroupError maps the group key store errors to API errors.
func writeGroupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stg.ErrUnknownGroup):
		ErrGroupNotFound.Write(w)
	case errors.Is(err, stg.ErrAlreadyRevealed):
		ErrKeyAlreadyRevealed.Write(w)
	case errors.Is(err, stg.ErrNotRevealed):
		ErrKeyNotRevealed.Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
