package storage

import (
	"errors"
	"fmt"
)

// GroupKeys is the key pair of a group. PrivateKey is empty until the
// coordinator reveals it. Both keys are kept in their exported JSON form.
type GroupKeys struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey,omitempty"`
}

// Revealed reports whether the private key has been attached.
func (gk *GroupKeys) Revealed() bool {
	return gk.PrivateKey != ""
}

// PublishPublicKey creates the key entry of a group with its public key.
// It returns ErrDuplicateGroup if the group already has an entry.
func (s *Storage) PublishPublicKey(groupID, publicKey string) error {
	if publicKey == "" {
		return fmt.Errorf("empty public key")
	}
	s.keysLock.Lock()
	defer s.keysLock.Unlock()

	err := s.getArtifact(groupKeysPrefix, []byte(groupID), &GroupKeys{})
	if err == nil {
		return ErrDuplicateGroup
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.setArtifact(groupKeysPrefix, []byte(groupID), &GroupKeys{PublicKey: publicKey})
}

// GroupKeys returns the key entry of a group, or ErrUnknownGroup.
func (s *Storage) GroupKeys(groupID string) (*GroupKeys, error) {
	s.keysLock.RLock()
	defer s.keysLock.RUnlock()
	return s.groupKeys(groupID)
}

func (s *Storage) groupKeys(groupID string) (*GroupKeys, error) {
	gk := &GroupKeys{}
	if err := s.getArtifact(groupKeysPrefix, []byte(groupID), gk); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUnknownGroup
		}
		return nil, err
	}
	return gk, nil
}

// PublicKey returns the public key of a group, or ErrUnknownGroup.
func (s *Storage) PublicKey(groupID string) (string, error) {
	gk, err := s.GroupKeys(groupID)
	if err != nil {
		return "", err
	}
	return gk.PublicKey, nil
}

// RevealPrivateKey attaches the private key to an existing group entry. A
// private key can only be revealed once, a second call returns
// ErrAlreadyRevealed even if the key is the same.
func (s *Storage) RevealPrivateKey(groupID, privateKey string) error {
	if privateKey == "" {
		return fmt.Errorf("empty private key")
	}
	s.keysLock.Lock()
	defer s.keysLock.Unlock()

	gk, err := s.groupKeys(groupID)
	if err != nil {
		return err
	}
	if gk.Revealed() {
		return ErrAlreadyRevealed
	}
	gk.PrivateKey = privateKey
	return s.setArtifact(groupKeysPrefix, []byte(groupID), gk)
}

// PrivateKey returns the revealed private key of a group. It returns
// ErrUnknownGroup if the group has no entry and ErrNotRevealed if the key
// has not been revealed yet.
func (s *Storage) PrivateKey(groupID string) (string, error) {
	gk, err := s.GroupKeys(groupID)
	if err != nil {
		return "", err
	}
	if !gk.Revealed() {
		return "", ErrNotRevealed
	}
	return gk.PrivateKey, nil
}
