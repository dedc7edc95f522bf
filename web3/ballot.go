package web3

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/vocdoni/ballot-relay/log"
)

// SubmitBallot casts the vote on the contract with its membership proof. The
// vote is the 32-byte identifier of the encrypted vote. It returns the hash of
// the transaction sent; use WaitTx to wait for it to be mined.
func (c *Contracts) SubmitBallot(ctx context.Context, vote [32]byte, nullifierHash, groupID *big.Int,
	proof [8]*big.Int,
) (common.Hash, error) {
	for i, p := range proof {
		if p == nil {
			return common.Hash{}, fmt.Errorf("%w: proof element %d is missing", ErrContract, i)
		}
	}
	tx, err := c.transact(ctx, "postReview", vote, nullifierHash, groupID, proof)
	if err != nil {
		return common.Hash{}, err
	}
	log.Debugw("ballot submitted", "tx", tx.Hash().Hex(), "groupID", groupID.String())
	return tx.Hash(), nil
}

// AddMember adds the identity commitment to the group on the contract. It
// returns the hash of the transaction sent.
func (c *Contracts) AddMember(ctx context.Context, groupID, identityCommitment *big.Int) (common.Hash, error) {
	tx, err := c.transact(ctx, "addMember", groupID, identityCommitment)
	if err != nil {
		return common.Hash{}, err
	}
	log.Debugw("member added", "tx", tx.Hash().Hex(), "groupID", groupID.String())
	return tx.Hash(), nil
}

// WaitTx blocks until the transaction is mined or the context is done. It
// fails with ErrReverted if the transaction was reverted.
func (c *Contracts) WaitTx(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(waitTxInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.cli.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("%w: %w: %s", ErrContract, ErrReverted, hash.Hex())
			}
			log.Debugw("transaction mined", "tx", hash.Hex(), "block", receipt.BlockNumber.String())
			return nil
		case !errors.Is(err, ethereum.NotFound):
			log.Warnw("error getting transaction receipt", "tx", hash.Hex(), "error", err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: waiting for transaction %s: %w", ErrContract, hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}
