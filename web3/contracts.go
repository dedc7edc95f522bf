// Package web3 is the relay's client of the voting contract. It sends the
// ballots and new members to the contract and waits for the transactions to
// be mined.
package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/ballot-relay/log"
	"github.com/vocdoni/ballot-relay/util"
	"github.com/vocdoni/ballot-relay/web3/rpc"
)

// ErrContract wraps every failure reported by the contract or the web3
// endpoints: network errors, reverts and timeouts.
var ErrContract = errors.New("contract call failed")

// ErrReverted is returned by WaitTx when the transaction was mined but
// reverted. Any other WaitTx error leaves the transaction outcome unknown.
var ErrReverted = errors.New("transaction reverted")

const (
	// web3QueryTimeout bounds the calls made to prepare a transaction.
	web3QueryTimeout = 10 * time.Second
	// waitTxInterval is the polling interval for transaction receipts.
	waitTxInterval = 2 * time.Second
	// defaultGasLimit is used when the gas estimation is skipped.
	defaultGasLimit = 10000000
)

// Contracts contains the binding to the deployed voting contract.
type Contracts struct {
	ChainID  uint64
	address  common.Address
	contract *bind.BoundContract
	web3pool *rpc.Web3Pool
	cli      *rpc.Client
	privKey  *ecdsa.PrivateKey
	account  common.Address

	// nonceLock serializes sending, nextNonce is the nonce after the last
	// transaction sent
	nonceLock sync.Mutex
	nextNonce uint64
}

// NewContracts creates a new Contracts instance bound to the contract at
// address, using the given web3 endpoint.
func NewContracts(address common.Address, web3rpc string) (*Contracts, error) {
	w3pool := rpc.NewWeb3Pool()
	chainID, err := w3pool.AddEndpoint(web3rpc)
	if err != nil {
		return nil, fmt.Errorf("failed to add web3 endpoint: %w", err)
	}
	cli, err := w3pool.Client()
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	parsed, err := parseRelayABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	return &Contracts{
		ChainID:  chainID,
		address:  address,
		contract: bind.NewBoundContract(address, parsed, cli, cli, cli),
		web3pool: w3pool,
		cli:      cli,
	}, nil
}

// AddWeb3Endpoint adds a new web3 endpoint to the pool.
func (c *Contracts) AddWeb3Endpoint(web3rpc string) error {
	_, err := c.web3pool.AddEndpoint(web3rpc)
	return err
}

// SetAccountPrivateKey sets the private key to be used for signing transactions.
func (c *Contracts) SetAccountPrivateKey(hexPrivKey string) error {
	var err error
	c.privKey, err = crypto.HexToECDSA(util.TrimHex(hexPrivKey))
	if err != nil {
		return fmt.Errorf("failed to parse private key: %w", err)
	}
	c.account = crypto.PubkeyToAddress(c.privKey.PublicKey)
	return nil
}

// AccountAddress returns the address of the account used to sign transactions.
func (c *Contracts) AccountAddress() common.Address {
	return c.account
}

// ContractAddress returns the address of the voting contract.
func (c *Contracts) ContractAddress() common.Address {
	return c.address
}

// Close releases the web3 endpoints.
func (c *Contracts) Close() {
	c.web3pool.Close()
}

// transact sends a transaction calling method on the contract. Sends are
// serialized so concurrent requests never share a nonce.
func (c *Contracts) transact(ctx context.Context, method string, params ...any) (*types.Transaction, error) {
	c.nonceLock.Lock()
	defer c.nonceLock.Unlock()
	auth, err := c.authTransactOpts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContract, err)
	}
	tx, err := c.contract.Transact(auth, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrContract, method, err)
	}
	c.nonceSent(tx.Nonce())
	return tx, nil
}

// nonceFor returns the nonce of the next transaction given the pending nonce
// reported by the endpoint, which may lag behind the transactions already
// sent. Must be called with nonceLock held.
func (c *Contracts) nonceFor(pending uint64) uint64 {
	return max(pending, c.nextNonce)
}

// nonceSent records that a transaction with nonce was sent. Must be called
// with nonceLock held.
func (c *Contracts) nonceSent(nonce uint64) {
	if nonce >= c.nextNonce {
		c.nextNonce = nonce + 1
	}
}

// authTransactOpts helper method creates the transact options with the
// configured private key. It sets the nonce, the gas tip cap and the gas
// limit. If something goes wrong creating the signer, getting the nonce, or
// getting the gas price, it returns an error.
func (c *Contracts) authTransactOpts(ctx context.Context) (*bind.TransactOpts, error) {
	if c.privKey == nil {
		return nil, fmt.Errorf("no private key set")
	}
	bChainID := new(big.Int).SetUint64(c.ChainID)
	auth, err := bind.NewKeyedTransactorWithChainID(c.privKey, bChainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	qctx, cancel := context.WithTimeout(ctx, web3QueryTimeout)
	defer cancel()
	log.Debugw("getting nonce", "address", c.account.Hex())
	nonce, err := c.cli.PendingNonceAt(qctx, c.account)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}
	auth.Nonce = new(big.Int).SetUint64(c.nonceFor(nonce))
	if auth.GasTipCap, err = c.cli.SuggestGasTipCap(qctx); err != nil {
		return nil, fmt.Errorf("failed to get gas tip cap: %w", err)
	}
	auth.GasLimit = defaultGasLimit
	auth.Context = ctx
	return auth, nil
}

func parseRelayABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(relayContractABI))
}
