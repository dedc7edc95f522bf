// Package rpc contains the Web3Pool, a set of web3 endpoints serving the
// same chain, and Client, an implementation of bind.ContractBackend over the
// pool. Every call is sent to the next available endpoint; an endpoint that
// fails is flagged as unavailable and the call is retried on the next one.
// If every endpoint fails, the pool resets the available flag for all of
// them and starts again.
package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/vocdoni/ballot-relay/log"
)

const (
	// DefaultMaxWeb3ClientRetries is the default number of retries to connect to
	// a web3 provider.
	DefaultMaxWeb3ClientRetries = 5
	// checkWeb3EndpointsTimeout is the timeout to check the web3 endpoints.
	checkWeb3EndpointsTimeout = time.Second * 10
)

// Web3Endpoint is a web3 provider of the pool.
type Web3Endpoint struct {
	ChainID   uint64
	URI       string
	client    *ethclient.Client
	available bool
}

// Web3Pool holds the endpoints of a single chain and rotates between them.
type Web3Pool struct {
	mu        sync.Mutex
	chainID   uint64
	endpoints []*Web3Endpoint
	next      int
}

// NewWeb3Pool returns an empty pool.
func NewWeb3Pool() *Web3Pool {
	return &Web3Pool{}
}

// AddEndpoint dials the web3 provider and adds it to the pool. The first
// endpoint sets the chainID of the pool; the next ones must serve the same
// chain. It returns the chainID of the endpoint.
func (p *Web3Pool) AddEndpoint(uri string) (uint64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkWeb3EndpointsTimeout)
	defer cancel()
	client, err := connect(ctx, uri)
	if err != nil {
		return 0, err
	}
	bChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return 0, fmt.Errorf("error getting the chainID from the web3 provider '%s': %w", uri, err)
	}
	chainID := bChainID.Uint64()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.endpoints) > 0 && p.chainID != chainID {
		client.Close()
		return 0, fmt.Errorf("web3 provider '%s' serves chainID %d, the pool serves %d", uri, chainID, p.chainID)
	}
	p.chainID = chainID
	p.endpoints = append(p.endpoints, &Web3Endpoint{
		ChainID:   chainID,
		URI:       uri,
		client:    client,
		available: true,
	})
	log.Infow("web3 endpoint added", "chainID", chainID, "endpoints", len(p.endpoints))
	return chainID, nil
}

// ChainID returns the chainID served by the pool.
func (p *Web3Pool) ChainID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.chainID
}

// Endpoint returns the next available endpoint. If every endpoint is flagged
// as unavailable, all of them are made available again.
func (p *Web3Pool) Endpoint() (*Web3Endpoint, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.endpoints) == 0 {
		return nil, fmt.Errorf("no web3 endpoints in the pool")
	}
	for range 2 {
		for i := 0; i < len(p.endpoints); i++ {
			e := p.endpoints[(p.next+i)%len(p.endpoints)]
			if e.available {
				p.next = (p.next + i + 1) % len(p.endpoints)
				return e, nil
			}
		}
		log.Warnw("every web3 endpoint failed, resetting the pool", "chainID", p.chainID)
		for _, e := range p.endpoints {
			e.available = true
		}
	}
	return nil, fmt.Errorf("no available web3 endpoint")
}

// DisableEndpoint flags the endpoint with the given URI as unavailable.
func (p *Web3Pool) DisableEndpoint(uri string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		if e.URI == uri {
			e.available = false
		}
	}
}

// NumberOfEndpoints returns the total number (or just the available ones) of
// endpoints.
func (p *Web3Pool) NumberOfEndpoints(onlyAvailable bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.endpoints {
		if e.available || !onlyAvailable {
			n++
		}
	}
	return n
}

// Client returns a bind.ContractBackend that balances the calls across the
// pool.
func (p *Web3Pool) Client() (*Client, error) {
	if _, err := p.Endpoint(); err != nil {
		return nil, err
	}
	return &Client{pool: p, retries: p.NumberOfEndpoints(false)}, nil
}

// Close closes every endpoint client.
func (p *Web3Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.endpoints {
		e.client.Close()
	}
	p.endpoints = nil
}

// connect returns a new *ethclient.Client instance for the URI provided.
// It retries to connect to the web3 provider if it fails, up to the
// DefaultMaxWeb3ClientRetries times.
func connect(ctx context.Context, uri string) (client *ethclient.Client, err error) {
	for i := 0; i < DefaultMaxWeb3ClientRetries; i++ {
		if client, err = ethclient.DialContext(ctx, uri); err != nil {
			continue
		}
		return
	}
	return nil, fmt.Errorf("error dialing web3 provider uri '%s': %w", uri, err)
}
