package service

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/ballot-relay/api"
	"github.com/vocdoni/ballot-relay/storage"
	"github.com/vocdoni/ballot-relay/web3"
)

// freePort returns a TCP port that was free a moment ago.
func freePort(c *qt.C) int {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	c.Assert(err, qt.IsNil)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func waitPing(url string) error {
	var err error
	for range 50 {
		var resp *http.Response
		if resp, err = http.Get(url); err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		time.Sleep(100 * time.Millisecond)
	}
	return err
}

func TestAPIService(t *testing.T) {
	c := qt.New(t)

	// Setup storage
	store := storage.New(memdb.New())
	defer store.Close()

	port := freePort(c)
	apiService := NewAPI(store, web3.NewMockContracts(), APIConfig{Host: "127.0.0.1", Port: port})

	ctx := context.Background()
	err := apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
	defer apiService.Stop()

	host, p := apiService.HostPort()
	pingURL := fmt.Sprintf("http://%s:%d%s", host, p, api.PingEndpoint)
	c.Assert(waitPing(pingURL), qt.IsNil)

	// Test starting an already running service
	err = apiService.Start(ctx)
	c.Assert(err, qt.ErrorMatches, "service already running")

	// Test stopping and restarting
	apiService.Stop()
	err = apiService.Start(ctx)
	c.Assert(err, qt.IsNil)
	c.Assert(waitPing(pingURL), qt.IsNil)
}

func TestAPIServiceConfig(t *testing.T) {
	c := qt.New(t)
	store := storage.New(memdb.New())
	defer store.Close()

	apiService := NewAPI(store, web3.NewMockContracts(), APIConfig{Host: "127.0.0.1", Port: 0, TLSCert: "cert.pem"})
	err := apiService.Start(context.Background())
	c.Assert(err, qt.ErrorMatches, "failed to start API server: .*")
	// a failed start does not leave the service running
	apiService.Stop()
}
