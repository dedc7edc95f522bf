// Command relay runs the ballot relay: it stores the group keys and the
// encrypted ballots in memory and forwards the ballots and new members to
// the voting contract.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/arbo/memdb"
	"github.com/vocdoni/ballot-relay/config"
	"github.com/vocdoni/ballot-relay/log"
	"github.com/vocdoni/ballot-relay/service"
	"github.com/vocdoni/ballot-relay/storage"
	"github.com/vocdoni/ballot-relay/web3"
	"gopkg.in/urfave/cli.v1"
)

func main() {
	app := cli.NewApp()
	app.Name = "relay"
	app.Usage = "anonymous ballot relay"
	app.ArgsUsage = "[tls-key tls-cert]"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config", Usage: "TOML configuration file"},
		cli.StringFlag{Name: "contract-address", Usage: "address of the voting contract", EnvVar: "CONTRACT_ADDRESS"},
		cli.StringSliceFlag{Name: "ethereum-url", Usage: "web3 endpoint, can be repeated", EnvVar: "ETHEREUM_URL"},
		cli.StringFlag{Name: "ethereum-private-key", Usage: "hex private key signing the transactions", EnvVar: "ETHEREUM_PRIVATE_KEY"},
		cli.StringFlag{Name: "relay-url", Usage: "public URL of the relay, its port is the listening port", EnvVar: "RELAY_URL"},
		cli.StringFlag{Name: "listen-host", Usage: "interface to listen on"},
		cli.StringFlag{Name: "tls-key", Usage: "TLS private key file"},
		cli.StringFlag{Name: "tls-cert", Usage: "TLS certificate file"},
		cli.DurationFlag{Name: "tx-timeout", Usage: "time to wait for a transaction to be mined"},
		cli.StringFlag{Name: "log-level", Usage: "log level (debug, info, warn, error)", EnvVar: "LOG_LEVEL"},
		cli.StringFlag{Name: "log-output", Usage: "log output (stdout, stderr or a file path)"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds the configuration: defaults, then the config file, then
// the flags and the environment.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	conf := config.Default()
	if path := ctx.String("config"); path != "" {
		var err error
		if conf, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	setString := func(dst *string, flag string) {
		if v := ctx.String(flag); v != "" {
			*dst = v
		}
	}
	setString(&conf.ContractAddress, "contract-address")
	setString(&conf.EthereumPrivateKey, "ethereum-private-key")
	setString(&conf.RelayURL, "relay-url")
	setString(&conf.ListenHost, "listen-host")
	setString(&conf.TLSKey, "tls-key")
	setString(&conf.TLSCert, "tls-cert")
	setString(&conf.Log.Level, "log-level")
	setString(&conf.Log.Output, "log-output")
	if urls := ctx.StringSlice("ethereum-url"); len(urls) > 0 {
		conf.EthereumURLs = urls
	}
	if d := ctx.Duration("tx-timeout"); d > 0 {
		conf.TxTimeout = config.Duration{Duration: d}
	}
	// the key and certificate can also be given as arguments
	if ctx.NArg() == 2 {
		conf.TLSKey, conf.TLSCert = ctx.Args().Get(0), ctx.Args().Get(1)
	} else if ctx.NArg() != 0 {
		return nil, fmt.Errorf("expected no arguments or the TLS key and certificate files")
	}
	return conf, conf.Validate()
}

func run(ctx *cli.Context) error {
	conf, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	log.Init(conf.Log.Level, conf.Log.Output, nil)

	contracts, err := web3.NewContracts(common.HexToAddress(conf.ContractAddress), conf.EthereumURLs[0])
	if err != nil {
		return fmt.Errorf("failed to initialize contracts: %w", err)
	}
	defer contracts.Close()
	for _, u := range conf.EthereumURLs[1:] {
		if err := contracts.AddWeb3Endpoint(u); err != nil {
			log.Warnw("skipping web3 endpoint", "error", err)
		}
	}
	if err := contracts.SetAccountPrivateKey(conf.EthereumPrivateKey); err != nil {
		return err
	}
	log.Infow("contracts initialized",
		"chainID", contracts.ChainID,
		"contract", contracts.ContractAddress().Hex(),
		"account", contracts.AccountAddress().Hex())

	stg := storage.New(memdb.New())
	defer stg.Close()

	host, port, err := conf.ListenAddr()
	if err != nil {
		return err
	}
	srvCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	apiService := service.NewAPI(stg, contracts, service.APIConfig{
		Host:      host,
		Port:      port,
		TLSCert:   conf.TLSCert,
		TLSKey:    conf.TLSKey,
		TxTimeout: conf.TxTimeout.Duration,
	})
	if err := apiService.Start(srvCtx); err != nil {
		return err
	}
	log.Infow("relay started", "url", conf.RelayURL, "tls", conf.TLS())

	<-srvCtx.Done()
	log.Infow("shutting down", "votes", stg.CountVotes())
	apiService.Stop()
	return nil
}
