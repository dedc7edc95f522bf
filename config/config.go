// Package config holds the settings of the relay. They are read from an
// optional TOML file and overridden by the command line flags and the
// environment.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballot-relay/log"
)

const (
	// DefaultListenHost is the interface the relay listens on.
	DefaultListenHost = "0.0.0.0"
	// DefaultRelayURL is the public URL of the relay.
	DefaultRelayURL = "http://localhost:3000"
	// DefaultTxTimeout is the time a request waits for its transaction.
	DefaultTxTimeout = 2 * time.Minute
	// DefaultLogLevel and DefaultLogOutput configure the log package.
	DefaultLogLevel  = log.LogLevelInfo
	DefaultLogOutput = "stdout"
)

// Duration is a time.Duration written as a string ("90s", "2m") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Log configures the log package.
type Log struct {
	Level  string `toml:"level"`
	Output string `toml:"output"`
}

// Config is the relay configuration.
type Config struct {
	// ContractAddress is the address of the voting contract.
	ContractAddress string `toml:"contract_address"`
	// EthereumURLs are the web3 endpoints, all serving the same chain.
	EthereumURLs []string `toml:"ethereum_urls"`
	// EthereumPrivateKey signs the transactions sent by the relay.
	EthereumPrivateKey string `toml:"ethereum_private_key"`
	// RelayURL is the public URL of the relay. Its port is the listening
	// port and its scheme must be https if and only if TLS is enabled.
	RelayURL   string `toml:"relay_url"`
	ListenHost string `toml:"listen_host"`
	TLSCert    string `toml:"tls_cert"`
	TLSKey     string `toml:"tls_key"`
	// TxTimeout bounds the wait for a transaction to be mined.
	TxTimeout Duration `toml:"tx_timeout"`
	Log       Log      `toml:"log"`
}

// Default returns the default configuration. The contract and the
// ethereum settings have no default.
func Default() *Config {
	return &Config{
		RelayURL:   DefaultRelayURL,
		ListenHost: DefaultListenHost,
		TxTimeout:  Duration{DefaultTxTimeout},
		Log: Log{
			Level:  DefaultLogLevel,
			Output: DefaultLogOutput,
		},
	}
}

// Load reads the TOML file at path over the default configuration. Unknown
// keys are an error.
func Load(path string) (*Config, error) {
	conf := Default()
	meta, err := toml.DecodeFile(path, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys in config file %s: %v", path, undecoded)
	}
	return conf, nil
}

// TLS reports whether the relay is served over TLS.
func (c *Config) TLS() bool {
	return c.TLSCert != "" && c.TLSKey != ""
}

// Validate checks that every required setting is present and consistent.
func (c *Config) Validate() error {
	if c.ContractAddress == "" {
		return fmt.Errorf("contract address is required")
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("invalid contract address %q", c.ContractAddress)
	}
	if len(c.EthereumURLs) == 0 {
		return fmt.Errorf("at least one ethereum URL is required")
	}
	if c.EthereumPrivateKey == "" {
		return fmt.Errorf("ethereum private key is required")
	}
	if c.RelayURL == "" {
		return fmt.Errorf("relay URL is required")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("TLS requires both a certificate and a key")
	}
	for _, f := range []string{c.TLSCert, c.TLSKey} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("cannot start the relay with TLS: %w", err)
		}
	}
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %w", err)
	}
	switch {
	case u.Scheme != "http" && u.Scheme != "https":
		return fmt.Errorf("relay URL scheme must be http or https, got %q", u.Scheme)
	case c.TLS() && u.Scheme != "https":
		return fmt.Errorf("the relay URL must be https when TLS is enabled")
	case !c.TLS() && u.Scheme == "https":
		return fmt.Errorf("the relay URL cannot be https when TLS is disabled")
	}
	if _, _, err := c.ListenAddr(); err != nil {
		return err
	}
	if c.TxTimeout.Duration <= 0 {
		return fmt.Errorf("transaction timeout must be positive")
	}
	switch c.Log.Level {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// ListenAddr returns the host and port the relay listens on. The port is
// the one of the relay URL, or the default port of its scheme.
func (c *Config) ListenAddr() (string, int, error) {
	u, err := url.Parse(c.RelayURL)
	if err != nil {
		return "", 0, fmt.Errorf("invalid relay URL: %w", err)
	}
	portStr := u.Port()
	if portStr == "" {
		portStr = "80"
		if u.Scheme == "https" {
			portStr = "443"
		}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid relay URL port %q", portStr)
	}
	host := c.ListenHost
	if host == "" {
		host = DefaultListenHost
	}
	if net.ParseIP(host) == nil && host != "localhost" {
		return "", 0, fmt.Errorf("invalid listen host %q", host)
	}
	return host, port, nil
}
