// Command ballotctl is the coordinator and voter tool of the ballot relay.
// It generates group keys, seals and opens ballots, and talks to a relay.
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/vocdoni/ballot-relay/api/client"
	"github.com/vocdoni/ballot-relay/crypto/ballot"
	"github.com/vocdoni/ballot-relay/crypto/jwk"
	"github.com/vocdoni/ballot-relay/log"
	"gopkg.in/urfave/cli.v1"
)

var (
	relayFlag   = cli.StringFlag{Name: "relay", Value: "http://localhost:3000", Usage: "relay URL", EnvVar: "RELAY_URL"}
	groupFlag   = cli.StringFlag{Name: "group", Usage: "group ID"}
	kdfFlag     = cli.StringFlag{Name: "kdf", Value: "raw", Usage: "ballot key derivation (raw or hkdf)"}
	timeoutFlag = cli.DurationFlag{Name: "timeout", Value: client.DefaultTimeout, Usage: "relay request timeout"}
)

func main() {
	app := cli.NewApp()
	app.Name = "ballotctl"
	app.Usage = "ballot relay coordinator and voter tool"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "log-level", Value: log.LogLevelWarn, Usage: "log level"},
	}
	app.Before = func(ctx *cli.Context) error {
		log.Init(ctx.String("log-level"), "stderr", nil)
		return nil
	}
	app.Commands = []cli.Command{
		{
			Name:   "keygen",
			Usage:  "generate a group key pair",
			Flags:  []cli.Flag{cli.StringFlag{Name: "curve", Value: jwk.DefaultCurve, Usage: "P-256, P-384 or P-521"}},
			Action: keygen,
		},
		{
			Name:  "seal",
			Usage: "encrypt a vote for a group public key",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "pubkey", Usage: "exported group public key, or @file"},
				cli.StringFlag{Name: "vote", Usage: "vote to encrypt"},
				kdfFlag,
			},
			Action: seal,
		},
		{
			Name:  "open",
			Usage: "decrypt a ballot with the group private key",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "privkey", Usage: "exported group private key, or @file"},
				cli.StringFlag{Name: "ballot", Usage: "ballot envelope JSON, or @file"},
				kdfFlag,
			},
			Action: open,
		},
		{
			Name:  "publish",
			Usage: "publish the public key of a group on the relay",
			Flags: []cli.Flag{
				relayFlag, groupFlag, timeoutFlag,
				cli.StringFlag{Name: "pubkey", Usage: "exported group public key, or @file"},
			},
			Action: publish,
		},
		{
			Name:  "reveal",
			Usage: "reveal the private key of a group on the relay",
			Flags: []cli.Flag{
				relayFlag, groupFlag, timeoutFlag,
				cli.StringFlag{Name: "privkey", Usage: "exported group private key, or @file"},
			},
			Action: reveal,
		},
		{
			Name:  "add-member",
			Usage: "add an identity commitment to a group",
			Flags: []cli.Flag{
				relayFlag, groupFlag, timeoutFlag,
				cli.StringFlag{Name: "commitment", Usage: "identity commitment"},
			},
			Action: addMember,
		},
		{
			Name:  "vote",
			Usage: "seal a vote with the group key of the relay and submit it",
			Flags: []cli.Flag{
				relayFlag, groupFlag, timeoutFlag, kdfFlag,
				cli.StringFlag{Name: "vote", Usage: "vote to encrypt"},
				cli.StringFlag{Name: "nullifier", Usage: "nullifier hash of the membership proof"},
				cli.StringFlag{Name: "proof", Usage: "the 8 comma separated elements of the membership proof"},
			},
			Action: vote,
		},
		{
			Name:      "tally",
			Usage:     "fetch ballots from the relay and decrypt them with the revealed group key",
			ArgsUsage: "<encryptedVote>...",
			Flags:     []cli.Flag{relayFlag, groupFlag, timeoutFlag, kdfFlag},
			Action:    tally,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// value returns the flag value, read from a file if it starts with @.
func value(ctx *cli.Context, name string) (string, error) {
	v := ctx.String(name)
	if v == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	if !strings.HasPrefix(v, "@") {
		return v, nil
	}
	data, err := os.ReadFile(v[1:])
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func kdfOption(ctx *cli.Context) (ballot.Option, error) {
	switch ctx.String("kdf") {
	case "raw", "":
		return ballot.WithKDF(ballot.KDFRaw), nil
	case "hkdf":
		return ballot.WithKDF(ballot.KDFHKDF), nil
	default:
		return nil, fmt.Errorf("unknown key derivation %q", ctx.String("kdf"))
	}
}

func relayClient(ctx *cli.Context) (*client.HTTPclient, error) {
	if ctx.String("group") == "" {
		return nil, fmt.Errorf("--group is required")
	}
	rc, err := client.New(ctx.String("relay"))
	if err != nil {
		return nil, err
	}
	if d := ctx.Duration("timeout"); d > 0 {
		rc.SetTimeout(d)
	}
	return rc, nil
}

func bigInt(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func keygen(ctx *cli.Context) error {
	priv, err := jwk.GenerateKey(ctx.String("curve"))
	if err != nil {
		return err
	}
	pub, err := jwk.ExportPublicKey(priv.PublicKey())
	if err != nil {
		return err
	}
	sk, err := jwk.ExportPrivateKey(priv)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"pubkey": pub.String(), "privkey": sk.String()})
}

func sealVote(ctx *cli.Context, pubKey string) (*ballot.Wire, error) {
	v := ctx.String("vote")
	if v == "" {
		return nil, fmt.Errorf("--vote is required")
	}
	pub, err := jwk.ParsePublicKey(pubKey)
	if err != nil {
		return nil, err
	}
	opt, err := kdfOption(ctx)
	if err != nil {
		return nil, err
	}
	b, err := ballot.Seal(pub, []byte(v), opt)
	if err != nil {
		return nil, err
	}
	return ballot.ToWire(b)
}

func seal(ctx *cli.Context) error {
	pubKey, err := value(ctx, "pubkey")
	if err != nil {
		return err
	}
	w, err := sealVote(ctx, pubKey)
	if err != nil {
		return err
	}
	fmt.Println(w.String())
	return nil
}

func openBallot(ctx *cli.Context, privKey string, w *ballot.Wire) (string, error) {
	priv, err := jwk.ParsePrivateKey(privKey)
	if err != nil {
		return "", err
	}
	b, err := ballot.FromWire(w)
	if err != nil {
		return "", err
	}
	opt, err := kdfOption(ctx)
	if err != nil {
		return "", err
	}
	plain, err := ballot.Open(priv, b, opt)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func open(ctx *cli.Context) error {
	privKey, err := value(ctx, "privkey")
	if err != nil {
		return err
	}
	envelope, err := value(ctx, "ballot")
	if err != nil {
		return err
	}
	w, err := ballot.ParseWire(envelope)
	if err != nil {
		return err
	}
	plain, err := openBallot(ctx, privKey, w)
	if err != nil {
		return err
	}
	fmt.Println(plain)
	return nil
}

func publish(ctx *cli.Context) error {
	rc, err := relayClient(ctx)
	if err != nil {
		return err
	}
	pubKey, err := value(ctx, "pubkey")
	if err != nil {
		return err
	}
	return rc.PublishGroupPublicKey(ctx.String("group"), pubKey)
}

func reveal(ctx *cli.Context) error {
	rc, err := relayClient(ctx)
	if err != nil {
		return err
	}
	privKey, err := value(ctx, "privkey")
	if err != nil {
		return err
	}
	return rc.RevealGroupPrivateKey(ctx.String("group"), privKey)
}

func addMember(ctx *cli.Context) error {
	rc, err := relayClient(ctx)
	if err != nil {
		return err
	}
	groupID, err := bigInt(ctx.String("group"))
	if err != nil {
		return err
	}
	commitment, err := bigInt(ctx.String("commitment"))
	if err != nil {
		return err
	}
	txHash, err := rc.AddMember(groupID, commitment)
	if err != nil {
		return err
	}
	fmt.Println(txHash.Hex())
	return nil
}

func vote(ctx *cli.Context) error {
	rc, err := relayClient(ctx)
	if err != nil {
		return err
	}
	groupID, err := bigInt(ctx.String("group"))
	if err != nil {
		return err
	}
	nullifier, err := bigInt(ctx.String("nullifier"))
	if err != nil {
		return err
	}
	elements := strings.Split(ctx.String("proof"), ",")
	if len(elements) != 8 {
		return fmt.Errorf("the proof has 8 elements, got %d", len(elements))
	}
	var proof [8]*big.Int
	for i, e := range elements {
		if proof[i], err = bigInt(e); err != nil {
			return err
		}
	}
	pubKey, err := rc.GroupPublicKey(ctx.String("group"))
	if err != nil {
		return err
	}
	w, err := sealVote(ctx, pubKey)
	if err != nil {
		return err
	}
	txHash, err := rc.SubmitBallot(w, nullifier, groupID, proof)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"encryptedVote": w.EncryptedVote, "txHash": txHash.Hex()})
}

func tally(ctx *cli.Context) error {
	rc, err := relayClient(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() == 0 {
		return fmt.Errorf("no encrypted votes given")
	}
	privKey, err := rc.GroupPrivateKey(ctx.String("group"))
	if err != nil {
		return err
	}
	results := map[string]int{}
	for _, encryptedVote := range ctx.Args() {
		w, err := rc.Vote(encryptedVote)
		if err != nil {
			return fmt.Errorf("vote %s: %w", encryptedVote, err)
		}
		plain, err := openBallot(ctx, privKey, w)
		if err != nil {
			return fmt.Errorf("vote %s: %w", encryptedVote, err)
		}
		results[plain]++
	}
	return printJSON(results)
}
