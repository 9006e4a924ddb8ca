// Package config parses the miner's command-line options with
// github.com/jessevdk/go-flags and resolves them into the typed inputs
// every other package needs: the pool URL's protocol (spec.md §6's scheme
// table), the algorithm selector, and the retry/timeout policy shared by
// the Work I/O and Stratum tasks.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/boomstarternetwork/gominer/internal/algo"
)

// Protocol is the upstream wire protocol selected by the pool URL's scheme.
type Protocol int

const (
	ProtocolGBT Protocol = iota
	ProtocolStratum
)

// Options is the raw go-flags option struct. Field tags follow the
// long/short/description/default convention used throughout the
// go-flags ecosystem.
type Options struct {
	URL           string `long:"url" short:"o" description:"URL of mining server (http://, https://, stratum+tcp://, stratum+tcps://)" required:"true"`
	UserPass      string `long:"userpass" short:"O" description:"username:password pair for mining server"`
	PayoutAddress string `long:"coinbase-addr" description:"payout address for GetBlockTemplate coinbase (required unless the pool supplies its own coinbase)"`
	GatewayID     string `long:"gateway-id" description:"suffix appended to the Stratum username and password"`
	Algorithm     string `long:"algo" short:"a" description:"proof-of-work algorithm: sha256d or scrypt[:N]" default:"sha256d"`
	Threads       int    `long:"threads" short:"t" description:"number of miner worker threads" default:"1"`
	Retries       int    `long:"retries" short:"r" description:"number of times to retry a failed request before giving up (-1 retries forever)" default:"-1"`
	FailPause     int    `long:"retry-pause" description:"seconds to pause between retries" default:"30"`
	ScanTime      int    `long:"scantime" short:"s" description:"seconds of slot age after which a worker requests fresh work; values below 60 are raised to 60" default:"5"`
	Timeout       int    `long:"timeout" short:"T" description:"JSON-RPC socket timeout in seconds" default:"0"`
	CoinbaseSig   string `long:"coinbase-sig" description:"extra data to insert into the coinbase scriptSig"`
	Proxy         string `long:"proxy" short:"x" description:"proxy URL; stored in the configuration, no connection is routed through it"`
	Cert          string `long:"cert" description:"path to a PEM certificate; stored in the configuration, not loaded for TLS connections"`
	AllowGetWork  bool   `long:"allow-getwork" description:"allow fallback to the legacy getwork protocol" default:"true"`
	NoGetWork     bool   `long:"no-getwork" description:"disable getwork support"`
	SubmitOld     bool   `long:"submit-stale" description:"submit shares even for a stale block (long-poll only)"`
	Benchmark     bool   `long:"benchmark" description:"run in offline benchmark mode: synthesize fixed work, skip long-poll and Stratum"`
	Quiet         bool   `long:"quiet" short:"q" description:"log only warnings and errors"`
	Debug         bool   `long:"debug" short:"D" description:"enable debug-level logging"`
	ProtocolDump  bool   `long:"protocol-dump" short:"P" description:"enable debug-level logging, as --debug does; JSON-RPC and Stratum traffic itself is not logged"`
}

// Config is the resolved, validated configuration every task is built
// from.
type Config struct {
	Protocol Protocol
	RawURL   string
	// DialAddr is URL with the stratum+tcp(s):// scheme stripped, ready for
	// net.Dial. Empty for GBT/HTTP pools.
	DialAddr string

	User     string
	Password string

	PayoutAddress string
	GatewayID     string

	Algorithm algo.Algorithm

	Threads   int
	Retries   int
	FailPause time.Duration
	ScanTime  time.Duration
	Timeout   time.Duration

	CoinbaseSig string
	Proxy       string
	CertFile    string

	AllowGetWork bool
	SubmitOld    bool
	Benchmark    bool

	Quiet        bool
	Debug        bool
	ProtocolDump bool
}

// ErrFatalConfig wraps every configuration error the start-up path can
// raise; per spec.md §7, a fatal-config error means no threads are
// created.
var ErrFatalConfig = errors.New("config: invalid configuration")

// Parse parses argv with go-flags and resolves the result into a Config.
// On a flags parse error (including --help), it returns the go-flags
// error unwrapped, matching the library's own exit-code conventions.
func Parse(argv []string) (*Config, error) {
	var opts Options
	fp := flags.NewParser(&opts, flags.Default)
	if _, err := fp.ParseArgs(argv); err != nil {
		return nil, err
	}
	return Resolve(&opts)
}

// Resolve validates and converts a parsed Options into a Config.
func Resolve(opts *Options) (*Config, error) {
	cfg := &Config{
		RawURL:        opts.URL,
		PayoutAddress: opts.PayoutAddress,
		GatewayID:     opts.GatewayID,
		Threads:       opts.Threads,
		Retries:       opts.Retries,
		FailPause:     time.Duration(opts.FailPause) * time.Second,
		ScanTime:      time.Duration(opts.ScanTime) * time.Second,
		Timeout:       time.Duration(opts.Timeout) * time.Second,
		CoinbaseSig:   opts.CoinbaseSig,
		Proxy:         opts.Proxy,
		CertFile:      opts.Cert,
		AllowGetWork:  opts.AllowGetWork && !opts.NoGetWork,
		SubmitOld:     opts.SubmitOld,
		Benchmark:     opts.Benchmark,
		Quiet:         opts.Quiet,
		Debug:         opts.Debug,
		ProtocolDump:  opts.ProtocolDump,
	}

	if cfg.Threads < 1 {
		cfg.Threads = 1
	}

	algorithm, err := algo.ParseAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFatalConfig, err)
	}
	cfg.Algorithm = algorithm

	if opts.UserPass != "" {
		user, pass, ok := strings.Cut(opts.UserPass, ":")
		if !ok {
			return nil, fmt.Errorf("%w: -O/--userpass must be user:password", ErrFatalConfig)
		}
		cfg.User, cfg.Password = user, pass
	}
	if cfg.GatewayID != "" {
		cfg.User = cfg.User + "." + cfg.GatewayID
		cfg.Password = cfg.Password + "." + cfg.GatewayID
	}

	proto, dialAddr, err := resolveScheme(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFatalConfig, err)
	}
	cfg.Protocol = proto
	cfg.DialAddr = dialAddr

	// -coinbase-addr is not required up front for a GBT/getwork pool: a
	// template carrying its own "coinbasetxn" needs no payout address at
	// all, and one that doesn't is only a problem once that's known at
	// request time. Per spec.md §7, the policy error this produces is
	// handled at runtime by internal/rpc, which falls back to getwork (or
	// fails fatally) rather than refusing to start.

	return cfg, nil
}

// resolveScheme implements spec.md §6's pool URL scheme table: a
// "stratum+" prefix selects Stratum mode; everything else is treated as a
// plain JSON-RPC (GBT/getwork) HTTP endpoint.
func resolveScheme(raw string) (Protocol, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, "", fmt.Errorf("parsing pool URL: %w", err)
	}

	switch u.Scheme {
	case "stratum+tcp", "stratum+tcps":
		if u.Host == "" {
			return 0, "", errors.New("stratum URL is missing host:port")
		}
		return ProtocolStratum, u.Host, nil
	case "http", "https":
		return ProtocolGBT, "", nil
	default:
		return 0, "", fmt.Errorf("unsupported pool URL scheme %q", u.Scheme)
	}
}
