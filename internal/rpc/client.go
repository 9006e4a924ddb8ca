// Package rpc is the Work I/O task of spec.md §4.4: it owns the HTTP
// JSON-RPC client, serializes getblocktemplate/getwork/submitblock calls,
// implements the GBT→GetWork protocol fallback, and tracks accepted/rejected
// share counters.
package rpc

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"
)

// longPollHTTPTimeout stands in for the "effectively-infinite timeout"
// spec.md §4.5 calls for: long enough that a real pool's longpoll hold
// always resolves first, short enough to eventually recover from a
// connection that silently died.
const longPollHTTPTimeout = 90 * time.Minute

// Mode is the active upstream protocol, the "tagged variant" of spec.md §9.
type Mode int

const (
	ModeGBT Mode = iota
	ModeGetWork
)

func (m Mode) String() string {
	if m == ModeGetWork {
		return "getwork"
	}
	return "getblocktemplate"
}

// Config carries everything the Work I/O task needs that isn't already
// baked into a Template: RPC endpoint, credentials, retry policy, and the
// block-assembler policy inputs.
type Config struct {
	URL      string
	User     string
	Password string
	Timeout  time.Duration

	PayoutAddress string
	CoinbaseSig   string

	AllowGetWork bool
	Retries      int
	FailPause    time.Duration
}

// Client is the Work I/O task's single JSON-RPC connection, grounded in the
// teacher's main.go rpc() helper: a ybbus/jsonrpc client configured with
// HTTP basic auth.
type Client struct {
	cfg         Config
	rpc         jsonrpc.RPCClient
	longPollRPC jsonrpc.RPCClient
	mode        Mode
	Stats       *Stats
	logger      *logrus.Entry
}

// NewClient returns a Client in GBT mode; it falls back to GetWork on the
// first 404/method-not-found response, per spec.md §7.
func NewClient(cfg Config) *Client {
	authHeader := map[string]string{
		"Authorization": "Basic " + base64.StdEncoding.EncodeToString(
			[]byte(cfg.User+":"+cfg.Password)),
	}
	return &Client{
		cfg: cfg,
		rpc: jsonrpc.NewClientWithOpts(cfg.URL, &jsonrpc.RPCClientOpts{
			CustomHeaders: authHeader,
			HTTPClient:    &http.Client{Timeout: cfg.Timeout},
		}),
		// longPollRPC uses an effectively-infinite HTTP timeout; long-poll
		// blocks on the server until the chain tip advances or it pings
		// back with an operation-timed-out error, per spec.md §4.5.
		longPollRPC: jsonrpc.NewClientWithOpts(cfg.URL, &jsonrpc.RPCClientOpts{
			CustomHeaders: authHeader,
			HTTPClient:    &http.Client{Timeout: longPollHTTPTimeout},
		}),
		mode:   ModeGBT,
		Stats:  &Stats{},
		logger: logrus.WithField("component", "rpc"),
	}
}

// Mode reports the protocol currently in use.
func (c *Client) Mode() Mode {
	return c.mode
}

// longPollHTTPClient returns a freshly configured long-timeout HTTP client,
// used when the long-poll task is redirected to a longpolluri on a
// different host than the main RPC endpoint.
func (c *Client) longPollHTTPClient() *http.Client {
	return &http.Client{Timeout: longPollHTTPTimeout}
}

func (c *Client) call(method string, params ...interface{}) (*jsonrpc.RPCResponse, error) {
	res, err := c.rpc.Call(method, params...)
	if err != nil {
		return nil, err
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return res, nil
}

// errNoUsableProtocol is returned when GBT fails with a fallback signal but
// GetWork is not allowed, per S5.
var errNoUsableProtocol = errors.New("rpc: no usable protocol")

// ErrFatalNoPayoutAddress is spec.md §7's fatal-config outcome of the GBT
// "no payout address" policy error when GetWork fallback is unavailable.
// Unlike a transport failure, retrying can never fix a missing payout
// address, so retry gives up on it immediately instead of burning through
// the configured retry budget.
var ErrFatalNoPayoutAddress = errors.New("rpc: no payout address configured for getblocktemplate and getwork fallback is disabled")

// isHTTPNotFound reports whether err signals an HTTP 404 / method-not-found
// from the upstream, the trigger for falling back from GBT to GetWork.
func isHTTPNotFound(err error) bool {
	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		// Standard JSON-RPC "method not found".
		return rpcErr.Code == -32601
	}
	msg := err.Error()
	return strings.Contains(msg, "404") || strings.Contains(msg, "Not Found")
}

// retry runs fn up to cfg.Retries+1 times, sleeping cfg.FailPause between
// attempts, per spec.md §7's Work I/O transport-error policy. A negative
// Retries -- the documented "-1 retries forever" default -- retries fn
// indefinitely, matching how cmd/gominer's Stratum reconnect loop treats
// the same option.
func (c *Client) retry(fn func() error) error {
	if c.cfg.Retries < 0 {
		for attempt := 1; ; attempt++ {
			err := fn()
			if err == nil || errors.Is(err, ErrFatalNoPayoutAddress) {
				return err
			}
			c.logger.WithError(err).WithField("attempt", attempt).Warn("rpc: retrying")
			time.Sleep(c.cfg.FailPause)
		}
	}

	attempts := c.cfg.Retries + 1
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || errors.Is(err, ErrFatalNoPayoutAddress) {
			return err
		}
		if i < attempts-1 {
			c.logger.WithError(err).WithField("attempt", i+1).Warn("rpc: retrying")
			time.Sleep(c.cfg.FailPause)
		}
	}
	return err
}
