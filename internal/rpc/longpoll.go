package rpc

import (
	"context"
	"encoding/base64"

	"github.com/ybbus/jsonrpc"
)

// LongPoll issues a getblocktemplate call carrying longPollID and blocks
// until the server responds or ctx is cancelled, implementing spec.md
// §4.5's long-poll handshake. url is either the RPC URL itself or a
// pool-supplied longpolluri that may point at a different host; when it
// differs from the main endpoint a dedicated long-timeout client is used
// for that one call instead of reusing longPollRPC.
func (c *Client) LongPoll(ctx context.Context, url, longPollID string) (*Result, error) {
	params := map[string]interface{}{
		"capabilities":  []string{"coinbasetxn", "coinbasevalue", "longpoll", "workid"},
		"rules":         []string{"segwit"},
		"coinbase-addr": c.cfg.PayoutAddress,
	}
	if longPollID != "" {
		params["longpollid"] = longPollID
	}

	rpcClient := c.longPollRPC
	if url != "" && url != c.cfg.URL {
		rpcClient = jsonrpc.NewClientWithOpts(url, &jsonrpc.RPCClientOpts{
			CustomHeaders: map[string]string{
				"Authorization": "Basic " + base64.StdEncoding.EncodeToString(
					[]byte(c.cfg.User+":"+c.cfg.Password)),
			},
			HTTPClient: c.longPollHTTPClient(),
		})
	}

	type callResult struct {
		res *jsonrpc.RPCResponse
		err error
	}
	done := make(chan callResult, 1)
	go func() {
		res, err := rpcClient.Call("getblocktemplate", []interface{}{params})
		if err != nil {
			done <- callResult{nil, err}
			return
		}
		if res.Error != nil {
			done <- callResult{nil, res.Error}
			return
		}
		done <- callResult{res, nil}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		return c.decodeTemplateResponse(r.res)
	}
}
