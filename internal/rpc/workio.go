package rpc

import (
	"errors"
	"fmt"

	"github.com/ybbus/jsonrpc"

	"github.com/boomstarternetwork/gominer/internal/blockassembler"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// Result is what GetUpstreamWork hands back to a requester: a ready Work
// plus whatever the submission path will need later.
type Result struct {
	Work        *work.Work
	Txs         string
	LongPollURI string
	LongPollID  string
}

// GetUpstreamWork implements spec.md §4.4's GetWork command: it calls
// getblocktemplate, falling back to plain getwork on a 404/method-not-found
// response when c.cfg.AllowGetWork is set, retrying each attempt per the
// configured retry policy.
func (c *Client) GetUpstreamWork(longPollID string) (*Result, error) {
	var result *Result
	err := c.retry(func() error {
		r, err := c.getUpstreamWorkOnce(longPollID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	return result, err
}

func (c *Client) getUpstreamWorkOnce(longPollID string) (*Result, error) {
	if c.mode == ModeGBT {
		r, err := c.requestTemplate(longPollID)
		if err == nil {
			return r, nil
		}

		switch {
		case errors.Is(err, blockassembler.ErrNoPayoutAddress):
			// spec.md §7's GBT policy-error path: a template with no
			// built-in coinbase needs an operator payout address we don't
			// have. Disable GBT for the rest of the process if GetWork is
			// allowed; otherwise this is fatal.
			if !c.cfg.AllowGetWork {
				return nil, ErrFatalNoPayoutAddress
			}
			c.logger.Warn("rpc: no payout address configured, disabling getblocktemplate in favor of getwork")
			c.mode = ModeGetWork

		case isHTTPNotFound(err):
			if !c.cfg.AllowGetWork {
				return nil, errNoUsableProtocol
			}
			c.logger.Warn("rpc: getblocktemplate unsupported, falling back to getwork")
			c.mode = ModeGetWork

		default:
			return nil, fmt.Errorf("rpc: getblocktemplate: %w", err)
		}
	}
	return c.requestGetWork()
}

func (c *Client) requestTemplate(longPollID string) (*Result, error) {
	params := map[string]interface{}{
		"capabilities": []string{"coinbasetxn", "coinbasevalue", "longpoll", "workid"},
		"rules":        []string{"segwit"},
		"coinbase-addr": c.cfg.PayoutAddress,
	}
	if longPollID != "" {
		params["longpollid"] = longPollID
	}

	res, err := c.call("getblocktemplate", []interface{}{params})
	if err != nil {
		return nil, err
	}
	return c.decodeTemplateResponse(res)
}

// decodeTemplateResponse parses a getblocktemplate RPCResponse and runs it
// through the block assembler. Shared by the normal poll path and the
// long-poll task, which issues the same call with a longer timeout.
func (c *Client) decodeTemplateResponse(res *jsonrpc.RPCResponse) (*Result, error) {
	var tpl blockassembler.Template
	if err := res.GetObject(&tpl); err != nil {
		return nil, fmt.Errorf("rpc: decoding template: %w", err)
	}

	asmRes, err := blockassembler.Assemble(&tpl, blockassembler.Config{
		PayoutAddress: c.cfg.PayoutAddress,
		CoinbaseSig:   c.cfg.CoinbaseSig,
	})
	if err != nil {
		return nil, err
	}

	return &Result{
		Work:        asmRes.Work,
		Txs:         asmRes.Txs,
		LongPollURI: asmRes.LongPollURI,
		LongPollID:  asmRes.LongPollID,
	}, nil
}

func (c *Client) requestGetWork() (*Result, error) {
	res, err := c.call("getwork")
	if err != nil {
		return nil, err
	}
	var gw getworkResult
	if err := res.GetObject(&gw); err != nil {
		return nil, fmt.Errorf("rpc: decoding getwork: %w", err)
	}
	w, err := decodeGetWork(gw)
	if err != nil {
		return nil, err
	}
	return &Result{Work: w}, nil
}

// SubmitUpstreamWork implements spec.md §4.4's SubmitWork command and the
// stale-share gate: before submitting, it compares the solution's prev-hash
// (words 1..8) against currentSlot. If they differ and submitOld is false,
// the submission is silently dropped (S3).
func (c *Client) SubmitUpstreamWork(solved *work.Work, txs string, currentSlot *work.Work, submitOld bool) error {
	if !submitOld && !solved.PrevHashEqual(currentSlot) {
		c.logger.Debug("rpc: dropping stale share")
		return nil
	}

	return c.retry(func() error {
		accepted, reason, err := c.submitOnce(solved, txs)
		if err != nil {
			return err
		}
		if accepted {
			c.Stats.RecordAccepted()
		} else {
			c.Stats.RecordRejected(reason)
		}
		return nil
	})
}

func (c *Client) submitOnce(solved *work.Work, txs string) (bool, string, error) {
	if c.mode == ModeGetWork {
		res, err := c.call("getwork", encodeGetWorkSubmission(solved))
		if err != nil {
			return false, err.Error(), nil
		}
		var accepted bool
		if err := res.GetObject(&accepted); err != nil {
			return false, "", fmt.Errorf("rpc: decoding getwork submit result: %w", err)
		}
		return accepted, "", nil
	}

	header := rewriteHeaderBigEndian(solved)
	payload := header + txs

	var params []interface{}
	if solved.WorkID != "" {
		params = []interface{}{payload, map[string]string{"workid": solved.WorkID}}
	} else {
		params = []interface{}{payload}
	}

	res, err := c.call("submitblock", params...)
	if err != nil {
		return false, err.Error(), nil
	}
	if res.Result == nil {
		return true, "", nil
	}
	reason, _ := res.GetString()
	return false, reason, nil
}
