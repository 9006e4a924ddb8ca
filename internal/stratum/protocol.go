// Package stratum maintains a persistent Stratum mining session: it tracks
// connection state, turns mining.notify parameters into work.Work via the
// job generator (spec.md §4.2), and routes submissions and difficulty
// updates.
package stratum

import "encoding/json"

// Request is an outbound or inbound Stratum line-JSON message.
type Request struct {
	ID     uint64        `json:"id"`
	Method string        `json:"method"`
	Params []interface{} `json:"params"`
}

// Response is a reply to a previously issued Request.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is a Stratum JSON-RPC error object: [code, message, traceback].
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// UnmarshalJSON decodes the [code, message, traceback] array form, and
// falls back to an object with "code" and "message" fields.
func (e *RPCError) UnmarshalJSON(b []byte) error {
	var arr []interface{}
	if err := json.Unmarshal(b, &arr); err == nil {
		if len(arr) > 0 {
			if code, ok := arr[0].(float64); ok {
				e.Code = int(code)
			}
		}
		if len(arr) > 1 {
			e.Message, _ = arr[1].(string)
		}
		return nil
	}
	type plain RPCError
	return json.Unmarshal(b, (*plain)(e))
}

const (
	MethodSubscribe     = "mining.subscribe"
	MethodAuthorize     = "mining.authorize"
	MethodNotify        = "mining.notify"
	MethodSetDifficulty = "mining.set_difficulty"
	MethodSubmit        = "mining.submit"

	// errCodeJobNotFound is the conventional Stratum error code for "stale
	// job id"; the session answers it by regenerating work for the latest
	// job and restarting every worker.
	errCodeJobNotFound = 21
)

// State is a connection's position in the Stratum handshake, per spec.md
// §4.6.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribing
	StateAuthorizing
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateAuthorizing:
		return "authorizing"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}
