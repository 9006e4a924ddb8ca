package stratum

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/boomstarternetwork/gominer/internal/algo"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// idleTimeout is the socket-idle threshold after which a Connected session
// is considered dead, per spec.md §4.6/§5.
const idleTimeout = 120 * time.Second

// Session maintains one persistent Stratum connection: it runs the state
// machine of spec.md §4.6, keeps the shared Context current, and publishes
// new work into the shared slot, asserting every worker's restart flag on
// each clean job.
type Session struct {
	url       string
	login     string
	password  string
	algorithm algo.Algorithm

	ctx     *Context
	slot    *work.SharedSlot
	restart *work.RestartFlags

	mu        sync.Mutex
	state     State
	conn      net.Conn
	messageID uint64
	pending   map[uint64]Request
	lastJobID string
	haveWork  bool

	// SubmitResult, when set, is invoked with the outcome of each
	// mining.submit response for share accounting.
	SubmitResult func(accepted bool, errMsg string)
}

// Params configures a new Session.
type Params struct {
	URL       string
	Login     string
	Password  string
	Algorithm algo.Algorithm
	Slot      *work.SharedSlot
	Restart   *work.RestartFlags
}

// NewSession constructs a Session and its Context; call Serve to run it.
func NewSession(p Params) *Session {
	return &Session{
		url:       p.URL,
		login:     p.Login,
		password:  p.Password,
		algorithm: p.Algorithm,
		ctx:       NewContext(p.Algorithm),
		slot:      p.Slot,
		restart:   p.Restart,
		pending:   map[uint64]Request{},
	}
}

// State reports the session's current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Serve connects, subscribes, authorizes, and then serves incoming lines
// until ctx is cancelled or the connection fails. It does not retry;
// callers implement the opt_retries/opt_fail_pause loop of spec.md §4.6.
func (s *Session) Serve(ctx context.Context) error {
	s.setState(StateConnecting)

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", s.url)
	if err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("stratum: dial: %w", err)
	}
	s.conn = conn
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	s.setState(StateSubscribing)
	if err := s.call(MethodSubscribe, "gominer/1.0"); err != nil {
		return fmt.Errorf("stratum: subscribe: %w", err)
	}

	return s.readLoop()
}

func (s *Session) call(method string, params ...interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return errors.New("stratum: not connected")
	}

	req := Request{ID: s.messageID, Method: method, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		return err
	}
	line = append(line, '\n')

	s.conn.SetWriteDeadline(time.Now().Add(idleTimeout))
	if _, err := s.conn.Write(line); err != nil {
		return err
	}

	s.pending[s.messageID] = req
	s.messageID++
	return nil
}

func (s *Session) takePending(id uint64) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.pending[id]
	if ok {
		delete(s.pending, id)
	}
	return req, ok
}

func (s *Session) readLoop() error {
	r := bufio.NewReader(s.conn)
	for {
		s.conn.SetReadDeadline(time.Now().Add(idleTimeout))

		line, err := r.ReadBytes('\n')
		if err != nil {
			s.setState(StateDisconnected)
			return fmt.Errorf("stratum: read: %w", err)
		}
		if err := s.handleLine(line); err != nil {
			logrus.WithError(err).Warn("stratum: error handling line")
		}
	}
}

func (s *Session) handleLine(line []byte) error {
	var probe struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(line, &probe); err == nil && probe.Method != "" {
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			return err
		}
		return s.handleServerRequest(req)
	}

	var res Response
	if err := json.Unmarshal(line, &res); err != nil {
		return fmt.Errorf("stratum: line is neither request nor response: %w", err)
	}
	req, ok := s.takePending(res.ID)
	if !ok {
		return fmt.Errorf("stratum: response to unknown id %d", res.ID)
	}
	return s.handleResponse(req, res)
}

func (s *Session) handleResponse(req Request, res Response) error {
	switch req.Method {
	case MethodSubscribe:
		if res.Error != nil {
			return errors.New("stratum: subscribe failed: " + res.Error.Message)
		}
		var result []json.RawMessage
		if err := json.Unmarshal(res.Result, &result); err != nil || len(result) != 3 {
			return errors.New("stratum: malformed subscribe result")
		}
		var extraNonce1 string
		if err := json.Unmarshal(result[1], &extraNonce1); err != nil {
			return errors.New("stratum: malformed extraNonce1")
		}
		var extraNonce2Size int
		if err := json.Unmarshal(result[2], &extraNonce2Size); err != nil {
			return errors.New("stratum: malformed extraNonce2Size")
		}
		if err := s.ctx.SetSubscription(extraNonce1, extraNonce2Size); err != nil {
			return err
		}

		s.setState(StateAuthorizing)
		return s.call(MethodAuthorize, s.login, s.password)

	case MethodAuthorize:
		if res.Error != nil {
			return errors.New("stratum: authorize failed: " + res.Error.Message)
		}
		var ok bool
		json.Unmarshal(res.Result, &ok)
		if !ok {
			return errors.New("stratum: authorize rejected")
		}
		s.setState(StateConnected)

	case MethodSubmit:
		accepted := res.Error == nil
		msg := ""
		if res.Error != nil {
			msg = res.Error.Message
			if res.Error.Code == errCodeJobNotFound {
				s.republish()
			}
		}
		if s.SubmitResult != nil {
			s.SubmitResult(accepted, msg)
		}
	}
	return nil
}

func (s *Session) handleServerRequest(req Request) error {
	switch req.Method {
	case MethodSetDifficulty:
		if len(req.Params) != 1 {
			return errors.New("stratum: malformed set_difficulty")
		}
		diff, ok := req.Params[0].(float64)
		if !ok {
			return errors.New("stratum: malformed difficulty")
		}
		s.ctx.SetDifficulty(diff)

	case MethodNotify:
		if len(req.Params) != 9 {
			return fmt.Errorf("stratum: expected 9 notify params, got %d", len(req.Params))
		}
		p, clean, err := parseNotifyParams(req.Params)
		if err != nil {
			return err
		}
		s.ctx.SetNotify(p)

		// Per the original's stratum_thread loop: regenerate work whenever
		// the job id changes (or no work has been generated yet), but only
		// force workers to abandon their in-flight scan when the server
		// marked the job clean.
		s.mu.Lock()
		isNewJob := !s.haveWork || p.JobID != s.lastJobID
		if isNewJob {
			s.lastJobID = p.JobID
			s.haveWork = true
		}
		s.mu.Unlock()

		if isNewJob {
			s.publish(clean)
		}
	}
	return nil
}

func parseNotifyParams(params []interface{}) (NotifyParams, bool, error) {
	var p NotifyParams
	str := func(i int) (string, error) {
		v, ok := params[i].(string)
		if !ok {
			return "", fmt.Errorf("stratum: notify param %d is not a string", i)
		}
		return v, nil
	}

	var err error
	if p.JobID, err = str(0); err != nil {
		return p, false, err
	}
	if p.PrevHash, err = str(1); err != nil {
		return p, false, err
	}
	if p.Coinb1, err = str(2); err != nil {
		return p, false, err
	}
	if p.Coinb2, err = str(3); err != nil {
		return p, false, err
	}
	branches, ok := params[4].([]interface{})
	if !ok {
		return p, false, errors.New("stratum: notify merkle branches is not an array")
	}
	for _, b := range branches {
		bs, ok := b.(string)
		if !ok {
			return p, false, errors.New("stratum: merkle branch is not a string")
		}
		p.MerkleBranches = append(p.MerkleBranches, bs)
	}
	if p.Version, err = str(5); err != nil {
		return p, false, err
	}
	if p.NBits, err = str(6); err != nil {
		return p, false, err
	}
	if p.NTime, err = str(7); err != nil {
		return p, false, err
	}
	clean, ok := params[8].(bool)
	if !ok {
		return p, false, errors.New("stratum: notify clean flag is not a bool")
	}
	return p, clean, nil
}

// publish generates fresh work from the current job and installs it into
// the shared slot. Restart flags are only asserted when clean is true
// (spec.md §4.6's "restart workers if clean"); otherwise workers pick up
// the new job on their next outer iteration without abandoning an
// in-flight scan. The flags are raised after slot.Set has released the slot
// lock.
func (s *Session) publish(clean bool) {
	w, err := s.ctx.GenerateWork()
	if err != nil {
		logrus.WithError(err).Warn("stratum: generating work")
		return
	}
	s.slot.Set(w, time.Now())
	if clean && s.restart != nil {
		s.restart.AssertAll()
	}
}

// republish regenerates work for the current job without waiting for a new
// mining.notify, used when the pool reports "job not found" on submit.
func (s *Session) republish() {
	s.publish(true)
}

// Submit sends a mining.submit for the given solved Work.
func (s *Session) Submit(w *work.Work) error {
	ntimeHex := hex.EncodeToString(leBytes(w.Data[17]))
	nonceHex := hex.EncodeToString(leBytes(w.Data[19]))
	return s.call(MethodSubmit, s.login, w.JobID, hex.EncodeToString(w.ExtraNonce2), ntimeHex, nonceHex)
}

func leBytes(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}
