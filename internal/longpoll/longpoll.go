// Package longpoll implements spec.md §4.5's long-poll task: once seeded
// with a URL, it blocks on getblocktemplate's longpoll idiom with an
// effectively-infinite timeout, and on every new template replaces the
// shared slot and wakes every worker.
package longpoll

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/boomstarternetwork/gominer/internal/rpc"
	"github.com/boomstarternetwork/gominer/internal/work"
)

// disableRetryPause is the sleep between a failed long-poll handshake and
// restarting it, per spec.md §4.5's "sleep, and restart from the URL
// handshake" failure path.
const disableRetryPause = 15 * time.Second

// Task runs the long-poll loop described in spec.md §4.5.
type Task struct {
	client  *rpc.Client
	slot    *work.SharedSlot
	restart *work.RestartFlags
	logger  *logrus.Entry

	urls chan string
}

// NewTask returns a Task bound to client for the actual RPC call, and to
// slot/restart for publishing new work. Seed pushes the bootstrap URL
// asynchronously once the block assembler has decoded a template carrying
// a longpollid (spec.md §4.1 step 9).
func NewTask(client *rpc.Client, slot *work.SharedSlot, restart *work.RestartFlags) *Task {
	return &Task{
		client:  client,
		slot:    slot,
		restart: restart,
		logger:  logrus.WithField("component", "longpoll"),
		urls:    make(chan string, 1),
	}
}

// Seed enqueues the long-poll URL to bootstrap from. The queue holds one
// URL: Serve takes the first seed to start, and reads the queue again only
// after a long-poll failure; a seed that arrives while the queue is full is
// dropped. Between failures Serve re-derives the next longpollid from each
// response it receives.
func (t *Task) Seed(url string) {
	select {
	case t.urls <- url:
	default:
	}
}

// Serve runs until ctx is cancelled. It waits for a seed URL, then loops:
// long-poll, install new work, repeat with whatever longpollid the new
// template carries.
func (t *Task) Serve(ctx context.Context) {
	var url string
	select {
	case url = <-t.urls:
	case <-ctx.Done():
		return
	}

	longPollID := ""
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := t.client.LongPoll(ctx, url, longPollID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if isTimeout(err) {
				// The server asked us to re-poll; just restart workers so
				// they pick up fresh scantime bookkeeping.
				t.restart.AssertAll()
				continue
			}
			t.logger.WithError(err).Warn("longpoll: disabling after failure")
			select {
			case <-time.After(disableRetryPause):
			case <-ctx.Done():
				return
			}
			// Re-wait for a fresh seed (the work-I/O task will re-seed on
			// its next successful getblocktemplate call).
			select {
			case url = <-t.urls:
			case <-ctx.Done():
				return
			}
			longPollID = ""
			continue
		}

		t.slot.Set(res.Work, time.Now())
		t.restart.AssertAll()
		longPollID = res.LongPollID
		if res.LongPollURI != "" {
			url = res.LongPollURI
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}
