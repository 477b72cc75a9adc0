package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/logging"

	"github.com/camsync/camsync/pkg/errcode"
)

// Channel is the ordered request/response link to one worker. Commands are
// executed in the order Do enqueues them. Responses are matched to callers
// by correlation ID; a response whose caller has given up is logged and
// dropped.
type Channel struct {
	inbox  chan<- Command
	routed chan struct{}
	log    logging.LeveledLogger

	commandTimeout time.Duration
	stopTimeout    time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]chan Response
}

func newChannel(inbox chan<- Command, outbox <-chan Response, exited <-chan struct{}, cfg Config, log logging.LeveledLogger) *Channel {
	c := &Channel{
		inbox:          inbox,
		routed:         make(chan struct{}),
		log:            log,
		commandTimeout: cfg.CommandTimeout,
		stopTimeout:    cfg.StopTimeout,
		pending:        make(map[uuid.UUID]chan Response),
	}
	go c.route(outbox, exited)
	return c
}

// route forwards responses until the worker exits, then delivers whatever
// the worker sent last and closes routed.
func (c *Channel) route(outbox <-chan Response, exited <-chan struct{}) {
	defer close(c.routed)

	for {
		select {
		case resp := <-outbox:
			c.deliver(resp)
		case <-exited:
			for {
				select {
				case resp := <-outbox:
					c.deliver(resp)
				default:
					return
				}
			}
		}
	}
}

func (c *Channel) deliver(resp Response) {
	c.mu.Lock()
	reply, ok := c.pending[resp.ID]
	delete(c.pending, resp.ID)
	c.mu.Unlock()

	if !ok {
		c.log.Warnf("dropping late response %s (err: %v)", resp.ID, resp.Err)
		return
	}
	reply <- resp
}

func (c *Channel) forget(id uuid.UUID) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Timeout returns the bounded wait applied to verb.
func (c *Channel) Timeout(verb Verb) time.Duration {
	switch verb {
	case VerbStop, VerbRelease, VerbDisarm:
		return c.stopTimeout
	}
	return c.commandTimeout
}

// Do sends cmd and waits for its response. The returned error is the
// response error, an ipc_timeout error when the wait expires, or a state
// error once the worker has exited.
func (c *Channel) Do(ctx context.Context, cmd Command) (Response, error) {
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}
	op := string(cmd.Verb)

	select {
	case <-c.routed:
		return Response{ID: cmd.ID}, errcode.New(errcode.State, op, "worker released")
	default:
	}

	reply := make(chan Response, 1)
	c.mu.Lock()
	c.pending[cmd.ID] = reply
	c.mu.Unlock()

	timeout := c.Timeout(cmd.Verb)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	expired := func() (Response, error) {
		c.forget(cmd.ID)
		return Response{ID: cmd.ID}, errcode.New(errcode.IPCTimeout, op, "no response within %s", timeout)
	}
	cancelled := func() (Response, error) {
		c.forget(cmd.ID)
		return Response{ID: cmd.ID}, errcode.Wrap(errcode.IPCTimeout, op, ctx.Err())
	}

	select {
	case c.inbox <- cmd:
	case <-c.routed:
		c.forget(cmd.ID)
		return Response{ID: cmd.ID}, errcode.New(errcode.State, op, "worker released")
	case <-timer.C:
		return expired()
	case <-ctx.Done():
		return cancelled()
	}

	select {
	case resp := <-reply:
		return resp, resp.Err
	case <-c.routed:
		select {
		case resp := <-reply:
			return resp, resp.Err
		default:
		}
		c.forget(cmd.ID)
		return Response{ID: cmd.ID}, errcode.New(errcode.State, op, "worker released")
	case <-timer.C:
		return expired()
	case <-ctx.Done():
		return cancelled()
	}
}
