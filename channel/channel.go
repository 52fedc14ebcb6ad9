package channel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/keyhole-db/keyhole/constants"
	"github.com/keyhole-db/keyhole/engine"
	"github.com/keyhole-db/keyhole/store"
	"github.com/keyhole-db/keyhole/types"
	"github.com/keyhole-db/keyhole/utils/logger"
)

// State is the channel lifecycle. aborted always returns to idle through a
// worker respawn (or, inline, a context-mismatch discard), never leaving a
// half-initialized worker behind.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
	StateAborted   State = "aborted"
)

// ErrQueryCancelled reports that a query's result was discarded because the
// query was superseded before it finished.
var ErrQueryCancelled = errors.New("query cancelled")

type response struct {
	generation int
	msg        types.Message
}

// Channel routes query requests to the executor, either on a long-lived
// background worker (default) or inline on the caller's goroutine when
// background execution is unavailable. It owns the worker lifecycle and
// exposes the single cancellation primitive.
//
// Cancellation is coarse by design: the underlying read cannot be aborted
// mid-flight, so cancelling terminates and respawns the worker (discarding
// the in-flight read and its eventual result), and inline mode simply bumps
// the generation so the late result is discarded as unsolicited.
type Channel struct {
	mu         sync.Mutex
	db         *store.Database
	state      State
	generation int
	inline     bool
	lossy      bool
	endpoint   *PipeEndpoint
	worker     *worker
	responses  chan response
	// abort unblocks the waiting RunQuery when the in-flight query is
	// cancelled; its response will never arrive once the worker is gone
	abort chan struct{}
}

type Option func(*Channel)

// WithInline forces the inline strategy, the fallback used when the host
// blocks worker creation.
func WithInline() Option {
	return func(c *Channel) { c.inline = true }
}

// WithLossyTransport makes the worker transport JSON-frame messages,
// activating the payload codec.
func WithLossyTransport() Option {
	return func(c *Channel) { c.lossy = true }
}

func New(db *store.Database, opts ...Option) *Channel {
	c := &Channel{
		db:        db,
		state:     StateIdle,
		responses: make(chan response, 4),
	}
	if viper.GetBool(constants.WorkerDisabled) {
		c.inline = true
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.inline {
		c.respawn()
	}
	return c
}

// respawn replaces the worker wholesale. Callers hold c.mu.
func (c *Channel) respawn() {
	if c.worker != nil {
		c.worker.terminate()
	}

	endpoint, w := spawnWorker(c.db, c.lossy)
	generation := c.generation
	deliver := func(msg types.Message) {
		c.deliver(generation, msg)
	}
	endpoint.OnMessageOfType(types.QueryResultMessage, deliver)
	endpoint.OnMessageOfType(types.QueryErrorMessage, deliver)

	c.endpoint = endpoint
	c.worker = w
}

func (c *Channel) deliver(generation int, msg types.Message) {
	c.mu.Lock()
	stale := generation != c.generation
	c.mu.Unlock()
	if stale {
		// late answer to a cancelled query, invisible by design
		logger.Debugf("discarding unsolicited %s from superseded query", msg.Type)
		return
	}

	select {
	case c.responses <- response{generation: generation, msg: msg}:
	default:
		logger.Debugf("dropping %s, no query waiting", msg.Type)
	}
}

// RunQuery executes one request. At most one query is in flight at a time by
// contract; issuing a new query while one runs is an error, the caller must
// Cancel first.
func (c *Channel) RunQuery(ctx context.Context, req types.QueryRequest) (*types.QueryResult, error) {
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		return nil, fmt.Errorf("a query is already in flight")
	}
	c.state = StateRunning
	generation := c.generation
	inline := c.inline
	if !inline {
		c.abort = make(chan struct{})
	}
	abort := c.abort
	endpoint := c.endpoint
	c.mu.Unlock()

	if inline {
		return c.runInline(ctx, req, generation)
	}
	return c.runOnWorker(ctx, req, generation, endpoint, abort)
}

// runInline executes on the caller's goroutine. No boundary is crossed, so
// results are never codec-framed and cancellation is only cooperative: a
// cancelled query's read finishes silently and its result is discarded on
// the generation mismatch.
func (c *Channel) runInline(ctx context.Context, req types.QueryRequest, generation int) (*types.QueryResult, error) {
	req.Encode = false
	result, err := engine.QueryData(ctx, c.db, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		logger.Debugf("discarding inline result from superseded query")
		return nil, ErrQueryCancelled
	}
	if err != nil {
		c.state = StateErrored
		return nil, err
	}
	c.state = StateCompleted
	return result, nil
}

func (c *Channel) runOnWorker(ctx context.Context, req types.QueryRequest, generation int, endpoint *PipeEndpoint, abort <-chan struct{}) (*types.QueryResult, error) {
	if endpoint.LossyBinary() {
		req.Encode = true
	}

	owner := req.Target()
	if err := endpoint.Post(types.Message{Type: types.QueryDataMessage, Target: owner, Params: &req}); err != nil {
		// transport failure: this query fails, subsequent ones run inline
		c.mu.Lock()
		c.inline = true
		c.state = StateErrored
		c.abort = nil
		c.mu.Unlock()
		logger.Warnf("worker transport failed, falling back to inline execution: %s", err)
		return nil, fmt.Errorf("worker unavailable: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.Cancel()
			return nil, ctx.Err()
		case <-abort:
			// the worker carrying our answer is gone
			return nil, ErrQueryCancelled
		case resp := <-c.responses:
			// ownership check: same generation and same target, or the
			// response belongs to a query this call never issued
			if resp.generation != generation || resp.msg.Target != owner {
				logger.Debugf("skipping response for %s, not the in-flight query", resp.msg.Target.ID())
				continue
			}
			return c.finish(resp.msg)
		}
	}
}

func (c *Channel) finish(msg types.Message) (*types.QueryResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abort = nil

	if msg.Type == types.QueryErrorMessage {
		c.state = StateErrored
		return nil, errors.New(msg.Error)
	}

	result := msg.Result
	if result.Encoded {
		result.Data = engine.Decode(result.Data)
		result.Encoded = false
	}
	c.state = StateCompleted
	return result, nil
}

// Cancel abandons whatever is in flight. Worker mode terminates and
// immediately respawns the worker; either mode bumps the generation so a
// late result is identified as unsolicited and discarded.
func (c *Channel) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.state = StateAborted
	if c.abort != nil {
		close(c.abort)
		c.abort = nil
	}
	if !c.inline {
		c.respawn()
	}
	c.state = StateIdle
}

func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Inline reports whether the channel has fallen back to inline execution.
func (c *Channel) Inline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inline
}

func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.worker != nil {
		c.worker.terminate()
		c.worker = nil
	}
}
