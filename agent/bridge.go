package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/logging"
)

const (
	// InvokeTimeout bounds a single engine invocation. It is enforced
	// inside the worker via context cancellation.
	InvokeTimeout = 120 * time.Second

	// SubmitTimeout bounds how long a caller blocks on the bridge. It is
	// deliberately larger than InvokeTimeout so it only fires when the
	// inner timeout failed to bound the invocation.
	SubmitTimeout = 130 * time.Second

	// DrainTimeout bounds how long Stop waits for in-flight turns before
	// giving up and letting teardown proceed.
	DrainTimeout = 5 * time.Second
)

// Invoker is the engine operation the bridge schedules.
type Invoker interface {
	Invoke(ctx context.Context, messages []core.Message) (core.Trace, error)
}

// BridgeOptions tune bridge timeouts, mainly for tests.
type BridgeOptions struct {
	Logger        logging.Logger
	InvokeTimeout time.Duration
	SubmitTimeout time.Duration
	DrainTimeout  time.Duration
}

type taskResult struct {
	trace core.Trace
	err   error
}

type task struct {
	ctx      context.Context
	messages []core.Message
	reply    chan taskResult
}

// Bridge hands conversation turns from arbitrary caller goroutines to a
// single dispatcher goroutine that owns access to the engine. Callers block
// on a one-shot reply channel with an outer timeout; the dispatcher runs
// each turn in its own goroutine under an inner timeout so turns interleave
// rather than queue behind one another.
type Bridge struct {
	invoker Invoker
	logger  logging.Logger

	invokeTimeout time.Duration
	submitTimeout time.Duration
	drainTimeout  time.Duration

	tasks    chan *task
	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	inflight sync.WaitGroup
}

// NewBridge creates a bridge bound to an engine. Start must be called
// before Submit succeeds.
func NewBridge(invoker Invoker, optFns ...func(o *BridgeOptions)) *Bridge {
	opts := BridgeOptions{
		InvokeTimeout: InvokeTimeout,
		SubmitTimeout: SubmitTimeout,
		DrainTimeout:  DrainTimeout,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bridge{
		invoker:       invoker,
		logger:        logging.OrNoOp(opts.Logger),
		invokeTimeout: opts.InvokeTimeout,
		submitTimeout: opts.SubmitTimeout,
		drainTimeout:  opts.DrainTimeout,
		tasks:         make(chan *task),
		stop:          make(chan struct{}),
	}
}

// Start launches the dispatcher goroutine.
func (b *Bridge) Start() {
	if !b.running.CompareAndSwap(false, true) {
		return
	}
	go b.dispatch()
}

func (b *Bridge) dispatch() {
	for {
		select {
		case <-b.stop:
			return
		case t := <-b.tasks:
			b.inflight.Add(1)
			go b.run(t)
		}
	}
}

// run executes one turn under the inner timeout. The reply channel is
// buffered, so delivery never blocks even when the caller already gave up.
func (b *Bridge) run(t *task) {
	defer b.inflight.Done()

	ctx, cancel := context.WithTimeout(t.ctx, b.invokeTimeout)
	defer cancel()

	trace, err := b.invoker.Invoke(ctx, t.messages)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = core.NewTimeoutError("agent invocation timed out", err)
	}
	t.reply <- taskResult{trace: trace, err: err}
}

// Submit hands a conversation turn to the dispatcher and blocks until the
// result arrives or the outer timeout elapses. It fails fast with an agent
// error when the bridge is not running. Safe for concurrent use.
func (b *Bridge) Submit(ctx context.Context, messages []core.Message) (core.Trace, error) {
	if !b.running.Load() {
		return nil, core.NewAgentError("bridge is not running", nil)
	}

	t := &task{
		ctx:      ctx,
		messages: messages,
		reply:    make(chan taskResult, 1),
	}

	timer := time.NewTimer(b.submitTimeout)
	defer timer.Stop()

	select {
	case b.tasks <- t:
	case <-b.stop:
		return nil, core.NewAgentError("bridge is shutting down", nil)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, core.NewTimeoutError("request timed out before it could be scheduled", nil)
	}

	select {
	case res := <-t.reply:
		return res.trace, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		b.logger.Error("outer submit timeout elapsed, task left running")
		return nil, core.NewTimeoutError("agent invocation timed out", nil)
	}
}

// Stop refuses new submissions, waits up to the drain timeout for in-flight
// turns, then returns. Idempotent.
func (b *Bridge) Stop() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}
	b.stopOnce.Do(func() { close(b.stop) })

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(b.drainTimeout):
		b.logger.Warn("shutdown drain timed out with turns still in flight")
	}
}
