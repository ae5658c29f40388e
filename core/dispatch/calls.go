package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/smallnest/chanx"

	"github.com/kilianp07/loadshift/core/logger"
	"github.com/kilianp07/loadshift/core/model"
)

var (
	// ErrInvalidDirection is returned by Submit for directions other than on/off.
	ErrInvalidDirection = errors.New("invalid direction")
	// ErrClosed is returned by Submit once the dispatcher is closed.
	ErrClosed = errors.New("dispatcher closed")
)

// Commander issues one command to a device. Transport timeouts surface as
// errors; the context carries the per-command deadline.
type Commander interface {
	IssueCommand(ctx context.Context, dev model.Device, dir model.Direction) error
}

// CompletionFunc is invoked once per finished command, successful or not.
type CompletionFunc func(model.CommandResult)

// Call is the handle returned by Submit.
type Call struct {
	Request model.CommandRequest

	seq    uint64
	done   chan struct{}
	result model.CommandResult
}

// Done is closed when the command completed or failed.
func (c *Call) Done() <-chan struct{} { return c.done }

// Result returns the outcome. It is only meaningful after Done is closed.
func (c *Call) Result() model.CommandResult { return c.result }

// Err returns the command error after Done is closed.
func (c *Call) Err() error { return c.result.Err }

// StartSeq returns the position at which the call left the queue, starting
// at 1. It is zero while the call is queued.
func (c *Call) StartSeq() uint64 { return atomic.LoadUint64(&c.seq) }

// CallDispatcher issues commands with at most MaxParallelCalls in flight.
// Requests beyond the cap wait in a FIFO queue. Failed commands are logged
// and dropped, never retried.
type CallDispatcher struct {
	cmd        Commander
	timeout    time.Duration
	log        logger.Logger
	onComplete CompletionFunc

	queue   *chanx.UnboundedChan[*Call]
	recvMu  sync.Mutex
	started uint64

	inFlight atomic.Int64
	queued   atomic.Int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewCallDispatcher starts cfg.MaxParallelCalls workers. onComplete may be nil.
func NewCallDispatcher(cmd Commander, cfg Config, log logger.Logger, onComplete CompletionFunc) (*CallDispatcher, error) {
	if cmd == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewCallDispatcher")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &CallDispatcher{
		cmd:        cmd,
		timeout:    cfg.CommandTimeout(),
		log:        log,
		onComplete: onComplete,
		queue:      chanx.NewUnboundedChan[*Call](context.Background(), cfg.MaxParallelCalls),
	}
	for i := 0; i < cfg.MaxParallelCalls; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d, nil
}

// Submit enqueues the request and returns immediately.
func (d *CallDispatcher) Submit(req model.CommandRequest) (*Call, error) {
	if !req.Direction.Valid() {
		return nil, fmt.Errorf("%w: %d for %s", ErrInvalidDirection, req.Direction, req.Device.Name)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Submitted.IsZero() {
		req.Submitted = time.Now()
	}
	call := &Call{Request: req, done: make(chan struct{})}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	queuedCalls.Set(float64(d.queued.Add(1)))
	d.queue.In <- call
	return call, nil
}

// InFlight returns the number of commands currently being issued.
func (d *CallDispatcher) InFlight() int { return int(d.inFlight.Load()) }

// Queued returns the number of commands waiting for a free slot.
func (d *CallDispatcher) Queued() int { return int(d.queued.Load()) }

// Close stops accepting requests and waits for queued and in-flight
// commands to finish.
func (d *CallDispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue.In)
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

// next takes the oldest queued call. Workers take turns so that calls start
// in submission order.
func (d *CallDispatcher) next() (*Call, bool) {
	d.recvMu.Lock()
	defer d.recvMu.Unlock()
	call, ok := <-d.queue.Out
	if !ok {
		return nil, false
	}
	d.started++
	atomic.StoreUint64(&call.seq, d.started)
	queuedCalls.Set(float64(d.queued.Add(-1)))
	inflightCalls.Set(float64(d.inFlight.Add(1)))
	return call, true
}

func (d *CallDispatcher) worker() {
	defer d.wg.Done()
	for {
		call, ok := d.next()
		if !ok {
			return
		}
		d.run(call)
	}
}

func (d *CallDispatcher) run(call *Call) {
	req := call.Request
	res := model.CommandResult{Request: req, Started: time.Now()}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	res.Err = d.cmd.IssueCommand(ctx, req.Device, req.Direction)
	cancel()
	res.Finished = time.Now()

	inflightCalls.Set(float64(d.inFlight.Add(-1)))
	outcome := "success"
	if res.Err != nil {
		outcome = "failure"
		d.log.Errorf("command %s %s failed: %v", req.Device.Name, req.Direction, res.Err)
	} else {
		d.log.Debugf("command %s %s done in %s", req.Device.Name, req.Direction, res.Latency())
	}
	commandsTotal.WithLabelValues(req.Device.Name, req.Direction.String(), outcome).Inc()
	commandLatency.WithLabelValues(outcome).Observe(res.Latency().Seconds())

	call.result = res
	if d.onComplete != nil {
		d.onComplete(res)
	}
	close(call.done)
}
