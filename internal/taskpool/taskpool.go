// Package taskpool implements component C4: a priority-queued task
// dispatcher shared across a worker pool, with cross-worker message passing
// to a single consumer. It is the Go rendition of task.py's ProcessManager —
// ported to goroutines and channels per §9 ("A rewrite MAY use OS threads
// with in-process channels; only the message ordering and bookkeeping
// contracts in §5 are normative").
package taskpool

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
)

// Task is one unit of work a worker runs to completion before requesting
// another. Run must not block indefinitely without honoring ctx: the Kill
// shutdown policy relies on ctx cancellation to unstick in-flight HTTP
// calls.
type Task interface {
	Run(ctx context.Context, client *http.Client, manager Manager) error
}

// Chain runs its Tasks sequentially within a single worker slot, the way a
// download must complete before its decompress step starts.
type Chain struct {
	Tasks []Task
}

func (c Chain) Run(ctx context.Context, client *http.Client, manager Manager) error {
	for _, t := range c.Tasks {
		if err := t.Run(ctx, client, manager); err != nil {
			return err
		}
	}
	return nil
}

// Manager is the interface a Task's Run method uses to schedule further work
// and publish messages. It is handed to tasks as an opaque dependency, the
// way task.py passes its Proxy/ProcessManager into Task.run.
type Manager interface {
	Schedule(task Task, priority int)
	SendMessage(message interface{})
}

// WorkerException carries an error raised by a task, routed to the consumer
// through the same message channel as progress, mirroring task.py's
// WorkerException.
type WorkerException struct {
	Task Task
	Err  error
}

func (e *WorkerException) Error() string {
	return fmt.Sprintf("task %T failed: %v", e.Task, e.Err)
}

func (e *WorkerException) Unwrap() error {
	return e.Err
}

// ClosePolicy selects how Pool.Close stops its workers.
type ClosePolicy int

const (
	// Join drains every buffered message, then stops workers.
	Join ClosePolicy = iota
	// Cancel stops workers without draining buffered messages; in-flight
	// tasks are allowed to finish. The orchestrator uses it once its
	// consumer loop has already drained Messages().
	Cancel
	// Kill behaves like Cancel but additionally cancels the shared context,
	// unsticking any task blocked on network or file I/O. Go's cooperative
	// scheduling gives no way to forcibly terminate a running goroutine, so
	// this is the closest equivalent to the original's process.kill(): it
	// relies on every Task honoring ctx.
	Kill
)

// Pool is the default in-process Manager: a fixed goroutine pool pulling
// from priority_levels queues (queue 0 is highest priority), bookkeeping
// tasksInFlight the way task.py's RequestHandler does under its
// tasks_left_lock.
type Pool struct {
	mu       sync.Mutex
	cond     *sync.Cond
	queues   [][]Task
	inFlight int
	messages []interface{}
	closing  bool

	client *http.Client
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// DefaultWorkers mirrors the original's "2 * CPU count" default.
func DefaultWorkers() int {
	n := runtime.NumCPU() * 2
	if n < 1 {
		n = 1
	}
	return n
}

// NewPool starts workers goroutines, each owning the shared *http.Client for
// its lifetime (one reusable HTTP session per worker, per §5). priorityLevels
// must be at least 1; the core uses exactly 2.
func NewPool(workers, priorityLevels int, client *http.Client) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if priorityLevels <= 0 {
		priorityLevels = 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		queues: make([][]Task, priorityLevels),
		client: client,
		ctx:    ctx,
		cancel: cancel,
	}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Schedule enqueues task at priority (0 = highest / earliest). It may be
// called concurrently by any worker's running task.
func (p *Pool) Schedule(task Task, priority int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if priority < 0 || priority >= len(p.queues) {
		priority = len(p.queues) - 1
	}
	p.queues[priority] = append(p.queues[priority], task)
	p.inFlight++
	p.cond.Broadcast()
}

// SendMessage enqueues message for delivery to the Messages() consumer, in
// the order received across all workers.
func (p *Pool) SendMessage(message interface{}) {
	p.mu.Lock()
	p.messages = append(p.messages, message)
	p.cond.Broadcast()
	p.mu.Unlock()
}

// popFront removes and returns the task at the front of the first
// non-empty queue (lowest-numbered queue first), the manager's dispatch
// order.
func (p *Pool) popFront() (Task, bool) {
	for i, queue := range p.queues {
		if len(queue) > 0 {
			p.queues[i] = queue[1:]
			return queue[0], true
		}
	}
	return nil, false
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for {
			if p.closing {
				p.mu.Unlock()
				return
			}
			if task, ok := p.popFront(); ok {
				p.mu.Unlock()
				p.run(task)
				p.mu.Lock()
				p.inFlight--
				p.cond.Broadcast()
				p.mu.Unlock()
				break
			}
			p.cond.Wait()
		}
	}
}

func (p *Pool) run(task Task) {
	if err := task.Run(p.ctx, p.client, p); err != nil {
		p.SendMessage(&WorkerException{Task: task, Err: err})
	}
}

// Messages returns a channel that yields every message sent by any worker,
// in arrival order, closing once the message queue is empty and no task is
// in flight. This is the Go rendition of task.py's messages() generator.
func (p *Pool) Messages() <-chan interface{} {
	out := make(chan interface{})
	go func() {
		defer close(out)
		p.mu.Lock()
		for {
			for len(p.messages) == 0 {
				if p.inFlight == 0 {
					p.mu.Unlock()
					return
				}
				p.cond.Wait()
			}
			msg := p.messages[0]
			p.messages = p.messages[1:]
			p.mu.Unlock()
			out <- msg
			p.mu.Lock()
		}
	}()
	return out
}

// Close stops the worker pool per policy. See ClosePolicy for the precise
// semantics of each option.
func (p *Pool) Close(policy ClosePolicy) {
	if policy == Join {
		for range p.Messages() {
		}
	}
	if policy == Kill {
		p.cancel()
	}
	p.mu.Lock()
	p.closing = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
	p.cancel()
}
