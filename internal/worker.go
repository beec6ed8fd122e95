package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler executes one command. It must honour ctx between units of work
// and report progress through the callback.
type Handler interface {
	Handle(ctx context.Context, cmd Command, progress ProgressFunc) (*CommandResult, error)
}

type HandlerFunc func(ctx context.Context, cmd Command, progress ProgressFunc) (*CommandResult, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd Command, progress ProgressFunc) (*CommandResult, error) {
	return f(ctx, cmd, progress)
}

type job struct {
	cmd    Command
	ctx    context.Context
	cancel context.CancelFunc
}

// Worker runs commands one at a time on a background goroutine. Submit
// never blocks; output is collected in an unbounded outbox read with Poll,
// Ready and Wait.
type Worker struct {
	handler   Handler
	logger    *logrus.Logger
	queueSize int

	base     context.Context
	stopBase context.CancelFunc

	mu      sync.Mutex
	queue   []*job
	current *job
	closed  bool
	wake    chan struct{}

	outMu  sync.Mutex
	outbox []Event
	ready  chan struct{}

	wg sync.WaitGroup
}

func NewWorker(handler Handler, queueSize int, logger *logrus.Logger) *Worker {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = DiscardLogger()
	}
	base, stop := context.WithCancel(context.Background())
	w := &Worker{
		handler:   handler,
		logger:    logger,
		queueSize: queueSize,
		base:      base,
		stopBase:  stop,
		wake:      make(chan struct{}, 1),
		ready:     make(chan struct{}, 1),
	}
	w.wg.Add(1)
	go w.loop()
	return w
}

// Submit queues cmd and returns its ID, assigning one when cmd.ID is empty.
func (w *Worker) Submit(cmd Command) (string, error) {
	if !cmd.Kind.valid() {
		return "", fmt.Errorf("%w: unknown command kind %q", ErrInvalidCommand, cmd.Kind)
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.Priority == "" {
		cmd.Priority = PrioritySerial
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return "", ErrWorkerClosed
	}
	if cmd.Priority == PriorityInteractive {
		w.preemptLocked()
	}
	if len(w.queue) >= w.queueSize {
		return "", fmt.Errorf("%w: %d commands pending", ErrQueueFull, len(w.queue))
	}

	ctx, cancel := context.WithCancel(w.base)
	w.queue = append(w.queue, &job{cmd: cmd, ctx: ctx, cancel: cancel})
	w.logger.WithFields(logrus.Fields{
		"command":  cmd.ID,
		"kind":     cmd.Kind,
		"priority": cmd.Priority,
	}).Debug("command queued")

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return cmd.ID, nil
}

// preemptLocked cancels the running command and drops everything queued.
func (w *Worker) preemptLocked() {
	if w.current != nil {
		w.current.cancel()
	}
	for _, j := range w.queue {
		j.cancel()
		w.post(Event{Status: &Status{ID: j.cmd.ID, Kind: j.cmd.Kind, State: StateCancelled, Message: "preempted"}})
	}
	w.queue = nil
}

// Cancel stops the command with the given ID whether it is running or
// still queued.
func (w *Worker) Cancel(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.current != nil && w.current.cmd.ID == id {
		w.current.cancel()
		return nil
	}
	for i, j := range w.queue {
		if j.cmd.ID != id {
			continue
		}
		j.cancel()
		w.queue = append(w.queue[:i], w.queue[i+1:]...)
		w.post(Event{Status: &Status{ID: id, Kind: j.cmd.Kind, State: StateCancelled}})
		return nil
	}
	return fmt.Errorf("%w: no pending command %s", ErrInvalidCommand, id)
}

// CancelCurrent stops the running command, if any.
func (w *Worker) CancelCurrent() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return false
	}
	w.current.cancel()
	return true
}

// Pending returns the number of queued commands, excluding the running one.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		return StateRunning
	}
	return StateIdle
}

// Poll returns the next event without blocking.
func (w *Worker) Poll() (Event, bool) {
	w.outMu.Lock()
	defer w.outMu.Unlock()
	if len(w.outbox) == 0 {
		return Event{}, false
	}
	ev := w.outbox[0]
	w.outbox[0] = Event{}
	w.outbox = w.outbox[1:]
	return ev, true
}

// Ready is signalled whenever events are posted. Drain with Poll after
// each signal.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

// Wait blocks until an event is available or ctx is done.
func (w *Worker) Wait(ctx context.Context) (Event, error) {
	for {
		if ev, ok := w.Poll(); ok {
			return ev, nil
		}
		select {
		case <-w.ready:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}

// Close cancels all work and stops the worker goroutine. Queued commands
// receive a cancelled status.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.preemptLocked()
	w.mu.Unlock()

	w.stopBase()
	select {
	case w.wake <- struct{}{}:
	default:
	}
	w.wg.Wait()
	return nil
}

func (w *Worker) post(ev Event) {
	w.outMu.Lock()
	// Consecutive progress updates of the same command replace each other.
	if n := len(w.outbox); n > 0 && ev.Status != nil && ev.Status.State == StateRunning {
		last := w.outbox[n-1].Status
		if last != nil && last.State == StateRunning && last.ID == ev.Status.ID {
			w.outbox[n-1] = ev
			w.outMu.Unlock()
			w.signal()
			return
		}
	}
	w.outbox = append(w.outbox, ev)
	w.outMu.Unlock()
	w.signal()
}

func (w *Worker) signal() {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		j, ok := w.next()
		if !ok {
			return
		}
		w.process(j)
	}
}

func (w *Worker) next() (*job, bool) {
	for {
		w.mu.Lock()
		if w.closed {
			w.mu.Unlock()
			return nil, false
		}
		if len(w.queue) > 0 {
			j := w.queue[0]
			w.queue[0] = nil
			w.queue = w.queue[1:]
			w.current = j
			w.mu.Unlock()
			return j, true
		}
		w.mu.Unlock()
		<-w.wake
	}
}

func (w *Worker) process(j *job) {
	cmd := j.cmd
	log := w.logger.WithFields(logrus.Fields{
		"command": cmd.ID,
		"kind":    cmd.Kind,
	})
	log.Debug("command started")
	w.post(Event{Status: &Status{ID: cmd.ID, Kind: cmd.Kind, State: StateRunning}})

	progress := func(p Progress) {
		w.post(Event{Status: &Status{
			ID:      cmd.ID,
			Kind:    cmd.Kind,
			State:   StateRunning,
			Scanned: p.Scanned,
			Total:   p.Total,
			Message: p.Commit,
		}})
	}

	result, err := w.run(j, progress)
	cancelled := j.ctx.Err() != nil
	j.cancel()

	w.mu.Lock()
	w.current = nil
	idle := len(w.queue) == 0
	w.mu.Unlock()

	switch {
	case cancelled:
		log.Info("command cancelled")
		w.post(Event{Status: &Status{ID: cmd.ID, Kind: cmd.Kind, State: StateCancelled}})
	case err != nil:
		log.WithError(err).Info("command failed")
		w.post(Event{Result: failedResult(cmd, err)})
		w.post(Event{Status: &Status{ID: cmd.ID, Kind: cmd.Kind, State: StateFailed, Message: err.Error()}})
	default:
		if result == nil {
			result = &CommandResult{}
		}
		result.ID, result.Kind = cmd.ID, cmd.Kind
		log.Debug("command done")
		w.post(Event{Result: result})
		w.post(Event{Status: &Status{ID: cmd.ID, Kind: cmd.Kind, State: StateDone}})
	}
	if idle {
		w.post(Event{Status: &Status{State: StateIdle}})
	}
}

func (w *Worker) run(j *job, progress ProgressFunc) (result *CommandResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: handler panic: %v", ErrRepositoryAccess, r)
		}
	}()
	return w.handler.Handle(j.ctx, j.cmd, progress)
}
