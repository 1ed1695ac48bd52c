package internal

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Status is the synchronous acknowledgement of a control command
type Status string

const (
	StatusStarted Status = "started"
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
	StatusIdle    Status = "idle"
)

// Outcome is the externally visible result of a run
type Outcome string

const (
	OutcomeExported Outcome = "exported"
	OutcomeEmpty    Outcome = "empty"
	OutcomeFailed   Outcome = "failed"
)

// Result describes how a run ended and what was exported
type Result struct {
	RunID    string     `json:"run_id"`
	Outcome  Outcome    `json:"outcome"`
	Reason   StopReason `json:"reason"`
	Messages int        `json:"messages"`
	Location string     `json:"location,omitempty"`
	Error    string     `json:"error,omitempty"`
	Err      error      `json:"-"`
}

// Sink delivers a rendered transcript and returns where it went
type Sink interface {
	Deliver(ctx context.Context, t *Transcript) (string, error)
}

// RunContext is the mutable state of one collection session. The stall
// counter and store belong to the run goroutine; the atomics may be read
// from anywhere.
type RunContext struct {
	ID        string
	StartedAt time.Time
	Store     *MessageStore

	running     atomic.Bool
	state       atomic.Int32
	total       atomic.Int64
	stallMirror atomic.Int64
	stalls      int
	cancel      context.CancelFunc
}

func newRunContext(cancel context.CancelFunc) *RunContext {
	rc := &RunContext{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Store:     NewMessageStore(),
		cancel:    cancel,
	}
	rc.running.Store(true)
	return rc
}

// Running reports whether the run has not been asked to stop
func (rc *RunContext) Running() bool {
	return rc.running.Load()
}

// State returns the current lifecycle state
func (rc *RunContext) State() State {
	return State(rc.state.Load())
}

func (rc *RunContext) setState(s State) {
	rc.state.Store(int32(s))
}

// halt clears the running flag and ends any pending settle delay
func (rc *RunContext) halt() {
	rc.running.Store(false)
	if rc.cancel != nil {
		rc.cancel()
	}
}

// Snapshot is a point-in-time view of the controller for status queries
type Snapshot struct {
	RunID  string  `json:"run_id,omitempty"`
	State  State   `json:"state"`
	Total  int     `json:"total"`
	Stalls int     `json:"stalls"`
	Last   *Result `json:"last,omitempty"`
}

// ControllerOptions configures the runs a Controller starts
type ControllerOptions struct {
	Acquisition AcquisitionOptions
	Fallback    FallbackOptions
	Channel     string
	Clock       Clock
}

// Controller owns at most one active RunContext and exposes the start/stop
// control surface
type Controller struct {
	driver  ViewDriver
	history HistoryAPI
	sink    Sink
	opts    ControllerOptions

	mu        sync.Mutex
	run       *RunContext
	done      chan struct{}
	last      Result
	observers []func(Event)
}

// NewController creates a Controller. history may be nil, in which case runs
// skip the fallback sync.
func NewController(driver ViewDriver, history HistoryAPI, sink Sink, opts ControllerOptions) *Controller {
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	return &Controller{
		driver:  driver,
		history: history,
		sink:    sink,
		opts:    opts,
	}
}

// Subscribe registers an observer for run events. Observers are called on
// the run goroutine and must not block.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Start begins a new run. Starting while a run is active is a no-op.
func (c *Controller) Start(ctx context.Context) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.run != nil {
		return StatusRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	rc := newRunContext(cancel)
	c.run = rc
	c.done = make(chan struct{})

	LogInfo("collection started (run %s)", rc.ID)
	go c.execute(runCtx, rc, c.done)
	return StatusStarted
}

// Stop asks the active run to stop. Whatever was collected is still
// exported. Stopping when nothing runs is a no-op.
func (c *Controller) Stop() Status {
	c.mu.Lock()
	rc := c.run
	c.mu.Unlock()

	if rc == nil {
		return StatusIdle
	}
	rc.halt()
	return StatusStopped
}

// Running reports whether a run is active
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.run != nil
}

// Wait blocks until the active run has exported and returns its result.
// Without an active run it returns the last result.
func (c *Controller) Wait() Result {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()

	if done != nil {
		<-done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Snapshot returns the current run state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: StateIdle}
	if c.last.RunID != "" {
		last := c.last
		snap.Last = &last
	}
	if c.run != nil {
		snap.RunID = c.run.ID
		snap.State = c.run.State()
		snap.Total = int(c.run.total.Load())
		snap.Stalls = int(c.run.stallMirror.Load())
	}
	return snap
}

func (c *Controller) execute(ctx context.Context, rc *RunContext, done chan struct{}) {
	defer close(done)

	fallback := NewFallbackSync(c.history, c.opts.Clock, c.opts.Fallback)
	loop := NewAcquisitionLoop(c.driver, rc.Store, fallback, c.opts.Clock, c.opts.Acquisition)
	loop.emit = c.publish
	fallback.OnPage(func(p PageEvent) {
		page := p
		loop.publish(rc, Event{Kind: EventPage, Page: &page})
	})

	loopRes := loop.Run(ctx, rc)
	LogInfo("collected a total of %d unique messages", rc.Store.Size())

	// the run context is cancelled by now; delivery must still happen
	result := c.export(context.WithoutCancel(ctx), rc, loopRes.Reason)

	c.mu.Lock()
	c.last = result
	c.run = nil
	c.mu.Unlock()

	c.publish(Event{
		Kind:   EventOutcome,
		RunID:  rc.ID,
		Time:   time.Now(),
		State:  StateStopped,
		Total:  rc.Store.Size(),
		Result: &result,
	})
}

func (c *Controller) export(ctx context.Context, rc *RunContext, reason StopReason) Result {
	result := Result{RunID: rc.ID, Reason: reason, Messages: rc.Store.Size()}

	transcript, err := BuildTranscript(rc.Store, rc.ID, c.opts.Channel, time.Now())
	if errors.Is(err, ErrEmptyResult) {
		LogWarn("no messages were collected; nothing to export. The page structure may have changed, re-run with --verbose for details")
		result.Outcome = OutcomeEmpty
		result.Err = err
		result.Error = err.Error()
		return result
	}

	if c.sink == nil {
		result.Outcome = OutcomeExported
		return result
	}

	location, err := c.sink.Deliver(ctx, transcript)
	if err != nil {
		LogError("export failed: %v", err)
		result.Outcome = OutcomeFailed
		result.Err = err
		result.Error = err.Error()
		return result
	}

	LogInfo("exported %d messages to %s", result.Messages, location)
	result.Outcome = OutcomeExported
	result.Location = location
	return result
}

func (c *Controller) publish(ev Event) {
	c.mu.Lock()
	observers := make([]func(Event), len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
