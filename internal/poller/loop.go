package poller

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Start on a loop that has been stopped.
var ErrStopped = errors.New("poller: loop stopped")

// ErrStarted is returned by Start on a loop that is already running.
var ErrStarted = errors.New("poller: loop already started")

// State is the scheduling state of a Loop.
type State int

// Loop states.
const (
	StateIdle State = iota
	StateScheduled
	StateRunning
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduled:
		return "scheduled"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// RunFunc is one refresh. Its error is logged and counted; the loop keeps
// going.
type RunFunc func(ctx context.Context) error

// Logger is the logging interface used by Loop.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Timer is the handle returned by an AfterFunc.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc is the default.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Stats is a snapshot of a loop's run counters.
type Stats struct {
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Interval  string    `json:"interval"`
	Runs      uint64    `json:"runs"`
	Failures  uint64    `json:"failures"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Options configures a Loop.
type Options struct {
	// Name identifies the loop in logs and stats.
	Name string

	// Interval is the delay between the end of one run and the start of the next.
	Interval time.Duration

	// Run is called once per cycle.
	Run RunFunc

	// Logger is optional.
	Logger Logger

	// AfterFunc replaces time.AfterFunc in tests.
	AfterFunc AfterFunc
}

// Loop is a self-rescheduling refresh loop.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Loop struct {
	name      string
	interval  time.Duration
	run       RunFunc
	logger    Logger
	afterFunc AfterFunc

	// ctx is handed to every run. Stop does not cancel it; Close does.
	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	timer Timer
	// timerGen identifies the outstanding timer so a stale callback that
	// lost the race with Stop or Trigger is ignored.
	timerGen uint64
	stats    Stats

	wg sync.WaitGroup
}

// New creates a loop in the Idle state.
func New(opts Options) *Loop {
	ctx, cancel := context.WithCancel(context.Background())

	l := &Loop{
		name:      opts.Name,
		interval:  opts.Interval,
		run:       opts.Run,
		logger:    opts.Logger,
		afterFunc: opts.AfterFunc,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateIdle,
	}
	if l.logger == nil {
		l.logger = noopLogger{}
	}
	if l.afterFunc == nil {
		l.afterFunc = realAfterFunc
	}
	l.stats.Name = opts.Name
	l.stats.Interval = opts.Interval.String()
	return l
}

// Start runs the loop immediately. Subsequent runs follow the interval.
func (l *Loop) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateStopped:
		return ErrStopped
	case StateIdle:
	default:
		return ErrStarted
	}

	l.beginRunLocked()
	return nil
}

// Trigger runs the loop now if it is Idle or Scheduled, clearing any
// pending timer. Returns false if a run is already in progress or the loop
// is stopped.
func (l *Loop) Trigger() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateScheduled:
		l.clearTimerLocked()
	case StateIdle:
	default:
		return false
	}

	l.beginRunLocked()
	return true
}

// Stop moves the loop to Stopped and clears a pending timer. A run in
// progress is not interrupted but will not reschedule. Stop is idempotent.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateStopped {
		return
	}
	l.clearTimerLocked()
	l.state = StateStopped
	l.logger.Debug("refresh loop stopped", "loop", l.name)
}

// Wait blocks until any run in progress has returned.
func (l *Loop) Wait() {
	l.wg.Wait()
}

// Close stops the loop, cancels the context of an in-flight run and waits
// for it to return.
func (l *Loop) Close() {
	l.Stop()
	l.cancel()
	l.wg.Wait()
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stats returns a snapshot of the loop's counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.stats
	s.State = l.state.String()
	return s
}

// HasPendingTimer reports whether a timer is outstanding.
func (l *Loop) HasPendingTimer() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timer != nil
}

// beginRunLocked moves to Running and starts a run. Caller holds mu.
func (l *Loop) beginRunLocked() {
	l.state = StateRunning
	l.wg.Add(1)
	go l.execute()
}

func (l *Loop) execute() {
	defer l.wg.Done()

	err := l.safeRun()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.stats.Runs++
	l.stats.LastRun = time.Now()
	if err != nil {
		l.stats.Failures++
		l.stats.LastError = err.Error()
		l.logger.Warn("refresh failed", "loop", l.name, "error", err)
	} else {
		l.stats.LastError = ""
	}

	if l.state == StateStopped {
		return
	}

	l.state = StateIdle
	if l.timer != nil {
		return
	}
	l.timerGen++
	gen := l.timerGen
	l.timer = l.afterFunc(l.interval, func() { l.fire(gen) })
	l.state = StateScheduled
	l.logger.Debug("refresh scheduled", "loop", l.name, "in", l.interval)
}

func (l *Loop) safeRun() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("refresh panicked")
			l.logger.Warn("refresh panic recovered", "loop", l.name, "panic", r)
		}
	}()
	return l.run(l.ctx)
}

// fire is the timer callback.
func (l *Loop) fire(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// A stale timer (cleared by Stop or Trigger) must not start a run.
	if l.state != StateScheduled || gen != l.timerGen {
		return
	}
	l.timer = nil
	l.beginRunLocked()
}

func (l *Loop) clearTimerLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}
