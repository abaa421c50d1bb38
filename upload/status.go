package upload

import (
	"sync"
	"time"
)

// Phase is a stage of the upload state machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseUploading
	PhaseSuccess
	PhaseError
	PhaseTimeout
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseUploading:
		return "uploading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	case PhaseTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Terminal reports whether the phase ends an invocation.
func (p Phase) Terminal() bool {
	return p == PhaseSuccess || p == PhaseError || p == PhaseTimeout
}

// StatusEvent is the current status of the uploader.
type StatusEvent struct {
	Phase Phase
	Label string
}

// StatusObserver receives every status change, including the automatic reset to PhaseIdle.
// Events are delivered in order and without the reporter's lock held, so an observer may call
// back into the reporter. A Report made from StatusChanged is delivered after the current call
// returns.
type StatusObserver interface {
	StatusChanged(event StatusEvent)
}

// StatusObserverFunc adapts a function to StatusObserver.
type StatusObserverFunc func(event StatusEvent)

// StatusChanged ...
func (f StatusObserverFunc) StatusChanged(event StatusEvent) {
	f(event)
}

// Reporter is the write side of a StatusReporter.
type Reporter interface {
	Report(phase Phase, label string)
}

// Task is a scheduled function that has not necessarily run yet.
type Task interface {
	Stop() bool
}

// Scheduler runs f after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Task
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) Task {
	return time.AfterFunc(d, f)
}

// StatusReporterConfig holds the expiry of terminal statuses.
type StatusReporterConfig struct {
	// SuccessClearDelay is how long a PhaseSuccess status stays before resetting to PhaseIdle.
	// Default: 5 seconds
	SuccessClearDelay time.Duration

	// FailureClearDelay is how long a PhaseError or PhaseTimeout status stays.
	// Default: 10 seconds
	FailureClearDelay time.Duration

	// Scheduler runs the delayed clears.
	// If nil, time.AfterFunc is used.
	Scheduler Scheduler
}

// DefaultStatusReporterConfig returns the default configuration.
func DefaultStatusReporterConfig() StatusReporterConfig {
	return StatusReporterConfig{
		SuccessClearDelay: 5 * time.Second,
		FailureClearDelay: 10 * time.Second,
		Scheduler:         timerScheduler{},
	}
}

// StatusReporter holds the single current status slot shared by all invocations of an
// Uploader. The last write wins. A terminal status schedules a clear, which only takes
// effect if no other status was reported in the meantime.
type StatusReporter struct {
	config   StatusReporterConfig
	observer StatusObserver

	mu         sync.Mutex
	current    StatusEvent
	generation uint64
	pending    map[uint64]Task
	closed     bool
	queue      []StatusEvent
	notifying  bool
}

// NewStatusReporter ...
func NewStatusReporter(config StatusReporterConfig, observer StatusObserver) *StatusReporter {
	if config.Scheduler == nil {
		config.Scheduler = timerScheduler{}
	}
	if observer == nil {
		observer = StatusObserverFunc(func(StatusEvent) {})
	}

	return &StatusReporter{
		config:   config,
		observer: observer,
		pending:  map[uint64]Task{},
	}
}

// Report replaces the current status.
func (r *StatusReporter) Report(phase Phase, label string) {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return
	}

	r.generation++
	r.set(StatusEvent{Phase: phase, Label: label})

	if phase.Terminal() {
		delay := r.config.FailureClearDelay
		if phase == PhaseSuccess {
			delay = r.config.SuccessClearDelay
		}

		gen := r.generation
		r.pending[gen] = r.config.Scheduler.AfterFunc(delay, func() {
			r.clearGeneration(gen)
		})
	}

	r.notifyAndUnlock()
}

// Clear resets the status to PhaseIdle.
func (r *StatusReporter) Clear() {
	r.mu.Lock()

	r.generation++
	r.set(StatusEvent{Phase: PhaseIdle})

	r.notifyAndUnlock()
}

// Close stops every pending clear and resets the status to PhaseIdle. Later reports are ignored.
func (r *StatusReporter) Close() {
	r.mu.Lock()

	for gen, task := range r.pending {
		task.Stop()
		delete(r.pending, gen)
	}
	r.closed = true
	r.generation++
	r.set(StatusEvent{Phase: PhaseIdle})

	r.notifyAndUnlock()
}

// Current returns the current status.
func (r *StatusReporter) Current() StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *StatusReporter) clearGeneration(gen uint64) {
	r.mu.Lock()

	delete(r.pending, gen)
	if !r.closed && r.generation == gen {
		r.set(StatusEvent{Phase: PhaseIdle})
	}

	r.notifyAndUnlock()
}

// set must be called with mu held.
func (r *StatusReporter) set(event StatusEvent) {
	r.current = event
	r.queue = append(r.queue, event)
}

// notifyAndUnlock delivers the queued events and releases mu. Only one goroutine delivers at a
// time; the others leave their events in the queue for it.
func (r *StatusReporter) notifyAndUnlock() {
	if r.notifying {
		r.mu.Unlock()
		return
	}

	r.notifying = true
	for len(r.queue) > 0 {
		event := r.queue[0]
		r.queue = r.queue[1:]

		r.mu.Unlock()
		r.observer.StatusChanged(event)
		r.mu.Lock()
	}
	r.queue = nil
	r.notifying = false
	r.mu.Unlock()
}
