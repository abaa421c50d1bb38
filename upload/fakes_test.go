package upload

import (
	"sync"
	"time"

	"github.com/processlink/processlink-files-step/stepconf"
)

type secrets map[string]stepconf.Secret

func (s secrets) Secret(name string) stepconf.Secret {
	return s[name]
}

type recordingReporter struct {
	events []StatusEvent
}

func (r *recordingReporter) Report(phase Phase, label string) {
	r.events = append(r.events, StatusEvent{Phase: phase, Label: label})
}

type recordingObserver struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (o *recordingObserver) StatusChanged(event StatusEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) Events() []StatusEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]StatusEvent(nil), o.events...)
}

type fakeTask struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *fakeTask) Stop() bool {
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

// fakeScheduler collects scheduled functions; tests fire them explicitly.
type fakeScheduler struct {
	tasks []*fakeTask
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Task {
	task := &fakeTask{delay: d, f: f}
	s.tasks = append(s.tasks, task)
	return task
}

func (s *fakeScheduler) fire(i int) {
	task := s.tasks[i]
	if !task.stopped {
		task.f()
	}
}

func validConfig(apiURL string) *Config {
	return &Config{
		SiteID:      "site-123",
		Credentials: secrets{APIKeySecret: "key-456"},
		APIURL:      apiURL,
	}
}
