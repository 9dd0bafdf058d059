package notify

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn once after d unless the returned Task is cancelled first.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Task
}

// Task is a pending scheduled call.
type Task interface {
	// Cancel prevents the call if it has not started. It reports whether it did.
	Cancel() bool
}

// TimerScheduler schedules on the runtime timer heap.
type TimerScheduler struct{}

// Schedule implements Scheduler.
func (TimerScheduler) Schedule(d time.Duration, fn func()) Task {
	return timerTask{t: time.AfterFunc(d, fn)}
}

type timerTask struct{ t *time.Timer }

func (t timerTask) Cancel() bool { return t.t.Stop() }

// ManualScheduler is a deterministic Scheduler driven by Advance.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks map[int]*manualTask
}

type manualTask struct {
	s   *ManualScheduler
	id  int
	due time.Duration
	fn  func()
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: map[int]*manualTask{}}
}

// Schedule implements Scheduler.
func (s *ManualScheduler) Schedule(d time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTask{s: s, id: s.seq, due: s.now + d, fn: fn}
	s.tasks[t.id] = t
	return t
}

// Cancel implements Task.
func (t *manualTask) Cancel() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.tasks[t.id]; !ok {
		return false
	}
	delete(t.s.tasks, t.id)
	return true
}

// Advance moves the clock forward and runs every task that became due, in due order.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now += d
	var due []*manualTask
	for id, t := range s.tasks {
		if t.due <= s.now {
			due = append(due, t)
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()
	sort.Slice(due, func(i, j int) bool {
		if due[i].due == due[j].due {
			return due[i].id < due[j].id
		}
		return due[i].due < due[j].due
	})
	for _, t := range due {
		t.fn()
	}
}

// Pending returns the number of scheduled tasks not yet run or cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}
