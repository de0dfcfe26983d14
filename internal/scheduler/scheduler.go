package scheduler

import (
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// ManualClock only moves when Advance is called.
type ManualClock struct {
	now time.Time
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	return c.now
}

func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Task is a single-shot deferred callback. A cancelled task never fires.
type Task struct {
	name string
	due  time.Time
	fn   func()
	seq  uint64

	cancelled bool
	fired     bool
}

func (t *Task) Cancel() {
	if t == nil {
		return
	}

	t.cancelled = true
}

func (t *Task) Pending() bool {
	return t != nil && !t.cancelled && !t.fired
}

func (t *Task) Due() time.Time {
	return t.due
}

func (t *Task) String() string {
	return t.name
}

// Scheduler runs deferred tasks cooperatively on whichever goroutine calls Update.
// Apart from Post, none of its methods are safe for concurrent use.
type Scheduler struct {
	clock Clock
	tasks []*Task
	seq   uint64

	postedMutex sync.Mutex
	posted      []func()
}

func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}

	return &Scheduler{clock: clock}
}

func (s *Scheduler) Clock() Clock {
	return s.clock
}

func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

func (s *Scheduler) After(name string, d time.Duration, fn func()) *Task {
	if d < 0 {
		d = 0
	}

	s.seq++

	task := &Task{
		name: name,
		due:  s.clock.Now().Add(d),
		fn:   fn,
		seq:  s.seq,
	}

	s.tasks = append(s.tasks, task)

	return task
}

// Post queues fn to run at the start of the next Update. It may be called from any goroutine.
func (s *Scheduler) Post(fn func()) {
	s.postedMutex.Lock()
	defer s.postedMutex.Unlock()

	s.posted = append(s.posted, fn)
}

// Update runs posted functions, then every pending task whose due time has passed, in due order.
func (s *Scheduler) Update() {
	s.postedMutex.Lock()
	posted := s.posted
	s.posted = nil
	s.postedMutex.Unlock()

	for _, fn := range posted {
		fn()
	}

	now := s.clock.Now()

	var due, remaining []*Task

	for _, task := range s.tasks {
		if task.cancelled {
			continue
		}

		if !task.due.After(now) {
			due = append(due, task)
		} else {
			remaining = append(remaining, task)
		}
	}

	s.tasks = remaining

	sort.Slice(due, func(i, j int) bool {
		if due[i].due.Equal(due[j].due) {
			return due[i].seq < due[j].seq
		}

		return due[i].due.Before(due[j].due)
	})

	for _, task := range due {
		// an earlier task in this batch may have cancelled this one
		if task.cancelled {
			continue
		}

		task.fired = true
		task.fn()
	}
}

func (s *Scheduler) NumPending() int {
	n := 0

	for _, task := range s.tasks {
		if task.Pending() {
			n++
		}
	}

	return n
}
