package schedule

import (
	"sync"
	"time"
)

// Task is a one-shot deferred call that can be canceled until it fires.
type Task struct {
	mu     sync.Mutex
	timer  *time.Timer
	done   chan struct{}
	closed bool
}

func After(delay time.Duration, fn func()) *Task {
	task := &Task{done: make(chan struct{})}

	task.mu.Lock()
	task.timer = time.AfterFunc(delay, func() {
		if !task.finish() {
			return
		}
		fn()
	})
	task.mu.Unlock()

	return task
}

// Cancel stops the task. It reports false if the task already fired or was
// canceled before.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}

	t.mu.Lock()
	timer := t.timer
	t.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}

	return t.finish()
}

// Done is closed once the task has fired or been canceled.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finish() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	t.closed = true
	close(t.done)
	return true
}

// Timer schedules real deferred calls.
type Timer struct{}

func (Timer) After(delay time.Duration, fn func()) Canceler {
	return After(delay, fn)
}

type Canceler interface {
	Cancel() bool
}
