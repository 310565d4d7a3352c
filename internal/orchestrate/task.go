// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package orchestrate

import (
	"context"
	"sync"
)

// Task supervises one detached generation run. The caller that triggered the
// run gets the Task back immediately and can wait on Done or poll status;
// the run itself keeps going regardless of what the caller does.
type Task struct {
	// AssignmentID names the assignment the run is generating.
	AssignmentID string

	done chan struct{}

	mu  sync.Mutex
	err error
}

// startTask runs fn in a goroutine and returns its supervision handle.
func startTask(assignmentID string, fn func() error) *Task {
	t := &Task{
		AssignmentID: assignmentID,
		done:         make(chan struct{}),
	}
	go func() {
		defer close(t.done)
		if err := fn(); err != nil {
			t.mu.Lock()
			t.err = err
			t.mu.Unlock()
		}
	}()
	return t
}

// Done is closed when the run has finished, successfully or not.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the run's terminal error. It is meaningful only after Done is
// closed; a nil result then means the run completed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the run finishes or ctx is cancelled. The run keeps
// going even when Wait gives up on it.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
