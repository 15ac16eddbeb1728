package automation

import (
	"context"
	"sync"
)

// Task is a running cancellable sequence, such as a ramp or a delayed
// effect removal.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{cancel: cancel, done: make(chan struct{})}
}

func (t *Task) finish(err error) {
	t.err = err
	close(t.done)
}

// Cancel requests the task to stop. It does not wait.
func (t *Task) Cancel() {
	t.cancel()
}

// Done is closed when the task has stopped.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task stops and returns its error. A cancelled task
// returns context.Canceled.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Err returns the task error once it has stopped, or nil while running.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// taskSet runs at most one Task per key.
type taskSet struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func newTaskSet() *taskSet {
	return &taskSet{tasks: make(map[string]*Task)}
}

// start registers a new task for key and runs fn in a goroutine. Any task
// already registered for key is cancelled, and fn does not begin until it
// has stopped.
func (s *taskSet) start(parent context.Context, key string, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(parent)
	task := newTask(cancel)

	s.mu.Lock()
	prior := s.tasks[key]
	s.tasks[key] = task
	s.mu.Unlock()

	go func() {
		defer cancel()

		if prior != nil {
			prior.Cancel()
			<-prior.Done()
		}

		var err error
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = fn(ctx)
		}

		s.mu.Lock()
		if s.tasks[key] == task {
			delete(s.tasks, key)
		}
		s.mu.Unlock()

		task.finish(err)
	}()
	return task
}

// get returns the task registered for key, if any.
func (s *taskSet) get(key string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[key]
}

// len returns the number of registered tasks.
func (s *taskSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// cancelAll cancels every registered task and waits for all of them.
func (s *taskSet) cancelAll() {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.Cancel()
	}
	for _, t := range tasks {
		<-t.Done()
	}
}
