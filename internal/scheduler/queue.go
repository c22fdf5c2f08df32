package scheduler

import (
	"sync"
)

// TaskQueue is a FIFO of deferred tasks. Producers may live on any goroutine,
// the consumer is the goroutine of the realm that owns the queue.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []func()

	// signaled (non-blocking) on every enqueue
	wake chan struct{}
}

func NewTaskQueue() *TaskQueue {
	return &TaskQueue{
		tasks: make([]func(), 0),
		wake:  make(chan struct{}, 1),
	}
}

func (q *TaskQueue) Enqueue(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Wake is readable after at least one Enqueue since the last read.
func (q *TaskQueue) Wake() <-chan struct{} {
	return q.wake
}

func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// take removes and returns the tasks queued so far.
func (q *TaskQueue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	tasks := q.tasks
	q.tasks = make([]func(), 0, len(tasks))
	return tasks
}

// RunTurn runs the tasks queued when it starts, one event-loop turn.
// Tasks enqueued meanwhile wait for the next turn. It returns how many tasks ran.
func (q *TaskQueue) RunTurn(run func(func())) int {
	tasks := q.take()
	for _, task := range tasks {
		run(task)
	}

	return len(tasks)
}

// Drain runs turns until the queue is empty and returns how many tasks ran.
func (q *TaskQueue) Drain(run func(func())) int {
	total := 0
	for {
		n := q.RunTurn(run)
		if n == 0 {
			return total
		}
		total += n
	}
}
