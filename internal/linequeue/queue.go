// Package linequeue is an unbounded FIFO of text lines shared between the goroutines
// that drain a process's output and the single caller consuming it.
package linequeue

import (
	"sync"
	"time"
)

// Queue is safe for concurrent Push, with one consumer calling Get.
type Queue struct {
	mu    sync.Mutex
	lines []string
	// ready holds at most one pending wake-up for a waiting Get.
	ready chan struct{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

// Push appends a line. It never blocks.
func (q *Queue) Push(line string) {
	q.mu.Lock()
	q.lines = append(q.lines, line)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Get removes and returns the oldest line, waiting up to timeout for one to arrive.
func (q *Queue) Get(timeout time.Duration) (string, bool) {
	if line, ok := q.pop(); ok {
		return line, true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-q.ready:
			if line, ok := q.pop(); ok {
				return line, true
			}
		case <-timer.C:
			// a push may have raced the timer
			return q.pop()
		}
	}
}

// Drain removes and returns every queued line without waiting.
func (q *Queue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	lines := q.lines
	q.lines = nil
	return lines
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.lines)
}

func (q *Queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	q.lines[0] = ""
	q.lines = q.lines[1:]
	return line, true
}
