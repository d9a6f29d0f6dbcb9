package concurrent

import (
	"errors"
	"time"
)

// ErrScheduleTimeout returned by ScheduleTimeout when no worker picked the
// task up within the given deadline.
var ErrScheduleTimeout = errors.New("schedule error: timed out")

// Pool goroutine pool with a bounded spawn count, used by the websocket
// server so one connection storm cannot spawn unbounded goroutines.
// ref: https://sergey.kamardin.org/articles/million-websocket-and-go/
type Pool struct {
	sem  chan struct{}
	work chan func()
}

// NewPool creates a pool with at most size goroutines, queue pending tasks,
// and spawn workers started eagerly.
func NewPool(size, queue, spawn int) *Pool {
	if spawn <= 0 && queue > 0 {
		panic("dead queue configuration detected")
	}
	if spawn > size {
		spawn = size
	}
	p := &Pool{
		sem:  make(chan struct{}, size),
		work: make(chan func(), queue),
	}
	for i := 0; i < spawn; i++ {
		p.sem <- struct{}{}
		go p.worker(func() {})
	}
	return p
}

// Schedule runs task on a pool worker, blocking until one is available.
func (p *Pool) Schedule(task func()) {
	p.schedule(task, nil)
}

// ScheduleTimeout like Schedule but gives up after timeout.
func (p *Pool) ScheduleTimeout(timeout time.Duration, task func()) error {
	return p.schedule(task, time.After(timeout))
}

func (p *Pool) schedule(task func(), timeout <-chan time.Time) error {
	select {
	case <-timeout:
		return ErrScheduleTimeout
	case p.work <- task:
		return nil
	case p.sem <- struct{}{}:
		go p.worker(task)
		return nil
	}
}

func (p *Pool) worker(task func()) {
	defer func() { <-p.sem }()

	task()
	for task := range p.work {
		task()
	}
}

func (p *Pool) Close() {
	close(p.work)
}
