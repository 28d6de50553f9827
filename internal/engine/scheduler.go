package engine

import (
	"sync"
	"time"
)

// Scheduler drives the evaluation cycle. At most one ticker runs at a time;
// Stop returns only after the ticker goroutine has exited.
type Scheduler struct {
	interval time.Duration
	emit     func(TimerFire) bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

func NewScheduler(interval time.Duration, emit func(TimerFire) bool) *Scheduler {
	return &Scheduler{interval: interval, emit: emit}
}

// Start replaces any running ticker with one stamped with gen.
func (s *Scheduler) Start(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case t := <-ticker.C:
				// drop the fire when the loop is backed up; the next one will do
				_ = s.emit(TimerFire{Gen: gen, At: t})
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Scheduler) stopLocked() {
	if s.stop == nil {
		return
	}
	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil
}
