package scheduler

import (
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
)

// Scheduler runs keyed actions after a quiet period. Scheduling a key that
// already has a pending action supersedes it: only the last call within the
// window fires.
type Scheduler struct {
	clock clock.Clock

	mutex   sync.Mutex
	pending map[string]*entry
	seq     uint64
	stopped bool
}

type entry struct {
	seq   uint64
	timer *clock.Timer
}

// New creates a scheduler driven by clk. Use clock.New() outside tests.
func New(clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		clock:   clk,
		pending: make(map[string]*entry),
	}
}

// Schedule arranges for action to run once delay has elapsed without another
// Schedule call for the same key.
func (s *Scheduler) Schedule(key string, delay time.Duration, action func()) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.stopped {
		return
	}

	if previous, ok := s.pending[key]; ok {
		previous.timer.Stop()
		zap.L().Debug("Superseded pending action", zap.String("key", key))
	}

	s.seq++
	e := &entry{seq: s.seq}
	seq := s.seq
	// AfterFunc must not run the callback inline: fire takes s.mutex.
	s.pending[key] = e
	e.timer = s.clock.AfterFunc(delay, func() {
		s.fire(key, seq, action)
	})
}

// fire runs action unless it was superseded or cancelled after its timer expired.
func (s *Scheduler) fire(key string, seq uint64, action func()) {
	s.mutex.Lock()
	current, ok := s.pending[key]
	if !ok || current.seq != seq || s.stopped {
		s.mutex.Unlock()
		return
	}
	delete(s.pending, key)
	s.mutex.Unlock()

	action()
}

// Cancel drops the pending action for key, if any
func (s *Scheduler) Cancel(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if e, ok := s.pending[key]; ok {
		e.timer.Stop()
		delete(s.pending, key)
	}
}

// Pending reports whether key has an action waiting to fire
func (s *Scheduler) Pending(key string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, ok := s.pending[key]
	return ok
}

// Stop cancels every pending action. Later Schedule calls are ignored.
func (s *Scheduler) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for key, e := range s.pending {
		e.timer.Stop()
		delete(s.pending, key)
	}
	s.stopped = true
}
