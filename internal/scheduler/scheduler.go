// internal/scheduler/scheduler.go
package scheduler

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jason-s-yu/arena/internal/metrics"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/sirupsen/logrus"
)

// Source yields the rooms to tick. The room registry satisfies it.
type Source interface {
	Active(family room.Family) []*room.Room
}

// MatchEndFunc is called once for every match that ends during a tick, after the
// room's lock has been released.
type MatchEndFunc func(r *room.Room, res *room.MatchResult)

// Options configures a Scheduler.
type Options struct {
	// Interval is the tick period; 60 Hz when zero.
	Interval   time.Duration
	OnMatchEnd MatchEndFunc
	Logger     *logrus.Entry
}

// Scheduler drives every running room of one game family at a fixed rate. It has a
// stoppable handle, and tests call Step directly instead of waiting on the clock.
type Scheduler struct {
	family room.Family
	src    Source
	opts   Options
	logger *logrus.Entry

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New returns a stopped scheduler for family.
func New(family room.Family, src Source, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 60
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scheduler{
		family: family,
		src:    src,
		opts:   opts,
		logger: logger.WithFields(logrus.Fields{"component": "scheduler", "family": family}),
	}
}

// Start launches the tick loop. Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(s.stopCh, s.doneCh)
	s.logger.WithField("interval", s.opts.Interval).Info("scheduler started")
}

// Stop halts the loop and waits for the tick in flight to finish. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	<-done
	s.logger.Info("scheduler stopped")
}

// Running reports whether the tick loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step runs one tick over every running room of the family and returns how many
// rooms advanced. A room whose step panics is logged and skipped; the others still
// tick, and the faulty room is tried again on the next tick.
func (s *Scheduler) Step() int {
	start := time.Now()
	stepped := 0

	for _, r := range s.src.Active(s.family) {
		res, err := s.stepRoom(r)
		if err != nil {
			metrics.TickFaults.WithLabelValues(string(s.family)).Inc()
			s.logger.WithFields(logrus.Fields{
				"room": r.ID,
				"kind": r.Kind,
			}).WithError(err).Error("room step failed, skipping this tick")
			continue
		}
		if !res.Stepped {
			continue
		}
		stepped++
		if res.Ended != nil {
			metrics.MatchesFinished.WithLabelValues(string(r.Kind), res.Ended.Reason()).Inc()
			if s.opts.OnMatchEnd != nil {
				s.opts.OnMatchEnd(r, res.Ended)
			}
		}
	}

	metrics.TickDuration.WithLabelValues(string(s.family)).Observe(time.Since(start).Seconds())
	metrics.RoomsTicked.WithLabelValues(string(s.family)).Set(float64(stepped))
	return stepped
}

func (s *Scheduler) stepRoom(r *room.Room) (res room.TickResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v\n%s", p, debug.Stack())
		}
	}()
	return r.Tick(), nil
}
