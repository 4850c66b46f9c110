// internal/database/async.go
package database

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/metrics"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrClosed is returned by Close when the recorder was already closed.
var ErrClosed = errors.New("async recorder closed")

// AsyncOptions configures an AsyncRecorder.
type AsyncOptions struct {
	// Buffer is the number of pending jobs before new ones are dropped; 256 when zero.
	Buffer int
	// Timeout bounds each store call; 5s when zero.
	Timeout time.Duration
	Logger  *logrus.Entry
}

type job struct {
	op     string
	fields logrus.Fields
	run    func(ctx context.Context) error
}

// AsyncRecorder hands match and tournament records to a Recorder on a background
// worker. Its methods never block, so the game loop and the tournament director may
// call them while holding a room lock. Jobs run one at a time in submission order, so
// a tournament row always exists before its matches are linked to it. Failures are
// logged and counted, never retried.
type AsyncRecorder struct {
	rec    Recorder
	opts   AsyncOptions
	logger *logrus.Entry

	mu     sync.Mutex
	closed bool
	jobs   chan job
	wg     sync.WaitGroup
}

// NewAsyncRecorder starts the worker.
func NewAsyncRecorder(rec Recorder, opts AsyncOptions) *AsyncRecorder {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	a := &AsyncRecorder{
		rec:    rec,
		opts:   opts,
		logger: logger.WithField("component", "persistence"),
		jobs:   make(chan job, opts.Buffer),
	}
	a.wg.Add(1)
	go a.worker()
	return a
}

// RecordMatch persists rec and, when tournamentRef is not uuid.Nil, links it to the
// tournament.
func (a *AsyncRecorder) RecordMatch(rec models.MatchRecord, tournamentRef uuid.UUID) {
	rec.ID = ensureID(rec.ID)
	a.enqueue(job{
		op: "record_match",
		fields: logrus.Fields{
			"match":      rec.ID,
			"game":       rec.GameName,
			"player1":    rec.Player1.Name,
			"player2":    rec.Player2.Name,
			"winner":     rec.Winner,
			"tournament": tournamentRef,
		},
		run: func(ctx context.Context) error {
			id, err := a.rec.RecordMatch(ctx, rec)
			if err != nil {
				return err
			}
			if tournamentRef == uuid.Nil {
				return nil
			}
			return a.rec.LinkMatchToTournament(ctx, tournamentRef, id)
		},
	})
}

// RecordTournamentStart persists ts. ts.ID must already be set so later jobs can
// refer to it.
func (a *AsyncRecorder) RecordTournamentStart(ts models.TournamentStart) {
	a.enqueue(job{
		op:     "tournament_start",
		fields: logrus.Fields{"tournament": ts.ID, "players": ts.ParticipantCount},
		run: func(ctx context.Context) error {
			_, err := a.rec.RecordTournamentStart(ctx, ts)
			return err
		},
	})
}

// RecordTournamentEnd persists the winner of tournament ref.
func (a *AsyncRecorder) RecordTournamentEnd(ref uuid.UUID, winnerName string) {
	a.enqueue(job{
		op:     "tournament_end",
		fields: logrus.Fields{"tournament": ref, "winner": winnerName},
		run: func(ctx context.Context) error {
			return a.rec.RecordTournamentEnd(ctx, ref, winnerName)
		},
	})
}

// Pending returns the number of queued jobs.
func (a *AsyncRecorder) Pending() int {
	return len(a.jobs)
}

// Close stops accepting jobs and waits for the queue to drain or ctx to expire.
func (a *AsyncRecorder) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	a.closed = true
	close(a.jobs)
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		a.logger.WithField("pending", len(a.jobs)).Warn("persistence drain interrupted")
		return ctx.Err()
	}
}

func (a *AsyncRecorder) enqueue(j job) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		metrics.PersistFailures.WithLabelValues(j.op).Inc()
		a.logger.WithFields(j.fields).WithField("op", j.op).Warn("persistence closed, dropping record")
		return
	}
	select {
	case a.jobs <- j:
	default:
		metrics.PersistFailures.WithLabelValues(j.op).Inc()
		a.logger.WithFields(j.fields).WithField("op", j.op).Error("persistence queue full, dropping record")
	}
}

func (a *AsyncRecorder) worker() {
	defer a.wg.Done()
	for j := range a.jobs {
		a.run(j)
	}
}

func (a *AsyncRecorder) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.Timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			metrics.PersistFailures.WithLabelValues(j.op).Inc()
			a.logger.WithFields(j.fields).WithField("op", j.op).Errorf("persistence panic: %v", p)
		}
	}()

	if err := j.run(ctx); err != nil {
		metrics.PersistFailures.WithLabelValues(j.op).Inc()
		a.logger.WithFields(j.fields).WithField("op", j.op).WithError(err).Error("failed to persist record")
		return
	}
	a.logger.WithFields(j.fields).WithField("op", j.op).Debug("record persisted")
}
