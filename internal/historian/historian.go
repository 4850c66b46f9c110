// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/arena/internal/cache"
	"github.com/jason-s-yu/arena/internal/database"
	"github.com/jason-s-yu/arena/internal/metrics"
	"github.com/sirupsen/logrus"
)

// ErrUnknownOp is returned for jobs the historian cannot apply.
var ErrUnknownOp = errors.New("unknown job op")

// Service drains the persistence queue into a Recorder, normally the postgres store.
type Service struct {
	queue      cache.Queue
	store      database.Recorder
	popTimeout time.Duration
	logger     *logrus.Entry
}

// New returns a Service. popTimeout bounds each blocking pop so cancellation is
// noticed; 3s when zero.
func New(queue cache.Queue, store database.Recorder, popTimeout time.Duration, logger *logrus.Entry) *Service {
	if popTimeout <= 0 {
		popTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Service{
		queue:      queue,
		store:      store,
		popTimeout: popTimeout,
		logger:     logger.WithField("component", "historian"),
	}
}

// Run pops and applies jobs until ctx is cancelled. Bad or failing jobs are logged and
// dropped.
func (s *Service) Run(ctx context.Context) {
	s.logger.Info("historian started")
	defer s.logger.Info("historian stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Drain(ctx, 1); err != nil && ctx.Err() == nil {
			s.logger.WithError(err).Error("queue pop failed")
			// back off so a dead Redis does not spin the loop
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// Drain applies up to max jobs and returns how many it popped. It stops early when the
// queue is empty; only queue errors are returned.
func (s *Service) Drain(ctx context.Context, max int) (int, error) {
	n := 0
	for n < max {
		payload, err := s.queue.Pop(ctx, s.popTimeout)
		if errors.Is(err, cache.ErrEmpty) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		n++

		var job cache.Job
		if err := json.Unmarshal(payload, &job); err != nil {
			metrics.PersistFailures.WithLabelValues("decode").Inc()
			s.logger.WithError(err).WithField("payload", string(payload)).Error("invalid job")
			continue
		}
		if err := s.Apply(ctx, job); err != nil {
			metrics.PersistFailures.WithLabelValues(job.Op).Inc()
			s.logger.WithFields(logrus.Fields{
				"op":       job.Op,
				"ref":      job.Ref,
				"queuedAt": time.UnixMilli(job.Timestamp),
			}).WithError(err).Error("failed to apply job")
		}
	}
	return n, nil
}

// Apply performs one job against the store.
func (s *Service) Apply(ctx context.Context, job cache.Job) error {
	switch job.Op {
	case cache.OpMatch:
		if job.Match == nil {
			return fmt.Errorf("%s job without a match", job.Op)
		}
		_, err := s.store.RecordMatch(ctx, *job.Match)
		return err
	case cache.OpTournamentStart:
		if job.Tournament == nil {
			return fmt.Errorf("%s job without a tournament", job.Op)
		}
		_, err := s.store.RecordTournamentStart(ctx, *job.Tournament)
		return err
	case cache.OpTournamentEnd:
		return s.store.RecordTournamentEnd(ctx, job.Ref, job.Winner)
	case cache.OpLink:
		return s.store.LinkMatchToTournament(ctx, job.Ref, job.MatchID)
	}
	return fmt.Errorf("%q: %w", job.Op, ErrUnknownOp)
}
