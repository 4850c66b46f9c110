// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list the game server pushes persistence jobs to.
const DefaultQueueName = "arena_matches"

// ErrEmpty is returned by Pop when nothing arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

// Job ops.
const (
	OpMatch           = "match"
	OpTournamentStart = "tournament_start"
	OpTournamentEnd   = "tournament_end"
	OpLink            = "link"
)

// Job is one persistence call, serialised for the historian.
type Job struct {
	Op         string                  `json:"op"`
	Match      *models.MatchRecord     `json:"match,omitempty"`
	Tournament *models.TournamentStart `json:"tournament,omitempty"`
	Ref        uuid.UUID               `json:"ref,omitempty"`
	MatchID    uuid.UUID               `json:"match_id,omitempty"`
	Winner     string                  `json:"winner,omitempty"`
	Timestamp  int64                   `json:"timestamp"`
}

// Queue is a FIFO of encoded jobs.
type Queue interface {
	Push(ctx context.Context, payload []byte) error
	// Pop blocks up to timeout and returns ErrEmpty if nothing arrived.
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
}

// Connect opens a Redis client and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisQueue is a Queue on a Redis list: RPush to enqueue, BLPop to dequeue.
type RedisQueue struct {
	rdb  *redis.Client
	name string
}

// NewRedisQueue uses the list name, or DefaultQueueName when empty.
func NewRedisQueue(rdb *redis.Client, name string) *RedisQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &RedisQueue{rdb: rdb, name: name}
}

func (q *RedisQueue) Push(ctx context.Context, payload []byte) error {
	if err := q.rdb.RPush(ctx, q.name, payload).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the list name and res[1] the payload
	if len(res) < 2 {
		return nil, ErrEmpty
	}
	return []byte(res[1]), nil
}

// QueueRecorder satisfies database.Recorder by queueing jobs for the historian instead
// of writing to the database itself. Ids are assigned here so links made before the
// historian catches up still refer to the right rows.
type QueueRecorder struct {
	queue Queue
	now   func() time.Time
}

// NewQueueRecorder pushes onto q.
func NewQueueRecorder(q Queue) *QueueRecorder {
	return &QueueRecorder{queue: q, now: time.Now}
}

func (r *QueueRecorder) RecordMatch(ctx context.Context, rec models.MatchRecord) (uuid.UUID, error) {
	if rec.ID == uuid.Nil {
		rec.ID = newID()
	}
	return rec.ID, r.push(ctx, Job{Op: OpMatch, Match: &rec})
}

func (r *QueueRecorder) RecordTournamentStart(ctx context.Context, ts models.TournamentStart) (uuid.UUID, error) {
	if ts.ID == uuid.Nil {
		ts.ID = newID()
	}
	return ts.ID, r.push(ctx, Job{Op: OpTournamentStart, Tournament: &ts})
}

func (r *QueueRecorder) RecordTournamentEnd(ctx context.Context, ref uuid.UUID, winnerName string) error {
	return r.push(ctx, Job{Op: OpTournamentEnd, Ref: ref, Winner: winnerName})
}

func (r *QueueRecorder) LinkMatchToTournament(ctx context.Context, ref, matchID uuid.UUID) error {
	return r.push(ctx, Job{Op: OpLink, Ref: ref, MatchID: matchID})
}

func (r *QueueRecorder) push(ctx context.Context, job Job) error {
	job.Timestamp = r.now().UnixMilli()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal %s job: %w", job.Op, err)
	}
	return r.queue.Push(ctx, data)
}

func newID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
