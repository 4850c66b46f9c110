// internal/handlers/game_server.go
package handlers

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/jason-s-yu/arena/internal/scheduler"
	"github.com/jason-s-yu/arena/internal/tournament"
	"github.com/sirupsen/logrus"
)

// ServerOptions wires a GameServer.
type ServerOptions struct {
	Config config.Config
	Tuning config.Tuning

	// Persist receives finished matches and tournaments. It must not block.
	Persist tournament.Persister
	Logger  *logrus.Entry

	// Overrides for tests.
	Now        func() time.Time
	AfterFunc  func(d time.Duration, f func()) tournament.Timer
	Simulation func(kind room.Kind, rng *rand.Rand) room.Simulation
}

// GameServer owns the room registry, one scheduler per game family and the tournament
// directors, and routes match outcomes to persistence.
type GameServer struct {
	Registry *room.Registry

	opts      ServerOptions
	logger    *logrus.Entry
	paddle    *scheduler.Scheduler
	blocks    *scheduler.Scheduler
	directors sync.Map // map[uuid.UUID]*tournament.Director
	clients   sync.Map // map[string]*Client

	mu         sync.Mutex
	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

// NewGameServer builds a stopped server.
func NewGameServer(opts ServerOptions) *GameServer {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	gs := &GameServer{opts: opts, logger: logger}

	gs.Registry = room.NewRegistry(room.RegistryOptions{
		MaxRooms:    opts.Config.MaxRooms,
		EmptyGrace:  opts.Config.EmptyRoomGrace,
		FinishedTTL: opts.Config.FinishedRoomTTL,
		Tuning:      opts.Tuning,
		Now:         opts.Now,
		Logger:      logger,
		Simulation:  opts.Simulation,
	})
	gs.Registry.OnDestroy(gs.onDestroy)

	sched := scheduler.Options{
		Interval:   opts.Config.TickInterval(),
		OnMatchEnd: gs.onMatchEnd,
		Logger:     logger,
	}
	gs.paddle = scheduler.New(room.FamilyPaddle, gs.Registry, sched)
	gs.blocks = scheduler.New(room.FamilyBlocks, gs.Registry, sched)
	return gs
}

// Start launches both schedulers and the reaper.
func (gs *GameServer) Start() {
	gs.paddle.Start()
	gs.blocks.Start()

	gs.mu.Lock()
	defer gs.mu.Unlock()
	if gs.stopReaper != nil || gs.opts.Config.ReapInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	gs.stopReaper, gs.reaperDone = cancel, done
	go func() {
		defer close(done)
		gs.Registry.RunReaper(ctx, gs.opts.Config.ReapInterval)
	}()
}

// StopSchedulers halts both tick loops.
func (gs *GameServer) StopSchedulers() {
	gs.paddle.Stop()
	gs.blocks.Stop()
}

// StopReaper halts the reaper and waits for it.
func (gs *GameServer) StopReaper() {
	gs.mu.Lock()
	cancel, done := gs.stopReaper, gs.reaperDone
	gs.stopReaper, gs.reaperDone = nil, nil
	gs.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Scheduler returns the scheduler for family.
func (gs *GameServer) Scheduler(family room.Family) *scheduler.Scheduler {
	if family == room.FamilyBlocks {
		return gs.blocks
	}
	return gs.paddle
}

// CreateRoom registers a room; tournament rooms get a Director.
func (gs *GameServer) CreateRoom(kind room.Kind, creator models.Identity, opts room.CreateOptions) (*room.Room, error) {
	r, err := gs.Registry.Create(kind, creator, opts)
	if err != nil {
		return nil, err
	}
	if kind.IsTournament() {
		d := tournament.NewDirector(r, tournament.Options{
			Countdown:    gs.opts.Config.AnnounceCountdown,
			DestroyDelay: gs.opts.Config.TournamentDestroyDelay,
			Persist:      gs.opts.Persist,
			Destroy:      func(id uuid.UUID) { gs.Registry.Destroy(id) },
			AfterFunc:    gs.opts.AfterFunc,
			Now:          gs.opts.Now,
			Logger:       gs.logger,
		})
		gs.directors.Store(r.ID, d)
	}
	return r, nil
}

// Director returns the tournament director of room id.
func (gs *GameServer) Director(id uuid.UUID) (*tournament.Director, bool) {
	d, ok := gs.directors.Load(id)
	if !ok {
		return nil, false
	}
	return d.(*tournament.Director), true
}

// StartRoom is the creator's explicit start.
func (gs *GameServer) StartRoom(r *room.Room, connID string) error {
	if d, ok := gs.Director(r.ID); ok {
		return d.Start(connID)
	}
	return r.Start(connID)
}

// LeaveRoom removes connID from r. A networked match the departure ends is handled
// like any other match end.
func (gs *GameServer) LeaveRoom(r *room.Room, connID string) {
	if d, ok := gs.Director(r.ID); ok {
		d.HandleLeave(connID)
		return
	}
	res := r.Leave(connID)
	if res.Ended != nil {
		gs.onMatchEnd(r, res.Ended)
	}
}

// SubmitInput passes client input through the room gate.
func (gs *GameServer) SubmitInput(connID string, roomID uuid.UUID, side string, in game.Input) bool {
	return gs.Registry.SubmitInput(connID, roomID, side, in)
}

// onMatchEnd runs outside the room lock, once per finished match.
func (gs *GameServer) onMatchEnd(r *room.Room, res *room.MatchResult) {
	if d, ok := gs.Director(r.ID); ok {
		d.HandleMatchEnd(res)
		return
	}
	if res.Abandoned {
		gs.logger.WithFields(logrus.Fields{"room": r.ID, "kind": r.Kind}).Debug("match abandoned, not recorded")
		return
	}
	if gs.opts.Persist != nil {
		gs.opts.Persist.RecordMatch(res.Record(), uuid.Nil)
	}
}

func (gs *GameServer) onDestroy(r *room.Room) {
	if d, ok := gs.directors.LoadAndDelete(r.ID); ok {
		d.(*tournament.Director).Stop()
	}
}
