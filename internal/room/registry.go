// internal/room/registry.go
package room

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/auth"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/metrics"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/sirupsen/logrus"
)

// RegistryOptions configures a Registry. Zero durations disable the matching reaping
// rule; a zero MaxRooms means no limit.
type RegistryOptions struct {
	MaxRooms    int
	EmptyGrace  time.Duration
	FinishedTTL time.Duration
	Tuning      config.Tuning
	Now         func() time.Time
	Logger      *logrus.Entry
	// Simulation is passed to every room; see Options.Simulation.
	Simulation func(kind Kind, rng *rand.Rand) Simulation
}

// CreateOptions are the client-supplied parts of a room.
type CreateOptions struct {
	Name     string
	Password string
}

// Registry is the in-memory index of every room, by id and by name. Its mutex only
// guards the maps; room state is guarded by each room's own mutex and is never
// touched while the registry lock is held.
type Registry struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
	names map[string]uuid.UUID

	opts      RegistryOptions
	seed      *rand.Rand
	onDestroy []func(*Room)
	logger    *logrus.Entry
}

// NewRegistry returns an empty registry.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Registry{
		rooms:  make(map[uuid.UUID]*Room),
		names:  make(map[string]uuid.UUID),
		opts:   opts,
		seed:   rand.New(rand.NewSource(opts.Now().UnixNano())),
		logger: logger.WithField("component", "registry"),
	}
}

// OnDestroy registers fn to run after a room is removed. Hooks run outside the
// registry lock, in registration order.
func (g *Registry) OnDestroy(fn func(*Room)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onDestroy = append(g.onDestroy, fn)
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Create registers a new waiting room. Names are optional but globally unique; a
// password requires a name. The password is hashed before the registry lock is taken.
func (g *Registry) Create(kind Kind, creator models.Identity, opts CreateOptions) (*Room, error) {
	name := strings.TrimSpace(opts.Name)
	if opts.Password != "" && name == "" {
		return nil, ErrPasswordRequired
	}

	var hash string
	if opts.Password != "" {
		h, err := auth.HashRoomPassword(opts.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash room password: %w", err)
		}
		hash = h
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.opts.MaxRooms > 0 && len(g.rooms) >= g.opts.MaxRooms {
		return nil, ErrCapacity
	}
	if name != "" {
		if _, taken := g.names[nameKey(name)]; taken {
			return nil, ErrNameTaken
		}
	}

	r := New(kind, Options{
		Name:         name,
		PasswordHash: hash,
		Creator:      creator,
		Tuning:       g.opts.Tuning,
		Seed:         g.seed.Int63(),
		Now:          g.opts.Now,
		Simulation:   g.opts.Simulation,
	})
	g.rooms[r.ID] = r
	if name != "" {
		g.names[nameKey(name)] = r.ID
	}

	metrics.RoomsCreated.WithLabelValues(string(kind)).Inc()
	metrics.RoomsOpen.WithLabelValues(string(kind)).Inc()
	g.logger.WithFields(logrus.Fields{
		"room":    r.ID,
		"kind":    kind,
		"name":    name,
		"creator": creator.DisplayName,
	}).Debug("room created")
	return r, nil
}

// Get looks a room up by id.
func (g *Registry) Get(id uuid.UUID) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.rooms[id]
	return r, ok
}

// GetByName looks a named room up, case-insensitively.
func (g *Registry) GetByName(name string) (*Room, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.names[nameKey(name)]
	if !ok {
		return nil, false
	}
	r, ok := g.rooms[id]
	return r, ok
}

// JoinByName resolves a named room and joins it.
func (g *Registry) JoinByName(name string, conn Conn, id models.Identity, password string) (*Room, error) {
	r, ok := g.GetByName(name)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if err := r.Join(conn, id, password); err != nil {
		return nil, err
	}
	return r, nil
}

// Destroy removes the room, releases its name, runs the destroy hooks and closes it.
// It reports whether the room existed.
func (g *Registry) Destroy(id uuid.UUID) bool {
	g.mu.Lock()
	r, ok := g.rooms[id]
	if ok {
		delete(g.rooms, id)
		if r.Name != "" {
			delete(g.names, nameKey(r.Name))
		}
	}
	hooks := append([]func(*Room){}, g.onDestroy...)
	g.mu.Unlock()

	if !ok {
		return false
	}
	metrics.RoomsOpen.WithLabelValues(string(r.Kind)).Dec()

	for _, fn := range hooks {
		fn(r)
	}
	r.Close()
	g.logger.WithField("room", id).Debug("room destroyed")
	return true
}

// List returns a summary of every room, oldest first.
func (g *Registry) List() []Summary {
	rooms := g.snapshot()
	out := make([]Summary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Active returns the running rooms of one family.
func (g *Registry) Active(family Family) []*Room {
	var out []*Room
	for _, r := range g.snapshot() {
		if r.Kind.Family() == family && r.Status() == StatusInProgress {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of rooms.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// Reap destroys every expired room and returns how many were removed.
func (g *Registry) Reap(now time.Time) int {
	n := 0
	for _, r := range g.snapshot() {
		if !r.Expired(now, g.opts.EmptyGrace, g.opts.FinishedTTL) {
			continue
		}
		if g.Destroy(r.ID) {
			n++
		}
	}
	if n > 0 {
		metrics.RoomsReaped.Add(float64(n))
		g.logger.WithField("count", n).Info("reaped stale rooms")
	}
	return n
}

// RunReaper calls Reap every interval until ctx is done.
func (g *Registry) RunReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Reap(g.opts.Now())
		}
	}
}

// snapshot copies the room set so callers can lock rooms without the registry lock.
func (g *Registry) snapshot() []*Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Room, 0, len(g.rooms))
	for _, r := range g.rooms {
		out = append(out, r)
	}
	return out
}
