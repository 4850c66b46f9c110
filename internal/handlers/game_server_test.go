// internal/handlers/game_server_test.go
package handlers

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/jason-s-yu/arena/internal/tournament"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMatch struct {
	rec models.MatchRecord
	ref uuid.UUID
}

type fakePersister struct {
	mu          sync.Mutex
	matches     []recordedMatch
	tournaments []models.TournamentStart
	ended       []string
}

func (p *fakePersister) RecordTournamentStart(ts models.TournamentStart) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tournaments = append(p.tournaments, ts)
}

func (p *fakePersister) RecordMatch(rec models.MatchRecord, ref uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.matches = append(p.matches, recordedMatch{rec: rec, ref: ref})
}

func (p *fakePersister) RecordTournamentEnd(ref uuid.UUID, winner string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ended = append(p.ended, winner)
}

func (p *fakePersister) matchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.matches)
}

type idleTimer struct{}

func (idleTimer) Stop() bool { return true }

// finishSim ends with seat 0 winning on its first step.
type finishSim struct{}

func (finishSim) Seats() int                  { return 2 }
func (finishSim) IsAI(seat int) bool          { return false }
func (finishSim) Forfeit(winner int)          {}
func (finishSim) Tick() int                   { return 1 }
func (finishSim) Snapshot() interface{}       { return nil }
func (finishSim) Score() interface{}          { return []int{10, 0} }
func (finishSim) Aux() map[string]interface{} { return nil }
func (finishSim) Step(frames []game.Frame) room.Outcome {
	return room.Outcome{Finished: true, Winner: 0}
}

func newTestServer(t *testing.T, sim func(room.Kind, *rand.Rand) room.Simulation) (*GameServer, *fakePersister) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	p := &fakePersister{}
	cfg := config.Default()
	cfg.ReapInterval = 0
	gs := NewGameServer(ServerOptions{
		Config:     cfg,
		Tuning:     config.DefaultTuning(),
		Persist:    p,
		Logger:     logrus.NewEntry(logger),
		AfterFunc:  func(time.Duration, func()) tournament.Timer { return idleTimer{} },
		Simulation: sim,
	})
	return gs, p
}

func newClient(name string) *Client {
	return NewClient(models.Guest(name), 0, 0)
}

func mustHandle(t *testing.T, gs *GameServer, c *Client, msg ClientMessage) {
	t.Helper()
	require.NoError(t, gs.HandleMessage(c, msg))
}

// drain empties c's queue and returns the event types it held.
func drain(c *Client) []room.EventType {
	var out []room.EventType
	for {
		select {
		case ev := <-c.OutChan:
			out = append(out, ev.Type)
		default:
			return out
		}
	}
}

func TestCreateJoinsCreator(t *testing.T) {
	gs, _ := newTestServer(t, nil)
	alice := newClient("alice")

	mustHandle(t, gs, alice, ClientMessage{Type: MsgCreate, Kind: string(room.KindNetworkedPaddle), Name: "Court"})
	r := alice.Room()
	require.NotNil(t, r)
	assert.Equal(t, room.KindNetworkedPaddle, r.Kind)
	assert.Equal(t, []room.EventType{room.EventRole, room.EventRoomState}, drain(alice))

	got, ok := gs.Registry.GetByName("court")
	require.True(t, ok)
	assert.Equal(t, r.ID, got.ID)
}

func TestHandleMessageRejections(t *testing.T) {
	gs, _ := newTestServer(t, nil)
	c := newClient("c")

	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: "dance"}), room.ErrInvalidMessage)
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgReady}), room.ErrNotParticipant)
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgStart}), room.ErrNotParticipant)
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgLeave}), room.ErrNotParticipant)
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgJoin}), room.ErrInvalidMessage)
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgJoin, RoomID: "nope"}), room.ErrRoomNotFound)
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgJoin, RoomID: uuid.NewString()}), room.ErrRoomNotFound)
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgCreate, Kind: "chess"}), room.ErrInvalidKind)
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgCreate, Kind: string(room.KindAIPaddle), Password: "x"}), room.ErrPasswordRequired)

	// input without a room is dropped quietly
	assert.NoError(t, gs.HandleMessage(c, ClientMessage{Type: MsgInput, Input: game.Input{Up: true}}))

	mustHandle(t, gs, c, ClientMessage{Type: MsgCreate, Kind: string(room.KindAIPaddle)})
	assert.ErrorIs(t, gs.HandleMessage(c, ClientMessage{Type: MsgCreate, Kind: string(room.KindAIPaddle)}), room.ErrAlreadyInRoom)
	assert.Equal(t, 1, gs.Registry.Len())
}

func TestJoinByNameWithPassword(t *testing.T) {
	gs, _ := newTestServer(t, nil)
	host, guest := newClient("host"), newClient("guest")

	mustHandle(t, gs, host, ClientMessage{Type: MsgCreate, Kind: string(room.KindNetworkedPaddle), Name: "Secret", Password: "pw"})
	assert.ErrorIs(t, gs.HandleMessage(guest, ClientMessage{Type: MsgJoin, Name: "secret", Password: "bad"}), room.ErrWrongPassword)
	assert.Nil(t, guest.Room())

	mustHandle(t, gs, guest, ClientMessage{Type: MsgJoin, Name: "secret", Password: "pw"})
	assert.Equal(t, host.Room().ID, guest.Room().ID)
}

func TestSpectatorReceivesStateAndCannotReady(t *testing.T) {
	gs, _ := newTestServer(t, nil)
	host, viewer := newClient("host"), newClient("viewer")

	mustHandle(t, gs, host, ClientMessage{Type: MsgCreate, Kind: string(room.KindNetworkedPaddle)})
	mustHandle(t, gs, viewer, ClientMessage{Type: MsgJoin, RoomID: host.Room().ID.String(), Spectate: true})
	assert.Equal(t, []room.EventType{room.EventRole, room.EventRoomState}, drain(viewer))

	assert.ErrorIs(t, gs.HandleMessage(viewer, ClientMessage{Type: MsgReady}), room.ErrNotParticipant)
	mustHandle(t, gs, viewer, ClientMessage{Type: MsgLeave})
	assert.Nil(t, viewer.Room())
}

func TestNetworkedForfeitIsRecorded(t *testing.T) {
	gs, p := newTestServer(t, nil)
	alice, bob := newClient("alice"), newClient("bob")

	mustHandle(t, gs, alice, ClientMessage{Type: MsgCreate, Kind: string(room.KindNetworkedPaddle)})
	r := alice.Room()
	mustHandle(t, gs, bob, ClientMessage{Type: MsgJoin, RoomID: r.ID.String()})
	mustHandle(t, gs, alice, ClientMessage{Type: MsgReady})
	mustHandle(t, gs, bob, ClientMessage{Type: MsgReady})
	require.Equal(t, room.StatusInProgress, r.Status())

	mustHandle(t, gs, alice, ClientMessage{Type: MsgInput, Input: game.Input{Up: true}})
	gs.Disconnect(alice)

	require.Equal(t, 1, p.matchCount())
	assert.Equal(t, "bob", p.matches[0].rec.Winner)
	assert.Equal(t, true, p.matches[0].rec.Aux["forfeit"])
	assert.Equal(t, uuid.Nil, p.matches[0].ref)
}

func TestAbandonedAIMatchIsNotRecorded(t *testing.T) {
	gs, p := newTestServer(t, nil)
	c := newClient("solo")

	mustHandle(t, gs, c, ClientMessage{Type: MsgCreate, Kind: string(room.KindAIPaddle)})
	mustHandle(t, gs, c, ClientMessage{Type: MsgReady})
	require.Equal(t, room.StatusInProgress, c.Room().Status())

	mustHandle(t, gs, c, ClientMessage{Type: MsgLeave})
	assert.Zero(t, p.matchCount())
}

func TestScheduledMatchEndIsRecorded(t *testing.T) {
	gs, p := newTestServer(t, func(room.Kind, *rand.Rand) room.Simulation { return finishSim{} })
	c := newClient("solo")

	mustHandle(t, gs, c, ClientMessage{Type: MsgCreate, Kind: string(room.KindAIPaddle)})
	mustHandle(t, gs, c, ClientMessage{Type: MsgReady})

	assert.Zero(t, gs.Scheduler(room.FamilyBlocks).Step())
	assert.Equal(t, 1, gs.Scheduler(room.FamilyPaddle).Step())
	require.Equal(t, 1, p.matchCount())
	assert.Equal(t, "solo", p.matches[0].rec.Winner)
	assert.Equal(t, room.StatusFinished, c.Room().Status())
}

func TestTournamentRoomsAreDirected(t *testing.T) {
	gs, p := newTestServer(t, nil)
	a, b := newClient("a"), newClient("b")

	mustHandle(t, gs, a, ClientMessage{Type: MsgCreate, Kind: string(room.KindTournamentPaddle), Name: "Cup"})
	r := a.Room()
	d, ok := gs.Director(r.ID)
	require.True(t, ok)

	mustHandle(t, gs, b, ClientMessage{Type: MsgJoin, Name: "cup"})
	assert.ErrorIs(t, gs.HandleMessage(a, ClientMessage{Type: MsgStart}), room.ErrNotEnoughReady)
	mustHandle(t, gs, a, ClientMessage{Type: MsgReady})
	mustHandle(t, gs, b, ClientMessage{Type: MsgReady})
	assert.Equal(t, room.StatusWaiting, r.Status(), "tournaments wait for the creator")

	assert.ErrorIs(t, gs.HandleMessage(b, ClientMessage{Type: MsgStart}), room.ErrNotAuthorized)
	mustHandle(t, gs, a, ClientMessage{Type: MsgStart})
	assert.Equal(t, room.StatusInProgress, r.Status())
	assert.NotEqual(t, uuid.Nil, d.Ref())
	require.Len(t, p.tournaments, 1)
	assert.Equal(t, 2, p.tournaments[0].ParticipantCount)

	// b walks out of the announced match and a wins the tournament
	gs.Disconnect(b)
	assert.True(t, d.Done())
	require.Equal(t, 1, p.matchCount())
	assert.Equal(t, d.Ref(), p.matches[0].ref)
	assert.Equal(t, []string{"a"}, p.ended)

	require.True(t, gs.Registry.Destroy(r.ID))
	_, ok = gs.Director(r.ID)
	assert.False(t, ok)
	assert.Nil(t, a.Room(), "clients drop destroyed rooms")
}

func TestClientSendDropsWhenFull(t *testing.T) {
	c := newClient("slow")
	for i := 0; i < outBuffer; i++ {
		require.True(t, c.Send(room.Event{Type: room.EventSnapshot}))
	}
	assert.False(t, c.Send(room.Event{Type: room.EventSnapshot}))
}

func TestClientInputLimiter(t *testing.T) {
	c := NewClient(models.Guest("fast"), 1, 2)
	assert.True(t, c.allow())
	assert.True(t, c.allow())
	assert.False(t, c.allow())

	unlimited := newClient("free")
	for i := 0; i < 1000; i++ {
		require.True(t, unlimited.allow())
	}
}

func TestRateLimitAppliesOnlyToInput(t *testing.T) {
	gs, _ := newTestServer(t, nil)
	c := NewClient(models.Guest("fast"), 1, 1)
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	input := []byte(`{"type":"input","input":{"up":true}}`)
	assert.True(t, gs.dispatch(c, input, log))
	assert.False(t, gs.dispatch(c, input, log), "the burst is spent")
	assert.Empty(t, drain(c))

	// control messages past the limit still get their advisory reply
	for i := 0; i < 3; i++ {
		assert.True(t, gs.dispatch(c, []byte(`{"type":"leave"}`), log))
	}
	assert.True(t, gs.dispatch(c, []byte(`{"type":"start"}`), log))
	assert.Equal(t, []room.EventType{room.EventError, room.EventError, room.EventError, room.EventError}, drain(c))
}
