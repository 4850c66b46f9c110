// internal/room/room_test.go
package room

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConn records every event it is sent.
type mockConn struct {
	id     string
	mu     sync.Mutex
	events []Event
}

func newMockConn(id string) *mockConn { return &mockConn{id: id} }

func (c *mockConn) ID() string { return c.id }

func (c *mockConn) Send(ev Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return true
}

func (c *mockConn) last(t EventType) (Event, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == t {
			return c.events[i], true
		}
	}
	return Event{}, false
}

func (c *mockConn) count(t EventType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, ev := range c.events {
		if ev.Type == t {
			n++
		}
	}
	return n
}

// fakeSim finishes after finishAt steps and checks that every held input it reads
// has all fields equal, which is how the concurrency test writes them.
type fakeSim struct {
	seats    int
	tick     int
	finishAt int
	winner   int
	torn     int
	frames   [][]game.Frame
}

func (s *fakeSim) Seats() int         { return s.seats }
func (s *fakeSim) IsAI(seat int) bool { return false }
func (s *fakeSim) Forfeit(winner int) { s.winner = winner }
func (s *fakeSim) Tick() int          { return s.tick }
func (s *fakeSim) Snapshot() interface{} {
	return map[string]int{"tick": s.tick}
}
func (s *fakeSim) Score() interface{}          { return []int{0, 0} }
func (s *fakeSim) Aux() map[string]interface{} { return map[string]interface{}{"fake": true} }

func (s *fakeSim) Step(frames []game.Frame) Outcome {
	s.tick++
	for _, f := range frames {
		h := f.Held
		if h.Up != h.Left || h.Up != h.Rotate || h.Up != h.HardDrop || h.Up != h.SoftDrop {
			s.torn++
		}
	}
	s.frames = append(s.frames, frames)
	if s.finishAt > 0 && s.tick >= s.finishAt {
		return Outcome{Finished: true, Winner: s.winner}
	}
	return Outcome{Winner: -1}
}

func newTestRoom(kind Kind) *Room {
	return New(kind, Options{Tuning: config.DefaultTuning(), Seed: 7})
}

func guest(name string) models.Identity { return models.Guest(name) }

// runWithSim forces the room into a running match driven by sim.
func runWithSim(r *Room, sim Simulation) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.sim = sim
	r.status = StatusInProgress
	r.frozen = false
	r.captureLineupUnsafe()
}

func TestJoinRespectsCapacityAndStatus(t *testing.T) {
	r := newTestRoom(KindNetworkedPaddle)
	a, b, c := newMockConn("a"), newMockConn("b"), newMockConn("c")

	require.NoError(t, r.Join(a, guest("alice"), ""))
	require.NoError(t, r.Join(b, guest("bob"), ""))
	assert.ErrorIs(t, r.Join(c, guest("carol"), ""), ErrRoomFull)
	assert.ErrorIs(t, r.Join(a, guest("alice"), ""), ErrAlreadyInRoom)

	role, ok := b.last(EventRole)
	require.True(t, ok)
	assert.Equal(t, 1, *role.Seat)
	assert.Equal(t, "right", role.Side)

	require.NoError(t, r.SetReady("a", true))
	assert.Equal(t, StatusWaiting, r.Status())
	require.NoError(t, r.SetReady("b", true))
	assert.Equal(t, StatusInProgress, r.Status())
	assert.Equal(t, 1, a.count(EventGameStart))

	d := newMockConn("d")
	assert.ErrorIs(t, r.Join(d, guest("dave"), ""), ErrRoomStarted)
	assert.ErrorIs(t, r.SetReady("a", false), ErrRoomStarted)
}

func TestDuplicateNamesAreSuffixed(t *testing.T) {
	r := newTestRoom(KindTournamentPaddle)
	require.NoError(t, r.Join(newMockConn("1"), guest("sam"), ""))
	require.NoError(t, r.Join(newMockConn("2"), guest("sam"), ""))

	r.Mu.Lock()
	defer r.Mu.Unlock()
	assert.Equal(t, "sam", r.slots[0].Identity.DisplayName)
	assert.Equal(t, "sam (2)", r.slots[1].Identity.DisplayName)
}

func TestTournamentRoomHoldsTenPlayers(t *testing.T) {
	r := newTestRoom(KindTournamentPaddle)
	for i := 0; i < MaxParticipants; i++ {
		require.NoError(t, r.Join(newMockConn(fmt.Sprint(i)), guest(fmt.Sprint("p", i)), ""))
	}
	assert.ErrorIs(t, r.Join(newMockConn("late"), guest("late"), ""), ErrRoomFull)

	r.Mu.Lock()
	defer r.Mu.Unlock()
	for _, s := range r.slots {
		assert.Equal(t, NoSeat, s.Seat)
	}
}

func TestCreatorPrivilegeAndExplicitStart(t *testing.T) {
	alice := guest("alice")
	r := New(KindNetworkedPaddle, Options{Tuning: config.DefaultTuning(), Creator: alice})
	a, b := newMockConn("a"), newMockConn("b")

	require.NoError(t, r.Join(b, guest("bob"), ""))
	assert.ErrorIs(t, r.Start("b"), ErrNotEnoughReady, "the only player holds creator until alice arrives")

	require.NoError(t, r.Join(a, alice, ""))
	st, _ := a.last(EventRoomState)
	require.NotNil(t, st.Creator)
	assert.Equal(t, 1, *st.Creator, "alice's slot takes the creator privilege")

	assert.ErrorIs(t, r.Start("b"), ErrNotAuthorized)
	assert.ErrorIs(t, r.Start("zed"), ErrNotParticipant)
	require.NoError(t, r.Start("a"))
	assert.Equal(t, StatusInProgress, r.Status())
	assert.ErrorIs(t, r.Start("a"), ErrRoomStarted)
}

func TestCreatorReassignedOnLeave(t *testing.T) {
	r := newTestRoom(KindTournamentPaddle)
	a, b := newMockConn("a"), newMockConn("b")
	require.NoError(t, r.Join(a, guest("alice"), ""))
	require.NoError(t, r.Join(b, guest("bob"), ""))

	res := r.Leave("a")
	assert.True(t, res.Removed)
	assert.False(t, res.Empty)

	st, _ := b.last(EventRoomState)
	require.NotNil(t, st.Creator)
	assert.Equal(t, 1, *st.Creator)

	res = r.Leave("b")
	assert.True(t, res.Empty)
	assert.False(t, r.Leave("b").Removed)
}

func TestLocalRoomRoutesInputBySide(t *testing.T) {
	r := newTestRoom(KindLocalPaddle)
	c := newMockConn("kbd")
	require.NoError(t, r.Join(c, guest("pat"), ""))

	role, _ := c.last(EventRole)
	assert.Equal(t, "both", role.Side)

	require.NoError(t, r.SetReady("kbd", true))
	require.Equal(t, StatusInProgress, r.Status())

	sim := &fakeSim{seats: 2}
	runWithSim(r, sim)

	assert.False(t, r.SubmitInput("kbd", "", game.Input{Up: true}), "shared controller needs a side")
	assert.True(t, r.SubmitInput("kbd", "left", game.Input{Up: true}))
	assert.True(t, r.SubmitInput("kbd", "right", game.Input{Down: true}))

	require.True(t, r.Tick().Stepped)
	frames := sim.frames[0]
	assert.True(t, frames[0].Held.Up)
	assert.False(t, frames[0].Held.Down)
	assert.True(t, frames[1].Held.Down)
	assert.False(t, frames[1].Held.Up)
}

func TestGateDropsInputSilently(t *testing.T) {
	reg := NewRegistry(RegistryOptions{Tuning: config.DefaultTuning()})
	r, err := reg.Create(KindNetworkedBlocks, guest("alice"), CreateOptions{})
	require.NoError(t, err)

	a, b, s := newMockConn("a"), newMockConn("b"), newMockConn("viewer")
	require.NoError(t, r.Join(a, guest("alice"), ""))

	assert.False(t, reg.SubmitInput("a", r.ID, "", game.Input{Left: true}), "room is waiting")
	assert.False(t, reg.SubmitInput("a", uuid.New(), "", game.Input{Left: true}), "unknown room")

	require.NoError(t, r.Join(b, guest("bob"), ""))
	require.NoError(t, r.Start("a"))
	require.NoError(t, r.Spectate(s, ""))

	assert.True(t, reg.SubmitInput("a", r.ID, "", game.Input{Left: true}))
	assert.False(t, reg.SubmitInput("viewer", r.ID, "", game.Input{Left: true}), "spectators own no slot")
	assert.False(t, reg.SubmitInput("zed", r.ID, "", game.Input{Left: true}), "not a participant")

	r.Tick()
	snap, ok := s.last(EventSnapshot)
	require.True(t, ok, "spectators receive snapshots")
	assert.Equal(t, 1, snap.Tick)
}

func TestNormalizeCancelsOpposites(t *testing.T) {
	in := Normalize(game.Input{Up: true, Down: true, Left: true, Rotate: true})
	assert.Equal(t, game.Input{Left: true, Rotate: true}, in)
}

func TestConcurrentInputIsNeverTorn(t *testing.T) {
	r := newTestRoom(KindNetworkedPaddle)
	require.NoError(t, r.Join(newMockConn("a"), guest("alice"), ""))
	require.NoError(t, r.Join(newMockConn("b"), guest("bob"), ""))
	sim := &fakeSim{seats: 2}
	runWithSim(r, sim)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				on := (i+w)%2 == 0
				r.SubmitInput("a", "", game.Input{Up: on, Left: on, Rotate: on, HardDrop: on, SoftDrop: on})
			}
		}(w)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			r.Tick()
		}
	}()
	wg.Wait()
	<-done

	r.Mu.Lock()
	defer r.Mu.Unlock()
	assert.Equal(t, 200, sim.tick)
	assert.Zero(t, sim.torn)
}

func TestTickEndsMatchAndStopsTicking(t *testing.T) {
	r := newTestRoom(KindNetworkedPaddle)
	a, b := newMockConn("a"), newMockConn("b")
	require.NoError(t, r.Join(a, guest("alice"), ""))
	require.NoError(t, r.Join(b, guest("bob"), ""))
	runWithSim(r, &fakeSim{seats: 2, finishAt: 3, winner: 1})

	assert.Nil(t, r.Tick().Ended)
	assert.Nil(t, r.Tick().Ended)
	res := r.Tick()
	require.NotNil(t, res.Ended)
	assert.Equal(t, 1, res.Ended.Winner)
	assert.Equal(t, "bob", res.Ended.Record().Winner)
	assert.Equal(t, StatusFinished, r.Status())

	end, ok := a.last(EventGameEnd)
	require.True(t, ok)
	assert.Equal(t, "bob", end.Winner.Name)

	assert.False(t, r.Tick().Stepped)
	assert.Equal(t, 3, a.count(EventSnapshot))
}

func TestNetworkedLeaveIsForfeit(t *testing.T) {
	r := newTestRoom(KindNetworkedPaddle)
	a, b := newMockConn("a"), newMockConn("b")
	require.NoError(t, r.Join(a, guest("alice"), ""))
	require.NoError(t, r.Join(b, guest("bob"), ""))
	require.NoError(t, r.Start("a"))
	for i := 0; i < 5; i++ {
		r.Tick()
	}

	res := r.Leave("a")
	require.NotNil(t, res.Ended)
	assert.True(t, res.Ended.Forfeit)
	assert.Equal(t, 1, res.Ended.Winner)
	rec := res.Ended.Record()
	assert.Equal(t, "bob", rec.Winner)
	assert.Equal(t, true, rec.Aux["forfeit"])
	assert.Equal(t, StatusFinished, r.Status())
	assert.False(t, r.Tick().Stepped)
}

func TestAIRoomEndsWhenHumanLeaves(t *testing.T) {
	r := newTestRoom(KindAIBlocks)
	require.NoError(t, r.Join(newMockConn("a"), guest("alice"), ""))
	require.NoError(t, r.SetReady("a", true))
	require.Equal(t, StatusInProgress, r.Status())
	r.Tick()

	res := r.Leave("a")
	require.NotNil(t, res.Ended)
	assert.True(t, res.Ended.Abandoned)
	assert.Equal(t, NoSeat, res.Ended.Loser())
	assert.Empty(t, res.Ended.Record().Winner)
	assert.True(t, res.Empty)
	assert.Equal(t, StatusFinished, r.Status())
}

func TestAIOpponentIsRecordedAsAI(t *testing.T) {
	r := newTestRoom(KindAIPaddle)
	require.NoError(t, r.Join(newMockConn("a"), guest("alice"), ""))
	require.NoError(t, r.SetReady("a", true))

	r.Mu.Lock()
	res := r.ForfeitUnsafe(1)
	r.Mu.Unlock()

	rec := res.Record()
	assert.Equal(t, "alice", rec.Player1.Name)
	assert.Equal(t, models.AIPlayer, rec.Player2)
	assert.Equal(t, "AI", rec.Winner)
	assert.Equal(t, "paddle", rec.GameName)
	assert.Equal(t, "ai-paddle", rec.Aux["kind"])
}

func TestRemovedSeatReadsNeutralInput(t *testing.T) {
	r := newTestRoom(KindTournamentPaddle)
	a, b := newMockConn("a"), newMockConn("b")
	require.NoError(t, r.Join(a, guest("alice"), ""))
	require.NoError(t, r.Join(b, guest("bob"), ""))

	sim := &fakeSim{seats: 2}
	r.Mu.Lock()
	r.BeginUnsafe()
	r.InstallMatchUnsafe(r.slots[0], r.slots[1])
	r.sim = sim
	r.ReleaseMatchUnsafe()
	r.Mu.Unlock()

	require.True(t, r.SubmitInput("b", "", game.Input{Up: true, Left: true, Rotate: true, HardDrop: true, SoftDrop: true}))
	r.Mu.Lock()
	r.RemoveConnUnsafe("b")
	r.Mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			r.Tick()
		}
	}()
	wg.Wait()

	require.Len(t, sim.frames, 10)
	for _, frames := range sim.frames {
		assert.Equal(t, game.Frame{}, frames[1])
	}
}

func TestFrozenRoomIgnoresInputAndTicks(t *testing.T) {
	r := newTestRoom(KindTournamentPaddle)
	require.NoError(t, r.Join(newMockConn("a"), guest("alice"), ""))
	require.NoError(t, r.Join(newMockConn("b"), guest("bob"), ""))

	r.Mu.Lock()
	r.BeginUnsafe()
	r.InstallMatchUnsafe(r.slots[0], r.slots[1])
	r.Mu.Unlock()

	assert.True(t, r.Frozen())
	assert.False(t, r.SubmitInput("a", "", game.Input{Up: true}))
	assert.False(t, r.Tick().Stepped)

	r.Mu.Lock()
	r.ReleaseMatchUnsafe()
	r.Mu.Unlock()
	assert.True(t, r.SubmitInput("a", "", game.Input{Up: true}))
	assert.True(t, r.Tick().Stepped)
}

func TestEndedMatchCannotBeForfeitedAgain(t *testing.T) {
	r := newTestRoom(KindAIPaddle)
	require.NoError(t, r.Join(newMockConn("a"), guest("alice"), ""))
	require.NoError(t, r.SetReady("a", true))

	r.Mu.Lock()
	defer r.Mu.Unlock()
	assert.Equal(t, 1, r.MatchUnsafe())
	assert.False(t, r.MatchOverUnsafe())

	res := r.ForfeitUnsafe(0)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Match)
	assert.True(t, r.MatchOverUnsafe())
	assert.Nil(t, r.ForfeitUnsafe(1))
}
