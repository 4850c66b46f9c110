// internal/room/room.go
package room

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/auth"
	"github.com/jason-s-yu/arena/internal/config"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/models"
)

// Status is the room lifecycle: waiting -> in_progress -> finished.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
)

// Options configures a new room.
type Options struct {
	Name         string
	PasswordHash string
	// Creator is the identity that asked for the room. When that identity joins it
	// holds the creator privilege; until then the first joiner does.
	Creator models.Identity
	Tuning  config.Tuning
	Seed    int64
	Now     func() time.Time
	// Simulation overrides the kernel chosen for the kind. Nil uses the tuning presets.
	Simulation func(kind Kind, rng *rand.Rand) Simulation
}

// Room owns one simulation and the slots that feed it. One room is one independent
// game; nothing is shared between rooms.
type Room struct {
	ID        uuid.UUID
	Kind      Kind
	Name      string
	CreatedAt time.Time

	passwordHash string
	creatorKey   string
	tuning       config.Tuning
	simFactory   func(Kind, *rand.Rand) Simulation
	now          func() time.Time

	// Mu guards all fields below. Methods suffixed Unsafe expect the caller to hold it.
	Mu         sync.Mutex
	status     Status
	slots      []*Slot
	nextSlotID int
	creator    int
	spectators map[string]Conn
	sim        Simulation
	match      int
	matchOver  bool
	frozen     bool
	closed     bool
	rng        *rand.Rand

	// lineup is who sat in each seat when the current match started.
	lineup        [2]PlayerView
	lineupRecords [2]models.PlayerRecord

	startedAt  time.Time
	lastTickAt time.Time
	finishedAt time.Time
	emptySince time.Time
}

// MatchResult describes a match that reached a terminal state. Abandoned matches
// ended because no human was left to play; they have no winner and are not persisted.
type MatchResult struct {
	RoomID     uuid.UUID
	Kind       Kind
	// Match numbers the matches played in the room, starting at 1.
	Match      int
	Seats      [2]PlayerView
	Players    [2]models.PlayerRecord
	Winner     int
	Forfeit    bool
	Abandoned  bool
	Score      interface{}
	Aux        map[string]interface{}
	StartedAt  time.Time
	FinishedAt time.Time
}

// Loser returns the losing seat, or NoSeat for abandoned matches.
func (m *MatchResult) Loser() int {
	if m.Winner != 0 && m.Winner != 1 {
		return NoSeat
	}
	return 1 - m.Winner
}

// Record converts the result into the persisted form.
func (m *MatchResult) Record() models.MatchRecord {
	rec := models.MatchRecord{
		GameName:   m.Kind.GameName(),
		StartedAt:  m.StartedAt,
		FinishedAt: m.FinishedAt,
		Player1:    m.Players[0],
		Player2:    m.Players[1],
		Aux:        map[string]interface{}{"kind": string(m.Kind)},
	}
	for k, v := range m.Aux {
		rec.Aux[k] = v
	}
	if m.Forfeit {
		rec.Aux["forfeit"] = true
	}
	if m.Winner == 0 || m.Winner == 1 {
		rec.Winner = m.Players[m.Winner].Name
	}
	return rec
}

// Reason labels how the match ended.
func (m *MatchResult) Reason() string {
	switch {
	case m.Abandoned:
		return "abandoned"
	case m.Forfeit:
		return "forfeit"
	}
	return "score"
}

// New creates a room in the waiting state.
func New(kind Kind, opts Options) *Room {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	id, _ := uuid.NewV7()
	created := now()

	r := &Room{
		ID:           id,
		Kind:         kind,
		Name:         opts.Name,
		CreatedAt:    created,
		passwordHash: opts.PasswordHash,
		tuning:       opts.Tuning,
		simFactory:   opts.Simulation,
		now:          now,
		status:       StatusWaiting,
		creator:      -1,
		spectators:   make(map[string]Conn),
		rng:          rand.New(rand.NewSource(opts.Seed)),
		emptySince:   created,
	}
	if opts.Creator.DisplayName != "" {
		r.creatorKey = opts.Creator.Key()
	}
	return r
}

// HasPassword reports whether joining requires a password.
func (r *Room) HasPassword() bool { return r.passwordHash != "" }

// CheckPassword verifies password against the room's hash in constant time. The hash
// never changes after creation, so no lock is needed and the slow argon2 work stays
// outside the room's critical section.
func (r *Room) CheckPassword(password string) error {
	if r.passwordHash == "" {
		return nil
	}
	ok, err := auth.VerifyPassword(password, r.passwordHash)
	if err != nil || !ok {
		return ErrWrongPassword
	}
	return nil
}

// Join seats conn in the room. Joins are only accepted while waiting and below the
// kind's capacity.
func (r *Room) Join(conn Conn, id models.Identity, password string) error {
	if err := r.CheckPassword(password); err != nil {
		return err
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed {
		return ErrRoomNotFound
	}
	if r.slotByConnUnsafe(conn.ID()) != nil {
		return ErrAlreadyInRoom
	}
	if r.status != StatusWaiting {
		return ErrRoomStarted
	}
	if r.connectionCountUnsafe() >= r.Kind.Capacity() {
		return ErrRoomFull
	}

	id.DisplayName = r.uniqueNameUnsafe(id.DisplayName)

	var added []*Slot
	switch {
	case r.Kind.SharedController():
		added = append(added, r.addSlotUnsafe(conn, id, 0), r.addSlotUnsafe(conn, id, 1))
	case r.Kind.IsTournament():
		added = append(added, r.addSlotUnsafe(conn, id, NoSeat))
	default:
		added = append(added, r.addSlotUnsafe(conn, id, r.freeSeatUnsafe()))
	}

	if r.creator < 0 || (r.creatorKey != "" && id.Key() == r.creatorKey && !r.creatorPresentUnsafe()) {
		r.creator = added[0].ID
	}
	r.emptySince = time.Time{}

	conn.Send(r.roleEventUnsafe(added[0]))
	r.BroadcastStateUnsafe()
	return nil
}

// Spectate attaches conn as a read-only viewer. Spectators receive every broadcast
// but own no slot, so the input gate ignores them.
func (r *Room) Spectate(conn Conn, password string) error {
	if err := r.CheckPassword(password); err != nil {
		return err
	}

	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.closed || r.status == StatusFinished {
		return ErrRoomStarted
	}
	if r.slotByConnUnsafe(conn.ID()) != nil {
		return ErrAlreadyInRoom
	}
	r.spectators[conn.ID()] = conn
	conn.Send(Event{Type: EventRole, RoomID: r.ID.String(), Kind: r.Kind, Spectator: true})
	conn.Send(r.stateEventUnsafe())
	return nil
}

// LeaveResult reports the consequences of a departure.
type LeaveResult struct {
	Removed bool
	// Empty is set when no participant slot is left.
	Empty bool
	// Ended is set when the departure ended the running match.
	Ended *MatchResult
}

// Leave removes every slot owned by connID. It is safe to call while a tick is in
// flight: the removal happens under the room lock, and later ticks read neutral input
// for the vacated seat. Tournament rooms route departures through their Director.
func (r *Room) Leave(connID string) LeaveResult {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if _, ok := r.spectators[connID]; ok {
		delete(r.spectators, connID)
		return LeaveResult{Removed: true, Empty: len(r.slots) == 0}
	}

	removed := r.RemoveConnUnsafe(connID)
	if len(removed) == 0 {
		return LeaveResult{}
	}
	res := LeaveResult{Removed: true, Empty: len(r.slots) == 0}

	if r.status == StatusInProgress && r.sim != nil {
		switch {
		case r.Kind.Capacity() == 2:
			// networked 1v1: the player still seated wins by forfeit
			winner := NoSeat
			for _, s := range r.slots {
				if s.Seat == 0 || s.Seat == 1 {
					winner = s.Seat
				}
			}
			if winner != NoSeat {
				res.Ended = r.ForfeitUnsafe(winner)
			} else {
				res.Ended = r.abandonUnsafe()
			}
		case !r.Kind.IsTournament():
			res.Ended = r.abandonUnsafe()
		}
	}

	r.BroadcastStateUnsafe()
	return res
}

// SetReady toggles the ready flag of every slot owned by connID. Non-tournament rooms
// start as soon as every required player is present and ready.
func (r *Room) SetReady(connID string, ready bool) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	owned := r.slotsByConnUnsafe(connID)
	if len(owned) == 0 {
		return ErrNotParticipant
	}
	if r.status != StatusWaiting {
		return ErrRoomStarted
	}
	for _, s := range owned {
		s.Ready = ready
	}
	r.BroadcastStateUnsafe()

	if !r.Kind.IsTournament() && r.connectionCountUnsafe() >= r.Kind.Capacity() && r.AllReadyUnsafe() {
		r.startUnsafe()
	}
	return nil
}

// Start is the creator's explicit start for non-tournament rooms. It requires every
// seat a human plays to be filled, but not every player to be ready.
func (r *Room) Start(connID string) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	s := r.slotByConnUnsafe(connID)
	if s == nil {
		return ErrNotParticipant
	}
	if r.Kind.IsTournament() || s.ID != r.creator {
		return ErrNotAuthorized
	}
	if r.status != StatusWaiting {
		return ErrRoomStarted
	}
	if r.connectionCountUnsafe() < r.Kind.Capacity() {
		return ErrNotEnoughReady
	}
	r.startUnsafe()
	return nil
}

// TickResult reports what one Tick did.
type TickResult struct {
	Stepped bool
	Ended   *MatchResult
}

// Tick advances the simulation by one step, using the latest input of every seat, and
// broadcasts the snapshot. Rooms that are not running, or frozen for a tournament
// announcement, are left untouched.
func (r *Room) Tick() TickResult {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.status != StatusInProgress || r.frozen || r.sim == nil {
		return TickResult{}
	}
	now := r.now()

	// a seat whose slot has gone reads the zero frame
	frames := make([]game.Frame, r.sim.Seats())
	for _, s := range r.slots {
		if s.Seat >= 0 && s.Seat < len(frames) {
			frames[s.Seat] = s.latch.Consume()
		}
	}
	out := r.sim.Step(frames)
	r.lastTickAt = now

	r.BroadcastUnsafe(Event{Type: EventSnapshot, Tick: r.sim.Tick(), State: r.sim.Snapshot()})

	res := TickResult{Stepped: true}
	if out.Finished {
		res.Ended = r.endMatchUnsafe(out.Winner, false)
	}
	return res
}

// Status returns the lifecycle state.
func (r *Room) Status() Status {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.status
}

// Frozen reports whether ticks are suspended for a tournament announcement.
func (r *Room) Frozen() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.frozen
}

// Summary is the public listing entry of a room.
type Summary struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Name        string    `json:"name,omitempty"`
	Status      Status    `json:"status"`
	Players     int       `json:"players"`
	Capacity    int       `json:"capacity"`
	Spectators  int       `json:"spectators"`
	HasPassword bool      `json:"hasPassword"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Summary returns the listing entry for the room.
func (r *Room) Summary() Summary {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return Summary{
		ID:          r.ID.String(),
		Kind:        r.Kind,
		Name:        r.Name,
		Status:      r.status,
		Players:     r.connectionCountUnsafe(),
		Capacity:    r.Kind.Capacity(),
		Spectators:  len(r.spectators),
		HasPassword: r.HasPassword(),
		CreatedAt:   r.CreatedAt,
	}
}

// Expired reports whether the reaper should destroy the room: nobody has been in it
// for emptyGrace, or it finished more than finishedTTL ago. A zero duration disables
// its rule.
func (r *Room) Expired(now time.Time, emptyGrace, finishedTTL time.Duration) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if finishedTTL > 0 && r.status == StatusFinished && !r.finishedAt.IsZero() && now.Sub(r.finishedAt) >= finishedTTL {
		return true
	}
	return emptyGrace > 0 && len(r.slots) == 0 && !r.emptySince.IsZero() && now.Sub(r.emptySince) >= emptyGrace
}

// Close marks the room as destroyed and tells everyone still attached.
func (r *Room) Close() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.status != StatusFinished {
		r.status = StatusFinished
		r.finishedAt = r.now()
	}
	r.BroadcastStateUnsafe()
}

// Closed reports whether the registry destroyed the room.
func (r *Room) Closed() bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.closed
}

// Tournament support. The Director holds Mu around these calls.

// SlotsUnsafe returns the participant slots in join order.
func (r *Room) SlotsUnsafe() []*Slot { return r.slots }

// SlotUnsafe finds a slot by id.
func (r *Room) SlotUnsafe(id int) *Slot {
	for _, s := range r.slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// SlotByConnUnsafe returns the first slot owned by connID.
func (r *Room) SlotByConnUnsafe(connID string) *Slot { return r.slotByConnUnsafe(connID) }

// CreatorUnsafe returns the slot id holding the creator privilege, or -1.
func (r *Room) CreatorUnsafe() int { return r.creator }

// StatusUnsafe returns the lifecycle state.
func (r *Room) StatusUnsafe() Status { return r.status }

// ClosedUnsafe reports whether the room was destroyed.
func (r *Room) ClosedUnsafe() bool { return r.closed }

// RngUnsafe is the room's random source; it is only used under Mu.
func (r *Room) RngUnsafe() *rand.Rand { return r.rng }

// AllReadyUnsafe reports whether there is at least one slot and every slot is ready.
func (r *Room) AllReadyUnsafe() bool {
	if len(r.slots) == 0 {
		return false
	}
	for _, s := range r.slots {
		if !s.Ready {
			return false
		}
	}
	return true
}

// BeginUnsafe moves a tournament room to in_progress without a match installed yet.
func (r *Room) BeginUnsafe() {
	r.status = StatusInProgress
	r.frozen = true
}

// FinishUnsafe moves the room to finished.
func (r *Room) FinishUnsafe() {
	r.status = StatusFinished
	r.finishedAt = r.now()
	r.frozen = true
}

// InstallMatchUnsafe seats p1 and p2, builds a fresh simulation and freezes the room
// until ReleaseMatchUnsafe. Every other slot is unseated.
func (r *Room) InstallMatchUnsafe(p1, p2 *Slot) {
	for _, s := range r.slots {
		s.Seat = NoSeat
		s.latch.Reset()
	}
	p1.Seat, p2.Seat = 0, 1
	r.sim = r.newSimulationUnsafe()
	r.match++
	r.matchOver = false
	r.frozen = true
	r.startedAt = r.now()
	r.captureLineupUnsafe()
	for _, s := range r.slots {
		s.Conn.Send(r.roleEventUnsafe(s))
	}
}

// ReleaseMatchUnsafe unfreezes the installed match and stamps its start time.
func (r *Room) ReleaseMatchUnsafe() {
	r.frozen = false
	r.startedAt = r.now()
	r.lastTickAt = r.startedAt
}

// ForfeitUnsafe ends the running match in favour of winner. It returns nil when no
// match is running or the current one has already reached its end.
func (r *Room) ForfeitUnsafe(winner int) *MatchResult {
	if r.sim == nil || r.matchOver {
		return nil
	}
	r.sim.Forfeit(winner)
	return r.endMatchUnsafe(winner, true)
}

// RemoveConnUnsafe deletes every slot owned by connID and hands the creator privilege
// to the earliest remaining slot if needed.
func (r *Room) RemoveConnUnsafe(connID string) []*Slot {
	var removed []*Slot
	kept := r.slots[:0]
	for _, s := range r.slots {
		if s.Conn.ID() == connID {
			removed = append(removed, s)
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(r.slots); i++ {
		r.slots[i] = nil
	}
	r.slots = kept

	if len(removed) == 0 {
		return nil
	}
	for _, s := range removed {
		if s.ID == r.creator {
			r.creator = -1
			if len(r.slots) > 0 {
				r.creator = r.slots[0].ID
			}
		}
	}
	if len(r.slots) == 0 {
		r.emptySince = r.now()
	}
	return removed
}

// BroadcastUnsafe sends ev to every attached connection once, spectators included.
func (r *Room) BroadcastUnsafe(ev Event) {
	if ev.RoomID == "" {
		ev.RoomID = r.ID.String()
	}
	seen := make(map[string]bool, len(r.slots))
	for _, s := range r.slots {
		id := s.Conn.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		s.Conn.Send(ev)
	}
	for _, c := range r.spectators {
		c.Send(ev)
	}
}

// BroadcastStateUnsafe sends the current room_state to everyone.
func (r *Room) BroadcastStateUnsafe() {
	r.BroadcastUnsafe(r.stateEventUnsafe())
}

// MatchUnsafe returns the number of the current match, 0 before the first one.
func (r *Room) MatchUnsafe() int { return r.match }

// MatchOverUnsafe reports whether the current match has reached its end.
func (r *Room) MatchOverUnsafe() bool { return r.matchOver }

// LineupUnsafe returns who sits in seats 0 and 1 of the current match.
func (r *Room) LineupUnsafe() [2]PlayerView { return r.lineup }

func (r *Room) newSimulationUnsafe() Simulation {
	if r.simFactory != nil {
		return r.simFactory(r.Kind, r.rng)
	}
	return newSimulation(r.Kind, r.tuning, r.rng)
}

func (r *Room) startUnsafe() {
	r.sim = r.newSimulationUnsafe()
	r.match++
	r.matchOver = false
	r.status = StatusInProgress
	r.frozen = false
	r.startedAt = r.now()
	r.lastTickAt = r.startedAt
	for _, s := range r.slots {
		s.latch.Reset()
	}
	r.captureLineupUnsafe()

	p1, p2 := r.lineup[0], r.lineup[1]
	r.BroadcastUnsafe(Event{Type: EventGameStart, Kind: r.Kind, Player1: &p1, Player2: &p2})
	r.BroadcastStateUnsafe()
}

func (r *Room) endMatchUnsafe(winner int, forfeit bool) *MatchResult {
	now := r.now()
	r.matchOver = true
	res := &MatchResult{
		RoomID:     r.ID,
		Kind:       r.Kind,
		Match:      r.match,
		Seats:      r.lineup,
		Players:    r.lineupRecords,
		Winner:     winner,
		Forfeit:    forfeit,
		Score:      r.sim.Score(),
		Aux:        r.sim.Aux(),
		StartedAt:  r.startedAt,
		FinishedAt: now,
	}

	if r.Kind.IsTournament() {
		// the Director decides whether the room continues
		r.frozen = true
		return res
	}

	r.status = StatusFinished
	r.finishedAt = now
	ev := Event{Type: EventGameEnd, Score: res.Score, Forfeit: forfeit}
	if winner == 0 || winner == 1 {
		w := r.lineup[winner]
		ev.Winner = &w
	}
	r.BroadcastUnsafe(ev)
	return res
}

func (r *Room) abandonUnsafe() *MatchResult {
	res := r.endMatchUnsafe(NoSeat, false)
	res.Abandoned = true
	return res
}

func (r *Room) captureLineupUnsafe() {
	r.lineup = [2]PlayerView{{SlotID: -1, Seat: 0}, {SlotID: -1, Seat: 1}}
	r.lineupRecords = [2]models.PlayerRecord{}

	if r.sim != nil {
		for seat := 0; seat < 2; seat++ {
			if r.sim.IsAI(seat) {
				r.lineup[seat] = aiView
				r.lineupRecords[seat] = models.AIPlayer
			}
		}
	}
	for _, s := range r.slots {
		if s.Seat != 0 && s.Seat != 1 {
			continue
		}
		r.lineup[s.Seat] = s.View()
		r.lineupRecords[s.Seat] = s.Identity.Record()
	}
	if r.Kind.SharedController() {
		// both paddles belong to one identity; the right one is recorded as a guest
		r.lineup[1].Name = "Player 2"
		r.lineupRecords[1] = models.PlayerRecord{Name: "Player 2"}
	}
}

func (r *Room) addSlotUnsafe(conn Conn, id models.Identity, seat int) *Slot {
	s := &Slot{ID: r.nextSlotID, Conn: conn, Identity: id, Seat: seat}
	r.nextSlotID++
	r.slots = append(r.slots, s)
	return s
}

func (r *Room) freeSeatUnsafe() int {
	taken := [2]bool{}
	for _, s := range r.slots {
		if s.Seat == 0 || s.Seat == 1 {
			taken[s.Seat] = true
		}
	}
	if !taken[0] {
		return 0
	}
	if !taken[1] {
		return 1
	}
	return NoSeat
}

func (r *Room) creatorPresentUnsafe() bool {
	s := r.SlotUnsafe(r.creator)
	return s != nil && s.Identity.Key() == r.creatorKey
}

// uniqueNameUnsafe suffixes duplicate display names so match records and views stay
// unambiguous within the room.
func (r *Room) uniqueNameUnsafe(name string) string {
	if name == "" {
		name = "Guest"
	}
	candidate := name
	for n := 2; ; n++ {
		clash := false
		for _, s := range r.slots {
			if s.Identity.DisplayName == candidate {
				clash = true
				break
			}
		}
		if !clash {
			return candidate
		}
		candidate = fmt.Sprintf("%s (%d)", name, n)
	}
}

func (r *Room) slotByConnUnsafe(connID string) *Slot {
	for _, s := range r.slots {
		if s.Conn.ID() == connID {
			return s
		}
	}
	return nil
}

func (r *Room) slotsByConnUnsafe(connID string) []*Slot {
	var out []*Slot
	for _, s := range r.slots {
		if s.Conn.ID() == connID {
			out = append(out, s)
		}
	}
	return out
}

func (r *Room) connectionCountUnsafe() int {
	seen := make(map[string]bool, len(r.slots))
	for _, s := range r.slots {
		seen[s.Conn.ID()] = true
	}
	return len(seen)
}

func (r *Room) roleEventUnsafe(s *Slot) Event {
	ev := Event{
		Type:   EventRole,
		RoomID: r.ID.String(),
		Kind:   r.Kind,
		SlotID: intPtr(s.ID),
		Seat:   intPtr(s.Seat),
		Side:   SideName(s.Seat),
	}
	if r.Kind.SharedController() {
		ev.Side = "both"
	}
	return ev
}

func (r *Room) stateEventUnsafe() Event {
	ev := Event{
		Type:    EventRoomState,
		RoomID:  r.ID.String(),
		Kind:    r.Kind,
		Status:  r.status,
		Name:    r.Name,
		Players: make([]PlayerView, 0, len(r.slots)),
	}
	if r.creator >= 0 {
		ev.Creator = intPtr(r.creator)
	}
	for _, s := range r.slots {
		ev.Players = append(ev.Players, s.View())
	}
	return ev
}
