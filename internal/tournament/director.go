// internal/tournament/director.go
package tournament

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/sirupsen/logrus"
)

// GameType is the game type recorded for tournaments.
const GameType = "paddle"

// Persister receives the tournament's side effects. Calls must not block: the
// Director makes them while holding the room lock.
type Persister interface {
	RecordTournamentStart(ts models.TournamentStart)
	// RecordMatch stores rec and links it to the tournament ref.
	RecordMatch(rec models.MatchRecord, tournamentRef uuid.UUID)
	RecordTournamentEnd(ref uuid.UUID, winnerName string)
}

// Timer is the handle returned by AfterFunc.
type Timer interface {
	Stop() bool
}

// Options configures a Director.
type Options struct {
	// Countdown is how long a match stays frozen after its announcement.
	Countdown time.Duration
	// DestroyDelay is how long a finished tournament stays up so clients can show it.
	DestroyDelay time.Duration
	Persist      Persister
	// Destroy removes the room from the registry. It is never called with the room
	// lock held.
	Destroy   func(id uuid.UUID)
	AfterFunc func(d time.Duration, f func()) Timer
	Now       func() time.Time
	Logger    *logrus.Entry
}

// Bracket is the match in play, nil between matches.
type Bracket struct {
	// Match is the room's number for this match; results carrying another number
	// belong to a match that has already been resolved.
	Match          int
	Player1SlotID  int
	Player2SlotID  int
	MatchStartedAt time.Time
}

// Director runs a single-elimination tournament over a tournament room. All of its
// state is guarded by the room's mutex.
type Director struct {
	room   *room.Room
	opts   Options
	logger *logrus.Entry

	ref       uuid.UUID
	bracket   *Bracket
	matches   int
	done      bool
	countdown Timer
	destroy   Timer
}

// NewDirector attaches a Director to r.
func NewDirector(r *room.Room, opts Options) *Director {
	if opts.Countdown <= 0 {
		opts.Countdown = 3 * time.Second
	}
	if opts.DestroyDelay <= 0 {
		opts.DestroyDelay = 10 * time.Second
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Destroy == nil {
		opts.Destroy = func(uuid.UUID) {}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Director{
		room:   r,
		opts:   opts,
		logger: logger.WithFields(logrus.Fields{"component": "tournament", "room": r.ID}),
	}
}

// Room returns the room the Director drives.
func (d *Director) Room() *room.Room { return d.room }

// Start begins the tournament. Only the creator may start it, and only when at least
// two players are present and every one of them is ready.
func (d *Director) Start(connID string) error {
	r := d.room
	r.Mu.Lock()
	defer r.Mu.Unlock()

	s := r.SlotByConnUnsafe(connID)
	if s == nil {
		return room.ErrNotParticipant
	}
	if s.ID != r.CreatorUnsafe() {
		return room.ErrNotAuthorized
	}
	if r.StatusUnsafe() != room.StatusWaiting {
		return room.ErrRoomStarted
	}
	if len(r.SlotsUnsafe()) < 2 || !r.AllReadyUnsafe() {
		return room.ErrNotEnoughReady
	}

	d.ref, _ = uuid.NewV7()
	if d.opts.Persist != nil {
		d.opts.Persist.RecordTournamentStart(models.TournamentStart{
			ID:               d.ref,
			ParticipantCount: len(r.SlotsUnsafe()),
			GameType:         GameType,
			StartedAt:        d.opts.Now(),
		})
	}

	r.BeginUnsafe()
	r.BroadcastStateUnsafe()
	d.logger.WithFields(logrus.Fields{
		"ref":     d.ref,
		"players": len(r.SlotsUnsafe()),
	}).Info("tournament started")

	d.announceUnsafe()
	return nil
}

// HandleMatchEnd eliminates the loser of res, records the match and either announces
// the next pairing or finishes the tournament.
func (d *Director) HandleMatchEnd(res *room.MatchResult) {
	d.room.Mu.Lock()
	defer d.room.Mu.Unlock()
	d.endMatchUnsafe(res)
}

// HandleLeave removes connID from the tournament. It reports whether the room was
// destroyed because nobody is left.
func (d *Director) HandleLeave(connID string) bool {
	r := d.room
	r.Mu.Lock()

	removed := r.RemoveConnUnsafe(connID)
	if len(removed) == 0 {
		r.Mu.Unlock()
		// spectators have no slot
		r.Leave(connID)
		return false
	}

	if len(r.SlotsUnsafe()) == 0 {
		d.done = true
		d.stopTimersUnsafe()
		r.Mu.Unlock()
		d.logger.Info("last participant left, destroying tournament room")
		d.opts.Destroy(r.ID)
		return true
	}
	defer r.Mu.Unlock()

	leaver := removed[0]
	if r.StatusUnsafe() == room.StatusInProgress && !d.done {
		if b := d.bracket; b != nil && (leaver.ID == b.Player1SlotID || leaver.ID == b.Player2SlotID) {
			if r.MatchOverUnsafe() {
				// the match already ended; its result is on the way to HandleMatchEnd
				r.BroadcastStateUnsafe()
				return false
			}
			d.logger.WithField("player", leaver.Identity.DisplayName).Info("player left mid-match, opponent advances")
			if res := r.ForfeitUnsafe(1 - leaver.Seat); res != nil {
				d.endMatchUnsafe(res)
			}
		} else if d.bracket == nil {
			d.advanceUnsafe()
		}
	}
	r.BroadcastStateUnsafe()
	return false
}

// Stop cancels pending timers. The registry calls it when the room is destroyed.
func (d *Director) Stop() {
	d.room.Mu.Lock()
	defer d.room.Mu.Unlock()
	d.done = true
	d.stopTimersUnsafe()
}

// Ref returns the tournament's external reference, uuid.Nil before Start.
func (d *Director) Ref() uuid.UUID {
	d.room.Mu.Lock()
	defer d.room.Mu.Unlock()
	return d.ref
}

// Matches returns how many matches have been completed.
func (d *Director) Matches() int {
	d.room.Mu.Lock()
	defer d.room.Mu.Unlock()
	return d.matches
}

// Bracket returns a copy of the current pairing, or nil between matches.
func (d *Director) Bracket() *Bracket {
	d.room.Mu.Lock()
	defer d.room.Mu.Unlock()
	if d.bracket == nil {
		return nil
	}
	b := *d.bracket
	return &b
}

// Done reports whether the tournament has finished.
func (d *Director) Done() bool {
	d.room.Mu.Lock()
	defer d.room.Mu.Unlock()
	return d.done
}

func (d *Director) activeUnsafe() []*room.Slot {
	var out []*room.Slot
	for _, s := range d.room.SlotsUnsafe() {
		if !s.Eliminated {
			out = append(out, s)
		}
	}
	return out
}

// announceUnsafe draws a uniformly random pair of distinct active players. Earlier
// results play no part, so two players may meet again.
func (d *Director) announceUnsafe() {
	r := d.room
	active := d.activeUnsafe()
	rng := r.RngUnsafe()

	i := rng.Intn(len(active))
	j := rng.Intn(len(active) - 1)
	if j >= i {
		j++
	}
	p1, p2 := active[i], active[j]

	r.InstallMatchUnsafe(p1, p2)
	d.bracket = &Bracket{Match: r.MatchUnsafe(), Player1SlotID: p1.ID, Player2SlotID: p2.ID}

	v1, v2 := p1.View(), p2.View()
	r.BroadcastUnsafe(room.Event{
		Type:      room.EventMatchAnnounce,
		Player1:   &v1,
		Player2:   &v2,
		Countdown: int(d.opts.Countdown / time.Second),
	})
	d.logger.WithFields(logrus.Fields{
		"player1": p1.Identity.DisplayName,
		"player2": p2.Identity.DisplayName,
		"match":   d.matches + 1,
	}).Info("match announced")

	if d.countdown != nil {
		d.countdown.Stop()
	}
	var timer Timer
	timer = d.opts.AfterFunc(d.opts.Countdown, func() {
		r.Mu.Lock()
		defer r.Mu.Unlock()
		if d.countdown != timer || d.done || r.ClosedUnsafe() {
			return
		}
		d.countdown = nil
		d.releaseUnsafe()
	})
	d.countdown = timer
}

func (d *Director) releaseUnsafe() {
	if d.bracket == nil {
		return
	}
	r := d.room
	r.ReleaseMatchUnsafe()
	d.bracket.MatchStartedAt = d.opts.Now()

	lineup := r.LineupUnsafe()
	r.BroadcastUnsafe(room.Event{
		Type:    room.EventMatchStart,
		Player1: &lineup[0],
		Player2: &lineup[1],
	})
}

func (d *Director) endMatchUnsafe(res *room.MatchResult) {
	if d.done || d.bracket == nil || res == nil || res.Loser() == room.NoSeat {
		return
	}
	if b := d.bracket; res.Match != b.Match ||
		res.Seats[0].SlotID != b.Player1SlotID || res.Seats[1].SlotID != b.Player2SlotID {
		d.logger.WithFields(logrus.Fields{
			"match":   res.Match,
			"current": b.Match,
		}).Debug("ignoring result of a resolved match")
		return
	}
	r := d.room

	winnerView, loserView := res.Seats[res.Winner], res.Seats[res.Loser()]
	if loser := r.SlotUnsafe(loserView.SlotID); loser != nil {
		loser.Eliminated = true
		loserView = loser.View()
	}
	d.matches++
	d.bracket = nil
	if d.countdown != nil {
		d.countdown.Stop()
		d.countdown = nil
	}

	if d.opts.Persist != nil {
		d.opts.Persist.RecordMatch(res.Record(), d.ref)
	}

	r.BroadcastUnsafe(room.Event{
		Type:    room.EventMatchEnd,
		Winner:  &winnerView,
		Loser:   &loserView,
		Score:   res.Score,
		Forfeit: res.Forfeit,
	})
	d.logger.WithFields(logrus.Fields{
		"winner":  winnerView.Name,
		"loser":   loserView.Name,
		"forfeit": res.Forfeit,
	}).Info("match finished")

	d.advanceUnsafe()
	r.BroadcastStateUnsafe()
}

// advanceUnsafe finishes the tournament when one player is left, and otherwise
// announces the next match straight away.
func (d *Director) advanceUnsafe() {
	switch active := d.activeUnsafe(); len(active) {
	case 0:
		d.finishUnsafe(nil)
	case 1:
		d.finishUnsafe(active[0])
	default:
		d.announceUnsafe()
	}
}

func (d *Director) finishUnsafe(winner *room.Slot) {
	r := d.room
	d.done = true
	d.bracket = nil
	r.FinishUnsafe()

	ev := room.Event{Type: room.EventTournamentEnd}
	name := ""
	if winner != nil {
		v := winner.View()
		ev.Winner = &v
		name = v.Name
	}
	if d.opts.Persist != nil {
		d.opts.Persist.RecordTournamentEnd(d.ref, name)
	}
	r.BroadcastUnsafe(ev)
	d.logger.WithFields(logrus.Fields{"winner": name, "matches": d.matches}).Info("tournament finished")

	id := r.ID
	d.destroy = d.opts.AfterFunc(d.opts.DestroyDelay, func() { d.opts.Destroy(id) })
}

func (d *Director) stopTimersUnsafe() {
	if d.countdown != nil {
		d.countdown.Stop()
		d.countdown = nil
	}
	if d.destroy != nil {
		d.destroy.Stop()
		d.destroy = nil
	}
}
