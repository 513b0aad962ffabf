// Package game implements the authoritative per-table poker state machine:
// seating, blinds, betting legality, street transitions, showdowns and pot
// distribution. The engine is pure: it performs no I/O and takes no locks;
// the session layer serializes access under a per-table lock.
package game

import (
	rand "math/rand/v2"
	"time"

	"github.com/coder/quartz"
	"github.com/padpad2004/poker-platform/internal/deck"
	"github.com/padpad2004/poker-platform/internal/fault"
)

// GameKind selects the dealt hand size and best-hand rules.
type GameKind string

const (
	NLH GameKind = "nlh"
	PLO GameKind = "plo"
)

// Street is a phase of a hand.
type Street string

const (
	PreHand  Street = "prehand"
	Preflop  Street = "preflop"
	Flop     Street = "flop"
	Turn     Street = "turn"
	River    Street = "river"
	Showdown Street = "showdown"
)

const (
	// DefaultActionTimeLimit is the per-turn clock.
	DefaultActionTimeLimit = 30 * time.Second

	// recentHandsLimit bounds the in-memory hand log ring.
	recentHandsLimit = 50

	// noSeat marks an unset seat marker.
	noSeat = -1
)

// Config describes a table.
type Config struct {
	MaxSeats   int
	SmallBlind int64
	BigBlind   int64
	GameKind   GameKind

	// BombPotEveryNHands and BombPotAmount enable ante-style bomb pot hands
	// when both are set.
	BombPotEveryNHands int
	BombPotAmount      int64

	ActionTimeLimit time.Duration

	// Clock is used for action deadlines; nil means the real clock.
	Clock quartz.Clock
	// RNG seeds the deck; nil means CSPRNG-seeded.
	RNG *rand.Rand
}

// Table is the authoritative state machine for one table.
type Table struct {
	MaxSeats   int
	SmallBlind int64
	BigBlind   int64
	GameKind   GameKind

	BombPotEveryNHands int
	BombPotAmount      int64
	ActionTimeLimit    time.Duration

	Players []*Player
	Board   []deck.Card

	HandNumber int64
	Street     Street
	Pot        int64

	CurrentBet         int64
	LastRaiseIncrement int64

	DealerSeat        int
	SmallBlindSeat    int
	BigBlindSeat      int
	NextToActSeat     int
	ActionClosingSeat int
	ActionDeadline    time.Time

	// HandStartStacks snapshots stacks at hand start, keyed by player id,
	// for net-change accounting.
	HandStartStacks map[int64]int64

	// PendingLeaveUserIDs holds users who asked to leave mid-hand; the
	// session layer stands them up after finalization.
	PendingLeaveUserIDs map[int64]struct{}

	RecentHands []HandLog

	deckCards     *deck.Deck
	clock         quartz.Clock
	currentLog    *HandLog
	nextPlayerID  int64
	runout        *runoutNegotiation
	agreedRunouts int

	// closingActed records whether the closing-seat player has taken a
	// voluntary action this street. A big blind or checked-to seat holds the
	// closing marker before ever acting; the street cannot close around them
	// until they have had their option.
	closingActed bool
}

// NewTable builds a table from config. Validation of blinds and seat counts
// happens at the edge; the engine trusts its config.
func NewTable(cfg Config) *Table {
	if cfg.ActionTimeLimit <= 0 {
		cfg.ActionTimeLimit = DefaultActionTimeLimit
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.GameKind == "" {
		cfg.GameKind = NLH
	}

	var d *deck.Deck
	if cfg.RNG != nil {
		d = deck.NewWithRNG(cfg.RNG)
	} else {
		d = deck.New()
	}

	return &Table{
		MaxSeats:           cfg.MaxSeats,
		SmallBlind:         cfg.SmallBlind,
		BigBlind:           cfg.BigBlind,
		GameKind:           cfg.GameKind,
		BombPotEveryNHands: cfg.BombPotEveryNHands,
		BombPotAmount:      cfg.BombPotAmount,
		ActionTimeLimit:    cfg.ActionTimeLimit,
		Street:             PreHand,
		DealerSeat:         noSeat,
		SmallBlindSeat:     noSeat,
		BigBlindSeat:       noSeat,
		NextToActSeat:      noSeat,
		ActionClosingSeat:  noSeat,
		HandStartStacks:    make(map[int64]int64),
		PendingLeaveUserIDs: make(map[int64]struct{}),
		deckCards:          d,
		clock:              cfg.Clock,
		nextPlayerID:       1,
	}
}

// AddPlayer seats a player. userID is nil for generic/bot seats. When seat is
// nil the lowest free seat is chosen.
func (t *Table) AddPlayer(name string, stack int64, userID *int64, avatarURL string, seat *int) (*Player, error) {
	if len(t.Players) >= t.MaxSeats {
		return nil, fault.Errorf(fault.Conflict, "table is full")
	}

	taken := make(map[int]bool, len(t.Players))
	for _, p := range t.Players {
		taken[p.Seat] = true
	}

	var chosen int
	if seat != nil {
		if *seat < 0 || *seat >= t.MaxSeats {
			return nil, fault.Errorf(fault.InvalidArgument, "invalid seat number")
		}
		if taken[*seat] {
			return nil, fault.Errorf(fault.Conflict, "seat already occupied")
		}
		chosen = *seat
	} else {
		chosen = noSeat
		for s := 0; s < t.MaxSeats; s++ {
			if !taken[s] {
				chosen = s
				break
			}
		}
		if chosen == noSeat {
			return nil, fault.Errorf(fault.Conflict, "no available seats")
		}
	}

	p := &Player{
		ID:        t.nextPlayerID,
		Name:      name,
		Seat:      chosen,
		Stack:     stack,
		UserID:    userID,
		AvatarURL: avatarURL,
	}
	t.nextPlayerID++
	t.Players = append(t.Players, p)
	return p, nil
}

// RestoreNextPlayerID bumps the id counter after hydration so restored seats
// never collide with new ones.
func (t *Table) RestoreNextPlayerID() {
	for _, p := range t.Players {
		if p.ID >= t.nextPlayerID {
			t.nextPlayerID = p.ID + 1
		}
	}
}

// PlayerByID finds a player by table-local id.
func (t *Table) PlayerByID(playerID int64) (*Player, error) {
	for _, p := range t.Players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return nil, fault.Errorf(fault.NotFound, "no player with id %d", playerID)
}

// PlayerByUser finds a seated player by user id.
func (t *Table) PlayerByUser(userID int64) *Player {
	for _, p := range t.Players {
		if p.UserID != nil && *p.UserID == userID {
			return p
		}
	}
	return nil
}

// MoveToSeat relocates a seated user to another seat. The edge only allows
// this between hands.
func (t *Table) MoveToSeat(userID int64, seat int) (*Player, error) {
	if seat < 0 || seat >= t.MaxSeats {
		return nil, fault.Errorf(fault.InvalidArgument, "invalid seat number")
	}

	player := t.PlayerByUser(userID)
	if player == nil {
		return nil, fault.Errorf(fault.NotFound, "player not seated")
	}

	for _, other := range t.Players {
		if other != player && other.Seat == seat {
			return nil, fault.Errorf(fault.Conflict, "seat already occupied")
		}
	}

	player.Seat = seat
	return player, nil
}

// RemoveByUser unseats a player and clears any position markers that
// referenced the vacated seat.
func (t *Table) RemoveByUser(userID int64) (*Player, error) {
	for i, p := range t.Players {
		if p.UserID == nil || *p.UserID != userID {
			continue
		}
		t.Players = append(t.Players[:i], t.Players[i+1:]...)

		if t.DealerSeat == p.Seat {
			t.DealerSeat = noSeat
		}
		if t.SmallBlindSeat == p.Seat {
			t.SmallBlindSeat = noSeat
		}
		if t.BigBlindSeat == p.Seat {
			t.BigBlindSeat = noSeat
		}
		if t.ActionClosingSeat == p.Seat {
			t.ActionClosingSeat = noSeat
		}
		if t.NextToActSeat == p.Seat {
			t.NextToActSeat = noSeat
			t.ActionDeadline = time.Time{}
		}
		delete(t.PendingLeaveUserIDs, userID)
		return p, nil
	}
	return nil, fault.Errorf(fault.NotFound, "no player for that user id")
}

// RequestLeave defers a mid-hand leave until the hand finalizes.
func (t *Table) RequestLeave(userID int64) {
	t.PendingLeaveUserIDs[userID] = struct{}{}
}

// HandInProgress reports whether a hand is being played right now.
func (t *Table) HandInProgress() bool {
	return t.Street != PreHand && t.Street != Showdown
}

// eligibleForHand reports whether a player takes part in the next hand.
func eligibleForHand(p *Player) bool {
	return !p.SittingOut && p.Stack > 0
}

// EligiblePlayers returns players who can be dealt into the next hand.
func (t *Table) EligiblePlayers() []*Player {
	out := make([]*Player, 0, len(t.Players))
	for _, p := range t.Players {
		if eligibleForHand(p) {
			out = append(out, p)
		}
	}
	return out
}

// RemainingPlayers returns players still contesting the current hand.
func (t *Table) RemainingPlayers() []*Player {
	out := make([]*Player, 0, len(t.Players))
	for _, p := range t.Players {
		if p.InHand && !p.HasFolded {
			out = append(out, p)
		}
	}
	return out
}

// ---------- seat arithmetic ----------

func (t *Table) playerBySeat(seat int) *Player {
	for _, p := range t.Players {
		if p.Seat == seat {
			return p
		}
	}
	return nil
}

// handSeats returns the sorted seats of players dealt into the current hand.
func (t *Table) handSeats() []int {
	seats := make([]int, 0, len(t.Players))
	for _, p := range t.Players {
		if p.InHand {
			seats = append(seats, p.Seat)
		}
	}
	sortInts(seats)
	return seats
}

func (t *Table) nextSeat(seats []int, seat int) int {
	for i, s := range seats {
		if s == seat {
			return seats[(i+1)%len(seats)]
		}
	}
	// Seat vacated mid-hand: fall through to the first seat after it.
	for _, s := range seats {
		if s > seat {
			return s
		}
	}
	return seats[0]
}

func (t *Table) prevSeat(seats []int, seat int) int {
	for i, s := range seats {
		if s == seat {
			return seats[(i-1+len(seats))%len(seats)]
		}
	}
	for i := len(seats) - 1; i >= 0; i-- {
		if seats[i] < seat {
			return seats[i]
		}
	}
	return seats[len(seats)-1]
}

// nextPlayerToAct returns the next seat after startFrom that can act, or
// noSeat when no such seat exists.
func (t *Table) nextPlayerToAct(startFrom int) int {
	seats := t.handSeats()
	if len(seats) == 0 {
		return noSeat
	}
	seat := startFrom
	for i := 0; i < len(seats)+1; i++ {
		seat = t.nextSeat(seats, seat)
		if p := t.playerBySeat(seat); p != nil && p.CanAct() {
			return seat
		}
		if seat == startFrom {
			break
		}
	}
	return noSeat
}

// previousActiveSeat returns the closest earlier seat that can act, or noSeat.
func (t *Table) previousActiveSeat(startFrom int) int {
	if startFrom == noSeat {
		return noSeat
	}
	seats := t.handSeats()
	if len(seats) == 0 {
		return noSeat
	}
	seat := startFrom
	for i := 0; i < len(seats)+1; i++ {
		seat = t.prevSeat(seats, seat)
		if p := t.playerBySeat(seat); p != nil && p.CanAct() {
			return seat
		}
		if seat == startFrom {
			break
		}
	}
	return noSeat
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
