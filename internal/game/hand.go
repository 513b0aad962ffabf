package game

import (
	"time"

	"github.com/coder/quartz"
	"github.com/padpad2004/poker-platform/internal/fault"
)

// StartNewHand resets per-hand state, advances the button, applies any bomb
// pot, deals hole cards and posts blinds.
func (t *Table) StartNewHand() error {
	eligible := t.EligiblePlayers()
	if len(eligible) < 2 {
		return fault.Errorf(fault.IllegalState, "need at least 2 players to start a hand")
	}

	t.HandNumber++
	t.deckCards.Reset()
	t.Board = nil
	t.Pot = 0
	t.CurrentBet = 0
	t.LastRaiseIncrement = t.BigBlind
	t.Street = Preflop
	t.SmallBlindSeat = noSeat
	t.BigBlindSeat = noSeat
	t.ActionClosingSeat = noSeat
	t.runout = nil
	t.agreedRunouts = 0

	for _, p := range t.Players {
		p.HoleCards = nil
		p.HasFolded = false
		p.Committed = 0
		p.HandCommitted = 0
		p.AllIn = false
		p.InHand = eligibleForHand(p)
	}

	// Stacks before blinds or bomb pots are taken, so net changes can be
	// computed when the hand finishes.
	t.HandStartStacks = make(map[int64]int64, len(t.Players))
	for _, p := range t.Players {
		t.HandStartStacks[p.ID] = p.Stack
	}

	// Advance the button to the next dealt-in seat. If the previous button
	// seat emptied (player left or moved), fall back to the lowest seat.
	seats := t.handSeats()
	onButton := false
	for _, s := range seats {
		if s == t.DealerSeat {
			onButton = true
			break
		}
	}
	if t.HandNumber == 1 || !onButton {
		t.DealerSeat = seats[0]
	} else {
		t.DealerSeat = t.nextSeat(seats, t.DealerSeat)
	}

	t.currentLog = &HandLog{HandNumber: t.HandNumber}

	t.applyBombPotIfNeeded()

	// Hole cards: two for Hold'em, four for Omaha.
	perPlayer := 2
	if t.GameKind == PLO {
		perPlayer = 4
	}
	for i := 0; i < perPlayer; i++ {
		for _, p := range t.Players {
			if !p.InHand {
				continue
			}
			card, err := t.deckCards.DealOne()
			if err != nil {
				return err
			}
			p.HoleCards = append(p.HoleCards, card)
		}
	}

	return t.postBlinds()
}

// postBlinds posts small and big blinds and sets next-to-act. The button
// posts the small blind; the next dealt-in seat posts the big blind.
func (t *Table) postBlinds() error {
	seats := t.handSeats()
	if len(seats) < 2 {
		return fault.Errorf(fault.IllegalState, "need at least 2 players for blinds")
	}

	sbPlayer := t.playerBySeat(t.DealerSeat)
	bbPlayer := t.playerBySeat(t.nextSeat(seats, t.DealerSeat))

	sbPosted := t.postBlind(sbPlayer, t.SmallBlind)
	t.logAction(Preflop, sbPlayer, "small_blind", &sbPosted, false)
	bbPosted := t.postBlind(bbPlayer, t.BigBlind)
	t.logAction(Preflop, bbPlayer, "big_blind", &bbPosted, false)

	t.SmallBlindSeat = sbPlayer.Seat
	t.BigBlindSeat = bbPlayer.Seat

	if t.BigBlind > t.CurrentBet {
		t.CurrentBet = t.BigBlind
	}

	t.NextToActSeat = t.nextPlayerToAct(bbPlayer.Seat)
	// The big blind keeps the option to check or raise if action limps back
	// around.
	t.ActionClosingSeat = bbPlayer.Seat
	t.closingActed = false
	if bb := t.playerBySeat(t.BigBlindSeat); bb != nil && !bb.CanAct() {
		t.ActionClosingSeat = t.previousActiveSeat(bbPlayer.Seat)
	}
	t.setActionDeadline()
	return nil
}

// postBlind commits up to amount from the player's stack. Short postings are
// legal; they simply cap at the stack.
func (t *Table) postBlind(p *Player, amount int64) int64 {
	post := amount
	if p.Stack < post {
		post = p.Stack
	}
	t.commitChips(p, post)
	return post
}

// commitChips moves chips from stack to pot, tracking street and hand
// contributions.
func (t *Table) commitChips(p *Player, amount int64) {
	p.Stack -= amount
	p.Committed += amount
	p.HandCommitted += amount
	t.Pot += amount
	if p.Stack == 0 {
		p.AllIn = true
	}
}

// applyBombPotIfNeeded takes bomb pot contributions from every dealt-in
// player on scheduled hands. The hand still plays preflop; the contribution
// raises the preflop current-bet floor.
func (t *Table) applyBombPotIfNeeded() {
	if t.BombPotEveryNHands <= 0 || t.BombPotAmount <= 0 {
		return
	}
	if t.HandNumber%int64(t.BombPotEveryNHands) != 0 {
		return
	}

	for _, p := range t.Players {
		if !p.InHand {
			continue
		}
		contribution := t.BombPotAmount
		if p.Stack < contribution {
			contribution = p.Stack
		}
		t.commitChips(p, contribution)
		t.logAction(Preflop, p, "bomb_pot", &contribution, false)
	}

	if t.BombPotAmount > t.CurrentBet {
		t.CurrentBet = t.BombPotAmount
	}
}

func (t *Table) setActionDeadline() {
	if t.NextToActSeat == noSeat {
		t.ActionDeadline = time.Time{}
		return
	}
	t.ActionDeadline = t.clock.Now().Add(t.ActionTimeLimit)
}

// EnforceActionTimeout auto-folds the player on the clock once the deadline
// has passed. It is idempotent; callers loop until it returns false.
func (t *Table) EnforceActionTimeout() bool {
	if t.NextToActSeat == noSeat || t.ActionDeadline.IsZero() {
		return false
	}
	if t.clock.Now().Before(t.ActionDeadline) {
		return false
	}

	player := t.playerBySeat(t.NextToActSeat)
	if player == nil {
		// Tracked seat vanished (disconnect); stop the clock.
		t.NextToActSeat = noSeat
		t.ActionDeadline = time.Time{}
		return false
	}

	if err := t.applyAction(player.ID, ActionFold, nil, true); err != nil {
		// If the auto action fails, clear the clock to avoid loops.
		t.NextToActSeat = noSeat
		t.ActionDeadline = time.Time{}
		return false
	}
	return true
}

// SitOut marks the player as sitting out from the next hand. If it is their
// turn right now, they are folded automatically.
func (t *Table) SitOut(p *Player) {
	if p.SittingOut {
		return
	}
	p.SittingOut = true
	p.SatOutSince = t.clock.Now()

	if t.NextToActSeat == p.Seat && p.CanAct() {
		_ = t.applyAction(p.ID, ActionFold, nil, true)
	}
}

// ReturnToPlay clears a sit-out; the player is dealt in from the next hand.
func (t *Table) ReturnToPlay(p *Player) {
	p.SittingOut = false
	p.SatOutSince = time.Time{}
}

// Clock exposes the engine clock so the session layer shares the same notion
// of now (sit-out cutoffs, sweeps).
func (t *Table) Clock() quartz.Clock {
	return t.clock
}
