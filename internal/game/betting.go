package game

import (
	"time"

	"github.com/padpad2004/poker-platform/internal/fault"
)

// ActionKind is a betting action.
type ActionKind string

const (
	ActionFold    ActionKind = "fold"
	ActionCheck   ActionKind = "check"
	ActionCall    ActionKind = "call"
	ActionRaiseTo ActionKind = "raise_to"
)

// Act applies a betting action for the given player.
func (t *Table) Act(playerID int64, action ActionKind, amount *int64) error {
	return t.applyAction(playerID, action, amount, false)
}

func (t *Table) applyAction(playerID int64, action ActionKind, amount *int64, auto bool) error {
	if t.NextToActSeat == noSeat {
		return fault.Errorf(fault.InvalidArgument, "no player is set to act")
	}

	acting, err := t.PlayerByID(playerID)
	if err != nil {
		return err
	}
	if acting.Seat != t.NextToActSeat {
		return fault.Errorf(fault.InvalidArgument, "not %s's turn to act", acting.Name)
	}
	if !acting.CanAct() {
		return fault.Errorf(fault.IllegalState, "player cannot act (folded or all-in)")
	}

	var eventAmount *int64

	switch action {
	case ActionFold:
		acting.HasFolded = true
		acting.InHand = false

	case ActionCheck:
		if acting.Committed != t.CurrentBet {
			return fault.Errorf(fault.InvalidArgument, "cannot check when facing a bet")
		}

	case ActionCall:
		toCall := t.CurrentBet - acting.Committed
		if toCall > 0 {
			putIn := toCall
			if acting.Stack < putIn {
				putIn = acting.Stack
			}
			t.commitChips(acting, putIn)
			eventAmount = &putIn
		}
		// A zero-delta call is a no-op, not an error.

	case ActionRaiseTo:
		if amount == nil {
			return fault.Errorf(fault.InvalidArgument, "amount required for raise_to")
		}
		if err := t.applyRaise(acting, *amount); err != nil {
			return err
		}
		eventAmount = amount

	default:
		return fault.Errorf(fault.InvalidArgument, "unknown action: %s", action)
	}

	if t.ActionClosingSeat == acting.Seat {
		t.closingActed = true
	}

	// If the player who would close action can no longer act, the closing
	// marker moves back to the previous eligible seat. That seat has either
	// acted already or is unmatched, so the settled check still protects it.
	if t.ActionClosingSeat == acting.Seat && (acting.HasFolded || acting.AllIn) {
		t.ActionClosingSeat = t.previousActiveSeat(acting.Seat)
		t.closingActed = true
	}

	t.logAction(t.Street, acting, string(action), eventAmount, auto)
	t.advanceTurn()
	return nil
}

// applyRaise enforces the minimum-raise rule. A raise to X must exceed the
// current bet by at least the last raise increment, except when the raiser is
// moving all-in short: that is allowed but does not reopen the action (the
// closing seat and the raise increment are untouched).
func (t *Table) applyRaise(acting *Player, target int64) error {
	if target <= t.CurrentBet {
		return fault.Errorf(fault.InvalidArgument, "raise_to amount must be greater than current bet")
	}

	toPut := target - acting.Committed
	if toPut <= 0 {
		return fault.Errorf(fault.InvalidArgument, "player has already committed that much")
	}
	if toPut > acting.Stack {
		return fault.Errorf(fault.InvalidArgument, "insufficient chips")
	}

	increment := target - t.CurrentBet
	fullRaise := increment >= t.LastRaiseIncrement
	allIn := toPut == acting.Stack

	if !fullRaise && !allIn {
		return fault.Errorf(fault.InvalidArgument,
			"minimum raise is to %d", t.CurrentBet+t.LastRaiseIncrement)
	}

	t.commitChips(acting, toPut)

	if fullRaise {
		t.LastRaiseIncrement = increment
		t.ActionClosingSeat = acting.Seat
		t.closingActed = true
	}
	t.CurrentBet = target
	return nil
}

// advanceTurn passes the action to the next eligible seat, or ends the
// betting round.
func (t *Table) advanceTurn() {
	allDone := true
	for _, p := range t.Players {
		if p.InHand && !p.HasFolded && !p.AllIn {
			allDone = false
			break
		}
	}
	if allDone {
		t.clearClock()
		return
	}

	settled := t.bettingRoundSettled()

	// The closing seat acts last: once it has acted with every live player
	// matched, the street is over.
	if settled && t.NextToActSeat == t.ActionClosingSeat {
		t.clearClock()
		return
	}

	next := t.nextPlayerToAct(t.NextToActSeat)
	if next == noSeat {
		t.clearClock()
		return
	}

	// The round also closes once action would return to a closing seat that
	// has already acted (a raiser does not act again after calls). A big
	// blind or checked-to closing seat still gets its option.
	if settled && next == t.ActionClosingSeat && t.closingActed {
		t.clearClock()
		return
	}

	t.NextToActSeat = next
	t.setActionDeadline()
}

func (t *Table) clearClock() {
	t.NextToActSeat = noSeat
	t.ActionDeadline = time.Time{}
}

// bettingRoundSettled reports whether every live player has matched the
// current bet.
func (t *Table) bettingRoundSettled() bool {
	for _, p := range t.Players {
		if !p.InHand || p.HasFolded || p.AllIn {
			continue
		}
		if p.Committed != t.CurrentBet {
			return false
		}
	}
	return true
}

// BettingRoundComplete reports whether the street can be advanced.
func (t *Table) BettingRoundComplete() bool {
	return t.bettingRoundSettled() && t.NextToActSeat == noSeat
}

// AllRemainingAllIn reports whether every player still contesting the hand is
// all-in.
func (t *Table) AllRemainingAllIn() bool {
	remaining := t.RemainingPlayers()
	if len(remaining) == 0 {
		return false
	}
	for _, p := range remaining {
		if !p.AllIn {
			return false
		}
	}
	return true
}
