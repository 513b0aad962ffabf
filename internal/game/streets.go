package game

import "github.com/padpad2004/poker-platform/internal/fault"

// DealFlop deals three board cards and opens flop betting. No burn cards.
func (t *Table) DealFlop() error {
	if t.Street != Preflop {
		return fault.Errorf(fault.InvalidArgument, "flop can only be dealt after preflop betting")
	}
	for i := 0; i < 3; i++ {
		card, err := t.deckCards.DealOne()
		if err != nil {
			return err
		}
		t.Board = append(t.Board, card)
	}
	t.Street = Flop
	t.logStreetTransition(Flop)
	t.resetCommittedForNewStreet()
	return nil
}

// DealTurn deals the fourth board card.
func (t *Table) DealTurn() error {
	if t.Street != Flop {
		return fault.Errorf(fault.InvalidArgument, "turn can only be dealt after flop")
	}
	card, err := t.deckCards.DealOne()
	if err != nil {
		return err
	}
	t.Board = append(t.Board, card)
	t.Street = Turn
	t.logStreetTransition(Turn)
	t.resetCommittedForNewStreet()
	return nil
}

// DealRiver deals the fifth board card.
func (t *Table) DealRiver() error {
	if t.Street != Turn {
		return fault.Errorf(fault.InvalidArgument, "river can only be dealt after turn")
	}
	card, err := t.deckCards.DealOne()
	if err != nil {
		return err
	}
	t.Board = append(t.Board, card)
	t.Street = River
	t.logStreetTransition(River)
	t.resetCommittedForNewStreet()
	return nil
}

// resetCommittedForNewStreet opens a fresh betting round. The street starts
// with no bet, so the first eligible seat after the button acts first and
// action closes after a full orbit.
func (t *Table) resetCommittedForNewStreet() {
	t.CurrentBet = 0
	t.LastRaiseIncrement = t.BigBlind
	for _, p := range t.Players {
		p.Committed = 0
	}
	t.NextToActSeat = t.nextPlayerToAct(t.DealerSeat)
	t.ActionClosingSeat = t.previousActiveSeat(t.NextToActSeat)
	t.closingActed = false
	t.setActionDeadline()
}
