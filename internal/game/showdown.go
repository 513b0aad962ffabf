package game

import (
	"github.com/padpad2004/poker-platform/internal/deck"
	"github.com/padpad2004/poker-platform/internal/evaluator"
	"github.com/padpad2004/poker-platform/internal/fault"
)

// sidePot is one contribution tier. Players all-in for less than the full
// bet can only win the tiers they contributed to.
type sidePot struct {
	amount   int64
	eligible []*Player
}

// BoardResult holds the winners and ranks for one board completion. A normal
// hand has one; a run-it-twice hand has two or three.
type BoardResult struct {
	Board   []deck.Card
	Winners []*Player
	Ranks   map[int64]evaluator.HandRank
}

// ShowdownResult reports how the pot was distributed.
type ShowdownResult struct {
	Pot     int64
	Payouts map[int64]int64
	Boards  []BoardResult
}

// Showdown evaluates the completed board, pays out every pot tier, and
// finalizes the hand.
func (t *Table) Showdown() (*ShowdownResult, error) {
	if t.Street != River {
		return nil, fault.Errorf(fault.InvalidArgument, "showdown can only run after the river")
	}
	return t.settleShowdown([][]deck.Card{t.Board})
}

// ResolveAllInShowdown finishes a hand where betting is settled and every
// remaining player is all-in: it deals the remaining streets (or the agreed
// number of run-it-twice completions) and settles.
func (t *Table) ResolveAllInShowdown() (*ShowdownResult, error) {
	if !t.bettingRoundSettled() || !t.AllRemainingAllIn() {
		return nil, fault.Errorf(fault.IllegalState, "players still have action")
	}

	if t.agreedRunouts >= 2 {
		return t.settleRunouts()
	}

	for t.Street != River {
		var err error
		switch t.Street {
		case Preflop:
			err = t.DealFlop()
		case Flop:
			err = t.DealTurn()
		case Turn:
			err = t.DealRiver()
		default:
			return nil, fault.Errorf(fault.IllegalState, "cannot fast-forward from %s", t.Street)
		}
		if err != nil {
			return nil, err
		}
	}
	return t.settleShowdown([][]deck.Card{t.Board})
}

// settleRunouts deals the agreed number of independent board completions from
// the live deck and settles across all of them.
func (t *Table) settleRunouts() (*ShowdownResult, error) {
	needed := 5 - len(t.Board)
	boards := make([][]deck.Card, 0, t.agreedRunouts)
	for i := 0; i < t.agreedRunouts; i++ {
		board := make([]deck.Card, len(t.Board), 5)
		copy(board, t.Board)
		for j := 0; j < needed; j++ {
			card, err := t.deckCards.DealOne()
			if err != nil {
				return nil, err
			}
			board = append(board, card)
		}
		boards = append(boards, board)
		if t.currentLog != nil {
			t.currentLog.Actions = append(t.currentLog.Actions, HandEvent{
				Type:   "street",
				Street: Street("runout"),
				Board:  boardStrings(board),
			})
		}
	}

	// The first completion becomes the displayed board.
	t.Board = boards[0]
	return t.settleShowdown(boards)
}

// settleShowdown distributes every pot tier across the given boards, credits
// winners, and finalizes the hand log.
func (t *Table) settleShowdown(boards [][]deck.Card) (*ShowdownResult, error) {
	pots := t.sidePots()
	potBefore := t.Pot

	result := &ShowdownResult{
		Pot:     potBefore,
		Payouts: make(map[int64]int64),
		Boards:  make([]BoardResult, len(boards)),
	}

	boardWinners := make([]map[int64]*Player, len(boards))
	for i, board := range boards {
		result.Boards[i] = BoardResult{Board: board, Ranks: make(map[int64]evaluator.HandRank)}
		boardWinners[i] = make(map[int64]*Player)

		for _, p := range t.RemainingPlayers() {
			rank, _, err := evaluator.Best(p.HoleCards, board, t.evalKind())
			if err != nil {
				return nil, err
			}
			result.Boards[i].Ranks[p.ID] = rank
		}
	}

	for _, pot := range pots {
		// Each board gets an equal share of the tier; leftover chips go to
		// the earliest boards.
		base := pot.amount / int64(len(boards))
		extra := pot.amount % int64(len(boards))

		for i, board := range boards {
			share := base
			if int64(i) < extra {
				share++
			}
			if share == 0 {
				continue
			}

			winners, err := t.boardWinners(pot.eligible, board, t.evalKind())
			if err != nil {
				return nil, err
			}
			for _, w := range winners {
				boardWinners[i][w.ID] = w
			}
			t.payShare(share, winners, result.Payouts)
		}
	}

	for i := range boards {
		for _, w := range boardWinners[i] {
			result.Boards[i].Winners = append(result.Boards[i].Winners, w)
		}
	}

	t.Pot = 0
	t.Street = Showdown
	t.clearClock()

	allWinners := make([]*Player, 0)
	seen := make(map[int64]bool)
	for _, p := range t.Players {
		if _, ok := result.Payouts[p.ID]; ok && !seen[p.ID] {
			allWinners = append(allWinners, p)
			seen[p.ID] = true
		}
	}
	t.finalizeHand(allWinners, result.Payouts, potBefore, "showdown")
	return result, nil
}

// payShare splits share among winners: equal integer cuts, remainder to the
// winner nearest the left of the button.
func (t *Table) payShare(share int64, winners []*Player, payouts map[int64]int64) {
	if len(winners) == 0 || share == 0 {
		return
	}
	cut := share / int64(len(winners))
	rem := share % int64(len(winners))

	for _, w := range winners {
		w.Stack += cut
		payouts[w.ID] += cut
	}
	if rem > 0 {
		lucky := t.nearestLeftOfButton(winners)
		lucky.Stack += rem
		payouts[lucky.ID] += rem
	}
}

// boardWinners returns the eligible players holding the best hand on the
// given board.
func (t *Table) boardWinners(eligible []*Player, board []deck.Card, kind evaluator.Kind) ([]*Player, error) {
	var best evaluator.HandRank
	var winners []*Player
	for _, p := range eligible {
		rank, _, err := evaluator.Best(p.HoleCards, board, kind)
		if err != nil {
			return nil, err
		}
		cmp := 1
		if len(winners) > 0 {
			cmp = rank.Compare(best)
		}
		switch {
		case cmp > 0:
			best = rank
			winners = []*Player{p}
		case cmp == 0:
			winners = append(winners, p)
		}
	}
	return winners, nil
}

// sidePots builds contribution tiers from per-hand totals. Folded players'
// chips stay in the pots but they are not eligible to win. The top tier
// absorbs any excess above the highest live contribution.
func (t *Table) sidePots() []sidePot {
	remaining := t.RemainingPlayers()

	seen := make(map[int64]bool)
	capVals := make([]int64, 0, len(remaining))
	for _, p := range remaining {
		if !seen[p.HandCommitted] {
			seen[p.HandCommitted] = true
			capVals = append(capVals, p.HandCommitted)
		}
	}
	sortInt64s(capVals)

	pots := make([]sidePot, 0, len(capVals))
	prev := int64(0)
	for i, cap := range capVals {
		last := i == len(capVals)-1
		var amount int64
		for _, p := range t.Players {
			if p.HandCommitted <= prev {
				continue
			}
			contrib := p.HandCommitted
			if !last && contrib > cap {
				contrib = cap
			}
			amount += contrib - prev
		}

		eligible := make([]*Player, 0, len(remaining))
		for _, p := range remaining {
			if p.HandCommitted >= cap {
				eligible = append(eligible, p)
			}
		}

		if amount > 0 {
			pots = append(pots, sidePot{amount: amount, eligible: eligible})
		}
		prev = cap
	}
	return pots
}

// AwardToLastRemaining short-circuits the hand when everyone else folded.
// Returns the winner and true when it applied.
func (t *Table) AwardToLastRemaining() (*Player, bool) {
	if t.Street == Showdown || t.Street == PreHand {
		return nil, false
	}
	remaining := t.RemainingPlayers()
	if len(remaining) != 1 {
		return nil, false
	}

	winner := remaining[0]
	potBefore := t.Pot
	winner.Stack += potBefore
	t.Pot = 0
	t.Street = Showdown
	t.clearClock()
	t.finalizeHand([]*Player{winner}, map[int64]int64{winner.ID: potBefore}, potBefore, "all_folded")
	return winner, true
}

// nearestLeftOfButton picks the candidate whose seat comes first going left
// (ascending, wrapping) from the button.
func (t *Table) nearestLeftOfButton(candidates []*Player) *Player {
	if len(candidates) == 1 || t.DealerSeat == noSeat || t.MaxSeats <= 0 {
		return candidates[0]
	}
	bySeat := make(map[int]*Player, len(candidates))
	for _, p := range candidates {
		bySeat[p.Seat] = p
	}
	for i := 1; i <= t.MaxSeats; i++ {
		seat := (t.DealerSeat + i) % t.MaxSeats
		if p, ok := bySeat[seat]; ok {
			return p
		}
	}
	return candidates[0]
}

func (t *Table) evalKind() evaluator.Kind {
	if t.GameKind == PLO {
		return evaluator.Omaha
	}
	return evaluator.Holdem
}

func sortInt64s(s []int64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
