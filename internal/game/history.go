package game

import "github.com/padpad2004/poker-platform/internal/deck"

// HandEvent is one entry in a hand log: either a player action or a street
// transition, distinguished by Type.
type HandEvent struct {
	Type   string `json:"type"` // "action" or "street"
	Street Street `json:"street"`

	// Action fields.
	PlayerName string `json:"player_name,omitempty"`
	Seat       *int   `json:"seat,omitempty"`
	Action     string `json:"action,omitempty"`
	Amount     *int64 `json:"amount,omitempty"`
	Committed  *int64 `json:"committed,omitempty"`
	Stack      *int64 `json:"stack,omitempty"`
	Auto       bool   `json:"auto,omitempty"`

	// Street fields.
	Board []string `json:"board,omitempty"`
}

// WinnerSummary records one winner's payout in a finished hand.
type WinnerSummary struct {
	PlayerName string `json:"player_name"`
	Seat       int    `json:"seat"`
	Amount     int64  `json:"amount"`
}

// HandResult summarizes how a hand ended.
type HandResult struct {
	Reason  string          `json:"reason"` // "showdown" or "all_folded"
	Pot     int64           `json:"pot"`
	Winners []WinnerSummary `json:"winners"`
	Board   []string        `json:"board"`
}

// HandLog is the full record of one hand, kept in the recent-hands ring and
// rendered in table state frames.
type HandLog struct {
	HandNumber int64       `json:"hand_number"`
	Actions    []HandEvent `json:"actions"`
	Board      []string    `json:"board,omitempty"`
	Pot        int64       `json:"pot"`
	Result     *HandResult `json:"result,omitempty"`
}

func (t *Table) logAction(street Street, p *Player, action string, amount *int64, auto bool) {
	if t.currentLog == nil {
		return
	}
	seat := p.Seat
	committed := p.Committed
	stack := p.Stack
	t.currentLog.Actions = append(t.currentLog.Actions, HandEvent{
		Type:       "action",
		Street:     street,
		PlayerName: p.Name,
		Seat:       &seat,
		Action:     action,
		Amount:     amount,
		Committed:  &committed,
		Stack:      &stack,
		Auto:       auto,
	})
}

func (t *Table) logStreetTransition(street Street) {
	if t.currentLog == nil {
		return
	}
	t.currentLog.Actions = append(t.currentLog.Actions, HandEvent{
		Type:   "street",
		Street: street,
		Board:  boardStrings(t.Board),
	})
}

// finalizeHand closes the current log and pushes it into the recent-hands
// ring.
func (t *Table) finalizeHand(winners []*Player, payouts map[int64]int64, potAmount int64, reason string) {
	if t.currentLog == nil {
		return
	}

	summaries := make([]WinnerSummary, 0, len(winners))
	for _, w := range winners {
		summaries = append(summaries, WinnerSummary{
			PlayerName: w.Name,
			Seat:       w.Seat,
			Amount:     payouts[w.ID],
		})
	}

	t.currentLog.Result = &HandResult{
		Reason:  reason,
		Pot:     potAmount,
		Winners: summaries,
		Board:   boardStrings(t.Board),
	}
	t.currentLog.Board = boardStrings(t.Board)
	t.currentLog.Pot = potAmount

	t.RecentHands = append(t.RecentHands, *t.currentLog)
	if len(t.RecentHands) > recentHandsLimit {
		t.RecentHands = t.RecentHands[len(t.RecentHands)-recentHandsLimit:]
	}
	t.currentLog = nil
}

func boardStrings(board []deck.Card) []string {
	out := make([]string, len(board))
	for i, c := range board {
		out[i] = c.String()
	}
	return out
}
