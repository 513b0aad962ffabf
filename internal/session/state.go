package session

import (
	"time"

	"github.com/padpad2004/poker-platform/internal/deck"
	"github.com/padpad2004/poker-platform/internal/game"
	"github.com/padpad2004/poker-platform/internal/store"
)

// SeatView is one seat in a table state frame. Hole cards are cleartext only
// for the viewer's own seat and for generic (user-less) seats; everyone else
// sees masked tokens.
type SeatView struct {
	PlayerID   int64    `json:"player_id"`
	UserID     *int64   `json:"user_id,omitempty"`
	Name       string   `json:"name"`
	AvatarURL  string   `json:"avatar_url,omitempty"`
	Seat       int      `json:"seat"`
	Stack      int64    `json:"stack"`
	Committed  int64    `json:"committed"`
	HoleCards  []string `json:"hole_cards,omitempty"`
	InHand     bool     `json:"in_hand"`
	HasFolded  bool     `json:"has_folded"`
	AllIn      bool     `json:"all_in"`
	SittingOut bool     `json:"sitting_out"`
}

// TableState is the per-viewer snapshot broadcast after every mutation.
type TableState struct {
	TableID    int64  `json:"table_id"`
	Name       string `json:"name"`
	GameKind   string `json:"game_kind"`
	MaxSeats   int    `json:"max_seats"`
	SmallBlind int64  `json:"small_blind"`
	BigBlind   int64  `json:"big_blind"`

	HandNumber int64    `json:"hand_number"`
	Street     string   `json:"street"`
	Pot        int64    `json:"pot"`
	Board      []string `json:"board"`
	CurrentBet int64    `json:"current_bet"`

	DealerSeat     *int       `json:"dealer_seat,omitempty"`
	SmallBlindSeat *int       `json:"small_blind_seat,omitempty"`
	BigBlindSeat   *int       `json:"big_blind_seat,omitempty"`
	NextToActSeat  *int       `json:"next_to_act_seat,omitempty"`
	ActionDeadline *time.Time `json:"action_deadline,omitempty"`

	Players     []SeatView     `json:"players"`
	RecentHands []game.HandLog `json:"recent_hands,omitempty"`
}

// buildState renders the engine for one viewer. Must be called under the
// table lock.
func buildState(engine *game.Table, meta *store.TableMeta, viewer *int64) *TableState {
	st := &TableState{
		TableID:    meta.ID,
		Name:       meta.Name,
		GameKind:   string(engine.GameKind),
		MaxSeats:   engine.MaxSeats,
		SmallBlind: engine.SmallBlind,
		BigBlind:   engine.BigBlind,

		HandNumber: engine.HandNumber,
		Street:     string(engine.Street),
		Pot:        engine.Pot,
		Board:      cardStrings(engine.Board),
		CurrentBet: engine.CurrentBet,

		DealerSeat:     seatOrNil(engine.DealerSeat),
		SmallBlindSeat: seatOrNil(engine.SmallBlindSeat),
		BigBlindSeat:   seatOrNil(engine.BigBlindSeat),
		NextToActSeat:  seatOrNil(engine.NextToActSeat),

		RecentHands: engine.RecentHands,
	}
	if !engine.ActionDeadline.IsZero() {
		deadline := engine.ActionDeadline
		st.ActionDeadline = &deadline
	}

	st.Players = make([]SeatView, 0, len(engine.Players))
	for _, p := range engine.Players {
		view := SeatView{
			PlayerID:   p.ID,
			UserID:     p.UserID,
			Name:       p.Name,
			AvatarURL:  p.AvatarURL,
			Seat:       p.Seat,
			Stack:      p.Stack,
			Committed:  p.Committed,
			HoleCards:  maskedHoleCards(p, viewer),
			InHand:     p.InHand,
			HasFolded:  p.HasFolded,
			AllIn:      p.AllIn,
			SittingOut: p.SittingOut,
		}
		st.Players = append(st.Players, view)
	}
	return st
}

// maskedHoleCards renders a player's cards for the given viewer. Generic
// seats (no user) are public; a viewer sees their own cards; everything else
// is masked.
func maskedHoleCards(p *game.Player, viewer *int64) []string {
	if len(p.HoleCards) == 0 {
		return nil
	}
	if p.UserID == nil || (viewer != nil && *p.UserID == *viewer) {
		return p.HoleCardStrings()
	}
	masked := make([]string, len(p.HoleCards))
	for i := range masked {
		masked[i] = deck.Masked
	}
	return masked
}

func seatOrNil(seat int) *int {
	if seat < 0 {
		return nil
	}
	return &seat
}

func cardStrings(cards []deck.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}
