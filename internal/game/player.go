package game

import (
	"time"

	"github.com/padpad2004/poker-platform/internal/deck"
)

// Player is a seated player. Owned by its Table; the session layer reads it
// only while holding the table lock.
type Player struct {
	ID        int64
	Name      string
	Seat      int
	HoleCards []deck.Card

	Stack         int64
	Committed     int64 // chips put in this street
	HandCommitted int64 // chips put in this hand, across streets

	InHand    bool
	HasFolded bool
	AllIn     bool

	SittingOut  bool
	SatOutSince time.Time

	// UserID is nil for generic/bot seats; those hole cards are public.
	UserID    *int64
	AvatarURL string
}

// CanAct reports whether the player can take a betting action.
func (p *Player) CanAct() bool {
	return p.InHand && !p.HasFolded && !p.AllIn
}

// HoleCardStrings renders the player's hole cards on the wire.
func (p *Player) HoleCardStrings() []string {
	out := make([]string, len(p.HoleCards))
	for i, c := range p.HoleCards {
		out[i] = c.String()
	}
	return out
}
