package deck

import (
	"errors"
	rand "math/rand/v2"

	"github.com/padpad2004/poker-platform/internal/randutil"
)

// ErrEmpty is returned when dealing from an exhausted deck. Under correct
// engine sequencing this never happens; callers treat it as fatal.
var ErrEmpty = errors.New("deck: no cards remaining")

// Deck represents a deck of playing cards
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a shuffled 52-card deck seeded from the system CSPRNG.
func New() *Deck {
	return NewWithRNG(randutil.New())
}

// NewWithRNG creates a shuffled deck using the provided RNG. Tests inject a
// deterministic source here.
func NewWithRNG(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, 52),
		rng:   rng,
	}
	d.Reset()
	return d
}

// Reset restores the deck to a full 52-card deck and shuffles it
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for suit := Clubs; suit <= Spades; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	d.shuffle()
}

func (d *Deck) shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// DealOne removes and returns the top card from the deck
func (d *Deck) DealOne() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmpty
	}
	card := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return card, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
