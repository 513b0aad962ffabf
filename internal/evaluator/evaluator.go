// Package evaluator ranks five-card poker hands and finds the best hand a
// player can make under Hold'em or Omaha rules.
package evaluator

import (
	"fmt"
	"sort"

	"github.com/padpad2004/poker-platform/internal/deck"
)

// Category is the hand category, ordered from worst to best.
type Category int

const (
	HighCard Category = iota + 1
	OnePair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	switch c {
	case HighCard:
		return "high_card"
	case OnePair:
		return "one_pair"
	case TwoPair:
		return "two_pair"
	case Trips:
		return "three_of_a_kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full_house"
	case Quads:
		return "four_of_a_kind"
	case StraightFlush:
		return "straight_flush"
	case RoyalFlush:
		return "royal_flush"
	default:
		return "unknown"
	}
}

// HandRank is a totally ordered hand strength: category first, then the
// category-specific tiebreak ranks compared lexicographically.
type HandRank struct {
	Category  Category    `json:"category"`
	Tiebreaks []deck.Rank `json:"tiebreaks"`
}

// Compare returns <0 if r is weaker than o, 0 if equal, >0 if stronger.
func (r HandRank) Compare(o HandRank) int {
	if r.Category != o.Category {
		return int(r.Category) - int(o.Category)
	}
	n := len(r.Tiebreaks)
	if len(o.Tiebreaks) < n {
		n = len(o.Tiebreaks)
	}
	for i := 0; i < n; i++ {
		if r.Tiebreaks[i] != o.Tiebreaks[i] {
			return int(r.Tiebreaks[i]) - int(o.Tiebreaks[i])
		}
	}
	return len(r.Tiebreaks) - len(o.Tiebreaks)
}

func (r HandRank) String() string {
	return r.Category.String()
}

// Evaluate5 ranks exactly five cards.
func Evaluate5(cards []deck.Card) (HandRank, error) {
	if len(cards) != 5 {
		return HandRank{}, fmt.Errorf("evaluator: need exactly 5 cards, got %d", len(cards))
	}

	values := make([]deck.Rank, 5)
	for i, c := range cards {
		values[i] = c.Rank
	}
	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })

	counts := make(map[deck.Rank]int, 5)
	for _, v := range values {
		counts[v]++
	}

	flush := isFlush(cards)
	straight, straightHigh := isStraight(values)

	if flush && straight {
		if straightHigh == deck.Ace {
			return HandRank{Category: RoyalFlush}, nil
		}
		return HandRank{Category: StraightFlush, Tiebreaks: []deck.Rank{straightHigh}}, nil
	}

	byCount := groupByCount(counts)

	if len(byCount[4]) == 1 {
		four := byCount[4][0]
		kicker := highestExcept(values, four)
		return HandRank{Category: Quads, Tiebreaks: []deck.Rank{four, kicker}}, nil
	}

	if len(byCount[3]) == 1 && len(byCount[2]) == 1 {
		return HandRank{Category: FullHouse, Tiebreaks: []deck.Rank{byCount[3][0], byCount[2][0]}}, nil
	}

	if flush {
		return HandRank{Category: Flush, Tiebreaks: values}, nil
	}

	if straight {
		return HandRank{Category: Straight, Tiebreaks: []deck.Rank{straightHigh}}, nil
	}

	if len(byCount[3]) == 1 {
		trip := byCount[3][0]
		tb := append([]deck.Rank{trip}, kickersExcept(values, trip)...)
		return HandRank{Category: Trips, Tiebreaks: tb}, nil
	}

	if len(byCount[2]) == 2 {
		hi, lo := byCount[2][0], byCount[2][1]
		kicker := highestExcept(values, hi, lo)
		return HandRank{Category: TwoPair, Tiebreaks: []deck.Rank{hi, lo, kicker}}, nil
	}

	if len(byCount[2]) == 1 {
		pair := byCount[2][0]
		tb := append([]deck.Rank{pair}, kickersExcept(values, pair)...)
		return HandRank{Category: OnePair, Tiebreaks: tb}, nil
	}

	return HandRank{Category: HighCard, Tiebreaks: values}, nil
}

func isFlush(cards []deck.Card) bool {
	for _, c := range cards[1:] {
		if c.Suit != cards[0].Suit {
			return false
		}
	}
	return true
}

// isStraight expects values sorted descending with no constraint on
// duplicates; five distinct consecutive ranks qualify. The wheel
// (A-2-3-4-5) counts as a five-high straight.
func isStraight(values []deck.Rank) (bool, deck.Rank) {
	distinct := make([]deck.Rank, 0, 5)
	seen := make(map[deck.Rank]bool, 5)
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			distinct = append(distinct, v)
		}
	}
	if len(distinct) != 5 {
		return false, 0
	}

	// distinct is descending
	if distinct[0] == deck.Ace && distinct[1] == deck.Five &&
		distinct[2] == deck.Four && distinct[3] == deck.Three && distinct[4] == deck.Two {
		return true, deck.Five
	}
	if distinct[0]-distinct[4] == 4 {
		return true, distinct[0]
	}
	return false, 0
}

// groupByCount maps multiplicity -> ranks with that multiplicity, each
// group sorted high to low.
func groupByCount(counts map[deck.Rank]int) map[int][]deck.Rank {
	out := make(map[int][]deck.Rank)
	for rank, n := range counts {
		out[n] = append(out[n], rank)
	}
	for n := range out {
		sort.Slice(out[n], func(i, j int) bool { return out[n][i] > out[n][j] })
	}
	return out
}

func highestExcept(values []deck.Rank, except ...deck.Rank) deck.Rank {
	for _, v := range values {
		skip := false
		for _, e := range except {
			if v == e {
				skip = true
				break
			}
		}
		if !skip {
			return v
		}
	}
	return 0
}

func kickersExcept(values []deck.Rank, except deck.Rank) []deck.Rank {
	kickers := make([]deck.Rank, 0, 3)
	for _, v := range values {
		if v != except {
			kickers = append(kickers, v)
		}
	}
	return kickers
}
