package evaluator

import (
	"testing"

	"github.com/padpad2004/poker-platform/internal/deck"
	"github.com/stretchr/testify/require"
)

func cards(t *testing.T, s string) []deck.Card {
	t.Helper()
	out, err := deck.ParseCards(s)
	require.NoError(t, err)
	return out
}

func eval(t *testing.T, s string) HandRank {
	t.Helper()
	rank, err := Evaluate5(cards(t, s))
	require.NoError(t, err)
	return rank
}

func TestCategories(t *testing.T) {
	tests := []struct {
		name     string
		hand     string
		category Category
	}{
		{"royal flush", "AsKsQsJsTs", RoyalFlush},
		{"straight flush", "9h8h7h6h5h", StraightFlush},
		{"steel wheel", "5c4c3c2cAc", StraightFlush},
		{"quads", "7s7h7d7c2s", Quads},
		{"full house", "KsKhKd2c2s", FullHouse},
		{"flush", "As9s7s5s2s", Flush},
		{"straight", "9c8d7h6s5c", Straight},
		{"wheel", "5d4c3h2sAs", Straight},
		{"trips", "QsQhQd7c2s", Trips},
		{"two pair", "JsJh4d4cAs", TwoPair},
		{"one pair", "TsTh8d5c2s", OnePair},
		{"high card", "AsJh9d5c2s", HighCard},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.category, eval(t, tt.hand).Category)
		})
	}
}

// Category ordering: royal_flush > straight_flush > quads > full_house >
// flush > straight > trips > two_pair > one_pair > high_card.
func TestCategoryLadder(t *testing.T) {
	ladder := []string{
		"AsJh9d5c2s", // high card
		"TsTh8d5c2s", // one pair
		"JsJh4d4cAs", // two pair
		"QsQhQd7c2s", // trips
		"9c8d7h6s5c", // straight
		"As9s7s5s2s", // flush
		"KsKhKd2c2s", // full house
		"7s7h7d7c2s", // quads
		"9h8h7h6h5h", // straight flush
		"AsKsQsJsTs", // royal flush
	}

	for i := 1; i < len(ladder); i++ {
		lo := eval(t, ladder[i-1])
		hi := eval(t, ladder[i])
		require.Positive(t, hi.Compare(lo), "%s should beat %s", ladder[i], ladder[i-1])
		require.Negative(t, lo.Compare(hi))
	}
}

func TestWheelRanksFiveHigh(t *testing.T) {
	wheel := eval(t, "5d4c3h2sAs")
	sixHigh := eval(t, "6d5c4h3s2c")
	anyFlush := eval(t, "Kh9h7h5h2h")

	require.Negative(t, wheel.Compare(sixHigh), "A-2-3-4-5 must rank below 6-high straight")
	require.Negative(t, wheel.Compare(anyFlush))
	require.Negative(t, sixHigh.Compare(anyFlush))
}

func TestKickersBreakTies(t *testing.T) {
	aceKicker := eval(t, "TsTh8d5cAs")
	kingKicker := eval(t, "TdTc8h5sKs")
	require.Positive(t, aceKicker.Compare(kingKicker))

	identical := eval(t, "TdTc8h5sAd")
	require.Zero(t, aceKicker.Compare(identical))
}

func TestCompareIsTotal(t *testing.T) {
	hands := []string{
		"AsKsQsJsTs", "9h8h7h6h5h", "7s7h7d7c2s", "KsKhKd2c2s",
		"As9s7s5s2s", "9c8d7h6s5c", "5d4c3h2sAs", "QsQhQd7c2s",
		"JsJh4d4cAs", "TsTh8d5c2s", "AsJh9d5c2s", "AdJc9h5s2d",
	}
	ranks := make([]HandRank, len(hands))
	for i, h := range hands {
		ranks[i] = eval(t, h)
	}

	for i := range ranks {
		require.Zero(t, ranks[i].Compare(ranks[i]), "reflexivity")
		for j := range ranks {
			require.Equal(t, ranks[i].Compare(ranks[j]) > 0, ranks[j].Compare(ranks[i]) < 0, "antisymmetry %d %d", i, j)
			for k := range ranks {
				if ranks[i].Compare(ranks[j]) > 0 && ranks[j].Compare(ranks[k]) > 0 {
					require.Positive(t, ranks[i].Compare(ranks[k]), "transitivity %d %d %d", i, j, k)
				}
			}
		}
	}
}

func TestBestHoldemPicksFromAllSeven(t *testing.T) {
	hole := cards(t, "AsKs")
	board := cards(t, "QsJsTs7d2c")

	rank, five, err := Best(hole, board, Holdem)
	require.NoError(t, err)
	require.Equal(t, RoyalFlush, rank.Category)
	require.Len(t, five, 5)
}

// Omaha must use exactly two hole cards: four spades in the hole with only
// one spade on the board is no flush.
func TestOmahaExactlyTwoHoleCards(t *testing.T) {
	hole := cards(t, "As2s5s9s")
	board := cards(t, "Ks7d4hJcTc")

	rank, _, err := Best(hole, board, Omaha)
	require.NoError(t, err)
	require.NotEqual(t, Flush, rank.Category)
}

// A board quads does not play in Omaha unless two hole cards combine with
// three of the board.
func TestOmahaBoardDoesNotPlayAlone(t *testing.T) {
	hole := cards(t, "2c3d7h8s")
	board := cards(t, "KsKhKdKc5s")

	rank, _, err := Best(hole, board, Omaha)
	require.NoError(t, err)
	// Best is three kings from the board plus two hole cards: trips.
	require.Equal(t, Trips, rank.Category)
}

func TestEvaluate5RejectsWrongSize(t *testing.T) {
	_, err := Evaluate5(cards(t, "AsKs"))
	require.Error(t, err)
}
