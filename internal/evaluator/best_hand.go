package evaluator

import (
	"fmt"

	"github.com/padpad2004/poker-platform/internal/deck"
)

// Kind selects the best-hand search rules.
type Kind int

const (
	// Holdem: best five from hole + board (21 combinations at the river).
	Holdem Kind = iota
	// Omaha: exactly two of four hole cards plus three of five board cards
	// (60 combinations at the river).
	Omaha
)

// Best returns the strongest hand the player can make, with the five cards
// that make it. Ties between players produce equal HandRanks.
func Best(hole, board []deck.Card, kind Kind) (HandRank, []deck.Card, error) {
	switch kind {
	case Holdem:
		return bestHoldem(hole, board)
	case Omaha:
		return bestOmaha(hole, board)
	default:
		return HandRank{}, nil, fmt.Errorf("evaluator: unknown game kind %d", kind)
	}
}

func bestHoldem(hole, board []deck.Card) (HandRank, []deck.Card, error) {
	all := make([]deck.Card, 0, len(hole)+len(board))
	all = append(all, hole...)
	all = append(all, board...)
	if len(all) < 5 {
		return HandRank{}, nil, fmt.Errorf("evaluator: need at least 5 cards, got %d", len(all))
	}

	var (
		bestRank HandRank
		bestFive []deck.Card
		found    bool
	)
	for _, combo := range combinations(len(all), 5) {
		five := pick(all, combo)
		rank, err := Evaluate5(five)
		if err != nil {
			return HandRank{}, nil, err
		}
		if !found || rank.Compare(bestRank) > 0 {
			bestRank = rank
			bestFive = five
			found = true
		}
	}
	return bestRank, bestFive, nil
}

func bestOmaha(hole, board []deck.Card) (HandRank, []deck.Card, error) {
	if len(hole) != 4 {
		return HandRank{}, nil, fmt.Errorf("evaluator: omaha needs 4 hole cards, got %d", len(hole))
	}
	if len(board) < 3 {
		return HandRank{}, nil, fmt.Errorf("evaluator: omaha needs at least 3 board cards, got %d", len(board))
	}

	var (
		bestRank HandRank
		bestFive []deck.Card
		found    bool
	)
	for _, hc := range combinations(len(hole), 2) {
		for _, bc := range combinations(len(board), 3) {
			five := append(pick(hole, hc), pick(board, bc)...)
			rank, err := Evaluate5(five)
			if err != nil {
				return HandRank{}, nil, err
			}
			if !found || rank.Compare(bestRank) > 0 {
				bestRank = rank
				bestFive = five
				found = true
			}
		}
	}
	return bestRank, bestFive, nil
}

func pick(cards []deck.Card, idx []int) []deck.Card {
	out := make([]deck.Card, len(idx))
	for i, j := range idx {
		out[i] = cards[j]
	}
	return out
}

// combinations enumerates all k-element index subsets of [0, n).
func combinations(n, k int) [][]int {
	var out [][]int
	combo := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			out = append(out, append([]int(nil), combo...))
			return
		}
		for i := start; i <= n-(k-depth); i++ {
			combo[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
	return out
}
