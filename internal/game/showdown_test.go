package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/padpad2004/poker-platform/internal/deck"
	"github.com/padpad2004/poker-platform/internal/fault"
)

// checkDown checks every street to the river with no further betting.
func checkDown(t *testing.T, tbl *Table) {
	t.Helper()
	for _, deal := range []func() error{tbl.DealFlop, tbl.DealTurn, tbl.DealRiver} {
		require.NoError(t, deal())
		for tbl.NextToActSeat != noSeat {
			p := tbl.playerBySeat(tbl.NextToActSeat)
			require.NotNil(t, p)
			mustAct(t, tbl, p.ID, ActionCheck)
		}
	}
}

func mustParse(t *testing.T, s string) []deck.Card {
	t.Helper()
	cards, err := deck.ParseCards(strings.ReplaceAll(s, " ", ""))
	require.NoError(t, err)
	return cards
}

func TestSidePotsPayTiersSeparately(t *testing.T) {
	tbl, _ := testTable(t, 10, 50, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	bob := tbl.Players[1]
	charlie := tbl.Players[2]

	mustAct(t, tbl, charlie.ID, ActionRaiseTo, 50)
	mustAct(t, tbl, alice.ID, ActionCall) // all-in for 10 total
	mustAct(t, tbl, bob.ID, ActionCall)   // all-in for 50 total

	require.True(t, alice.AllIn)
	require.True(t, bob.AllIn)
	require.Equal(t, int64(110), tbl.Pot)
	require.Equal(t, noSeat, tbl.NextToActSeat)

	checkDown(t, tbl)

	// Fix the cards so the short stack wins the main pot and the middle
	// stack wins the side pot.
	alice.HoleCards = mustParse(t, "As Ah")
	bob.HoleCards = mustParse(t, "Kd Kc")
	charlie.HoleCards = mustParse(t, "Qs Qd")
	tbl.Board = mustParse(t, "2c 7d 9h Js 3s")

	result, err := tbl.Showdown()
	require.NoError(t, err)

	require.Equal(t, int64(30), result.Payouts[alice.ID], "main pot: 10 from each of three players")
	require.Equal(t, int64(80), result.Payouts[bob.ID], "side pot: 40 more from each of two players")
	require.Zero(t, result.Payouts[charlie.ID])

	require.Equal(t, int64(30), alice.Stack)
	require.Equal(t, int64(80), bob.Stack)
	require.Equal(t, int64(50), charlie.Stack)
	require.Equal(t, Showdown, tbl.Street)
	require.Zero(t, tbl.Pot)
}

func TestChipConservationThroughShowdown(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	mustAct(t, tbl, tbl.Players[2].ID, ActionCall)
	mustAct(t, tbl, tbl.Players[0].ID, ActionCall)
	mustAct(t, tbl, tbl.Players[1].ID, ActionCheck)
	checkDown(t, tbl)

	result, err := tbl.Showdown()
	require.NoError(t, err)

	var paid int64
	for _, amount := range result.Payouts {
		paid += amount
	}
	require.Equal(t, int64(6), paid, "the whole pot must be paid out")

	var total int64
	for _, p := range tbl.Players {
		total += p.Stack
	}
	require.Equal(t, int64(300), total, "chips are conserved through showdown")
}

func TestShowdownRemainderGoesLeftOfButton(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	bob := tbl.Players[1]
	charlie := tbl.Players[2]

	// Raise to 5, called twice: pot of 15 will not split evenly two ways.
	mustAct(t, tbl, charlie.ID, ActionRaiseTo, 5)
	mustAct(t, tbl, alice.ID, ActionCall)
	mustAct(t, tbl, bob.ID, ActionCall)
	checkDown(t, tbl)

	// Split pot between the two players left of the button.
	alice.HoleCards = mustParse(t, "2c 3d")
	bob.HoleCards = mustParse(t, "As Kd")
	charlie.HoleCards = mustParse(t, "Ah Kc")
	tbl.Board = mustParse(t, "Ad Kh 7s 7c 2h")

	result, err := tbl.Showdown()
	require.NoError(t, err)

	// 15 chips, two winners: 7 each, odd chip to the seat nearest left of
	// the button (seat 0). Bob sits in seat 1.
	require.Equal(t, int64(8), result.Payouts[bob.ID])
	require.Equal(t, int64(7), result.Payouts[charlie.ID])
}

func TestAllFoldShortCircuitAwardsPot(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	bob := tbl.Players[1]
	mustAct(t, tbl, tbl.Players[2].ID, ActionFold)
	mustAct(t, tbl, tbl.Players[0].ID, ActionFold)

	winner, ok := tbl.AwardToLastRemaining()
	require.True(t, ok)
	require.Equal(t, bob.ID, winner.ID)
	require.Equal(t, int64(101), bob.Stack, "big blind wins the blinds")
	require.Equal(t, Showdown, tbl.Street)
	require.Zero(t, tbl.Pot)

	require.Len(t, tbl.RecentHands, 1)
	require.Equal(t, "all_folded", tbl.RecentHands[0].Result.Reason)
}

func TestRunItTwiceSplitsPotAcrossBoards(t *testing.T) {
	tbl, _ := testTable(t, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	bob := tbl.Players[1]

	mustAct(t, tbl, alice.ID, ActionRaiseTo, 100)
	mustAct(t, tbl, bob.ID, ActionCall)
	require.True(t, tbl.AllRemainingAllIn())

	require.NoError(t, tbl.RequestRunouts(alice.ID, 2))
	require.True(t, tbl.RunoutPending())
	agreed, err := tbl.RespondRunouts(bob.ID, true)
	require.NoError(t, err)
	require.True(t, agreed)
	require.Equal(t, 2, tbl.RunoutsAgreed())

	result, err := tbl.ResolveAllInShowdown()
	require.NoError(t, err)

	require.Len(t, result.Boards, 2)
	for _, board := range result.Boards {
		require.Len(t, board.Board, 5)
	}

	var paid int64
	for _, amount := range result.Payouts {
		paid += amount
	}
	require.Equal(t, int64(200), paid)
	require.Equal(t, int64(200), alice.Stack+bob.Stack)
	require.Equal(t, Showdown, tbl.Street)
}

func TestRunoutRejectionCancelsProposal(t *testing.T) {
	tbl, _ := testTable(t, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	bob := tbl.Players[1]
	mustAct(t, tbl, alice.ID, ActionRaiseTo, 100)
	mustAct(t, tbl, bob.ID, ActionCall)

	require.NoError(t, tbl.RequestRunouts(alice.ID, 3))
	agreed, err := tbl.RespondRunouts(bob.ID, false)
	require.NoError(t, err)
	require.False(t, agreed)
	require.False(t, tbl.RunoutPending())
	require.Zero(t, tbl.RunoutsAgreed())

	// The hand resolves on a single board.
	result, err := tbl.ResolveAllInShowdown()
	require.NoError(t, err)
	require.Len(t, result.Boards, 1)
}

func TestRunoutsRejectedForOmaha(t *testing.T) {
	tbl := NewTable(Config{MaxSeats: 6, SmallBlind: 1, BigBlind: 2, GameKind: PLO})
	for i, stack := range []int64{100, 100} {
		seat := i
		userID := int64(i + 1)
		_, err := tbl.AddPlayer(testNames[i], stack, &userID, "", &seat)
		require.NoError(t, err)
	}
	require.NoError(t, tbl.StartNewHand())

	err := tbl.RequestRunouts(tbl.Players[0].ID, 2)
	require.Error(t, err)
	require.True(t, fault.IsKind(err, fault.InvalidArgument))
	require.Equal(t, "Run-outs are only supported for NLH", err.Error())
}

func TestRunoutsRequireAllIn(t *testing.T) {
	tbl, _ := testTable(t, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	err := tbl.RequestRunouts(tbl.Players[0].ID, 2)
	require.Error(t, err)
	require.True(t, fault.IsKind(err, fault.IllegalState))
}

func TestShowdownRequiresRiver(t *testing.T) {
	tbl, _ := testTable(t, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	_, err := tbl.Showdown()
	require.Error(t, err)
	require.True(t, fault.IsKind(err, fault.InvalidArgument))
}
