package game

import (
	"testing"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/require"

	"github.com/padpad2004/poker-platform/internal/fault"
)

var testNames = []string{"Alice", "Bob", "Charlie", "Dave", "Eve", "Frank"}

// testTable seats len(stacks) players at 1/2 blinds with a mocked clock.
// Seat i holds stacks[i] and user id i+1.
func testTable(t *testing.T, stacks ...int64) (*Table, *quartz.Mock) {
	t.Helper()

	mock := quartz.NewMock(t)
	tbl := NewTable(Config{
		MaxSeats:   6,
		SmallBlind: 1,
		BigBlind:   2,
		GameKind:   NLH,
		Clock:      mock,
	})

	for i, stack := range stacks {
		seat := i
		userID := int64(i + 1)
		_, err := tbl.AddPlayer(testNames[i], stack, &userID, "", &seat)
		require.NoError(t, err)
	}
	return tbl, mock
}

func mustAct(t *testing.T, tbl *Table, playerID int64, action ActionKind, amount ...int64) {
	t.Helper()
	var amt *int64
	if len(amount) > 0 {
		amt = &amount[0]
	}
	require.NoError(t, tbl.Act(playerID, action, amt))
}

func TestButtonPostsSmallBlind(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	require.Equal(t, 0, tbl.DealerSeat)
	require.Equal(t, 0, tbl.SmallBlindSeat)
	require.Equal(t, 1, tbl.BigBlindSeat)
	require.Equal(t, 2, tbl.NextToActSeat, "first to act preflop is the seat after the big blind")
	require.Equal(t, int64(2), tbl.CurrentBet)
	require.Equal(t, int64(3), tbl.Pot)
}

func TestHeadsUpButtonPostsSmallBlindAndActsFirst(t *testing.T) {
	tbl, _ := testTable(t, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	require.Equal(t, 0, tbl.SmallBlindSeat)
	require.Equal(t, 1, tbl.BigBlindSeat)
	require.Equal(t, 0, tbl.NextToActSeat, "heads-up, the button acts first preflop")
}

func TestRaiserGetsNoExtraActionAfterCalls(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	bob := tbl.Players[1]
	charlie := tbl.Players[2]

	mustAct(t, tbl, charlie.ID, ActionRaiseTo, 6)
	mustAct(t, tbl, alice.ID, ActionCall)
	mustAct(t, tbl, bob.ID, ActionCall)

	require.Equal(t, noSeat, tbl.NextToActSeat, "street should close after both calls")
	require.True(t, tbl.BettingRoundComplete())
}

func TestMinimumRaiseEnforced(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	charlie := tbl.Players[2]
	amt := int64(3)
	err := tbl.Act(charlie.ID, ActionRaiseTo, &amt)
	require.Error(t, err)
	require.True(t, fault.IsKind(err, fault.InvalidArgument))
	require.Contains(t, err.Error(), "minimum raise")
}

func TestShortAllInDoesNotReopenAction(t *testing.T) {
	tbl, _ := testTable(t, 8, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	charlie := tbl.Players[2]

	mustAct(t, tbl, charlie.ID, ActionRaiseTo, 6)
	require.Equal(t, int64(4), tbl.LastRaiseIncrement)
	require.Equal(t, 2, tbl.ActionClosingSeat)

	// Alice's whole stack is 8: above the current bet but below a full raise.
	mustAct(t, tbl, alice.ID, ActionRaiseTo, 8)
	require.True(t, alice.AllIn)
	require.Equal(t, int64(4), tbl.LastRaiseIncrement, "short all-in must not change the raise increment")
	require.Equal(t, 2, tbl.ActionClosingSeat, "short all-in must not reset the closing seat")
	require.Equal(t, int64(8), tbl.CurrentBet)
}

func TestBigBlindKeepsOptionOnLimpedPot(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	bob := tbl.Players[1]
	charlie := tbl.Players[2]

	mustAct(t, tbl, charlie.ID, ActionCall)
	mustAct(t, tbl, alice.ID, ActionCall)
	require.Equal(t, bob.Seat, tbl.NextToActSeat, "the big blind still has the option")

	mustAct(t, tbl, bob.ID, ActionRaiseTo, 8)
	require.Equal(t, charlie.Seat, tbl.NextToActSeat)
	require.Equal(t, bob.Seat, tbl.ActionClosingSeat)
}

func TestBigBlindCheckClosesLimpedPot(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	mustAct(t, tbl, tbl.Players[2].ID, ActionCall)
	mustAct(t, tbl, tbl.Players[0].ID, ActionCall)
	mustAct(t, tbl, tbl.Players[1].ID, ActionCheck)

	require.Equal(t, noSeat, tbl.NextToActSeat)
	require.True(t, tbl.BettingRoundComplete())
}

func TestNoBetStreetRequiresFullOrbit(t *testing.T) {
	tbl, _ := testTable(t, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	bob := tbl.Players[1]

	mustAct(t, tbl, alice.ID, ActionCall)
	mustAct(t, tbl, bob.ID, ActionCheck)
	require.True(t, tbl.BettingRoundComplete())
	require.NoError(t, tbl.DealFlop())

	require.Equal(t, bob.Seat, tbl.NextToActSeat, "out of position acts first on the flop")
	mustAct(t, tbl, bob.ID, ActionCheck)
	require.Equal(t, alice.Seat, tbl.NextToActSeat, "one check does not close a no-bet street")
	mustAct(t, tbl, alice.ID, ActionCheck)
	require.Equal(t, noSeat, tbl.NextToActSeat)
	require.True(t, tbl.BettingRoundComplete())
}

func TestCheckFacingBetRejected(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	charlie := tbl.Players[2]
	err := tbl.Act(charlie.ID, ActionCheck, nil)
	require.Error(t, err)
	require.True(t, fault.IsKind(err, fault.InvalidArgument))
}

func TestActionOutOfTurnRejected(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	alice := tbl.Players[0]
	err := tbl.Act(alice.ID, ActionCall, nil)
	require.Error(t, err)
	require.True(t, fault.IsKind(err, fault.InvalidArgument))
}

func TestInsufficientChipsRaiseRejected(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	charlie := tbl.Players[2]
	amt := int64(500)
	err := tbl.Act(charlie.ID, ActionRaiseTo, &amt)
	require.Error(t, err)
	require.True(t, fault.IsKind(err, fault.InvalidArgument))
}

func TestFoldRemovesPlayerFromHand(t *testing.T) {
	tbl, _ := testTable(t, 100, 100, 100)
	require.NoError(t, tbl.StartNewHand())

	charlie := tbl.Players[2]
	mustAct(t, tbl, charlie.ID, ActionFold)
	require.True(t, charlie.HasFolded)
	require.False(t, charlie.CanAct())
	require.Len(t, tbl.RemainingPlayers(), 2)
}
