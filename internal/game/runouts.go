package game

import "github.com/padpad2004/poker-platform/internal/fault"

// runoutNegotiation tracks a pending run-it-twice proposal. All remaining
// players must accept before the showdown deals multiple boards.
type runoutNegotiation struct {
	count     int
	requester int64
	accepted  map[int64]bool
}

// RequestRunouts proposes dealing the remaining board count times. Valid only
// in Hold'em, with every remaining player all-in before the river.
func (t *Table) RequestRunouts(playerID int64, count int) error {
	if t.GameKind != NLH {
		return fault.Errorf(fault.InvalidArgument, "Run-outs are only supported for NLH")
	}
	if count < 2 || count > 3 {
		return fault.Errorf(fault.InvalidArgument, "run-out count must be 2 or 3")
	}
	if t.Street == PreHand || t.Street == River || t.Street == Showdown {
		return fault.Errorf(fault.IllegalState, "run-outs can only be requested before the river")
	}
	if !t.bettingRoundSettled() || !t.AllRemainingAllIn() {
		return fault.Errorf(fault.IllegalState, "run-outs require all remaining players to be all-in")
	}
	if t.runout != nil {
		return fault.Errorf(fault.Conflict, "a run-out proposal is already pending")
	}

	requester, err := t.PlayerByID(playerID)
	if err != nil {
		return err
	}
	if !requester.InHand || requester.HasFolded {
		return fault.Errorf(fault.Forbidden, "only players in the hand may request run-outs")
	}

	t.runout = &runoutNegotiation{
		count:     count,
		requester: playerID,
		accepted:  map[int64]bool{playerID: true},
	}
	return nil
}

// RespondRunouts records a player's answer. Any rejection cancels the
// proposal; once every remaining player accepts, the agreement is locked in
// and the showdown deals that many boards. Returns true when agreement is
// reached.
func (t *Table) RespondRunouts(playerID int64, accept bool) (bool, error) {
	if t.runout == nil {
		return false, fault.Errorf(fault.IllegalState, "no run-out proposal is pending")
	}

	player, err := t.PlayerByID(playerID)
	if err != nil {
		return false, err
	}
	if !player.InHand || player.HasFolded {
		return false, fault.Errorf(fault.Forbidden, "only players in the hand may respond")
	}

	if !accept {
		t.runout = nil
		return false, nil
	}

	t.runout.accepted[playerID] = true
	for _, p := range t.RemainingPlayers() {
		if !t.runout.accepted[p.ID] {
			return false, nil
		}
	}

	t.agreedRunouts = t.runout.count
	t.runout = nil
	return true, nil
}

// RunoutsAgreed returns the agreed board count, or zero.
func (t *Table) RunoutsAgreed() int {
	return t.agreedRunouts
}

// RunoutPending reports whether a proposal is awaiting answers.
func (t *Table) RunoutPending() bool {
	return t.runout != nil
}
