package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/padpad2004/poker-platform/internal/game"
	"github.com/padpad2004/poker-platform/internal/metrics"
	"github.com/padpad2004/poker-platform/internal/store"
)

// sweepLocked is the per-mutation pipeline: enforce timeouts, stand up
// overdue sit-outs, progress the hand, record finished hands and settle
// deferred leavers, start the next hand, persist stacks. Caller holds h.mu.
func (s *Service) sweepLocked(h *tableHandle) {
	for h.engine.EnforceActionTimeout() {
	}

	s.autoRemoveSitOutsLocked(h)
	s.autoProgressLocked(h)

	if h.engine.Street == game.Showdown && h.engine.HandNumber > h.lastRecordedHand {
		s.recordHandLocked(h)
		s.settlePendingLeaversLocked(h)
		h.lastRecordedHand = h.engine.HandNumber
	}

	s.autoStartLocked(h)
	s.persistStacksLocked(h)
}

// autoRemoveSitOutsLocked stands up players sitting out longer than the
// grace period, crediting their stack back to the wallet.
func (s *Service) autoRemoveSitOutsLocked(h *tableHandle) {
	cutoff := s.clock.Now().Add(-sitOutGrace)

	var overdue []int64
	for _, p := range h.engine.Players {
		if !p.SittingOut || p.SatOutSince.IsZero() || p.SatOutSince.After(cutoff) {
			continue
		}
		if p.UserID == nil {
			continue
		}
		overdue = append(overdue, *p.UserID)
	}

	for _, uid := range overdue {
		if _, err := s.removeAndSettleLocked(h, uid); err != nil {
			s.log.Error("auto-remove sitting-out player", "table", h.meta.ID, "user", uid, "error", err)
		} else {
			s.log.Info("stood up sitting-out player", "table", h.meta.ID, "user", uid)
		}
	}
}

// autoProgressLocked advances the hand whenever no player action is owed.
func (s *Service) autoProgressLocked(h *tableHandle) {
	engine := h.engine

	if winner, ok := engine.AwardToLastRemaining(); ok {
		s.log.Debug("hand ended on folds", "table", h.meta.ID, "winner", winner.Name)
		return
	}

	if engine.Street == game.PreHand || engine.Street == game.Showdown {
		return
	}
	if !engine.BettingRoundComplete() {
		return
	}

	if engine.AllRemainingAllIn() {
		if s.holdForRunoutsLocked(h) {
			return
		}
		if _, err := engine.ResolveAllInShowdown(); err != nil {
			s.log.Error("resolve all-in showdown", "table", h.meta.ID, "error", err)
		}
		h.runoutWindowUntil = time.Time{}
		return
	}

	var err error
	switch engine.Street {
	case game.Preflop:
		err = engine.DealFlop()
	case game.Flop:
		err = engine.DealTurn()
	case game.Turn:
		err = engine.DealRiver()
	case game.River:
		_, err = engine.Showdown()
	}
	if err != nil {
		s.log.Error("auto-progress street", "table", h.meta.ID, "street", engine.Street, "error", err)
	}
}

// holdForRunoutsLocked reports whether the all-in fast-forward should wait
// for a run-it-twice decision. Hold'em hands that go all-in before the river
// get a short window to propose; a pending proposal holds until answered.
func (s *Service) holdForRunoutsLocked(h *tableHandle) bool {
	engine := h.engine
	if engine.GameKind != game.NLH || engine.Street == game.River {
		return false
	}
	if engine.RunoutsAgreed() > 0 {
		return false
	}
	if engine.RunoutPending() {
		return true
	}

	now := s.clock.Now()
	if h.runoutWindowUntil.IsZero() {
		h.runoutWindowUntil = now.Add(runoutDecisionWindow)
		return true
	}
	return now.Before(h.runoutWindowUntil)
}

// recordHandLocked writes one hand-history row per seated user for the hand
// that just finished.
func (s *Service) recordHandLocked(h *tableHandle) {
	engine := h.engine
	if len(engine.HandStartStacks) == 0 {
		return
	}
	metrics.HandsCompleted.Inc()

	for _, p := range engine.Players {
		if p.UserID == nil {
			continue
		}
		start, ok := engine.HandStartStacks[p.ID]
		if !ok {
			continue
		}

		net := p.Stack - start
		result := "Even"
		switch {
		case net > 0:
			result = "Win"
		case net < 0:
			result = "Loss"
		}

		summary := fmt.Sprintf("Hand #%d", engine.HandNumber)
		if len(engine.Board) > 0 {
			summary += " | Board " + strings.Join(boardText(engine), " ")
		}

		if err := s.store.AppendHandHistory(*p.UserID, h.meta.Name, result, net, summary); err != nil {
			s.log.Error("append hand history", "table", h.meta.ID, "user", *p.UserID, "error", err)
		}
	}
}

func boardText(engine *game.Table) []string {
	out := make([]string, len(engine.Board))
	for i, c := range engine.Board {
		out[i] = c.String()
	}
	return out
}

// settlePendingLeaversLocked removes players who asked to leave mid-hand,
// now that the hand has finalized.
func (s *Service) settlePendingLeaversLocked(h *tableHandle) {
	var leavers []int64
	for uid := range h.engine.PendingLeaveUserIDs {
		leavers = append(leavers, uid)
	}
	for _, uid := range leavers {
		if _, err := s.removeAndSettleLocked(h, uid); err != nil {
			s.log.Error("settle deferred leave", "table", h.meta.ID, "user", uid, "error", err)
		}
	}
}

// autoStartLocked begins the next hand when the table is idle with enough
// eligible players.
func (s *Service) autoStartLocked(h *tableHandle) {
	engine := h.engine
	if engine.Street != game.PreHand && engine.Street != game.Showdown {
		return
	}
	if len(engine.EligiblePlayers()) < 2 {
		return
	}
	if err := engine.StartNewHand(); err != nil {
		s.log.Debug("auto-start skipped", "table", h.meta.ID, "error", err)
		return
	}
	h.runoutWindowUntil = time.Time{}
	s.log.Debug("hand started", "table", h.meta.ID, "hand", engine.HandNumber)
}

// persistStacksLocked mirrors the engine's seats into durable stack rows and
// deletes rows for users no longer seated.
func (s *Service) persistStacksLocked(h *tableHandle) {
	seated := make(map[int64]struct{})
	for _, p := range h.engine.Players {
		if p.UserID == nil {
			continue
		}
		seated[*p.UserID] = struct{}{}
		err := s.store.UpsertStack(&store.TableStack{
			TableID:   h.meta.ID,
			UserID:    *p.UserID,
			Seat:      p.Seat,
			Stack:     p.Stack,
			Name:      p.Name,
			AvatarURL: p.AvatarURL,
		})
		if err != nil {
			s.log.Error("persist stack", "table", h.meta.ID, "user", *p.UserID, "error", err)
		}
	}

	rows, err := s.store.ListStacks(h.meta.ID)
	if err != nil {
		s.log.Error("list stacks", "table", h.meta.ID, "error", err)
		return
	}
	for _, row := range rows {
		if _, ok := seated[row.UserID]; ok {
			continue
		}
		if err := s.store.DeleteStack(h.meta.ID, row.UserID); err != nil {
			s.log.Error("delete stale stack", "table", h.meta.ID, "user", row.UserID, "error", err)
		}
	}
}

// removeAndSettleLocked unseats a user, credits their remaining stack to the
// wallet, closes their session, and drops the durable stack row. Returns the
// removed player so callers can report the seat and cashed-out amount.
func (s *Service) removeAndSettleLocked(h *tableHandle, userID int64) (*game.Player, error) {
	removed, err := h.engine.RemoveByUser(userID)
	if err != nil {
		return nil, err
	}

	desc := fmt.Sprintf("table %d cash out", h.meta.ID)
	if err := s.store.AdjustWallet(userID, removed.Stack, "cash_out", desc); err != nil {
		s.log.Error("credit wallet on leave", "table", h.meta.ID, "user", userID, "error", err)
	}
	if err := s.store.CloseSession(h.meta.ID, userID, removed.Stack); err != nil {
		s.log.Error("close session on leave", "table", h.meta.ID, "user", userID, "error", err)
	}
	if err := s.store.DeleteStack(h.meta.ID, userID); err != nil {
		s.log.Error("delete stack on leave", "table", h.meta.ID, "user", userID, "error", err)
	}
	return removed, nil
}
