package session

import (
	"fmt"

	"github.com/padpad2004/poker-platform/internal/fault"
	"github.com/padpad2004/poker-platform/internal/game"
	"github.com/padpad2004/poker-platform/internal/metrics"
	"github.com/padpad2004/poker-platform/internal/store"
)

// TableParams describes a table to create.
type TableParams struct {
	ClubID        int64
	CreatedBy     int64
	Name          string
	MaxSeats      int
	SmallBlind    int64
	BigBlind      int64
	GameKind      string
	BombPotEveryN int
	BombPotAmount int64
}

// Validate enforces seat and blind sanity before anything is persisted.
func (p *TableParams) Validate() error {
	if p.MaxSeats < 2 {
		return fault.Errorf(fault.InvalidArgument, "max_seats must be at least 2")
	}
	if game.GameKind(p.GameKind) == game.NLH && p.MaxSeats > 9 {
		return fault.Errorf(fault.InvalidArgument, "hold'em tables seat at most 9")
	}
	if p.SmallBlind <= 0 {
		return fault.Errorf(fault.InvalidArgument, "small blind must be positive")
	}
	if p.BigBlind <= p.SmallBlind {
		return fault.Errorf(fault.InvalidArgument, "big blind must be greater than small blind")
	}
	switch game.GameKind(p.GameKind) {
	case game.NLH, game.PLO:
	default:
		return fault.Errorf(fault.InvalidArgument, "game kind must be nlh or plo")
	}
	if p.BombPotEveryN < 0 || p.BombPotAmount < 0 {
		return fault.Errorf(fault.InvalidArgument, "bomb pot settings must be non-negative")
	}
	if (p.BombPotEveryN > 0) != (p.BombPotAmount > 0) {
		return fault.Errorf(fault.InvalidArgument, "bomb pot cadence and amount must be set together")
	}
	return nil
}

// CreateTable validates and persists a new table.
func (s *Service) CreateTable(p *TableParams) (*store.TableMeta, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	name := p.Name
	if name == "" {
		name = "Table"
	}

	id, err := s.store.CreateTable(&store.TableMeta{
		ClubID:          p.ClubID,
		CreatedByUserID: p.CreatedBy,
		Name:            name,
		MaxSeats:        p.MaxSeats,
		SmallBlind:      p.SmallBlind,
		BigBlind:        p.BigBlind,
		GameKind:        p.GameKind,
		BombPotEveryN:   p.BombPotEveryN,
		BombPotAmount:   p.BombPotAmount,
	})
	if err != nil {
		return nil, err
	}
	return s.store.LoadTableMeta(id)
}

// Meta returns the table's persistent configuration, hydrating it.
func (s *Service) Meta(tableID int64) (*store.TableMeta, error) {
	h, err := s.handle(tableID)
	if err != nil {
		return nil, err
	}
	return h.meta, nil
}

// State renders the table for one viewer, ticking the sweep first.
func (s *Service) State(tableID int64, viewer *int64) (*TableState, error) {
	var state *TableState
	err := s.withTable(tableID, func(h *tableHandle) error {
		state = buildState(h.engine, h.meta, viewer)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// SitMe buys a user into the table: wallet debit, open session, seat.
func (s *Service) SitMe(tableID, userID, buyIn int64, seat *int) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		if buyIn <= 0 {
			return fault.Errorf(fault.InvalidArgument, "buy-in must be positive")
		}
		if h.engine.PlayerByUser(userID) != nil {
			return fault.Errorf(fault.Conflict, "user %d is already seated", userID)
		}

		balance, err := s.store.ReadWallet(userID)
		if err != nil {
			return err
		}
		if balance < buyIn {
			return fault.Errorf(fault.InvalidArgument, "insufficient balance for buy-in")
		}

		user, err := s.store.UserByID(userID)
		if err != nil {
			return err
		}

		uid := userID
		if _, err := h.engine.AddPlayer(user.Username, buyIn, &uid, user.AvatarURL, seat); err != nil {
			return err
		}
		if _, err := s.store.OpenSession(tableID, userID, buyIn); err != nil {
			_, _ = h.engine.RemoveByUser(userID)
			return err
		}
		desc := fmt.Sprintf("table %d buy in", tableID)
		if err := s.store.AdjustWallet(userID, -buyIn, "buy_in", desc); err != nil {
			_, _ = h.engine.RemoveByUser(userID)
			_ = s.store.CloseSession(tableID, userID, buyIn)
			return err
		}
		return nil
	})
}

// AddGenericPlayer seats a user-less player (bot or walk-in); its hole cards
// are public.
func (s *Service) AddGenericPlayer(tableID int64, name string, stack int64, seat *int) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		if stack <= 0 {
			return fault.Errorf(fault.InvalidArgument, "stack must be positive")
		}
		_, err := h.engine.AddPlayer(name, stack, nil, "", seat)
		return err
	})
}

// ChangeSeat relocates a user between hands.
func (s *Service) ChangeSeat(tableID, userID int64, seat int) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		if h.engine.HandInProgress() {
			return fault.Errorf(fault.Conflict, "cannot change seats during a hand")
		}
		_, err := h.engine.MoveToSeat(userID, seat)
		return err
	})
}

// LeaveResult reports how a leave request resolved: the seat freed (or held
// until the hand ends), the amount credited back, and whether the removal is
// deferred.
type LeaveResult struct {
	Seat     int   `json:"seat"`
	Returned int64 `json:"returned,omitempty"`
	Pending  bool  `json:"pending,omitempty"`
}

// Leave stands the user up. Mid-hand leaves are deferred until the hand
// finalizes; the player stays engaged until then, and Pending reports true.
func (s *Service) Leave(tableID, userID int64) (*LeaveResult, error) {
	var result LeaveResult
	err := s.withTable(tableID, func(h *tableHandle) error {
		player := h.engine.PlayerByUser(userID)
		if player == nil {
			return fault.Errorf(fault.NotFound, "user %d is not seated", userID)
		}
		if h.engine.HandInProgress() && player.InHand && !player.HasFolded {
			h.engine.RequestLeave(userID)
			result = LeaveResult{Seat: player.Seat, Pending: true}
			return nil
		}
		removed, err := s.removeAndSettleLocked(h, userID)
		if err != nil {
			return err
		}
		result = LeaveResult{Seat: removed.Seat, Returned: removed.Stack}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Rebroadcast ticks the table sweep and resends state to every subscriber.
func (s *Service) Rebroadcast(tableID int64) error {
	return s.withTable(tableID, func(*tableHandle) error { return nil })
}

// SitOut marks a user as sitting out from the next hand.
func (s *Service) SitOut(tableID, userID int64) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		player := h.engine.PlayerByUser(userID)
		if player == nil {
			return fault.Errorf(fault.NotFound, "user %d is not seated", userID)
		}
		h.engine.SitOut(player)
		return nil
	})
}

// Return clears a user's sit-out.
func (s *Service) Return(tableID, userID int64) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		player := h.engine.PlayerByUser(userID)
		if player == nil {
			return fault.Errorf(fault.NotFound, "user %d is not seated", userID)
		}
		h.engine.ReturnToPlay(player)
		return nil
	})
}

// StartHand begins a hand explicitly.
func (s *Service) StartHand(tableID int64) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		if h.engine.HandInProgress() {
			return fault.Errorf(fault.Conflict, "a hand is already in progress")
		}
		return h.engine.StartNewHand()
	})
}

// Act applies a betting action on behalf of a user.
func (s *Service) Act(tableID, userID int64, action game.ActionKind, amount *int64) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		player := h.engine.PlayerByUser(userID)
		if player == nil {
			return fault.Errorf(fault.NotFound, "user %d is not seated", userID)
		}
		return h.engine.Act(player.ID, action, amount)
	})
}

// DealFlop, DealTurn, DealRiver and RunShowdown expose manual street
// control; the sweep normally advances streets on its own.
func (s *Service) DealFlop(tableID int64) error {
	return s.withTable(tableID, func(h *tableHandle) error { return h.engine.DealFlop() })
}

func (s *Service) DealTurn(tableID int64) error {
	return s.withTable(tableID, func(h *tableHandle) error { return h.engine.DealTurn() })
}

func (s *Service) DealRiver(tableID int64) error {
	return s.withTable(tableID, func(h *tableHandle) error { return h.engine.DealRiver() })
}

func (s *Service) RunShowdown(tableID int64) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		_, err := h.engine.Showdown()
		return err
	})
}

// RequestRunouts proposes running the remaining board multiple times.
func (s *Service) RequestRunouts(tableID, userID int64, count int) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		player := h.engine.PlayerByUser(userID)
		if player == nil {
			return fault.Errorf(fault.NotFound, "user %d is not seated", userID)
		}
		return h.engine.RequestRunouts(player.ID, count)
	})
}

// RespondRunouts answers a pending run-out proposal. On unanimous acceptance
// the sweep resolves the showdown across the agreed boards.
func (s *Service) RespondRunouts(tableID, userID int64, accept bool) error {
	return s.withTable(tableID, func(h *tableHandle) error {
		player := h.engine.PlayerByUser(userID)
		if player == nil {
			return fault.Errorf(fault.NotFound, "user %d is not seated", userID)
		}
		_, err := h.engine.RespondRunouts(player.ID, accept)
		if err != nil {
			return err
		}
		if !h.engine.RunoutPending() {
			// Answered either way: stop holding the fast-forward.
			h.runoutWindowUntil = s.clock.Now()
		}
		return nil
	})
}

// CloseTable settles every seated user, writes the closing report, marks the
// table closed, and notifies subscribers.
func (s *Service) CloseTable(tableID int64) error {
	h, err := s.handle(tableID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	var seated []int64
	for _, p := range h.engine.Players {
		if p.UserID != nil {
			seated = append(seated, *p.UserID)
		}
	}
	for _, uid := range seated {
		if _, err := s.removeAndSettleLocked(h, uid); err != nil {
			s.log.Error("settle on close", "table", tableID, "user", uid, "error", err)
		}
	}

	if err := s.writeClosingReportLocked(h); err != nil {
		s.log.Error("write closing report", "table", tableID, "error", err)
	}

	if err := s.store.UpdateTableStatus(tableID, store.TableClosed); err != nil {
		h.mu.Unlock()
		return err
	}
	h.meta.Status = store.TableClosed
	h.mu.Unlock()

	s.mu.Lock()
	delete(s.tables, tableID)
	s.mu.Unlock()
	metrics.LiveTables.Dec()

	s.subMu.Lock()
	var out []outbound
	for sink := range s.tableSubs[tableID] {
		out = append(out, outbound{sink, &Frame{Type: "table_closed", TableID: tableID}})
	}
	delete(s.chatLogs, tableID)
	s.subMu.Unlock()
	s.dispatch(out)

	s.log.Info("closed table", "table", tableID)
	return nil
}

// writeClosingReportLocked aggregates the table's sessions into one report
// row per user.
func (s *Service) writeClosingReportLocked(h *tableHandle) error {
	sessions, err := s.store.ListSessions(h.meta.ID)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		return nil
	}

	type tally struct {
		buyIn   int64
		cashOut int64
		profit  int64
	}
	totals := make(map[int64]*tally)
	var order []int64
	for _, sess := range sessions {
		t, ok := totals[sess.UserID]
		if !ok {
			t = &tally{}
			totals[sess.UserID] = t
			order = append(order, sess.UserID)
		}
		t.buyIn += sess.BuyIn
		if sess.CashOut != nil {
			t.cashOut += *sess.CashOut
		}
		if sess.ProfitLoss != nil {
			t.profit += *sess.ProfitLoss
		}
	}

	reportID, err := s.store.CreateReport(h.meta.ID, h.meta.ClubID)
	if err != nil {
		return err
	}

	entries := make([]*store.ReportEntry, 0, len(order))
	for _, uid := range order {
		t := totals[uid]
		cashOut := t.cashOut
		entries = append(entries, &store.ReportEntry{
			TableID:    h.meta.ID,
			ClubID:     h.meta.ClubID,
			UserID:     uid,
			BuyIn:      t.buyIn,
			CashOut:    &cashOut,
			ProfitLoss: t.profit,
		})
	}
	return s.store.AppendReportEntries(reportID, entries)
}

// ListActiveTablesForUser surfaces the store query for the edge.
func (s *Service) ListActiveTablesForUser(userID int64) ([]*store.TableMeta, error) {
	return s.store.ListActiveTablesForUser(userID)
}
