package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/padpad2004/poker-platform/internal/auth"
	"github.com/padpad2004/poker-platform/internal/fault"
	"github.com/padpad2004/poker-platform/internal/game"
	"github.com/padpad2004/poker-platform/internal/metrics"
	"github.com/padpad2004/poker-platform/internal/session"
	"github.com/padpad2004/poker-platform/internal/store"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// identity extracts and validates the bearer token. A missing header yields
// a nil identity (spectator) without error; a bad token is an error.
func (s *Server) identity(r *http.Request) (*auth.Identity, error) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header || token == "" {
		return nil, nil
	}
	return s.validator.Validate(r.Context(), token)
}

// requireIdentity is identity for endpoints that need an authenticated user.
func (s *Server) requireIdentity(r *http.Request) (*auth.Identity, error) {
	identity, err := s.identity(r)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, fault.Errorf(fault.Forbidden, "authentication required")
	}
	return identity, nil
}

// requireMember checks approved club membership for the table's club.
func (s *Server) requireMember(tableID, userID int64) error {
	meta, err := s.sessions.Meta(tableID)
	if err != nil {
		return err
	}
	ok, err := s.store.IsApprovedMember(meta.ClubID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fault.Errorf(fault.Forbidden, "user %d is not a member of club %d", userID, meta.ClubID)
	}
	return nil
}

// requireOwner checks club ownership for owner-only operations.
func (s *Server) requireOwner(tableID, userID int64) error {
	meta, err := s.sessions.Meta(tableID)
	if err != nil {
		return err
	}
	ok, err := s.store.IsClubOwner(meta.ClubID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return fault.Errorf(fault.Forbidden, "user %d does not own club %d", userID, meta.ClubID)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError maps domain fault kinds to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, command string, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.NotFound:
		status = http.StatusNotFound
	case fault.Forbidden:
		status = http.StatusForbidden
	case fault.Conflict:
		status = http.StatusConflict
	case fault.InvalidArgument, fault.IllegalState:
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("command failed", "command", command, "error", err)
	}
	metrics.CommandsHandled.WithLabelValues(command, "error").Inc()
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) writeOK(w http.ResponseWriter, command string, v any) {
	metrics.CommandsHandled.WithLabelValues(command, "ok").Inc()
	if v == nil {
		v = map[string]string{"status": "ok"}
	}
	s.writeJSON(w, http.StatusOK, v)
}

// writeState responds with the mutated table state as the viewer sees it.
func (s *Server) writeState(w http.ResponseWriter, command string, tableID int64, identity *auth.Identity) {
	state, err := s.sessions.State(tableID, &identity.UserID)
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, state)
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fault.Errorf(fault.InvalidArgument, "invalid request body: %v", err)
	}
	return nil
}

// tableMetaView shapes table metadata on the wire.
type tableMetaView struct {
	ID            int64  `json:"id"`
	ClubID        int64  `json:"club_id"`
	Name          string `json:"name"`
	MaxSeats      int    `json:"max_seats"`
	SmallBlind    int64  `json:"small_blind"`
	BigBlind      int64  `json:"big_blind"`
	GameKind      string `json:"game_kind"`
	BombPotEveryN int    `json:"bomb_pot_every_n,omitempty"`
	BombPotAmount int64  `json:"bomb_pot_amount,omitempty"`
	Status        string `json:"status"`
}

func metaView(m *store.TableMeta) tableMetaView {
	return tableMetaView{
		ID:            m.ID,
		ClubID:        m.ClubID,
		Name:          m.Name,
		MaxSeats:      m.MaxSeats,
		SmallBlind:    m.SmallBlind,
		BigBlind:      m.BigBlind,
		GameKind:      m.GameKind,
		BombPotEveryN: m.BombPotEveryN,
		BombPotAmount: m.BombPotAmount,
		Status:        m.Status,
	}
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	const command = "create_table"
	identity, err := s.requireIdentity(r)
	if err != nil {
		s.writeError(w, command, err)
		return
	}

	var req struct {
		ClubID        int64  `json:"club_id"`
		Name          string `json:"name"`
		MaxSeats      int    `json:"max_seats"`
		SmallBlind    int64  `json:"small_blind"`
		BigBlind      int64  `json:"big_blind"`
		GameKind      string `json:"game_kind"`
		BombPotEveryN int    `json:"bomb_pot_every_n"`
		BombPotAmount int64  `json:"bomb_pot_amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, command, err)
		return
	}

	ok, err := s.store.IsClubOwner(req.ClubID, identity.UserID)
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	if !ok {
		s.writeError(w, command, fault.Errorf(fault.Forbidden, "user %d does not own club %d", identity.UserID, req.ClubID))
		return
	}

	meta, err := s.sessions.CreateTable(&session.TableParams{
		ClubID:        req.ClubID,
		CreatedBy:     identity.UserID,
		Name:          req.Name,
		MaxSeats:      req.MaxSeats,
		SmallBlind:    req.SmallBlind,
		BigBlind:      req.BigBlind,
		GameKind:      req.GameKind,
		BombPotEveryN: req.BombPotEveryN,
		BombPotAmount: req.BombPotAmount,
	})
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, metaView(meta))
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	const command = "list_tables"
	identity, err := s.requireIdentity(r)
	if err != nil {
		s.writeError(w, command, err)
		return
	}

	metas, err := s.sessions.ListActiveTablesForUser(identity.UserID)
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	views := make([]tableMetaView, 0, len(metas))
	for _, m := range metas {
		views = append(views, metaView(m))
	}
	s.writeOK(w, command, views)
}

// tableCommand wraps the shared prologue of per-table endpoints: parse the
// path id, authenticate, check membership.
func (s *Server) tableCommand(w http.ResponseWriter, r *http.Request, command string) (int64, *auth.Identity, bool) {
	tableID, err := parseID(r.PathValue("id"))
	if err != nil {
		s.writeError(w, command, fault.Errorf(fault.InvalidArgument, "invalid table id"))
		return 0, nil, false
	}
	identity, err := s.requireIdentity(r)
	if err != nil {
		s.writeError(w, command, err)
		return 0, nil, false
	}
	if err := s.requireMember(tableID, identity.UserID); err != nil {
		s.writeError(w, command, err)
		return 0, nil, false
	}
	return tableID, identity, true
}

func (s *Server) handleTableMeta(w http.ResponseWriter, r *http.Request) {
	const command = "table_meta"
	tableID, _, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	meta, err := s.sessions.Meta(tableID)
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, metaView(meta))
}

func (s *Server) handleTableState(w http.ResponseWriter, r *http.Request) {
	const command = "table_state"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	state, err := s.sessions.State(tableID, &identity.UserID)
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, state)
}

func (s *Server) handleOnlineCount(w http.ResponseWriter, r *http.Request) {
	const command = "online_count"
	identity, err := s.requireIdentity(r)
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	count := s.sessions.OnlineCount(&identity.UserID)
	s.writeOK(w, command, map[string]int{"online": count})
}

func (s *Server) handleSitMe(w http.ResponseWriter, r *http.Request) {
	const command = "sit_me"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	var req struct {
		BuyIn int64 `json:"buy_in"`
		Seat  *int  `json:"seat"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, command, err)
		return
	}
	if err := s.sessions.SitMe(tableID, identity.UserID, req.BuyIn, req.Seat); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeState(w, command, tableID, identity)
}

func (s *Server) handleAddGenericPlayer(w http.ResponseWriter, r *http.Request) {
	const command = "add_player"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	if err := s.requireOwner(tableID, identity.UserID); err != nil {
		s.writeError(w, command, err)
		return
	}
	var req struct {
		Name  string `json:"name"`
		Stack int64  `json:"stack"`
		Seat  *int   `json:"seat"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, command, err)
		return
	}
	if req.Name == "" {
		s.writeError(w, command, fault.Errorf(fault.InvalidArgument, "player name required"))
		return
	}
	if err := s.sessions.AddGenericPlayer(tableID, req.Name, req.Stack, req.Seat); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, nil)
}

func (s *Server) handleChangeSeat(w http.ResponseWriter, r *http.Request) {
	const command = "change_seat"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	var req struct {
		Seat int `json:"seat"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, command, err)
		return
	}
	if err := s.sessions.ChangeSeat(tableID, identity.UserID, req.Seat); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeState(w, command, tableID, identity)
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	const command = "leave"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	result, err := s.sessions.Leave(tableID, identity.UserID)
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, result)
}

func (s *Server) handleSitOut(w http.ResponseWriter, r *http.Request) {
	const command = "sit_out"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	if err := s.sessions.SitOut(tableID, identity.UserID); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeState(w, command, tableID, identity)
}

func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	const command = "return"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	if err := s.sessions.Return(tableID, identity.UserID); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeState(w, command, tableID, identity)
}

func (s *Server) handleStartHand(w http.ResponseWriter, r *http.Request) {
	const command = "start_hand"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	if err := s.sessions.StartHand(tableID); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeState(w, command, tableID, identity)
}

// street control endpoints; the sweep normally advances streets itself.
func (s *Server) handleDealStreet(command string, deal func(int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, identity, ok := s.tableCommand(w, r, command)
		if !ok {
			return
		}
		if err := deal(tableID); err != nil {
			s.writeError(w, command, err)
			return
		}
		s.writeState(w, command, tableID, identity)
	}
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	const command = "action"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	var req struct {
		Action string `json:"action"`
		Amount *int64 `json:"amount"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, command, err)
		return
	}
	if err := s.sessions.Act(tableID, identity.UserID, game.ActionKind(req.Action), req.Amount); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeState(w, command, tableID, identity)
}

func (s *Server) handleRequestRunouts(w http.ResponseWriter, r *http.Request) {
	const command = "request_runouts"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, command, err)
		return
	}
	if err := s.sessions.RequestRunouts(tableID, identity.UserID, req.Count); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, nil)
}

func (s *Server) handleRespondRunouts(w http.ResponseWriter, r *http.Request) {
	const command = "respond_runouts"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, command, err)
		return
	}
	if err := s.sessions.RespondRunouts(tableID, identity.UserID, req.Accept); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, nil)
}

func (s *Server) handleCloseTable(w http.ResponseWriter, r *http.Request) {
	const command = "close_table"
	tableID, identity, ok := s.tableCommand(w, r, command)
	if !ok {
		return
	}
	if err := s.requireOwner(tableID, identity.UserID); err != nil {
		s.writeError(w, command, err)
		return
	}
	if err := s.sessions.CloseTable(tableID); err != nil {
		s.writeError(w, command, err)
		return
	}
	s.writeOK(w, command, nil)
}

func (s *Server) handleHandHistories(w http.ResponseWriter, r *http.Request) {
	const command = "hand_histories"
	identity, err := s.requireIdentity(r)
	if err != nil {
		s.writeError(w, command, err)
		return
	}
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	histories, err := s.store.ListHandHistories(identity.UserID, limit)
	if err != nil {
		s.writeError(w, command, err)
		return
	}

	type historyView struct {
		ID        int64  `json:"id"`
		TableName string `json:"table_name"`
		Result    string `json:"result"`
		NetChange int64  `json:"net_change"`
		Summary   string `json:"summary,omitempty"`
	}
	views := make([]historyView, 0, len(histories))
	for _, h := range histories {
		views = append(views, historyView{
			ID:        h.ID,
			TableName: h.TableName,
			Result:    h.Result,
			NetChange: h.NetChange,
			Summary:   h.Summary,
		})
	}
	s.writeOK(w, command, views)
}
