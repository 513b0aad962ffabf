// Package server is the HTTP and websocket edge: token authentication, club
// authorization, command routing into the session layer, and subscriber
// websocket upgrades.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/padpad2004/poker-platform/internal/auth"
	"github.com/padpad2004/poker-platform/internal/session"
	"github.com/padpad2004/poker-platform/internal/store"
)

// Server routes client traffic into the session service.
type Server struct {
	cfg       *Config
	store     *store.Store
	sessions  *session.Service
	validator auth.Validator
	upgrader  websocket.Upgrader
	logger    *log.Logger
	http      *http.Server
}

// New builds a server over the session service.
func New(cfg *Config, st *store.Store, sessions *session.Service, validator auth.Validator, logger *log.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		sessions: sessions,
		validator: validator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.WithPrefix("server"),
	}
	s.http = &http.Server{Addr: cfg.Addr(), Handler: s.Handler()}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("POST /api/tables", s.handleCreateTable)
	mux.HandleFunc("GET /api/tables", s.handleListTables)
	mux.HandleFunc("GET /api/tables/{id}", s.handleTableMeta)
	mux.HandleFunc("GET /api/tables/{id}/state", s.handleTableState)
	mux.HandleFunc("GET /api/online", s.handleOnlineCount)
	mux.HandleFunc("POST /api/tables/{id}/sit", s.handleSitMe)
	mux.HandleFunc("POST /api/tables/{id}/players", s.handleAddGenericPlayer)
	mux.HandleFunc("POST /api/tables/{id}/seat", s.handleChangeSeat)
	mux.HandleFunc("POST /api/tables/{id}/leave", s.handleLeave)
	mux.HandleFunc("POST /api/tables/{id}/sit-out", s.handleSitOut)
	mux.HandleFunc("POST /api/tables/{id}/return", s.handleReturn)
	mux.HandleFunc("POST /api/tables/{id}/start", s.handleStartHand)
	mux.HandleFunc("POST /api/tables/{id}/deal-flop", s.handleDealStreet("deal_flop", s.sessions.DealFlop))
	mux.HandleFunc("POST /api/tables/{id}/deal-turn", s.handleDealStreet("deal_turn", s.sessions.DealTurn))
	mux.HandleFunc("POST /api/tables/{id}/deal-river", s.handleDealStreet("deal_river", s.sessions.DealRiver))
	mux.HandleFunc("POST /api/tables/{id}/showdown", s.handleDealStreet("showdown", s.sessions.RunShowdown))
	mux.HandleFunc("POST /api/tables/{id}/action", s.handleAction)
	mux.HandleFunc("POST /api/tables/{id}/runouts", s.handleRequestRunouts)
	mux.HandleFunc("POST /api/tables/{id}/runouts/response", s.handleRespondRunouts)
	mux.HandleFunc("POST /api/tables/{id}/close", s.handleCloseTable)
	mux.HandleFunc("GET /api/hands", s.handleHandHistories)

	return mux
}

// ListenAndServe runs the HTTP server until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr())
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleWebSocket upgrades a subscriber. The table id and optional token
// arrive as query parameters; websocket clients cannot set headers.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tableID, err := parseID(r.URL.Query().Get("table_id"))
	if err != nil {
		http.Error(w, "table_id required", http.StatusBadRequest)
		return
	}

	var identity *auth.Identity
	if token := r.URL.Query().Get("token"); token != "" {
		identity, err = s.validator.Validate(r.Context(), token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, tableID, identity, s.sessions, s.logger)
	client.Start()

	var viewer *int64
	if identity != nil {
		viewer = &identity.UserID
	}
	if err := s.sessions.Subscribe(tableID, client, viewer); err != nil {
		s.logger.Warn("subscribe failed", "table", tableID, "error", err)
		_ = client.Close()
		return
	}

	go func() {
		<-client.Done()
		s.sessions.Unsubscribe(client)
	}()
}
