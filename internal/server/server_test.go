package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/padpad2004/poker-platform/internal/auth"
	"github.com/padpad2004/poker-platform/internal/deck"
	"github.com/padpad2004/poker-platform/internal/session"
	"github.com/padpad2004/poker-platform/internal/store"
)

type testEnv struct {
	ts        *httptest.Server
	st        *store.Store
	validator *auth.JWTValidator
	clubID    int64
	owner     int64
	member    int64
	outsider  int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "poker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := log.New(io.Discard)
	sessions := session.New(st, logger, nil)
	validator := auth.NewJWTValidator("test-secret")
	srv := New(DefaultConfig(), st, sessions, validator, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	owner, err := st.CreateUser("owner", "owner@example.com", 1000)
	require.NoError(t, err)
	member, err := st.CreateUser("member", "member@example.com", 1000)
	require.NoError(t, err)
	outsider, err := st.CreateUser("outsider", "outsider@example.com", 1000)
	require.NoError(t, err)

	clubID, err := st.CreateClub("Home Game", owner)
	require.NoError(t, err)
	require.NoError(t, st.AddMember(clubID, member, "member", "approved"))

	return &testEnv{
		ts: ts, st: st, validator: validator,
		clubID: clubID, owner: owner, member: member, outsider: outsider,
	}
}

func (e *testEnv) token(t *testing.T, userID int64) string {
	t.Helper()
	tok, err := e.validator.Issue(userID, fmt.Sprintf("user%d", userID), time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, raw
}

func (e *testEnv) createTable(t *testing.T) int64 {
	t.Helper()
	resp, raw := e.do(t, http.MethodPost, "/api/tables", e.token(t, e.owner), map[string]any{
		"club_id": e.clubID, "name": "Test", "max_seats": 6,
		"small_blind": 1, "big_blind": 2, "game_kind": "nlh",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	var meta struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &meta))
	return meta.ID
}

func TestCreateTableIsOwnerOnly(t *testing.T) {
	e := newTestEnv(t)

	body := map[string]any{
		"club_id": e.clubID, "max_seats": 6,
		"small_blind": 1, "big_blind": 2, "game_kind": "nlh",
	}

	resp, _ := e.do(t, http.MethodPost, "/api/tables", "", body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/api/tables", e.token(t, e.member), body)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, raw := e.do(t, http.MethodPost, "/api/tables", e.token(t, e.owner), body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
}

func TestCreateTableRejectsBadParams(t *testing.T) {
	e := newTestEnv(t)

	resp, raw := e.do(t, http.MethodPost, "/api/tables", e.token(t, e.owner), map[string]any{
		"club_id": e.clubID, "max_seats": 6,
		"small_blind": 2, "big_blind": 2, "game_kind": "nlh",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Contains(t, string(raw), "big blind")
}

func TestFaultKindsMapToStatuses(t *testing.T) {
	e := newTestEnv(t)
	tableID := e.createTable(t)

	// Unknown table: not found.
	resp, _ := e.do(t, http.MethodGet, "/api/tables/9999/state", e.token(t, e.member), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Outsider on a real table: forbidden.
	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/tables/%d/state", tableID), e.token(t, e.outsider), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Garbage body: bad request.
	req, err := http.NewRequest(http.MethodPost, e.ts.URL+fmt.Sprintf("/api/tables/%d/sit", tableID), strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+e.token(t, e.member))
	httpResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	httpResp.Body.Close()
	require.Equal(t, http.StatusBadRequest, httpResp.StatusCode)

	// Starting a hand with nobody seated: bad request.
	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/tables/%d/start", tableID), e.token(t, e.member), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Double seat: conflict.
	sit := map[string]any{"buy_in": 100}
	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/tables/%d/sit", tableID), e.token(t, e.member), sit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/tables/%d/sit", tableID), e.token(t, e.member), sit)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestOnlineEndpointCountsRequester(t *testing.T) {
	e := newTestEnv(t)

	resp, raw := e.do(t, http.MethodGet, "/api/online", e.token(t, e.member), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Online int `json:"online"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Equal(t, 1, body.Online)

	resp, _ = e.do(t, http.MethodGet, "/api/online", "", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStateMasksOtherPlayersCards(t *testing.T) {
	e := newTestEnv(t)
	tableID := e.createTable(t)

	sit := map[string]any{"buy_in": 100}
	resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/tables/%d/sit", tableID), e.token(t, e.owner), sit)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/tables/%d/sit", tableID), e.token(t, e.member), sit)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw := e.do(t, http.MethodGet, fmt.Sprintf("/api/tables/%d/state", tableID), e.token(t, e.owner), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var state session.TableState
	require.NoError(t, json.Unmarshal(raw, &state))
	require.Equal(t, "preflop", state.Street)
	for _, seat := range state.Players {
		require.NotNil(t, seat.UserID)
		require.Len(t, seat.HoleCards, 2)
		if *seat.UserID == e.owner {
			for _, c := range seat.HoleCards {
				require.NotEqual(t, deck.Masked, c)
			}
		} else {
			for _, c := range seat.HoleCards {
				require.Equal(t, deck.Masked, c)
			}
		}
	}
}

func TestCloseTableOwnerOnly(t *testing.T) {
	e := newTestEnv(t)
	tableID := e.createTable(t)

	resp, _ := e.do(t, http.MethodPost, fmt.Sprintf("/api/tables/%d/close", tableID), e.token(t, e.member), nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, fmt.Sprintf("/api/tables/%d/close", tableID), e.token(t, e.owner), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	meta, err := e.st.LoadTableMeta(tableID)
	require.NoError(t, err)
	require.Equal(t, store.TableClosed, meta.Status)
}

func TestWebSocketSubscribeDeliversState(t *testing.T) {
	e := newTestEnv(t)
	tableID := e.createTable(t)

	wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") +
		fmt.Sprintf("/ws?table_id=%d&token=%s", tableID, e.token(t, e.member))
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame session.Frame
	for {
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == "table_state" {
			break
		}
	}
	require.Equal(t, tableID, frame.TableID)
	require.NotNil(t, frame.State)
	require.Equal(t, "Test", frame.State.Name)
}

func TestWebSocketChatFansOut(t *testing.T) {
	e := newTestEnv(t)
	tableID := e.createTable(t)

	dial := func(token string) *websocket.Conn {
		wsURL := "ws" + strings.TrimPrefix(e.ts.URL, "http") +
			fmt.Sprintf("/ws?table_id=%d", tableID)
		if token != "" {
			wsURL += "&token=" + token
		}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		return conn
	}

	speaker := dial(e.token(t, e.member))
	defer speaker.Close()
	listener := dial("")
	defer listener.Close()

	require.NoError(t, speaker.WriteJSON(map[string]string{"type": "chat", "message": "hello table"}))

	_ = listener.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame session.Frame
	for {
		require.NoError(t, listener.ReadJSON(&frame))
		if frame.Type == "chat" {
			break
		}
	}
	require.Equal(t, "hello table", frame.Chat.Message)
}

func TestLoadConfigDefaultsAndFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	require.Equal(t, "localhost:8080", cfg.Addr())
	require.NoError(t, cfg.Validate())

	path := filepath.Join(t.TempDir(), "config.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
server {
  address       = "0.0.0.0"
  port          = 9090
  database_path = "/tmp/poker.db"
}

auth {
  jwt_secret = "super-secret"
}
`), 0o644))

	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9090", cfg.Addr())
	require.Equal(t, "super-secret", cfg.JWTSecret())
	require.NoError(t, cfg.Validate())

	cfg.Server.Port = -1
	require.Error(t, cfg.Validate())
}
