// Package session owns the live table registry: it hydrates engines from the
// store, serializes all engine access under per-table locks, runs the
// timeout/auto-progress sweep, and fans masked state frames out to
// subscribers.
package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/padpad2004/poker-platform/internal/fault"
	"github.com/padpad2004/poker-platform/internal/game"
	"github.com/padpad2004/poker-platform/internal/metrics"
	"github.com/padpad2004/poker-platform/internal/store"
)

const (
	// sitOutGrace is how long a sitting-out player keeps their seat before
	// being stood up automatically.
	sitOutGrace = 6 * time.Minute

	// tableTTL is the hydration cutoff: tables older than this refuse to
	// load.
	tableTTL = 24 * time.Hour

	// runoutDecisionWindow is how long an all-in Hold'em hand waits for a
	// run-it-twice proposal before fast-forwarding to showdown.
	runoutDecisionWindow = 15 * time.Second
)

// Frame is one message to a subscriber.
type Frame struct {
	Type    string          `json:"type"` // "table_state", "chat", "table_closed", "error"
	TableID int64           `json:"table_id,omitempty"`
	State   *TableState     `json:"state,omitempty"`
	Chat    *ChatMessage    `json:"chat,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Sink delivers frames to one subscriber. Send must not block indefinitely;
// a send error drops the subscription.
type Sink interface {
	Send(frame *Frame) error
	Close() error
}

// tableHandle pairs an engine with its lock. All engine reads and writes
// happen with mu held.
type tableHandle struct {
	mu     sync.Mutex
	engine *game.Table
	meta   *store.TableMeta

	lastRecordedHand  int64
	runoutWindowUntil time.Time
}

type subscription struct {
	tableID int64
	viewer  *int64
}

// Service is the session layer.
type Service struct {
	store *store.Store
	log   *log.Logger
	clock quartz.Clock

	mu     sync.Mutex
	tables map[int64]*tableHandle

	subMu      sync.Mutex
	subs       map[Sink]*subscription
	tableSubs  map[int64]map[Sink]struct{}
	userSubs   map[int64]map[Sink]struct{}
	chatLogs   map[int64][]ChatMessage
	nextChatID int64
}

// New builds a Service over the given store. A nil clock means real time.
func New(st *store.Store, logger *log.Logger, clock quartz.Clock) *Service {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Service{
		store:     st,
		log:       logger.WithPrefix("session"),
		clock:     clock,
		tables:    make(map[int64]*tableHandle),
		subs:      make(map[Sink]*subscription),
		tableSubs: make(map[int64]map[Sink]struct{}),
		userSubs:  make(map[int64]map[Sink]struct{}),
		chatLogs:  make(map[int64][]ChatMessage),
	}
}

// handle returns the live engine for a table, hydrating from the store on
// first access. Closed and expired tables refuse to load.
func (s *Service) handle(tableID int64) (*tableHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.tables[tableID]; ok {
		return h, nil
	}

	meta, err := s.store.LoadTableMeta(tableID)
	if err != nil {
		return nil, err
	}
	if meta.Status != store.TableActive {
		return nil, fault.Errorf(fault.Conflict, "table %d is closed", tableID)
	}
	if s.clock.Now().Sub(meta.CreatedAt) > tableTTL {
		return nil, fault.Errorf(fault.Conflict, "table %d has expired", tableID)
	}

	engine := game.NewTable(game.Config{
		MaxSeats:           meta.MaxSeats,
		SmallBlind:         meta.SmallBlind,
		BigBlind:           meta.BigBlind,
		GameKind:           game.GameKind(meta.GameKind),
		BombPotEveryNHands: meta.BombPotEveryN,
		BombPotAmount:      meta.BombPotAmount,
		Clock:              s.clock,
	})

	stacks, err := s.store.ListStacks(tableID)
	if err != nil {
		return nil, err
	}
	for _, st := range stacks {
		uid := st.UserID
		seat := st.Seat
		name := st.Name
		if name == "" {
			if u, err := s.store.UserByID(uid); err == nil {
				name = u.Username
			}
		}
		if _, err := engine.AddPlayer(name, st.Stack, &uid, st.AvatarURL, &seat); err != nil {
			// Stale seat rows can collide; fall back to automatic seating.
			if _, err := engine.AddPlayer(name, st.Stack, &uid, st.AvatarURL, nil); err != nil {
				s.log.Warn("could not restore seat", "table", tableID, "user", uid, "error", err)
			}
		}
	}
	engine.RestoreNextPlayerID()

	h := &tableHandle{engine: engine, meta: meta}
	s.tables[tableID] = h
	metrics.LiveTables.Inc()
	s.log.Info("hydrated table", "table", tableID, "seats", len(engine.Players))
	return h, nil
}

type outbound struct {
	sink  Sink
	frame *Frame
}

// withTable runs fn under the table lock, then runs the sweep pipeline and
// broadcasts the resulting state. fn's error does not suppress the sweep.
func (s *Service) withTable(tableID int64, fn func(h *tableHandle) error) error {
	h, err := s.handle(tableID)
	if err != nil {
		return err
	}

	h.mu.Lock()
	ferr := fn(h)
	s.sweepLocked(h)
	frames := s.stateFramesLocked(h)
	h.mu.Unlock()

	s.dispatch(frames)
	return ferr
}

// stateFramesLocked renders one masked frame per subscriber. Seated users
// subscribed elsewhere still get a frame through the per-user map.
func (s *Service) stateFramesLocked(h *tableHandle) []outbound {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	var out []outbound
	included := make(map[Sink]struct{})

	for sink := range s.tableSubs[h.meta.ID] {
		sub := s.subs[sink]
		out = append(out, outbound{sink, &Frame{
			Type:    "table_state",
			TableID: h.meta.ID,
			State:   buildState(h.engine, h.meta, sub.viewer),
		}})
		included[sink] = struct{}{}
	}

	for _, p := range h.engine.Players {
		if p.UserID == nil {
			continue
		}
		uid := *p.UserID
		for sink := range s.userSubs[uid] {
			if _, ok := included[sink]; ok {
				continue
			}
			out = append(out, outbound{sink, &Frame{
				Type:    "table_state",
				TableID: h.meta.ID,
				State:   buildState(h.engine, h.meta, &uid),
			}})
			included[sink] = struct{}{}
		}
	}
	return out
}

// dispatch sends frames best-effort; a failed sink is dropped.
func (s *Service) dispatch(frames []outbound) {
	for _, f := range frames {
		if err := f.sink.Send(f.frame); err != nil {
			s.log.Debug("dropping subscriber", "error", err)
			s.Unsubscribe(f.sink)
		}
	}
}

// Subscribe attaches a sink to a table. viewer is nil for spectators. The
// new subscriber receives the chat backlog and a state frame.
func (s *Service) Subscribe(tableID int64, sink Sink, viewer *int64) error {
	if _, err := s.handle(tableID); err != nil {
		return err
	}

	s.subMu.Lock()
	s.subs[sink] = &subscription{tableID: tableID, viewer: viewer}
	if s.tableSubs[tableID] == nil {
		s.tableSubs[tableID] = make(map[Sink]struct{})
	}
	s.tableSubs[tableID][sink] = struct{}{}
	if viewer != nil {
		if s.userSubs[*viewer] == nil {
			s.userSubs[*viewer] = make(map[Sink]struct{})
		}
		s.userSubs[*viewer][sink] = struct{}{}
	}
	backlog := make([]ChatMessage, len(s.chatLogs[tableID]))
	copy(backlog, s.chatLogs[tableID])
	s.subMu.Unlock()

	for i := range backlog {
		msg := backlog[i]
		if err := sink.Send(&Frame{Type: "chat", TableID: tableID, Chat: &msg}); err != nil {
			s.Unsubscribe(sink)
			return err
		}
	}

	// Initial broadcast doubles as a sweep tick.
	return s.Rebroadcast(tableID)
}

// Unsubscribe detaches a sink from every map.
func (s *Service) Unsubscribe(sink Sink) {
	s.subMu.Lock()
	sub, ok := s.subs[sink]
	if ok {
		delete(s.subs, sink)
		if set := s.tableSubs[sub.tableID]; set != nil {
			delete(set, sink)
		}
		if sub.viewer != nil {
			if set := s.userSubs[*sub.viewer]; set != nil {
				delete(set, sink)
				if len(set) == 0 {
					delete(s.userSubs, *sub.viewer)
				}
			}
		}
	}
	s.subMu.Unlock()
}

// Chat appends a table chat message and fans it out to the table's
// subscribers.
func (s *Service) Chat(tableID, userID int64, username, text string) {
	s.subMu.Lock()
	s.nextChatID++
	msg := ChatMessage{
		ID:       s.nextChatID,
		TableID:  tableID,
		UserID:   userID,
		Username: username,
		Message:  text,
		SentAt:   s.clock.Now(),
	}
	s.appendChat(tableID, msg)

	var out []outbound
	for sink := range s.tableSubs[tableID] {
		out = append(out, outbound{sink, &Frame{Type: "chat", TableID: tableID, Chat: &msg}})
	}
	s.subMu.Unlock()

	s.dispatch(out)
}

// OnlineCount counts distinct authenticated users with a live subscription
// anywhere, plus the requester if they are not already connected.
func (s *Service) OnlineCount(requester *int64) int {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	n := len(s.userSubs)
	if requester != nil {
		if _, ok := s.userSubs[*requester]; !ok {
			n++
		}
	}
	return n
}

// Sweep ticks every hydrated table: timeouts, sit-out removals, progression,
// persistence, broadcast. Runs at 1Hz from the daemon.
func (s *Service) Sweep() {
	s.mu.Lock()
	handles := make([]*tableHandle, 0, len(s.tables))
	for _, h := range s.tables {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.mu.Lock()
		s.sweepLocked(h)
		frames := s.stateFramesLocked(h)
		h.mu.Unlock()
		s.dispatch(frames)
	}
}

// Shutdown flushes durable stacks for every live table and closes all
// subscriber sinks.
func (s *Service) Shutdown() {
	s.mu.Lock()
	handles := make([]*tableHandle, 0, len(s.tables))
	for _, h := range s.tables {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.mu.Lock()
		s.persistStacksLocked(h)
		h.mu.Unlock()
	}

	s.subMu.Lock()
	sinks := make([]Sink, 0, len(s.subs))
	for sink := range s.subs {
		sinks = append(sinks, sink)
	}
	s.subMu.Unlock()

	for _, sink := range sinks {
		_ = sink.Close()
		s.Unsubscribe(sink)
	}
	s.log.Info("session service shut down", "tables_flushed", len(handles))
}
