package session

import "time"

// chatBacklog bounds the per-table chat ring delivered to new subscribers.
const chatBacklog = 50

// ChatMessage is one table chat line.
type ChatMessage struct {
	ID       int64     `json:"id"`
	TableID  int64     `json:"table_id"`
	UserID   int64     `json:"user_id"`
	Username string    `json:"username"`
	Message  string    `json:"message"`
	SentAt   time.Time `json:"sent_at"`
}

// appendChat stores a message in the table's ring. Caller holds subMu.
func (s *Service) appendChat(tableID int64, msg ChatMessage) {
	ring := append(s.chatLogs[tableID], msg)
	if len(ring) > chatBacklog {
		ring = ring[len(ring)-chatBacklog:]
	}
	s.chatLogs[tableID] = ring
}
