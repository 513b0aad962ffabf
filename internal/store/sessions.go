package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/padpad2004/poker-platform/internal/fault"
)

// TableSession is one user's buy-in to cash-out arc at a table.
type TableSession struct {
	ID         int64
	TableID    int64
	UserID     int64
	BuyIn      int64
	CashOut    *int64
	ProfitLoss *int64
	CreatedAt  time.Time
	ClosedAt   *time.Time
}

// ReportEntry is one user's line in a table's closing report.
type ReportEntry struct {
	TableID    int64
	ClubID     int64
	UserID     int64
	BuyIn      int64
	CashOut    *int64
	ProfitLoss int64
}

// OpenSession records a buy-in. At most one open session may exist per
// (table, user); a second open attempt is a conflict.
func (s *Store) OpenSession(tableID, userID, buyIn int64) (int64, error) {
	existing, err := s.FindOpenSession(tableID, userID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, fault.Errorf(fault.Conflict, "user %d already has an open session at table %d", userID, tableID)
	}

	res, err := s.db.Exec(
		`INSERT INTO table_sessions (table_id, user_id, buy_in) VALUES (?, ?, ?)`,
		tableID, userID, buyIn,
	)
	if err != nil {
		return 0, fmt.Errorf("open session: %w", err)
	}
	return res.LastInsertId()
}

// FindOpenSession returns the open session for (table, user), or nil.
func (s *Store) FindOpenSession(tableID, userID int64) (*TableSession, error) {
	row := s.db.QueryRow(
		`SELECT id, table_id, user_id, buy_in, cash_out, profit_loss, created_at, closed_at
		 FROM table_sessions
		 WHERE table_id = ? AND user_id = ? AND closed_at IS NULL`, tableID, userID,
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

// CloseSession writes cash-out and profit-loss on the open session.
func (s *Store) CloseSession(tableID, userID, cashOut int64) error {
	res, err := s.db.Exec(
		`UPDATE table_sessions
		 SET cash_out = ?, profit_loss = ? - buy_in, closed_at = CURRENT_TIMESTAMP
		 WHERE table_id = ? AND user_id = ? AND closed_at IS NULL`,
		cashOut, cashOut, tableID, userID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fault.Errorf(fault.NotFound, "no open session for user %d at table %d", userID, tableID)
	}
	return nil
}

// ListSessions returns every session for a table, oldest first.
func (s *Store) ListSessions(tableID int64) ([]*TableSession, error) {
	rows, err := s.db.Query(
		`SELECT id, table_id, user_id, buy_in, cash_out, profit_loss, created_at, closed_at
		 FROM table_sessions WHERE table_id = ? ORDER BY created_at`, tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*TableSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*TableSession, error) {
	var sess TableSession
	var cashOut, profitLoss sql.NullInt64
	var closedAt sql.NullTime
	err := row.Scan(&sess.ID, &sess.TableID, &sess.UserID, &sess.BuyIn,
		&cashOut, &profitLoss, &sess.CreatedAt, &closedAt)
	if err != nil {
		return nil, err
	}
	if cashOut.Valid {
		sess.CashOut = &cashOut.Int64
	}
	if profitLoss.Valid {
		sess.ProfitLoss = &profitLoss.Int64
	}
	if closedAt.Valid {
		sess.ClosedAt = &closedAt.Time
	}
	return &sess, nil
}

// CreateReport opens a closing report for a table and returns its id.
func (s *Store) CreateReport(tableID, clubID int64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO table_reports (table_id, club_id) VALUES (?, ?)`, tableID, clubID,
	)
	if err != nil {
		return 0, fmt.Errorf("create report: %w", err)
	}
	return res.LastInsertId()
}

// AppendReportEntries writes all per-user lines of a report in one
// transaction.
func (s *Store) AppendReportEntries(reportID int64, entries []*ReportEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin report tx: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		var cashOut any
		if e.CashOut != nil {
			cashOut = *e.CashOut
		}
		_, err := tx.Exec(
			`INSERT INTO table_report_entries
			 (table_report_id, table_id, club_id, user_id, buy_in, cash_out, profit_loss)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			reportID, e.TableID, e.ClubID, e.UserID, e.BuyIn, cashOut, e.ProfitLoss,
		)
		if err != nil {
			return fmt.Errorf("append report entry: %w", err)
		}
	}
	return tx.Commit()
}

// HandHistory is one user's record of a finished hand.
type HandHistory struct {
	ID        int64
	UserID    int64
	TableName string
	Result    string
	NetChange int64
	Summary   string
	CreatedAt time.Time
}

// AppendHandHistory records one finished hand for a user.
func (s *Store) AppendHandHistory(userID int64, tableName, result string, netChange int64, summary string) error {
	_, err := s.db.Exec(
		`INSERT INTO hand_histories (user_id, table_name, result, net_change, summary)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, tableName, result, netChange, summary,
	)
	if err != nil {
		return fmt.Errorf("append hand history: %w", err)
	}
	return nil
}

// ListHandHistories returns the user's most recent hands, newest first.
func (s *Store) ListHandHistories(userID int64, limit int) ([]*HandHistory, error) {
	rows, err := s.db.Query(
		`SELECT id, user_id, table_name, result, net_change, summary, created_at
		 FROM hand_histories WHERE user_id = ?
		 ORDER BY id DESC LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list hand histories: %w", err)
	}
	defer rows.Close()

	var out []*HandHistory
	for rows.Next() {
		var h HandHistory
		var summary sql.NullString
		if err := rows.Scan(&h.ID, &h.UserID, &h.TableName, &h.Result,
			&h.NetChange, &summary, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan hand history: %w", err)
		}
		h.Summary = summary.String
		out = append(out, &h)
	}
	return out, rows.Err()
}
