package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/padpad2004/poker-platform/internal/fault"
)

// Table statuses.
const (
	TableActive = "active"
	TableClosed = "closed"
)

// TableMeta is the persistent configuration of a table.
type TableMeta struct {
	ID              int64
	ClubID          int64
	CreatedByUserID int64
	Name            string
	MaxSeats        int
	SmallBlind      int64
	BigBlind        int64
	GameKind        string
	BombPotEveryN   int
	BombPotAmount   int64
	Status          string
	CreatedAt       time.Time
}

// TableStack is a durable snapshot of one seated player's chips.
type TableStack struct {
	TableID   int64
	UserID    int64
	Seat      int
	Stack     int64
	Name      string
	AvatarURL string
	UpdatedAt time.Time
}

// CreateTable persists a new table and returns its id.
func (s *Store) CreateTable(meta *TableMeta) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO poker_tables
		 (club_id, created_by_user_id, table_name, max_seats, small_blind, big_blind,
		  game_kind, bomb_pot_every_n_hands, bomb_pot_amount, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ClubID, meta.CreatedByUserID, meta.Name, meta.MaxSeats,
		meta.SmallBlind, meta.BigBlind, meta.GameKind,
		nullableInt(meta.BombPotEveryN), nullableInt64(meta.BombPotAmount), TableActive,
	)
	if err != nil {
		return 0, fmt.Errorf("create table: %w", err)
	}
	return res.LastInsertId()
}

// LoadTableMeta loads table configuration by id.
func (s *Store) LoadTableMeta(id int64) (*TableMeta, error) {
	var m TableMeta
	var bombN sql.NullInt64
	var bombAmount sql.NullInt64
	err := s.db.QueryRow(
		`SELECT id, club_id, created_by_user_id, table_name, max_seats, small_blind,
		        big_blind, game_kind, bomb_pot_every_n_hands, bomb_pot_amount, status, created_at
		 FROM poker_tables WHERE id = ?`, id,
	).Scan(&m.ID, &m.ClubID, &m.CreatedByUserID, &m.Name, &m.MaxSeats, &m.SmallBlind,
		&m.BigBlind, &m.GameKind, &bombN, &bombAmount, &m.Status, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fault.Errorf(fault.NotFound, "table %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}
	m.BombPotEveryN = int(bombN.Int64)
	m.BombPotAmount = bombAmount.Int64
	return &m, nil
}

// UpdateTableStatus marks a table active or closed.
func (s *Store) UpdateTableStatus(id int64, status string) error {
	res, err := s.db.Exec(`UPDATE poker_tables SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update table status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fault.Errorf(fault.NotFound, "table %d not found", id)
	}
	return nil
}

// ListActiveTablesForUser returns active tables where the user holds a stack.
func (s *Store) ListActiveTablesForUser(userID int64) ([]*TableMeta, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.club_id, t.created_by_user_id, t.table_name, t.max_seats,
		        t.small_blind, t.big_blind, t.game_kind, t.bomb_pot_every_n_hands,
		        t.bomb_pot_amount, t.status, t.created_at
		 FROM poker_tables t
		 JOIN table_stacks st ON st.table_id = t.id
		 WHERE st.user_id = ? AND t.status = ?
		 ORDER BY t.created_at DESC`, userID, TableActive,
	)
	if err != nil {
		return nil, fmt.Errorf("list active tables: %w", err)
	}
	defer rows.Close()

	var out []*TableMeta
	for rows.Next() {
		var m TableMeta
		var bombN, bombAmount sql.NullInt64
		if err := rows.Scan(&m.ID, &m.ClubID, &m.CreatedByUserID, &m.Name, &m.MaxSeats,
			&m.SmallBlind, &m.BigBlind, &m.GameKind, &bombN, &bombAmount,
			&m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		m.BombPotEveryN = int(bombN.Int64)
		m.BombPotAmount = bombAmount.Int64
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ListStacks returns all durable stacks for a table, ordered by seat.
func (s *Store) ListStacks(tableID int64) ([]*TableStack, error) {
	rows, err := s.db.Query(
		`SELECT table_id, user_id, seat, stack, name, profile_picture_url, updated_at
		 FROM table_stacks WHERE table_id = ? ORDER BY seat`, tableID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stacks: %w", err)
	}
	defer rows.Close()

	var out []*TableStack
	for rows.Next() {
		var st TableStack
		var name, avatar sql.NullString
		if err := rows.Scan(&st.TableID, &st.UserID, &st.Seat, &st.Stack,
			&name, &avatar, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stack: %w", err)
		}
		st.Name = name.String
		st.AvatarURL = avatar.String
		out = append(out, &st)
	}
	return out, rows.Err()
}

// UpsertStack writes one seated player's durable stack.
func (s *Store) UpsertStack(st *TableStack) error {
	_, err := s.db.Exec(
		`INSERT INTO table_stacks (table_id, user_id, seat, stack, name, profile_picture_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (table_id, user_id) DO UPDATE SET
		   seat = excluded.seat, stack = excluded.stack, name = excluded.name,
		   profile_picture_url = excluded.profile_picture_url, updated_at = CURRENT_TIMESTAMP`,
		st.TableID, st.UserID, st.Seat, st.Stack, st.Name, st.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("upsert stack: %w", err)
	}
	return nil
}

// DeleteStack removes a durable stack row after a player stands up.
func (s *Store) DeleteStack(tableID, userID int64) error {
	_, err := s.db.Exec(
		`DELETE FROM table_stacks WHERE table_id = ? AND user_id = ?`, tableID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete stack: %w", err)
	}
	return nil
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableInt64(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
