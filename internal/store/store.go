// Package store is the sqlite persistence adapter: users and wallets, clubs
// and membership, table metadata, per-table stacks, play sessions, closing
// reports, and per-user hand history.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/padpad2004/poker-platform/internal/fault"
)

// Store wraps a sqlite database. All operations are single-row atomic;
// wallet adjustments and their ledger entries share a transaction.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// sqlite allows one writer; serialize access through a single conn to
	// avoid SQLITE_BUSY under concurrent table sweeps.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			balance INTEGER NOT NULL DEFAULT 0,
			profile_picture_url TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS wallet_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			amount INTEGER NOT NULL,
			kind TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS clubs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			owner_id INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (owner_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS club_members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			club_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			role TEXT NOT NULL DEFAULT 'member',
			status TEXT NOT NULL DEFAULT 'approved',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (club_id, user_id),
			FOREIGN KEY (club_id) REFERENCES clubs(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS poker_tables (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			club_id INTEGER NOT NULL,
			created_by_user_id INTEGER NOT NULL,
			table_name TEXT NOT NULL DEFAULT 'Table',
			max_seats INTEGER NOT NULL DEFAULT 9,
			small_blind INTEGER NOT NULL DEFAULT 1,
			big_blind INTEGER NOT NULL DEFAULT 2,
			game_kind TEXT NOT NULL DEFAULT 'nlh',
			bomb_pot_every_n_hands INTEGER,
			bomb_pot_amount INTEGER,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (club_id) REFERENCES clubs(id)
		)`,
		`CREATE TABLE IF NOT EXISTS table_stacks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			seat INTEGER NOT NULL,
			stack INTEGER NOT NULL,
			name TEXT,
			profile_picture_url TEXT,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (table_id, user_id),
			FOREIGN KEY (table_id) REFERENCES poker_tables(id)
		)`,
		`CREATE TABLE IF NOT EXISTS table_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			buy_in INTEGER NOT NULL,
			cash_out INTEGER,
			profit_loss INTEGER,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			closed_at TIMESTAMP,
			FOREIGN KEY (table_id) REFERENCES poker_tables(id)
		)`,
		`CREATE TABLE IF NOT EXISTS table_reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_id INTEGER NOT NULL,
			club_id INTEGER NOT NULL,
			generated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS table_report_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_report_id INTEGER NOT NULL,
			table_id INTEGER NOT NULL,
			club_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			buy_in INTEGER NOT NULL,
			cash_out INTEGER,
			profit_loss INTEGER NOT NULL,
			FOREIGN KEY (table_report_id) REFERENCES table_reports(id)
		)`,
		`CREATE TABLE IF NOT EXISTS hand_histories (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			table_name TEXT NOT NULL,
			result TEXT NOT NULL,
			net_change INTEGER NOT NULL DEFAULT 0,
			summary TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

// User is an account with a chip wallet.
type User struct {
	ID        int64
	Username  string
	Email     string
	Balance   int64
	AvatarURL string
	CreatedAt time.Time
}

// CreateUser registers an account with a starting balance.
func (s *Store) CreateUser(username, email string, balance int64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO users (username, email, balance) VALUES (?, ?, ?)`,
		username, email, balance,
	)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// UserByID loads one user.
func (s *Store) UserByID(id int64) (*User, error) {
	var u User
	var avatar sql.NullString
	err := s.db.QueryRow(
		`SELECT id, username, email, balance, profile_picture_url, created_at
		 FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Balance, &avatar, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fault.Errorf(fault.NotFound, "user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	u.AvatarURL = avatar.String
	return &u, nil
}

// ReadWallet returns the user's current balance.
func (s *Store) ReadWallet(userID int64) (int64, error) {
	var balance int64
	err := s.db.QueryRow(`SELECT balance FROM users WHERE id = ?`, userID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fault.Errorf(fault.NotFound, "user %d not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("read wallet: %w", err)
	}
	return balance, nil
}

// AdjustWallet applies delta to the user's balance and records a ledger
// entry, atomically. Callers verify non-negativity of the resulting balance
// where that matters (buy-ins).
func (s *Store) AdjustWallet(userID, delta int64, kind, description string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin wallet tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE users SET balance = balance + ? WHERE id = ?`, delta, userID)
	if err != nil {
		return fmt.Errorf("adjust wallet: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fault.Errorf(fault.NotFound, "user %d not found", userID)
	}

	_, err = tx.Exec(
		`INSERT INTO wallet_entries (user_id, amount, kind, description) VALUES (?, ?, ?, ?)`,
		userID, delta, kind, description,
	)
	if err != nil {
		return fmt.Errorf("record wallet entry: %w", err)
	}
	return tx.Commit()
}

// CreateClub registers a club and seats the owner as an approved member.
func (s *Store) CreateClub(name string, ownerID int64) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO clubs (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return 0, fmt.Errorf("create club: %w", err)
	}
	clubID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := s.AddMember(clubID, ownerID, "owner", "approved"); err != nil {
		return 0, err
	}
	return clubID, nil
}

// AddMember adds or updates a club membership row.
func (s *Store) AddMember(clubID, userID int64, role, status string) error {
	_, err := s.db.Exec(
		`INSERT INTO club_members (club_id, user_id, role, status) VALUES (?, ?, ?, ?)
		 ON CONFLICT (club_id, user_id) DO UPDATE SET role = excluded.role, status = excluded.status`,
		clubID, userID, role, status,
	)
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// IsApprovedMember reports whether the user has approved membership in the
// club.
func (s *Store) IsApprovedMember(clubID, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM club_members WHERE club_id = ? AND user_id = ? AND status = 'approved'`,
		clubID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

// IsClubOwner reports whether the user owns the club.
func (s *Store) IsClubOwner(clubID, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(1) FROM clubs WHERE id = ? AND owner_id = ?`, clubID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check owner: %w", err)
	}
	return n > 0, nil
}
