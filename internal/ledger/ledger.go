// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger tracks per-user token balances in a SQLite database. Every
// balance change is an audited entry; debits are atomic and refuse to take a
// balance below zero. A generation run debits exactly once, at the end of a
// successful run, so a crash mid-run leaves the ledger untouched.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/coursework-engine/pkg/types"
)

const dbFile = "ledger.db"

// ErrInsufficient marks a debit larger than the account's balance. The
// balance is left unchanged.
var ErrInsufficient = errors.New("insufficient token balance")

// Entry is one audited balance change.
type Entry struct {
	ID int64 `json:"id" yaml:"id"`

	UserID string `json:"user_id" yaml:"user_id"`

	// Delta is the signed change: positive for credits, negative for debits.
	Delta int64 `json:"delta" yaml:"delta"`

	// Balance is the account balance after this entry was applied.
	Balance int64 `json:"balance" yaml:"balance"`

	// Note records what the change was for.
	Note string `json:"note" yaml:"note"`

	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Ledger manages the token ledger SQLite database.
type Ledger struct {
	db             *sql.DB
	initialBalance int64
}

// New opens or creates the ledger database at stateDir/ledger.db. Accounts
// are created lazily on first touch with the configured initial balance.
func New(cfg types.LedgerConfig) (*Ledger, error) {
	stateDir := cfg.StateDir
	if stateDir == "" {
		stateDir = "state"
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	dbPath := filepath.Join(stateDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	l := &Ledger{db: db, initialBalance: int64(cfg.InitialBalance)}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			balance INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL REFERENCES accounts(user_id),
			delta INTEGER NOT NULL,
			balance INTEGER NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_user ON entries(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Balance returns the user's current balance, creating the account with the
// initial grant if this is the first touch.
func (l *Ledger) Balance(ctx context.Context, userID string) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	balance, err := l.ensureAccount(ctx, tx, userID)
	if err != nil {
		return 0, err
	}
	return balance, tx.Commit()
}

// Credit adds amount tokens to the user's balance. Amount must be positive.
func (l *Ledger) Credit(ctx context.Context, userID string, amount int64, note string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	_, err := l.apply(ctx, userID, amount, note)
	return err
}

// Debit removes amount tokens from the user's balance in one atomic step and
// returns the new balance. A debit larger than the balance fails with
// ErrInsufficient and changes nothing.
func (l *Ledger) Debit(ctx context.Context, userID string, amount int64, note string) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("debit amount must not be negative, got %d", amount)
	}
	return l.apply(ctx, userID, -amount, note)
}

// apply records one signed balance change inside a transaction and returns
// the balance after the change.
func (l *Ledger) apply(ctx context.Context, userID string, delta int64, note string) (int64, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	balance, err := l.ensureAccount(ctx, tx, userID)
	if err != nil {
		return 0, err
	}

	next := balance + delta
	if next < 0 {
		return 0, fmt.Errorf("%w: balance %d, debit %d", ErrInsufficient, balance, -delta)
	}

	now := formatTime(time.Now().UTC())
	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE user_id = ?`,
		next, now, userID,
	); err != nil {
		return 0, fmt.Errorf("updating balance: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO entries (user_id, delta, balance, note, created_at) VALUES (?, ?, ?, ?, ?)`,
		userID, delta, next, note, now,
	); err != nil {
		return 0, fmt.Errorf("recording entry: %w", err)
	}

	return next, tx.Commit()
}

// ensureAccount reads the balance inside tx, creating the account with the
// initial grant when missing.
func (l *Ledger) ensureAccount(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE user_id = ?`, userID).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("reading balance: %w", err)
	}

	now := formatTime(time.Now().UTC())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (user_id, balance, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		userID, l.initialBalance, now, now,
	); err != nil {
		return 0, fmt.Errorf("creating account: %w", err)
	}
	if l.initialBalance > 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (user_id, delta, balance, note, created_at) VALUES (?, ?, ?, ?, ?)`,
			userID, l.initialBalance, l.initialBalance, "initial grant", now,
		); err != nil {
			return 0, fmt.Errorf("recording initial grant: %w", err)
		}
	}
	return l.initialBalance, nil
}

// Entries returns the user's balance changes, newest first.
func (l *Ledger) Entries(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, user_id, delta, balance, note, created_at
		 FROM entries WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry     Entry
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Delta, &entry.Balance,
			&entry.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}
