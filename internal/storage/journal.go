// Package storage provides SQLite-backed persistence for the notification
// journal. Alerts themselves live in memory; the journal is the durable
// audit trail of every delivery attempt.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minhtri/stockalert/internal/models"
	_ "modernc.org/sqlite"
)

// Journal wraps a SQLite database holding notification records.
type Journal struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/stockalert/journal.db.
func New(dbPath string) (*Journal, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "stockalert", "journal.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	j := &Journal{db: db}
	if err := j.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notifications (
			id           TEXT PRIMARY KEY,
			owner        INTEGER NOT NULL,
			symbol       TEXT NOT NULL,
			kind         TEXT NOT NULL,
			price        REAL NOT NULL,
			target_price REAL NOT NULL,
			days_left    INTEGER NOT NULL DEFAULT 0,
			delivered    INTEGER NOT NULL DEFAULT 0,
			sent_at      INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_owner_sent ON notifications(owner, sent_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record appends one delivery attempt. A missing ID or SentAt is filled in.
func (j *Journal) Record(n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.SentAt.IsZero() {
		n.SentAt = time.Now()
	}
	_, err := j.db.Exec(`
		INSERT INTO notifications
			(id, owner, symbol, kind, price, target_price, days_left, delivered, sent_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		n.ID, n.Owner, n.Symbol, n.Kind, n.Price, n.TargetPrice, n.DaysLeft,
		boolToInt(n.Delivered), n.SentAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Recent returns the owner's newest notifications, most recent first.
func (j *Journal) Recent(owner int64, limit int) ([]models.Notification, error) {
	rows, err := j.db.Query(`
		SELECT id, owner, symbol, kind, price, target_price, days_left, delivered, sent_at
		FROM notifications WHERE owner = ? ORDER BY sent_at DESC LIMIT ?`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		var sentAtNano int64
		var delivered int
		err := rows.Scan(
			&n.ID, &n.Owner, &n.Symbol, &n.Kind, &n.Price, &n.TargetPrice,
			&n.DaysLeft, &delivered, &sentAtNano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Delivered = delivered != 0
		n.SentAt = time.Unix(0, sentAtNano)
		out = append(out, n)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
