// Package chatlog persists question/answer exchanges. The log is append-only
// and is never read back to answer questions.
package chatlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/config"
	"fintrack/internal/database"
)

// ErrClosed is returned by a Store after Close.
var ErrClosed = errors.New("chat log is closed")

// ChatExchange is one user question and the reply it received.
type ChatExchange struct {
	ID          string    `json:"id"`
	UserMessage string    `json:"userMessage"`
	BotResponse string    `json:"botResponse"`
	Grounded    bool      `json:"grounded"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is an append-only exchange log.
type Store interface {
	Append(ctx context.Context, exchange ChatExchange) error
	// Prune deletes exchanges older than the cutoff and reports how many went.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	Count(ctx context.Context) (int64, error)
	Close() error
}

var migrations = []database.Migration{
	{
		Version: 1,
		Name:    "create_chats",
		SQL: `CREATE TABLE IF NOT EXISTS chats (
			id TEXT PRIMARY KEY,
			user_message TEXT NOT NULL,
			bot_response TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
	},
	{
		Version: 2,
		Name:    "add_chats_created_at_index",
		SQL:     `CREATE INDEX IF NOT EXISTS idx_chats_created_at ON chats (created_at)`,
	},
	{
		Version: 3,
		Name:    "add_chats_grounded",
		SQL:     `ALTER TABLE chats ADD COLUMN grounded BOOLEAN NOT NULL DEFAULT FALSE`,
	},
}

// SQLStore keeps the log in SQLite or Postgres.
type SQLStore struct {
	mu      sync.RWMutex // guards db against Close
	db      *sql.DB
	dialect database.Dialect
}

// Open opens the configured log. A disabled log yields a nil Store and no error.
func Open(cfg config.ChatLogConfig) (Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	store, err := OpenSQL(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// OpenSQL opens a SQL-backed log and applies pending migrations.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	db, dialect, err := database.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(db, dialect, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate chat log: %w", err)
	}
	log.Printf("[ChatLog] Opened %s chat log", dialect)
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Append records an exchange, filling in the ID and timestamp when unset.
func (s *SQLStore) Append(ctx context.Context, exchange ChatExchange) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	if exchange.ID == "" {
		exchange.ID = uuid.NewString()
	}
	if exchange.Timestamp.IsZero() {
		exchange.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, s.dialect.Rebind(
		`INSERT INTO chats (id, user_message, bot_response, grounded, created_at) VALUES (?, ?, ?, ?, ?)`),
		exchange.ID, exchange.UserMessage, exchange.BotResponse, exchange.Grounded, exchange.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to append chat exchange: %w", err)
	}
	return nil
}

func (s *SQLStore) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	res, err := s.db.ExecContext(ctx, s.dialect.Rebind(`DELETE FROM chats WHERE created_at < ?`), olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune chat log: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, ErrClosed
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chat log: %w", err)
	}
	return n, nil
}

// Recent returns up to limit exchanges, newest first. Used by the CLI only.
func (s *SQLStore) Recent(ctx context.Context, limit int) ([]ChatExchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, s.dialect.Rebind(
		`SELECT id, user_message, bot_response, grounded, created_at FROM chats ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat log: %w", err)
	}
	defer rows.Close()

	var out []ChatExchange
	for rows.Next() {
		var (
			ex ChatExchange
			ms int64
		)
		if err := rows.Scan(&ex.ID, &ex.UserMessage, &ex.BotResponse, &ex.Grounded, &ms); err != nil {
			return nil, err
		}
		ex.Timestamp = time.UnixMilli(ms)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Backup writes a consistent snapshot of a SQLite log to dst with VACUUM
// INTO, which is safe while the server is writing. Postgres logs are
// backed up with the server's own tooling.
func (s *SQLStore) Backup(ctx context.Context, dst string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrClosed
	}
	if s.dialect != database.SQLite {
		return fmt.Errorf("backup is only supported for sqlite chat logs; use pg_dump for %s", s.dialect)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("backup destination %s already exists", dst)
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(dst, "'", "''"))); err != nil {
		return fmt.Errorf("failed to back up chat log: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
