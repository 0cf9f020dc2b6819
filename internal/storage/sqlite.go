package storage

import (
	"database/sql"
	"fmt"
	"log/slog"

	// Registers the pure-Go "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// SQLite is the durable Store: a single kv table in an embedded
// database file. One file corresponds to one browser profile.
type SQLite struct {
	conn   *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the profile database at path.
// Use ":memory:" for a throwaway profile.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: opening database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: pinging database: %w", err)
	}

	// WAL keeps readers unblocked while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: setting WAL mode: %w", err)
	}

	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: creating kv table: %w", err)
	}

	return &SQLite{conn: conn, logger: logger}, nil
}

func (s *SQLite) Close() error {
	return s.conn.Close()
}

func (s *SQLite) Get(key string) (string, bool) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			s.logger.Error("kv read failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		return "", false
	}
	return value, true
}

func (s *SQLite) Set(key, value string) {
	_, err := s.conn.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		s.logger.Error("kv write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *SQLite) Delete(key string) {
	if _, err := s.conn.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		s.logger.Error("kv delete failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *SQLite) Keys() []string {
	rows, err := s.conn.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		s.logger.Error("kv keys failed", slog.String("error", err.Error()))
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return keys
		}
		keys = append(keys, k)
	}
	return keys
}
