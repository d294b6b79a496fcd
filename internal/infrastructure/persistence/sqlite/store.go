package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "sqlite")

const busyTimeoutMs = 5000

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite: empty db path")
	}

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: creating dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.WithField("path", dbPath).Debug("database ready")
	return &Store{db: db}, nil
}

// WAL deja leer mientras una transacción de escritura espera al chat.
// Las escrituras toman el lock al empezar y esperan hasta busyTimeoutMs.
func dsn(dbPath string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate", dbPath, busyTimeoutMs)
}

// Message ids need 18~20 digits, so they are kept as text.
func migrate(db *sql.DB) error {
	const reactionRolesTable = `
CREATE TABLE IF NOT EXISTS reaction_roles (
	message_id  VARCHAR(25) NOT NULL,
	reaction    VARCHAR(40) NOT NULL,
	role_id     VARCHAR(25) NOT NULL,
	type        VARCHAR(10) NOT NULL,
	channel_id  VARCHAR(25) NOT NULL,
	PRIMARY KEY (message_id, reaction)
);`

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: migrate begin: %w", err)
	}
	if _, err := tx.Exec(reactionRolesTable); err != nil {
		tx.Rollback()
		return fmt.Errorf("sqlite: migrate reaction_roles: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: migrate commit: %w", err)
	}

	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
