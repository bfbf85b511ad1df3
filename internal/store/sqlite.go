package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS accounts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        username TEXT UNIQUE NOT NULL,
        password_hash TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS groups (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT UNIQUE NOT NULL,
        description TEXT,
        context TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS roles (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT UNIQUE NOT NULL
    );

    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY, -- UUID
        name TEXT UNIQUE NOT NULL,
        alias TEXT NOT NULL,
        phone TEXT,
        role_id TEXT REFERENCES roles (id),
        reporting_to TEXT REFERENCES users (id),
        summarize_keywords TEXT, -- JSON string array
        prioritize TEXT CHECK (prioritize IN ('high', 'medium', 'low')),
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS user_groups (
        user_id TEXT NOT NULL REFERENCES users (id),
        group_id TEXT NOT NULL REFERENCES groups (id),
        PRIMARY KEY (user_id, group_id)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY, -- UUID
        group_id TEXT NOT NULL REFERENCES groups (id),
        sender_alias TEXT NOT NULL,
        sender_id TEXT REFERENCES users (id),
        body TEXT NOT NULL,
        timestamp DATETIME,
        is_media BOOLEAN NOT NULL DEFAULT FALSE,
        language TEXT NOT NULL DEFAULT 'en',
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS tasks (
        id TEXT PRIMARY KEY, -- UUID
        task_text TEXT NOT NULL,
        assigned_by TEXT REFERENCES users (id),
        assigned_to TEXT REFERENCES users (id),
        status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in progress', 'completed')),
        deadline DATETIME,
        message_id TEXT,
        group_id TEXT REFERENCES groups (id),
        completion_signal TEXT,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS summarization_rules (
        id TEXT PRIMARY KEY, -- UUID
        user_id TEXT NOT NULL REFERENCES users (id),
        group_id TEXT NOT NULL REFERENCES groups (id),
        rule_text TEXT NOT NULL,
        rule_kind TEXT NOT NULL DEFAULT 'bullet' CHECK (rule_kind IN ('bullet', 'narrative')),
        priority INTEGER NOT NULL DEFAULT 1,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP
    );

    CREATE INDEX IF NOT EXISTS idx_messages_group_ts ON messages (group_id, timestamp);
    CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to ON tasks (assigned_to);
    CREATE INDEX IF NOT EXISTS idx_tasks_assigned_by ON tasks (assigned_by);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Account methods
func (s *SQLiteStore) GetAccountByUsername(username string) (*Account, error) {
	var acc Account
	err := s.db.QueryRow("SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?", username).
		Scan(&acc.ID, &acc.Username, &acc.PasswordHash, &acc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Account not found
		}
		return nil, fmt.Errorf("failed to query account: %w", err)
	}
	return &acc, nil
}

func (s *SQLiteStore) CreateAccount(username, passwordHash string) (*Account, error) {
	now := time.Now()
	res, err := s.db.Exec("INSERT INTO accounts (username, password_hash, created_at) VALUES (?, ?, ?)", username, passwordHash, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert account: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Account{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}
