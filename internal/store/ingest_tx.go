package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// dbtx is the overlap of *sql.DB and *sql.Tx the upsert helpers need, so
// reconciliation can run inside an ingestion transaction while direct API
// creates reuse the same statements.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// IngestTx carries one ingestion run: all metadata upserts and the message
// batch commit or roll back together.
type IngestTx struct {
	tx *sql.Tx
}

func (s *SQLiteStore) BeginIngest() (*IngestTx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	return &IngestTx{tx: tx}, nil
}

func (t *IngestTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ingest transaction: %w", err)
	}
	return nil
}

func (t *IngestTx) Rollback() error {
	return t.tx.Rollback()
}

// UpsertGroup creates the group on first sight of the name and returns its
// ID either way.
func (t *IngestTx) UpsertGroup(name string) (string, error) {
	var id string
	err := t.tx.QueryRow("SELECT id FROM groups WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to query group %s: %w", name, err)
	}

	id = uuid.NewString()
	if _, err := t.tx.Exec("INSERT INTO groups (id, name, created_at) VALUES (?, ?, ?)", id, name, time.Now()); err != nil {
		return "", fmt.Errorf("failed to insert group %s: %w", name, err)
	}
	return id, nil
}

func (t *IngestTx) UpsertRole(name string) (string, error) {
	return upsertRole(t.tx, name)
}

func upsertRole(q dbtx, name string) (string, error) {
	var id string
	err := q.QueryRow("SELECT id FROM roles WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to query role %s: %w", name, err)
	}

	id = uuid.NewString()
	if _, err := q.Exec("INSERT INTO roles (id, name) VALUES (?, ?)", id, name); err != nil {
		return "", fmt.Errorf("failed to insert role %s: %w", name, err)
	}
	return id, nil
}

type UserUpsert struct {
	Name   string
	Alias  string
	Phone  string
	RoleID string
	// Optional per-member summarization rule. A nil SummarizeKeywords
	// leaves any previously stored rule untouched.
	SummarizeKeywords []string
	Prioritize        string
}

// UpsertUser reconciles one roster member keyed by name and returns the
// user's stable ID. Alias, phone, and role are overwritten on every run.
func (t *IngestTx) UpsertUser(u UserUpsert) (string, error) {
	var id string
	err := t.tx.QueryRow("SELECT id FROM users WHERE name = ?", u.Name).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.NewString()
		_, err = t.tx.Exec("INSERT INTO users (id, name, alias, phone, role_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
			id, u.Name, u.Alias, emptyToNull(u.Phone), emptyToNull(u.RoleID), time.Now())
		if err != nil {
			return "", fmt.Errorf("failed to insert user %s: %w", u.Name, err)
		}
	case err != nil:
		return "", fmt.Errorf("failed to query user %s: %w", u.Name, err)
	default:
		_, err = t.tx.Exec("UPDATE users SET alias = ?, phone = ?, role_id = ? WHERE id = ?",
			u.Alias, emptyToNull(u.Phone), emptyToNull(u.RoleID), id)
		if err != nil {
			return "", fmt.Errorf("failed to update user %s: %w", u.Name, err)
		}
	}

	if u.SummarizeKeywords != nil {
		keywordsJSON, err := json.Marshal(u.SummarizeKeywords)
		if err != nil {
			return "", fmt.Errorf("failed to marshal summarize keywords for %s: %w", u.Name, err)
		}
		_, err = t.tx.Exec("UPDATE users SET summarize_keywords = ?, prioritize = ? WHERE id = ?",
			string(keywordsJSON), emptyToNull(u.Prioritize), id)
		if err != nil {
			return "", fmt.Errorf("failed to update rule for user %s: %w", u.Name, err)
		}
	}

	return id, nil
}

// ReplaceGroupMembers rewrites the group's membership rows to exactly the
// given set. Memberships of these users in other groups are untouched.
func (t *IngestTx) ReplaceGroupMembers(groupID string, userIDs []string) error {
	if _, err := t.tx.Exec("DELETE FROM user_groups WHERE group_id = ?", groupID); err != nil {
		return fmt.Errorf("failed to clear group members: %w", err)
	}

	stmt, err := t.tx.Prepare("INSERT INTO user_groups (user_id, group_id) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare membership insert: %w", err)
	}
	defer stmt.Close()

	for _, userID := range userIDs {
		if _, err := stmt.Exec(userID, groupID); err != nil {
			return fmt.Errorf("failed to insert membership for user %s: %w", userID, err)
		}
	}
	return nil
}

// SetReportingTo wires one hierarchy edge; a nil superior clears it.
func (t *IngestTx) SetReportingTo(userID string, superiorID *string) error {
	if _, err := t.tx.Exec("UPDATE users SET reporting_to = ? WHERE id = ?", superiorID, userID); err != nil {
		return fmt.Errorf("failed to update reporting line for user %s: %w", userID, err)
	}
	return nil
}

// InsertMessages bulk-inserts the parsed batch. IDs are assigned here;
// there is no dedup key, so re-ingesting the same export duplicates rows.
func (t *IngestTx) InsertMessages(msgs []Message) error {
	stmt, err := t.tx.Prepare(`
        INSERT INTO messages (id, group_id, sender_alias, sender_id, body, timestamp, is_media, language, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i := range msgs {
		msg := &msgs[i]
		msg.ID = uuid.NewString()
		msg.CreatedAt = now
		var ts any
		if msg.Timestamp != nil {
			ts = *msg.Timestamp
		}
		if _, err := stmt.Exec(msg.ID, msg.GroupID, msg.SenderAlias, msg.SenderID, msg.Body, ts, msg.IsMedia, msg.Language, now); err != nil {
			return fmt.Errorf("failed to insert message %d: %w", i+1, err)
		}
	}
	return nil
}

func emptyToNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}
