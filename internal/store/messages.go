package store

import (
	"database/sql"
	"fmt"
)

// GetMessagesByGroup returns a group's messages newest-first with the
// sender's name resolved where the alias matched an identity at ingest
// time. Messages without a timestamp sort last.
func (s *SQLiteStore) GetMessagesByGroup(groupID string) ([]Message, error) {
	rows, err := s.db.Query(`
        SELECT m.id, m.group_id, m.sender_alias, m.sender_id, u.name, m.body, m.timestamp, m.is_media, m.language, m.created_at
        FROM messages m
        LEFT JOIN users u ON u.id = m.sender_id
        WHERE m.group_id = ?
        ORDER BY m.timestamp DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var senderID, senderName sql.NullString
		var ts sql.NullTime
		if err := rows.Scan(&msg.ID, &msg.GroupID, &msg.SenderAlias, &senderID, &senderName, &msg.Body, &ts, &msg.IsMedia, &msg.Language, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		msg.SenderID = nullableString(senderID)
		msg.SenderName = nullableString(senderName)
		if ts.Valid {
			t := ts.Time
			msg.Timestamp = &t
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessagesByGroup reports how many messages a group holds.
func (s *SQLiteStore) CountMessagesByGroup(groupID string) (int, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM messages WHERE group_id = ?", groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}
