package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task methods
type NewTask struct {
	TaskText         string
	AssignedBy       *string
	AssignedTo       *string
	Status           string // defaults to "open"
	Deadline         *time.Time
	MessageID        *string
	GroupID          *string
	CompletionSignal *string
}

func (s *SQLiteStore) CreateTask(t NewTask) (*Task, error) {
	if t.Status == "" {
		t.Status = "open"
	}

	id := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec(`
        INSERT INTO tasks (id, task_text, assigned_by, assigned_to, status, deadline, message_id, group_id, completion_signal, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, t.TaskText, t.AssignedBy, t.AssignedTo, t.Status, t.Deadline, t.MessageID, t.GroupID, t.CompletionSignal, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	return &Task{
		ID:               id,
		TaskText:         t.TaskText,
		AssignedBy:       t.AssignedBy,
		AssignedTo:       t.AssignedTo,
		Status:           t.Status,
		Deadline:         t.Deadline,
		MessageID:        t.MessageID,
		GroupID:          t.GroupID,
		CompletionSignal: t.CompletionSignal,
		CreatedAt:        now,
	}, nil
}

// GetTasksByUser lists tasks where the user is either the assigner or the
// assignee, with the counterpart and group names resolved.
func (s *SQLiteStore) GetTasksByUser(userID string) ([]Task, error) {
	rows, err := s.db.Query(`
        SELECT t.id, t.task_text, t.assigned_by, ub.name, t.assigned_to, ut.name, t.status,
               t.deadline, t.message_id, t.group_id, g.name, t.completion_signal, t.created_at
        FROM tasks t
        LEFT JOIN users ub ON ub.id = t.assigned_by
        LEFT JOIN users ut ON ut.id = t.assigned_to
        LEFT JOIN groups g ON g.id = t.group_id
        WHERE t.assigned_by = ? OR t.assigned_to = ?
        ORDER BY t.created_at DESC`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var assignedBy, assignedByName, assignedTo, assignedToName, messageID, groupID, groupName, completionSignal sql.NullString
		var deadline sql.NullTime
		if err := rows.Scan(&t.ID, &t.TaskText, &assignedBy, &assignedByName, &assignedTo, &assignedToName, &t.Status,
			&deadline, &messageID, &groupID, &groupName, &completionSignal, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		t.AssignedBy = nullableString(assignedBy)
		t.AssignedByName = nullableString(assignedByName)
		t.AssignedTo = nullableString(assignedTo)
		t.AssignedToName = nullableString(assignedToName)
		t.MessageID = nullableString(messageID)
		t.GroupID = nullableString(groupID)
		t.GroupName = nullableString(groupName)
		t.CompletionSignal = nullableString(completionSignal)
		if deadline.Valid {
			d := deadline.Time
			t.Deadline = &d
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// SummarizationRule methods
type NewRule struct {
	UserID   string
	GroupID  string
	RuleText string
	RuleKind string // defaults to "bullet"
	Priority int
}

func (s *SQLiteStore) CreateRule(r NewRule) (*SummarizationRule, error) {
	if r.RuleKind == "" {
		r.RuleKind = "bullet"
	}
	if r.Priority == 0 {
		r.Priority = 1
	}

	id := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec(`
        INSERT INTO summarization_rules (id, user_id, group_id, rule_text, rule_kind, priority, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, r.UserID, r.GroupID, r.RuleText, r.RuleKind, r.Priority, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert rule: %w", err)
	}

	return &SummarizationRule{
		ID:        id,
		UserID:    r.UserID,
		GroupID:   r.GroupID,
		RuleText:  r.RuleText,
		RuleKind:  r.RuleKind,
		Priority:  r.Priority,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetRulesByUser(userID string) ([]SummarizationRule, error) {
	rows, err := s.db.Query(`
        SELECT id, user_id, group_id, rule_text, rule_kind, priority, created_at
        FROM summarization_rules
        WHERE user_id = ?
        ORDER BY priority DESC, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []SummarizationRule
	for rows.Next() {
		var r SummarizationRule
		if err := rows.Scan(&r.ID, &r.UserID, &r.GroupID, &r.RuleText, &r.RuleKind, &r.Priority, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}
