package store

import "time"

// Account is a login account for the API, distinct from the organizational
// identities ingested from rosters.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Do not expose this in JSON responses
	CreatedAt    time.Time `json:"created_at"`
}

// Ref is a resolved reference to another record.
type Ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Group struct {
	ID          string    `json:"id"` // UUID
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Context     *string   `json:"context,omitempty"`
	Members     []Member  `json:"members"`
	CreatedAt   time.Time `json:"created_at"`
}

// Member is a group member with its display attributes resolved.
type Member struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

type Role struct {
	ID   string `json:"id"` // UUID
	Name string `json:"name"`
}

// User is an organizational identity. The UUID is the stable key; the name
// is the natural upsert key for reconciliation, and the alias is only a
// best-effort matching attribute for chat senders.
type User struct {
	ID                string    `json:"id"` // UUID
	Name              string    `json:"name"`
	Alias             string    `json:"alias"`
	Phone             *string   `json:"phone,omitempty"`
	RoleID            *string   `json:"role_id,omitempty"`
	RoleName          *string   `json:"role,omitempty"`
	ReportingTo       *string   `json:"reporting_to,omitempty"`
	ReportingToName   *string   `json:"reporting_to_name,omitempty"`
	Groups            []Ref     `json:"groups"`
	SummarizeKeywords []string  `json:"summarize_keywords,omitempty"`
	Prioritize        *string   `json:"prioritize,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

type Message struct {
	ID          string     `json:"id"` // UUID
	GroupID     string     `json:"group_id"`
	SenderAlias string     `json:"sender_alias"`
	SenderID    *string    `json:"sender_id,omitempty"`
	SenderName  *string    `json:"sender_name,omitempty"`
	Body        string     `json:"message"`
	Timestamp   *time.Time `json:"timestamp,omitempty"` // Absent when unparseable
	IsMedia     bool       `json:"is_media"`
	Language    string     `json:"language"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Task struct {
	ID               string     `json:"id"` // UUID
	TaskText         string     `json:"task_text"`
	AssignedBy       *string    `json:"assigned_by,omitempty"`
	AssignedByName   *string    `json:"assigned_by_name,omitempty"`
	AssignedTo       *string    `json:"assigned_to,omitempty"`
	AssignedToName   *string    `json:"assigned_to_name,omitempty"`
	Status           string     `json:"status"` // "open", "in progress" or "completed"
	Deadline         *time.Time `json:"deadline,omitempty"`
	MessageID        *string    `json:"message_id,omitempty"`
	GroupID          *string    `json:"group_id,omitempty"`
	GroupName        *string    `json:"group_name,omitempty"`
	CompletionSignal *string    `json:"completion_signal,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// SummarizationRule is created through the API directly; it is not part of
// the ingestion pipeline.
type SummarizationRule struct {
	ID        string    `json:"id"` // UUID
	UserID    string    `json:"user_id"`
	GroupID   string    `json:"group_id"`
	RuleText  string    `json:"rule_text"`
	RuleKind  string    `json:"rule_kind"` // "bullet" or "narrative"
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}
