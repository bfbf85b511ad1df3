package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// Group methods
type NewGroup struct {
	Name        string
	Description *string
	Context     *string
}

func (s *SQLiteStore) CreateGroup(g NewGroup) (*Group, error) {
	id := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec("INSERT INTO groups (id, name, description, context, created_at) VALUES (?, ?, ?, ?, ?)",
		id, g.Name, g.Description, g.Context, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert group: %w", err)
	}
	return &Group{ID: id, Name: g.Name, Description: g.Description, Context: g.Context, Members: []Member{}, CreatedAt: now}, nil
}

// GetGroups lists groups, optionally filtered by a case-insensitive
// substring match on name, with member name/alias resolved.
func (s *SQLiteStore) GetGroups(nameFilter string) ([]Group, error) {
	query := "SELECT id, name, description, context, created_at FROM groups ORDER BY name"
	args := []any{}
	if nameFilter != "" {
		query = "SELECT id, name, description, context, created_at FROM groups WHERE name LIKE ? COLLATE NOCASE ORDER BY name"
		args = append(args, "%"+nameFilter+"%")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	var groups []Group
	for rows.Next() {
		var g Group
		var description, context sql.NullString
		if err := rows.Scan(&g.ID, &g.Name, &description, &context, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		g.Description = nullableString(description)
		g.Context = nullableString(context)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group rows: %w", err)
	}

	for i := range groups {
		members, err := s.getGroupMembers(groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Members = members
	}
	return groups, nil
}

func (s *SQLiteStore) GetGroupByID(groupID string) (*Group, error) {
	var g Group
	var description, context sql.NullString
	err := s.db.QueryRow("SELECT id, name, description, context, created_at FROM groups WHERE id = ?", groupID).
		Scan(&g.ID, &g.Name, &description, &context, &g.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	g.Description = nullableString(description)
	g.Context = nullableString(context)

	members, err := s.getGroupMembers(g.ID)
	if err != nil {
		return nil, err
	}
	g.Members = members
	return &g, nil
}

func (s *SQLiteStore) getGroupMembers(groupID string) ([]Member, error) {
	rows, err := s.db.Query(`
        SELECT u.id, u.name, u.alias
        FROM users u
        JOIN user_groups ug ON ug.user_id = u.id
        WHERE ug.group_id = ?
        ORDER BY u.name`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Alias); err != nil {
			return nil, fmt.Errorf("failed to scan member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// User methods
type NewUser struct {
	Name        string
	Alias       string
	Phone       *string
	Role        string // role name, created lazily if unknown
	ReportingTo *string
	GroupIDs    []string
}

func (s *SQLiteStore) CreateUser(u NewUser) (*User, error) {
	var roleID *string
	if u.Role != "" {
		id, err := upsertRole(s.db, u.Role)
		if err != nil {
			return nil, err
		}
		roleID = &id
	}

	id := uuid.NewString()
	now := time.Now()
	_, err := s.db.Exec("INSERT INTO users (id, name, alias, phone, role_id, reporting_to, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, u.Name, u.Alias, u.Phone, roleID, u.ReportingTo, now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	for _, groupID := range u.GroupIDs {
		if _, err := s.db.Exec("INSERT OR IGNORE INTO user_groups (user_id, group_id) VALUES (?, ?)", id, groupID); err != nil {
			return nil, fmt.Errorf("failed to insert group membership: %w", err)
		}
	}

	return s.GetUserByID(id)
}

const userSelect = `
    SELECT u.id, u.name, u.alias, u.phone, u.role_id, r.name, u.reporting_to, m.name,
           u.summarize_keywords, u.prioritize, u.created_at
    FROM users u
    LEFT JOIN roles r ON r.id = u.role_id
    LEFT JOIN users m ON m.id = u.reporting_to`

func (s *SQLiteStore) GetUsers() ([]User, error) {
	rows, err := s.db.Query(userSelect + " ORDER BY u.name")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	for i := range users {
		groups, err := s.getUserGroups(users[i].ID)
		if err != nil {
			return nil, err
		}
		users[i].Groups = groups
	}
	return users, nil
}

// GetUserByID fetches one identity with its superior, role, and group
// memberships resolved.
func (s *SQLiteStore) GetUserByID(userID string) (*User, error) {
	row := s.db.QueryRow(userSelect+" WHERE u.id = ?", userID)
	u, err := scanUser(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, err
	}

	groups, err := s.getUserGroups(u.ID)
	if err != nil {
		return nil, err
	}
	u.Groups = groups
	return u, nil
}

func (s *SQLiteStore) getUserGroups(userID string) ([]Ref, error) {
	rows, err := s.db.Query(`
        SELECT g.id, g.name
        FROM groups g
        JOIN user_groups ug ON ug.group_id = g.id
        WHERE ug.user_id = ?
        ORDER BY g.name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user groups: %w", err)
	}
	defer rows.Close()

	groups := []Ref{}
	for rows.Next() {
		var ref Ref
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("failed to scan user group row: %w", err)
		}
		groups = append(groups, ref)
	}
	return groups, rows.Err()
}

func scanUser(scan func(dest ...any) error) (*User, error) {
	var u User
	var phone, roleID, roleName, reportingTo, reportingToName, keywordsJSON, prioritize sql.NullString
	err := scan(&u.ID, &u.Name, &u.Alias, &phone, &roleID, &roleName, &reportingTo, &reportingToName,
		&keywordsJSON, &prioritize, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan user row: %w", err)
	}
	u.Phone = nullableString(phone)
	u.RoleID = nullableString(roleID)
	u.RoleName = nullableString(roleName)
	u.ReportingTo = nullableString(reportingTo)
	u.ReportingToName = nullableString(reportingToName)
	u.Prioritize = nullableString(prioritize)
	if keywordsJSON.Valid && keywordsJSON.String != "" {
		if err := json.Unmarshal([]byte(keywordsJSON.String), &u.SummarizeKeywords); err != nil {
			log.Printf("Warning: failed to unmarshal summarize_keywords for user %s: %v", u.ID, err)
			u.SummarizeKeywords = nil
		}
	}
	return &u, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
