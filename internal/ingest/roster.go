package ingest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// TeamMember is one roster record: an organizational identity as supplied
// by the group's member file.
type TeamMember struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Alias string `json:"alias"`
	Phone string `json:"phone,omitempty"`
}

// MemberRule is the optional per-member summarization preference that can
// accompany an ingestion run.
type MemberRule struct {
	UserID            string   `json:"userId"`
	SummarizeKeywords []string `json:"summarizeKeywords"`
	Prioritize        string   `json:"prioritize"`
}

// ReportingPair is one edge of the reporting hierarchy: Subordinate
// reports to Superior.
type ReportingPair struct {
	Subordinate string `json:"userId"`
	Superior    string `json:"reportingTo"`
}

// LoadRoster reads a delimited member file. A record missing any of
// name, role, or alias fails the whole roster: a partially-known roster
// makes sender resolution unreliable for every message after it.
func LoadRoster(path string) ([]TeamMember, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read members file %s: %w", path, err)
	}
	return ParseRoster(string(content))
}

// ParseRoster parses CSV member records with a header row. The name column
// may be headed either "name" or "full_name".
func ParseRoster(content string) ([]TeamMember, error) {
	r := csv.NewReader(strings.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse members file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	cols := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		cols[strings.TrimSpace(h)] = i
	}

	members := make([]TeamMember, 0, len(records)-1)
	for i, rec := range records[1:] {
		field := func(name string) string {
			idx, ok := cols[name]
			if !ok || idx >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[idx])
		}

		name := field("name")
		if name == "" {
			name = field("full_name")
		}
		role, alias := field("role"), field("alias")
		if name == "" || role == "" || alias == "" {
			return nil, fmt.Errorf("member record %d: missing required fields (need name or full_name, role, alias)", i+1)
		}

		members = append(members, TeamMember{
			Name:  name,
			Role:  role,
			Alias: alias,
			Phone: field("phone"),
		})
	}

	return members, nil
}

// LoadHierarchy reads a hierarchy file and flattens it to reporting pairs.
func LoadHierarchy(path string) ([]ReportingPair, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy file %s: %w", path, err)
	}
	return FlattenHierarchy(content)
}

type hierarchyNode struct {
	Name        string          `json:"name"`
	UserID      string          `json:"userId"`
	ReportingTo string          `json:"reportingTo"`
	Reports     []hierarchyNode `json:"reports"`
}

// FlattenHierarchy accepts either shape of hierarchy document — a flat
// list of {userId, reportingTo} records or a nested {name, reports: [...]}
// tree — and emits one pair per parent/child edge. Tree roots with no
// parent emit no pair. A record missing its name fails the whole batch.
func FlattenHierarchy(raw []byte) ([]ReportingPair, error) {
	var nodes []hierarchyNode
	if err := json.Unmarshal(raw, &nodes); err != nil {
		return nil, fmt.Errorf("failed to parse hierarchy: %w", err)
	}

	var pairs []ReportingPair
	for i, n := range nodes {
		if err := flattenNode(n, "", &pairs); err != nil {
			return nil, fmt.Errorf("hierarchy record %d: %w", i+1, err)
		}
	}
	return pairs, nil
}

func flattenNode(n hierarchyNode, parent string, out *[]ReportingPair) error {
	name := strings.TrimSpace(n.Name)
	if name == "" {
		name = strings.TrimSpace(n.UserID)
	}
	if name == "" {
		return errors.New("missing name or userId")
	}

	if parent != "" {
		*out = append(*out, ReportingPair{Subordinate: name, Superior: parent})
	} else if superior := strings.TrimSpace(n.ReportingTo); superior != "" {
		*out = append(*out, ReportingPair{Subordinate: name, Superior: superior})
	}

	for _, child := range n.Reports {
		if err := flattenNode(child, name, out); err != nil {
			return err
		}
	}
	return nil
}
