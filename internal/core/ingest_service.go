package core

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/fieldcomms/server/internal/ingest"
	"github.com/fieldcomms/server/internal/store"
)

// IngestService runs the chat ingestion pipeline: reconcile group metadata,
// parse the export, resolve senders, persist messages. One run is one
// SQLite transaction, so a failed run commits nothing.
type IngestService struct {
	dbStore    *store.SQLiteStore
	groupLocks sync.Map // group name -> *sync.Mutex
}

func NewIngestService(db *store.SQLiteStore) *IngestService {
	return &IngestService{dbStore: db}
}

type IngestRequest struct {
	GroupName    string
	ChatFilePath string
	TeamMembers  []ingest.TeamMember
	Hierarchy    []ingest.ReportingPair
	Rules        []ingest.MemberRule
}

type IngestResult struct {
	GroupName     string   `json:"group_name"`
	GroupID       string   `json:"group_id"`
	MessagesSaved int      `json:"messages_saved"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Ingest performs one full ingestion run. Runs against the same group name
// are serialized; concurrent runs would race on the member-list rewrite.
func (s *IngestService) Ingest(req IngestRequest) (*IngestResult, error) {
	if req.GroupName == "" {
		return nil, fmt.Errorf("group name is required")
	}
	// Roster and hierarchy are all-or-nothing: a partially-known roster
	// makes sender resolution unreliable for every message after it.
	for i, m := range req.TeamMembers {
		if m.Name == "" || m.Role == "" || m.Alias == "" {
			return nil, fmt.Errorf("member record %d: missing required fields (name, role, alias)", i+1)
		}
	}
	for i, h := range req.Hierarchy {
		if h.Subordinate == "" {
			return nil, fmt.Errorf("hierarchy record %d: missing subordinate name", i+1)
		}
	}

	lock := s.groupLock(req.GroupName)
	lock.Lock()
	defer lock.Unlock()

	format, err := ingest.DetectFormat(req.ChatFilePath)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(req.ChatFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat file %s: %w", req.ChatFilePath, err)
	}

	tx, err := s.dbStore.BeginIngest()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() // no-op after a successful commit

	result := &IngestResult{GroupName: req.GroupName}

	aliasIndex, err := s.reconcileMetadata(tx, req, result)
	if err != nil {
		return nil, fmt.Errorf("metadata reconciliation failed: %w", err)
	}

	parsed, warnings, err := ingest.Parse(format, string(content))
	if err != nil {
		return nil, fmt.Errorf("chat parsing failed: %w", err)
	}
	result.Warnings = append(result.Warnings, warnings...)

	records := make([]store.Message, 0, len(parsed))
	for _, msg := range parsed {
		rec := store.Message{
			GroupID:     result.GroupID,
			SenderAlias: msg.SenderAlias,
			Body:        msg.Body,
			Timestamp:   msg.Timestamp,
			IsMedia:     msg.IsMedia,
			Language:    msg.Language,
		}
		// An unresolved sender never drops the message; the literal
		// alias is persisted regardless.
		if id, ok := resolveSender(aliasIndex, msg.SenderAlias); ok {
			rec.SenderID = &id
		} else {
			warn := fmt.Sprintf("no roster member with alias %q, message saved unresolved", msg.SenderAlias)
			log.Printf("Warning: %s", warn)
			result.Warnings = append(result.Warnings, warn)
		}
		records = append(records, rec)
	}

	if err := tx.InsertMessages(records); err != nil {
		return nil, fmt.Errorf("message persistence failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	result.MessagesSaved = len(records)
	log.Printf("Ingested %d messages for group %s", result.MessagesSaved, req.GroupName)
	return result, nil
}

// reconcileMetadata upserts group, roles, and users, rewrites the group's
// member set, and wires hierarchy edges. It returns a lowercase alias
// index over the reconciled identities for sender resolution.
func (s *IngestService) reconcileMetadata(tx *store.IngestTx, req IngestRequest, result *IngestResult) (map[string]string, error) {
	groupID, err := tx.UpsertGroup(req.GroupName)
	if err != nil {
		return nil, err
	}
	result.GroupID = groupID

	roleIDs := make(map[string]string)
	for _, m := range req.TeamMembers {
		if _, ok := roleIDs[m.Role]; ok {
			continue
		}
		id, err := tx.UpsertRole(m.Role)
		if err != nil {
			return nil, err
		}
		roleIDs[m.Role] = id
	}

	rulesByName := make(map[string]ingest.MemberRule, len(req.Rules))
	for _, r := range req.Rules {
		rulesByName[r.UserID] = r
	}

	idsByName := make(map[string]string, len(req.TeamMembers))
	aliasIndex := make(map[string]string, len(req.TeamMembers))
	memberIDs := make([]string, 0, len(req.TeamMembers))
	for _, m := range req.TeamMembers {
		up := store.UserUpsert{
			Name:   m.Name,
			Alias:  m.Alias,
			Phone:  m.Phone,
			RoleID: roleIDs[m.Role],
		}
		if rule, ok := rulesByName[m.Name]; ok {
			up.SummarizeKeywords = rule.SummarizeKeywords
			if up.SummarizeKeywords == nil {
				up.SummarizeKeywords = []string{}
			}
			up.Prioritize = rule.Prioritize
			if up.Prioritize == "" {
				up.Prioritize = "medium"
			}
		}

		id, err := tx.UpsertUser(up)
		if err != nil {
			return nil, err
		}
		idsByName[m.Name] = id
		aliasIndex[strings.ToLower(m.Alias)] = id
		memberIDs = append(memberIDs, id)
	}

	if err := tx.ReplaceGroupMembers(groupID, memberIDs); err != nil {
		return nil, err
	}

	// Hierarchy wiring is best-effort per edge; the superior is only ever
	// resolved within the set reconciled above.
	for _, h := range req.Hierarchy {
		subordinateID, ok := idsByName[h.Subordinate]
		if !ok {
			warn := fmt.Sprintf("hierarchy: no roster member named %q, edge skipped", h.Subordinate)
			log.Printf("Warning: %s", warn)
			result.Warnings = append(result.Warnings, warn)
			continue
		}

		var superiorID *string
		if id, ok := idsByName[h.Superior]; ok {
			superiorID = &id
		} else if h.Superior != "" {
			warn := fmt.Sprintf("hierarchy: superior %q of %q not in roster, reporting line cleared", h.Superior, h.Subordinate)
			log.Printf("Warning: %s", warn)
			result.Warnings = append(result.Warnings, warn)
		}

		if err := tx.SetReportingTo(subordinateID, superiorID); err != nil {
			warn := fmt.Sprintf("hierarchy: failed to wire %q: %v", h.Subordinate, err)
			log.Printf("Warning: %s", warn)
			result.Warnings = append(result.Warnings, warn)
		}
	}

	return aliasIndex, nil
}

// resolveSender maps a literal chat alias to a reconciled identity,
// case-insensitively. Best-effort: aliases are not guaranteed unique.
func resolveSender(aliasIndex map[string]string, alias string) (string, bool) {
	id, ok := aliasIndex[strings.ToLower(alias)]
	return id, ok
}

func (s *IngestService) groupLock(name string) *sync.Mutex {
	lock, _ := s.groupLocks.LoadOrStore(name, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
