package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fieldcomms/server/internal/core"
	"github.com/fieldcomms/server/internal/ingest"
	"github.com/fieldcomms/server/internal/store"
	"github.com/go-chi/chi/v5"
)

type ParseChatRequest struct {
	GroupName string `json:"groupName"`
	FilePath  string `json:"filePath"`

	// Roster and hierarchy may come inline or from server-local files.
	TeamMembers       []ingest.TeamMember `json:"teamMembers,omitempty"`
	MembersFilePath   string              `json:"membersFilePath,omitempty"`
	Hierarchy         json.RawMessage     `json:"hierarchy,omitempty"`
	HierarchyFilePath string              `json:"hierarchyFilePath,omitempty"`

	Rules []ingest.MemberRule `json:"rules,omitempty"`
}

func (h *APIHandler) ParseChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ParseChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.GroupName == "" || req.FilePath == "" {
		http.Error(w, "groupName and filePath are required", http.StatusBadRequest)
		return
	}

	members := req.TeamMembers
	if members == nil && req.MembersFilePath != "" {
		loaded, err := ingest.LoadRoster(req.MembersFilePath)
		if err != nil {
			http.Error(w, "Failed to load members: "+err.Error(), http.StatusBadRequest)
			return
		}
		members = loaded
	}

	var hierarchy []ingest.ReportingPair
	switch {
	case len(req.Hierarchy) > 0:
		pairs, err := ingest.FlattenHierarchy(req.Hierarchy)
		if err != nil {
			http.Error(w, "Failed to parse hierarchy: "+err.Error(), http.StatusBadRequest)
			return
		}
		hierarchy = pairs
	case req.HierarchyFilePath != "":
		pairs, err := ingest.LoadHierarchy(req.HierarchyFilePath)
		if err != nil {
			http.Error(w, "Failed to load hierarchy: "+err.Error(), http.StatusBadRequest)
			return
		}
		hierarchy = pairs
	}

	result, err := h.ingestService.Ingest(core.IngestRequest{
		GroupName:    req.GroupName,
		ChatFilePath: req.FilePath,
		TeamMembers:  members,
		Hierarchy:    hierarchy,
		Rules:        req.Rules,
	})
	if err != nil {
		log.Printf("Parse error for group %s: %v", req.GroupName, err)
		http.Error(w, "Failed to parse chat data: "+err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"message": "Successfully parsed and saved data for " + req.GroupName,
		"result":  result,
	})
}

func (h *APIHandler) GroupMessagesHandler(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	group, err := h.dbStore.GetGroupByID(groupID)
	if err != nil {
		log.Printf("Error fetching group %s: %v", groupID, err)
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}
	if group == nil {
		http.Error(w, "Group not found", http.StatusNotFound)
		return
	}

	messages, err := h.dbStore.GetMessagesByGroup(groupID)
	if err != nil {
		log.Printf("Error fetching messages for group %s: %v", groupID, err)
		http.Error(w, "Failed to fetch messages", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	json.NewEncoder(w).Encode(messages)
}
