package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/fieldcomms/server/internal/store"
	"github.com/go-chi/chi/v5"
)

type CreateTaskRequest struct {
	TaskText         string     `json:"task_text"`
	AssignedBy       *string    `json:"assigned_by,omitempty"`
	AssignedTo       *string    `json:"assigned_to,omitempty"`
	Status           string     `json:"status,omitempty"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	MessageID        *string    `json:"message_id,omitempty"`
	GroupID          *string    `json:"group_id,omitempty"`
	CompletionSignal *string    `json:"completion_signal,omitempty"`
}

func (h *APIHandler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.TaskText == "" {
		http.Error(w, "Task text is required", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case "", "open", "in progress", "completed":
	default:
		http.Error(w, "Status must be one of: open, in progress, completed", http.StatusBadRequest)
		return
	}

	task, err := h.dbStore.CreateTask(store.NewTask{
		TaskText:         req.TaskText,
		AssignedBy:       req.AssignedBy,
		AssignedTo:       req.AssignedTo,
		Status:           req.Status,
		Deadline:         req.Deadline,
		MessageID:        req.MessageID,
		GroupID:          req.GroupID,
		CompletionSignal: req.CompletionSignal,
	})
	if err != nil {
		log.Printf("Error creating task: %v", err)
		http.Error(w, "Failed to create task", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

func (h *APIHandler) UserTasksHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	tasks, err := h.dbStore.GetTasksByUser(userID)
	if err != nil {
		log.Printf("Error fetching tasks for user %s: %v", userID, err)
		http.Error(w, "Failed to fetch tasks", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	json.NewEncoder(w).Encode(tasks)
}

type CreateRuleRequest struct {
	UserID   string `json:"user_id"`
	GroupID  string `json:"group_id"`
	RuleText string `json:"rule_text"`
	RuleKind string `json:"rule_kind,omitempty"`
	Priority int    `json:"priority,omitempty"`
}

func (h *APIHandler) CreateRuleHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" || req.GroupID == "" || req.RuleText == "" {
		http.Error(w, "user_id, group_id and rule_text are required", http.StatusBadRequest)
		return
	}
	switch req.RuleKind {
	case "", "bullet", "narrative":
	default:
		http.Error(w, "Rule kind must be one of: bullet, narrative", http.StatusBadRequest)
		return
	}

	rule, err := h.dbStore.CreateRule(store.NewRule{
		UserID:   req.UserID,
		GroupID:  req.GroupID,
		RuleText: req.RuleText,
		RuleKind: req.RuleKind,
		Priority: req.Priority,
	})
	if err != nil {
		log.Printf("Error creating rule for user %s: %v", req.UserID, err)
		http.Error(w, "Failed to create rule", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rule)
}

func (h *APIHandler) UserRulesHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	rules, err := h.dbStore.GetRulesByUser(userID)
	if err != nil {
		log.Printf("Error fetching rules for user %s: %v", userID, err)
		http.Error(w, "Failed to fetch rules", http.StatusInternalServerError)
		return
	}
	if rules == nil {
		rules = []store.SummarizationRule{}
	}
	json.NewEncoder(w).Encode(rules)
}
