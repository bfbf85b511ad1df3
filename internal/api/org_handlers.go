package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/fieldcomms/server/internal/store"
	"github.com/go-chi/chi/v5"
)

type CreateGroupRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Context     *string `json:"context,omitempty"`
}

func (h *APIHandler) CreateGroupHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Group name is required", http.StatusBadRequest)
		return
	}

	group, err := h.dbStore.CreateGroup(store.NewGroup{
		Name:        req.Name,
		Description: req.Description,
		Context:     req.Context,
	})
	if err != nil {
		log.Printf("Error creating group %s: %v", req.Name, err)
		http.Error(w, "Failed to create group", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(group)
}

func (h *APIHandler) ListGroupsHandler(w http.ResponseWriter, r *http.Request) {
	groups, err := h.dbStore.GetGroups(r.URL.Query().Get("name"))
	if err != nil {
		log.Printf("Error listing groups: %v", err)
		http.Error(w, "Failed to list groups", http.StatusInternalServerError)
		return
	}
	if groups == nil {
		groups = []store.Group{}
	}
	json.NewEncoder(w).Encode(groups)
}

type CreateUserRequest struct {
	Name        string   `json:"name"`
	Alias       string   `json:"alias"`
	Phone       *string  `json:"phone,omitempty"`
	Role        string   `json:"role,omitempty"`
	ReportingTo *string  `json:"reporting_to,omitempty"`
	GroupIDs    []string `json:"group_ids,omitempty"`
}

func (h *APIHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Alias == "" {
		http.Error(w, "Name and alias are required", http.StatusBadRequest)
		return
	}

	user, err := h.dbStore.CreateUser(store.NewUser{
		Name:        req.Name,
		Alias:       req.Alias,
		Phone:       req.Phone,
		Role:        req.Role,
		ReportingTo: req.ReportingTo,
		GroupIDs:    req.GroupIDs,
	})
	if err != nil {
		log.Printf("Error creating user %s: %v", req.Name, err)
		http.Error(w, "Failed to create user", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.dbStore.GetUsers()
	if err != nil {
		log.Printf("Error listing users: %v", err)
		http.Error(w, "Failed to list users", http.StatusInternalServerError)
		return
	}
	if users == nil {
		users = []store.User{}
	}
	json.NewEncoder(w).Encode(users)
}

func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	user, err := h.dbStore.GetUserByID(userID)
	if err != nil {
		log.Printf("Error getting user %s: %v", userID, err)
		http.Error(w, "Failed to get user", http.StatusInternalServerError)
		return
	}
	if user == nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(user)
}
