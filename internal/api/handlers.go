package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/fieldcomms/server/internal/auth"
	"github.com/fieldcomms/server/internal/core"
	"github.com/fieldcomms/server/internal/store"
)

type APIHandler struct {
	dbStore       *store.SQLiteStore
	ingestService *core.IngestService
}

func NewAPIHandler(db *store.SQLiteStore, ingest *core.IngestService) *APIHandler {
	return &APIHandler{dbStore: db, ingestService: ingest}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		username, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		account, err := h.dbStore.GetAccountByUsername(username)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for account %s: %v", username, err)
			http.Error(w, "Failed to process account identity", http.StatusInternalServerError)
			return
		}
		if account == nil {
			http.Error(w, "Account not found", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type SignupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for account %s: %v", req.Username, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	account, err := h.dbStore.CreateAccount(req.Username, hashedPassword)
	if err != nil {
		log.Printf("Error creating account %s: %v", req.Username, err)
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(account)
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Username == "" || req.Password == "" {
		http.Error(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	account, err := h.dbStore.GetAccountByUsername(req.Username)
	if err != nil {
		log.Printf("Error getting account %s: %v", req.Username, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if account == nil || !auth.CheckPasswordHash(req.Password, account.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(req.Username)
	if err != nil {
		log.Printf("Error generating JWT for account %s: %v", req.Username, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}
