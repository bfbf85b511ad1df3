package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Chat ingestion and history
			r.Post("/chat/parse", apiHandler.ParseChatHandler)
			r.Get("/chat/group/{groupID}", apiHandler.GroupMessagesHandler)

			// Org routes
			r.Post("/users", apiHandler.CreateUserHandler)
			r.Get("/users", apiHandler.ListUsersHandler)
			r.Get("/users/{userID}", apiHandler.GetUserHandler)
			r.Post("/groups", apiHandler.CreateGroupHandler)
			r.Get("/groups", apiHandler.ListGroupsHandler)

			// Task routes
			r.Post("/tasks", apiHandler.CreateTaskHandler)
			r.Get("/tasks/user/{userID}", apiHandler.UserTasksHandler)

			// Summarization rule routes
			r.Post("/rules", apiHandler.CreateRuleHandler)
			r.Get("/rules/user/{userID}", apiHandler.UserRulesHandler)
		})
	})

	return r
}
