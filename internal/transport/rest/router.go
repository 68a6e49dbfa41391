package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"classpulse/internal/service"
	"classpulse/internal/transport/rest/handler"
	"classpulse/internal/transport/rest/middleware"
	"classpulse/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService    *service.AuthService
	SessionService *service.SessionService
	CatalogService *service.CatalogService
	WSHub          *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	sessionHandler := handler.NewSessionHandler(c.SessionService)
	catalogHandler := handler.NewCatalogHandler(c.CatalogService)
	wsHandler := ws.NewHandler(c.WSHub, c.SessionService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Live session surface
	r.HandleFunc("/create_session", sessionHandler.Create).Methods("GET")
	r.HandleFunc("/ws", wsHandler.Serve).Methods("GET")

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	v1.HandleFunc("/sessions/{code}", sessionHandler.Get).Methods("GET", "OPTIONS")

	// Instructor routes (require instructor auth)
	instructorRoutes := v1.NewRoute().Subrouter()
	instructorRoutes.Use(authMW.RequireInstructor)

	instructorRoutes.HandleFunc("/instructors", catalogHandler.CreateInstructor).Methods("POST", "OPTIONS")
	instructorRoutes.HandleFunc("/instructors", catalogHandler.ListInstructors).Methods("GET", "OPTIONS")
	instructorRoutes.HandleFunc("/courses", catalogHandler.CreateCourse).Methods("POST", "OPTIONS")
	instructorRoutes.HandleFunc("/courses", catalogHandler.ListCourses).Methods("GET", "OPTIONS")
	instructorRoutes.HandleFunc("/courses/{id}/engagements", catalogHandler.ListEngagements).Methods("GET", "OPTIONS")
	instructorRoutes.HandleFunc("/tags", catalogHandler.CreateTag).Methods("POST", "OPTIONS")
	instructorRoutes.HandleFunc("/tags", catalogHandler.ListTags).Methods("GET", "OPTIONS")
	instructorRoutes.HandleFunc("/sessions/{code}/end", sessionHandler.End).Methods("POST", "OPTIONS")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
