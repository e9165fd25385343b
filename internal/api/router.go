package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/partyroom/internal/api/handler"
	"github.com/mcoot/partyroom/internal/api/middleware"
	"github.com/mcoot/partyroom/internal/services/registry"
	"github.com/mcoot/partyroom/internal/web/stream"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger     *slog.Logger
	Registry   *registry.Registry
	HubManager *stream.HubManager
	// TrustProxyHeaders takes the client origin from X-Forwarded-For
	TrustProxyHeaders bool
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	gameHandler := handler.NewGameHandler(cfg.Registry, cfg.HubManager, cfg.Logger)
	healthHandler := handler.NewHealthHandler(cfg.Registry, cfg.HubManager)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.Registry)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))
	api.Use(middleware.Origin(cfg.TrustProxyHeaders))

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Public game routes
	api.HandleFunc("/games", gameHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/games/{code}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{code}/exists", gameHandler.Exists).Methods(http.MethodGet)
	api.HandleFunc("/games/{code}/players", gameHandler.Players).Methods(http.MethodGet)
	api.HandleFunc("/games/{code}/join", gameHandler.Join).Methods(http.MethodPost)

	// Participant routes (identity must belong to the game)
	games := api.PathPrefix("/games/{code}").Subrouter()
	games.Use(authMiddleware)
	games.HandleFunc("/leave", gameHandler.Leave).Methods(http.MethodPost)
	games.HandleFunc("/start", gameHandler.Start).Methods(http.MethodPost)
	games.HandleFunc("/owner", gameHandler.TransferOwner).Methods(http.MethodPost)
	games.HandleFunc("/events", gameHandler.Events).Methods(http.MethodGet)
	games.HandleFunc("/ws", gameHandler.Socket).Methods(http.MethodGet)

	return r
}
