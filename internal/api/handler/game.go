package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/mcoot/partyroom/internal/api/middleware"
	"github.com/mcoot/partyroom/internal/api/request"
	"github.com/mcoot/partyroom/internal/api/response"
	"github.com/mcoot/partyroom/internal/model"
	"github.com/mcoot/partyroom/internal/services/registry"
	"github.com/mcoot/partyroom/internal/web/stream"
)

// RecoveryCookie holds the recovery token for browser clients
const RecoveryCookie = "recovery_token"

// GameHandler handles game-related endpoints
type GameHandler struct {
	registry   *registry.Registry
	hubManager *stream.HubManager
	logger     *slog.Logger

	mu      sync.Mutex
	streams map[model.PlayerID]int // open streams per player
}

// NewGameHandler creates a new game handler
func NewGameHandler(registry *registry.Registry, hubManager *stream.HubManager, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		registry:   registry,
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "game-handler")),
		streams:    make(map[model.PlayerID]int),
	}
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	reg, err := h.registry.CreateSession(r.Context(), req.DisplayName, middleware.GetOrigin(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}

	setCredentials(w, reg)
	response.JSON(w, http.StatusCreated, response.RegistrationFromModel(reg))
}

// Get handles GET /api/v1/games/{code}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	session, err := h.registry.Snapshot(code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(&session))
}

// Exists handles GET /api/v1/games/{code}/exists.
// A malformed code simply does not exist.
func (h *GameHandler) Exists(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	exists := err == nil && h.registry.SessionExists(code)
	response.JSON(w, http.StatusOK, response.Exists{Exists: exists})
}

// Players handles GET /api/v1/games/{code}/players
func (h *GameHandler) Players(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	names, err := h.registry.PlayersInGame(code)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Players{Players: names})
}

// Join handles POST /api/v1/games/{code}/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	code, err := pathCode(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.JoinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	// Browsers carry the token in a cookie
	rawToken := req.RecoveryToken
	if rawToken == "" {
		if cookie, err := r.Cookie(RecoveryCookie); err == nil {
			rawToken = cookie.Value
		}
	}

	join := registry.JoinRequest{
		DisplayName: req.DisplayName,
		Origin:      middleware.GetOrigin(r.Context()),
	}
	if rawToken != "" {
		token, err := model.ParseRecoveryToken(rawToken)
		if err != nil {
			WriteError(w, NewInvalidRequestError("Invalid recovery token"))
			return
		}
		join.RecoveryToken = token
	}

	reg, err := h.registry.JoinSession(r.Context(), code, join)
	if err != nil {
		WriteError(w, err)
		return
	}

	setCredentials(w, reg)
	response.JSON(w, http.StatusOK, response.RegistrationFromModel(reg))
}

// Leave handles POST /api/v1/games/{code}/leave
func (h *GameHandler) Leave(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	outcome := h.registry.Leave(r.Context(), player.ID)
	h.logger.DebugContext(r.Context(), "player left",
		slog.String("code", player.Code.String()),
		slog.String("outcome", outcome.String()))

	response.JSON(w, http.StatusOK, response.Leave{Outcome: outcome.String()})
}

// Start handles POST /api/v1/games/{code}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	if err := h.registry.StartSession(r.Context(), player.ID); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// TransferOwner handles POST /api/v1/games/{code}/owner
func (h *GameHandler) TransferOwner(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.TransferOwnerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("Invalid request body"))
		return
	}

	if err := h.registry.TransferOwner(r.Context(), player.ID, req.DisplayName); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Events handles GET /api/v1/games/{code}/events as a server-sent event stream
func (h *GameHandler) Events(w http.ResponseWriter, r *http.Request) {
	h.serveStream(w, r, func(client *stream.Client) {
		stream.ServeSSE(w, r, client)
	})
}

// Socket handles GET /api/v1/games/{code}/ws as a websocket stream
func (h *GameHandler) Socket(w http.ResponseWriter, r *http.Request) {
	h.serveStream(w, r, func(client *stream.Client) {
		stream.ServeWS(w, r, client, h.logger)
	})
}

// serveStream marks the player connected for as long as at least one of their streams is open.
// When the last one closes the disconnect protocol runs.
func (h *GameHandler) serveStream(w http.ResponseWriter, r *http.Request, serve func(*stream.Client)) {
	player := middleware.MustGetPlayer(r.Context())
	// the request context is already cancelled once the client has gone
	ctx := context.WithoutCancel(r.Context())

	if err := h.openStream(r.Context(), player.ID); err != nil {
		WriteError(w, err)
		return
	}

	client := h.hubManager.Attach(player.Code, player.ID)
	if !h.registry.SessionExists(player.Code) {
		// closed while we were setting up; do not leave an orphaned hub behind
		client.Close()
		h.hubManager.RemoveHub(player.Code)
		h.closeStream(ctx, player.ID)
		WriteError(w, model.ErrGameNotFound)
		return
	}

	serve(client)

	if outcome, last := h.closeStream(ctx, player.ID); last {
		h.logger.DebugContext(ctx, "stream closed",
			slog.String("code", player.Code.String()),
			slog.String("outcome", outcome.String()))
	}
}

// openStream counts a new stream and marks the player connected.
// h.mu is held across the registry call so a concurrent closeStream cannot
// disconnect the player between the two.
func (h *GameHandler) openStream(ctx context.Context, id model.PlayerID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.registry.MarkConnected(ctx, id); err != nil {
		return err
	}
	h.streams[id]++
	return nil
}

// closeStream uncounts a stream. When it was the player's last one the player
// is disconnected, still under h.mu, and last is true.
func (h *GameHandler) closeStream(ctx context.Context, id model.PlayerID) (outcome registry.Outcome, last bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.streams[id]--
	if h.streams[id] > 0 {
		return outcome, false
	}
	delete(h.streams, id)
	return h.registry.Disconnect(ctx, id), true
}

func pathCode(r *http.Request) (model.GameCode, error) {
	return model.ParseGameCode(mux.Vars(r)["code"])
}

func setCredentials(w http.ResponseWriter, reg *registry.Registration) {
	response.SetCookie(w, middleware.PlayerCookie, reg.PlayerID.String())
	response.SetCookie(w, RecoveryCookie, reg.RecoveryToken.String())
}
