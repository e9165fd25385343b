package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/partyroom/internal/api/apierr"
	"github.com/mcoot/partyroom/internal/model"
)

type contextKey string

const (
	playerContextKey contextKey = "player"
	originContextKey contextKey = "origin"
)

// PlayerCookie holds the player identity for browser clients
const PlayerCookie = "player_id"

// Player is the authenticated caller
type Player struct {
	ID   model.PlayerID
	Code model.GameCode
}

// PlayerLookup resolves an identity to its session
type PlayerLookup interface {
	Lookup(id model.PlayerID) (model.GameCode, error)
}

// Auth creates authentication middleware. The identity must belong to a live session and,
// when the route has a {code} variable, to that session.
func Auth(players PlayerLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			id, err := model.ParsePlayerID(token)
			if err != nil {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			code, err := players.Lookup(id)
			if err != nil {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			if raw, ok := mux.Vars(r)["code"]; ok && raw != code.String() {
				apierr.WriteError(w, apierr.NewForbiddenError())
				return
			}

			ctx := context.WithValue(r.Context(), playerContextKey, &Player{ID: id, Code: code})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the player identity from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie(PlayerCookie)
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetPlayer returns the authenticated player from the request context
func GetPlayer(ctx context.Context) *Player {
	player, _ := ctx.Value(playerContextKey).(*Player)
	return player
}

// MustGetPlayer returns the authenticated player or panics
func MustGetPlayer(ctx context.Context) *Player {
	player := GetPlayer(ctx)
	if player == nil {
		panic("no player in context - auth middleware not applied?")
	}
	return player
}
