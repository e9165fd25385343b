package registry

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"

	"github.com/mcoot/partyroom/internal/model"
)

// Identifier generation. Every function here reads or writes the used-sets
// and must be called with r.mu held for writing.

// generateGameCode draws codes until one is not live
func (r *Registry) generateGameCode() model.GameCode {
	for {
		code, err := model.NewGameCode(r.random.String(model.GameCodeLength, model.GameCodeAlphabet))
		if err != nil {
			continue
		}
		if _, used := r.sessions[code]; !used {
			return code
		}
	}
}

// generatePlayerID draws ids until one is not registered
func (r *Registry) generatePlayerID() model.PlayerID {
	for {
		id := model.PlayerID(r.random.UUID())
		if id.IsZero() {
			continue
		}
		if _, used := r.players[id]; !used {
			return id
		}
	}
}

// generateRecoveryToken draws tokens until one is not registered
func (r *Registry) generateRecoveryToken() model.RecoveryToken {
	for {
		token := model.RecoveryToken(r.random.UUID())
		if token.IsZero() {
			continue
		}
		if _, used := r.tokens[token]; !used {
			return token
		}
	}
}

// reserveCredentials mints an identity and a recovery token for a participant of code
// and records both in the used-sets before returning
func (r *Registry) reserveCredentials(code model.GameCode) Registration {
	id := r.generatePlayerID()
	r.players[id] = code
	token := r.generateRecoveryToken()
	r.tokens[token] = code
	return Registration{PlayerID: id, RecoveryToken: token, Code: code}
}

// releaseCredentials drops every identity and token of the session from the used-sets
func (r *Registry) releaseCredentials(s *model.Session) {
	for _, p := range s.Participants {
		delete(r.players, p.ID)
		delete(r.tokens, p.RecoveryToken)
	}
}

// fingerprintOrigin hashes a client origin so raw addresses are never retained
func fingerprintOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(origin))
	return hex.EncodeToString(sum[:16])
}
