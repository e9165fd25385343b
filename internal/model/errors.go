package model

import "errors"

// Common errors used across the application
var (
	// Input errors
	ErrInvalidGameCode    = errors.New("invalid game code")
	ErrInvalidDisplayName = errors.New("invalid display name")

	// Lookup errors
	ErrGameNotFound   = errors.New("game does not exist")
	ErrPlayerNotFound = errors.New("player not found")

	// Conflicts
	ErrNameTaken          = errors.New("name is already taken")
	ErrGameAlreadyStarted = errors.New("game has already started")

	// Permission errors
	ErrNotOwner = errors.New("player is not the game master")
)
