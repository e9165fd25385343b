package request

// CreateGameRequest is the request body for creating a game
type CreateGameRequest struct {
	DisplayName string `json:"display_name"`
}

// JoinGameRequest is the request body for joining or rejoining a game
type JoinGameRequest struct {
	DisplayName string `json:"display_name"`
	// RecoveryToken proves ownership of a name already in the game
	RecoveryToken string `json:"recovery_token,omitempty"`
}

// TransferOwnerRequest is the request body for handing over game ownership
type TransferOwnerRequest struct {
	DisplayName string `json:"display_name"`
}
