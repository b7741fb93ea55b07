package entity

// Snapshot - the single serialized form of a game, used for responses and broadcasts alike.
type Snapshot struct {
	GameID      string `json:"game_id"`
	Board       Board  `json:"board"`
	CurrentTurn Mark   `json:"current_turn"`
	Status      Status `json:"status"`
	Winner      *Mark  `json:"winner"`
	PlayerCount int    `json:"player_count"`
}

// IsDraw - finished with no completed line.
func (that Snapshot) IsDraw() bool {
	return that.Status == StatusFinished && that.Winner == nil
}

// PlayerSnapshot - a snapshot plus the credential issued to the caller.
type PlayerSnapshot struct {
	Snapshot
	PlayerID string `json:"player_id"`
}
