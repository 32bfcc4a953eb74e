package arena

import "wager-arena/internal/game"

// Event is one outbound message. Type names match the client protocol.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

const (
	EventAvailableGames   = "availableGames"
	EventLobbyUpdate      = "lobbyUpdate"
	EventGameCreated      = "gameCreated"
	EventNewGameAvailable = "newGameAvailable"
	EventGameRemoved      = "gameRemoved"
	EventGameStarted      = "gameStarted"
	EventBoardUpdated     = "boardUpdated"
	EventGameWon          = "gameWon"
	EventGameDraw         = "gameDraw"
	EventPlayerLeft       = "playerLeft"
	EventLeaveGameSuccess = "leaveGameSuccess"
	EventGameError        = "gameError"
)

const (
	ReasonLeft         = "left"
	ReasonDisconnected = "disconnected"

	ForfeitOpponentLeft         = "opponent_left"
	ForfeitOpponentDisconnected = "opponent_disconnected"
)

type AvailableGames struct {
	Games []GameListing `json:"games"`
}

type LobbyUpdate struct {
	Players int `json:"players"`
}

type GameCreated struct {
	SessionID string      `json:"sessionId"`
	Session   SessionView `json:"session"`
}

type GameRemoved struct {
	SessionID string `json:"sessionId"`
}

type GameStarted struct {
	Session SessionView `json:"session"`
}

type LastMove struct {
	Position int       `json:"position"`
	Symbol   game.Mark `json:"symbol"`
	Player   string    `json:"player"`
}

type BoardUpdated struct {
	Session  SessionView `json:"session"`
	LastMove LastMove    `json:"lastMove"`
}

type GameWon struct {
	Session      SessionView `json:"session"`
	Winner       string      `json:"winner"`
	WinnerID     string      `json:"winnerId"`
	WinnerSymbol game.Mark   `json:"winnerSymbol"`
	WinAmount    int64       `json:"winAmount"`
	ByForfeit    bool        `json:"byForfeit,omitempty"`
	Reason       string      `json:"reason,omitempty"`
}

type GameDraw struct {
	Session      SessionView `json:"session"`
	RefundAmount int64       `json:"refundAmount"`
}

type PlayerLeft struct {
	Player  string      `json:"player"`
	Session SessionView `json:"session"`
	Reason  string      `json:"reason,omitempty"`
}

type LeaveGameSuccess struct {
	SessionID string `json:"sessionId"`
}

type GameError struct {
	Code    string `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}
