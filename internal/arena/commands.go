package arena

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Inbound command names.
const (
	CmdJoinLobby  = "joinLobby"
	CmdCreateGame = "createGame"
	CmdJoinGame   = "joinGame"
	CmdPlayMove   = "playMove"
	CmdLeaveGame  = "leaveGame"
)

// Command is a decoded and validated client request.
type Command struct {
	Type      string
	SessionID string
	Position  int
	Wager     int64
}

type rawCommand struct {
	SessionID   *string      `json:"sessionId"`
	Position    *json.Number `json:"position"`
	WagerAmount *json.Number `json:"wagerAmount"`
}

// DecodeCommand parses the payload of an inbound event. Every returned error
// is a validation error.
func DecodeCommand(typ string, data json.RawMessage) (Command, error) {
	cmd := Command{Type: typ}
	var raw rawCommand
	if len(bytes.TrimSpace(data)) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return cmd, ErrInvalidPayload
		}
	}

	switch typ {
	case CmdJoinLobby:
		return cmd, nil
	case CmdCreateGame:
		if raw.WagerAmount == nil {
			return cmd, ErrInvalidWager
		}
		w, err := strconv.ParseInt(raw.WagerAmount.String(), 10, 64)
		if err != nil || w <= 0 {
			return cmd, ErrInvalidWager
		}
		cmd.Wager = w
		return cmd, nil
	case CmdJoinGame, CmdLeaveGame, CmdPlayMove:
		if raw.SessionID == nil || strings.TrimSpace(*raw.SessionID) == "" {
			return cmd, ErrSessionIDRequired
		}
		cmd.SessionID = strings.TrimSpace(*raw.SessionID)
		if typ != CmdPlayMove {
			return cmd, nil
		}
		if raw.Position == nil {
			return cmd, ErrPositionRequired
		}
		pos, err := strconv.Atoi(raw.Position.String())
		if err != nil {
			return cmd, ErrInvalidPayload
		}
		cmd.Position = pos
		return cmd, nil
	default:
		return cmd, ErrUnknownCommand
	}
}
