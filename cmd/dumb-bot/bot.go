package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"

	"wager-arena/internal/arena"
	"wager-arena/internal/config"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sessionPayload struct {
	Session arena.SessionView `json:"session"`
}

// bot is the decision side of the client. It never touches the network so
// it can be driven frame by frame.
type bot struct {
	userID string
	wager  int64
	limit  int
	rnd    *rand.Rand

	sessionID string
	played    int
	won       int
	fatal     error
}

func newBot(userID string, wager int64, limit int, seed int64) *bot {
	return &bot{userID: userID, wager: wager, limit: limit, rnd: rand.New(rand.NewSource(seed))}
}

func (b *bot) start() []frame {
	return []frame{{Type: arena.CmdJoinLobby}}
}

func (b *bot) done() bool {
	return b.limit > 0 && b.played >= b.limit && b.sessionID == ""
}

func (b *bot) create() frame {
	return frame{Type: arena.CmdCreateGame, Data: map[string]any{"wagerAmount": b.wager}}
}

func (b *bot) handle(data []byte) ([]frame, error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch msg.Type {
	case arena.EventAvailableGames:
		var p arena.AvailableGames
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, err
		}
		if b.sessionID != "" {
			return nil, nil
		}
		for _, g := range p.Games {
			if g.CreatorID != b.userID {
				b.sessionID = g.SessionID
				return []frame{{Type: arena.CmdJoinGame, Data: map[string]any{"sessionId": g.SessionID}}}, nil
			}
		}
		return []frame{b.create()}, nil

	case arena.EventNewGameAvailable:
		var g arena.GameListing
		if err := json.Unmarshal(msg.Data, &g); err != nil {
			return nil, err
		}
		if b.sessionID != "" || g.CreatorID == b.userID {
			return nil, nil
		}
		b.sessionID = g.SessionID
		return []frame{{Type: arena.CmdJoinGame, Data: map[string]any{"sessionId": g.SessionID}}}, nil

	case arena.EventGameCreated:
		var p arena.GameCreated
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, err
		}
		b.sessionID = p.SessionID
		log.Info().Str("session_id", p.SessionID).Msg("game created; waiting for opponent")
		return nil, nil

	case arena.EventGameStarted, arena.EventBoardUpdated:
		var p sessionPayload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, err
		}
		b.sessionID = p.Session.ID
		if p.Session.Status != arena.StatusPlaying || p.Session.CurrentTurn != b.userID {
			return nil, nil
		}
		pos, ok := b.pickMove(p.Session.Board)
		if !ok {
			return nil, nil
		}
		return []frame{{Type: arena.CmdPlayMove, Data: map[string]any{"sessionId": p.Session.ID, "position": pos}}}, nil

	case arena.EventGameWon:
		var p arena.GameWon
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, err
		}
		if p.WinnerID == b.userID {
			b.won++
		}
		log.Info().Str("winner", p.Winner).Int64("amount", p.WinAmount).Bool("forfeit", p.ByForfeit).Msg("game won")
		return b.next(), nil

	case arena.EventGameDraw:
		log.Info().Str("session_id", b.sessionID).Msg("game drawn")
		return b.next(), nil

	case arena.EventGameRemoved:
		var p arena.GameRemoved
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			return nil, err
		}
		if p.SessionID == b.sessionID {
			b.sessionID = ""
			return []frame{b.create()}, nil
		}
		return nil, nil

	case arena.EventGameError:
		var p arena.GameError
		_ = json.Unmarshal(msg.Data, &p)
		log.Warn().Str("code", p.Code).Str("message", p.Message).Msg("arena error")
		if p.Code == arena.ErrInsufficientFunds.Error() {
			b.fatal = fmt.Errorf("bot cannot cover wager %d", b.wager)
			return nil, nil
		}
		if b.sessionID != "" && joinFailed[p.Code] {
			b.sessionID = ""
			return []frame{b.create()}, nil
		}
		if b.sessionID == "" && p.Code == arena.ErrSessionConflict.Error() {
			return []frame{b.create()}, nil
		}
		return nil, nil
	}
	return nil, nil
}

// joinFailed lists the codes after which the bot's target session is gone.
var joinFailed = map[string]bool{
	arena.ErrSessionNotFound.Error(): true,
	arena.ErrNotJoinable.Error():     true,
	arena.ErrSessionFull.Error():     true,
	arena.ErrStakeFailed.Error():     true,
	arena.ErrCreatorUnfunded.Error(): true,
}

// next is called when the current session ends.
func (b *bot) next() []frame {
	b.sessionID = ""
	b.played++
	if b.limit > 0 && b.played >= b.limit {
		return nil
	}
	return []frame{b.create()}
}

func (b *bot) pickMove(board []*string) (int, bool) {
	var free []int
	for i, cell := range board {
		if cell == nil {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return 0, false
	}
	return free[b.rnd.Intn(len(free))], true
}

func dial(ctx context.Context, cfg config.BotConfig) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("X-User-ID", cfg.UserID)
	header.Set("X-User-Name", cfg.UserName)
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, cfg.WSURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", cfg.WSURL, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", cfg.WSURL, err)
	}
	return conn, nil
}

func writeFrames(conn *websocket.Conn, frames []frame) error {
	for _, f := range frames {
		if err := conn.WriteJSON(f); err != nil {
			return fmt.Errorf("write %s: %w", f.Type, err)
		}
	}
	return nil
}
