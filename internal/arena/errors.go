package arena

import "errors"

var (
	ErrInvalidPayload    = errors.New("invalid_payload")
	ErrUnknownCommand    = errors.New("unknown_command")
	ErrSessionIDRequired = errors.New("session_id_required")
	ErrPositionRequired  = errors.New("position_required")
	ErrInvalidWager      = errors.New("invalid_wager")

	ErrSessionNotFound = errors.New("session_not_found")

	ErrNotJoinable       = errors.New("session_not_joinable")
	ErrSessionFull       = errors.New("session_full")
	ErrAlreadyInSession  = errors.New("already_in_session")
	ErrAlreadyWaiting    = errors.New("already_waiting")
	ErrSessionConflict   = errors.New("session_conflict")
	ErrNotPlaying        = errors.New("session_not_playing")
	ErrNotYourTurn       = errors.New("not_your_turn")
	ErrInvalidMove       = errors.New("invalid_move")
	ErrNotAPlayer        = errors.New("not_a_player")
	ErrInvalidTransition = errors.New("invalid_transition")

	ErrInsufficientFunds = errors.New("insufficient_funds")
	ErrCreatorUnfunded   = errors.New("creator_insufficient_funds")

	ErrStakeFailed = errors.New("stake_failed")
	ErrInternal    = errors.New("internal_error")
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindStateConflict     Kind = "state_conflict"
	KindNotFound          Kind = "not_found"
	KindFundsInsufficient Kind = "funds_insufficient"
	KindInternal          Kind = "internal"
)

func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrSessionIDRequired),
		errors.Is(err, ErrPositionRequired),
		errors.Is(err, ErrInvalidWager):
		return KindValidation
	case errors.Is(err, ErrSessionNotFound):
		return KindNotFound
	case errors.Is(err, ErrNotJoinable),
		errors.Is(err, ErrSessionFull),
		errors.Is(err, ErrAlreadyInSession),
		errors.Is(err, ErrAlreadyWaiting),
		errors.Is(err, ErrSessionConflict),
		errors.Is(err, ErrCreatorUnfunded),
		errors.Is(err, ErrNotPlaying),
		errors.Is(err, ErrNotYourTurn),
		errors.Is(err, ErrInvalidMove),
		errors.Is(err, ErrNotAPlayer),
		errors.Is(err, ErrInvalidTransition):
		return KindStateConflict
	case errors.Is(err, ErrInsufficientFunds):
		return KindFundsInsufficient
	default:
		return KindInternal
	}
}

var errorMessages = map[error]string{
	ErrInvalidPayload:    "Invalid payload",
	ErrUnknownCommand:    "Unknown event",
	ErrSessionIDRequired: "Game ID is required",
	ErrPositionRequired:  "Position is required",
	ErrInvalidWager:      "Wager must be a positive integer",
	ErrSessionNotFound:   "Game not found",
	ErrNotJoinable:       "Game already started or finished",
	ErrSessionFull:       "Game is full",
	ErrAlreadyInSession:  "You are already in this game",
	ErrAlreadyWaiting:    "You already have a game waiting for players",
	ErrSessionConflict:   "Could not open the game, please retry",
	ErrCreatorUnfunded:   "The game creator can no longer cover the wager; the game was closed",
	ErrNotPlaying:        "Game not in playing state",
	ErrNotYourTurn:       "Not your turn",
	ErrInvalidMove:       "Invalid move",
	ErrNotAPlayer:        "You are not a player in this game",
	ErrInvalidTransition: "Action not allowed in the current game state",
	ErrInsufficientFunds: "Insufficient funds",
	ErrStakeFailed:       "Could not collect wagers, please retry",
}

// ErrorEvent converts err into the gameError sent to the acting connection.
// Internal faults are reported with a generic message.
func ErrorEvent(err error) Event {
	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			return Event{Type: EventGameError, Data: GameError{Code: sentinel.Error(), Kind: KindOf(err), Message: msg}}
		}
	}
	return Event{Type: EventGameError, Data: GameError{Code: ErrInternal.Error(), Kind: KindInternal, Message: "An internal error occurred"}}
}
