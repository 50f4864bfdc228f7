package room

import (
	"errors"

	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/game"
)

// Outbound message types.
const (
	MsgRoomCreated   = "room-created"
	MsgRoomJoined    = "room-joined"
	MsgUpdatePlayers = "update-players"
	MsgGameState     = "game-state"
	MsgTrickWinner   = "trick-winner"
	MsgError         = "error"
)

// Message is one outbound frame addressed to a single participant.
type Message struct {
	Type    string
	Payload any
}

// Notifier delivers messages to connected participants. Implementations must
// not block and must keep per-participant ordering.
type Notifier interface {
	Send(participantID string, msg Message)
}

type RoomCodePayload struct {
	RoomCode string `json:"roomCode"`
}

type PlayerEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Host bool   `json:"host,omitempty"`
}

type GameStatePayload struct {
	RoomCode string `json:"roomCode"`
	game.View
}

type TrickWinnerPayload struct {
	WinnerID   string `json:"winnerId"`
	WinnerName string `json:"winnerName"`
	Points     int    `json:"points"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	// Leave tells the client to drop its room view.
	Leave bool `json:"leave,omitempty"`
}

// ErrorMessage builds the error frame reported to the originator of a failed action.
func ErrorMessage(err error) Message {
	return Message{Type: MsgError, Payload: ErrorPayload{
		Message: err.Error(),
		Code:    ErrorCode(err),
		Leave:   errors.Is(err, ErrRoomNotFound),
	}}
}
