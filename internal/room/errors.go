package room

import (
	"errors"

	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/game"
)

var (
	ErrRoomNotFound       = errors.New("room not found")
	ErrNotHost            = errors.New("only the host can do that")
	ErrInvalidPlayerCount = errors.New("invalid player count")
	ErrNotInRoom          = errors.New("not a member of this room")
	ErrUnknownAction      = errors.New("unknown action")
	ErrBadPayload         = errors.New("bad payload")
	ErrNoMatch            = errors.New("no match in progress")
	ErrMatchRunning       = errors.New("match already running")
)

// errorCodes maps failures to the stable codes carried by error frames.
var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRoomNotFound, "ROOM_NOT_FOUND"},
	{ErrNotHost, "NOT_HOST"},
	{ErrInvalidPlayerCount, "INVALID_PLAYER_COUNT"},
	{ErrNotInRoom, "NOT_IN_ROOM"},
	{ErrUnknownAction, "UNKNOWN_ACTION"},
	{ErrBadPayload, "BAD_PAYLOAD"},
	{ErrNoMatch, "NOT_YOUR_ACTION"},
	{ErrMatchRunning, "NOT_YOUR_ACTION"},
	{game.ErrNotYourTurn, "NOT_YOUR_TURN"},
	{game.ErrCardNotInHand, "CARD_NOT_IN_HAND"},
	{game.ErrIllegalMove, "ILLEGAL_MOVE"},
	{game.ErrTrickResolving, "ILLEGAL_MOVE"},
	{game.ErrNotYourAction, "NOT_YOUR_ACTION"},
	{game.ErrUnknownPlayer, "NOT_YOUR_ACTION"},
	{game.ErrInvalidBid, "INVALID_BID"},
	{game.ErrInvalidPartners, "INVALID_PARTNERS"},
}

// ErrorCode classifies err; unknown errors are "INTERNAL".
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "INTERNAL"
}
