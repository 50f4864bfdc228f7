package game

import "errors"

var (
	ErrNotYourTurn        = errors.New("not your turn")
	ErrCardNotInHand      = errors.New("card not in hand")
	ErrIllegalMove        = errors.New("illegal move")
	ErrNotYourAction      = errors.New("action not allowed now")
	ErrTrickResolving     = errors.New("trick is being resolved")
	ErrInvalidBid         = errors.New("invalid bid")
	ErrInvalidPartners    = errors.New("invalid partner selection")
	ErrUnknownPlayer      = errors.New("player not in this game")
	ErrUnsupportedPlayers = errors.New("unsupported player count")
)
