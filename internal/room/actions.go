package room

import (
	"encoding/json"
	"fmt"

	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/game"
)

// Game action names carried by game-action frames.
const (
	ActionBid           = "BID"
	ActionFinishBidding = "FINISH_BIDDING"
	ActionPickPartners  = "PICK_PARTNERS"
	ActionPlayCard      = "PLAY_CARD"
)

// BidAmount is either a number or one of the words "PASS" and "DONE".
type BidAmount struct {
	Value int
	Pass  bool
	Done  bool
}

func (b *BidAmount) UnmarshalJSON(data []byte) error {
	var word string
	if err := json.Unmarshal(data, &word); err == nil {
		switch word {
		case "PASS":
			*b = BidAmount{Pass: true}
			return nil
		case "DONE":
			*b = BidAmount{Done: true}
			return nil
		}
		return fmt.Errorf("unknown bid word %q", word)
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("bid amount must be a number, PASS or DONE")
	}
	*b = BidAmount{Value: n}
	return nil
}

type bidPayload struct {
	Amount *BidAmount `json:"amount"`
}

type pickPartnersPayload struct {
	Cards []string  `json:"cards"`
	Trump game.Suit `json:"trump"`
}

type playCardPayload struct {
	CardID string `json:"cardId"`
}

// decodeMove turns a game-action frame into an engine move.
func decodeMove(action string, payload json.RawMessage) (game.Move, error) {
	switch action {
	case ActionBid:
		var p bidPayload
		if err := unmarshalPayload(payload, &p); err != nil {
			return game.Move{}, err
		}
		if p.Amount == nil {
			return game.Move{}, fmt.Errorf("%w: missing amount", ErrBadPayload)
		}
		switch {
		case p.Amount.Pass:
			return game.Move{Kind: game.MovePass}, nil
		case p.Amount.Done:
			return game.Move{Kind: game.MoveReady}, nil
		}
		return game.Move{Kind: game.MoveRaise, Amount: p.Amount.Value}, nil
	case ActionFinishBidding:
		return game.Move{Kind: game.MoveFinishBidding}, nil
	case ActionPickPartners:
		var p pickPartnersPayload
		if err := unmarshalPayload(payload, &p); err != nil {
			return game.Move{}, err
		}
		for _, id := range p.Cards {
			if err := checkCardID(id); err != nil {
				return game.Move{}, err
			}
		}
		return game.Move{Kind: game.MovePickPartners, Cards: p.Cards, Trump: p.Trump}, nil
	case ActionPlayCard:
		var p playCardPayload
		if err := unmarshalPayload(payload, &p); err != nil {
			return game.Move{}, err
		}
		if err := checkCardID(p.CardID); err != nil {
			return game.Move{}, err
		}
		return game.Move{Kind: game.MovePlayCard, CardID: p.CardID}, nil
	}
	return game.Move{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

// checkCardID rejects ids that do not name any card, like "" or "X-11".
func checkCardID(id string) error {
	if _, ok := game.ParseCardID(id); !ok {
		return fmt.Errorf("%w: bad card id %q", ErrBadPayload, id)
	}
	return nil
}

func unmarshalPayload(payload json.RawMessage, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty", ErrBadPayload)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}
