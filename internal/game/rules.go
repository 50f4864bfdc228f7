package game

import "fmt"

// Play is one card laid on the current trick.
type Play struct {
	PlayerID string `json:"playerId"`
	Card     Card   `json:"card"`
}

func hasSuit(hand []Card, s Suit) bool {
	for _, c := range hand {
		if c.Suit == s {
			return true
		}
	}
	return false
}

// checkPlay validates card against the player's full remaining hand:
// follow the lead suit if possible, otherwise cut with trump if holding any.
func checkPlay(hand []Card, card Card, trick []Play, trump Suit) error {
	if len(trick) == 0 {
		return nil
	}
	lead := trick[0].Card.Suit
	if card.Suit == lead {
		return nil
	}
	if hasSuit(hand, lead) {
		return fmt.Errorf("%w: must follow suit %s", ErrIllegalMove, lead)
	}
	if trump != "" && card.Suit != trump && hasSuit(hand, trump) {
		return fmt.Errorf("%w: must cut with trump %s", ErrIllegalMove, trump)
	}
	return nil
}

// TrickWinner returns the index of the winning play: the highest trump if any
// trump was played, otherwise the highest card of the lead suit.
func TrickWinner(trick []Play, trump Suit) int {
	if len(trick) == 0 {
		return -1
	}
	best := -1
	for i, p := range trick {
		if trump == "" || p.Card.Suit != trump {
			continue
		}
		if best < 0 || p.Card.Rank.Value() > trick[best].Card.Rank.Value() {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	lead := trick[0].Card.Suit
	best = 0
	for i, p := range trick {
		if p.Card.Suit == lead && p.Card.Rank.Value() > trick[best].Card.Rank.Value() {
			best = i
		}
	}
	return best
}

func trickPoints(trick []Play) int {
	total := 0
	for _, p := range trick {
		total += p.Card.Points
	}
	return total
}
