package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// Suit is one of the four French suits, encoded as a single letter on the wire.
type Suit string

const (
	Hearts   Suit = "H"
	Diamonds Suit = "D"
	Clubs    Suit = "C"
	Spades   Suit = "S"
)

// Suits lists the suits in deck generation order.
var Suits = []Suit{Hearts, Diamonds, Clubs, Spades}

// Valid reports whether s is one of the four suits.
func (s Suit) Valid() bool {
	switch s {
	case Hearts, Diamonds, Clubs, Spades:
		return true
	}
	return false
}

// Rank is a card rank, "2" through "A".
type Rank string

// Ranks lists ranks from lowest to highest.
var Ranks = []Rank{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}

var rankVal = map[Rank]int{
	"2": 2, "3": 3, "4": 4, "5": 5, "6": 6, "7": 7, "8": 8, "9": 9, "10": 10,
	"J": 11, "Q": 12, "K": 13, "A": 14,
}

// Value orders ranks for trick resolution: 2 < 3 < ... < K < A.
func (r Rank) Value() int { return rankVal[r] }

// Card is immutable once dealt. ID is "<suit>-<rank>", e.g. "S-3".
type Card struct {
	ID     string `json:"id"`
	Suit   Suit   `json:"suit"`
	Rank   Rank   `json:"rank"`
	Points int    `json:"points"`
}

// NewCard builds a card with its point value filled in.
func NewCard(s Suit, r Rank) Card {
	return Card{ID: CardID(s, r), Suit: s, Rank: r, Points: cardPoints(s, r)}
}

func CardID(s Suit, r Rank) string { return string(s) + "-" + string(r) }

// ParseCardID is the inverse of CardID.
func ParseCardID(id string) (Card, bool) {
	s, r, ok := strings.Cut(id, "-")
	if !ok {
		return Card{}, false
	}
	suit, rank := Suit(s), Rank(r)
	if !suit.Valid() || rank.Value() == 0 {
		return Card{}, false
	}
	return NewCard(suit, rank), true
}

func cardPoints(s Suit, r Rank) int {
	switch {
	case s == Spades && r == "3":
		return 30
	case r == "5":
		return 5
	case r == "10", r == "J", r == "Q", r == "K", r == "A":
		return 10
	}
	return 0
}

// removedTwos lists which twos are taken out so the deck divides evenly.
var removedTwos = map[int][]Suit{
	5: {Diamonds, Clubs},
	6: {Hearts, Diamonds, Clubs, Spades},
	7: {Hearts, Diamonds, Clubs},
}

// NewDeck returns the ordered deck for the given number of players:
// 50 cards for 5, 48 for 6 and 49 for 7.
func NewDeck(players int) ([]Card, error) {
	removed, ok := removedTwos[players]
	if !ok {
		return nil, fmt.Errorf("%w: no deck for %d players", ErrUnsupportedPlayers, players)
	}
	skip := map[Suit]bool{}
	for _, s := range removed {
		skip[s] = true
	}
	deck := make([]Card, 0, 52-len(removed))
	for _, s := range Suits {
		for _, r := range Ranks {
			if r == "2" && skip[s] {
				continue
			}
			deck = append(deck, NewCard(s, r))
		}
	}
	return deck, nil
}

// RNG abstracts the shuffle source so tests can fix a deal.
type RNG interface {
	// Intn returns a non-negative random int in [0, n).
	Intn(n int) int
}

// CryptoRNG draws from crypto/rand.
type CryptoRNG struct{}

func (CryptoRNG) Intn(n int) int {
	var b [8]byte
	_, _ = crand.Read(b[:])
	return int(binary.BigEndian.Uint64(b[:]) % uint64(n))
}

func shuffle(in []Card, rng RNG) []Card {
	out := append([]Card{}, in...)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

var suitOrder = map[Suit]int{Clubs: 0, Diamonds: 1, Hearts: 2, Spades: 3}

// SortHand groups a hand by suit and orders each suit by rank.
func SortHand(hand []Card) {
	sort.Slice(hand, func(i, j int) bool {
		a, b := hand[i], hand[j]
		if a.Suit != b.Suit {
			return suitOrder[a.Suit] < suitOrder[b.Suit]
		}
		return a.Rank.Value() < b.Rank.Value()
	})
}

func removeCard(hand []Card, id string) ([]Card, Card, bool) {
	for i := range hand {
		if hand[i].ID == id {
			c := hand[i]
			out := append(append([]Card{}, hand[:i]...), hand[i+1:]...)
			return out, c, true
		}
	}
	return hand, Card{}, false
}
