package game

import (
	"fmt"
	"slices"
)

// Phase is the lifecycle stage of one match.
type Phase string

const (
	PhaseWaiting       Phase = "WAITING"
	PhaseBidding       Phase = "BIDDING"
	PhasePartnerSelect Phase = "PARTNER_SELECT"
	PhasePlaying       Phase = "PLAYING"
	PhaseFinished      Phase = "FINISHED"
)

// Team tags a player once the match reveals which side they are on.
type Team string

const (
	TeamNone     Team = ""
	TeamBidder   Team = "BIDDER"
	TeamDefender Team = "DEFENDER"
	TeamPartner  Team = "PARTNER"
)

// Rules holds the tunable numbers of a match.
type Rules struct {
	BaseBid int
	MaxBid  int
	// AllowSelfPartner lets the bidder call a card from their own hand.
	// Such a card never reveals a partner.
	AllowSelfPartner bool
}

func DefaultRules() Rules {
	return Rules{BaseBid: 150, MaxBid: 250}
}

// Seat identifies a participant taking part in a match, in seating order.
type Seat struct {
	ID   string
	Name string
}

// Player is the engine-owned state of one seat.
type Player struct {
	ID     string
	Name   string
	Hand   []Card
	Points int
	Bid    int // 0 until the player raises
	Team   Team
}

// MoveKind enumerates the actions a participant can address to the engine.
type MoveKind int

const (
	MoveRaise MoveKind = iota
	MovePass
	MoveReady
	MoveFinishBidding
	MovePickPartners
	MovePlayCard
)

// Move is one decoded game action.
type Move struct {
	Kind   MoveKind
	Amount int      // MoveRaise
	Cards  []string // MovePickPartners
	Trump  Suit     // MovePickPartners
	CardID string   // MovePlayCard
}

// Outcome reports side effects of an accepted move the room has to act on.
type Outcome struct {
	// TrickComplete is set when the move filled the trick; the trick is
	// locked until ResolveTrick runs.
	TrickComplete bool
	// Revealed is the id of a player who just revealed themselves as partner.
	Revealed string
}

// TrickResult describes a resolved trick.
type TrickResult struct {
	WinnerID   string
	WinnerName string
	Points     int
	Finished   bool
}

// Result is the final score of a finished match.
type Result struct {
	Bid            int  `json:"bid"`
	AttackingTotal int  `json:"attackingTotal"`
	DefendingTotal int  `json:"defendingTotal"`
	AttackingWon   bool `json:"attackingWon"`
}

// Game is the authoritative state machine of one match. It is not safe for
// concurrent use; the owning room serializes every call.
type Game struct {
	rules Rules
	rng   RNG

	phase   Phase
	players map[string]*Player
	order   []string
	deck    []Card

	currentBid int
	bidderID   string
	active     map[string]struct{}
	ready      map[string]struct{}

	trump        Suit
	partnerCards []string
	revealed     []string

	trick      []Play
	startIndex int
	resolving  bool
}

// NewGame seats the given participants. The match stays in PhaseWaiting
// until Start deals the cards.
func NewGame(seats []Seat, rules Rules, rng RNG) (*Game, error) {
	if _, ok := removedTwos[len(seats)]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPlayers, len(seats))
	}
	if rules.BaseBid <= 0 || rules.MaxBid <= rules.BaseBid {
		return nil, fmt.Errorf("invalid bid range %d..%d", rules.BaseBid, rules.MaxBid)
	}
	if rng == nil {
		rng = CryptoRNG{}
	}
	g := &Game{
		rules:      rules,
		rng:        rng,
		phase:      PhaseWaiting,
		players:    make(map[string]*Player, len(seats)),
		currentBid: rules.BaseBid,
	}
	for _, s := range seats {
		if _, dup := g.players[s.ID]; dup {
			return nil, fmt.Errorf("duplicate seat %q", s.ID)
		}
		name := s.Name
		if name == "" {
			name = "Player " + shortID(s.ID)
		}
		g.players[s.ID] = &Player{ID: s.ID, Name: name}
		g.order = append(g.order, s.ID)
	}
	return g, nil
}

func shortID(id string) string {
	if len(id) > 4 {
		return id[:4]
	}
	return id
}

// Start builds a fresh deck, deals it and opens bidding. It may be called
// from PhaseWaiting or, to play again, from PhaseFinished.
func (g *Game) Start() error {
	if g.phase != PhaseWaiting && g.phase != PhaseFinished {
		return fmt.Errorf("%w: match already running", ErrNotYourAction)
	}
	deck, err := NewDeck(len(g.order))
	if err != nil {
		return err
	}
	g.deck = shuffle(deck, g.rng)
	g.deal()

	g.phase = PhaseBidding
	g.currentBid = g.rules.BaseBid
	g.bidderID = ""
	g.active = make(map[string]struct{}, len(g.order))
	for _, id := range g.order {
		g.active[id] = struct{}{}
	}
	g.ready = map[string]struct{}{}
	g.trump = ""
	g.partnerCards = nil
	g.revealed = nil
	g.trick = nil
	g.startIndex = 0
	g.resolving = false
	return nil
}

// deal partitions the shuffled deck into contiguous equal hands in seat order.
func (g *Game) deal() {
	per := len(g.deck) / len(g.order)
	for i, id := range g.order {
		p := g.players[id]
		p.Hand = append([]Card{}, g.deck[i*per:(i+1)*per]...)
		SortHand(p.Hand)
		p.Points = 0
		p.Bid = 0
		p.Team = TeamNone
	}
}

// ApplyMove routes a decoded move to the matching transition.
func (g *Game) ApplyMove(playerID string, m Move) (Outcome, error) {
	if _, ok := g.players[playerID]; !ok {
		return Outcome{}, ErrUnknownPlayer
	}
	switch m.Kind {
	case MoveRaise, MovePass, MoveReady:
		return Outcome{}, g.bid(playerID, m)
	case MoveFinishBidding:
		return Outcome{}, g.FinishBidding()
	case MovePickPartners:
		return Outcome{}, g.PickPartners(playerID, m.Cards, m.Trump)
	case MovePlayCard:
		return g.PlayCard(playerID, m.CardID)
	}
	return Outcome{}, fmt.Errorf("%w: unknown move %d", ErrNotYourAction, m.Kind)
}

func (g *Game) bid(playerID string, m Move) error {
	if g.phase != PhaseBidding {
		return fmt.Errorf("%w: not bidding", ErrNotYourAction)
	}
	if _, ok := g.active[playerID]; !ok {
		return fmt.Errorf("%w: already passed", ErrNotYourAction)
	}
	switch m.Kind {
	case MoveRaise:
		if m.Amount <= g.currentBid || m.Amount > g.rules.MaxBid {
			return fmt.Errorf("%w: must be above %d and at most %d", ErrInvalidBid, g.currentBid, g.rules.MaxBid)
		}
		g.currentBid = m.Amount
		g.bidderID = playerID
		g.players[playerID].Bid = m.Amount
		g.ready = map[string]struct{}{playerID: {}}
	case MovePass:
		delete(g.active, playerID)
		delete(g.ready, playerID)
	case MoveReady:
		g.ready[playerID] = struct{}{}
	}
	g.checkBiddingComplete()
	return nil
}

// Raise, Pass and Ready are the three bidding actions.
func (g *Game) Raise(playerID string, amount int) error {
	_, err := g.ApplyMove(playerID, Move{Kind: MoveRaise, Amount: amount})
	return err
}

func (g *Game) Pass(playerID string) error {
	_, err := g.ApplyMove(playerID, Move{Kind: MovePass})
	return err
}

func (g *Game) Ready(playerID string) error {
	_, err := g.ApplyMove(playerID, Move{Kind: MoveReady})
	return err
}

func (g *Game) checkBiddingComplete() {
	if len(g.active) == 0 {
		g.finalizeBidding()
		return
	}
	for id := range g.active {
		if _, ok := g.ready[id]; !ok {
			return
		}
	}
	g.finalizeBidding()
}

// FinishBidding forces the end of bidding regardless of readiness.
func (g *Game) FinishBidding() error {
	if g.phase != PhaseBidding {
		return fmt.Errorf("%w: not bidding", ErrNotYourAction)
	}
	g.finalizeBidding()
	return nil
}

func (g *Game) finalizeBidding() {
	if g.bidderID == "" {
		// nobody raised: first seat takes the contract at the baseline
		g.bidderID = g.order[0]
		g.currentBid = g.rules.BaseBid
	}
	g.players[g.bidderID].Team = TeamBidder
	g.phase = PhasePartnerSelect
}

// PickPartners lets the bidder name two partner cards and the trump suit.
func (g *Game) PickPartners(playerID string, cardIDs []string, trump Suit) error {
	if g.phase != PhasePartnerSelect {
		return fmt.Errorf("%w: not selecting partners", ErrNotYourAction)
	}
	if playerID != g.bidderID {
		return fmt.Errorf("%w: only the bidder picks partners", ErrNotYourAction)
	}
	if !trump.Valid() {
		return fmt.Errorf("%w: unknown trump %q", ErrInvalidPartners, trump)
	}
	if len(cardIDs) != 2 || cardIDs[0] == cardIDs[1] {
		return fmt.Errorf("%w: need two distinct cards", ErrInvalidPartners)
	}
	for _, id := range cardIDs {
		if !slices.ContainsFunc(g.deck, func(c Card) bool { return c.ID == id }) {
			return fmt.Errorf("%w: %s is not in this deck", ErrInvalidPartners, id)
		}
		if !g.rules.AllowSelfPartner && holds(g.players[playerID].Hand, id) {
			return fmt.Errorf("%w: %s is in your own hand", ErrInvalidPartners, id)
		}
	}
	g.partnerCards = append([]string{}, cardIDs...)
	g.trump = trump
	g.phase = PhasePlaying
	g.startIndex = slices.Index(g.order, playerID)
	return nil
}

func holds(hand []Card, id string) bool {
	return slices.ContainsFunc(hand, func(c Card) bool { return c.ID == id })
}

// CurrentTurn returns the id of the player expected to play next, or "" when
// no card can be played.
func (g *Game) CurrentTurn() string {
	if g.phase != PhasePlaying || g.resolving {
		return ""
	}
	return g.order[(g.startIndex+len(g.trick))%len(g.order)]
}

// PlayCard lays cardID from the player's hand on the current trick.
func (g *Game) PlayCard(playerID, cardID string) (Outcome, error) {
	if g.phase != PhasePlaying {
		return Outcome{}, fmt.Errorf("%w: not playing", ErrNotYourAction)
	}
	if g.resolving {
		return Outcome{}, ErrTrickResolving
	}
	p, ok := g.players[playerID]
	if !ok {
		return Outcome{}, ErrUnknownPlayer
	}
	if g.CurrentTurn() != playerID {
		return Outcome{}, ErrNotYourTurn
	}
	idx := slices.IndexFunc(p.Hand, func(c Card) bool { return c.ID == cardID })
	if idx < 0 {
		return Outcome{}, ErrCardNotInHand
	}
	card := p.Hand[idx]
	if err := checkPlay(p.Hand, card, g.trick, g.trump); err != nil {
		return Outcome{}, err
	}

	p.Hand, _, _ = removeCard(p.Hand, cardID)
	g.trick = append(g.trick, Play{PlayerID: playerID, Card: card})

	var out Outcome
	if slices.Contains(g.partnerCards, cardID) && playerID != g.bidderID && p.Team != TeamPartner {
		p.Team = TeamPartner
		g.revealed = append(g.revealed, playerID)
		out.Revealed = playerID
	}
	if len(g.trick) == len(g.order) {
		g.resolving = true
		out.TrickComplete = true
	}
	return out, nil
}

// ResolveTrick settles a full trick: the winner collects its points and leads
// the next one. It ends the match once every hand is empty.
func (g *Game) ResolveTrick() (TrickResult, error) {
	if !g.resolving {
		return TrickResult{}, fmt.Errorf("%w: no complete trick", ErrNotYourAction)
	}
	win := g.trick[TrickWinner(g.trick, g.trump)]
	pts := trickPoints(g.trick)
	winner := g.players[win.PlayerID]
	winner.Points += pts

	g.startIndex = slices.Index(g.order, win.PlayerID)
	g.trick = nil
	g.resolving = false

	res := TrickResult{WinnerID: winner.ID, WinnerName: winner.Name, Points: pts}
	if g.handsEmpty() {
		g.finish()
		res.Finished = true
	}
	return res, nil
}

func (g *Game) handsEmpty() bool {
	for _, p := range g.players {
		if len(p.Hand) > 0 {
			return false
		}
	}
	return true
}

func (g *Game) finish() {
	g.phase = PhaseFinished
	for _, p := range g.players {
		if p.Team != TeamBidder && p.Team != TeamPartner {
			p.Team = TeamDefender
		}
	}
}

// Result returns the final score; ok is false until the match is finished.
func (g *Game) Result() (Result, bool) {
	if g.phase != PhaseFinished {
		return Result{}, false
	}
	r := Result{Bid: g.currentBid}
	for _, p := range g.players {
		if p.Team == TeamBidder || p.Team == TeamPartner {
			r.AttackingTotal += p.Points
		} else {
			r.DefendingTotal += p.Points
		}
	}
	r.AttackingWon = r.AttackingTotal >= r.Bid
	return r, true
}

// LegalCards lists the card ids playerID may play right now.
func (g *Game) LegalCards(playerID string) []string {
	if g.CurrentTurn() != playerID || playerID == "" {
		return nil
	}
	hand := g.players[playerID].Hand
	var ids []string
	for _, c := range hand {
		if checkPlay(hand, c, g.trick, g.trump) == nil {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

func (g *Game) Phase() Phase     { return g.phase }
func (g *Game) Resolving() bool  { return g.resolving }
func (g *Game) CurrentBid() int  { return g.currentBid }
func (g *Game) BidderID() string { return g.bidderID }
func (g *Game) Trump() Suit      { return g.trump }

// Seated reports whether id holds a seat in this match.
func (g *Game) Seated(id string) bool {
	_, ok := g.players[id]
	return ok
}

// Order returns the seating order.
func (g *Game) Order() []string { return append([]string{}, g.order...) }
