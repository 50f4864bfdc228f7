package game

// View is what a single participant is allowed to see of a match.
type View struct {
	Phase             Phase          `json:"phase"`
	Hand              []Card         `json:"hand"`
	Playable          []string       `json:"playable,omitempty"`
	MyBid             int            `json:"myBid,omitempty"`
	CurrentBid        int            `json:"currentBid"`
	BidderID          string         `json:"bidderId,omitempty"`
	BidderName        string         `json:"bidderName,omitempty"`
	Trump             Suit           `json:"trump,omitempty"`
	Partners          []string       `json:"partners"`
	RevealedPartners  []string       `json:"revealedPartners"`
	CurrentTrick      []Play         `json:"currentTrick"`
	PlayerOrder       []string       `json:"playerOrder"`
	TrickStarterIndex int            `json:"trickStarterIndex"`
	TurnPlayerID      string         `json:"turnPlayerId,omitempty"`
	HandCounts        map[string]int `json:"handCounts"`
	Resolving         bool           `json:"resolving"`
	BiddingState      *BiddingState  `json:"biddingState,omitempty"`
	PlayerPoints      []PlayerPoints `json:"playerPoints"`
	Scores            []Score        `json:"scores,omitempty"`
	Result            *Result        `json:"result,omitempty"`
}

type BiddingState struct {
	ActivePlayers []string `json:"activePlayers"`
	ReadyPlayers  []string `json:"readyPlayers"`
}

type PlayerPoints struct {
	PlayerID string `json:"playerId"`
	Points   int    `json:"points"`
}

// Score is one line of the end-of-match breakdown.
type Score struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Team   Team   `json:"team"`
	Points int    `json:"points"`
}

// ViewFor projects the match for viewerID. Only the viewer's own hand is
// included and partners appear only once they have played a partner card.
func (g *Game) ViewFor(viewerID string) View {
	v := View{
		Phase:             g.phase,
		Hand:              []Card{},
		CurrentBid:        g.currentBid,
		BidderID:          g.bidderID,
		Trump:             g.trump,
		Partners:          append([]string{}, g.partnerCards...),
		RevealedPartners:  append([]string{}, g.revealed...),
		CurrentTrick:      append([]Play{}, g.trick...),
		PlayerOrder:       g.Order(),
		TrickStarterIndex: g.startIndex,
		TurnPlayerID:      g.CurrentTurn(),
		Resolving:         g.resolving,
		HandCounts:        g.HandSizes(),
	}
	if p, ok := g.players[viewerID]; ok {
		v.Hand = append(v.Hand, p.Hand...)
		v.MyBid = p.Bid
		v.Playable = g.LegalCards(viewerID)
	}
	if b, ok := g.players[g.bidderID]; ok {
		v.BidderName = b.Name
	}
	if g.phase == PhaseBidding {
		v.BiddingState = &BiddingState{
			ActivePlayers: g.inOrder(g.active),
			ReadyPlayers:  g.inOrder(g.ready),
		}
	}
	for _, id := range g.order {
		v.PlayerPoints = append(v.PlayerPoints, PlayerPoints{PlayerID: id, Points: g.players[id].Points})
	}
	if r, ok := g.Result(); ok {
		v.Result = &r
		for _, id := range g.order {
			p := g.players[id]
			v.Scores = append(v.Scores, Score{ID: p.ID, Name: p.Name, Team: p.Team, Points: p.Points})
		}
	}
	return v
}

func (g *Game) inOrder(set map[string]struct{}) []string {
	ids := []string{}
	for _, id := range g.order {
		if _, ok := set[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// HandSizes is public information: how many cards each seat still holds.
func (g *Game) HandSizes() map[string]int {
	out := make(map[string]int, len(g.order))
	for _, id := range g.order {
		out[id] = len(g.players[id].Hand)
	}
	return out
}
