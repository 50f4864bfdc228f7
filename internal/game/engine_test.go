package game

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func seatsFor(n int) []Seat {
	seats := make([]Seat, n)
	for i := range seats {
		seats[i] = Seat{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}
	}
	return seats
}

func startedGame(t *testing.T, n int, seed uint64) *Game {
	t.Helper()
	g, err := NewGame(seatsFor(n), DefaultRules(), newRNG(seed))
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g
}

// setHands replaces every hand; players not listed get an empty hand.
func setHands(g *Game, hands map[string][]string) {
	for _, id := range g.order {
		g.players[id].Hand = cards(hands[id]...)
	}
}

// playingGame returns a five-player match where p0 bid 160, every other seat
// passed, hands are replaced by the given ones and partners are picked.
func playingGame(t *testing.T, hands map[string][]string, partners []string, trump Suit) *Game {
	t.Helper()
	g := startedGame(t, 5, 1)
	mustOK(t, g.Raise("p0", 160))
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		mustOK(t, g.Pass(id))
	}
	if g.Phase() != PhasePartnerSelect {
		t.Fatalf("phase %s, want %s", g.Phase(), PhasePartnerSelect)
	}
	setHands(g, hands)
	mustOK(t, g.PickPartners("p0", partners, trump))
	return g
}

func mustOK(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func mustPlay(t *testing.T, g *Game, player, card string) Outcome {
	t.Helper()
	out, err := g.PlayCard(player, card)
	if err != nil {
		t.Fatalf("PlayCard(%s, %s): %v", player, card, err)
	}
	return out
}

func TestNewGame_Validation(t *testing.T) {
	if _, err := NewGame(seatsFor(4), DefaultRules(), nil); !errors.Is(err, ErrUnsupportedPlayers) {
		t.Errorf("4 players: expected ErrUnsupportedPlayers, got %v", err)
	}
	seats := seatsFor(5)
	seats[4].ID = seats[0].ID
	if _, err := NewGame(seats, DefaultRules(), nil); err == nil {
		t.Error("duplicate seat: expected error")
	}
	if _, err := NewGame(seatsFor(5), Rules{BaseBid: 200, MaxBid: 150}, nil); err == nil {
		t.Error("inverted bid range: expected error")
	}
}

func TestStart_OpensBidding(t *testing.T) {
	g := startedGame(t, 6, 3)
	if g.Phase() != PhaseBidding {
		t.Fatalf("phase %s, want BIDDING", g.Phase())
	}
	if g.CurrentBid() != 150 {
		t.Fatalf("current bid %d, want 150", g.CurrentBid())
	}
	if len(g.active) != 6 || len(g.ready) != 0 {
		t.Fatalf("active=%d ready=%d, want 6 and 0", len(g.active), len(g.ready))
	}
	if err := g.Start(); !errors.Is(err, ErrNotYourAction) {
		t.Fatalf("restart mid-match: expected ErrNotYourAction, got %v", err)
	}
}

func TestBidding(t *testing.T) {
	t.Run("raise must exceed current bid and respect ceiling", func(t *testing.T) {
		g := startedGame(t, 5, 1)
		for _, amount := range []int{150, 100, 251} {
			if err := g.Raise("p1", amount); !errors.Is(err, ErrInvalidBid) {
				t.Errorf("raise %d: expected ErrInvalidBid, got %v", amount, err)
			}
		}
		mustOK(t, g.Raise("p1", 170))
		if err := g.Raise("p2", 170); !errors.Is(err, ErrInvalidBid) {
			t.Errorf("equal raise: expected ErrInvalidBid, got %v", err)
		}
		mustOK(t, g.Raise("p2", 250))
		if g.CurrentBid() != 250 || g.BidderID() != "p2" {
			t.Fatalf("bid=%d bidder=%s, want 250 p2", g.CurrentBid(), g.BidderID())
		}
	})

	t.Run("raise resets ready set to the raiser", func(t *testing.T) {
		g := startedGame(t, 5, 1)
		mustOK(t, g.Ready("p3"))
		mustOK(t, g.Ready("p4"))
		mustOK(t, g.Raise("p1", 160))
		if len(g.ready) != 1 {
			t.Fatalf("ready set %v, want only p1", g.ready)
		}
		if _, ok := g.ready["p1"]; !ok {
			t.Fatal("raiser not ready")
		}
	})

	t.Run("passed player cannot act again", func(t *testing.T) {
		g := startedGame(t, 5, 1)
		mustOK(t, g.Pass("p2"))
		for _, err := range []error{g.Raise("p2", 160), g.Ready("p2"), g.Pass("p2")} {
			if !errors.Is(err, ErrNotYourAction) {
				t.Errorf("expected ErrNotYourAction, got %v", err)
			}
		}
	})

	t.Run("everyone ready ends bidding", func(t *testing.T) {
		g := startedGame(t, 5, 1)
		mustOK(t, g.Raise("p2", 180))
		mustOK(t, g.Pass("p0"))
		mustOK(t, g.Ready("p1"))
		mustOK(t, g.Ready("p3"))
		if g.Phase() != PhaseBidding {
			t.Fatal("bidding ended before every active player was ready")
		}
		mustOK(t, g.Ready("p4"))
		if g.Phase() != PhasePartnerSelect {
			t.Fatalf("phase %s, want PARTNER_SELECT", g.Phase())
		}
		if g.BidderID() != "p2" || g.players["p2"].Team != TeamBidder {
			t.Fatalf("bidder %s team %s", g.BidderID(), g.players["p2"].Team)
		}
	})

	t.Run("all pass falls back to seat zero at baseline", func(t *testing.T) {
		g := startedGame(t, 5, 1)
		for i := 0; i < 5; i++ {
			mustOK(t, g.Pass(fmt.Sprintf("p%d", i)))
		}
		if g.Phase() != PhasePartnerSelect {
			t.Fatalf("phase %s, want PARTNER_SELECT", g.Phase())
		}
		if g.BidderID() != "p0" || g.CurrentBid() != 150 {
			t.Fatalf("bidder=%s bid=%d, want p0 150", g.BidderID(), g.CurrentBid())
		}
	})

	t.Run("finish bidding forces completion", func(t *testing.T) {
		g := startedGame(t, 7, 1)
		mustOK(t, g.Raise("p5", 200))
		mustOK(t, g.FinishBidding())
		if g.Phase() != PhasePartnerSelect || g.BidderID() != "p5" {
			t.Fatalf("phase=%s bidder=%s", g.Phase(), g.BidderID())
		}
		if err := g.FinishBidding(); !errors.Is(err, ErrNotYourAction) {
			t.Fatalf("second finish: expected ErrNotYourAction, got %v", err)
		}
		if err := g.Raise("p1", 210); !errors.Is(err, ErrNotYourAction) {
			t.Fatalf("raise after bidding: expected ErrNotYourAction, got %v", err)
		}
	})
}

func TestBidding_Terminates(t *testing.T) {
	for seed := uint64(1); seed <= 50; seed++ {
		rng := newRNG(seed)
		g := startedGame(t, 5+int(seed%3), seed)
		steps := 0
		for g.Phase() == PhaseBidding {
			steps++
			if steps > 10000 {
				t.Fatalf("seed %d: bidding did not terminate", seed)
			}
			active := g.inOrder(g.active)
			id := active[rng.Intn(len(active))]
			switch rng.Intn(3) {
			case 0:
				_ = g.Raise(id, g.CurrentBid()+1+rng.Intn(20))
			case 1:
				mustOK(t, g.Pass(id))
			default:
				mustOK(t, g.Ready(id))
			}
			for r := range g.ready {
				if _, ok := g.active[r]; !ok {
					t.Fatalf("seed %d: ready player %s is not active", seed, r)
				}
			}
		}
		if g.BidderID() == "" {
			t.Fatalf("seed %d: no bidder after bidding", seed)
		}
	}
}

func TestPickPartners(t *testing.T) {
	newSelecting := func(t *testing.T, rules Rules) *Game {
		g, err := NewGame(seatsFor(5), rules, newRNG(7))
		mustOK(t, err)
		mustOK(t, g.Start())
		mustOK(t, g.Raise("p1", 160))
		mustOK(t, g.FinishBidding())
		setHands(g, map[string][]string{
			"p1": {"H-A", "S-3"},
			"p2": {"C-A"},
			"p3": {"D-A"},
		})
		return g
	}

	tests := []struct {
		name    string
		player  string
		cards   []string
		trump   Suit
		wantErr error
	}{
		{name: "not the bidder", player: "p2", cards: []string{"C-A", "D-A"}, trump: Spades, wantErr: ErrNotYourAction},
		{name: "one card", player: "p1", cards: []string{"C-A"}, trump: Spades, wantErr: ErrInvalidPartners},
		{name: "same card twice", player: "p1", cards: []string{"C-A", "C-A"}, trump: Spades, wantErr: ErrInvalidPartners},
		{name: "card not in deck", player: "p1", cards: []string{"C-A", "C-2"}, trump: Spades, wantErr: ErrInvalidPartners},
		{name: "bad trump", player: "p1", cards: []string{"C-A", "D-A"}, trump: "X", wantErr: ErrInvalidPartners},
		{name: "own card", player: "p1", cards: []string{"C-A", "H-A"}, trump: Spades, wantErr: ErrInvalidPartners},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newSelecting(t, DefaultRules())
			err := g.PickPartners(tt.player, tt.cards, tt.trump)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if g.Phase() != PhasePartnerSelect {
				t.Fatalf("phase changed to %s on failure", g.Phase())
			}
		})
	}

	t.Run("success hands the lead to the bidder", func(t *testing.T) {
		g := newSelecting(t, DefaultRules())
		mustOK(t, g.PickPartners("p1", []string{"C-A", "D-A"}, Hearts))
		if g.Phase() != PhasePlaying || g.Trump() != Hearts {
			t.Fatalf("phase=%s trump=%s", g.Phase(), g.Trump())
		}
		if g.CurrentTurn() != "p1" {
			t.Fatalf("turn %s, want p1", g.CurrentTurn())
		}
		if err := g.PickPartners("p1", []string{"C-A", "D-A"}, Hearts); !errors.Is(err, ErrNotYourAction) {
			t.Fatalf("second pick: expected ErrNotYourAction, got %v", err)
		}
	})

	t.Run("self partner allowed by rules", func(t *testing.T) {
		rules := DefaultRules()
		rules.AllowSelfPartner = true
		g := newSelecting(t, rules)
		mustOK(t, g.PickPartners("p1", []string{"H-A", "C-A"}, Spades))
		out := mustPlay(t, g, "p1", "H-A")
		if out.Revealed != "" || len(g.revealed) != 0 {
			t.Fatalf("bidder revealed as partner: %+v", out)
		}
		if g.players["p1"].Team != TeamBidder {
			t.Fatalf("bidder team changed to %s", g.players["p1"].Team)
		}
	})
}

func TestPlayCard(t *testing.T) {
	hands := map[string][]string{
		"p0": {"H-A", "H-3"},
		"p1": {"H-2", "D-4"},
		"p2": {"D-K", "S-4"},
		"p3": {"C-4", "C-6"},
		"p4": {"H-6", "S-A"},
	}

	t.Run("turn and ownership", func(t *testing.T) {
		g := playingGame(t, hands, []string{"D-K", "C-A"}, Spades)
		if _, err := g.PlayCard("p1", "H-2"); !errors.Is(err, ErrNotYourTurn) {
			t.Fatalf("expected ErrNotYourTurn, got %v", err)
		}
		if _, err := g.PlayCard("p0", "S-A"); !errors.Is(err, ErrCardNotInHand) {
			t.Fatalf("expected ErrCardNotInHand, got %v", err)
		}
		if _, err := g.PlayCard("zz", "S-A"); !errors.Is(err, ErrUnknownPlayer) {
			t.Fatalf("expected ErrUnknownPlayer, got %v", err)
		}
		mustPlay(t, g, "p0", "H-A")
		if g.CurrentTurn() != "p1" {
			t.Fatalf("turn %s, want p1", g.CurrentTurn())
		}
		if holds(g.players["p0"].Hand, "H-A") {
			t.Fatal("played card still in hand")
		}
	})

	t.Run("follow suit and forced cut", func(t *testing.T) {
		g := playingGame(t, hands, []string{"D-K", "C-A"}, Spades)
		mustPlay(t, g, "p0", "H-A")
		if _, err := g.PlayCard("p1", "D-4"); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("p1 must follow hearts, got %v", err)
		}
		if got := g.LegalCards("p1"); !slices.Equal(got, []string{"H-2"}) {
			t.Fatalf("legal cards %v, want [H-2]", got)
		}
		mustPlay(t, g, "p1", "H-2")
		if _, err := g.PlayCard("p2", "D-K"); !errors.Is(err, ErrIllegalMove) {
			t.Fatalf("p2 must cut with spades, got %v", err)
		}
		mustPlay(t, g, "p2", "S-4")
		mustPlay(t, g, "p3", "C-4")
	})

	t.Run("full trick locks until resolved", func(t *testing.T) {
		g := playingGame(t, hands, []string{"D-K", "C-A"}, Spades)
		mustPlay(t, g, "p0", "H-3")
		mustPlay(t, g, "p1", "H-2")
		mustPlay(t, g, "p2", "S-4")
		mustPlay(t, g, "p3", "C-4")
		out := mustPlay(t, g, "p4", "H-6")
		if !out.TrickComplete || !g.Resolving() {
			t.Fatal("expected trick to be complete and locked")
		}
		if g.CurrentTurn() != "" {
			t.Fatalf("turn %q during resolution, want none", g.CurrentTurn())
		}
		for _, id := range g.order {
			for _, c := range g.players[id].Hand {
				if _, err := g.PlayCard(id, c.ID); !errors.Is(err, ErrTrickResolving) {
					t.Fatalf("%s %s: expected ErrTrickResolving, got %v", id, c.ID, err)
				}
			}
		}
		res, err := g.ResolveTrick()
		mustOK(t, err)
		if res.WinnerID != "p2" || res.Points != 0 {
			t.Fatalf("result %+v, want p2 with 0 points", res)
		}
		if g.CurrentTurn() != "p2" || len(g.trick) != 0 {
			t.Fatalf("turn=%s trick=%d after resolution", g.CurrentTurn(), len(g.trick))
		}
		if _, err := g.ResolveTrick(); !errors.Is(err, ErrNotYourAction) {
			t.Fatalf("double resolve: expected ErrNotYourAction, got %v", err)
		}
	})
}

func TestPartnerReveal(t *testing.T) {
	hands := map[string][]string{
		"p0": {"H-A"},
		"p1": {"H-2"},
		"p2": {"H-K"},
		"p3": {"H-4"},
		"p4": {"H-6"},
	}
	g := playingGame(t, hands, []string{"H-K", "C-A"}, Spades)

	for _, id := range g.order {
		v := g.ViewFor(id)
		if len(v.RevealedPartners) != 0 {
			t.Fatalf("%s sees partners %v before any partner card was played", id, v.RevealedPartners)
		}
		if !slices.Equal(v.Partners, []string{"H-K", "C-A"}) {
			t.Fatalf("%s sees partner cards %v", id, v.Partners)
		}
	}
	if g.players["p2"].Team != TeamNone {
		t.Fatalf("p2 tagged %s before playing the partner card", g.players["p2"].Team)
	}

	mustPlay(t, g, "p0", "H-A")
	mustPlay(t, g, "p1", "H-2")
	if len(g.ViewFor("p3").RevealedPartners) != 0 {
		t.Fatal("partner revealed early")
	}
	out := mustPlay(t, g, "p2", "H-K")
	if out.Revealed != "p2" {
		t.Fatalf("revealed %q, want p2", out.Revealed)
	}
	for _, id := range g.order {
		if v := g.ViewFor(id); !slices.Equal(v.RevealedPartners, []string{"p2"}) {
			t.Fatalf("%s sees partners %v, want [p2]", id, v.RevealedPartners)
		}
	}
}

func TestScoring(t *testing.T) {
	hands := map[string][]string{
		"p0": {"H-A"},
		"p1": {"H-2"},
		"p2": {"H-K"},
		"p3": {"H-4"},
		"p4": {"H-6"},
	}
	tests := []struct {
		name        string
		bidderPts   int
		partnerPts  int
		wantTotal   int
		wantAttWins bool
	}{
		{name: "attackers make the bid", bidderPts: 100, partnerPts: 45, wantTotal: 165, wantAttWins: true},
		{name: "attackers fall short", bidderPts: 100, partnerPts: 20, wantTotal: 140, wantAttWins: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := playingGame(t, hands, []string{"H-K", "C-A"}, Spades)
			g.players["p0"].Points = tt.bidderPts
			g.players["p2"].Points = tt.partnerPts
			g.players["p3"].Points = 30
			for _, p := range []struct{ id, card string }{{"p0", "H-A"}, {"p1", "H-2"}, {"p2", "H-K"}, {"p3", "H-4"}, {"p4", "H-6"}} {
				mustPlay(t, g, p.id, p.card)
			}
			res, err := g.ResolveTrick()
			mustOK(t, err)
			if !res.Finished || res.WinnerID != "p0" || res.Points != 20 {
				t.Fatalf("trick result %+v", res)
			}
			if g.Phase() != PhaseFinished {
				t.Fatalf("phase %s, want FINISHED", g.Phase())
			}
			r, ok := g.Result()
			if !ok {
				t.Fatal("no result on finished match")
			}
			if r.Bid != 160 || r.AttackingTotal != tt.wantTotal || r.AttackingWon != tt.wantAttWins {
				t.Fatalf("result %+v, want total %d won %v", r, tt.wantTotal, tt.wantAttWins)
			}
			if r.DefendingTotal != 30 {
				t.Fatalf("defending total %d, want 30", r.DefendingTotal)
			}
			for _, id := range []string{"p1", "p3", "p4"} {
				if g.players[id].Team != TeamDefender {
					t.Fatalf("%s team %s, want DEFENDER", id, g.players[id].Team)
				}
			}
			v := g.ViewFor("p1")
			if v.Result == nil || len(v.Scores) != 5 {
				t.Fatalf("finished view lacks scores: %+v", v)
			}
		})
	}
}

// playOut drives a match to the end choosing random legal cards.
func playOut(t *testing.T, g *Game, rng RNG) {
	t.Helper()
	deckSize := len(g.deck)
	for steps := 0; g.Phase() == PhasePlaying; steps++ {
		if steps > 2*deckSize {
			t.Fatal("match did not finish")
		}
		turn := g.CurrentTurn()
		legal := g.LegalCards(turn)
		if len(legal) == 0 {
			t.Fatalf("%s has no legal card", turn)
		}
		out := mustPlay(t, g, turn, legal[rng.Intn(len(legal))])

		held := len(g.trick)
		for _, n := range g.HandSizes() {
			held += n
		}
		if held > deckSize {
			t.Fatalf("cards duplicated: %d held of %d", held, deckSize)
		}
		if out.TrickComplete {
			if _, err := g.ResolveTrick(); err != nil {
				t.Fatalf("ResolveTrick: %v", err)
			}
		}
	}
}

func TestFullMatch_PointConservation(t *testing.T) {
	for _, n := range []int{5, 6, 7} {
		for seed := uint64(1); seed <= 10; seed++ {
			g := startedGame(t, n, seed)
			mustOK(t, g.Raise("p0", 170))
			mustOK(t, g.FinishBidding())
			partners := []string{g.players["p1"].Hand[0].ID, g.players["p2"].Hand[0].ID}
			mustOK(t, g.PickPartners("p0", partners, Suits[seed%4]))

			playOut(t, g, newRNG(seed*31))

			total := 0
			for _, p := range g.players {
				total += p.Points
			}
			if want := deckPoints(g.deck); total != want {
				t.Fatalf("players=%d seed=%d: points %d, want %d", n, seed, total, want)
			}
			if !slices.Equal(g.revealed, []string{"p1", "p2"}) && !slices.Equal(g.revealed, []string{"p2", "p1"}) {
				t.Fatalf("players=%d seed=%d: revealed %v", n, seed, g.revealed)
			}
			r, _ := g.Result()
			if r.AttackingTotal+r.DefendingTotal != total {
				t.Fatalf("totals %+v do not add up to %d", r, total)
			}
		}
	}
}

func TestPlayAgain(t *testing.T) {
	g := startedGame(t, 5, 9)
	mustOK(t, g.FinishBidding())
	mustOK(t, g.PickPartners("p0", []string{g.players["p1"].Hand[0].ID, g.players["p3"].Hand[0].ID}, Clubs))
	playOut(t, g, newRNG(4))
	mustOK(t, g.Start())
	if g.Phase() != PhaseBidding || g.CurrentBid() != 150 || g.BidderID() != "" || g.Trump() != "" {
		t.Fatalf("state not reset: phase=%s bid=%d bidder=%q trump=%q", g.Phase(), g.CurrentBid(), g.BidderID(), g.Trump())
	}
	for _, p := range g.players {
		if p.Points != 0 || p.Team != TeamNone || len(p.Hand) != 10 {
			t.Fatalf("player %s not reset: %+v", p.ID, p)
		}
	}
}
