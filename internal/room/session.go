package room

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/game"
)

// DisconnectPolicy decides what happens to a running match when a seated
// player leaves the room.
type DisconnectPolicy string

const (
	// PolicyKeep leaves the match running with the seat intact.
	PolicyKeep DisconnectPolicy = "keep"
	// PolicyAbandon discards the match and returns the room to the lobby.
	PolicyAbandon DisconnectPolicy = "abandon"
)

type Options struct {
	Rules            game.Rules
	MinPlayers       int
	MaxPlayers       int
	TrickDelay       time.Duration
	FallbackNames    []string
	DisconnectPolicy DisconnectPolicy
	// RNG seeds every match; nil uses crypto/rand.
	RNG game.RNG
}

func DefaultOptions() Options {
	return Options{
		Rules:            game.DefaultRules(),
		MinPlayers:       5,
		MaxPlayers:       7,
		TrickDelay:       2 * time.Second,
		FallbackNames:    []string{"Matts", "Pandey", "Sarvesh", "Avi", "DJ", "Baba", "Sid"},
		DisconnectPolicy: PolicyKeep,
	}
}

type loopCommand struct {
	kind     string
	userID   string
	name     string
	created  bool
	action   string
	data     json.RawMessage
	resp     chan error
	leftOver *bool
}

// Session is one room. All of its state is owned by a single goroutine; the
// exported methods hand commands to that goroutine and wait for the answer.
type Session struct {
	code     string
	gameKind string
	opts     Options
	notify   Notifier
	log      *zap.Logger

	roster []string
	names  map[string]string
	hostID string
	game   *game.Game
	closed bool

	timer  *time.Timer
	timerC <-chan time.Time

	cmdCh    chan loopCommand
	quitCh   chan struct{}
	stopOnce sync.Once
}

func newSession(code, gameKind string, opts Options, notify Notifier, log *zap.Logger) *Session {
	s := &Session{
		code:     code,
		gameKind: gameKind,
		opts:     opts,
		notify:   notify,
		log:      log.With(zap.String("room", code)),
		names:    map[string]string{},
		cmdCh:    make(chan loopCommand),
		quitCh:   make(chan struct{}),
	}
	s.startLoop()
	return s
}

func (s *Session) startLoop() {
	go func() {
		for {
			select {
			case cmd := <-s.cmdCh:
				s.handleCommand(cmd)
			case <-s.timerC:
				s.timer, s.timerC = nil, nil
				s.resolveTrickLocked()
			case <-s.quitCh:
				s.cancelTimerLocked()
				return
			}
		}
	}()
}

func (s *Session) stop() {
	s.stopOnce.Do(func() { close(s.quitCh) })
}

func (s *Session) handleCommand(cmd loopCommand) {
	if s.closed {
		cmd.resp <- ErrRoomNotFound
		return
	}
	var err error
	switch cmd.kind {
	case "join":
		err = s.joinLocked(cmd.userID, cmd.name, cmd.created)
	case "leave":
		err = s.leaveLocked(cmd.userID)
		*cmd.leftOver = s.closed
	case "start":
		err = s.startMatchLocked(cmd.userID)
	case "action":
		err = s.actionLocked(cmd.userID, cmd.action, cmd.data)
	case "sync":
		err = s.syncLocked(cmd.userID)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownAction, cmd.kind)
	}
	cmd.resp <- err
}

// do sends cmd to the loop. A stopped session answers ErrRoomNotFound.
func (s *Session) do(ctx context.Context, cmd loopCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd.resp = make(chan error, 1)
	select {
	case s.cmdCh <- cmd:
	case <-s.quitCh:
		return ErrRoomNotFound
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.resp:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) Join(ctx context.Context, userID, name string, created bool) error {
	return s.do(ctx, loopCommand{kind: "join", userID: userID, name: name, created: created})
}

// Leave removes userID and reports whether the room is now empty and closed.
func (s *Session) Leave(ctx context.Context, userID string) (bool, error) {
	var empty bool
	if err := s.do(ctx, loopCommand{kind: "leave", userID: userID, leftOver: &empty}); err != nil {
		return false, err
	}
	return empty, nil
}

func (s *Session) StartMatch(ctx context.Context, userID string) error {
	return s.do(ctx, loopCommand{kind: "start", userID: userID})
}

func (s *Session) HandleAction(ctx context.Context, userID, action string, data json.RawMessage) error {
	return s.do(ctx, loopCommand{kind: "action", userID: userID, action: action, data: data})
}

func (s *Session) Sync(ctx context.Context, userID string) error {
	return s.do(ctx, loopCommand{kind: "sync", userID: userID})
}

func (s *Session) member(id string) bool { return slices.Contains(s.roster, id) }

func (s *Session) joinLocked(userID, name string, created bool) error {
	if !s.member(userID) {
		s.roster = append(s.roster, userID)
		s.names[userID] = s.pickNameLocked(name)
		if s.hostID == "" {
			s.hostID = userID
		}
		s.log.Info("participant joined", zap.String("id", userID), zap.String("name", s.names[userID]))
	}
	kind := MsgRoomJoined
	if created {
		kind = MsgRoomCreated
	}
	s.notify.Send(userID, Message{Type: kind, Payload: RoomCodePayload{RoomCode: s.code}})
	s.broadcastRosterLocked()
	if s.game != nil {
		s.pushStateLocked(userID)
	}
	return nil
}

// pickNameLocked keeps an explicit name, else hands out the first unused
// fallback name, else "Player N".
func (s *Session) pickNameLocked(name string) string {
	if name != "" {
		return name
	}
	taken := map[string]bool{}
	for _, n := range s.names {
		taken[n] = true
	}
	for _, n := range s.opts.FallbackNames {
		if !taken[n] {
			return n
		}
	}
	return "Player " + strconv.Itoa(len(s.roster))
}

func (s *Session) leaveLocked(userID string) error {
	i := slices.Index(s.roster, userID)
	if i < 0 {
		return ErrNotInRoom
	}
	s.roster = slices.Delete(s.roster, i, i+1)
	delete(s.names, userID)
	if s.hostID == userID {
		s.hostID = ""
		if len(s.roster) > 0 {
			s.hostID = s.roster[0]
		}
	}
	s.log.Info("participant left", zap.String("id", userID), zap.String("host", s.hostID))

	if len(s.roster) == 0 {
		s.closed = true
		s.game = nil
		s.cancelTimerLocked()
		return nil
	}

	if s.game != nil && s.game.Seated(userID) && s.game.Phase() != game.PhaseFinished &&
		s.opts.DisconnectPolicy == PolicyAbandon {
		s.log.Info("match abandoned", zap.String("by", userID))
		s.game = nil
		s.cancelTimerLocked()
		s.broadcastLocked(Message{Type: MsgGameState, Payload: GameStatePayload{
			RoomCode: s.code,
			View:     game.View{Phase: game.PhaseWaiting, Hand: []game.Card{}},
		}})
	}
	s.broadcastRosterLocked()
	return nil
}

func (s *Session) startMatchLocked(userID string) error {
	if !s.member(userID) {
		return ErrNotInRoom
	}
	if userID != s.hostID {
		return ErrNotHost
	}
	if n := len(s.roster); n < s.opts.MinPlayers || n > s.opts.MaxPlayers {
		return fmt.Errorf("%w: %d players, need %d to %d", ErrInvalidPlayerCount, n, s.opts.MinPlayers, s.opts.MaxPlayers)
	}
	if s.game != nil && s.game.Phase() != game.PhaseFinished {
		return ErrMatchRunning
	}

	seats := make([]game.Seat, 0, len(s.roster))
	for _, id := range s.roster {
		seats = append(seats, game.Seat{ID: id, Name: s.names[id]})
	}
	g, err := game.NewGame(seats, s.opts.Rules, s.opts.RNG)
	if err != nil {
		return err
	}
	if err := g.Start(); err != nil {
		return err
	}
	s.game = g
	s.cancelTimerLocked()
	s.log.Info("match started", zap.Int("players", len(seats)), zap.String("kind", s.gameKind))
	s.broadcastStateLocked()
	return nil
}

func (s *Session) actionLocked(userID, action string, data json.RawMessage) error {
	if !s.member(userID) {
		return ErrNotInRoom
	}
	if s.game == nil {
		return ErrNoMatch
	}
	move, err := decodeMove(action, data)
	if err != nil {
		return err
	}
	if move.Kind == game.MoveFinishBidding && userID != s.hostID {
		return ErrNotHost
	}
	out, err := s.game.ApplyMove(userID, move)
	if err != nil {
		return err
	}
	if out.Revealed != "" {
		s.log.Info("partner revealed", zap.String("id", out.Revealed))
	}
	if out.TrickComplete {
		s.resetTrickTimerLocked()
	}
	s.broadcastStateLocked()
	return nil
}

func (s *Session) syncLocked(userID string) error {
	if !s.member(userID) {
		return ErrNotInRoom
	}
	s.notify.Send(userID, Message{Type: MsgUpdatePlayers, Payload: s.rosterLocked()})
	if s.game != nil {
		s.pushStateLocked(userID)
	}
	return nil
}

func (s *Session) resetTrickTimerLocked() {
	s.cancelTimerLocked()
	s.timer = time.NewTimer(s.opts.TrickDelay)
	s.timerC = s.timer.C
}

func (s *Session) cancelTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerC = nil
}

func (s *Session) resolveTrickLocked() {
	if s.game == nil || !s.game.Resolving() {
		return
	}
	res, err := s.game.ResolveTrick()
	if err != nil {
		s.log.Error("resolve trick", zap.Error(err))
		return
	}
	s.log.Debug("trick won", zap.String("winner", res.WinnerID), zap.Int("points", res.Points))
	s.broadcastLocked(Message{Type: MsgTrickWinner, Payload: TrickWinnerPayload{
		WinnerID:   res.WinnerID,
		WinnerName: res.WinnerName,
		Points:     res.Points,
	}})
	s.broadcastStateLocked()
	if r, ok := s.game.Result(); ok {
		s.log.Info("match finished",
			zap.Int("bid", r.Bid),
			zap.Int("attacking", r.AttackingTotal),
			zap.Int("defending", r.DefendingTotal),
			zap.Bool("attackersWon", r.AttackingWon),
		)
	}
}

func (s *Session) rosterLocked() []PlayerEntry {
	out := make([]PlayerEntry, 0, len(s.roster))
	for _, id := range s.roster {
		out = append(out, PlayerEntry{ID: id, Name: s.names[id], Host: id == s.hostID})
	}
	return out
}

func (s *Session) broadcastRosterLocked() {
	s.broadcastLocked(Message{Type: MsgUpdatePlayers, Payload: s.rosterLocked()})
}

func (s *Session) broadcastLocked(msg Message) {
	for _, id := range s.roster {
		s.notify.Send(id, msg)
	}
}

func (s *Session) broadcastStateLocked() {
	for _, id := range s.roster {
		s.pushStateLocked(id)
	}
}

func (s *Session) pushStateLocked(id string) {
	s.notify.Send(id, Message{Type: MsgGameState, Payload: GameStatePayload{
		RoomCode: s.code,
		View:     s.game.ViewFor(id),
	}})
}
