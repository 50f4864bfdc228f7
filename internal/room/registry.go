package room

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"go.uber.org/zap"
)

const (
	DefaultGameKind = "kaali-tilli"

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 4
	codeAttempts = 64
)

// Registry maps room codes to sessions and participants to the single room
// they are in.
type Registry struct {
	opts   Options
	notify Notifier
	log    *zap.Logger
	// newCode is swapped in tests to force collisions.
	newCode func(n int) (string, error)

	mu       sync.Mutex
	rooms    map[string]*Session
	userRoom map[string]string
	closed   bool
}

func NewRegistry(opts Options, notify Notifier, log *zap.Logger) *Registry {
	return &Registry{
		opts:     opts,
		notify:   notify,
		log:      log,
		newCode:  genRoomCode,
		rooms:    make(map[string]*Session),
		userRoom: make(map[string]string),
	}
}

func genRoomCode(n int) (string, error) {
	out := make([]byte, n)
	for i := range out {
		x, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[x.Int64()]
	}
	return string(out), nil
}

// CreateRoom opens a new room with userID as host and returns its code. A
// participant already in another room leaves it first.
func (r *Registry) CreateRoom(ctx context.Context, userID, gameKind, name string) (string, error) {
	if err := r.Leave(ctx, userID); err != nil {
		return "", err
	}
	if gameKind == "" {
		gameKind = DefaultGameKind
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrRoomNotFound
	}
	code, err := r.uniqueCodeLocked()
	if err != nil {
		r.mu.Unlock()
		return "", err
	}
	s := newSession(code, gameKind, r.opts, r.notify, r.log)
	r.rooms[code] = s
	r.mu.Unlock()

	if err := s.Join(ctx, userID, name, true); err != nil {
		r.drop(code, s)
		return "", err
	}
	r.setUserRoom(userID, code)
	r.log.Info("room created", zap.String("room", code), zap.String("host", userID), zap.String("kind", gameKind))
	return code, nil
}

func (r *Registry) uniqueCodeLocked() (string, error) {
	for range codeAttempts {
		code, err := r.newCode(codeLength)
		if err != nil {
			return "", fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := r.rooms[code]; !taken {
			return code, nil
		}
	}
	return "", errors.New("generate room code: no free code")
}

// JoinRoom adds userID to the room with the given code.
func (r *Registry) JoinRoom(ctx context.Context, code, userID, name string) error {
	s := r.lookup(code)
	if s == nil {
		return ErrRoomNotFound
	}
	if cur := r.roomOf(userID); cur != "" && cur != code {
		if err := r.Leave(ctx, userID); err != nil {
			return err
		}
	}
	if err := s.Join(ctx, userID, name, false); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			r.drop(code, s)
		}
		return err
	}
	r.setUserRoom(userID, code)
	return nil
}

// Leave removes userID from whatever room they are in; it is a no-op for a
// participant in no room. Empty rooms are destroyed. On error the
// participant keeps their room so a retry can finish the leave.
func (r *Registry) Leave(ctx context.Context, userID string) error {
	r.mu.Lock()
	code, ok := r.userRoom[userID]
	s := r.rooms[code]
	if ok && s == nil {
		delete(r.userRoom, userID)
	}
	r.mu.Unlock()
	if s == nil {
		return nil
	}

	empty, err := s.Leave(ctx, userID)
	if err != nil && !errors.Is(err, ErrRoomNotFound) && !errors.Is(err, ErrNotInRoom) {
		return err
	}
	r.clearUserRoom(userID, code)
	if err != nil {
		return nil
	}
	if empty {
		r.drop(code, s)
		r.log.Info("room destroyed", zap.String("room", code))
	}
	return nil
}

func (r *Registry) StartMatch(ctx context.Context, code, userID string) error {
	s := r.lookup(code)
	if s == nil {
		return ErrRoomNotFound
	}
	return s.StartMatch(ctx, userID)
}

func (r *Registry) DispatchAction(ctx context.Context, code, userID, action string, payload json.RawMessage) error {
	s := r.lookup(code)
	if s == nil {
		return ErrRoomNotFound
	}
	return s.HandleAction(ctx, userID, action, payload)
}

// SyncState resends the roster and the caller's view of the match.
func (r *Registry) SyncState(ctx context.Context, code, userID string) error {
	s := r.lookup(code)
	if s == nil {
		return ErrRoomNotFound
	}
	return s.Sync(ctx, userID)
}

// Close stops every session. Later calls find no rooms.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for code, s := range r.rooms {
		s.stop()
		delete(r.rooms, code)
	}
	clear(r.userRoom)
}

// Len reports the number of live rooms.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

func (r *Registry) lookup(code string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[code]
}

func (r *Registry) roomOf(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.userRoom[userID]
}

func (r *Registry) setUserRoom(userID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[code]; ok {
		r.userRoom[userID] = code
	}
}

func (r *Registry) clearUserRoom(userID, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.userRoom[userID] == code {
		delete(r.userRoom, userID)
	}
}

func (r *Registry) drop(code string, s *Session) {
	r.mu.Lock()
	if r.rooms[code] == s {
		delete(r.rooms, code)
	}
	r.mu.Unlock()
	s.stop()
}
