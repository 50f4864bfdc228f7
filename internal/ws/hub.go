package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/youngZwiebelandtheGemuseBeat/kaali_tilli/internal/room"
)

// Inbound message types.
const (
	MsgCreateRoom = "create-room"
	MsgJoinRoom   = "join-room"
	MsgLeaveRoom  = "leave-room"
	MsgSyncRoom   = "sync-room-state"
	MsgStartGame  = "start-game"
	MsgGameAction = "game-action"
	MsgPing       = "ping"

	msgWelcome = "welcome"
	msgPong    = "pong"
)

const opTimeout = 5 * time.Second

// Msg is the wire envelope in both directions.
type Msg struct {
	T string          `json:"t"`
	M json.RawMessage `json:"m,omitempty"`
}

type outMsg struct {
	T string `json:"t"`
	M any    `json:"m,omitempty"`
}

type createRoomReq struct {
	GameID     string `json:"gameId"`
	PlayerName string `json:"playerName"`
}

type joinRoomReq struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type roomReq struct {
	RoomCode string `json:"roomCode"`
}

type gameActionReq struct {
	RoomCode string          `json:"roomCode"`
	Action   string          `json:"action"`
	Payload  json.RawMessage `json:"payload"`
}

// Rooms is what the hub needs from the room registry.
type Rooms interface {
	CreateRoom(ctx context.Context, userID, gameKind, name string) (string, error)
	JoinRoom(ctx context.Context, code, userID, name string) error
	Leave(ctx context.Context, userID string) error
	StartMatch(ctx context.Context, code, userID string) error
	DispatchAction(ctx context.Context, code, userID, action string, payload json.RawMessage) error
	SyncState(ctx context.Context, code, userID string) error
}

// Hub owns the live connections and delivers room messages to them.
type Hub struct {
	log          *zap.Logger
	allowOrigins map[string]bool
	rooms        Rooms

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub builds a hub. An empty allowlist accepts any origin.
func NewHub(allow []string, log *zap.Logger) *Hub {
	m := map[string]bool{}
	for _, a := range allow {
		if a != "" {
			m[a] = true
		}
	}
	return &Hub{
		log:          log,
		allowOrigins: m,
		clients:      map[string]*Client{},
	}
}

// Bind attaches the registry; it must be called before serving.
func (h *Hub) Bind(rooms Rooms) { h.rooms = rooms }

func (h *Hub) originAllowed(origin string) bool {
	return origin == "" || len(h.allowOrigins) == 0 || h.allowOrigins[origin]
}

// Send implements room.Notifier. It never blocks: a full queue drops the frame.
func (h *Hub) Send(participantID string, msg room.Message) {
	b, err := json.Marshal(outMsg{T: msg.Type, M: msg.Payload})
	if err != nil {
		h.log.Error("marshal outbound", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[participantID]
	if !ok {
		return
	}
	h.enqueue(c, msg.Type, b)
}

func (h *Hub) sendTo(c *Client, t string, payload any) {
	b, err := json.Marshal(outMsg{T: t, M: payload})
	if err != nil {
		h.log.Error("marshal outbound", zap.String("type", t), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; ok {
		h.enqueue(c, t, b)
	}
}

// enqueue must run under h.mu so the queue cannot be closed underneath it.
func (h *Hub) enqueue(c *Client, t string, b []byte) {
	select {
	case c.send <- b:
	default:
		h.log.Warn("client send queue full, dropping frame", zap.String("client", c.id), zap.String("type", t))
	}
}

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !h.originAllowed(origin) {
		http.Error(w, "forbidden origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		h.log.Debug("accept failed", zap.Error(err))
		return
	}

	client := &Client{
		id:        uuid.NewString(),
		requestID: r.Header.Get(headerRequestID),
		conn:      conn,
		send:      make(chan []byte, sendQueue),
	}
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	h.log.Info("client connected", zap.String("client", client.id),
		zap.String("request_id", client.requestID), zap.String("origin", origin))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go client.writePump(ctx, h.log)

	h.sendTo(client, msgWelcome, map[string]string{"id": client.id})
	h.readPump(ctx, client)
	h.unregister(client)
}

func (h *Hub) readPump(ctx context.Context, c *Client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var m Msg
		if err := json.Unmarshal(data, &m); err != nil {
			h.sendTo(c, room.MsgError, room.ErrorPayload{Message: "malformed frame", Code: "BAD_PAYLOAD"})
			continue
		}
		if err := h.handle(ctx, c, m); err != nil {
			h.log.Debug("rejected", zap.String("client", c.id), zap.String("type", m.T), zap.Error(err))
			em := room.ErrorMessage(err)
			h.sendTo(c, em.Type, em.Payload)
		}
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, m Msg) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	switch m.T {
	case MsgCreateRoom:
		var req createRoomReq
		if err := decode(m.M, &req); err != nil {
			return err
		}
		_, err := h.rooms.CreateRoom(ctx, c.id, req.GameID, req.PlayerName)
		return err
	case MsgJoinRoom:
		var req joinRoomReq
		if err := decode(m.M, &req); err != nil {
			return err
		}
		return h.rooms.JoinRoom(ctx, req.RoomCode, c.id, req.PlayerName)
	case MsgLeaveRoom:
		return h.rooms.Leave(ctx, c.id)
	case MsgSyncRoom:
		var req roomReq
		if err := decode(m.M, &req); err != nil {
			return err
		}
		return h.rooms.SyncState(ctx, req.RoomCode, c.id)
	case MsgStartGame:
		var req roomReq
		if err := decode(m.M, &req); err != nil {
			return err
		}
		return h.rooms.StartMatch(ctx, req.RoomCode, c.id)
	case MsgGameAction:
		var req gameActionReq
		if err := decode(m.M, &req); err != nil {
			return err
		}
		return h.rooms.DispatchAction(ctx, req.RoomCode, c.id, req.Action, req.Payload)
	case MsgPing:
		h.sendTo(c, msgPong, nil)
		return nil
	}
	return fmt.Errorf("%w: %q", room.ErrUnknownAction, m.T)
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", room.ErrBadPayload, err)
	}
	return nil
}

// unregister drops the client and treats the disconnect as leaving its room.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	close(c.send)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := h.rooms.Leave(ctx, c.id); err != nil {
		h.log.Warn("leave on disconnect", zap.String("client", c.id), zap.Error(err))
	}
	h.log.Info("client disconnected", zap.String("client", c.id), zap.String("request_id", c.requestID))
}

// Len reports the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
