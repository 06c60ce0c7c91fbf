// Package signal is the room synchronization channel: one websocket per
// participant, every committed mutation fanned out to the whole room in
// commit order. The server is the sole writer; clients only propose.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"jamroom/internal/app"
	"jamroom/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

type RoomWSController struct {
	Orch *app.Orchestrator

	mu        sync.Mutex
	roomLocks map[domain.RoomID]*sync.Mutex
}

func NewRoomWSController(orch *app.Orchestrator) *RoomWSController {
	return &RoomWSController{
		Orch:      orch,
		roomLocks: make(map[domain.RoomID]*sync.Mutex),
	}
}

// roomLock serializes apply+fan-out per room so every subscriber sees
// commits in store order. Rooms never share a lock.
func (ctl *RoomWSController) roomLock(roomID domain.RoomID) *sync.Mutex {
	ctl.mu.Lock()
	defer ctl.mu.Unlock()
	mu, ok := ctl.roomLocks[roomID]
	if !ok {
		mu = &sync.Mutex{}
		ctl.roomLocks[roomID] = mu
	}
	return mu
}

type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleRoom upgrades the connection and starts the pumps. Every later
// command resolves its room through the registry binding made here.
func (ctl *RoomWSController) HandleRoom(ctx context.Context, c *gin.Context) {
	sid := app.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, 32),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.Bind(sid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}

// BroadcastRoom delivers to every subscriber of the room, the sender
// included, so all clients converge on the same committed state. A slow
// subscriber is dropped rather than allowed to stall the room.
func (ctl *RoomWSController) BroadcastRoom(roomID domain.RoomID, v any) {
	for _, snap := range ctl.Orch.Registry.MembersOfRoom(roomID) {
		if err := ctl.sendJSON(snap.Conn, v); err != nil {
			log.Warn().Str("module", "signal").Str("sid", string(snap.SID)).Msg("dropping slow subscriber")
			ctl.Orch.Registry.Cancel(snap.SID)
		}
	}
}
