package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/CareCall/internal/app"
	"github.com/dkeye/CareCall/internal/core"
	"github.com/dkeye/CareCall/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the signaling WebSocket endpoint: it authenticates the
// upgrade, binds the user in presence and dispatches inbound envelopes.
type Controller struct {
	Orch       *app.Orchestrator
	Relay      *app.Relay
	ReadLimit  int64
	PingPeriod time.Duration
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
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

// HandleSignal upgrades an authenticated request and binds the user in
// the presence registry. A previous binding for the same user, if any, is
// superseded but its socket is left alone.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	log.Info().Str("module", "signal").Str("user", string(user.ID)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctl.Orch.Presence.Bind(user.ID, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, user.ID, conn)
}

// currentUser reads the identity the auth middleware resolved.
func currentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get("user")
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok
}
