package handler

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/bus"
	"whiteboard-backend/internal/codec"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/registry"
)

// WhiteboardWSHandler owns the per-connection protocol state machine:
// upgrade, authenticate, register, pump events, deregister on close.
type WhiteboardWSHandler struct {
	cfg      *config.Config
	registry *registry.Registry
	bus      *bus.Bus
	jwt      *auth.JWTManager
	authz    auth.Authorizer
	redis    *redis.Client
}

func NewWhiteboardWSHandler(cfg *config.Config, reg *registry.Registry, b *bus.Bus, jwt *auth.JWTManager, authz auth.Authorizer, rdb *redis.Client) *WhiteboardWSHandler {
	return &WhiteboardWSHandler{
		cfg:      cfg,
		registry: reg,
		bus:      b,
		jwt:      jwt,
		authz:    authz,
		redis:    rdb,
	}
}

// HandleWebSocket runs one connection from upgrade to close.
//
// The first frame must arrive within the auth deadline and decode as an
// auth event; anything else closes the socket with no response. Once
// authenticated, an outbound goroutine drains the client's delivery channel
// while the inbound loop publishes client edits to the bus. Whichever loop
// finishes first wins: teardown runs exactly once after the join.
func (h *WhiteboardWSHandler) HandleWebSocket(c *websocket.Conn) {
	defer c.Close()

	projectID, err := strconv.ParseInt(c.Params("projectId"), 10, 64)
	if err != nil {
		return
	}
	room := strconv.FormatInt(projectID, 10)

	userID, ok := h.authenticate(c, projectID, room)
	if !ok {
		return
	}

	client := registry.NewClient(h.cfg.WebSocket.SendBufferSize)
	h.registry.Register(room, client)
	log.Printf("[WS] User %d joined room %s", userID, room)

	done := make(chan struct{}, 2)
	go func() {
		h.writePump(c, client)
		done <- struct{}{}
	}()
	go func() {
		h.readPump(c, room)
		done <- struct{}{}
	}()
	<-done

	h.registry.Deregister(room, client)
	// After deregistration no fanout can reach the channel, so closing it
	// is what releases a writePump still blocked on an empty channel. The
	// deferred socket close releases a readPump still blocked on a read.
	close(client.Send)
	log.Printf("[WS] User %d left room %s", userID, room)
}

// authenticate drives AwaitingAuth: read the first frame under a deadline,
// verify the credential, consult the collaborator check, issue a session
// token and confirm to the client. The auth_success write is awaited so the
// client observes it strictly before any fan-out traffic.
func (h *WhiteboardWSHandler) authenticate(c *websocket.Conn, projectID int64, room string) (int64, bool) {
	if err := c.SetReadDeadline(time.Now().Add(h.cfg.WebSocket.AuthTimeout)); err != nil {
		return 0, false
	}
	_, frame, err := c.ReadMessage()
	if err != nil {
		return 0, false
	}
	if err := c.SetReadDeadline(time.Time{}); err != nil {
		return 0, false
	}

	ev, err := codec.DecodeInbound(codec.Decompress(frame))
	if err != nil || ev.Type != codec.EventAuth {
		return 0, false
	}

	claims, err := h.jwt.ValidateAccessToken(ev.Token)
	if err != nil {
		h.sendError(c, "Invalid token")
		return 0, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.authz.Authorize(ctx, claims.UserID, projectID); err != nil {
		h.sendError(c, "No access to this project")
		return 0, false
	}

	sessionToken := uuid.NewString()
	sessions := auth.NewSessionCache(room, h.redis)
	// Session bookkeeping failure is infrastructure trouble, not an auth
	// failure; the join proceeds and the error is already logged.
	_ = sessions.AddAuthenticatedUser(ctx, sessionToken, claims.UserID)

	ok := h.send(c, codec.OutboundEvent{
		Type:      codec.EventAuthSuccess,
		Message:   "Authenticated successfully",
		UserToken: sessionToken,
	})
	return claims.UserID, ok
}

// writePump drains the client's private delivery channel onto the socket.
// A write failure ends the loop; so does the channel closing at teardown.
func (h *WhiteboardWSHandler) writePump(c *websocket.Conn, client *registry.Client) {
	for payload := range client.Send {
		if err := c.WriteMessage(websocket.BinaryMessage, payload); err != nil {
			return
		}
	}
}

// readPump reads frames until the socket errors or closes and publishes
// each one to the room.
func (h *WhiteboardWSHandler) readPump(c *websocket.Conn, room string) {
	for {
		_, frame, err := c.ReadMessage()
		if err != nil {
			return
		}
		h.publishFrame(room, frame)
	}
}

// publishFrame turns one client frame into the event broadcast to the room.
// A frame that fails to decode becomes an error event published to everyone
// so all collaborators are informed; one bad frame never kills the session.
func (h *WhiteboardWSHandler) publishFrame(room string, frame []byte) {
	var out codec.OutboundEvent
	ev, err := codec.DecodeInbound(codec.Decompress(frame))
	if err != nil {
		out = codec.OutboundEvent{Type: codec.EventError, Message: "Malformed event"}
	} else {
		out = codec.Translate(ev)
	}

	encoded, err := codec.EncodeOutbound(out)
	if err != nil {
		log.Printf("[WS] Failed to encode outbound event for room %s: %v", room, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.bus.Publish(ctx, room, codec.Compress(encoded)); err != nil {
		// Skipped fan-out; the connection itself survives.
		log.Printf("[WS] Publish failed for room %s: %v", room, err)
	}
}

// send writes one event to the socket and reports whether the write
// completed.
func (h *WhiteboardWSHandler) send(c *websocket.Conn, ev codec.OutboundEvent) bool {
	encoded, err := codec.EncodeOutbound(ev)
	if err != nil {
		return false
	}
	return c.WriteMessage(websocket.BinaryMessage, codec.Compress(encoded)) == nil
}

// sendError sends a best-effort error event before the connection closes.
func (h *WhiteboardWSHandler) sendError(c *websocket.Conn, message string) {
	h.send(c, codec.OutboundEvent{Type: codec.EventError, Message: message})
}
