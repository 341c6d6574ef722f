package handler

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/Baaaki/travel-log/internal/broker"
	"github.com/Baaaki/travel-log/internal/models"
	"github.com/Baaaki/travel-log/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	maxSessionLifetime = 15 * time.Minute
	writeWait          = 10 * time.Second // Time allowed to write a message to the peer
	pongWait           = 60 * time.Second
	pingPeriod         = (pongWait * 9) / 10 // 54 seconds
	maxMessageSize     = 512                 // clients only send control frames
)

type EventSubscriber interface {
	Subscribe(ctx context.Context) (<-chan broker.Event, error)
}

// FeedMessage is the envelope written to websocket clients
type FeedMessage struct {
	Type  string        `json:"type"` // "event", "session_expired"
	Event *broker.Event `json:"event,omitempty"`
	Error string        `json:"error,omitempty"`
}

type EventsHandler struct {
	subscriber EventSubscriber
	upgrader   websocket.Upgrader
}

// NewEventsHandler accepts upgrades from the listed origins. "*" or an empty
// list allows any origin.
func NewEventsHandler(subscriber EventSubscriber, allowedOrigins []string) *EventsHandler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")

	return &EventsHandler{
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// visibleTo reports whether a principal may see an event: every country
// event, and tourist or visit events owned by the principal.
func visibleTo(event broker.Event, principalID uint) bool {
	if event.Entity == models.EntityCountry {
		return true
	}
	return event.TouristID != nil && *event.TouristID == principalID
}

// Stream handles GET /api/events/ws
func (h *EventsHandler) Stream(c *gin.Context) {
	principalID, ok := principal(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Subscribe before upgrading so a broker failure is still an HTTP error
	events, err := h.subscriber.Subscribe(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("Websocket upgrade failed",
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		return
	}
	defer conn.Close()

	connectedAt := time.Now()
	logger.Log.Info("Event feed client connected", zap.Uint("tourist_id", principalID))

	go readPump(conn, cancel)
	writePump(ctx, conn, events, principalID)

	logger.Log.Info("Event feed client disconnected",
		zap.Uint("tourist_id", principalID),
		zap.Duration("session", time.Since(connectedAt).Round(time.Second)),
	)
}

// readPump consumes control frames and cancels the session when the peer goes away
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("Websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

// writePump is the only writer on conn
func writePump(ctx context.Context, conn *websocket.Conn, events <-chan broker.Event, principalID uint) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	sessionTimer := time.NewTimer(maxSessionLifetime)
	defer sessionTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-sessionTimer.C:
			closeGracefully(conn, "session expired")
			return

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case event, ok := <-events:
			if !ok {
				return
			}
			if !visibleTo(event, principalID) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(FeedMessage{Type: "event", Event: &event}); err != nil {
				logger.Log.Debug("Websocket write failed",
					zap.Uint("tourist_id", principalID),
					zap.Error(err),
				)
				return
			}
		}
	}
}

func closeGracefully(conn *websocket.Conn, reason string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(FeedMessage{Type: "session_expired", Error: reason})

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
	)
}
